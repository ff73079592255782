// Package manifest defines the static plugin descriptor and its JSON
// loading and validation.
package manifest

import (
	"fmt"
	"strings"

	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// Type discriminates the two plugin families: Actions have side effects via
// a driver session, Macros are pure functions producing a substitution
// string.
type Type string

const (
	TypeAction Type = "Action"
	TypeMacro  Type = "Macro"
)

// ParseType normalizes a plugin type string. Matching is case-insensitive,
// mirroring the engine's lowercased route segments.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "action":
		return TypeAction, nil
	case "macro":
		return TypeMacro, nil
	default:
		return "", &InvalidManifestError{Key: s, Reason: fmt.Sprintf("unknown plugin type %q", s)}
	}
}

// ParameterType is the declared type of one plugin parameter. Resolved macro
// argument values are coerced to this type before invocation.
type ParameterType string

const (
	ParamString  ParameterType = "String"
	ParamInteger ParameterType = "Integer"
	ParamNumber  ParameterType = "Number"
	ParamBoolean ParameterType = "Boolean"
	ParamAny     ParameterType = "Any"
)

// Parameter declares one named plugin parameter.
type Parameter struct {
	Name        string        `json:"name"`
	Type        ParameterType `json:"type"`
	Mandatory   bool          `json:"mandatory"`
	Description []string      `json:"description,omitempty"`
}

// Author identifies the manifest author.
type Author struct {
	Name string `json:"name"`
	Link string `json:"link,omitempty"`
}

// Example is one worked usage of the plugin. Every valid manifest carries at
// least one.
type Example struct {
	Description []string         `json:"description"`
	Rule        types.ActionRule `json:"rule"`
}

// Manifest is the static descriptor of one plugin: identity, parameters,
// type, and documentation. Immutable once loaded.
type Manifest struct {
	Key             string      `json:"key"`
	Aliases         []string    `json:"aliases,omitempty"`
	Author          Author      `json:"author"`
	Categories      []string    `json:"categories,omitempty"`
	Description     []string    `json:"description,omitempty"`
	Examples        []Example   `json:"examples"`
	Parameters      []Parameter `json:"parameters,omitempty"`
	PluginType      Type        `json:"pluginType"`
	ManifestVersion int         `json:"manifestVersion"`
	Scope           []string    `json:"scope,omitempty"`
	Summary         []string    `json:"summary,omitempty"`
}

// Parameter returns the declared parameter with the given name,
// case-insensitively.
func (m *Manifest) Parameter(name string) (Parameter, bool) {
	for _, p := range m.Parameters {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Parameter{}, false
}

// Validate checks the manifest's structural invariants: a non-blank key, a
// known plugin type, at least one example, and distinct parameter names.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Key) == "" {
		return &InvalidManifestError{Key: m.Key, Reason: "manifest key is blank"}
	}
	if m.PluginType != TypeAction && m.PluginType != TypeMacro {
		return &InvalidManifestError{Key: m.Key, Reason: fmt.Sprintf("unknown plugin type %q", m.PluginType)}
	}
	if len(m.Examples) == 0 {
		return &InvalidManifestError{Key: m.Key, Reason: "manifest has no examples"}
	}
	seen := make(map[string]struct{}, len(m.Parameters))
	for _, p := range m.Parameters {
		name := strings.ToLower(p.Name)
		if name == "" {
			return &InvalidManifestError{Key: m.Key, Reason: "parameter with blank name"}
		}
		if _, dup := seen[name]; dup {
			return &InvalidManifestError{Key: m.Key, Reason: fmt.Sprintf("duplicate parameter %q", p.Name)}
		}
		seen[name] = struct{}{}
		switch p.Type {
		case ParamString, ParamInteger, ParamNumber, ParamBoolean, ParamAny:
		default:
			return &InvalidManifestError{Key: m.Key, Reason: fmt.Sprintf("parameter %q has unknown type %q", p.Name, p.Type)}
		}
	}
	return nil
}

// InvalidManifestError indicates a manifest that fails structural
// validation, or a registration whose code identity does not match its
// manifest.
type InvalidManifestError struct {
	Key    string
	Reason string
}

func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid manifest %q: %s", e.Key, e.Reason)
}
