// Package registry holds the static plugin registration table: every plugin
// registers its manifest and implementation at startup, and the built
// registry is immutable thereafter. There is no runtime type discovery.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/g4-api/g4-plugins-go/pkg/manifest"
	"github.com/g4-api/g4-plugins-go/pkg/session"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// Macro is a pure plugin: given its coerced arguments it produces a single
// substitution string. Implementations must be deterministic enough to be
// re-invoked freely and must not touch a driver session.
type Macro interface {
	Invoke(arguments map[string]any) (string, error)
}

// Action is a session-bound plugin invoked through the dispatcher with a
// fully resolved rule.
type Action interface {
	Invoke(ctx context.Context, rule *types.ActionRule) (*types.PluginResponse, error)
}

// ActionFactory constructs an Action bound to one session context. A fresh
// instance is built per invocation; factories must not retain the session.
type ActionFactory func(sess *session.Context) Action

// DuplicateKeyError indicates two manifests sharing a key, or an alias
// colliding with any other key or alias, regardless of plugin type.
type DuplicateKeyError struct {
	Name string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate plugin key or alias %q", e.Name)
}

type entry struct {
	manifest manifest.Manifest
	macro    Macro
	action   ActionFactory
}

// Builder accumulates plugin registrations and produces an immutable
// Registry. Manifests and implementations are paired by key at Build time.
type Builder struct {
	manifests []manifest.Manifest
	macros    map[string]Macro
	actions   map[string]ActionFactory
}

// NewBuilder returns an empty registration table.
func NewBuilder() *Builder {
	return &Builder{
		macros:  make(map[string]Macro),
		actions: make(map[string]ActionFactory),
	}
}

// AddManifests appends manifest descriptors to the table.
func (b *Builder) AddManifests(manifests ...manifest.Manifest) *Builder {
	b.manifests = append(b.manifests, manifests...)
	return b
}

// RegisterMacro binds a Macro implementation to a manifest key.
func (b *Builder) RegisterMacro(key string, impl Macro) *Builder {
	b.macros[strings.ToLower(key)] = impl
	return b
}

// RegisterAction binds an Action factory to a manifest key.
func (b *Builder) RegisterAction(key string, factory ActionFactory) *Builder {
	b.actions[strings.ToLower(key)] = factory
	return b
}

// Build validates every manifest, pairs it with its registered
// implementation, and indexes the table by key and alias. It fails with
// DuplicateKeyError on any key or alias collision (aliases are unique across
// all manifests, regardless of type) and with InvalidManifestError when a
// manifest is structurally invalid, has no implementation, or an
// implementation has no manifest. No partial registry is ever produced.
func (b *Builder) Build() (*Registry, error) {
	reg := &Registry{
		byKey:   make(map[string]*entry, len(b.manifests)),
		byAlias: make(map[string]*entry),
	}

	unbound := make(map[string]struct{}, len(b.macros)+len(b.actions))
	for key := range b.macros {
		unbound[key] = struct{}{}
	}
	for key := range b.actions {
		if _, dup := b.macros[key]; dup {
			return nil, &manifest.InvalidManifestError{Key: key, Reason: "registered as both macro and action"}
		}
		unbound[key] = struct{}{}
	}

	for _, m := range b.manifests {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(m.Key)
		e := &entry{manifest: m}

		switch m.PluginType {
		case manifest.TypeMacro:
			impl, ok := b.macros[key]
			if !ok {
				return nil, &manifest.InvalidManifestError{Key: m.Key, Reason: "no macro implementation registered"}
			}
			e.macro = impl
		case manifest.TypeAction:
			factory, ok := b.actions[key]
			if !ok {
				return nil, &manifest.InvalidManifestError{Key: m.Key, Reason: "no action factory registered"}
			}
			e.action = factory
		}
		delete(unbound, key)

		if _, dup := reg.byKey[key]; dup {
			return nil, &DuplicateKeyError{Name: m.Key}
		}
		if _, dup := reg.byAlias[key]; dup {
			return nil, &DuplicateKeyError{Name: m.Key}
		}
		reg.byKey[key] = e

		for _, alias := range m.Aliases {
			a := strings.ToLower(alias)
			if _, dup := reg.byKey[a]; dup {
				return nil, &DuplicateKeyError{Name: alias}
			}
			if _, dup := reg.byAlias[a]; dup {
				return nil, &DuplicateKeyError{Name: alias}
			}
			reg.byAlias[a] = e
		}
		reg.ordered = append(reg.ordered, e)
	}

	for key := range unbound {
		return nil, &manifest.InvalidManifestError{Key: key, Reason: "implementation registered without a manifest"}
	}

	// Alias lookups must not shadow another manifest's key.
	for alias := range reg.byAlias {
		if _, clash := reg.byKey[alias]; clash {
			return nil, &DuplicateKeyError{Name: alias}
		}
	}

	sort.Slice(reg.ordered, func(i, j int) bool {
		a, b := reg.ordered[i].manifest, reg.ordered[j].manifest
		if a.PluginType != b.PluginType {
			return a.PluginType < b.PluginType
		}
		return strings.ToLower(a.Key) < strings.ToLower(b.Key)
	})
	return reg, nil
}

// Registry is the immutable plugin table. All lookups are case-insensitive
// and safe for concurrent use without locking.
type Registry struct {
	byKey   map[string]*entry
	byAlias map[string]*entry
	ordered []*entry
}

// ByKey returns the manifest registered under the given key.
func (r *Registry) ByKey(key string) (*manifest.Manifest, error) {
	e, ok := r.byKey[strings.ToLower(key)]
	if !ok {
		return nil, &types.NotFoundError{Kind: "plugin", Name: key}
	}
	return &e.manifest, nil
}

// ByAlias returns the manifest registered under the given alias.
func (r *Registry) ByAlias(alias string) (*manifest.Manifest, error) {
	e, ok := r.byAlias[strings.ToLower(alias)]
	if !ok {
		return nil, &types.NotFoundError{Kind: "plugin", Name: alias}
	}
	return &e.manifest, nil
}

// Lookup resolves a name first as a key, then as an alias. Both paths return
// the identical manifest for a given plugin.
func (r *Registry) Lookup(name string) (*manifest.Manifest, error) {
	if m, err := r.ByKey(name); err == nil {
		return m, nil
	}
	return r.ByAlias(name)
}

// ByTypeAndName resolves a name (key or alias) and additionally requires the
// manifest to carry the given plugin type; a match under a different type is
// reported as not found.
func (r *Registry) ByTypeAndName(t manifest.Type, name string) (*manifest.Manifest, error) {
	m, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if m.PluginType != t {
		return nil, &types.NotFoundError{Kind: "plugin", Name: name}
	}
	return m, nil
}

// Manifests returns every registered manifest in stable order (by type, then
// key).
func (r *Registry) Manifests() []manifest.Manifest {
	out := make([]manifest.Manifest, len(r.ordered))
	for i, e := range r.ordered {
		out[i] = e.manifest
	}
	return out
}

// Macro returns the Macro implementation for a name (key or alias). A name
// that resolves to an Action-type plugin is not found under this accessor.
func (r *Registry) Macro(name string) (Macro, error) {
	e := r.lookupEntry(name)
	if e == nil || e.macro == nil {
		return nil, &types.NotFoundError{Kind: "plugin", Name: name}
	}
	return e.macro, nil
}

// ActionFactory returns the Action factory for a name (key or alias).
func (r *Registry) ActionFactory(name string) (ActionFactory, error) {
	e := r.lookupEntry(name)
	if e == nil || e.action == nil {
		return nil, &types.NotFoundError{Kind: "plugin", Name: name}
	}
	return e.action, nil
}

func (r *Registry) lookupEntry(name string) *entry {
	lower := strings.ToLower(name)
	if e, ok := r.byKey[lower]; ok {
		return e
	}
	return r.byAlias[lower]
}
