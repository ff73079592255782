package types

import (
	"fmt"
	"time"
)

// NotFoundError indicates that a manifest, plugin, or ambient parameter could
// not be resolved, or that it exists under a different plugin type than the
// one requested.
type NotFoundError struct {
	Kind string // "plugin", "manifest", or "parameter"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// ValidationError indicates a value outside a parameter's declared domain,
// such as a Roman numeral input outside [1, 3999] or a missing mandatory
// parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MacroSyntaxError indicates a malformed macro token: unbalanced braces,
// an empty plugin reference, nesting beyond the configured depth, or an
// Action-type plugin referenced as a macro.
type MacroSyntaxError struct {
	Position int // byte offset into the argument string, -1 if not applicable
	Message  string
}

func (e *MacroSyntaxError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("macro syntax: %s", e.Message)
	}
	return fmt.Sprintf("macro syntax at offset %d: %s", e.Position, e.Message)
}

// TypeCoercionError indicates that a resolved argument value cannot satisfy
// the parameter type declared in the plugin's manifest.
type TypeCoercionError struct {
	Parameter string
	Value     string
	WantType  string
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("parameter %q: cannot coerce %q to %s", e.Parameter, e.Value, e.WantType)
}

// TimeoutError indicates that acquiring the session guard or waiting on the
// UI exceeded its bound.
type TimeoutError struct {
	Op      string
	Session string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Session == "" {
		return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
	}
	return fmt.Sprintf("%s timed out after %s (session %s)", e.Op, e.Timeout, e.Session)
}

// RuntimeError wraps an uncaught failure raised by Action plugin logic. The
// dispatcher converts it into a structured failure response; it never crosses
// the HTTP boundary as a raw error.
type RuntimeError struct {
	PluginName string
	Err        error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("plugin %q: %v", e.PluginName, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ErrorFields flattens a taxonomy error into the field -> messages mapping
// carried by the ErrorModel envelope.
func ErrorFields(err error) map[string][]string {
	switch e := err.(type) {
	case *ValidationError:
		field := e.Field
		if field == "" {
			field = "validation"
		}
		return map[string][]string{field: {e.Message}}
	case *TypeCoercionError:
		return map[string][]string{e.Parameter: {e.Error()}}
	case *MacroSyntaxError:
		return map[string][]string{"argument": {e.Error()}}
	case *NotFoundError:
		return map[string][]string{e.Kind: {e.Error()}}
	case *TimeoutError:
		return map[string][]string{"timeout": {e.Error()}}
	case *RuntimeError:
		return map[string][]string{e.PluginName: {e.Error()}}
	default:
		return map[string][]string{"error": {err.Error()}}
	}
}
