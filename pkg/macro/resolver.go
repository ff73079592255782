package macro

import (
	"context"
	"strings"

	"github.com/g4-api/g4-plugins-go/pkg/manifest"
	"github.com/g4-api/g4-plugins-go/pkg/registry"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// Defaults for the resolver bounds. The grammar is self-embedding, so both
// nesting depth and the total number of substitutions per resolution pass
// are capped.
const (
	DefaultMaxDepth         = 8
	DefaultMaxSubstitutions = 64
)

// parameterRef is the reserved plugin reference that reads the ambient
// parameter store instead of invoking a plugin.
const parameterRef = "parameter"

// ParamStore is the ambient parameter store backing the {{$Parameter:Name}}
// shorthand. Session-scoped values shadow application-scoped ones.
type ParamStore interface {
	Get(sessionID, name string) (string, bool)
}

// Resolver resolves macro tokens against a plugin registry. It is stateless
// across calls and safe for concurrent use.
type Resolver struct {
	reg              *registry.Registry
	params           ParamStore
	maxDepth         int
	maxSubstitutions int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxDepth overrides the nesting depth bound.
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithMaxSubstitutions overrides the per-resolution substitution cap.
func WithMaxSubstitutions(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSubstitutions = n
		}
	}
}

// New creates a Resolver over the given registry and ambient parameter
// store. The store may be nil, in which case every {{$Parameter:...}} token
// fails as not found.
func New(reg *registry.Registry, params ParamStore, opts ...Option) *Resolver {
	r := &Resolver{
		reg:              reg,
		params:           params,
		maxDepth:         DefaultMaxDepth,
		maxSubstitutions: DefaultMaxSubstitutions,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve replaces every macro token in input with its substitution value
// and returns the fully resolved string. Sibling tokens resolve in
// left-to-right textual order; nested tokens are always fully resolved
// before the token containing them. The first error aborts the whole pass.
func (r *Resolver) Resolve(ctx context.Context, sessionID, input string) (string, error) {
	if !HasToken(input) {
		return input, nil
	}
	pass := &resolution{resolver: r, sessionID: sessionID}
	return pass.resolve(ctx, input, 0)
}

// resolution tracks per-pass state: the substitution budget shared across
// all nesting levels of one Resolve call.
type resolution struct {
	resolver      *Resolver
	sessionID     string
	substitutions int
}

func (p *resolution) resolve(ctx context.Context, s string, depth int) (string, error) {
	if depth > p.resolver.maxDepth {
		return "", &types.MacroSyntaxError{Position: -1, Message: "macro nesting exceeds maximum depth"}
	}

	var out strings.Builder
	i := 0
	for {
		start := strings.Index(s[i:], tokenOpen)
		if start < 0 {
			out.WriteString(s[i:])
			return out.String(), nil
		}
		start += i
		out.WriteString(s[i:start])

		end, err := scanToken(s, start)
		if err != nil {
			return "", err
		}
		inner := s[start+len(tokenOpen) : end-2]
		tok, err := parseToken(inner, start)
		if err != nil {
			return "", err
		}
		replacement, err := p.eval(ctx, tok, depth)
		if err != nil {
			return "", err
		}
		out.WriteString(replacement)
		i = end
	}
}

// eval resolves one token: nested argument values first (depth-first), then
// either the ambient parameter store or the referenced Macro plugin.
func (p *resolution) eval(ctx context.Context, tok *Token, depth int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.substitutions++
	if p.substitutions > p.resolver.maxSubstitutions {
		return "", &types.MacroSyntaxError{Position: -1, Message: "macro substitution budget exceeded"}
	}

	resolved := make([]Argument, len(tok.Arguments))
	for i, arg := range tok.Arguments {
		value := arg.Raw
		if strings.Contains(value, tokenOpen) {
			inner, err := p.resolve(ctx, value, depth+1)
			if err != nil {
				return "", err
			}
			value = inner
		}
		resolved[i] = Argument{Name: arg.Name, Raw: value}
	}

	if name, ok := parameterName(tok.PluginRef, resolved); ok {
		return p.ambient(name)
	}

	result, err := p.invoke(tok.PluginRef, resolved)
	if err != nil {
		return "", err
	}
	// A macro may expand to further tokens; re-scan the result against the
	// same substitution budget.
	if strings.Contains(result, tokenOpen) {
		return p.resolve(ctx, result, depth+1)
	}
	return result, nil
}

// parameterName recognizes the reserved parameter shorthand in both its
// forms: {{$Parameter:Name}} and {{$Parameter --Name:X}}.
func parameterName(ref string, args []Argument) (string, bool) {
	lower := strings.ToLower(ref)
	if rest, ok := strings.CutPrefix(lower, parameterRef+":"); ok {
		return ref[len(ref)-len(rest):], true
	}
	if lower == parameterRef {
		for _, arg := range args {
			if strings.EqualFold(arg.Name, "Name") {
				return arg.Raw, true
			}
		}
		return "", true
	}
	return "", false
}

func (p *resolution) ambient(name string) (string, error) {
	if name == "" {
		return "", &types.MacroSyntaxError{Position: -1, Message: "parameter reference without a name"}
	}
	if p.resolver.params == nil {
		return "", &types.NotFoundError{Kind: "parameter", Name: name}
	}
	value, ok := p.resolver.params.Get(p.sessionID, name)
	if !ok {
		return "", &types.NotFoundError{Kind: "parameter", Name: name}
	}
	return value, nil
}

// invoke coerces the token's arguments against the plugin's manifest and
// calls the Macro implementation. Action-type plugins are unreachable from
// macro text.
func (p *resolution) invoke(ref string, args []Argument) (string, error) {
	man, err := p.resolver.reg.Lookup(ref)
	if err != nil {
		return "", err
	}
	if man.PluginType != manifest.TypeMacro {
		return "", &types.MacroSyntaxError{Position: -1, Message: "plugin " + man.Key + " is not a macro"}
	}

	arguments := make(map[string]any, len(args))
	for _, arg := range args {
		param, declared := man.Parameter(arg.Name)
		if !declared {
			// undeclared extras pass through as strings
			arguments[arg.Name] = arg.Raw
			continue
		}
		value, err := coerceValue(arg.Raw, param)
		if err != nil {
			return "", err
		}
		arguments[param.Name] = value
	}
	for _, param := range man.Parameters {
		if param.Mandatory {
			if _, ok := arguments[param.Name]; !ok {
				return "", &types.ValidationError{Field: param.Name, Message: "mandatory parameter is missing"}
			}
		}
	}

	impl, err := p.resolver.reg.Macro(man.Key)
	if err != nil {
		return "", err
	}
	return impl.Invoke(arguments)
}
