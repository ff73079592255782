// Package macro implements the macro token language embedded in automation
// argument strings: tokenizing {{$Name --Param:Value}} forms, recursively
// resolving nested tokens innermost-first, coercing argument values to the
// target plugin's declared parameter types, and invoking Macro plugins to
// produce substitution strings.
package macro

import (
	"strings"

	"github.com/g4-api/g4-plugins-go/pkg/types"
)

const tokenOpen = "{{$"

// HasToken reports whether s contains a macro token opening.
func HasToken(s string) bool {
	return strings.Contains(s, tokenOpen)
}

// Token is one parsed macro token. Argument raw values may themselves
// contain unresolved nested tokens; they are resolved depth-first before the
// token's plugin is invoked.
type Token struct {
	PluginRef string
	Arguments []Argument
}

// Argument is one named raw argument in textual order.
type Argument struct {
	Name string
	Raw  string
}

// scanToken locates the span of the token opening at s[start:], which must
// begin with "{{$". It returns the index one past the closing "}}",
// honouring nested token braces and quoted runs. Unbalanced braces fail with
// a MacroSyntaxError.
func scanToken(s string, start int) (end int, err error) {
	i := start + len(tokenOpen)
	depth := 1
	var quote byte
	for i < len(s) {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			i++
		case c == '\'' || c == '"':
			quote = c
			i++
		case strings.HasPrefix(s[i:], "{{"):
			depth++
			i += 2
		case strings.HasPrefix(s[i:], "}}"):
			depth--
			i += 2
			if depth == 0 {
				return i, nil
			}
		default:
			i++
		}
	}
	return 0, &types.MacroSyntaxError{Position: start, Message: "unbalanced macro token"}
}

// parseToken parses the inner text of one token (the content between "{{$"
// and the matching "}}") into its plugin reference and ordered raw
// arguments.
func parseToken(inner string, offset int) (*Token, error) {
	i := skipSpace(inner, 0)
	refStart := i
	for i < len(inner) && !isSpace(inner[i]) {
		i++
	}
	ref := inner[refStart:i]
	if ref == "" {
		return nil, &types.MacroSyntaxError{Position: offset, Message: "empty plugin reference"}
	}

	tok := &Token{PluginRef: ref}
	for {
		i = skipSpace(inner, i)
		if i >= len(inner) {
			return tok, nil
		}
		if !strings.HasPrefix(inner[i:], "--") {
			return nil, &types.MacroSyntaxError{Position: offset + i, Message: "expected --Param:Value, got " + inner[i:]}
		}
		i += 2
		nameStart := i
		for i < len(inner) && inner[i] != ':' {
			if isSpace(inner[i]) {
				return nil, &types.MacroSyntaxError{Position: offset + i, Message: "parameter name missing value separator"}
			}
			i++
		}
		if i >= len(inner) {
			return nil, &types.MacroSyntaxError{Position: offset + i, Message: "parameter name missing value separator"}
		}
		name := inner[nameStart:i]
		if name == "" {
			return nil, &types.MacroSyntaxError{Position: offset + i, Message: "empty parameter name"}
		}
		i++ // consume ':'

		value, next, err := parseValue(inner, i, offset)
		if err != nil {
			return nil, err
		}
		tok.Arguments = append(tok.Arguments, Argument{Name: name, Raw: value})
		i = next
	}
}

// parseValue reads one argument value starting at inner[i]: a quoted
// literal, a nested token, or a bare literal running to the next top-level
// " --" boundary or end of token.
func parseValue(inner string, i, offset int) (string, int, error) {
	if i < len(inner) && (inner[i] == '\'' || inner[i] == '"') {
		quote := inner[i]
		end := strings.IndexByte(inner[i+1:], quote)
		if end < 0 {
			return "", 0, &types.MacroSyntaxError{Position: offset + i, Message: "unterminated quoted value"}
		}
		return inner[i+1 : i+1+end], i + end + 2, nil
	}

	start := i
	depth := 0
	var quote byte
	for i < len(inner) {
		c := inner[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			i++
		case c == '\'' || c == '"':
			quote = c
			i++
		case strings.HasPrefix(inner[i:], "{{"):
			depth++
			i += 2
		case strings.HasPrefix(inner[i:], "}}"):
			if depth == 0 {
				// closing brace of an enclosing token that leaked into the
				// inner text; treat as end of value
				return strings.TrimRight(inner[start:i], " \t"), i, nil
			}
			depth--
			i += 2
		case depth == 0 && isSpace(c):
			// a top-level space ends the value only when the next
			// non-space run starts another parameter
			j := skipSpace(inner, i)
			if j >= len(inner) || strings.HasPrefix(inner[j:], "--") {
				return inner[start:i], i, nil
			}
			i = j
		default:
			i++
		}
	}
	if depth != 0 {
		return "", 0, &types.MacroSyntaxError{Position: offset + start, Message: "unbalanced macro token in value"}
	}
	return strings.TrimRight(inner[start:], " \t"), i, nil
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
