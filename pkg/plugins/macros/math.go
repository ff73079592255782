package macros

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// Math evaluates its Expression argument as an arithmetic expression and
// substitutes the result, so that {{$Math --Expression:'50+50'}} yields
// "100". Expressions use HCL expression syntax and evaluate against an
// empty scope: operators and literals only, no variables or functions.
type Math struct{}

// Invoke implements registry.Macro.
func (Math) Invoke(arguments map[string]any) (string, error) {
	source, err := stringArg(arguments, "Expression")
	if err != nil {
		return "", err
	}

	expr, diags := hclsyntax.ParseExpression([]byte(source), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return "", &types.ValidationError{Field: "Expression", Message: diags.Error()}
	}
	value, diags := expr.Value(&hcl.EvalContext{})
	if diags.HasErrors() {
		return "", &types.ValidationError{Field: "Expression", Message: diags.Error()}
	}
	if value.Type() != cty.Number {
		return "", &types.ValidationError{Field: "Expression", Message: "expression is not numeric"}
	}

	// Render integral results without a fractional part.
	text, err := convert.Convert(value, cty.String)
	if err != nil {
		return "", &types.ValidationError{Field: "Expression", Message: err.Error()}
	}
	return text.AsString(), nil
}
