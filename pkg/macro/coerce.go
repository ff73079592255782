package macro

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/g4-api/g4-plugins-go/pkg/manifest"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// coerceValue converts a resolved textual argument into the Go value implied
// by the parameter's declared type. String and Any pass through; the numeric
// and boolean types go through cty conversion so that the accepted spellings
// match the engine's ("1", "1.5", "true", ...). Failure names the parameter.
func coerceValue(raw string, param manifest.Parameter) (any, error) {
	switch param.Type {
	case manifest.ParamString, manifest.ParamAny, "":
		return raw, nil

	case manifest.ParamInteger:
		num, err := convert.Convert(cty.StringVal(raw), cty.Number)
		if err != nil {
			return nil, coercionError(param, raw)
		}
		var n int64
		// FromCtyValue rejects fractional numbers for integer targets.
		if err := gocty.FromCtyValue(num, &n); err != nil {
			return nil, coercionError(param, raw)
		}
		return n, nil

	case manifest.ParamNumber:
		num, err := convert.Convert(cty.StringVal(raw), cty.Number)
		if err != nil {
			return nil, coercionError(param, raw)
		}
		var f float64
		if err := gocty.FromCtyValue(num, &f); err != nil {
			return nil, coercionError(param, raw)
		}
		return f, nil

	case manifest.ParamBoolean:
		b, err := convert.Convert(cty.StringVal(raw), cty.Bool)
		if err != nil {
			return nil, coercionError(param, raw)
		}
		return b.True(), nil

	default:
		return nil, coercionError(param, raw)
	}
}

func coercionError(param manifest.Parameter, raw string) error {
	return &types.TypeCoercionError{
		Parameter: param.Name,
		Value:     raw,
		WantType:  string(param.Type),
	}
}
