package macros

import (
	"github.com/g4-api/g4-plugins-go/pkg/roman"
)

// ConvertToRoman converts its Number argument to a Roman numeral. The
// number must fall in [1, 3999]; anything else is rejected, never clamped.
type ConvertToRoman struct{}

// Invoke implements registry.Macro.
func (ConvertToRoman) Invoke(arguments map[string]any) (string, error) {
	number, err := intArg(arguments, "Number")
	if err != nil {
		return "", err
	}
	return roman.Of(int(number))
}
