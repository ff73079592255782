// Package roman converts integers to Roman numerals and back over the
// bounded domain [1, 3999].
package roman

import (
	"strings"

	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// Min and Max bound the convertible domain. Values outside it are rejected,
// never clamped.
const (
	Min = 1
	Max = 3999
)

// Descending table of values and symbols, covering standard and subtractive
// forms. Greedy subtraction over this table is optimal and unique for the
// bounded domain.
var table = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"},
	{1, "I"},
}

// Of converts n to its Roman numeral representation. It fails with a
// ValidationError when n is outside [Min, Max].
func Of(n int) (string, error) {
	if n < Min || n > Max {
		return "", &types.ValidationError{Field: "Number", Message: "Number out of range"}
	}
	var b strings.Builder
	for _, row := range table {
		for n >= row.value {
			b.WriteString(row.symbol)
			n -= row.value
		}
	}
	return b.String(), nil
}

// Parse inverts Of for canonical numerals. Non-canonical forms (such as
// "IIII" or "VX") and empty input fail with a ValidationError.
func Parse(numeral string) (int, error) {
	if numeral == "" {
		return 0, &types.ValidationError{Field: "Numeral", Message: "numeral is empty"}
	}
	n := 0
	rest := numeral
	for _, row := range table {
		for strings.HasPrefix(rest, row.symbol) {
			n += row.value
			rest = rest[len(row.symbol):]
			if n > Max {
				return 0, &types.ValidationError{Field: "Numeral", Message: "numeral out of range"}
			}
		}
	}
	if rest != "" {
		return 0, &types.ValidationError{Field: "Numeral", Message: "invalid numeral " + numeral}
	}
	// Greedy parsing accepts some non-canonical spellings; round-tripping
	// through Of rejects them.
	canonical, err := Of(n)
	if err != nil || canonical != numeral {
		return 0, &types.ValidationError{Field: "Numeral", Message: "non-canonical numeral " + numeral}
	}
	return n, nil
}
