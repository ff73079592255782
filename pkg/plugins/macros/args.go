// Package macros contains the built-in Macro plugins: pure functions
// invoked during macro resolution to produce substitution strings.
package macros

import (
	"fmt"

	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// intArg reads an Integer-typed argument as coerced by the resolver.
func intArg(arguments map[string]any, name string) (int64, error) {
	value, ok := arguments[name]
	if !ok {
		return 0, &types.ValidationError{Field: name, Message: "mandatory parameter is missing"}
	}
	n, ok := value.(int64)
	if !ok {
		return 0, &types.TypeCoercionError{Parameter: name, Value: fmt.Sprintf("%v", value), WantType: "Integer"}
	}
	return n, nil
}

// stringArg reads a String-typed argument.
func stringArg(arguments map[string]any, name string) (string, error) {
	value, ok := arguments[name]
	if !ok {
		return "", &types.ValidationError{Field: name, Message: "mandatory parameter is missing"}
	}
	s, ok := value.(string)
	if !ok {
		return "", &types.TypeCoercionError{Parameter: name, Value: fmt.Sprintf("%v", value), WantType: "String"}
	}
	return s, nil
}
