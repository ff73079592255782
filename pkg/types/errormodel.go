package types

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RouteData records the HTTP method and path an error was produced on.
type RouteData struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// ErrorModel is the error envelope rendered on every non-trivial HTTP
// failure. Field names match the engine wire shape.
type ErrorModel struct {
	Status    int                 `json:"status"`
	TraceID   string              `json:"traceId"`
	Errors    map[string][]string `json:"errors"`
	Request   any                 `json:"request"`
	RouteData RouteData           `json:"routeData"`
}

// NewErrorModel builds an error envelope with a fresh trace ID.
func NewErrorModel(status int, method, path string, err error) *ErrorModel {
	return &ErrorModel{
		Status:  status,
		TraceID: NewTraceID(),
		Errors:  ErrorFields(err),
		RouteData: RouteData{
			Method: method,
			Path:   path,
		},
	}
}

const traceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewTraceID generates a trace identifier of the form "PTNXXXXXXXXXX:00000001":
// the fixed "PTN" prefix, ten random uppercase alphanumerics, a colon, and an
// eight-digit zero-padded number.
func NewTraceID() string {
	chars := make([]byte, 10)
	for i := range chars {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(traceAlphabet))))
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(fmt.Sprintf("trace id: %v", err))
		}
		chars[i] = traceAlphabet[n.Int64()]
	}
	number, err := rand.Int(rand.Reader, big.NewInt(100000000))
	if err != nil {
		panic(fmt.Sprintf("trace id: %v", err))
	}
	return fmt.Sprintf("PTN%s:%08d", chars, number.Int64())
}
