package macros

import (
	"github.com/google/uuid"
)

// NewGuid substitutes a freshly generated UUID. It takes no parameters.
// This is the one built-in macro that is intentionally non-deterministic;
// each token occurrence yields a distinct value.
type NewGuid struct{}

// Invoke implements registry.Macro.
func (NewGuid) Invoke(map[string]any) (string, error) {
	return uuid.NewString(), nil
}
