package macros

import (
	"github.com/g4-api/g4-plugins-go/pkg/registry"
)

// Register adds every built-in Macro plugin to the registration table. The
// manifests under manifests/ pair with these keys at Build time.
func Register(b *registry.Builder) {
	b.RegisterMacro("ConvertToRoman", ConvertToRoman{})
	b.RegisterMacro("Math", Math{})
	b.RegisterMacro("NewGuid", NewGuid{})
}
