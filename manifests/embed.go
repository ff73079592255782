// Package manifests embeds the built-in plugin manifest documents so the
// service carries its descriptors without an external manifest directory.
package manifests

import "embed"

//go:embed *.json
var FS embed.FS
