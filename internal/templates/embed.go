// Package templates embeds the builtin page definitions and demo rows
// shipped with the binary.
package templates

import (
	"embed"
	"io/fs"
)

// builtinDefs embeds one YAML file per element type:
//   - builtins/<type>.yaml mapping instance names to records
//
//go:embed builtins
var builtinDefs embed.FS

// BuiltinFS returns the embedded filesystem rooted above builtins/.
func BuiltinFS() fs.FS {
	return builtinDefs
}

//go:embed rows/demo.yaml
var demoRows []byte

// DemoRows returns the YAML row fixture served when no rows file is set.
func DemoRows() []byte {
	return demoRows
}
