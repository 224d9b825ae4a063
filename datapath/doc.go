// Package datapath resolves absolute property paths such as
//
//	data.objects["Cube"].location[2]
//
// into an owner object, an attribute name and an optional element index.
//
// Paths are parsed against a fixed grammar and walked one step at a time
// through the host.Graph; nothing is ever evaluated as code:
//
//	path  = owner "." ident [ "[" digits "]" ]
//	owner = ident { "." ident | "[" digits "]" | "[" quoted "]" }
//
// quoted is a single or double quoted string where a backslash escapes the
// next character.
package datapath
