// Package gen renders Go bindings for Avro named types. This package is
// internal and not part of the public API.
package gen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/linkedin/goavro/v2"

	"github.com/reoring/avrogen/internal/avro"
	"github.com/reoring/avrogen/internal/ir"
	"github.com/reoring/avrogen/internal/jsontree"
)

// File is the input of RenderFile.
type File struct {
	Package string
	Source  string // recorded in the header comment, optional
	Decls   []ir.Decl
}

// Build converts registered types into a File. Natives must be
// *avro.Schema values; they are declared in the given order.
func Build(pkg string, natives []any) (File, error) {
	schemas := make([]*avro.Schema, 0, len(natives))
	for _, n := range natives {
		s, ok := n.(*avro.Schema)
		if !ok || !s.IsNamed() {
			return File{}, fmt.Errorf("gen: unsupported native type %T", n)
		}
		schemas = append(schemas, s)
	}
	c := &converter{names: assignNames(schemas)}
	f := File{Package: PackageName(pkg)}
	for _, s := range schemas {
		canon, err := CanonicalSchema(s)
		if err != nil {
			return File{}, err
		}
		f.Decls = append(f.Decls, ir.Decl{Node: c.decl(s), Schema: canon})
	}
	return f, nil
}

// CanonicalSchema returns the Avro parsing canonical form of s, as computed
// by goavro from the self-contained schema. It fails when goavro rejects
// the schema.
func CanonicalSchema(s *avro.Schema) (string, error) {
	tree := s.Tree()
	recordErrors(tree)
	b, err := jsontree.Marshal(tree, false)
	if err != nil {
		return "", err
	}
	codec, err := goavro.NewCodec(string(b))
	if err != nil {
		return "", fmt.Errorf("gen: %s: %w", s.FullName(), err)
	}
	return codec.CanonicalSchema(), nil
}

// recordErrors rewrites error declarations as records; error is only legal
// inside protocols.
func recordErrors(v any) {
	switch t := v.(type) {
	case *jsontree.Object:
		if typ, _ := t.String("type"); typ == string(avro.Error) {
			if _, ok := t.Get("fields"); ok {
				t.Set("type", string(avro.Record))
			}
		}
		for _, k := range t.Keys() {
			child, _ := t.Get(k)
			recordErrors(child)
		}
	case []any:
		for _, e := range t {
			recordErrors(e)
		}
	}
}

type converter struct {
	names map[string]string
}

func (c *converter) name(s *avro.Schema) ir.Name {
	full := s.FullName()
	goName, ok := c.names[full]
	if !ok {
		goName = exported(s.Name)
	}
	return ir.Name{Full: full, GoName: goName}
}

func (c *converter) decl(s *avro.Schema) ir.Schema {
	switch s.Type {
	case avro.Enum:
		return &ir.Enum{Name: c.name(s), Doc: s.Doc, Symbols: s.Symbols, Default: s.EnumDefault}
	case avro.Fixed:
		return &ir.Fixed{Name: c.name(s), Doc: s.Doc, Size: s.Size}
	}
	obj := &ir.Object{Name: c.name(s), Doc: s.Doc, IsError: s.Type == avro.Error}
	for _, f := range s.Fields {
		obj.Fields = append(obj.Fields, ir.Field{
			Name:       f.Name,
			Schema:     c.node(f.Type),
			Doc:        f.Doc,
			Aliases:    f.Aliases,
			Default:    f.Default,
			HasDefault: f.HasDefault,
		})
	}
	return obj
}

func (c *converter) node(s *avro.Schema) ir.Schema {
	switch s.Type {
	case avro.Record, avro.Error, avro.Enum, avro.Fixed:
		return &ir.Ref{Name: c.name(s)}
	case avro.Array:
		return &ir.Array{Item: c.node(s.Items)}
	case avro.Map:
		return &ir.Map{Value: c.node(s.Values)}
	case avro.Union:
		if len(s.Branches) == 2 {
			for i, b := range s.Branches {
				if b.Type == avro.Null {
					return &ir.OneOf{Variants: []ir.Schema{c.node(s.Branches[1-i])}, Optional: true}
				}
			}
		}
		u := &ir.OneOf{}
		for _, b := range s.Branches {
			u.Variants = append(u.Variants, c.node(b))
		}
		return u
	default:
		return &ir.Primitive{Name: string(s.Type), Logical: s.LogicalType()}
	}
}

// assignNames gives every type a Go identifier. Simple names are used when
// unique; colliding names are prefixed with their namespace.
func assignNames(schemas []*avro.Schema) map[string]string {
	count := map[string]int{}
	for _, s := range schemas {
		count[exported(s.Name)]++
	}
	out := make(map[string]string, len(schemas))
	for _, s := range schemas {
		name := exported(s.Name)
		if count[name] > 1 {
			var b strings.Builder
			for _, part := range strings.Split(s.Namespace, ".") {
				b.WriteString(exported(part))
			}
			name = b.String() + name
		}
		out[s.FullName()] = name
	}
	return out
}

func exported(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	if r[0] == '_' {
		return "X" + string(r)
	}
	return string(r)
}

// PackageName reduces s to a valid Go package name.
func PackageName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "avro" + name
	}
	return name
}
