// Package avro is the in-process Avro schema model: named and unnamed
// schemas, protocols, name resolution and a deterministic JSON form.
// It is internal; callers outside the module see it only through the
// adapter package.
package avro

import (
	"fmt"
	"strings"

	"github.com/reoring/avrogen/internal/jsontree"
)

// Type identifies the kind of a schema.
type Type string

const (
	Null    Type = "null"
	Boolean Type = "boolean"
	Int     Type = "int"
	Long    Type = "long"
	Float   Type = "float"
	Double  Type = "double"
	Bytes   Type = "bytes"
	String  Type = "string"
	Record  Type = "record"
	Error   Type = "error"
	Enum    Type = "enum"
	Fixed   Type = "fixed"
	Array   Type = "array"
	Map     Type = "map"
	Union   Type = "union"
)

var primitives = map[string]Type{
	"null": Null, "boolean": Boolean, "int": Int, "long": Long,
	"float": Float, "double": Double, "bytes": Bytes, "string": String,
}

// PrimitiveType reports whether name is a primitive type name.
func PrimitiveType(name string) (Type, bool) {
	t, ok := primitives[name]
	return t, ok
}

// Order is the sort order of a record field.
type Order string

const (
	Ascending  Order = "ascending"
	Descending Order = "descending"
	Ignore     Order = "ignore"
)

// Schema is one node of a schema graph. Named schemas (record, error, enum,
// fixed) are shared by pointer wherever they are referenced.
type Schema struct {
	Type      Type
	Name      string
	Namespace string
	Doc       string
	Aliases   []string

	Fields      []*Field  // record, error
	Symbols     []string  // enum
	EnumDefault string    // enum, empty when absent
	Size        int       // fixed
	Items       *Schema   // array
	Values      *Schema   // map
	Branches    []*Schema // union

	Props *jsontree.Object // custom properties, nil when none
}

// Field is a record field or a message parameter.
type Field struct {
	Name       string
	Type       *Schema
	Doc        string
	Default    any
	HasDefault bool
	Order      Order
	Aliases    []string
	Props      *jsontree.Object
}

// Primitive returns an unnamed primitive schema.
func Primitive(t Type) *Schema { return &Schema{Type: t} }

// IsNamed reports whether the schema carries a name.
func (s *Schema) IsNamed() bool {
	switch s.Type {
	case Record, Error, Enum, Fixed:
		return true
	}
	return false
}

// FullName returns the namespace-qualified name of a named schema, or the
// type name otherwise.
func (s *Schema) FullName() string {
	if !s.IsNamed() {
		return string(s.Type)
	}
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "." + s.Name
}

// Prop returns a custom property.
func (s *Schema) Prop(key string) (any, bool) { return s.Props.Get(key) }

// LogicalType returns the logicalType property, if any.
func (s *Schema) LogicalType() string {
	if s.Props == nil {
		return ""
	}
	lt, _ := s.Props.String("logicalType")
	return lt
}

// SetProp sets a custom property, allocating the property bag on demand.
func (s *Schema) SetProp(key string, v any) {
	if s.Props == nil {
		s.Props = jsontree.NewObject()
	}
	s.Props.Set(key, v)
}

// SetProp sets a custom property on a field.
func (f *Field) SetProp(key string, v any) {
	if f.Props == nil {
		f.Props = jsontree.NewObject()
	}
	f.Props.Set(key, v)
}

// String returns the compact JSON form.
func (s *Schema) String() string {
	b, err := s.JSON(false)
	if err != nil {
		return fmt.Sprintf("<invalid schema %s: %v>", s.FullName(), err)
	}
	return string(b)
}

// SplitName splits name into namespace and simple name. A dotted name
// carries its own namespace; otherwise space applies.
func SplitName(name, space string) (ns, simple string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return space, name
}

// ValidName reports whether s is a legal Avro identifier.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func validFullName(ns, name string) error {
	if !ValidName(name) {
		return fmt.Errorf("avro: illegal name %q", name)
	}
	if ns == "" {
		return nil
	}
	for _, part := range strings.Split(ns, ".") {
		if !ValidName(part) {
			return fmt.Errorf("avro: illegal namespace %q", ns)
		}
	}
	return nil
}
