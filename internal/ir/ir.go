package ir

// Package ir defines the intermediate representation used by the code
// generator. This package is internal and not part of the public API.

// NodeKind identifies an IR node type.
type NodeKind int

const (
	NodePrimitive NodeKind = iota
	NodeArray
	NodeMap
	NodeObject
	NodeOneOf
	NodeEnum
	NodeFixed
	NodeRef
)

// Schema is the root IR node interface.
type Schema interface {
	Kind() NodeKind
}

// Primitive represents an Avro primitive, optionally refined by a logical type.
type Primitive struct {
	Name    string // null|boolean|int|long|float|double|bytes|string
	Logical string // logicalType property, empty when absent
}

func (p *Primitive) Kind() NodeKind { return NodePrimitive }

// Array represents an array of items.
type Array struct {
	Item Schema
}

func (a *Array) Kind() NodeKind { return NodeArray }

// Map represents a map with string keys.
type Map struct {
	Value Schema
}

func (m *Map) Kind() NodeKind { return NodeMap }

// Object represents a record or error with ordered fields.
type Object struct {
	Name    Name
	Doc     string
	IsError bool
	Fields  []Field
}

func (o *Object) Kind() NodeKind { return NodeObject }

// Field maps an Avro field name to a Schema.
type Field struct {
	Name       string // Avro name
	Schema     Schema
	Doc        string
	Aliases    []string
	Default    any // materialized default (wire shape)
	HasDefault bool
}

// OneOf represents a union. Optional reports the two-branch form with null,
// in which case Variants holds only the non-null branch.
type OneOf struct {
	Variants []Schema
	Optional bool
}

func (u *OneOf) Kind() NodeKind { return NodeOneOf }

// Enum represents an enumeration.
type Enum struct {
	Name    Name
	Doc     string
	Symbols []string
	Default string
}

func (e *Enum) Kind() NodeKind { return NodeEnum }

// Fixed represents a fixed-size byte sequence.
type Fixed struct {
	Name Name
	Doc  string
	Size int
}

func (f *Fixed) Kind() NodeKind { return NodeFixed }

// Ref points to a named declaration.
type Ref struct {
	Name Name
}

func (r *Ref) Kind() NodeKind { return NodeRef }

// Name is the identity of a named declaration.
type Name struct {
	Full   string // Avro full name
	GoName string // Go identifier assigned by the generator
}

// Decl is one top-level named declaration with its schema text.
type Decl struct {
	Node   Schema // *Object, *Enum or *Fixed
	Schema string // Avro parsing canonical form
}

// DeclName returns the name of a declaration node.
func DeclName(n Schema) Name {
	switch t := n.(type) {
	case *Object:
		return t.Name
	case *Enum:
		return t.Name
	case *Fixed:
		return t.Name
	}
	return Name{}
}
