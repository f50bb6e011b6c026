// Package adapter binds the pipeline to the in-process Avro model. Every
// model-specific call made by the pipeline goes through this package.
package adapter

import (
	"errors"
	"sync"

	"github.com/reoring/avrogen/internal/avro"
	"github.com/reoring/avrogen/internal/idl"
)

// Type wraps a named Avro schema.
type Type struct {
	schema *avro.Schema

	once  sync.Once
	canon string
}

// Wrap returns the adapter view of s.
func Wrap(s *avro.Schema) *Type { return &Type{schema: s} }

// FullName returns the namespace-qualified name.
func (t *Type) FullName() string { return t.schema.FullName() }

// CanonicalJSON returns the pretty JSON form of the type with every
// referenced named type written in full on first use. It is computed once.
func (t *Type) CanonicalJSON() string {
	t.once.Do(func() {
		// the model only produces trees the encoder accepts
		t.canon = string(mustJSON(t.schema.JSON(true)))
	})
	return t.canon
}

// Unwrap returns the underlying *avro.Schema.
func (t *Type) Unwrap() any { return t.schema }

// Schema returns the underlying schema with its concrete type.
func (t *Type) Schema() *avro.Schema { return t.schema }

func mustJSON(b []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return b
}

// NativeLookup resolves a full name to an unwrapped native type.
type NativeLookup func(fullName string) (any, bool)

// Lookup turns a registry lookup into the model's known-name lookup.
// Natives that are not *avro.Schema are reported as missing.
func Lookup(lookup NativeLookup) avro.KnownFunc {
	if lookup == nil {
		return nil
	}
	return func(full string) (*avro.Schema, bool) {
		v, ok := lookup(full)
		if !ok {
			return nil, false
		}
		s, ok := v.(*avro.Schema)
		return s, ok
	}
}

// ParseSchemaDocument parses one schema document and returns the named types
// it defines, in definition order.
func ParseSchemaDocument(content []byte, known NativeLookup) ([]*Type, error) {
	names := avro.NewNames(Lookup(known))
	if _, err := avro.ParseSchema(content, names); err != nil {
		return nil, err
	}
	return wrapAll(names.Defined()), nil
}

// ParseProtocolDocument parses one protocol document and returns the named
// types it defines, in definition order.
func ParseProtocolDocument(content []byte, known NativeLookup) ([]*Type, error) {
	names := avro.NewNames(Lookup(known))
	p, err := avro.ParseProtocol(content, names)
	if err != nil {
		return nil, err
	}
	return wrapAll(p.Types), nil
}

// CompileIDL compiles an IDL document and returns the pretty JSON of the
// resulting protocol.
func CompileIDL(path string, content []byte, imp idl.Importer) ([]byte, error) {
	p, err := idl.Compile(path, content, imp)
	if err != nil {
		return nil, err
	}
	return p.JSON(true)
}

// IsUndefinedName reports whether err was caused by a reference to a type
// that is not defined yet.
func IsUndefinedName(err error) bool {
	var u *avro.UndefinedNameError
	return errors.As(err, &u)
}

// SelfContained returns compact JSON for t that a standalone Avro library
// can parse without any other context.
func SelfContained(t *Type) ([]byte, error) { return t.schema.JSON(false) }

func wrapAll(schemas []*avro.Schema) []*Type {
	out := make([]*Type, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, Wrap(s))
	}
	return out
}
