package avro

import (
	"errors"
	"fmt"

	"github.com/reoring/avrogen/internal/jsontree"
)

var schemaReserved = map[string]bool{
	"type": true, "name": true, "namespace": true, "doc": true, "aliases": true,
	"fields": true, "symbols": true, "default": true, "size": true, "items": true, "values": true,
}

var fieldReserved = map[string]bool{
	"name": true, "type": true, "doc": true, "default": true, "order": true, "aliases": true,
}

// ParseSchema parses one schema document. Named types it defines are
// recorded in names.
func ParseSchema(data []byte, names *Names) (*Schema, error) {
	v, err := jsontree.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("avro: invalid JSON: %w", err)
	}
	return ParseValue(v, names, "")
}

// ParseValue parses an already decoded JSON value in the given default
// namespace.
func ParseValue(v any, names *Names, space string) (*Schema, error) {
	switch t := v.(type) {
	case string:
		if p, ok := PrimitiveType(t); ok {
			return Primitive(p), nil
		}
		if s, ok := names.Lookup(t, space); ok {
			return s, nil
		}
		ns, simple := SplitName(t, space)
		if ns != "" {
			simple = ns + "." + simple
		}
		return nil, &UndefinedNameError{Name: simple}
	case []any:
		branches := make([]*Schema, 0, len(t))
		for _, b := range t {
			s, err := ParseValue(b, names, space)
			if err != nil {
				return nil, err
			}
			branches = append(branches, s)
		}
		return NewUnion(branches)
	case *jsontree.Object:
		return parseObject(t, names, space)
	default:
		return nil, fmt.Errorf("avro: schema must be a string, array or object, got %s", describe(v))
	}
}

func parseObject(o *jsontree.Object, names *Names, space string) (*Schema, error) {
	tv, ok := o.Get("type")
	if !ok {
		return nil, errors.New("avro: no type")
	}
	typ, ok := tv.(string)
	if !ok {
		// {"type": {...}} and {"type": [...]} wrap another schema
		return ParseValue(tv, names, space)
	}
	if p, ok := PrimitiveType(typ); ok {
		s := Primitive(p)
		s.Props = extraProps(o, schemaReserved)
		return s, nil
	}
	switch Type(typ) {
	case Record, Error, Enum, Fixed:
		return parseNamed(o, Type(typ), names, space)
	case Array:
		iv, ok := o.Get("items")
		if !ok {
			return nil, errors.New("avro: array has no items type")
		}
		items, err := ParseValue(iv, names, space)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: Array, Items: items, Props: extraProps(o, schemaReserved)}, nil
	case Map:
		vv, ok := o.Get("values")
		if !ok {
			return nil, errors.New("avro: map has no values type")
		}
		values, err := ParseValue(vv, names, space)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: Map, Values: values, Props: extraProps(o, schemaReserved)}, nil
	default:
		return ParseValue(typ, names, space)
	}
}

func parseNamed(o *jsontree.Object, typ Type, names *Names, space string) (*Schema, error) {
	name, ok := o.String("name")
	if !ok {
		return nil, fmt.Errorf("avro: %s has no name", typ)
	}
	ns := space
	if v, ok := o.Get("namespace"); ok {
		s, isStr := v.(string)
		if !isStr && v != nil {
			return nil, fmt.Errorf("avro: namespace of %s must be a string", name)
		}
		ns = s
	}
	ns, simple := SplitName(name, ns)
	if err := validFullName(ns, simple); err != nil {
		return nil, err
	}
	s := &Schema{Type: typ, Name: simple, Namespace: ns}
	s.Doc, _ = o.String("doc")
	aliases, err := stringList(o, "aliases")
	if err != nil {
		return nil, err
	}
	s.Aliases = aliases
	s.Props = extraProps(o, schemaReserved)
	// define before descending so recursive references resolve
	if err := names.Define(s); err != nil {
		return nil, err
	}
	switch typ {
	case Record, Error:
		fv, ok := o.Get("fields")
		if !ok {
			return nil, fmt.Errorf("avro: record %s has no fields", s.FullName())
		}
		list, ok := fv.([]any)
		if !ok {
			return nil, fmt.Errorf("avro: fields of %s must be an array", s.FullName())
		}
		seen := map[string]bool{}
		for _, raw := range list {
			fo, ok := raw.(*jsontree.Object)
			if !ok {
				return nil, fmt.Errorf("avro: field of %s must be an object", s.FullName())
			}
			f, err := ParseField(fo, names, s.Namespace)
			if err != nil {
				return nil, fmt.Errorf("%w (in %s)", err, s.FullName())
			}
			if seen[f.Name] {
				return nil, fmt.Errorf("avro: duplicate field %s in %s", f.Name, s.FullName())
			}
			seen[f.Name] = true
			s.Fields = append(s.Fields, f)
		}
	case Enum:
		symbols, err := stringList(o, "symbols")
		if err != nil {
			return nil, err
		}
		if symbols == nil {
			return nil, fmt.Errorf("avro: enum %s has no symbols", s.FullName())
		}
		if err := checkSymbols(s.FullName(), symbols); err != nil {
			return nil, err
		}
		s.Symbols = symbols
		if dv, ok := o.Get("default"); ok {
			d, isStr := dv.(string)
			if !isStr || !contains(symbols, d) {
				return nil, fmt.Errorf("avro: default of enum %s must be one of its symbols", s.FullName())
			}
			s.EnumDefault = d
		}
	case Fixed:
		sv, ok := o.Get("size")
		n, isNum := sv.(jsontree.Number)
		if !ok || !isNum {
			return nil, fmt.Errorf("avro: fixed %s has no size", s.FullName())
		}
		size, err := n.Int64()
		if err != nil || size < 0 {
			return nil, fmt.Errorf("avro: invalid size %s for fixed %s", n, s.FullName())
		}
		s.Size = int(size)
	}
	return s, nil
}

// ParseField parses a record field or message parameter object.
func ParseField(o *jsontree.Object, names *Names, space string) (*Field, error) {
	name, ok := o.String("name")
	if !ok {
		return nil, errors.New("avro: field has no name")
	}
	if !ValidName(name) {
		return nil, fmt.Errorf("avro: illegal field name %q", name)
	}
	tv, ok := o.Get("type")
	if !ok {
		return nil, fmt.Errorf("avro: field %s has no type", name)
	}
	typ, err := ParseValue(tv, names, space)
	if err != nil {
		return nil, err
	}
	f := &Field{Name: name, Type: typ, Order: Ascending}
	f.Doc, _ = o.String("doc")
	if dv, ok := o.Get("default"); ok {
		f.Default, f.HasDefault = dv, true
	}
	if ov, ok := o.Get("order"); ok {
		ord, _ := ov.(string)
		switch Order(ord) {
		case Ascending, Descending, Ignore:
			f.Order = Order(ord)
		default:
			return nil, fmt.Errorf("avro: invalid order %v for field %s", ov, name)
		}
	}
	if f.Aliases, err = stringList(o, "aliases"); err != nil {
		return nil, err
	}
	f.Props = extraProps(o, fieldReserved)
	return f, nil
}

// NewUnion builds a union and enforces the branch rules: no directly nested
// unions and no two branches of the same type or name.
func NewUnion(branches []*Schema) (*Schema, error) {
	seen := map[string]bool{}
	for _, b := range branches {
		if b.Type == Union {
			return nil, errors.New("avro: nested union")
		}
		key := b.FullName()
		if seen[key] {
			return nil, fmt.Errorf("avro: duplicate in union: %s", key)
		}
		seen[key] = true
	}
	return &Schema{Type: Union, Branches: branches}, nil
}

func checkSymbols(owner string, symbols []string) error {
	seen := map[string]bool{}
	for _, sym := range symbols {
		if !ValidName(sym) {
			return fmt.Errorf("avro: illegal enum symbol %q in %s", sym, owner)
		}
		if seen[sym] {
			return fmt.Errorf("avro: duplicate enum symbol %s in %s", sym, owner)
		}
		seen[sym] = true
	}
	return nil
}

func extraProps(o *jsontree.Object, reserved map[string]bool) *jsontree.Object {
	var props *jsontree.Object
	for _, k := range o.Keys() {
		if reserved[k] {
			continue
		}
		if props == nil {
			props = jsontree.NewObject()
		}
		v, _ := o.Get(k)
		props.Set(k, v)
	}
	return props
}

func stringList(o *jsontree.Object, key string) ([]string, error) {
	v, ok := o.Get(key)
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("avro: %s must be an array of strings", key)
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("avro: %s must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case jsontree.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
