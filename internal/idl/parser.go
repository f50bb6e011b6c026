// Package idl compiles Avro interface-definition documents into protocols.
package idl

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/reoring/avrogen/internal/avro"
	"github.com/reoring/avrogen/internal/jsontree"
)

// ImportKind is the kind of document named by an import statement.
type ImportKind string

const (
	ImportIDL      ImportKind = "idl"
	ImportProtocol ImportKind = "protocol"
	ImportSchema   ImportKind = "schema"
)

// Imported is a document returned by an Importer.
type Imported struct {
	Path    string // resolved location, used to import each document once
	Content []byte
}

// Importer loads the documents named by import statements.
type Importer interface {
	Import(kind ImportKind, ref, from string) (Imported, error)
}

// ImportError wraps a failure to load or compile an imported document.
type ImportError struct {
	Kind ImportKind
	Ref  string
	From string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: import %s %q: %v", e.From, e.Kind, e.Ref, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Compile parses one IDL document and returns the protocol it declares,
// including every type and message pulled in through imports.
func Compile(path string, src []byte, imp Importer) (*avro.Protocol, error) {
	c := &compilation{
		names:    avro.NewNames(nil),
		imp:      imp,
		imported: map[string]bool{filepath.Clean(path): true},
	}
	p, err := c.parseFile(path, src)
	if err != nil {
		return nil, err
	}
	p.Types = c.names.Defined()
	return p, nil
}

// compilation is the state shared by a document and everything it imports.
type compilation struct {
	names    *avro.Names
	imp      Importer
	imported map[string]bool
}

func (c *compilation) parseFile(path string, src []byte) (*avro.Protocol, error) {
	lx := newLexer(path, src)
	toks, err := lx.tokens()
	if err != nil {
		return nil, err
	}
	p := &parser{c: c, lx: lx, toks: toks}
	return p.protocol()
}

type parser struct {
	c    *compilation
	lx   *lexer
	toks []token
	pos  int

	proto *avro.Protocol
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, a ...any) error {
	return p.lx.errorf(t.line, t.col, format, a...)
}

func (p *parser) expect(punct string) (token, error) {
	t := p.next()
	if !t.is(punct) {
		return t, p.errorf(t, "expected %q, found %s", punct, t.describe())
	}
	return t, nil
}

func (p *parser) expectKeyword(kw string) (token, error) {
	t := p.next()
	if !t.isKeyword(kw) {
		return t, p.errorf(t, "expected %q, found %s", kw, t.describe())
	}
	return t, nil
}

func (p *parser) ident() (token, error) {
	t := p.next()
	if t.kind != tokIdent {
		return t, p.errorf(t, "expected identifier, found %s", t.describe())
	}
	return t, nil
}

func (p *parser) stringLit() (token, error) {
	t := p.next()
	if t.kind != tokString {
		return t, p.errorf(t, "expected string literal, found %s", t.describe())
	}
	return t, nil
}

// protocol := annotations "protocol" ident "{" body* "}" EOF
func (p *parser) protocol() (*avro.Protocol, error) {
	doc := p.peek().doc
	props, err := p.annotations()
	if err != nil {
		return nil, err
	}
	kw, err := p.expectKeyword("protocol")
	if err != nil {
		return nil, err
	}
	if doc == "" {
		doc = kw.doc
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if !avro.ValidName(name.text) {
		return nil, p.errorf(name, "illegal protocol name %q", name.text)
	}
	p.proto = &avro.Protocol{Name: name.text, Doc: doc}
	for _, k := range props.Keys() {
		v, _ := props.Get(k)
		if k == "namespace" {
			ns, ok := v.(string)
			if !ok {
				return nil, p.errorf(kw, "@namespace must be a string")
			}
			p.proto.Namespace = ns
			continue
		}
		if p.proto.Props == nil {
			p.proto.Props = jsontree.NewObject()
		}
		p.proto.Props.Set(k, v)
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	for !p.peek().is("}") {
		if p.peek().kind == tokEOF {
			return nil, p.errorf(p.peek(), "unexpected end of file in protocol %s", name.text)
		}
		if err := p.declaration(); err != nil {
			return nil, err
		}
	}
	p.next()
	if t := p.next(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s after protocol", t.describe())
	}
	return p.proto, nil
}

func (p *parser) declaration() error {
	if p.peek().isKeyword("import") {
		return p.importDecl()
	}
	doc := p.peek().doc
	start := p.peek()
	props, err := p.annotations()
	if err != nil {
		return err
	}
	if doc == "" {
		doc = p.peek().doc
	}
	t := p.peek()
	switch {
	case t.isKeyword("record"), t.isKeyword("error"):
		return p.record(doc, props)
	case t.isKeyword("enum"):
		return p.enum(doc, props)
	case t.isKeyword("fixed"):
		return p.fixed(doc, props)
	case t.kind == tokIdent:
		return p.message(doc, props)
	default:
		return p.errorf(start, "expected declaration, found %s", t.describe())
	}
}

// importDecl := "import" ("idl"|"protocol"|"schema") string ";"
func (p *parser) importDecl() error {
	p.next()
	kindTok, err := p.ident()
	if err != nil {
		return err
	}
	kind := ImportKind(kindTok.text)
	switch kind {
	case ImportIDL, ImportProtocol, ImportSchema:
	default:
		return p.errorf(kindTok, "unknown import kind %q", kindTok.text)
	}
	ref, err := p.stringLit()
	if err != nil {
		return err
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}
	if p.c.imp == nil {
		return &ImportError{Kind: kind, Ref: ref.text, From: p.lx.file, Err: errors.New("no import resolver configured")}
	}
	doc, err := p.c.imp.Import(kind, ref.text, p.lx.file)
	if err != nil {
		return &ImportError{Kind: kind, Ref: ref.text, From: p.lx.file, Err: err}
	}
	key := filepath.Clean(doc.Path)
	if p.c.imported[key] {
		return nil
	}
	p.c.imported[key] = true

	wrap := func(err error) error {
		return &ImportError{Kind: kind, Ref: ref.text, From: p.lx.file, Err: err}
	}
	switch kind {
	case ImportIDL:
		sub, err := p.c.parseFile(doc.Path, doc.Content)
		if err != nil {
			return wrap(err)
		}
		p.proto.Messages = append(p.proto.Messages, sub.Messages...)
	case ImportProtocol:
		sub, err := avro.ParseProtocol(doc.Content, p.c.names)
		if err != nil {
			return wrap(err)
		}
		p.proto.Messages = append(p.proto.Messages, sub.Messages...)
	case ImportSchema:
		if _, err := avro.ParseSchema(doc.Content, p.c.names); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// namedProps applies the annotations of a named type.
func (p *parser) namedProps(s *avro.Schema, props *jsontree.Object, at token) error {
	s.Namespace = p.proto.Namespace
	for _, k := range props.Keys() {
		v, _ := props.Get(k)
		switch k {
		case "namespace":
			ns, ok := v.(string)
			if !ok {
				return p.errorf(at, "@namespace must be a string")
			}
			s.Namespace = ns
		case "aliases":
			aliases, ok := stringArray(v)
			if !ok {
				return p.errorf(at, "@aliases must be an array of strings")
			}
			s.Aliases = aliases
		default:
			s.SetProp(k, v)
		}
	}
	return nil
}

func (p *parser) define(s *avro.Schema, at token) error {
	if !avro.ValidName(s.Name) {
		return p.errorf(at, "illegal name %q", s.Name)
	}
	if err := p.c.names.Define(s); err != nil {
		return p.errorf(at, "%v", err)
	}
	return nil
}

// record := ("record"|"error") ident "{" field* "}"
func (p *parser) record(doc string, props *jsontree.Object) error {
	kw := p.next()
	typ := avro.Record
	if kw.text == "error" {
		typ = avro.Error
	}
	name, err := p.ident()
	if err != nil {
		return err
	}
	s := &avro.Schema{Type: typ, Name: name.text, Doc: doc}
	if err := p.namedProps(s, props, name); err != nil {
		return err
	}
	if err := p.define(s, name); err != nil {
		return err
	}
	if _, err := p.expect("{"); err != nil {
		return err
	}
	s.Fields = []*avro.Field{}
	seen := map[string]bool{}
	for !p.peek().is("}") {
		if p.peek().kind == tokEOF {
			return p.errorf(p.peek(), "unexpected end of file in record %s", name.text)
		}
		fields, err := p.fieldDecl(s.Namespace)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if seen[f.Name] {
				return p.errorf(name, "duplicate field %s in %s", f.Name, s.FullName())
			}
			seen[f.Name] = true
			s.Fields = append(s.Fields, f)
		}
	}
	p.next()
	return nil
}

// fieldDecl := annotations type varDecl ("," varDecl)* ";"
func (p *parser) fieldDecl(space string) ([]*avro.Field, error) {
	doc := p.peek().doc
	typeProps, err := p.annotations()
	if err != nil {
		return nil, err
	}
	if doc == "" {
		doc = p.peek().doc
	}
	typ, err := p.typeRef(space)
	if err != nil {
		return nil, err
	}
	var fieldProps *jsontree.Object
	if typeProps.Len() > 0 {
		if typ.IsNamed() {
			fieldProps = typeProps
		} else {
			typ = withProps(typ, typeProps)
		}
	}
	var fields []*avro.Field
	for {
		f, err := p.varDecl(typ, doc, fieldProps)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if p.peek().is(",") {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return fields, nil
}

// varDecl := annotations ident ("=" json)?
func (p *parser) varDecl(typ *avro.Schema, doc string, inherited *jsontree.Object) (*avro.Field, error) {
	props, err := p.annotations()
	if err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if !avro.ValidName(name.text) {
		return nil, p.errorf(name, "illegal field name %q", name.text)
	}
	f := &avro.Field{Name: name.text, Type: typ, Doc: doc, Order: avro.Ascending}
	for _, k := range inherited.Keys() {
		v, _ := inherited.Get(k)
		f.SetProp(k, v)
	}
	for _, k := range props.Keys() {
		v, _ := props.Get(k)
		switch k {
		case "order":
			ord, _ := v.(string)
			switch avro.Order(ord) {
			case avro.Ascending, avro.Descending, avro.Ignore:
				f.Order = avro.Order(ord)
			default:
				return nil, p.errorf(name, "invalid @order value")
			}
		case "aliases":
			aliases, ok := stringArray(v)
			if !ok {
				return nil, p.errorf(name, "@aliases must be an array of strings")
			}
			f.Aliases = aliases
		default:
			f.SetProp(k, v)
		}
	}
	if p.peek().is("=") {
		p.next()
		v, err := p.jsonValue()
		if err != nil {
			return nil, err
		}
		f.Default, f.HasDefault = v, true
	}
	return f, nil
}

// enum := "enum" ident "{" (ident ("," ident)*)? "}" ("=" ident ";")?
func (p *parser) enum(doc string, props *jsontree.Object) error {
	p.next()
	name, err := p.ident()
	if err != nil {
		return err
	}
	s := &avro.Schema{Type: avro.Enum, Name: name.text, Doc: doc}
	if err := p.namedProps(s, props, name); err != nil {
		return err
	}
	if _, err := p.expect("{"); err != nil {
		return err
	}
	s.Symbols = []string{}
	seen := map[string]bool{}
	for !p.peek().is("}") {
		sym, err := p.ident()
		if err != nil {
			return err
		}
		if !avro.ValidName(sym.text) || seen[sym.text] {
			return p.errorf(sym, "illegal or duplicate enum symbol %q", sym.text)
		}
		seen[sym.text] = true
		s.Symbols = append(s.Symbols, sym.text)
		if p.peek().is(",") {
			p.next()
		} else if !p.peek().is("}") {
			return p.errorf(p.peek(), "expected \",\" or \"}\", found %s", p.peek().describe())
		}
	}
	p.next()
	if p.peek().is("=") {
		p.next()
		def, err := p.ident()
		if err != nil {
			return err
		}
		if !seen[def.text] {
			return p.errorf(def, "enum default %q is not a symbol of %s", def.text, name.text)
		}
		s.EnumDefault = def.text
		if _, err := p.expect(";"); err != nil {
			return err
		}
	}
	return p.define(s, name)
}

// fixed := "fixed" ident "(" int ")" ";"
func (p *parser) fixed(doc string, props *jsontree.Object) error {
	p.next()
	name, err := p.ident()
	if err != nil {
		return err
	}
	s := &avro.Schema{Type: avro.Fixed, Name: name.text, Doc: doc}
	if err := p.namedProps(s, props, name); err != nil {
		return err
	}
	if _, err := p.expect("("); err != nil {
		return err
	}
	size, err := p.intLit()
	if err != nil {
		return err
	}
	s.Size = size
	if _, err := p.expect(")"); err != nil {
		return err
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}
	return p.define(s, name)
}

// message := ("void"|type) ident "(" params ")" ("oneway" | "throws" ident ("," ident)*)? ";"
func (p *parser) message(doc string, props *jsontree.Object) error {
	space := p.proto.Namespace
	var resp *avro.Schema
	if p.peek().isKeyword("void") {
		p.next()
		resp = avro.Primitive(avro.Null)
	} else {
		var err error
		if resp, err = p.typeRef(space); err != nil {
			return err
		}
	}
	name, err := p.ident()
	if err != nil {
		return err
	}
	if !avro.ValidName(name.text) {
		return p.errorf(name, "illegal message name %q", name.text)
	}
	if _, dup := p.proto.Message(name.text); dup {
		return p.errorf(name, "duplicate message %s", name.text)
	}
	m := &avro.Message{Name: name.text, Doc: doc, Props: nilIfEmpty(props), Response: resp, Request: []*avro.Field{}}
	if _, err := p.expect("("); err != nil {
		return err
	}
	for !p.peek().is(")") {
		paramDoc := p.peek().doc
		typeProps, err := p.annotations()
		if err != nil {
			return err
		}
		typ, err := p.typeRef(space)
		if err != nil {
			return err
		}
		if typeProps.Len() > 0 && !typ.IsNamed() {
			typ = withProps(typ, typeProps)
			typeProps = nil
		}
		f, err := p.varDecl(typ, paramDoc, typeProps)
		if err != nil {
			return err
		}
		m.Request = append(m.Request, f)
		if p.peek().is(",") {
			p.next()
		} else if !p.peek().is(")") {
			return p.errorf(p.peek(), "expected \",\" or \")\", found %s", p.peek().describe())
		}
	}
	p.next()
	switch {
	case p.peek().isKeyword("oneway"):
		t := p.next()
		if resp.Type != avro.Null {
			return p.errorf(t, "one-way message %s must return void", name.text)
		}
		m.OneWay = true
	case p.peek().isKeyword("throws"):
		p.next()
		for {
			et, err := p.ident()
			if err != nil {
				return err
			}
			es, ok := p.lookup(et.text, space)
			if !ok {
				return p.errorf(et, "undefined name: %s", et.text)
			}
			if es.Type != avro.Error {
				return p.errorf(et, "%s is not an error type", es.FullName())
			}
			m.Errors = append(m.Errors, es)
			if !p.peek().is(",") {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}
	p.proto.Messages = append(p.proto.Messages, m)
	return nil
}

// typeRef := ("array" "<" type ">" | "map" "<" type ">" | "union" "{" type ("," type)* "}" | primitive | logical | name) "?"?
func (p *parser) typeRef(space string) (*avro.Schema, error) {
	t, err := p.ident()
	if err != nil {
		return nil, err
	}
	var s *avro.Schema
	switch {
	case t.isKeyword("array"), t.isKeyword("map"):
		if _, err := p.expect("<"); err != nil {
			return nil, err
		}
		inner, err := p.typeRef(space)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(">"); err != nil {
			return nil, err
		}
		if t.text == "array" {
			s = &avro.Schema{Type: avro.Array, Items: inner}
		} else {
			s = &avro.Schema{Type: avro.Map, Values: inner}
		}
	case t.isKeyword("union"):
		if _, err := p.expect("{"); err != nil {
			return nil, err
		}
		var branches []*avro.Schema
		for {
			b, err := p.typeRef(space)
			if err != nil {
				return nil, err
			}
			branches = append(branches, b)
			if !p.peek().is(",") {
				break
			}
			p.next()
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		if s, err = avro.NewUnion(branches); err != nil {
			return nil, p.errorf(t, "%v", err)
		}
	case t.isKeyword("decimal"):
		if _, err := p.expect("("); err != nil {
			return nil, err
		}
		precision, err := p.intLit()
		if err != nil {
			return nil, err
		}
		scale := 0
		if p.peek().is(",") {
			p.next()
			if scale, err = p.intLit(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		s = avro.Primitive(avro.Bytes)
		s.SetProp("logicalType", "decimal")
		s.SetProp("precision", precision)
		s.SetProp("scale", scale)
	default:
		if lt, ok := logicalTypes[t.text]; ok && !t.quoted {
			s = avro.Primitive(lt.base)
			s.SetProp("logicalType", lt.name)
			break
		}
		if prim, ok := avro.PrimitiveType(t.text); ok && !t.quoted {
			s = avro.Primitive(prim)
			break
		}
		ref, ok := p.lookup(t.text, space)
		if !ok {
			return nil, p.errorf(t, "undefined name: %s", t.text)
		}
		s = ref
	}
	if p.peek().is("?") {
		q := p.next()
		if s.Type == avro.Null {
			return s, nil
		}
		u, err := avro.NewUnion([]*avro.Schema{avro.Primitive(avro.Null), s})
		if err != nil {
			return nil, p.errorf(q, "%v", err)
		}
		s = u
	}
	return s, nil
}

// lookup resolves a reference relative to the enclosing type's namespace,
// then the protocol namespace.
func (p *parser) lookup(name, space string) (*avro.Schema, bool) {
	if s, ok := p.c.names.Lookup(name, space); ok {
		return s, true
	}
	if space != p.proto.Namespace {
		return p.c.names.Lookup(name, p.proto.Namespace)
	}
	return nil, false
}

var logicalTypes = map[string]struct {
	base avro.Type
	name string
}{
	"date":         {avro.Int, "date"},
	"time_ms":      {avro.Int, "time-millis"},
	"timestamp_ms": {avro.Long, "timestamp-millis"},
	"uuid":         {avro.String, "uuid"},
}

// annotations := ("@" ident "(" json ")")*
func (p *parser) annotations() (*jsontree.Object, error) {
	var props *jsontree.Object
	for p.peek().is("@") {
		at := p.next()
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("("); err != nil {
			return nil, err
		}
		v, err := p.jsonValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		if props == nil {
			props = jsontree.NewObject()
		}
		if _, dup := props.Get(name.text); dup {
			return nil, p.errorf(at, "duplicate annotation @%s", name.text)
		}
		props.Set(name.text, v)
	}
	return props, nil
}

// jsonValue parses a JSON literal written inline in the IDL.
func (p *parser) jsonValue() (any, error) {
	t := p.next()
	switch {
	case t.kind == tokString:
		return t.text, nil
	case t.kind == tokNumber:
		if _, err := strconv.ParseFloat(t.text, 64); err != nil {
			return nil, p.errorf(t, "invalid number %s", t.text)
		}
		return jsontree.Number(t.text), nil
	case t.isKeyword("true"):
		return true, nil
	case t.isKeyword("false"):
		return false, nil
	case t.isKeyword("null"):
		return nil, nil
	case t.is("["):
		arr := []any{}
		for !p.peek().is("]") {
			v, err := p.jsonValue()
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
			if p.peek().is(",") {
				p.next()
			} else if !p.peek().is("]") {
				return nil, p.errorf(p.peek(), "expected \",\" or \"]\", found %s", p.peek().describe())
			}
		}
		p.next()
		return arr, nil
	case t.is("{"):
		o := jsontree.NewObject()
		for !p.peek().is("}") {
			k, err := p.stringLit()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(":"); err != nil {
				return nil, err
			}
			v, err := p.jsonValue()
			if err != nil {
				return nil, err
			}
			if _, dup := o.Get(k.text); dup {
				return nil, p.errorf(k, "duplicate key %q", k.text)
			}
			o.Set(k.text, v)
			if p.peek().is(",") {
				p.next()
			} else if !p.peek().is("}") {
				return nil, p.errorf(p.peek(), "expected \",\" or \"}\", found %s", p.peek().describe())
			}
		}
		p.next()
		return o, nil
	default:
		return nil, p.errorf(t, "expected JSON value, found %s", t.describe())
	}
}

func (p *parser) intLit() (int, error) {
	t := p.next()
	if t.kind != tokNumber {
		return 0, p.errorf(t, "expected integer, found %s", t.describe())
	}
	n, err := strconv.Atoi(t.text)
	if err != nil || n < 0 {
		return 0, p.errorf(t, "invalid integer %s", t.text)
	}
	return n, nil
}

// withProps returns a copy of an unnamed schema carrying extra properties.
func withProps(s *avro.Schema, props *jsontree.Object) *avro.Schema {
	cp := *s
	cp.Props = nil
	for _, k := range s.Props.Keys() {
		v, _ := s.Props.Get(k)
		cp.SetProp(k, v)
	}
	for _, k := range props.Keys() {
		v, _ := props.Get(k)
		cp.SetProp(k, v)
	}
	return &cp
}

func nilIfEmpty(o *jsontree.Object) *jsontree.Object {
	if o.Len() == 0 {
		return nil
	}
	return o
}

func stringArray(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
