package avro

import (
	"errors"
	"fmt"

	"github.com/reoring/avrogen/internal/jsontree"
)

// Protocol is a named set of types and messages.
type Protocol struct {
	Name      string
	Namespace string
	Doc       string
	Props     *jsontree.Object
	Types     []*Schema  // named types in definition order
	Messages  []*Message // in declaration order
}

// Message is one protocol message signature.
type Message struct {
	Name     string
	Doc      string
	Props    *jsontree.Object
	Request  []*Field
	Response *Schema
	Errors   []*Schema // declared error types, without the implicit string
	OneWay   bool
}

var protocolReserved = map[string]bool{
	"protocol": true, "namespace": true, "doc": true, "types": true, "messages": true,
}

var messageReserved = map[string]bool{
	"doc": true, "request": true, "response": true, "errors": true, "one-way": true,
}

// FullName returns the namespace-qualified protocol name.
func (p *Protocol) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "." + p.Name
}

// Message returns the named message.
func (p *Protocol) Message(name string) (*Message, bool) {
	for _, m := range p.Messages {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// AddType appends a named type unless the same schema is already listed.
func (p *Protocol) AddType(s *Schema) {
	for _, t := range p.Types {
		if t == s {
			return
		}
	}
	p.Types = append(p.Types, s)
}

// ParseProtocol parses one protocol document. Every named type it defines,
// nested ones included, is recorded in names and listed in Types.
func ParseProtocol(data []byte, names *Names) (*Protocol, error) {
	v, err := jsontree.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("avro: invalid JSON: %w", err)
	}
	o, ok := v.(*jsontree.Object)
	if !ok {
		return nil, errors.New("avro: protocol must be a JSON object")
	}
	name, ok := o.String("protocol")
	if !ok {
		return nil, errors.New("avro: no protocol name")
	}
	p := &Protocol{Name: name}
	p.Namespace, _ = o.String("namespace")
	p.Doc, _ = o.String("doc")
	p.Props = extraProps(o, protocolReserved)

	before := len(names.Defined())
	if tv, ok := o.Get("types"); ok {
		list, ok := tv.([]any)
		if !ok {
			return nil, errors.New("avro: protocol types must be an array")
		}
		for _, raw := range list {
			s, err := ParseValue(raw, names, p.Namespace)
			if err != nil {
				return nil, err
			}
			if !s.IsNamed() {
				return nil, fmt.Errorf("avro: protocol types must be named, got %s", s.Type)
			}
		}
	}
	p.Types = append(p.Types, names.Defined()[before:]...)

	if mv, ok := o.Get("messages"); ok && mv != nil {
		mo, ok := mv.(*jsontree.Object)
		if !ok {
			return nil, errors.New("avro: protocol messages must be an object")
		}
		for _, mname := range mo.Keys() {
			raw, _ := mo.Get(mname)
			body, ok := raw.(*jsontree.Object)
			if !ok {
				return nil, fmt.Errorf("avro: message %s must be an object", mname)
			}
			m, err := parseMessage(mname, body, names, p.Namespace)
			if err != nil {
				return nil, err
			}
			p.Messages = append(p.Messages, m)
		}
	}
	return p, nil
}

func parseMessage(name string, o *jsontree.Object, names *Names, space string) (*Message, error) {
	m := &Message{Name: name}
	m.Doc, _ = o.String("doc")
	m.Props = extraProps(o, messageReserved)
	rv, ok := o.Get("request")
	if !ok {
		return nil, fmt.Errorf("avro: message %s has no request", name)
	}
	params, ok := rv.([]any)
	if !ok {
		return nil, fmt.Errorf("avro: request of message %s must be an array", name)
	}
	for _, raw := range params {
		fo, ok := raw.(*jsontree.Object)
		if !ok {
			return nil, fmt.Errorf("avro: parameter of message %s must be an object", name)
		}
		f, err := ParseField(fo, names, space)
		if err != nil {
			return nil, fmt.Errorf("%w (in message %s)", err, name)
		}
		m.Request = append(m.Request, f)
	}
	resp, ok := o.Get("response")
	if !ok {
		return nil, fmt.Errorf("avro: message %s has no response", name)
	}
	var err error
	if m.Response, err = ParseValue(resp, names, space); err != nil {
		return nil, err
	}
	if ev, ok := o.Get("errors"); ok {
		list, ok := ev.([]any)
		if !ok {
			return nil, fmt.Errorf("avro: errors of message %s must be an array", name)
		}
		for _, raw := range list {
			e, err := ParseValue(raw, names, space)
			if err != nil {
				return nil, err
			}
			m.Errors = append(m.Errors, e)
		}
	}
	if ow, ok := o.Get("one-way"); ok {
		b, isBool := ow.(bool)
		if !isBool {
			return nil, fmt.Errorf("avro: one-way of message %s must be a boolean", name)
		}
		m.OneWay = b
	}
	if m.OneWay && (m.Response.Type != Null || len(m.Errors) > 0) {
		return nil, fmt.Errorf("avro: one-way message %s can't have a response or errors", name)
	}
	return m, nil
}

// JSON serializes the protocol. Types already written in full are not
// repeated.
func (p *Protocol) JSON(pretty bool) ([]byte, error) {
	return jsontree.Marshal(p.tree(), pretty)
}

func (p *Protocol) tree() any {
	c := newWriteCtx(p.Namespace)
	o := jsontree.NewObject()
	o.Set("protocol", p.Name)
	if p.Namespace != "" {
		o.Set("namespace", p.Namespace)
	}
	if p.Doc != "" {
		o.Set("doc", p.Doc)
	}
	copyProps(o, p.Props)
	types := make([]any, 0, len(p.Types))
	for _, t := range p.Types {
		if c.seen[t.FullName()] {
			continue
		}
		types = append(types, t.tree(c))
	}
	o.Set("types", types)
	msgs := jsontree.NewObject()
	for _, m := range p.Messages {
		msgs.Set(m.Name, m.tree(c))
	}
	o.Set("messages", msgs)
	return o
}

func (m *Message) tree(c *writeCtx) any {
	o := jsontree.NewObject()
	if m.Doc != "" {
		o.Set("doc", m.Doc)
	}
	copyProps(o, m.Props)
	req := make([]any, 0, len(m.Request))
	for _, f := range m.Request {
		req = append(req, f.tree(c))
	}
	o.Set("request", req)
	o.Set("response", m.Response.tree(c))
	if len(m.Errors) > 0 {
		errs := make([]any, 0, len(m.Errors))
		for _, e := range m.Errors {
			errs = append(errs, e.tree(c))
		}
		o.Set("errors", errs)
	}
	if m.OneWay {
		o.Set("one-way", true)
	}
	return o
}
