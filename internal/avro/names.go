package avro

import "fmt"

// KnownFunc resolves a full name against types defined outside the
// document being parsed.
type KnownFunc func(fullName string) (*Schema, bool)

// UndefinedNameError reports a reference to a name that is neither defined
// in the document nor known from earlier documents.
type UndefinedNameError struct {
	Name string
}

func (e *UndefinedNameError) Error() string { return fmt.Sprintf("avro: undefined name: %s", e.Name) }

// Names tracks the named schemas visible while parsing one document.
type Names struct {
	known KnownFunc
	local map[string]*Schema
	order []*Schema
}

// NewNames returns a name table backed by known (which may be nil).
func NewNames(known KnownFunc) *Names {
	return &Names{known: known, local: map[string]*Schema{}}
}

// Lookup resolves name relative to space. Local definitions shadow known
// ones so a document that redefines a known type sees its own definition.
func (n *Names) Lookup(name, space string) (*Schema, bool) {
	ns, simple := SplitName(name, space)
	full := simple
	if ns != "" {
		full = ns + "." + simple
	}
	if s, ok := n.lookupFull(full); ok {
		return s, true
	}
	// fall back to the null namespace for unqualified names
	if ns != "" && full != name {
		return n.lookupFull(name)
	}
	return nil, false
}

func (n *Names) lookupFull(full string) (*Schema, bool) {
	if s, ok := n.local[full]; ok {
		return s, true
	}
	if n.known != nil {
		return n.known(full)
	}
	return nil, false
}

// Define records a new named schema. Defining the same name twice in one
// document is an error; shadowing a known name is not.
func (n *Names) Define(s *Schema) error {
	full := s.FullName()
	if _, ok := n.local[full]; ok {
		return fmt.Errorf("avro: can't redefine: %s", full)
	}
	n.local[full] = s
	n.order = append(n.order, s)
	return nil
}

// Defined returns the schemas defined in this document, in definition order.
func (n *Names) Defined() []*Schema { return append([]*Schema(nil), n.order...) }
