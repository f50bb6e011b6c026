package avrogen

// Type is the model-agnostic view of a named Avro type.
type Type interface {
	// FullName is the namespace-qualified name, e.g. "geo.Point".
	FullName() string
	// CanonicalJSON is a stable pretty JSON form. Two types with the same
	// full name are the same type iff their canonical forms are equal.
	CanonicalJSON() string
	// Unwrap returns the model's native representation.
	Unwrap() any
}

// Descriptor is a registered type together with the document that defined it.
type Descriptor struct {
	Type   Type
	Source string
}

// Name returns the full name of the described type.
func (d Descriptor) Name() string { return d.Type.FullName() }
