package avro

import "github.com/reoring/avrogen/internal/jsontree"

// writeCtx tracks the enclosing namespace and the named schemas already
// written in full during one serialization.
type writeCtx struct {
	space string
	seen  map[string]bool
}

func newWriteCtx(space string) *writeCtx {
	return &writeCtx{space: space, seen: map[string]bool{}}
}

// JSON serializes the schema. The first occurrence of each named schema is
// written in full and later ones by name, so the output is self-contained.
func (s *Schema) JSON(pretty bool) ([]byte, error) {
	return jsontree.Marshal(s.tree(newWriteCtx("")), pretty)
}

// Tree returns the JSON tree of the schema, for embedding into larger
// documents.
func (s *Schema) Tree() any { return s.tree(newWriteCtx("")) }

func (s *Schema) tree(c *writeCtx) any {
	switch s.Type {
	case Record, Error, Enum, Fixed:
		return s.namedTree(c)
	case Array:
		o := jsontree.NewObject()
		o.Set("type", "array")
		o.Set("items", s.Items.tree(c))
		copyProps(o, s.Props)
		return o
	case Map:
		o := jsontree.NewObject()
		o.Set("type", "map")
		o.Set("values", s.Values.tree(c))
		copyProps(o, s.Props)
		return o
	case Union:
		arr := make([]any, 0, len(s.Branches))
		for _, b := range s.Branches {
			arr = append(arr, b.tree(c))
		}
		return arr
	default:
		if s.Props.Len() == 0 {
			return string(s.Type)
		}
		o := jsontree.NewObject()
		o.Set("type", string(s.Type))
		copyProps(o, s.Props)
		return o
	}
}

func (s *Schema) namedTree(c *writeCtx) any {
	full := s.FullName()
	if c.seen[full] {
		if s.Namespace == c.space {
			return s.Name
		}
		return full
	}
	c.seen[full] = true

	o := jsontree.NewObject()
	o.Set("type", string(s.Type))
	o.Set("name", s.Name)
	if s.Namespace != c.space {
		o.Set("namespace", s.Namespace)
	}
	if s.Doc != "" {
		o.Set("doc", s.Doc)
	}
	saved := c.space
	c.space = s.Namespace
	switch s.Type {
	case Record, Error:
		fields := make([]any, 0, len(s.Fields))
		for _, f := range s.Fields {
			fields = append(fields, f.tree(c))
		}
		o.Set("fields", fields)
	case Enum:
		o.Set("symbols", append([]string(nil), s.Symbols...))
		if s.EnumDefault != "" {
			o.Set("default", s.EnumDefault)
		}
	case Fixed:
		o.Set("size", s.Size)
	}
	c.space = saved
	copyProps(o, s.Props)
	if len(s.Aliases) > 0 {
		o.Set("aliases", append([]string(nil), s.Aliases...))
	}
	return o
}

func (f *Field) tree(c *writeCtx) any {
	o := jsontree.NewObject()
	o.Set("name", f.Name)
	o.Set("type", f.Type.tree(c))
	if f.Doc != "" {
		o.Set("doc", f.Doc)
	}
	if f.HasDefault {
		o.Set("default", f.Default)
	}
	if f.Order != "" && f.Order != Ascending {
		o.Set("order", string(f.Order))
	}
	copyProps(o, f.Props)
	if len(f.Aliases) > 0 {
		o.Set("aliases", append([]string(nil), f.Aliases...))
	}
	return o
}

func copyProps(dst, props *jsontree.Object) {
	for _, k := range props.Keys() {
		v, _ := props.Get(k)
		dst.Set(k, v)
	}
}
