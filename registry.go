package avrogen

import (
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Registry accumulates named types in registration order. A name registered
// again with an identical canonical form is a no-op; a different form is a
// *TypeConflictError. Registry is safe for concurrent use; writes are
// serialized.
type Registry struct {
	mu      sync.Mutex
	index   map[string]int
	entries []Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// NewRegistryFrom returns a registry that starts with the contents of s.
// Later merges never affect s.
func NewRegistryFrom(s *Snapshot) *Registry {
	r := NewRegistry()
	if s == nil {
		return r
	}
	r.entries = append(r.entries, s.entries...)
	for name, i := range s.index {
		r.index[name] = i
	}
	return r
}

// Merge registers a batch of descriptors in order. The batch is atomic:
// when any descriptor conflicts, nothing is registered.
func (r *Registry) Merge(ds ...Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := map[string]Descriptor{}
	var added []Descriptor
	for _, d := range ds {
		name := d.Name()
		existing, ok := pending[name]
		if !ok {
			if i, found := r.index[name]; found {
				existing, ok = r.entries[i], true
			}
		}
		if ok {
			if existing.Type.CanonicalJSON() != d.Type.CanonicalJSON() {
				return conflict(existing, d)
			}
			continue
		}
		pending[name] = d
		added = append(added, d)
	}
	for _, d := range added {
		r.index[d.Name()] = len(r.entries)
		r.entries = append(r.entries, d)
	}
	return nil
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Lookup returns the descriptor registered under a full name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.entries[i], true
}

// Native returns the unwrapped type registered under a full name.
func (r *Registry) Native(name string) (any, bool) {
	d, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return d.Type.Unwrap(), true
}

// Snapshot returns an immutable copy of the current contents.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Snapshot{
		entries: append([]Descriptor(nil), r.entries...),
		index:   make(map[string]int, len(r.index)),
	}
	for name, i := range r.index {
		s.index[name] = i
	}
	return s
}

func conflict(existing, d Descriptor) *TypeConflictError {
	return &TypeConflictError{
		Name:           d.Name(),
		ExistingSource: existing.Source,
		Source:         d.Source,
		Diff:           lineDiff(existing.Type.CanonicalJSON(), d.Type.CanonicalJSON()),
	}
}

// lineDiff renders a line-oriented diff with "-", "+" and " " prefixes.
func lineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		text := strings.TrimSuffix(d.Text, "\n")
		for _, ln := range strings.Split(text, "\n") {
			sb.WriteString(prefix)
			sb.WriteString(ln)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Snapshot is an immutable view of a registry at one point in time.
// The zero value is empty.
type Snapshot struct {
	entries []Descriptor
	index   map[string]int
}

// Len returns the number of types.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Lookup returns the descriptor for a full name.
func (s *Snapshot) Lookup(name string) (Descriptor, bool) {
	if s == nil {
		return Descriptor{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return s.entries[i], true
}

// Descriptors returns the types in registration order.
func (s *Snapshot) Descriptors() []Descriptor {
	if s == nil {
		return nil
	}
	return append([]Descriptor(nil), s.entries...)
}

// Names returns the full names in registration order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.entries))
	for i, d := range s.entries {
		out[i] = d.Name()
	}
	return out
}

// Natives returns the unwrapped types in registration order.
func (s *Snapshot) Natives() []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s.entries))
	for i, d := range s.entries {
		out[i] = d.Type.Unwrap()
	}
	return out
}
