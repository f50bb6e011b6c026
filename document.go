package avrogen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind classifies a document by its format.
type Kind int

const (
	KindIDL      Kind = iota // interface definition (.avdl)
	KindProtocol             // protocol JSON (.avpr)
	KindSchema               // schema JSON (.avsc)
)

const (
	ExtIDL      = "avdl"
	ExtProtocol = "avpr"
	ExtSchema   = "avsc"
)

func (k Kind) String() string {
	switch k {
	case KindIDL:
		return "idl"
	case KindProtocol:
		return "protocol"
	case KindSchema:
		return "schema"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Ext returns the file extension of the kind, without the dot.
func (k Kind) Ext() string {
	switch k {
	case KindIDL:
		return ExtIDL
	case KindProtocol:
		return ExtProtocol
	default:
		return ExtSchema
	}
}

// KindOf classifies path by extension.
func KindOf(path string) (Kind, bool) {
	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case ExtIDL:
		return KindIDL, true
	case ExtProtocol:
		return KindProtocol, true
	case ExtSchema:
		return KindSchema, true
	}
	return 0, false
}

// Document is one input or output of the pipeline. Content is loaded lazily
// from Path when nil.
type Document struct {
	Kind    Kind
	Path    string
	Content []byte
}

// BaseName is the file name without directory and extension.
func (d Document) BaseName() string {
	base := filepath.Base(d.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load returns the content, reading Path when Content is nil.
func (d Document) Load() ([]byte, error) {
	if d.Content != nil {
		return d.Content, nil
	}
	b, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, &IOError{Path: d.Path, Op: "read", Cause: err}
	}
	return b, nil
}

// ReadDocument reads path and classifies it by extension.
func ReadDocument(path string) (Document, error) {
	kind, ok := KindOf(path)
	if !ok {
		return Document{}, &IOError{Path: path, Op: "classify", Cause: fmt.Errorf("unsupported extension %q", filepath.Ext(path))}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, &IOError{Path: path, Op: "read", Cause: err}
	}
	return Document{Kind: kind, Path: path, Content: b}, nil
}

// DependencySet is the external documents compiled and registered before any
// group. ProtocolDir receives the protocols compiled from its IDL documents.
type DependencySet struct {
	Documents   []Document
	ProtocolDir string
}

// Group is one independent compilation scope, e.g. "main" or "test".
type Group struct {
	Name        string
	Documents   []Document
	ProtocolDir string // compiled protocols
	OutputDir   string // generated bindings
	Package     string // Go package of the bindings; defaults to <Name>avro
}

func filterKind(docs []Document, kinds ...Kind) []Document {
	var out []Document
	for _, d := range docs {
		for _, k := range kinds {
			if d.Kind == k {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
