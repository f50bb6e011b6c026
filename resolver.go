package avrogen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnresolvedImport is returned (wrapped) when no location provides an
// imported document.
var ErrUnresolvedImport = errors.New("unresolved import")

// ImportRequest describes one import statement.
type ImportRequest struct {
	Kind Kind   // kind declared by the import statement
	Ref  string // the path written in the import statement
	From string // path of the importing document
}

// ImportResolver locates the documents named by import statements.
type ImportResolver interface {
	Resolve(ctx context.Context, req ImportRequest) (Document, error)
}

// FileResolver resolves imports on the filesystem: relative to the importing
// document first, then against each root in order.
type FileResolver struct {
	Roots []string
}

func (r FileResolver) Resolve(ctx context.Context, req ImportRequest) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	for _, cand := range candidates(req, r.Roots) {
		b, err := os.ReadFile(cand)
		if err == nil {
			return Document{Kind: req.Kind, Path: cand, Content: b}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Document{}, &IOError{Path: cand, Op: "read", Cause: err}
		}
	}
	return Document{}, fmt.Errorf("%w: %s %q from %s", ErrUnresolvedImport, req.Kind, req.Ref, req.From)
}

// MapResolver resolves imports from memory, keyed by path. Keys are matched
// with the same candidate order as FileResolver.
type MapResolver map[string][]byte

func (m MapResolver) Resolve(_ context.Context, req ImportRequest) (Document, error) {
	for _, cand := range candidates(req, nil) {
		if b, ok := m[cand]; ok {
			return Document{Kind: req.Kind, Path: cand, Content: b}, nil
		}
	}
	return Document{}, fmt.Errorf("%w: %s %q from %s", ErrUnresolvedImport, req.Kind, req.Ref, req.From)
}

func candidates(req ImportRequest, roots []string) []string {
	if filepath.IsAbs(req.Ref) {
		return []string{filepath.Clean(req.Ref)}
	}
	var out []string
	if req.From != "" {
		out = append(out, filepath.Join(filepath.Dir(req.From), req.Ref))
	}
	for _, root := range roots {
		out = append(out, filepath.Join(root, req.Ref))
	}
	if len(roots) == 0 {
		out = append(out, filepath.Clean(req.Ref))
	}
	return out
}
