// Package discover finds Avro documents on disk and assembles the
// dependency set and compilation groups the pipeline consumes.
package discover

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/reoring/avrogen"
)

// WalkOptions configures directory walking.
type WalkOptions struct {
	// SkipHidden skips directories starting with ".".
	SkipHidden bool
	// ExcludeDirs lists additional directory names to skip.
	ExcludeDirs []string
	// TopLevelOnly collects documents directly inside the root and does not
	// descend into subdirectories.
	TopLevelOnly bool
	// Kinds restricts the document kinds collected; empty means all.
	Kinds []avrogen.Kind
}

// DefaultWalkOptions skips hidden directories and collects every kind.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{SkipHidden: true}
}

// WalkDir walks root in lexical order and calls fn for every Avro document.
// Content is left unloaded.
func WalkDir(root string, opts WalkOptions, fn func(avrogen.Document) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path == root {
				return nil
			}
			if opts.TopLevelOnly {
				return filepath.SkipDir
			}
			if opts.SkipHidden && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if slices.Contains(opts.ExcludeDirs, name) {
				return filepath.SkipDir
			}
			return nil
		}
		kind, ok := avrogen.KindOf(path)
		if !ok {
			return nil
		}
		if len(opts.Kinds) > 0 && !slices.Contains(opts.Kinds, kind) {
			return nil
		}
		return fn(avrogen.Document{Kind: kind, Path: path})
	})
}

// Collect walks each root in order and returns the documents found. A root
// naming a single file contributes that file. Missing roots are skipped.
func Collect(roots []string, opts WalkOptions) ([]avrogen.Document, error) {
	var docs []avrogen.Document
	seen := map[string]bool{}
	add := func(d avrogen.Document) error {
		key := filepath.Clean(d.Path)
		if seen[key] {
			return nil
		}
		seen[key] = true
		docs = append(docs, d)
		return nil
	}
	for _, root := range roots {
		err := WalkDir(root, opts, add)
		if err == nil {
			continue
		}
		if errorsIsNotExist(err) {
			continue
		}
		return nil, &avrogen.IOError{Path: root, Op: "walk", Cause: err}
	}
	return docs, nil
}
