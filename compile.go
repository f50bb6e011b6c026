package avrogen

import (
	"context"
	"os"
	"path/filepath"

	"github.com/reoring/avrogen/internal/adapter"
	"github.com/reoring/avrogen/internal/idl"
)

// Compiler turns IDL documents into protocol documents.
type Compiler struct {
	Resolver ImportResolver
}

// Compile compiles one IDL document. When outDir is not empty the protocol
// is written to outDir/<base>.avpr; the returned document carries the
// protocol JSON either way.
func (c Compiler) Compile(ctx context.Context, doc Document, outDir string) (Document, error) {
	content, err := doc.Load()
	if err != nil {
		return Document{}, err
	}
	imp := &importer{ctx: ctx, resolver: c.Resolver}
	out, err := adapter.CompileIDL(doc.Path, content, imp)
	if err != nil {
		return Document{}, newCompileError(doc.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	result := Document{Kind: KindProtocol, Path: doc.BaseName() + "." + ExtProtocol, Content: out}
	if outDir == "" {
		return result, nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Document{}, &IOError{Path: outDir, Op: "mkdir", Cause: err}
	}
	result.Path = filepath.Join(outDir, result.Path)
	if err := os.WriteFile(result.Path, out, 0o644); err != nil {
		return Document{}, &IOError{Path: result.Path, Op: "write", Cause: err}
	}
	return result, nil
}

// importer adapts an ImportResolver to the IDL compiler.
type importer struct {
	ctx      context.Context
	resolver ImportResolver
}

func (i *importer) Import(kind idl.ImportKind, ref, from string) (idl.Imported, error) {
	resolver := i.resolver
	if resolver == nil {
		resolver = FileResolver{}
	}
	k := KindIDL
	switch kind {
	case idl.ImportProtocol:
		k = KindProtocol
	case idl.ImportSchema:
		k = KindSchema
	}
	doc, err := resolver.Resolve(i.ctx, ImportRequest{Kind: k, Ref: ref, From: from})
	if err != nil {
		return idl.Imported{}, err
	}
	content, err := doc.Load()
	if err != nil {
		return idl.Imported{}, err
	}
	return idl.Imported{Path: doc.Path, Content: content}, nil
}
