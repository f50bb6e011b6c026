package avrogen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/reoring/avrogen/internal/adapter"
	"github.com/reoring/avrogen/internal/logfields"
)

// Stage names, in execution order.
const (
	StageCompileDependencyProtocols = "compile-dependency-protocols"
	StageRegisterDependencyTypes    = "register-dependency-types"
	StageCompileGroupProtocols      = "compile-group-protocols"
	StageRegisterGroupTypes         = "register-group-types"
	StageEmit                       = "emit"
)

// compileAll compiles IDL documents in parallel. Outputs keep input order.
// Nothing is returned unless every document compiled.
func (p *Pipeline) compileAll(ctx context.Context, stage string, log *slog.Logger, docs []Document, outDir string) ([]Document, error) {
	if err := checkBaseNames(docs); err != nil {
		return nil, err
	}
	out := make([]Document, len(docs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for i, d := range docs {
		eg.Go(func() error {
			res, err := p.compiler.Compile(ctx, d, outDir)
			if err != nil {
				return err
			}
			log.Debug("Compiled protocol", logfields.Document(d.Path), logfields.Output(res.Path))
			out[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	p.metrics.AddDocuments(stage, len(docs))
	return out, nil
}

// checkBaseNames rejects documents whose compiled protocols would overwrite
// each other.
func checkBaseNames(docs []Document) error {
	seen := map[string]string{}
	for _, d := range docs {
		base := d.BaseName()
		if prev, ok := seen[base]; ok {
			return &CompileError{
				Path:       d.Path,
				Diagnostic: fmt.Sprintf("protocol %s.%s is also produced by %s", base, ExtProtocol, prev),
			}
		}
		seen[base] = d.Path
	}
	return nil
}

// register parses protocol and schema documents in order and merges their
// types into reg. A document that references a type not registered yet is
// retried after the others; a pass that makes no progress fails with the
// first remaining document. It returns the number of documents registered.
func (p *Pipeline) register(ctx context.Context, log *slog.Logger, stage string, reg *Registry, docs []Document) (int, error) {
	pending := docs
	count := 0
	for len(pending) > 0 {
		var deferred []Document
		var firstErr error
		for _, d := range pending {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			types, err := parseDocument(d, reg.Native)
			if err != nil {
				if adapter.IsUndefinedName(err) {
					if firstErr == nil {
						firstErr = newCompileError(d.Path, err)
					}
					deferred = append(deferred, d)
					continue
				}
				return count, err
			}
			batch := make([]Descriptor, 0, len(types))
			for _, t := range types {
				batch = append(batch, Descriptor{Type: t, Source: d.Path})
			}
			if err := reg.Merge(batch...); err != nil {
				return count, err
			}
			count++
			log.Debug("Registered document", logfields.Document(d.Path), logfields.Count(len(batch)))
		}
		if len(deferred) == len(pending) {
			return count, firstErr
		}
		pending = deferred
	}
	p.metrics.AddDocuments(stage, count)
	return count, nil
}

// parseDocument parses one protocol or schema document against the types
// registered so far.
func parseDocument(d Document, known adapter.NativeLookup) ([]*adapter.Type, error) {
	content, err := d.Load()
	if err != nil {
		return nil, err
	}
	var types []*adapter.Type
	switch d.Kind {
	case KindProtocol:
		types, err = adapter.ParseProtocolDocument(content, known)
	case KindSchema:
		types, err = adapter.ParseSchemaDocument(content, known)
	default:
		return nil, &CompileError{Path: d.Path, Diagnostic: fmt.Sprintf("cannot register %s document %s", d.Kind, filepath.Base(d.Path))}
	}
	if err != nil {
		if adapter.IsUndefinedName(err) {
			return nil, err
		}
		return nil, newCompileError(d.Path, err)
	}
	return types, nil
}
