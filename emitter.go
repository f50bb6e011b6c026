package avrogen

import (
	"context"
	"os"
	"path/filepath"

	"github.com/reoring/avrogen/internal/gen"
)

// EmitRequest carries one group's merged registry to an Emitter.
type EmitRequest struct {
	Group     string
	Package   string
	OutputDir string
	Types     *Snapshot
}

// Emitter writes generated sources for a group. Emitters consume the
// Unwrap values of the snapshot's types.
type Emitter interface {
	Emit(ctx context.Context, req EmitRequest) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, req EmitRequest) error

func (f EmitterFunc) Emit(ctx context.Context, req EmitRequest) error { return f(ctx, req) }

// GoEmitter writes one Go file per group, <group>_avro.go, declaring a Go
// type and the canonical schema for every registered type.
type GoEmitter struct{}

func (GoEmitter) Emit(ctx context.Context, req EmitRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := gen.Build(req.Package, req.Types.Natives())
	if err != nil {
		return err
	}
	f.Source = "avrogen group " + req.Group
	code, err := gen.RenderFile(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return &IOError{Path: req.OutputDir, Op: "mkdir", Cause: err}
	}
	path := filepath.Join(req.OutputDir, GoFileName(req.Group))
	if err := os.WriteFile(path, code, 0o644); err != nil {
		return &IOError{Path: path, Op: "write", Cause: err}
	}
	return nil
}

// GoFileName is the name of the file GoEmitter writes for a group.
func GoFileName(group string) string { return group + "_avro.go" }
