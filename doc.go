// Package avrogen compiles Avro documents into generated Go bindings.
//
// It provides:
//
// - A dependency-aware pipeline (Pipeline.Run) that compiles interface
// definitions (.avdl) to protocols (.avpr), registers the named types of
// protocols and schemas (.avsc) into a Registry, and hands every group's
// registry to an Emitter.
// - A Registry with append, idempotent re-registration and conflict
// detection, plus immutable Snapshots that later stages extend.
// - A stable error model: CompileError, TypeConflictError and IOError,
// reachable with errors.As through StageError.
//
// Design policy:
// - Keep only public APIs in the root package; the Avro model, the IDL
// compiler and the code renderer live under internal/.
// - The pipeline sees types only through the Type interface, so the model
// behind internal/adapter can change without touching the stages.
//
// Typical usage:
//
//	p := avrogen.NewPipeline(avrogen.PipelineOptions{Resolver: avrogen.FileResolver{}})
//	res, err := p.Run(ctx, deps, groups)
//	if te, ok := avrogen.AsTypeConflict(err); ok {
//		fmt.Println(te.Diff)
//	}
package avrogen
