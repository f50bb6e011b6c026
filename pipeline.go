package avrogen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/reoring/avrogen/internal/logfields"
	"github.com/reoring/avrogen/internal/metrics"
)

// MetricsRecorder receives pipeline measurements. internal/metrics provides
// Noop and Prometheus implementations.
type MetricsRecorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage, result string)
	AddDocuments(stage string, n int)
	SetRegistrySize(scope string, n int)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string)
}

// PipelineOptions configures a Pipeline. The zero value is usable: imports
// resolve on the filesystem, nothing is emitted, logs go to slog.Default.
type PipelineOptions struct {
	Resolver ImportResolver
	// Emitter receives every group's registry after all groups registered
	// successfully. Nil skips the emit stage.
	Emitter Emitter
	// Concurrency bounds parallel compilation within a stage and the number
	// of groups processed at once. Defaults to GOMAXPROCS.
	Concurrency int
	Logger      *slog.Logger
	Metrics     MetricsRecorder
	Tracer      trace.Tracer
	// RunID labels logs and spans; a random UUID when empty.
	RunID string
}

// Pipeline runs the staged compilation of a dependency set and its groups.
type Pipeline struct {
	compiler    Compiler
	emitter     Emitter
	concurrency int
	logger      *slog.Logger
	metrics     MetricsRecorder
	tracer      trace.Tracer
	runID       string
}

// NewPipeline returns a pipeline configured by opts.
func NewPipeline(opts PipelineOptions) *Pipeline {
	p := &Pipeline{
		compiler:    Compiler{Resolver: opts.Resolver},
		emitter:     opts.Emitter,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
		runID:       opts.RunID,
	}
	if p.compiler.Resolver == nil {
		p.compiler.Resolver = FileResolver{}
	}
	if p.concurrency <= 0 {
		p.concurrency = runtime.GOMAXPROCS(0)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.metrics == nil {
		p.metrics = metrics.NoopRecorder{}
	}
	if p.tracer == nil {
		p.tracer = noop.NewTracerProvider().Tracer("avrogen")
	}
	return p
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	RunID string
	// Dependencies is the registry after the dependency stages.
	Dependencies *Snapshot
	// DependencyProtocols are the protocols compiled from dependency IDL.
	DependencyProtocols []Document
	// Groups holds one result per input group, in input order.
	Groups []GroupResult
	// DidWork is true when at least one document was compiled or registered.
	DidWork bool
}

// Group returns the result for the named group.
func (r *RunResult) Group(name string) (GroupResult, bool) {
	for _, g := range r.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return GroupResult{}, false
}

// GroupResult is the output of one compilation group.
type GroupResult struct {
	Name      string
	Protocols []Document // compiled from the group's IDL documents
	Types     *Snapshot  // dependency types followed by the group's own
	OutputDir string
	DidWork   bool
}

// Run executes every stage. Failures are fatal: the first CompileError,
// TypeConflictError or IOError aborts the run, wrapped in a *StageError,
// and no group is emitted.
func (p *Pipeline) Run(ctx context.Context, deps DependencySet, groups []Group) (*RunResult, error) {
	runID := p.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := p.logger.With(logfields.RunID(runID))
	ctx, span := p.tracer.Start(ctx, "avrogen.run", trace.WithAttributes(
		attribute.String("avrogen.run_id", runID),
		attribute.Int("avrogen.groups", len(groups)),
	))
	defer span.End()

	start := time.Now()
	res, err := p.run(ctx, log, runID, deps, groups)
	p.metrics.ObserveRunDuration(time.Since(start))
	if err != nil {
		p.metrics.IncRunOutcome(outcome(ctx, err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Run failed", logfields.Error(err))
		return nil, err
	}
	p.metrics.IncRunOutcome(metrics.ResultSuccess)
	log.Info("Run finished",
		slog.Bool("did_work", res.DidWork),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, runID string, deps DependencySet, groups []Group) (*RunResult, error) {
	if err := validateGroups(groups); err != nil {
		return nil, err
	}
	res := &RunResult{RunID: runID, Groups: make([]GroupResult, len(groups))}

	var depProtocols []Document
	err := p.stage(ctx, log, StageCompileDependencyProtocols, "", func(ctx context.Context) error {
		var err error
		depProtocols, err = p.compileAll(ctx, StageCompileDependencyProtocols, log, filterKind(deps.Documents, KindIDL), deps.ProtocolDir)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.DependencyProtocols = depProtocols

	depReg := NewRegistry()
	var depCount int
	err = p.stage(ctx, log, StageRegisterDependencyTypes, "", func(ctx context.Context) error {
		docs := append(append([]Document(nil), depProtocols...), filterKind(deps.Documents, KindProtocol, KindSchema)...)
		var err error
		depCount, err = p.register(ctx, log, StageRegisterDependencyTypes, depReg, docs)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Dependencies = depReg.Snapshot()
	res.DidWork = depCount > 0
	p.metrics.SetRegistrySize("dependencies", res.Dependencies.Len())

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for i, g := range groups {
		eg.Go(func() error {
			gr, err := p.runGroup(gctx, log.With(logfields.Group(g.Name)), g, res.Dependencies)
			if err != nil {
				return err
			}
			res.Groups[i] = gr
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, gr := range res.Groups {
		res.DidWork = res.DidWork || gr.DidWork
	}
	if p.emitter == nil {
		return res, nil
	}
	for i, g := range groups {
		gr := res.Groups[i]
		err := p.stage(ctx, log.With(logfields.Group(g.Name)), StageEmit, g.Name, func(ctx context.Context) error {
			return p.emitter.Emit(ctx, EmitRequest{
				Group:     g.Name,
				Package:   packageName(g),
				OutputDir: g.OutputDir,
				Types:     gr.Types,
			})
		})
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// runGroup compiles and registers one group on top of the dependency types.
func (p *Pipeline) runGroup(ctx context.Context, log *slog.Logger, g Group, deps *Snapshot) (GroupResult, error) {
	ctx, span := p.tracer.Start(ctx, "avrogen.group", trace.WithAttributes(attribute.String("avrogen.group", g.Name)))
	defer span.End()

	gr := GroupResult{Name: g.Name, OutputDir: g.OutputDir}
	err := p.stage(ctx, log, StageCompileGroupProtocols, g.Name, func(ctx context.Context) error {
		var err error
		gr.Protocols, err = p.compileAll(ctx, StageCompileGroupProtocols, log, filterKind(g.Documents, KindIDL), g.ProtocolDir)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return GroupResult{}, err
	}

	reg := NewRegistryFrom(deps)
	var count int
	err = p.stage(ctx, log, StageRegisterGroupTypes, g.Name, func(ctx context.Context) error {
		docs := append(filterKind(g.Documents, KindProtocol, KindSchema), gr.Protocols...)
		var err error
		count, err = p.register(ctx, log, StageRegisterGroupTypes, reg, docs)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return GroupResult{}, err
	}
	gr.Types = reg.Snapshot()
	gr.DidWork = len(gr.Protocols) > 0 || count > 0
	p.metrics.SetRegistrySize(g.Name, gr.Types.Len())
	return gr, nil
}

// stage runs fn as one named stage with logging, metrics and a span.
func (p *Pipeline) stage(ctx context.Context, log *slog.Logger, name, group string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("avrogen.stage", name)))
	defer span.End()
	log = log.With(logfields.Stage(name))
	log.Info("Stage started")

	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = fn(ctx)
	}
	d := time.Since(start)
	p.metrics.ObserveStageDuration(name, d)
	if err != nil {
		p.metrics.IncStageResult(name, outcome(ctx, err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Stage failed", logfields.Error(err))
		return &StageError{Stage: name, Group: group, Err: err}
	}
	p.metrics.IncStageResult(name, metrics.ResultSuccess)
	log.Info("Stage finished", logfields.DurationMS(float64(d.Microseconds())/1000))
	return nil
}

func outcome(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return metrics.ResultCanceled
	}
	return metrics.ResultFailed
}

func validateGroups(groups []Group) error {
	seen := map[string]bool{}
	for _, g := range groups {
		if g.Name == "" {
			return fmt.Errorf("avrogen: group without a name")
		}
		if seen[g.Name] {
			return fmt.Errorf("avrogen: duplicate group %q", g.Name)
		}
		seen[g.Name] = true
	}
	return nil
}

// packageName defaults to the group name with an "avro" suffix, so the
// "main" group does not produce a package main.
func packageName(g Group) string {
	if g.Package != "" {
		return g.Package
	}
	return g.Name + "avro"
}
