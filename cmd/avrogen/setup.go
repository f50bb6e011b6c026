package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reoring/avrogen"
	"github.com/reoring/avrogen/internal/config"
	"github.com/reoring/avrogen/internal/metrics"
	"github.com/reoring/avrogen/internal/tracing"
)

// loadConfig reads the configuration named by --config, falling back to
// avrogen.yaml in the working directory and then to the defaults.
func (g *Globals) loadConfig() (*config.Config, error) {
	path := g.Config
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return config.Default(), nil
			}
			return nil, err
		}
		path = config.DefaultFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (g *Globals) logger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Logging.Level)
	if g.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var w io.Writer = os.Stderr
	if g.Stderr != nil {
		w = g.Stderr
	}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// session bundles what a pipeline run needs and releases it afterwards.
type session struct {
	cfg      *config.Config
	log      *slog.Logger
	recorder *metrics.PrometheusRecorder
	tracing  *tracing.Provider
}

func (g *Globals) open(ctx context.Context) (*session, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	log := g.logger(cfg)
	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	return &session{
		cfg:      cfg,
		log:      log,
		recorder: metrics.NewPrometheusRecorder(prometheus.NewRegistry()),
		tracing:  tp,
	}, nil
}

func (s *session) pipeline(emitter avrogen.Emitter) *avrogen.Pipeline {
	return avrogen.NewPipeline(avrogen.PipelineOptions{
		Resolver:    avrogen.FileResolver{Roots: importRoots(s.cfg)},
		Emitter:     emitter,
		Concurrency: s.cfg.Concurrency,
		Logger:      s.log,
		Metrics:     s.recorder,
		Tracer:      s.tracing.Tracer(),
	})
}

// importRoots lists the configured import roots followed by the dependency
// roots and the dependency protocol directory, so group IDL can import
// dependency documents.
func importRoots(cfg *config.Config) []string {
	var roots []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" {
			return
		}
		p = cfg.Path(p)
		if !seen[p] {
			seen[p] = true
			roots = append(roots, p)
		}
	}
	for _, r := range cfg.ImportRoots {
		add(r)
	}
	for _, r := range cfg.Dependencies.Roots {
		add(r)
	}
	add(cfg.Dependencies.ProtocolDir)
	return roots
}

// close flushes spans and writes the metrics textfile when configured.
func (s *session) close(ctx context.Context) error {
	var errs []error
	if err := s.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
	}
	if s.cfg.Metrics.Textfile != "" {
		if err := s.recorder.WriteTextfile(s.cfg.Path(s.cfg.Metrics.Textfile)); err != nil {
			errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (g *Globals) runContext() context.Context {
	if g.ctx == nil {
		return context.Background()
	}
	return g.ctx
}
