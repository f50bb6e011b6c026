package discover

import (
	"errors"
	"io/fs"

	"github.com/reoring/avrogen"
	"github.com/reoring/avrogen/internal/config"
)

// Dependencies builds the dependency set from the configured roots.
func Dependencies(cfg *config.Config) (avrogen.DependencySet, error) {
	roots := make([]string, len(cfg.Dependencies.Roots))
	for i, r := range cfg.Dependencies.Roots {
		roots[i] = cfg.Path(r)
	}
	docs, err := Collect(roots, DefaultWalkOptions())
	if err != nil {
		return avrogen.DependencySet{}, err
	}
	return avrogen.DependencySet{
		Documents:   docs,
		ProtocolDir: cfg.Path(cfg.Dependencies.ProtocolDir),
	}, nil
}

// Groups builds one group per configured group, in configuration order.
// Only documents directly inside a group's source directory belong to it;
// dependency roots are walked recursively.
func Groups(cfg *config.Config) ([]avrogen.Group, error) {
	groups := make([]avrogen.Group, 0, len(cfg.Groups))
	opts := DefaultWalkOptions()
	opts.TopLevelOnly = true
	for _, gc := range cfg.Groups {
		docs, err := Collect([]string{cfg.Path(gc.SourceDir)}, opts)
		if err != nil {
			return nil, err
		}
		groups = append(groups, avrogen.Group{
			Name:        gc.Name,
			Documents:   docs,
			ProtocolDir: cfg.Path(gc.ProtocolDir),
			OutputDir:   cfg.Path(gc.OutputDir),
			Package:     gc.Package,
		})
	}
	return groups, nil
}

// Project returns the dependency set and groups described by cfg.
func Project(cfg *config.Config) (avrogen.DependencySet, []avrogen.Group, error) {
	deps, err := Dependencies(cfg)
	if err != nil {
		return avrogen.DependencySet{}, nil, err
	}
	groups, err := Groups(cfg)
	if err != nil {
		return avrogen.DependencySet{}, nil, err
	}
	return deps, groups, nil
}

func errorsIsNotExist(err error) bool { return errors.Is(err, fs.ErrNotExist) }
