package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/reoring/avrogen"
	"github.com/reoring/avrogen/internal/discover"
)

// BuildCmd runs the full pipeline.
type BuildCmd struct {
	NoEmit bool `name:"no-emit" help:"Write protocols but skip Go code generation"`
}

func (c *BuildCmd) Run(g *Globals) (err error) {
	ctx := g.runContext()
	s, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	deps, groups, err := discover.Project(s.cfg)
	if err != nil {
		return err
	}
	var emitter avrogen.Emitter
	if s.cfg.EmitEnabled() && !c.NoEmit {
		emitter = avrogen.GoEmitter{}
	}
	res, err := s.pipeline(emitter).Run(ctx, deps, groups)
	if err != nil {
		return err
	}
	for _, gr := range res.Groups {
		fmt.Fprintf(g.Stdout, "%s: %d protocols, %d types -> %s\n",
			gr.Name, len(gr.Protocols), gr.Types.Len(), gr.OutputDir)
	}
	if !res.DidWork {
		fmt.Fprintln(g.Stdout, "nothing to do")
	}
	return nil
}

// IDLCmd compiles IDL files without registering or emitting anything.
type IDLCmd struct {
	Files       []string `arg:"" type:"existingfile" help:"IDL files to compile"`
	Output      string   `short:"o" required:"" type:"path" help:"Directory receiving the protocol files"`
	ImportRoots []string `name:"import-root" short:"I" type:"path" help:"Additional directories searched for imports"`
}

func (c *IDLCmd) Run(g *Globals) error {
	compiler := avrogen.Compiler{Resolver: avrogen.FileResolver{Roots: c.ImportRoots}}
	for _, f := range c.Files {
		doc, err := avrogen.ReadDocument(f)
		if err != nil {
			return err
		}
		if doc.Kind != avrogen.KindIDL {
			return fmt.Errorf("%s: not an IDL document", f)
		}
		out, err := compiler.Compile(g.runContext(), doc, c.Output)
		if err != nil {
			return err
		}
		fmt.Fprintln(g.Stdout, out.Path)
	}
	return nil
}

// TypesCmd registers dependencies and groups and prints every group's types.
type TypesCmd struct {
	Group string `short:"g" help:"Only list this group"`
}

func (c *TypesCmd) Run(g *Globals) (err error) {
	ctx := g.runContext()
	s, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	deps, groups, err := discover.Project(s.cfg)
	if err != nil {
		return err
	}
	res, err := s.pipeline(nil).Run(ctx, deps, groups)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tTYPE\tSOURCE")
	for _, gr := range res.Groups {
		if c.Group != "" && gr.Name != c.Group {
			continue
		}
		for _, d := range gr.Types.Descriptors() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", gr.Name, d.Name(), d.Source)
		}
	}
	return w.Flush()
}
