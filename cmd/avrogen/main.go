// Command avrogen compiles Avro IDL, protocol and schema documents into Go
// bindings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	Config  string `short:"c" help:"Configuration file path (default: avrogen.yaml when present)" type:"path"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
	ctx    context.Context
}

// CLI is the command tree.
type CLI struct {
	Globals

	Build BuildCmd `cmd:"" default:"1" help:"Compile dependencies and groups, then generate Go bindings"`
	IDL   IDLCmd   `cmd:"" name:"idl" help:"Compile IDL files to protocol files"`
	Types TypesCmd `cmd:"" help:"Register every type without generating code and list them"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "avrogen:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("avrogen"),
		kong.Description("Dependency-aware Avro code generator."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cli.Stdout, cli.Stderr, cli.ctx = stdout, stderr, ctx
	return kctx.Run(&cli.Globals)
}
