package gen

import (
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/reoring/avrogen/internal/avro"
	"github.com/reoring/avrogen/internal/idl"
	ir "github.com/reoring/avrogen/internal/ir"
)

const shopIDL = `@namespace("shop")
protocol Shop {
  /** Paint colors. */
  enum Color { RED, GREEN } = RED;
  fixed MD5(16);
  record Item {
    string sku;
    array<string> tags;
    map<long> counts;
    Color? color;
    MD5 hash;
    decimal(9, 2) price;
    timestamp_ms updated;
    union { null, array<int> } lots;
    union { int, string } code;
  }
  error Rejected { string reason; string error; }
}`

func buildShop(t *testing.T) File {
	t.Helper()
	p, err := idl.Compile("shop.avdl", []byte(shopIDL), nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	natives := make([]any, 0, len(p.Types))
	for _, s := range p.Types {
		natives = append(natives, s)
	}
	f, err := Build("main", natives)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return f
}

func parseSchema(t *testing.T, names *avro.Names, src string) *avro.Schema {
	t.Helper()
	s, err := avro.ParseSchema([]byte(src), names)
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return s
}

func TestRenderFile_Minimal(t *testing.T) {
	out, err := RenderFile(File{Package: "foo"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(string(out), "package foo") {
		t.Fatalf("missing package clause:\n%s", out)
	}
}

func TestBuild_Declarations(t *testing.T) {
	f := buildShop(t)
	if f.Package != "main" {
		t.Fatalf("package = %q", f.Package)
	}
	if len(f.Decls) != 4 {
		t.Fatalf("decls = %d, want 4", len(f.Decls))
	}

	enum, ok := f.Decls[0].Node.(*ir.Enum)
	if !ok {
		t.Fatalf("decl 0 is %T, want *ir.Enum", f.Decls[0].Node)
	}
	if enum.Name != (ir.Name{Full: "shop.Color", GoName: "Color"}) || enum.Default != "RED" {
		t.Fatalf("unexpected enum: %+v", enum)
	}

	obj, ok := f.Decls[2].Node.(*ir.Object)
	if !ok {
		t.Fatalf("decl 2 is %T, want *ir.Object", f.Decls[2].Node)
	}
	if len(obj.Fields) != 9 {
		t.Fatalf("Item fields = %d, want 9", len(obj.Fields))
	}
	color, ok := obj.Fields[3].Schema.(*ir.OneOf)
	if !ok || !color.Optional {
		t.Fatalf("color should be an optional union, got %#v", obj.Fields[3].Schema)
	}
	if !reflect.DeepEqual(color.Variants[0], &ir.Ref{Name: enum.Name}) {
		t.Fatalf("color variant = %#v", color.Variants[0])
	}

	rejected, ok := f.Decls[3].Node.(*ir.Object)
	if !ok || !rejected.IsError {
		t.Fatalf("Rejected should be an error object, got %#v", f.Decls[3].Node)
	}
}

func TestRenderFile_Shop(t *testing.T) {
	out, err := RenderFile(buildShop(t))
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	src := string(out)

	if _, err := parser.ParseFile(token.NewFileSet(), "shop_avro.go", out, parser.ParseComments); err != nil {
		t.Fatalf("generated code does not parse: %v\n%s", err, src)
	}

	for _, want := range []string{
		"// Code generated by avrogen. DO NOT EDIT.",
		"package main",
		`"math/big"`,
		`"time"`,
		"// Color is the Avro type shop.Color.",
		"// Paint colors.",
		"type Color string",
		`ColorRED   Color = "RED"`,
		"const ColorDefault = ColorRED",
		"type MD5 [16]byte",
		"type Item struct {",
		"*Color",
		"*big.Rat",
		"time.Time",
		"map[string]int64",
		"[]int32",
		`avro:"error"`,
		"Error_",
		`func (e *Rejected) Error() string { return "shop.Rejected" }`,
		"func (Item) AvroSchema() string { return ItemSchema }",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(src, "*[]int32") {
		t.Errorf("optional slice should not be a pointer")
	}
}

func TestCanonicalSchema(t *testing.T) {
	s := parseSchema(t, avro.NewNames(nil), `{"type":"record","name":"Point","namespace":"geo","doc":"A point.","fields":[{"name":"x","type":"double"},{"name":"y","type":"double"}]}`)
	canon, err := CanonicalSchema(s)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	want := `{"name":"geo.Point","type":"record","fields":[{"name":"x","type":"double"},{"name":"y","type":"double"}]}`
	if canon != want {
		t.Fatalf("canonical mismatch:\n got: %s\nwant: %s", canon, want)
	}

	f, err := Build("geo", []any{s})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out, err := RenderFile(f)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), "const PointSchema = "+strconv.Quote(canon)) {
		t.Fatalf("schema constant missing:\n%s", out)
	}
}

func TestCanonicalSchema_ErrorAsRecord(t *testing.T) {
	p, err := idl.Compile("e.avdl", []byte(`protocol P { error Oops { string why; } }`), nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	canon, err := CanonicalSchema(p.Types[0])
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if !strings.Contains(canon, `"type":"record"`) {
		t.Fatalf("error type should be written as record: %s", canon)
	}
}

func TestBuild_Collisions(t *testing.T) {
	names := avro.NewNames(nil)
	a := parseSchema(t, names, `{"type":"fixed","name":"Id","namespace":"a.b","size":4}`)
	b := parseSchema(t, names, `{"type":"fixed","name":"Id","namespace":"c","size":8}`)
	f, err := Build("x", []any{a, b})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := ir.DeclName(f.Decls[0].Node).GoName; got != "ABId" {
		t.Fatalf("first name = %q, want ABId", got)
	}
	if got := ir.DeclName(f.Decls[1].Node).GoName; got != "CId" {
		t.Fatalf("second name = %q, want CId", got)
	}

	if _, err := Build("x", []any{"not a schema"}); err == nil {
		t.Fatalf("expected error for a non-schema native")
	}
}

func TestPackageName(t *testing.T) {
	cases := map[string]string{
		"mainavro":         "mainavro",
		"Integration-Test": "integrationtest",
		"1x":               "avro1x",
		"--":               "avro",
	}
	for in, want := range cases {
		if got := PackageName(in); got != want {
			t.Errorf("PackageName(%q) = %q, want %q", in, got, want)
		}
	}
}
