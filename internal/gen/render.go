package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"strings"

	"github.com/reoring/avrogen/internal/ir"
)

// RenderFile renders the declarations of f as a gofmt-ed Go source file.
func RenderFile(f File) ([]byte, error) {
	r := &renderer{imports: map[string]bool{}}
	var body bytes.Buffer
	for _, d := range f.Decls {
		if err := r.decl(&body, d); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	out.WriteString("// Code generated by avrogen. DO NOT EDIT.\n")
	if f.Source != "" {
		fmt.Fprintf(&out, "// source: %s\n", f.Source)
	}
	fmt.Fprintf(&out, "\npackage %s\n\n", PackageName(f.Package))
	if len(r.imports) > 0 {
		paths := make([]string, 0, len(r.imports))
		for p := range r.imports {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		out.WriteString("import (\n")
		for _, p := range paths {
			fmt.Fprintf(&out, "\t%q\n", p)
		}
		out.WriteString(")\n\n")
	}
	out.Write(body.Bytes())

	src, err := format.Source(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("gen: format: %w", err)
	}
	return src, nil
}

type renderer struct {
	imports map[string]bool
}

func (r *renderer) decl(w *bytes.Buffer, d ir.Decl) error {
	name := ir.DeclName(d.Node)
	if name.GoName == "" {
		return fmt.Errorf("gen: declaration without a name (%T)", d.Node)
	}
	switch n := d.Node.(type) {
	case *ir.Object:
		writeDoc(w, name, n.Doc)
		fmt.Fprintf(w, "type %s struct {\n", name.GoName)
		used := map[string]bool{"AvroSchema": true}
		if n.IsError {
			used["Error"] = true
		}
		for _, f := range n.Fields {
			if f.Doc != "" {
				writeComment(w, "\t", f.Doc)
			}
			fmt.Fprintf(w, "\t%s %s `avro:%q`\n", fieldName(f.Name, used), r.goType(f.Schema), f.Name)
		}
		w.WriteString("}\n\n")
		if n.IsError {
			fmt.Fprintf(w, "func (e *%s) Error() string { return %q }\n\n", name.GoName, name.Full)
		}
	case *ir.Enum:
		writeDoc(w, name, n.Doc)
		fmt.Fprintf(w, "type %s string\n\n", name.GoName)
		if len(n.Symbols) > 0 {
			w.WriteString("const (\n")
			for _, sym := range n.Symbols {
				fmt.Fprintf(w, "\t%s%s %s = %q\n", name.GoName, exported(sym), name.GoName, sym)
			}
			w.WriteString(")\n\n")
		}
		if n.Default != "" {
			fmt.Fprintf(w, "// %sDefault is the symbol readers use for unknown values.\n", name.GoName)
			fmt.Fprintf(w, "const %sDefault = %s%s\n\n", name.GoName, name.GoName, exported(n.Default))
		}
	case *ir.Fixed:
		writeDoc(w, name, n.Doc)
		fmt.Fprintf(w, "type %s [%d]byte\n\n", name.GoName, n.Size)
	default:
		return fmt.Errorf("gen: unsupported declaration %T", d.Node)
	}
	fmt.Fprintf(w, "// %sSchema is the Avro parsing canonical form of %s.\n", name.GoName, name.Full)
	fmt.Fprintf(w, "const %sSchema = %s\n\n", name.GoName, strconv.Quote(d.Schema))
	fmt.Fprintf(w, "// AvroSchema returns %sSchema.\n", name.GoName)
	fmt.Fprintf(w, "func (%s) AvroSchema() string { return %sSchema }\n\n", name.GoName, name.GoName)
	return nil
}

func (r *renderer) goType(n ir.Schema) string {
	switch t := n.(type) {
	case *ir.Primitive:
		return r.primitive(t)
	case *ir.Array:
		return "[]" + r.goType(t.Item)
	case *ir.Map:
		return "map[string]" + r.goType(t.Value)
	case *ir.Ref:
		return t.Name.GoName
	case *ir.OneOf:
		if !t.Optional {
			return "any"
		}
		inner := r.goType(t.Variants[0])
		if nilable(inner) {
			return inner
		}
		return "*" + inner
	}
	return "any"
}

func (r *renderer) primitive(p *ir.Primitive) string {
	switch p.Logical {
	case "date", "timestamp-millis", "timestamp-micros":
		r.imports["time"] = true
		return "time.Time"
	case "time-millis", "time-micros":
		r.imports["time"] = true
		return "time.Duration"
	case "decimal":
		if p.Name == "bytes" {
			r.imports["math/big"] = true
			return "*big.Rat"
		}
	}
	switch p.Name {
	case "null":
		return "struct{}"
	case "boolean":
		return "bool"
	case "int":
		return "int32"
	case "long":
		return "int64"
	case "float":
		return "float32"
	case "double":
		return "float64"
	case "bytes":
		return "[]byte"
	case "string":
		return "string"
	}
	return "any"
}

func nilable(goType string) bool {
	return goType == "any" || strings.HasPrefix(goType, "[]") ||
		strings.HasPrefix(goType, "map[") || strings.HasPrefix(goType, "*")
}

// fieldName returns a unique exported Go name for an Avro field.
func fieldName(name string, used map[string]bool) string {
	goName := exported(name)
	for used[goName] {
		goName += "_"
	}
	used[goName] = true
	return goName
}

func writeDoc(w *bytes.Buffer, name ir.Name, doc string) {
	fmt.Fprintf(w, "// %s is the Avro type %s.\n", name.GoName, name.Full)
	if doc != "" {
		w.WriteString("//\n")
		writeComment(w, "", doc)
	}
}

func writeComment(w *bytes.Buffer, indent, text string) {
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimRight(ln, " \t")
		if ln == "" {
			fmt.Fprintf(w, "%s//\n", indent)
			continue
		}
		fmt.Fprintf(w, "%s// %s\n", indent, ln)
	}
}
