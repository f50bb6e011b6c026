package avrogen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pointSchema      = `{"type":"record","name":"Point","namespace":"geo","fields":[{"name":"x","type":"double"},{"name":"y","type":"double"}]}`
	pointSchema3D    = `{"type":"record","name":"Point","namespace":"geo","fields":[{"name":"x","type":"double"},{"name":"y","type":"double"},{"name":"z","type":"double"}]}`
	pathSchema       = `{"type":"record","name":"Path","namespace":"geo","fields":[{"name":"points","type":{"type":"array","items":"Point"}}]}`
	lineIDL          = `@namespace("geo") protocol Lines { import schema "point.avsc"; record Line { Point a; Point b; } }`
	routeSchema      = `{"type":"record","name":"Route","namespace":"nav","fields":[{"name":"legs","type":{"type":"array","items":"geo.Line"}}]}`
	shapeIDL         = `@namespace("draw") protocol Shapes { record Shape { string label; } Shape draw(Shape s); }`
	brokenIDL        = `protocol Broken { record R { int x }`
	undefinedRefIDL  = `protocol Bad { record R { geo.Missing m; } }`
	circleSchema     = `{"type":"record","name":"Circle","namespace":"draw","fields":[{"name":"center","type":"geo.Point"},{"name":"r","type":"double"}]}`
	forwardRefSchema = `{"type":"record","name":"A","namespace":"fwd","fields":[{"name":"b","type":"B"}]}`
	forwardTarget    = `{"type":"record","name":"B","namespace":"fwd","fields":[{"name":"v","type":"int"}]}`
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readDoc(t *testing.T, path string) Document {
	t.Helper()
	d, err := ReadDocument(path)
	require.NoError(t, err)
	return d
}

type recordingEmitter struct {
	requests []EmitRequest
}

func (e *recordingEmitter) Emit(_ context.Context, req EmitRequest) error {
	e.requests = append(e.requests, req)
	return nil
}

func newTestPipeline(em Emitter) *Pipeline {
	return NewPipeline(PipelineOptions{
		Emitter:     em,
		Concurrency: 4,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		RunID:       "test-run",
	})
}

func TestRun_ScenarioB_DependencyTypesVisibleToGroups(t *testing.T) {
	dir := t.TempDir()
	deps := DependencySet{Documents: []Document{readDoc(t, writeFile(t, dir, "deps/point.avsc", pointSchema))}}
	main := Group{Name: "main", Documents: []Document{readDoc(t, writeFile(t, dir, "src/path.avsc", pathSchema))}}

	em := &recordingEmitter{}
	res, err := newTestPipeline(em).Run(context.Background(), deps, []Group{main})
	require.NoError(t, err)
	assert.Equal(t, "test-run", res.RunID)
	assert.True(t, res.DidWork)

	gr, ok := res.Group("main")
	require.True(t, ok)
	assert.Equal(t, []string{"geo.Point", "geo.Path"}, gr.Types.Names())
	assert.Equal(t, []string{"geo.Point"}, res.Dependencies.Names())

	require.Len(t, em.requests, 1)
	assert.Equal(t, "main", em.requests[0].Group)
	assert.Equal(t, "mainavro", em.requests[0].Package)
	assert.Equal(t, gr.Types.Names(), em.requests[0].Types.Names())
}

func TestRun_ScenarioC_IdenticalRedefinition(t *testing.T) {
	dir := t.TempDir()
	deps := DependencySet{Documents: []Document{readDoc(t, writeFile(t, dir, "deps/point.avsc", pointSchema))}}
	main := Group{Name: "main", Documents: []Document{
		readDoc(t, writeFile(t, dir, "src/point.avsc", pointSchema)),
		readDoc(t, writeFile(t, dir, "src/path.avsc", pathSchema)),
	}}

	res, err := newTestPipeline(nil).Run(context.Background(), deps, []Group{main})
	require.NoError(t, err)
	gr, _ := res.Group("main")
	assert.Equal(t, []string{"geo.Point", "geo.Path"}, gr.Types.Names())
	d, _ := gr.Types.Lookup("geo.Point")
	assert.Equal(t, deps.Documents[0].Path, d.Source)
}

func TestRun_ScenarioC_ConflictingRedefinition(t *testing.T) {
	dir := t.TempDir()
	deps := DependencySet{Documents: []Document{readDoc(t, writeFile(t, dir, "deps/point.avsc", pointSchema))}}
	main := Group{Name: "main", Documents: []Document{readDoc(t, writeFile(t, dir, "src/point.avsc", pointSchema3D))}}

	em := &recordingEmitter{}
	_, err := newTestPipeline(em).Run(context.Background(), deps, []Group{main})
	te, ok := AsTypeConflict(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "geo.Point", te.Name)
	assert.Equal(t, deps.Documents[0].Path, te.ExistingSource)
	assert.Equal(t, main.Documents[0].Path, te.Source)
	assert.Contains(t, te.Diff, `"name" : "z"`)

	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, StageRegisterGroupTypes, se.Stage)
	assert.Equal(t, "main", se.Group)
	assert.Empty(t, em.requests)
}

func TestRun_TransitiveDependencyVisibility(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deps/point.avsc", pointSchema)
	deps := DependencySet{
		Documents: []Document{
			readDoc(t, writeFile(t, dir, "deps/lines.avdl", lineIDL)),
			readDoc(t, filepath.Join(dir, "deps/point.avsc")),
		},
		ProtocolDir: filepath.Join(dir, "build/generated-deps-avro-avpr"),
	}
	main := Group{Name: "main", Documents: []Document{readDoc(t, writeFile(t, dir, "src/route.avsc", routeSchema))}}

	res, err := newTestPipeline(nil).Run(context.Background(), deps, []Group{main})
	require.NoError(t, err)

	// stage-1 outputs register before the dependency documents
	assert.Equal(t, []string{"geo.Point", "geo.Line"}, res.Dependencies.Names())
	gr, _ := res.Group("main")
	assert.Equal(t, []string{"geo.Point", "geo.Line", "nav.Route"}, gr.Types.Names())

	require.Len(t, res.DependencyProtocols, 1)
	assert.Equal(t, filepath.Join(deps.ProtocolDir, "lines.avpr"), res.DependencyProtocols[0].Path)
	_, err = os.Stat(res.DependencyProtocols[0].Path)
	require.NoError(t, err)
}

func TestRun_GroupsWithIDLAndEmission(t *testing.T) {
	dir := t.TempDir()
	deps := DependencySet{Documents: []Document{readDoc(t, writeFile(t, dir, "deps/point.avsc", pointSchema))}}
	main := Group{
		Name: "main",
		Documents: []Document{
			readDoc(t, writeFile(t, dir, "src/main/avro/shapes.avdl", shapeIDL)),
			readDoc(t, writeFile(t, dir, "src/main/avro/circle.avsc", circleSchema)),
		},
		ProtocolDir: filepath.Join(dir, "build/generated-main-avro-avpr"),
		OutputDir:   filepath.Join(dir, "build/generated-main-avro-go"),
	}
	test := Group{
		Name:        "test",
		Documents:   []Document{readDoc(t, writeFile(t, dir, "src/test/avro/path.avsc", pathSchema))},
		ProtocolDir: filepath.Join(dir, "build/generated-test-avro-avpr"),
		OutputDir:   filepath.Join(dir, "build/generated-test-avro-go"),
	}

	res, err := newTestPipeline(GoEmitter{}).Run(context.Background(), deps, []Group{main, test})
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, "main", res.Groups[0].Name)
	assert.Equal(t, "test", res.Groups[1].Name)

	// local documents first, then compiled protocols
	assert.Equal(t, []string{"geo.Point", "draw.Circle", "draw.Shape"}, res.Groups[0].Types.Names())
	assert.Equal(t, []string{"geo.Point", "geo.Path"}, res.Groups[1].Types.Names())
	_, leaked := res.Groups[1].Types.Lookup("draw.Shape")
	assert.False(t, leaked, "groups are independent")

	avpr := filepath.Join(main.ProtocolDir, "shapes.avpr")
	b, err := os.ReadFile(avpr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "{\n  \"protocol\" : \"Shapes\""))

	code, err := os.ReadFile(filepath.Join(main.OutputDir, "main_avro.go"))
	require.NoError(t, err)
	assert.Contains(t, string(code), "package mainavro")
	assert.Contains(t, string(code), "type Circle struct {")
	_, err = os.Stat(filepath.Join(test.OutputDir, "test_avro.go"))
	require.NoError(t, err)
}

func TestRun_ForwardReferencesAcrossSchemaFiles(t *testing.T) {
	dir := t.TempDir()
	main := Group{Name: "main", Documents: []Document{
		readDoc(t, writeFile(t, dir, "a.avsc", forwardRefSchema)),
		readDoc(t, writeFile(t, dir, "b.avsc", forwardTarget)),
	}}
	res, err := newTestPipeline(nil).Run(context.Background(), DependencySet{}, []Group{main})
	require.NoError(t, err)
	assert.Equal(t, []string{"fwd.B", "fwd.A"}, res.Groups[0].Types.Names())
}

func TestRun_UnresolvableReference(t *testing.T) {
	dir := t.TempDir()
	main := Group{Name: "main", Documents: []Document{readDoc(t, writeFile(t, dir, "a.avsc", forwardRefSchema))}}
	_, err := newTestPipeline(nil).Run(context.Background(), DependencySet{}, []Group{main})
	ce, ok := AsCompileError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, main.Documents[0].Path, ce.Path)
	assert.Contains(t, ce.Diagnostic, "fwd.B")
}

func TestRun_CompileFailureAbortsAllEmission(t *testing.T) {
	dir := t.TempDir()
	main := Group{Name: "main", Documents: []Document{readDoc(t, writeFile(t, dir, "main/point.avsc", pointSchema))}}
	test := Group{Name: "test", Documents: []Document{readDoc(t, writeFile(t, dir, "test/broken.avdl", brokenIDL))}}

	em := &recordingEmitter{}
	_, err := newTestPipeline(em).Run(context.Background(), DependencySet{}, []Group{main, test})
	ce, ok := AsCompileError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, test.Documents[0].Path, ce.Path)
	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, StageCompileGroupProtocols, se.Stage)
	assert.Equal(t, "test", se.Group)
	assert.Empty(t, em.requests)
}

func TestRun_DependencyCompileFailure(t *testing.T) {
	dir := t.TempDir()
	deps := DependencySet{Documents: []Document{
		readDoc(t, writeFile(t, dir, "deps/ok.avdl", shapeIDL)),
		readDoc(t, writeFile(t, dir, "deps/bad.avdl", undefinedRefIDL)),
	}}
	_, err := newTestPipeline(nil).Run(context.Background(), deps, nil)
	ce, ok := AsCompileError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, deps.Documents[1].Path, ce.Path)
	assert.Contains(t, ce.Error(), "failed to compile")
	se, _ := AsStageError(err)
	assert.Equal(t, StageCompileDependencyProtocols, se.Stage)
}

func TestRun_IDLImportsThroughResolverRoots(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared/point.avsc", pointSchema)
	main := Group{Name: "main", Documents: []Document{readDoc(t, writeFile(t, dir, "src/lines.avdl", lineIDL))}}

	_, err := newTestPipeline(nil).Run(context.Background(), DependencySet{}, []Group{main})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedImport))

	p := NewPipeline(PipelineOptions{
		Resolver: FileResolver{Roots: []string{filepath.Join(dir, "shared")}},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	res, err := p.Run(context.Background(), DependencySet{}, []Group{main})
	require.NoError(t, err)
	assert.Equal(t, []string{"geo.Point", "geo.Line"}, res.Groups[0].Types.Names())
	assert.NotEmpty(t, res.RunID)
}

func TestRun_Determinism(t *testing.T) {
	dir := t.TempDir()
	deps := DependencySet{Documents: []Document{readDoc(t, writeFile(t, dir, "deps/point.avsc", pointSchema))}}
	main := Group{Name: "main", Documents: []Document{
		readDoc(t, writeFile(t, dir, "src/shapes.avdl", shapeIDL)),
		readDoc(t, writeFile(t, dir, "src/circle.avsc", circleSchema)),
		readDoc(t, writeFile(t, dir, "src/path.avsc", pathSchema)),
	}}

	var runs [][]Descriptor
	for i := 0; i < 3; i++ {
		res, err := newTestPipeline(nil).Run(context.Background(), deps, []Group{main})
		require.NoError(t, err)
		runs = append(runs, res.Groups[0].Types.Descriptors())
	}
	for _, run := range runs[1:] {
		require.Len(t, run, len(runs[0]))
		for i := range run {
			assert.Equal(t, runs[0][i].Name(), run[i].Name())
			assert.Equal(t, runs[0][i].Type.CanonicalJSON(), run[i].Type.CanonicalJSON())
		}
	}
}

func TestRun_NoDocuments(t *testing.T) {
	res, err := newTestPipeline(nil).Run(context.Background(), DependencySet{}, []Group{{Name: "main"}})
	require.NoError(t, err)
	assert.False(t, res.DidWork)
	assert.False(t, res.Groups[0].DidWork)
	assert.Equal(t, 0, res.Groups[0].Types.Len())
}

func TestRun_InvalidGroups(t *testing.T) {
	_, err := newTestPipeline(nil).Run(context.Background(), DependencySet{}, []Group{{Name: "main"}, {Name: "main"}})
	assert.ErrorContains(t, err, "duplicate group")
	_, err = newTestPipeline(nil).Run(context.Background(), DependencySet{}, []Group{{}})
	assert.ErrorContains(t, err, "without a name")
}

func TestRun_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	main := Group{Name: "main", Documents: []Document{readDoc(t, writeFile(t, dir, "a.avsc", pointSchema))}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestPipeline(nil).Run(ctx, DependencySet{}, []Group{main})
	assert.ErrorIs(t, err, context.Canceled)
}
