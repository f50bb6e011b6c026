package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/avrogen/internal/config"
)

const (
	pointSchema = `{"type":"record","name":"Point","namespace":"geo","fields":[{"name":"x","type":"double"},{"name":"y","type":"double"}]}`
	lineIDL     = `@namespace("geo") protocol Lines { import schema "point.avsc"; record Line { Point a; Point b; } }`
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func project(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	writeFile(t, dir, "deps/point.avsc", pointSchema)
	writeFile(t, dir, "src/main/avro/lines.avdl", lineIDL)
	cfgPath = writeFile(t, dir, "avrogen.yaml", `
dependencies:
  roots: [deps]
import_roots: [deps]
groups:
  - name: main
logging:
  level: error
metrics:
  textfile: build/avrogen.prom
`)
	return dir, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestBuild(t *testing.T) {
	dir, cfg := project(t)

	out, err := execute(t, "--config", cfg, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "main: 1 protocols, 2 types")

	assert.FileExists(t, filepath.Join(dir, "build", "generated-main-avro-avpr", "lines.avpr"))
	src, err := os.ReadFile(filepath.Join(dir, "build", "generated-main-avro-go", "main_avro.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package mainavro")
	assert.Contains(t, string(src), "type Line struct")

	metrics, err := os.ReadFile(filepath.Join(dir, "build", "avrogen.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "avrogen_run_outcomes_total")
}

func TestBuild_ImportsFromDependencyRoots(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deps/point.avsc", pointSchema)
	writeFile(t, dir, "src/main/avro/lines.avdl", lineIDL)
	cfg := writeFile(t, dir, "avrogen.yaml", `
dependencies:
  roots: [deps]
groups:
  - name: main
logging:
  level: error
`)

	out, err := execute(t, "--config", cfg, "build", "--no-emit")
	require.NoError(t, err)
	assert.Contains(t, out, "main: 1 protocols, 2 types")
	assert.FileExists(t, filepath.Join(dir, "build", "generated-main-avro-avpr", "lines.avpr"))
}

func TestImportRoots(t *testing.T) {
	cfg := config.Default()
	cfg.BaseDir = "/work"
	cfg.ImportRoots = []string{"shared", "deps"}
	cfg.Dependencies.Roots = []string{"deps", "/vendor/avro"}

	assert.Equal(t, []string{
		filepath.Join("/work", "shared"),
		filepath.Join("/work", "deps"),
		"/vendor/avro",
		filepath.Join("/work", "build", "generated-deps-avro-avpr"),
	}, importRoots(cfg))
}

func TestBuild_NoEmit(t *testing.T) {
	dir, cfg := project(t)
	_, err := execute(t, "--config", cfg, "build", "--no-emit")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "build", "generated-main-avro-avpr", "lines.avpr"))
	assert.NoFileExists(t, filepath.Join(dir, "build", "generated-main-avro-go", "main_avro.go"))
}

func TestTypes(t *testing.T) {
	_, cfg := project(t)
	out, err := execute(t, "--config", cfg, "types", "--group", "main")
	require.NoError(t, err)
	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "geo.Point")
	assert.Contains(t, out, "geo.Line")
}

func TestIDL(t *testing.T) {
	dir, _ := project(t)
	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "idl", "-I", filepath.Join(dir, "deps"), "-o", outDir,
		filepath.Join(dir, "src", "main", "avro", "lines.avdl"))
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(outDir, "lines.avpr"))
	assert.FileExists(t, filepath.Join(outDir, "lines.avpr"))
}

func TestIDL_RejectsNonIDL(t *testing.T) {
	dir, _ := project(t)
	_, err := execute(t, "idl", "-o", t.TempDir(), filepath.Join(dir, "deps", "point.avsc"))
	assert.ErrorContains(t, err, "not an IDL document")
}

func TestBuild_MissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "build")
	assert.ErrorContains(t, err, "configuration file not found")
}
