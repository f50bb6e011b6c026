package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/avrogen"
	"github.com/reoring/avrogen/internal/config"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func paths(docs []avrogen.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = filepath.ToSlash(d.Path)
	}
	return out
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "b.avsc"), "{}")
	write(t, filepath.Join(dir, "a.avdl"), "")
	write(t, filepath.Join(dir, "nested", "c.avpr"), "{}")
	write(t, filepath.Join(dir, ".git", "d.avsc"), "{}")
	write(t, filepath.Join(dir, "skip", "e.avsc"), "{}")
	write(t, filepath.Join(dir, "README.md"), "")

	opts := DefaultWalkOptions()
	opts.ExcludeDirs = []string{"skip"}
	docs, err := Collect([]string{dir, filepath.Join(dir, "b.avsc"), filepath.Join(dir, "missing")}, opts)
	require.NoError(t, err)

	root := filepath.ToSlash(dir)
	assert.Equal(t, []string{root + "/a.avdl", root + "/b.avsc", root + "/nested/c.avpr"}, paths(docs))
	assert.Equal(t, avrogen.KindIDL, docs[0].Kind)
	assert.Equal(t, avrogen.KindSchema, docs[1].Kind)
	assert.Equal(t, avrogen.KindProtocol, docs[2].Kind)
	assert.Nil(t, docs[0].Content)
}

func TestCollect_Kinds(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.avdl"), "")
	write(t, filepath.Join(dir, "b.avsc"), "{}")

	docs, err := Collect([]string{dir}, WalkOptions{Kinds: []avrogen.Kind{avrogen.KindSchema}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, avrogen.KindSchema, docs[0].Kind)
}

func TestCollect_TopLevelOnly(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.avdl"), "")
	write(t, filepath.Join(dir, "nested", "b.avdl"), "")

	opts := DefaultWalkOptions()
	opts.TopLevelOnly = true
	docs, err := Collect([]string{dir}, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.ToSlash(dir) + "/a.avdl"}, paths(docs))
}

func TestProject(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "deps", "common.avsc"), "{}")
	write(t, filepath.Join(dir, "src", "main", "avro", "app.avdl"), "")
	write(t, filepath.Join(dir, "deps", "nested", "money.avsc"), "{}")
	write(t, filepath.Join(dir, "src", "test", "avro", "fixtures.avsc"), "{}")
	write(t, filepath.Join(dir, "src", "test", "avro", "nested", "ignored.avsc"), "{}")

	cfg := config.Default()
	cfg.BaseDir = dir
	cfg.Dependencies.Roots = []string{"deps"}
	cfg.Groups[1].Package = "fixtures"

	deps, groups, err := Project(cfg)
	require.NoError(t, err)
	require.Len(t, deps.Documents, 2)
	assert.Equal(t, filepath.Join(dir, "build", "generated-deps-avro-avpr"), deps.ProtocolDir)

	require.Len(t, groups, 2)
	assert.Equal(t, "main", groups[0].Name)
	require.Len(t, groups[0].Documents, 1)
	assert.Equal(t, "app", groups[0].Documents[0].BaseName())
	assert.Equal(t, filepath.Join(dir, "build", "generated-main-avro-avpr"), groups[0].ProtocolDir)
	assert.Equal(t, filepath.Join(dir, "build", "generated-main-avro-go"), groups[0].OutputDir)
	assert.Equal(t, "fixtures", groups[1].Package)
	require.Len(t, groups[1].Documents, 1)
}

func TestProject_NoSources(t *testing.T) {
	cfg := config.Default()
	cfg.BaseDir = t.TempDir()
	deps, groups, err := Project(cfg)
	require.NoError(t, err)
	assert.Empty(t, deps.Documents)
	require.Len(t, groups, 2)
	assert.Empty(t, groups[0].Documents)
}
