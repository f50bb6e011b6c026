package avrogen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := map[string]struct {
		kind Kind
		ok   bool
	}{
		"a/geo.avdl":  {KindIDL, true},
		"geo.avpr":    {KindProtocol, true},
		"x/y/p.avsc":  {KindSchema, true},
		"README.md":   {0, false},
		"noextension": {0, false},
	}
	for path, want := range cases {
		kind, ok := KindOf(path)
		assert.Equal(t, want.ok, ok, path)
		if ok {
			assert.Equal(t, want.kind, kind, path)
			assert.Equal(t, filepath.Ext(path)[1:], kind.Ext())
		}
	}
	assert.Equal(t, "protocol", KindProtocol.String())
}

func TestDocument_BaseName(t *testing.T) {
	assert.Equal(t, "geo", Document{Path: "src/main/avro/geo.avdl"}.BaseName())
	assert.Equal(t, "a.b", Document{Path: "a.b.avsc"}.BaseName())
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.avsc", pointSchema)
	d, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, KindSchema, d.Kind)
	assert.Equal(t, pointSchema, string(d.Content))

	_, err = ReadDocument(filepath.Join(dir, "missing.avsc"))
	ie, ok := AsIOError(err)
	require.True(t, ok)
	assert.True(t, errors.Is(ie, os.ErrNotExist))

	_, err = ReadDocument(writeFile(t, dir, "notes.txt", ""))
	ie, ok = AsIOError(err)
	require.True(t, ok)
	assert.Equal(t, "classify", ie.Op)
}

func TestErrors_UnwrapThroughStage(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", &StageError{Stage: StageEmit, Group: "main", Err: &IOError{Path: "x", Op: "write", Cause: cause}})
	assert.ErrorIs(t, err, cause)
	ie, ok := AsIOError(err)
	require.True(t, ok)
	assert.Equal(t, "write x: boom", ie.Error())
	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, "emit [main]: write x: boom", se.Error())

	_, ok = AsCompileError(nil)
	assert.False(t, ok)
	_, ok = AsTypeConflict(errors.New("plain"))
	assert.False(t, ok)
}
