package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextAtomicCreatesFileAndParents(t *testing.T) {
	target := filepath.Join(t.TempDir(), "sub", "deep", "file.txt")
	require.NoError(t, WriteTextAtomic(target, "hello"))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteTextAtomicLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "file.txt")
	require.NoError(t, WriteTextAtomic(target, "data"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "file.txt", entries[0].Name())
}

func TestWriteJSONAtomicRoundTrips(t *testing.T) {
	target := filepath.Join(t.TempDir(), "state.json")
	type payload struct {
		Phase string `json:"phase"`
	}
	require.NoError(t, WriteJSONAtomic(target, payload{Phase: "build"}))
	var out payload
	found, err := ReadJSON(target, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "build", out.Phase)
}

func TestReadJSONMissingReturnsNotFound(t *testing.T) {
	var out map[string]any
	found, err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWriteTextAtomicOverwritesExisting(t *testing.T) {
	target := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, WriteTextAtomic(target, "first"))
	require.NoError(t, WriteTextAtomic(target, "second"))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
