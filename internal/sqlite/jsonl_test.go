package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadJSONL(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "records.jsonl")
	records := []json.RawMessage{
		json.RawMessage(`{"a":1}`),
		json.RawMessage(`{"b":[1,2]}`),
	}

	require.NoError(t, writeJSONL(path, records))
	got, err := readJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file renamed away")
}

func TestWriteJSONLReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, writeJSONL(path, []json.RawMessage{json.RawMessage(`{"old":true}`)}))
	require.NoError(t, writeJSONL(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteJSONLMissingDir(t *testing.T) {
	err := writeJSONL(filepath.Join(t.TempDir(), "missing", "x.jsonl"), nil)
	assert.Error(t, err)
}

func TestReadJSONLMissingFile(t *testing.T) {
	_, err := readJSONL(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshalJSONL(t *testing.T) {
	parent := 1
	records, err := marshalJSONL([]tabJSON{{WindowID: 2, TabID: 3, ParentTabID: &parent, ChildTabIDs: []int{}}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"window_id":2,"tab_id":3,"url":"","title":"","favicon_url":"",
		"parent_tab_id":1,"child_tab_ids":[],"position":0,"is_collapsed":false,"active":false}`, string(records[0]))
}

func TestInitJSONLFilesKeepsExisting(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, tabsJSONL)
	require.NoError(t, os.WriteFile(existing, []byte("{}\n"), 0o644))

	require.NoError(t, initJSONLFiles(tmpDir))

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
	for _, name := range jsonlFiles {
		assert.FileExists(t, filepath.Join(tmpDir, name))
	}
}
