package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendData(t *testing.T) {
	e, err := SendData("run/output.bp", "/archive/run1", "final.bp")
	require.NoError(t, err)
	assert.Equal(t, Entry{InPath: "run/output.bp", OutPath: "/archive/run1", Rename: "final.bp"}, e)
	assert.False(t, e.Link)

	_, err = SendData("run/output.bp", "", "")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = FromInput(app.Input{Path: "data"})
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestManifest_Write(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(filepath.Join(dir, "workflow.done"), "src-endpoint")

	e, err := SendData(filepath.Join(dir, "sim"), "/archive", "")
	require.NoError(t, err)
	d := Destination{ID: "dst-endpoint"}
	d.Add(e)
	m.Set("archive", d)

	path := filepath.Join(dir, FileName)
	require.NoError(t, m.Write(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "src-endpoint", doc["source"])
	assert.Equal(t, "ignore", doc["recursive_symlinks"])
	assert.Equal(t, filepath.Join(dir, "workflow.done"), doc["readyfile"])

	endpoints := doc["endpoints"].(map[string]interface{})
	archive := endpoints["archive"].(map[string]interface{})
	assert.Equal(t, "dst-endpoint", archive["id"])
	paths := archive["paths"].([]interface{})
	require.Len(t, paths, 1)
	entry := paths[0].(map[string]interface{})
	assert.Equal(t, "/archive", entry["outpath"])
	assert.Equal(t, false, entry["link"])

	back, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestManifest_Validate(t *testing.T) {
	m := NewManifest("done", "")
	assert.ErrorIs(t, m.Validate(), errors.ErrInvalidConfig)

	m.Source = "src"
	m.Set("b", Destination{})
	assert.ErrorIs(t, m.Validate(), errors.ErrInvalidConfig)

	m.Set("b", Destination{ID: "x", Paths: []Entry{{InPath: "a"}}})
	assert.ErrorIs(t, m.Validate(), errors.ErrInvalidConfig)

	m.Set("b", Destination{ID: "x", Paths: []Entry{{InPath: "a", OutPath: "/o"}}})
	assert.NoError(t, m.Validate())
	assert.False(t, m.Empty())
	assert.Equal(t, []string{"b"}, m.Names())
}

func TestSourceEndpoint(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "endpoint")

	_, err := SourceEndpoint(file)
	assert.True(t, errors.IsConfigError(err))

	require.NoError(t, os.WriteFile(file, []byte("  abc-123\n"), 0o600))
	id, err := SourceEndpoint(file)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)

	require.NoError(t, os.WriteFile(file, []byte("\n"), 0o600))
	_, err = SourceEndpoint(file)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestSourceEndpoint_HomeExpanded(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".hpcompose-source-endpoint"), []byte("home-id"), 0o600))

	homedir.DisableCache = true
	defer func() { homedir.DisableCache = false }()

	id, err := SourceEndpoint("")
	require.NoError(t, err)
	assert.Equal(t, "home-id", id)
}
