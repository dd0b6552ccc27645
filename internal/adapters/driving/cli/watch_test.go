package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/connectors/filesystem"
)

func TestApplyChange(t *testing.T) {
	a := setupTestApp(t, nil)
	root := t.TempDir()
	src := filesystem.New(root)
	path := filepath.Join(root, "notes", "plan.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# Plan\n\nShip the watcher."), 0o644))

	err := applyChange(t.Context(), a.Ingest, src, filesystem.Change{Type: filesystem.ChangeCreated, Path: path})
	require.NoError(t, err)

	doc, err := a.Ingest.Get(t.Context(), "files:notes/plan.md")
	require.NoError(t, err)
	assert.Equal(t, "Plan", doc.Title)
	assert.Equal(t, filesystem.SourceName, doc.SourceKind)

	require.NoError(t, os.WriteFile(path, []byte("# Plan\n\nShip it twice."), 0o644))
	err = applyChange(t.Context(), a.Ingest, src, filesystem.Change{Type: filesystem.ChangeUpdated, Path: path})
	require.NoError(t, err)
	doc, err = a.Ingest.Get(t.Context(), "files:notes/plan.md")
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "Ship it twice.")

	require.NoError(t, os.Remove(path))
	err = applyChange(t.Context(), a.Ingest, src, filesystem.Change{Type: filesystem.ChangeDeleted, Path: path})
	require.NoError(t, err)
	docs, err := a.Ingest.List(t.Context(), filesystem.SourceName)
	require.NoError(t, err)
	assert.Empty(t, docs)

	err = applyChange(t.Context(), a.Ingest, src, filesystem.Change{Type: filesystem.ChangeDeleted, Path: path})
	assert.NoError(t, err, "deleting an unknown file is not an error")
}

func TestWatchCmd_MissingDir(t *testing.T) {
	setupTestApp(t, nil)

	_, err := execute(t, "", "watch", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
