package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerFilesCmd_ServesWithoutApp(t *testing.T) {
	app = nil
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "todo.md"), []byte("# Todo\n\nWrite docs."), 0o644))

	request := `{"id":1,"method":"tools/call","params":{"name":"fetch_items","arguments":{"limit":5}}}` + "\n"
	out, err := execute(t, request, "worker", "files", root)
	require.NoError(t, err)

	assert.Contains(t, out, "files tool server running on stdio")
	assert.Contains(t, out, `"id":1`)
	assert.Contains(t, out, `"id":"todo.md"`)
	assert.Contains(t, out, `"title":"Todo"`)
}

func TestWorkerFilesCmd_ListTools(t *testing.T) {
	app = nil
	request := `{"id":7,"method":"tools/list"}` + "\n"

	out, err := execute(t, request, "worker", "files", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"fetch_items"`)
	assert.Contains(t, out, `"name":"live_items"`)
}

func TestWorkerGitHubCmd_RequiresRepo(t *testing.T) {
	app = nil
	t.Setenv("GITHUB_REPO", "")

	_, err := execute(t, "", "worker", "github")
	assert.Error(t, err)
}

func TestWorkerGitHubCmd_RejectsBadContent(t *testing.T) {
	app = nil

	_, err := execute(t, "", "worker", "github", "--repo", "acme/widgets", "--content", "wikis")
	assert.Error(t, err)
}
