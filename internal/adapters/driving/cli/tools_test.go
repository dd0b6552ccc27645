package cli

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

func TestToolsCmd_StatusNoProviders(t *testing.T) {
	setupTestApp(t, nil)

	out, err := execute(t, "", "tools", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No tool providers configured.")
}

func TestToolsCmd_Status(t *testing.T) {
	tools := &fakeTools{status: []domain.ToolServerStatus{
		{Name: "notes", Ready: true, PID: 4242, StartedAt: time.Now().Add(-time.Minute), RSSBytes: 8 << 20},
		{Name: "github", Err: errors.New("startup timed out")},
	}}
	a := setupTestApp(t, tools)
	a.Settings.Tools = []domain.ToolProviderSettings{{Name: "notes", Command: "n"}, {Name: "github", Command: "g"}}

	out, err := execute(t, "", "tools", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "pid 4242")
	assert.Contains(t, out, "rss 8.0 MiB")
	assert.Contains(t, out, "github       down: startup timed out")
}

func TestFormatToolStatus_NotRunning(t *testing.T) {
	assert.Equal(t, "  files        down: not running", formatToolStatus(newStyles(io.Discard), domain.ToolServerStatus{Name: "files"}))
}

func TestToolsCmd_List(t *testing.T) {
	setupTestApp(t, syncTools())

	out, err := execute(t, "", "tools", "list", "notes")
	require.NoError(t, err)
	assert.Contains(t, out, "fetch_items")
	assert.Contains(t, out, "live_items")

	_, err = execute(t, "", "tools", "list", "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestToolsCmd_Call(t *testing.T) {
	tools := &fakeTools{raw: json.RawMessage(`{"items":[{"id":"a"}]}`)}
	setupTestApp(t, tools)

	out, err := execute(t, "", "tools", "call", "notes", "fetch_items", `{"limit": 1}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "a"`)
	assert.Equal(t, []string{"notes/fetch_items"}, tools.calls)
}

func TestToolsCmd_CallBadArgs(t *testing.T) {
	setupTestApp(t, &fakeTools{})

	_, err := execute(t, "", "tools", "call", "notes", "fetch_items", `[1, 2]`)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
