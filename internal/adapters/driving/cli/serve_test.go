package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

func TestServeCmd_RequiresSchedule(t *testing.T) {
	setupTestApp(t, nil)

	_, err := execute(t, "", "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.schedule is not set")
}

func TestServeCmd_RequiresProviders(t *testing.T) {
	a := setupTestApp(t, nil)
	a.Settings.Sync.Schedule = "@every 1h"

	_, err := execute(t, "", "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tool providers configured")
}

func TestServeCmd_InvalidSchedule(t *testing.T) {
	a := setupTestApp(t, nil)
	a.Settings.Sync.Schedule = "whenever"
	a.Settings.Tools = []domain.ToolProviderSettings{{Name: "notes", Command: "n"}}

	_, err := execute(t, "", "serve")
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestServeCmd_StopsOnCancel(t *testing.T) {
	a := setupTestApp(t, syncTools())
	a.Settings.Sync.Schedule = "@every 1h"
	a.Settings.Tools = []domain.ToolProviderSettings{{Name: "notes", Command: "n"}}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	serveCmd.SetContext(ctx)
	defer serveCmd.SetContext(context.Background())

	out, err := execute(t, "", "serve")
	assert.NoError(t, err)
	assert.Contains(t, out, `Serving 1 sources on "@every 1h"`)
}
