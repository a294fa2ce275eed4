package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_RequiresArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestWatchCmd_InitialIngestThenStopsOnCancel(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	writeTree(t, dir, "a.md", "sub/b.txt", "image.png")

	cancelledWatchContext(t)

	out, _, err := execute(t, "watch", dir)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "sub", "b.txt"),
	}, ts.docs.ingestedPaths())
	assert.Contains(t, out, "Watching 2 directories.")
}

func TestWatchCmd_SkipInitial(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	writeTree(t, dir, "a.md")

	cancelledWatchContext(t)

	_, _, err := execute(t, "watch", dir, "--skip-initial")

	require.NoError(t, err)
	assert.Empty(t, ts.docs.ingestedPaths())
}

func TestWatchCmd_NoService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	documentService = nil

	_, _, err := execute(t, "watch", t.TempDir())

	require.Error(t, err)
	assert.Equal(t, "document service not configured", err.Error())
}

// cancelledWatchContext makes the watch command run with a cancelled
// context so it returns once set up. Cobra keeps a subcommand's context
// between executions, so it is reset afterwards.
func cancelledWatchContext(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	watchCmd.SetContext(ctx)
	t.Cleanup(func() { watchCmd.SetContext(context.Background()) })
}
