// SPDX-License-Identifier: MIT

package listings

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svoss/recplan/internal/plan"
)

func writeShowings(t *testing.T, path string, showings []plan.Showing) {
	t.Helper()
	data, err := json.Marshal(showings)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestFileSource_LoadAndWindow(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSource(dir)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	writeShowings(t, src.Path(), []plan.Showing{
		{ID: "past", ChannelID: "ch1", Title: "Old", Start: now.Add(-3 * time.Hour), End: now.Add(-2 * time.Hour)},
		{ID: "current", ChannelID: "ch1", Title: "Now", Start: now.Add(-time.Hour), End: now.Add(time.Hour)},
		{ID: "future", ChannelID: "ch1", Title: "Soon", Start: now.Add(2 * time.Hour), End: now.Add(3 * time.Hour)},
		{ID: "far", ChannelID: "ch1", Title: "Later", Start: now.Add(48 * time.Hour), End: now.Add(49 * time.Hour)},
	})
	require.NoError(t, src.Load())

	got, err := src.Showings(context.Background(), now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, plan.ShowingID("current"), got[0].ID)
	assert.Equal(t, plan.ShowingID("future"), got[1].ID)
}

func TestFileSource_MissingFileIsEmptyGuide(t *testing.T) {
	src := NewFileSource(t.TempDir())
	require.NoError(t, src.Load())

	got, err := src.Showings(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileSource_BadFileKeepsPreviousGuide(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSource(dir)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	writeShowings(t, src.Path(), []plan.Showing{
		{ID: "s1", ChannelID: "ch1", Title: "Keep", Start: now, End: now.Add(time.Hour)},
	})
	require.NoError(t, src.Load())

	require.NoError(t, os.WriteFile(src.Path(), []byte("{not json"), 0o600))
	require.Error(t, src.Load())

	got, err := src.Showings(context.Background(), now.Add(-time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1, "previous guide survives a corrupt replacement")
}

func TestFileSource_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSource(dir)
	require.NoError(t, src.Load())

	reloaded := make(chan struct{}, 1)
	src.Subscribe(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Watch(ctx))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeShowings(t, src.Path(), []plan.Showing{
		{ID: "s1", ChannelID: "ch1", Title: "Fresh", Start: now, End: now.Add(time.Hour)},
	})

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never reloaded")
	}

	got, err := src.Showings(context.Background(), now.Add(-time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
