package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "watches.json")
	store := NewFile(path, zap.NewNop())

	up := true
	item := "vid-42"
	in := []watch.Watch{
		{
			ID:            watch.DeriveID(watch.KindWebsite, "https://example.test", "alerts"),
			Kind:          watch.KindWebsite,
			ResourceKey:   "https://example.test",
			SinkChannel:   "alerts",
			Interval:      5 * time.Minute,
			LastUp:        &up,
			LastCheckedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			CreatedAt:     time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
			Seq:           1,
		},
		{
			ID:          watch.DeriveID(watch.KindVideo, "UCabc", "uploads"),
			Kind:        watch.KindVideo,
			ResourceKey: "UCabc",
			SinkChannel: "uploads",
			Interval:    30 * time.Minute,
			LastItemID:  &item,
			Extra:       "Some Channel",
			Seq:         2,
		},
	}

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, in))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreLoadOrdersBySeq(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watches.json")
	store := NewFile(path, zap.NewNop())

	in := []watch.Watch{
		{ID: "b", Kind: watch.KindStream, ResourceKey: "two", SinkChannel: "c", Seq: 7},
		{ID: "a", Kind: watch.KindStream, ResourceKey: "one", SinkChannel: "c", Seq: 3},
	}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, in))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestFileStoreMissingFileStartsEmpty(t *testing.T) {
	store := NewFile(filepath.Join(t.TempDir(), "nope", "watches.json"), zap.NewNop())
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watches.json")

	for name, payload := range map[string]string{
		"truncated json":      `{"version": 1, "watches": {`,
		"unsupported version": `{"version": 99, "watches": {}}`,
	} {
		require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
		_, err := NewFile(path, zap.NewNop()).Load(context.Background())
		assert.ErrorIs(t, err, watch.ErrCorruptSnapshot, name)
	}
}

func TestFileStoreSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watches.json")
	store := NewFile(path, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []watch.Watch{
		{ID: "a", Kind: watch.KindWebsite, ResourceKey: "one", SinkChannel: "c", Seq: 1},
	}))
	require.NoError(t, store.Save(ctx, []watch.Watch{
		{ID: "b", Kind: watch.KindWebsite, ResourceKey: "two", SinkChannel: "c", Seq: 2},
	}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "watches.json", entries[0].Name())
}
