package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{"creates database in nested directory", filepath.Join(t.TempDir(), "a", "b", "history.db"), false},
		{"handles in-memory database", ":memory:", false},
		{"returns error for invalid path", "/dev/null/history.db", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()

			version, err := store.LatestVersion()
			require.NoError(t, err)
			assert.Equal(t, 1, version)
			assert.Equal(t, tt.dbPath, store.Path())
		})
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Record(context.Background(), &Run{Kind: KindDetect, ArtifactPath: "a.svg"}))
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, kind := range []Kind{KindDetect, KindVerify, KindCapture} {
		run := &Run{
			Kind:         kind,
			ArtifactPath: "shots/menu.svg",
			Context:      "menu",
			Valid:        i != 1,
			Confidence:   0.5 + float64(i)*0.1,
			Summary:      string(kind) + " run",
			Details:      map[string]any{"issues": float64(i)},
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.Record(ctx, run))
		assert.NotEmpty(t, run.ID)
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, KindCapture, runs[0].Kind)
	assert.Equal(t, KindVerify, runs[1].Kind)
	assert.False(t, runs[1].Valid)
	assert.InDelta(t, 0.6, runs[1].Confidence, 1e-9)
	assert.Equal(t, "verify run", runs[1].Summary)
	assert.Equal(t, map[string]any{"issues": 1.0}, runs[1].Details)
	assert.True(t, base.Add(2*time.Minute).Equal(runs[0].CreatedAt))
}

func TestRecordAssignsDefaults(t *testing.T) {
	store := newTestStore(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	run := &Run{Kind: KindCompare, ArtifactPath: "b.svg"}
	require.NoError(t, store.Record(context.Background(), run))
	assert.Len(t, run.ID, 36)
	assert.Equal(t, fixed, run.CreatedAt)

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Details["anything"])
}

func TestForContext(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"menu", "settings", "menu"} {
		require.NoError(t, store.Record(ctx, &Run{Kind: KindVerify, ArtifactPath: name + ".svg", Context: name}))
	}

	runs, err := store.ForContext(ctx, "menu", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = store.ForContext(ctx, "menu", 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	runs, err = store.ForContext(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.True(t, empty.LastRun.IsZero())

	last := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, &Run{Kind: KindDetect, ArtifactPath: "a", Valid: true, Confidence: 1.0, CreatedAt: last.Add(-time.Hour)}))
	require.NoError(t, store.Record(ctx, &Run{Kind: KindDetect, ArtifactPath: "b", Valid: false, Confidence: 0.5, CreatedAt: last}))
	require.NoError(t, store.Record(ctx, &Run{Kind: KindVerify, ArtifactPath: "c", Valid: true, Confidence: 0.6, CreatedAt: last.Add(-2 * time.Hour)}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Valid)
	assert.Equal(t, 1, stats.Invalid)
	assert.InDelta(t, 0.7, stats.AverageConfidence, 1e-9)
	assert.Equal(t, map[Kind]int{KindDetect: 2, KindVerify: 1}, stats.ByKind)
	assert.True(t, last.Equal(stats.LastRun))
}
