package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greencoop/weather-etl/internal/adapter/blob"
	"github.com/greencoop/weather-etl/internal/adapter/memory"
	"github.com/greencoop/weather-etl/internal/pipeline"
)

func TestIngester_IngestAll(t *testing.T) {
	ctx := context.Background()
	files := blob.NewLocal(t.TempDir())
	_, err := files.Put(ctx, "data_20241001_000000.jsonl", []byte(bulkLine+"\n"))
	require.NoError(t, err)
	_, err = files.Put(ctx, "data_20241002_000000.jsonl", []byte(singleLine+"\n{oops\n"))
	require.NoError(t, err)
	_, err = files.Put(ctx, "notes.txt", []byte("ignored"))
	require.NoError(t, err)

	store := memory.New()
	stats, err := pipeline.NewIngester(files, newTestLoader(store), discardLogger()).IngestAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.StationsInserted)
	assert.Equal(t, 3, stats.ObservationsInserted)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Errors)

	o, ok := store.Observation("X1", "2024-10-01T00:00:00Z")
	require.True(t, ok)
	assert.Equal(t, "data_20241002_000000", o.Source)
}

func TestIngester_CorruptCompressedFile(t *testing.T) {
	ctx := context.Background()
	files := blob.NewLocal(t.TempDir())
	_, err := files.Put(ctx, "bad.jsonl.zst", []byte("not zstd"))
	require.NoError(t, err)

	stats, err := pipeline.NewIngester(files, newTestLoader(memory.New()), discardLogger()).IngestAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Zero(t, stats.Files)
}

func TestIngester_EmptyStore(t *testing.T) {
	stats, err := pipeline.NewIngester(blob.NewLocal(t.TempDir()+"/absent"), newTestLoader(memory.New()), discardLogger()).
		IngestAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.LoadStats{}, stats)
}
