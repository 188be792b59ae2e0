package cache

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/simples-batch/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	return NewFileStore(path, testLogger()), path
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)

	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStoreLoadMalformedFile(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	entries, err := store.Load(context.Background())
	require.NoError(t, err, "malformed cache must not abort the run")
	assert.Empty(t, entries)
}

func TestFileStoreRoundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	saved := map[string]models.Status{
		"11222333000181": models.StatusSim,
		"00000000000191": models.StatusNao,
	}
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestFileStoreFiltersUnresolvedStatuses(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, map[string]models.Status{
		"11222333000181": models.StatusSim,
		"22333444000195": models.StatusErro,
		"33444555000109": models.StatusPendente,
	}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Status{"11222333000181": models.StatusSim}, loaded)
}

func TestFileStoreLoadFiltersForeignEntries(t *testing.T) {
	// Hand-edited cache files happen; unknown statuses are skipped on load.
	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"11222333000181":"SIM","22333444000195":"TALVEZ"}`), 0644))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Status{"11222333000181": models.StatusSim}, loaded)
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, map[string]models.Status{"11222333000181": models.StatusSim}))
	require.NoError(t, store.Save(ctx, map[string]models.Status{"00000000000191": models.StatusNao}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Status{"00000000000191": models.StatusNao}, loaded)
}

func TestFileStoreAdmin(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, map[string]models.Status{
		"11222333000181": models.StatusSim,
		"00000000000191": models.StatusNao,
	}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file", stats["backend"])
	assert.Equal(t, 2, stats["entries"])

	require.NoError(t, store.Delete(ctx, "11222333000181"))
	require.NoError(t, store.Delete(ctx, "11222333000181"), "deleting absent key is a no-op")

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Status{"00000000000191": models.StatusNao}, loaded)

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
