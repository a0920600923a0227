package storage_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/voxel-builder/internal/config"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/storage"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world"
	"github.com/annel0/voxel-builder/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetLogDir("")
	os.Exit(m.Run())
}

func sampleSnapshot() snapshot.Snapshot {
	ed := world.NewEditor()
	ed.SetBlock(vec.Vec3{X: 1}, block.New(block.Stone))
	ed.SetBlock(vec.Vec3{Y: 4}, block.New(block.Wood))
	return snapshot.Take(ed)
}

func TestSnapshotFile_Formats(t *testing.T) {
	dir := t.TempDir()
	snap := sampleSnapshot()

	for _, name := range []string{"house" + ExtJSON, "house" + ExtZstd} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			n, err := WriteSnapshotFile(path, snap)
			require.NoError(t, err)
			assert.Positive(t, n)

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, filepath.Ext(name) == ".zst", snapshot.IsCompressed(raw))

			got, err := ReadSnapshotFile(path)
			require.NoError(t, err)
			assert.Equal(t, snap, got)

			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "временный файл не остается")
		})
	}
}

func TestReadSnapshotFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSnapshotFile(filepath.Join(dir, "missing.vox.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.vox.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":1}`), 0644))
	_, err = ReadSnapshotFile(bad)
	assert.ErrorIs(t, err, snapshot.ErrInvalidSnapshot)
}

func TestFileSlotStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileSlotStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "castle", []byte("v1")))
	require.NoError(t, s.Put(ctx, "castle", []byte("v2")))
	require.NoError(t, s.Put(ctx, "arch", []byte("a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	data, err := s.Get(ctx, "castle")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"arch", "castle"}, names)

	assert.ErrorIs(t, s.Put(ctx, "../escape", []byte("x")), storage.ErrInvalidSlotName)
	_, err = s.Get(ctx, "ghost")
	assert.ErrorIs(t, err, storage.ErrSlotNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "ghost"), storage.ErrSlotNotFound)

	require.NoError(t, s.Delete(ctx, "arch"))
	stats := s.GetStorageStats()
	assert.Equal(t, 1, stats["stored_files"])
	assert.Equal(t, int64(2), stats["total_bytes"])

	require.NoError(t, s.Close())
	_, err = s.Get(ctx, "castle")
	assert.ErrorIs(t, err, storage.ErrNotReady)
}

func TestFileSlotStore_WithSaveManager(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileSlotStore(t.TempDir())
	require.NoError(t, err)
	m := storage.NewSaveManager(s, storage.WithCompression(true))

	_, err = m.SaveSlot(ctx, "bridge", sampleSnapshot())
	require.NoError(t, err)

	ed := world.NewEditor()
	n, err := m.LoadSlot(ctx, "bridge", ed, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewSlotStore_Backends(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{BackendBadger, BackendSQLite, BackendFile, BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Default().Storage
			cfg.Backend = backend
			cfg.DataDir = t.TempDir()

			m, err := NewSaveManager(ctx, cfg)
			require.NoError(t, err)
			defer m.Store().Close()

			info, err := m.SaveSlot(ctx, "one", sampleSnapshot())
			require.NoError(t, err)
			assert.Equal(t, cfg.Compress, info.Compressed)

			infos, err := m.ListSlots(ctx)
			require.NoError(t, err)
			require.Len(t, infos, 1)
			assert.Equal(t, "one", infos[0].Name)
		})
	}

	_, err := NewSlotStore(ctx, config.StorageConfig{Backend: "floppy"})
	assert.Error(t, err)
}
