package storage_adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/storage"
)

// Расширения файлов снимков
const (
	ExtJSON = ".vox.json"
	ExtZstd = ".vox.zst"
)

// WriteSnapshotFile записывает снимок в файл. Формат выбирается по расширению:
// ".zst" означает JSON, сжатый zstd, иначе пишется обычный JSON.
func WriteSnapshotFile(path string, snap snapshot.Snapshot) (int, error) {
	var (
		data []byte
		err  error
	)
	if isZstdPath(path) {
		data, err = snapshot.EncodeCompressed(snap)
	} else {
		data, err = snapshot.Encode(snap)
	}
	if err != nil {
		return 0, err
	}

	if err := writeFileAtomic(path, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// ReadSnapshotFile читает снимок из файла; сжатие определяется по содержимому
func ReadSnapshotFile(path string) (snapshot.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}
	snap, err := snapshot.DecodeAny(data)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

func isZstdPath(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// writeFileAtomic пишет во временный файл и переименовывает его
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ошибка переименования %s: %w", tmp, err)
	}
	return nil
}

// FileSlotStore реализует storage.SlotStore в файловой системе: один файл <имя>.slot на слот
type FileSlotStore struct {
	basePath string
	mu       sync.RWMutex
	closed   bool
}

const slotExt = ".slot"

// NewFileSlotStore создаёт файловое хранилище слотов
func NewFileSlotStore(basePath string) (*FileSlotStore, error) {
	// Создаём директорию если её нет
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", basePath, err)
	}
	return &FileSlotStore{basePath: basePath}, nil
}

func (s *FileSlotStore) filename(name string) string {
	return filepath.Join(s.basePath, name+slotExt)
}

func (s *FileSlotStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return storage.ErrNotReady
	}
	return nil
}

// Put записывает слот в файл
func (s *FileSlotStore) Put(ctx context.Context, name string, data []byte) error {
	if err := storage.ValidateSlotName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(ctx); err != nil {
		return err
	}
	return writeFileAtomic(s.filename(name), data)
}

// Get читает слот из файла
func (s *FileSlotStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := storage.ValidateSlotName(name); err != nil {
		return nil, storage.ErrSlotNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.filename(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения слота %s: %w", name, err)
	}
	return data, nil
}

// Delete удаляет файл слота
func (s *FileSlotStore) Delete(ctx context.Context, name string) error {
	if err := storage.ValidateSlotName(name); err != nil {
		return storage.ErrSlotNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(ctx); err != nil {
		return err
	}

	err := os.Remove(s.filename(name))
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrSlotNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления слота %s: %w", name, err)
	}
	return nil
}

// List перечисляет файлы слотов
func (s *FileSlotStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", s.basePath, err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), slotExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), slotExt))
	}
	sort.Strings(names)
	return names, nil
}

// Close помечает хранилище закрытым
func (s *FileSlotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// GetStorageStats возвращает статистику хранилища
func (s *FileSlotStore) GetStorageStats() map[string]interface{} {
	var fileCount int
	var totalBytes int64
	filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && filepath.Ext(path) == slotExt {
			fileCount++
			if info, err := d.Info(); err == nil {
				totalBytes += info.Size()
			}
		}
		return nil
	})

	return map[string]interface{}{
		"stored_files": fileCount,
		"total_bytes":  totalBytes,
		"base_path":    s.basePath,
	}
}
