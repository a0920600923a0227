package storage_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/annel0/voxel-builder/internal/config"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/storage"
)

// Поддерживаемые бэкенды слотов
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// NewSlotStore создает хранилище слотов по конфигурации
func NewSlotStore(ctx context.Context, cfg config.StorageConfig) (storage.SlotStore, error) {
	logger := logging.GetStorageLogger()

	switch cfg.Backend {
	case BackendBadger, "":
		logger.Info("🗄️ Хранилище слотов: BadgerDB (%s)", cfg.DataDir)
		return storage.NewBadgerSlotStore(cfg.DataDir)
	case BackendRedis:
		return storage.NewRedisSlotStore(ctx, &storage.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPass,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisPrefix,
		})
	case BackendMongo:
		return storage.NewMongoSlotStore(ctx, &storage.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	case BackendSQLite:
		path := filepath.Join(cfg.DataDir, "slots.db")
		logger.Info("🗄️ Хранилище слотов: SQLite (%s)", path)
		return storage.NewSQLiteSlotStore(path)
	case BackendFile:
		dir := filepath.Join(cfg.DataDir, "slots")
		logger.Info("🗄️ Хранилище слотов: файлы (%s)", dir)
		return NewFileSlotStore(dir)
	case BackendMemory:
		logger.Warn("⚠️ Хранилище слотов в памяти: сохранения не переживут перезапуск")
		return storage.NewMemorySlotStore(), nil
	default:
		return nil, fmt.Errorf("неизвестный бэкенд хранилища: %q", cfg.Backend)
	}
}

// NewSaveManager собирает SaveManager поверх хранилища из конфигурации
func NewSaveManager(ctx context.Context, cfg config.StorageConfig, opts ...storage.SaveOption) (*storage.SaveManager, error) {
	store, err := NewSlotStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]storage.SaveOption{storage.WithCompression(cfg.Compress)}, opts...)
	return storage.NewSaveManager(store, opts...), nil
}
