package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей слотов
	TTL       time.Duration // Время жизни слота, 0 = бессрочно
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "voxel:slot:",
	}
}

// RedisSlotStore хранит слоты в Redis, чтобы несколько процессов видели одни и те же сохранения
type RedisSlotStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewRedisSlotStore подключается к Redis и проверяет соединение
func NewRedisSlotStore(ctx context.Context, config *RedisConfig) (*RedisSlotStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetStorageLogger().Info("🔴 Connected to Redis at %s", config.Addr)
	return NewRedisSlotStoreWithClient(client, config.KeyPrefix, config.TTL), nil
}

// NewRedisSlotStoreWithClient оборачивает готовый клиент
func NewRedisSlotStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSlotStore {
	return &RedisSlotStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisSlotStore) key(name string) string {
	return s.keyPrefix + name
}

func (s *RedisSlotStore) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrNotReady
	}
	return nil
}

// Put сохраняет данные слота
func (s *RedisSlotStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key(name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save slot %s: %w", name, err)
	}
	return nil
}

// Get читает данные слота
func (s *RedisSlotStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get slot %s: %w", name, err)
	}
	return data, nil
}

// Delete удаляет слот
func (s *RedisSlotStore) Delete(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}

	n, err := s.client.Del(ctx, s.key(name)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", name, err)
	}
	if n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// List обходит ключи через SCAN
func (s *RedisSlotStore) List(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	names := []string{}
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), s.keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan slots: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Close закрывает соединение с Redis
func (s *RedisSlotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
