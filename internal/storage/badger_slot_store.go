package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

const badgerSlotPrefix = "slot:"

// BadgerSlotStore хранит слоты в BadgerDB под ключами "slot:<имя>"
type BadgerSlotStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerSlotStore открывает (или создает) базу в <dataPath>/slots
func NewBadgerSlotStore(dataPath string) (*BadgerSlotStore, error) {
	dbPath := filepath.Join(dataPath, "slots")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerSlotStore{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Path возвращает путь к базе
func (s *BadgerSlotStore) Path() string {
	return s.dbPath
}

// Close закрывает базу
func (s *BadgerSlotStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	return s.db.Close()
}

// Put сохраняет данные слота
func (s *BadgerSlotStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrNotReady
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerSlotPrefix+name), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения слота %s в BadgerDB: %w", name, err)
	}
	return nil
}

// Get читает данные слота
func (s *BadgerSlotStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, ErrNotReady
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerSlotPrefix + name))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения слота %s из BadgerDB: %w", name, err)
	}
	return data, nil
}

// Delete удаляет слот
func (s *BadgerSlotStore) Delete(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrNotReady
	}

	key := []byte(badgerSlotPrefix + name)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrSlotNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления слота %s: %w", name, err)
	}
	return nil
}

// List перечисляет слоты обходом ключей по префиксу (ключи badger отсортированы)
func (s *BadgerSlotStore) List(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, ErrNotReady
	}

	names := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerSlotPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			names = append(names, strings.TrimPrefix(key, badgerSlotPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления слотов: %w", err)
	}
	return names, nil
}
