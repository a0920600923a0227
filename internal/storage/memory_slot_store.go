package storage

import (
	"context"
	"sort"
	"sync"
)

// MemorySlotStore реализует SlotStore в памяти.
// Используется в тестах и когда диск недоступен.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemorySlotStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemorySlotStore создает пустое хранилище слотов в памяти
func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{
		data: make(map[string][]byte),
	}
}

// Put сохраняет копию данных слота
func (s *MemorySlotStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotReady
	}
	s.data[name] = append([]byte(nil), data...)
	return nil
}

// Get возвращает копию данных слота
func (s *MemorySlotStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrNotReady
	}
	data, ok := s.data[name]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete удаляет слот
func (s *MemorySlotStore) Delete(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotReady
	}
	if _, ok := s.data[name]; !ok {
		return ErrSlotNotFound
	}
	delete(s.data, name)
	return nil
}

// List возвращает отсортированные имена слотов
func (s *MemorySlotStore) List(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrNotReady
	}
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close помечает хранилище закрытым
func (s *MemorySlotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
