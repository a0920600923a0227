package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/world"
)

// SlotInfo метаданные сохранения
type SlotInfo struct {
	Name       string    `json:"name"`
	SavedAt    time.Time `json:"saved_at"`
	Blocks     int       `json:"blocks"`
	Compressed bool      `json:"compressed"`
	Size       int       `json:"size"` // Размер полезной нагрузки в байтах
}

// slotRecord то, что физически лежит в SlotStore
type slotRecord struct {
	SlotInfo
	Payload []byte `json:"payload"`
}

// Capturer отдает версию мира и снимок под собственной блокировкой владельца
type Capturer interface {
	Version() uint64
	Capture() snapshot.Snapshot
}

// SaveObserver получает длительность и результат каждого сохранения (метрики)
type SaveObserver interface {
	ObserveSave(slot string, d time.Duration, err error)
}

// SaveManager управляет слотами сохранений и автосохранением поверх SlotStore
type SaveManager struct {
	store    SlotStore
	compress bool
	observer SaveObserver
	logger   *logging.Logger
	now      func() time.Time

	mu           sync.Mutex
	lastAutosave uint64
	hasAutosave  bool
}

// SaveOption настраивает SaveManager
type SaveOption func(*SaveManager)

// WithCompression включает сжатие снимков zstd
func WithCompression(on bool) SaveOption {
	return func(m *SaveManager) { m.compress = on }
}

// WithSaveObserver подключает наблюдателя сохранений
func WithSaveObserver(o SaveObserver) SaveOption {
	return func(m *SaveManager) { m.observer = o }
}

// WithSaveLogger задает логгер
func WithSaveLogger(l *logging.Logger) SaveOption {
	return func(m *SaveManager) { m.logger = l }
}

// NewSaveManager создает менеджер сохранений
func NewSaveManager(store SlotStore, opts ...SaveOption) *SaveManager {
	m := &SaveManager{
		store:  store,
		logger: logging.GetStorageLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store возвращает нижележащее хранилище
func (m *SaveManager) Store() SlotStore {
	return m.store
}

// SaveSlot сохраняет снимок в слот
func (m *SaveManager) SaveSlot(ctx context.Context, name string, snap snapshot.Snapshot) (info SlotInfo, err error) {
	start := m.now()
	defer func() {
		if m.observer != nil {
			m.observer.ObserveSave(name, m.now().Sub(start), err)
		}
	}()

	if err := ValidateSlotName(name); err != nil {
		return SlotInfo{}, err
	}

	var payload []byte
	if m.compress {
		payload, err = snapshot.EncodeCompressed(snap)
	} else {
		payload, err = snapshot.Encode(snap)
	}
	if err != nil {
		return SlotInfo{}, fmt.Errorf("ошибка сериализации снимка: %w", err)
	}

	rec := slotRecord{
		SlotInfo: SlotInfo{
			Name:       name,
			SavedAt:    start.UTC(),
			Blocks:     len(snap.Blocks),
			Compressed: m.compress,
			Size:       len(payload),
		},
		Payload: payload,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return SlotInfo{}, fmt.Errorf("ошибка сериализации слота: %w", err)
	}

	if err := m.store.Put(ctx, name, data); err != nil {
		return SlotInfo{}, err
	}

	m.logger.Debug("💾 Слот %s сохранен: %d блоков, %d байт", name, rec.Blocks, rec.Size)
	return rec.SlotInfo, nil
}

// ReadSlot читает и проверяет снимок из слота
func (m *SaveManager) ReadSlot(ctx context.Context, name string) (snapshot.Snapshot, SlotInfo, error) {
	rec, err := m.readRecord(ctx, name)
	if err != nil {
		return snapshot.Snapshot{}, SlotInfo{}, err
	}

	snap, err := snapshot.DecodeAny(rec.Payload)
	if err != nil {
		return snapshot.Snapshot{}, SlotInfo{}, fmt.Errorf("слот %s: %w", name, err)
	}
	return snap, rec.SlotInfo, nil
}

// LoadSlot загружает слот в редактор. Вызывающий отвечает за сериализацию доступа к ed.
func (m *SaveManager) LoadSlot(ctx context.Context, name string, ed *world.Editor, merge bool) (int, error) {
	snap, _, err := m.ReadSlot(ctx, name)
	if err != nil {
		return 0, err
	}
	n, err := snapshot.Load(ed, snap, snapshot.Options{Merge: merge})
	if err != nil {
		return 0, fmt.Errorf("слот %s: %w", name, err)
	}
	m.logger.Info("📂 Слот %s загружен: %d блоков (merge=%v)", name, n, merge)
	return n, nil
}

// ListSlots возвращает метаданные всех слотов. Нечитаемые записи пропускаются с предупреждением.
func (m *SaveManager) ListSlots(ctx context.Context) ([]SlotInfo, error) {
	names, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]SlotInfo, 0, len(names))
	for _, name := range names {
		rec, err := m.readRecord(ctx, name)
		if err != nil {
			m.logger.Warn("⚠️ Слот %s пропущен: %v", name, err)
			continue
		}
		infos = append(infos, rec.SlotInfo)
	}
	return infos, nil
}

// DeleteSlot удаляет слот
func (m *SaveManager) DeleteSlot(ctx context.Context, name string) error {
	if err := m.store.Delete(ctx, name); err != nil {
		return err
	}
	if name == AutosaveSlot {
		m.mu.Lock()
		m.hasAutosave = false
		m.mu.Unlock()
	}
	return nil
}

// Autosave сохраняет мир в слот автосохранения, если версия изменилась с прошлого раза.
// Возвращает true, если запись произошла.
func (m *SaveManager) Autosave(ctx context.Context, c Capturer) (bool, error) {
	version := c.Version()

	m.mu.Lock()
	if m.hasAutosave && version == m.lastAutosave {
		m.mu.Unlock()
		return false, nil
	}
	m.mu.Unlock()

	if _, err := m.SaveSlot(ctx, AutosaveSlot, c.Capture()); err != nil {
		return false, err
	}

	m.mu.Lock()
	m.lastAutosave = version
	m.hasAutosave = true
	m.mu.Unlock()
	return true, nil
}

// RunAutosave периодически вызывает Autosave до отмены ctx
func (m *SaveManager) RunAutosave(ctx context.Context, interval time.Duration, c Capturer) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("⏱️ Автосохранение каждые %v", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saved, err := m.Autosave(ctx, c)
			if err != nil {
				m.logger.Error("❌ Ошибка автосохранения: %v", err)
				continue
			}
			if saved {
				m.logger.Debug("💾 Автосохранение выполнено")
			}
		}
	}
}

func (m *SaveManager) readRecord(ctx context.Context, name string) (slotRecord, error) {
	data, err := m.store.Get(ctx, name)
	if err != nil {
		return slotRecord{}, err
	}

	var rec slotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return slotRecord{}, fmt.Errorf("ошибка разбора слота %s: %w", name, err)
	}
	return rec, nil
}
