package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrSlotNotFound возвращается, если слота с таким именем нет
	ErrSlotNotFound = errors.New("slot not found")
	// ErrNotReady возвращается после Close или до установки соединения
	ErrNotReady = errors.New("storage is not ready")
	// ErrInvalidSlotName возвращается для пустого или недопустимого имени слота
	ErrInvalidSlotName = errors.New("invalid slot name")
)

// AutosaveSlot имя слота автосохранения
const AutosaveSlot = "autosave"

// SlotStore хранит сериализованные снимки под именами слотов.
// Реализации: BadgerSlotStore (локальный диск), RedisSlotStore и MongoSlotStore (общие для
// нескольких процессов), SQLiteSlotStore (один файл), MemorySlotStore (тесты и запуск без диска).
type SlotStore interface {
	// Put записывает данные слота, заменяя прежние
	Put(ctx context.Context, name string, data []byte) error

	// Get читает данные слота. Если слота нет, возвращает ErrSlotNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete удаляет слот. Если слота нет, возвращает ErrSlotNotFound.
	Delete(ctx context.Context, name string) error

	// List возвращает имена всех слотов в порядке возрастания
	List(ctx context.Context) ([]string, error)

	// Close освобождает ресурсы хранилища
	Close() error
}

var slotNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidateSlotName проверяет имя слота: 1-64 символа из латиницы, цифр, '.', '_' и '-'
func ValidateSlotName(name string) error {
	if !slotNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSlotName, name)
	}
	return nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
