package world

import (
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world/block"
)

// ChangeKind определяет тип изменения хранилища
type ChangeKind uint8

const (
	ChangePlaced  ChangeKind = iota // Блок установлен
	ChangeRemoved                   // Блок удалён
	ChangeReset                     // Хранилище очищено или загружено целиком
	ChangeBulk                      // Пакетная загрузка поверх существующих блоков
)

// String возвращает имя типа изменения
func (k ChangeKind) String() string {
	switch k {
	case ChangePlaced:
		return "placed"
	case ChangeRemoved:
		return "removed"
	case ChangeReset:
		return "reset"
	case ChangeBulk:
		return "bulk"
	default:
		return "unknown"
	}
}

// ChangeSource указывает, что вызвало изменение
type ChangeSource uint8

const (
	SourceEdit   ChangeSource = iota // Отслеживаемая правка
	SourceSilent                     // Тихая правка без истории
	SourceUndo                       // Отмена
	SourceRedo                       // Повтор
	SourceLoad                       // Загрузка снапшота
)

// String возвращает имя источника
func (s ChangeSource) String() string {
	switch s {
	case SourceEdit:
		return "edit"
	case SourceSilent:
		return "silent"
	case SourceUndo:
		return "undo"
	case SourceRedo:
		return "redo"
	case SourceLoad:
		return "load"
	default:
		return "unknown"
	}
}

// Change описывает одно применённое изменение хранилища.
// Для ChangeReset/ChangeBulk Pos и Block не заполняются, Count содержит число загруженных блоков.
type Change struct {
	Kind    ChangeKind
	Source  ChangeSource
	Pos     vec.Vec3
	Block   block.Block
	Count   int
	Version uint64
}

// Listener получает изменения синхронно, в потоке писателя.
// Обработчик не должен вызывать мутирующие методы Editor.
type Listener func(Change)
