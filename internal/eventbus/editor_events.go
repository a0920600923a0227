package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/world"
	"github.com/google/uuid"
)

// Типы событий редактора. Subject в JetStream: editor.<источник>.<тип>.
const (
	TypeBlockChanged = "block_changed"
	TypeHistory      = "history"
)

// Версия схемы полезной нагрузки
const payloadVersion = 1

// Приоритеты: одиночные изменения можно потерять при переполнении, сброс мира нельзя
const (
	PriorityChange = 3
	PriorityReset  = 7
)

// BlockChanged полезная нагрузка события block_changed
type BlockChanged struct {
	Kind    string              `json:"kind"`   // placed | removed | reset | bulk
	Source  string              `json:"source"` // edit | silent | undo | redo | load
	Key     string              `json:"key,omitempty"`
	Block   *snapshot.BlockData `json:"block,omitempty"`
	Count   int                 `json:"count,omitempty"`
	Version uint64              `json:"version"`
}

// NewBlockChanged переводит изменение хранилища в полезную нагрузку события
func NewBlockChanged(c world.Change) BlockChanged {
	p := BlockChanged{
		Kind:    c.Kind.String(),
		Source:  c.Source.String(),
		Count:   c.Count,
		Version: c.Version,
	}
	if c.Kind == world.ChangePlaced || c.Kind == world.ChangeRemoved {
		bd := snapshot.FromBlock(c.Block)
		p.Key = string(c.Pos.Key())
		p.Block = &bd
	}
	return p
}

// HistoryChanged полезная нагрузка события history
type HistoryChanged struct {
	Action  string `json:"action"` // stroke | undo | redo | load
	Past    int    `json:"past"`
	Future  int    `json:"future"`
	Version uint64 `json:"version"`
}

// NewEnvelope упаковывает полезную нагрузку в конверт с новым UUID
func NewEnvelope(source, eventType string, payload interface{}, priority int) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("eventbus: marshal %s: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   payloadVersion,
		Priority:  priority,
		Payload:   data,
	}, nil
}

// ChangeEnvelope строит событие block_changed для изменения хранилища
func ChangeEnvelope(source string, c world.Change) (*Envelope, error) {
	priority := PriorityChange
	if c.Kind == world.ChangeReset || c.Kind == world.ChangeBulk {
		priority = PriorityReset
	}
	return NewEnvelope(source, TypeBlockChanged, NewBlockChanged(c), priority)
}

// HistoryEnvelope строит событие history
func HistoryEnvelope(source string, h HistoryChanged) (*Envelope, error) {
	return NewEnvelope(source, TypeHistory, h, PriorityChange)
}

// DecodePayload разбирает полезную нагрузку конверта
func DecodePayload(ev *Envelope, v interface{}) error {
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		return fmt.Errorf("eventbus: decode %s %s: %w", ev.EventType, ev.ID, err)
	}
	return nil
}
