package eventbus

import (
	"context"
	"time"

	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/world"
)

// Forwarder публикует изменения редактора в шину.
// OnChange подходит как world.Listener и вызывается в потоке писателя,
// поэтому публикация ограничена таймаутом.
type Forwarder struct {
	bus     EventBus
	source  string
	timeout time.Duration
	logger  *logging.Logger
}

// NewForwarder создаёт публикатор событий для источника source
func NewForwarder(bus EventBus, source string) *Forwarder {
	return &Forwarder{
		bus:     bus,
		source:  source,
		timeout: 100 * time.Millisecond,
		logger:  logging.GetEventBusLogger(),
	}
}

// OnChange публикует событие block_changed
func (f *Forwarder) OnChange(c world.Change) {
	ev, err := ChangeEnvelope(f.source, c)
	if err != nil {
		f.logger.Error("❌ %v", err)
		return
	}
	f.publish(ev)
}

// OnHistory публикует событие history
func (f *Forwarder) OnHistory(h HistoryChanged) {
	ev, err := HistoryEnvelope(f.source, h)
	if err != nil {
		f.logger.Error("❌ %v", err)
		return
	}
	f.publish(ev)
}

func (f *Forwarder) publish(ev *Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	if err := f.bus.Publish(ctx, ev); err != nil {
		f.logger.Warn("⚠️ Событие %s %s не опубликовано: %v", ev.EventType, ev.ID, err)
	}
}
