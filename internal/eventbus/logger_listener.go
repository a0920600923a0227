package eventbus

import (
	"context"

	"github.com/annel0/voxel-builder/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента eventbus.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	logger := logging.GetEventBusLogger()

	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		switch ev.EventType {
		case TypeBlockChanged:
			var p BlockChanged
			if err := DecodePayload(ev, &p); err != nil {
				logger.Warn("%v", err)
				return
			}
			logger.Trace("[EventBus] %s %s %s/%s key=%s v=%d", ev.ID, ev.EventType, p.Kind, p.Source, p.Key, p.Version)
		case TypeHistory:
			var p HistoryChanged
			if err := DecodePayload(ev, &p); err != nil {
				logger.Warn("%v", err)
				return
			}
			logger.Debug("[EventBus] %s %s %s past=%d future=%d", ev.ID, ev.EventType, p.Action, p.Past, p.Future)
		default:
			logger.Debug("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
		}
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
