package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-builder/internal/logging"
	nats "github.com/nats-io/nats.go"
)

const (
	defaultStream  = "EDITOR"
	subjectRoot    = "editor"
	dedupWindow    = 2 * time.Minute
	ackWait        = 30 * time.Second
	reconnectDelay = 2 * time.Second
)

// JetStreamBus публикует события редактора в NATS JetStream.
// Subject: editor.<source>.<type>, Envelope.ID уходит в Nats-Msg-Id для дедупликации.
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string
	logger *logging.Logger

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим, если его ещё нет.
// retention ограничивает возраст сообщений (0 = без ограничения).
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = defaultStream
	}
	logger := logging.GetEventBusLogger()

	nc, err := nats.Connect(url,
		nats.Name("voxel-builder"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectDelay),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("⚠️ NATS отключен: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("🔁 NATS переподключен: %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       stream,
			Subjects:   []string{subjectRoot + ".>"},
			Retention:  nats.LimitsPolicy,
			MaxAge:     retention,
			Duplicates: dedupWindow,
			Storage:    nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream %s: %w", stream, err)
		}
	}

	logger.Info("📡 JetStream подключен: %s, стрим %s", url, stream)
	return &JetStreamBus{nc: nc, js: js, stream: stream, logger: logger}, nil
}

// Subject возвращает subject NATS для события источника source
func Subject(source, eventType string) string {
	if source == "" {
		source = "unknown"
	}
	return subjectRoot + "." + source + "." + eventType
}

// filterSubject сужает подписку на стороне сервера, когда фильтр однозначен.
// Остальное отсекает matchFilter.
func filterSubject(f Filter) string {
	source, eventType := "*", "*"
	if len(f.Sources) == 1 {
		source = f.Sources[0]
	}
	if len(f.Types) == 1 {
		eventType = f.Types[0]
	}
	return Subject(source, eventType)
}

// Publish сериализует Envelope в JSON и ждёт подтверждения стрима.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := nats.NewMsg(Subject(ev.Source, ev.EventType))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.ID)

	if _, err := jb.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт эфемерного consumer, получающего только новые события.
// Сообщение подтверждается после обработчика, даже если оно не прошло фильтр.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	sub, err := jb.js.Subscribe(filterSubject(f), func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			jb.logger.Warn("⚠️ Битое событие в %s: %v", msg.Subject, err)
		} else if matchFilter(&ev, f) {
			h(ctx, &ev)
			jb.consumed.Add(1)
		}
		_ = msg.Ack()
	}, nats.ManualAck(), nats.DeliverNew(), nats.AckWait(ackWait))
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &jetSub{sub}, nil
}

type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает счётчики шины. Очередь ведёт сам JetStream, InFlight всегда 0.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки буфера и закрывает соединение.
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
