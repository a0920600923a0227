package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/annel0/voxel-builder/internal/eventbus"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/world"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Типы сообщений потока изменений
const (
	MsgHello  = "hello"
	MsgChange = "change"
)

// StreamMessage сообщение, отправляемое клиенту по /ws
type StreamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hello первое сообщение после подключения
type Hello struct {
	ClientID string `json:"client_id"`
	Version  uint64 `json:"version"`
	Blocks   int    `json:"blocks"`
}

// wsClient подключенный рендерер
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub рассылает изменения мира всем подключенным клиентам.
// OnChange не блокируется: клиент с переполненной очередью отключается.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger

	mu      sync.RWMutex
	clients map[string]*wsClient
	closed  bool
}

// NewHub создаёт хаб
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Рендерер может жить на другом origin
			},
		},
		logger:  logging.GetAPILogger(),
		clients: make(map[string]*wsClient),
	}
}

// ClientCount возвращает число подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnChange подходит как приёмник изменений сессии
func (h *Hub) OnChange(c world.Change) {
	data, err := json.Marshal(eventbus.NewBlockChanged(c))
	if err != nil {
		h.logger.Error("❌ Ошибка сериализации изменения: %v", err)
		return
	}
	h.broadcast(MsgChange, data)
}

func (h *Hub) broadcast(msgType string, data json.RawMessage) {
	msg, err := json.Marshal(StreamMessage{Type: msgType, Data: data})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		select {
		case client.send <- msg:
		default:
			h.logger.Warn("⚠️ Клиент %s не успевает читать поток, отключаем", id)
			close(client.send)
			delete(h.clients, id)
		}
	}
}

// Serve поднимает websocket-соединение. hello отправляется клиенту первым.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, hello func(clientID string) Hello) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Ошибка апгрейда соединения: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   uuid.NewString(),
	}

	// hello считается вне h.mu: сессия вызывает OnChange под своим мьютексом.
	// Изменения между hello и регистрацией клиент увидит по разрыву в версии.
	if data, err := json.Marshal(hello(client.id)); err == nil {
		if msg, err := json.Marshal(StreamMessage{Type: MsgHello, Data: data}); err == nil {
			client.send <- msg
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[client.id] = client
	h.mu.Unlock()

	h.logger.Info("🔌 Клиент потока подключен: %s (%s)", client.id, r.RemoteAddr)

	go h.writePump(client)
	go h.readPump(client)
}

// unregister удаляет клиента, если он ещё зарегистрирован
func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; ok {
		close(client.send)
		delete(h.clients, client.id)
		h.logger.Info("🔌 Клиент потока отключен: %s", client.id)
	}
	h.mu.Unlock()
}

// Close отключает всех клиентов и перестаёт принимать новых
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
}

// readPump читает управляющие кадры; входящие сообщения клиентом не используются
func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Debug("Ошибка чтения %s: %v", client.id, err)
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту и пингует его
func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрыт
				client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
