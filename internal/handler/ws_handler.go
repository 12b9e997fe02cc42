package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yourusername/quizlive-api/internal/domain/repository"
	"github.com/yourusername/quizlive-api/internal/realtime"
)

const (
	// Время на запись одного сообщения клиенту
	wsWriteWait = 10 * time.Second

	// Время ожидания pong от клиента
	wsPongWait = 60 * time.Second

	// Интервал отправки ping (должен быть меньше wsPongWait)
	wsPingPeriod = (wsPongWait * 9) / 10

	// Максимальный размер входящего сообщения
	wsMaxMessageSize = 4096
)

// WSHandler отдает события сессии подключенным клиентам по WebSocket.
// Канал только на чтение для клиента: все действия идут через REST,
// сокет доставляет broadcast-события сессии.
type WSHandler struct {
	bus         realtime.Bus
	sessionRepo repository.GameSessionRepository
	upgrader    websocket.Upgrader
}

// NewWSHandler создает новый WebSocket-обработчик
func NewWSHandler(bus realtime.Bus, sessionRepo repository.GameSessionRepository) *WSHandler {
	return &WSHandler{
		bus:         bus,
		sessionRepo: sessionRepo,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS проверяется на уровне HTTP-middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe обрабатывает подключение к каналу событий сессии
func (h *WSHandler) Subscribe(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.sessionRepo.GetByID(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Ошибка upgrade для сессии %s: %v", sessionID, err)
		return
	}

	// Контекст запроса отменяется по возврату из обработчика, поэтому
	// подписка живет на собственном контексте до закрытия соединения
	ctx, cancel := context.WithCancel(context.Background())
	events, err := h.bus.Subscribe(ctx, realtime.SessionChannel(sessionID))
	if err != nil {
		log.Printf("[WSHandler] Ошибка подписки на сессию %s: %v", sessionID, err)
		cancel()
		conn.Close()
		return
	}

	log.Printf("[WSHandler] Клиент %s подключился к сессии %s", conn.RemoteAddr(), sessionID)
	go h.writePump(conn, events, sessionID)
	go h.readPump(conn, cancel)
}

// writePump пересылает события шины в сокет и поддерживает соединение ping-ами
func (h *WSHandler) writePump(conn *websocket.Conn, events <-chan realtime.Event, sessionID string) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		log.Printf("[WSHandler] Клиент %s отключился от сессии %s", conn.RemoteAddr(), sessionID)
	}()

	for {
		select {
		case event, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump вычитывает входящие фреймы ради обработки close и pong
func (h *WSHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer func() {
		cancel()
		conn.Close()
	}()
	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
