package realtime

import (
	"encoding/json"
	"fmt"
)

// Типы broadcast-событий игровой сессии (wire-протокол ядра).
// Каждое событие привязано к каналу одной сессии.
const (
	EventGameStarted    = "game_started"
	EventNextQuestion   = "next_question"
	EventTimerUpdate    = "timer_update"
	EventPlayerJoined   = "player_joined"
	EventPlayerAnswered = "player_answered"
	EventRevealAnswer   = "reveal_answer"
	EventGameEnded      = "game_ended"
)

// Event представляет конверт broadcast-сообщения.
// Данные — транзитная, неавторитетная копия состояния: источником истины
// всегда остаётся хранилище.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent сериализует payload и оборачивает его в конверт события
func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Data: data}, nil
}

// SessionChannel возвращает имя канала шины для сессии
func SessionChannel(sessionID string) string {
	return "session:" + sessionID
}
