package entity

import (
	"time"
)

// Константы статусов игровой сессии.
// Жизненный цикл строго waiting -> active -> completed, без пропуска состояний.
const (
	SessionStatusWaiting   = "waiting"
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

// GameSession представляет игровую сессию викторины.
// PIN — 6-значный цифровой код для входа игроков (отображаемый ключ,
// глобальная уникальность во времени не гарантируется).
// CurrentIndex — авторитетный индекс текущего вопроса (0-based, -1 до старта);
// хост после переподключения восстанавливает его из базы, а не из локального кеша.
type GameSession struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID       string    `gorm:"type:uuid;not null;index" json:"quiz_id"`
	HostID       string    `gorm:"type:uuid;not null;index" json:"host_id"`
	PIN          string    `gorm:"column:pin;size:6;not null;index" json:"pin"`
	Status       string    `gorm:"size:20;not null;default:'waiting';index" json:"status"`
	CurrentIndex int       `gorm:"not null;default:-1" json:"current_index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (GameSession) TableName() string {
	return "game_sessions"
}

// IsWaiting проверяет, что сессия в зале ожидания
func (s *GameSession) IsWaiting() bool {
	return s.Status == SessionStatusWaiting
}

// IsActive проверяет, что сессия запущена
func (s *GameSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// IsCompleted проверяет, что сессия завершена (терминальное состояние)
func (s *GameSession) IsCompleted() bool {
	return s.Status == SessionStatusCompleted
}
