package entity

import (
	"time"
)

// Player представляет участника игровой сессии.
// Никнейм уникален в рамках сессии (проверка перед вставкой).
// TotalScore только увеличивается, никогда не уменьшается.
type Player struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  string    `gorm:"type:uuid;not null;index" json:"session_id"`
	Nickname   string    `gorm:"size:20;not null" json:"nickname"`
	TotalScore int       `gorm:"not null;default:0" json:"total_score"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Player) TableName() string {
	return "players"
}
