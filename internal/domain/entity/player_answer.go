package entity

import (
	"time"
)

// PlayerAnswer представляет ответ игрока на вопрос.
// Создаётся не более одного раза на пару (player_id, question_id) —
// уникальный индекс в базе защищает от двойной отправки
// (ручной клик + авто-отправка по истечении таймера).
type PlayerAnswer struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	PlayerID       string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_player_question" json:"player_id"`
	QuestionID     string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_player_question" json:"question_id"`
	SelectedAnswer string    `gorm:"size:255;not null" json:"selected_answer"`
	IsCorrect      bool      `gorm:"not null" json:"is_correct"`
	ResponseTimeMs int64     `gorm:"not null" json:"response_time_ms"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (PlayerAnswer) TableName() string {
	return "player_answers"
}
