package entity

import (
	"time"
)

// Константы статусов викторины
const (
	QuizStatusDraft     = "draft"
	QuizStatusReady     = "ready"
	QuizStatusCompleted = "completed"
)

// DefaultQuestionTimerSec — бюджет времени на вопрос по умолчанию
const DefaultQuestionTimerSec = 20

// Quiz представляет викторину. Во время активной сессии считается неизменяемой.
type Quiz struct {
	ID                  string     `gorm:"type:uuid;primaryKey" json:"id"`
	Title               string     `gorm:"size:100;not null" json:"title"`
	Description         string     `gorm:"size:500;not null;default:''" json:"description"`
	Status              string     `gorm:"size:20;not null;default:'draft';index" json:"status"`
	PlayerLimit         int        `gorm:"not null;default:50" json:"player_limit"`
	HasTimer            bool       `gorm:"not null;default:false" json:"has_timer"`
	QuestionTimerSec    int        `gorm:"not null;default:20" json:"question_timer_seconds"`
	Questions           []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// IsCompleted проверяет, завершена ли викторина
func (q *Quiz) IsCompleted() bool {
	return q.Status == QuizStatusCompleted
}

// TimerBudgetSec возвращает бюджет времени на вопрос в секундах.
// Для викторин без таймера используется дефолтный бюджет (нужен для скоринга).
func (q *Quiz) TimerBudgetSec() int {
	if q.QuestionTimerSec > 0 {
		return q.QuestionTimerSec
	}
	return DefaultQuestionTimerSec
}
