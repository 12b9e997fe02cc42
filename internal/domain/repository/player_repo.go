package repository

import (
	"github.com/yourusername/quizlive-api/internal/domain/entity"
)

// PlayerRepository определяет методы для работы с игроками.
// Каждый игрок пишет только свои строки; total_score увеличивается
// атомарным инкрементом на стороне базы, без read-modify-write.
type PlayerRepository interface {
	Create(player *entity.Player) error
	GetByID(id string) (*entity.Player, error)
	// FindByNickname ищет игрока по (session_id, nickname). ErrNotFound, если нет.
	FindByNickname(sessionID, nickname string) (*entity.Player, error)
	CountBySession(sessionID string) (int64, error)
	// ListBySessionRanked возвращает игроков сессии в порядке лидерборда:
	// total_score DESC, затем created_at ASC, затем id ASC (стабильный тайбрейк).
	ListBySessionRanked(sessionID string) ([]entity.Player, error)
	// IncrementScore атомарно добавляет delta к total_score игрока
	IncrementScore(playerID string, delta int) error
}

// PlayerAnswerRepository определяет методы для работы с ответами игроков
type PlayerAnswerRepository interface {
	// Save сохраняет ответ. При нарушении уникальности (player_id, question_id)
	// возвращает ErrAlreadyAnswered.
	Save(answer *entity.PlayerAnswer) error
	GetByPlayer(playerID string) ([]entity.PlayerAnswer, error)
	GetByQuestion(questionID string) ([]entity.PlayerAnswer, error)
	CountByQuestion(questionID string) (int64, error)
}
