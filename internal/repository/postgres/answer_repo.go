package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
)

// AnswerRepo реализует repository.PlayerAnswerRepository поверх GORM
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Save сохраняет ответ игрока. Повторный ответ на тот же вопрос нарушает
// уникальный индекс (player_id, question_id) и возвращается как
// ErrAlreadyAnswered — дубликаты отсекает БД, а не память процесса.
func (r *AnswerRepo) Save(answer *entity.PlayerAnswer) error {
	if err := r.db.Create(answer).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyAnswered
		}
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}

// GetByPlayer возвращает все ответы игрока в порядке подачи
func (r *AnswerRepo) GetByPlayer(playerID string) ([]entity.PlayerAnswer, error) {
	var answers []entity.PlayerAnswer
	err := r.db.Where("player_id = ?", playerID).Order("created_at ASC").Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get player answers: %w", err)
	}
	return answers, nil
}

// GetByQuestion возвращает все ответы на вопрос
func (r *AnswerRepo) GetByQuestion(questionID string) ([]entity.PlayerAnswer, error) {
	var answers []entity.PlayerAnswer
	err := r.db.Where("question_id = ?", questionID).Order("created_at ASC").Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get question answers: %w", err)
	}
	return answers, nil
}

// CountByQuestion возвращает число ответов на вопрос (сколько уже ответили)
func (r *AnswerRepo) CountByQuestion(questionID string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.PlayerAnswer{}).Where("question_id = ?", questionID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return count, nil
}
