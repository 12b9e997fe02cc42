package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository поверх GORM
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// CreateBatch сохраняет набор вопросов одной транзакцией
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	if err := r.db.Create(&questions).Error; err != nil {
		return fmt.Errorf("failed to create questions: %w", err)
	}
	return nil
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(id string) (*entity.Question, error) {
	var question entity.Question
	err := r.db.First(&question, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

// GetByQuizID возвращает все вопросы викторины в порядке показа
func (r *QuestionRepo) GetByQuizID(quizID string) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("quiz_id = ?", quizID).Order("\"order\" ASC").Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

// DeleteByQuizID удаляет все вопросы викторины
func (r *QuestionRepo) DeleteByQuizID(quizID string) error {
	if err := r.db.Delete(&entity.Question{}, "quiz_id = ?", quizID).Error; err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}
	return nil
}
