package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
)

// QuizRepo реализует repository.QuizRepository поверх GORM
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий викторин
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create сохраняет новую викторину
func (r *QuizRepo) Create(quiz *entity.Quiz) error {
	if err := r.db.Create(quiz).Error; err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

// GetByID возвращает викторину по ID без вопросов
func (r *QuizRepo) GetByID(id string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.First(&quiz, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return &quiz, nil
}

// GetWithQuestions возвращает викторину вместе с вопросами в порядке показа
func (r *QuizRepo) GetWithQuestions(id string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("\"order\" ASC")
	}).First(&quiz, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quiz with questions: %w", err)
	}
	return &quiz, nil
}

// UpdateStatus меняет статус викторины
func (r *QuizRepo) UpdateStatus(id string, status string) error {
	result := r.db.Model(&entity.Quiz{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update quiz status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Update сохраняет изменения викторины
func (r *QuizRepo) Update(quiz *entity.Quiz) error {
	if err := r.db.Save(quiz).Error; err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	return nil
}

// List возвращает страницу викторин, новые первыми
func (r *QuizRepo) List(limit, offset int) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, nil
}

// Delete удаляет викторину вместе с вопросами (каскад в БД)
func (r *QuizRepo) Delete(id string) error {
	result := r.db.Delete(&entity.Quiz{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete quiz: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
