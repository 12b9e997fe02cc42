package repository

import (
	"github.com/yourusername/quizlive-api/internal/domain/entity"
)

// QuizRepository определяет методы для работы с викторинами
type QuizRepository interface {
	Create(quiz *entity.Quiz) error
	GetByID(id string) (*entity.Quiz, error)
	// GetWithQuestions возвращает викторину с вопросами, отсортированными по "order"
	GetWithQuestions(id string) (*entity.Quiz, error)
	UpdateStatus(quizID string, status string) error
	Update(quiz *entity.Quiz) error
	List(limit, offset int) ([]entity.Quiz, error)
	Delete(id string) error
}

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	CreateBatch(questions []entity.Question) error
	GetByID(id string) (*entity.Question, error)
	// GetByQuizID возвращает вопросы викторины в порядке поля "order"
	GetByQuizID(quizID string) ([]entity.Question, error)
	DeleteByQuizID(quizID string) error
}
