package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	"github.com/yourusername/quizlive-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
)

// QuestionInput — входные данные одного вопроса при создании викторины
type QuestionInput struct {
	Text          string   `json:"question_text" binding:"required"`
	Options       []string `json:"options" binding:"required"`
	CorrectAnswer string   `json:"correct_answer" binding:"required"`
	Explanation   string   `json:"explanation"`
}

// QuizInput — входные данные викторины
type QuizInput struct {
	Title            string          `json:"title" binding:"required"`
	Description      string          `json:"description"`
	PlayerLimit      int             `json:"player_limit"`
	HasTimer         *bool           `json:"has_timer"`
	QuestionTimerSec int             `json:"question_timer_seconds"`
	Questions        []QuestionInput `json:"questions" binding:"required"`
}

// QuizService отвечает за создание и чтение викторин
type QuizService struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
}

// NewQuizService создает новый сервис викторин
func NewQuizService(quizRepo repository.QuizRepository, questionRepo repository.QuestionRepository) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
	}
}

// CreateQuiz создает викторину с вопросами. Вопросы получают плотный
// 0-based порядок показа в порядке следования во входных данных.
func (s *QuizService) CreateQuiz(input *QuizInput) (*entity.Quiz, error) {
	if err := validateQuizInput(input); err != nil {
		return nil, err
	}

	hasTimer := true
	if input.HasTimer != nil {
		hasTimer = *input.HasTimer
	}
	timerSec := input.QuestionTimerSec
	if timerSec <= 0 {
		timerSec = entity.DefaultQuestionTimerSec
	}

	quiz := &entity.Quiz{
		ID:               uuid.NewString(),
		Title:            input.Title,
		Description:      input.Description,
		Status:           entity.QuizStatusReady,
		PlayerLimit:      input.PlayerLimit,
		HasTimer:         hasTimer,
		QuestionTimerSec: timerSec,
	}
	if err := s.quizRepo.Create(quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	questions := make([]entity.Question, 0, len(input.Questions))
	for i, q := range input.Questions {
		questions = append(questions, entity.Question{
			ID:            uuid.NewString(),
			QuizID:        quiz.ID,
			Text:          q.Text,
			Options:       entity.StringArray(q.Options),
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Order:         i,
		})
	}
	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}
	quiz.Questions = questions
	return quiz, nil
}

// GetQuiz возвращает викторину с вопросами
func (s *QuizService) GetQuiz(id string) (*entity.Quiz, error) {
	return s.quizRepo.GetWithQuestions(id)
}

// ListQuizzes возвращает страницу викторин
func (s *QuizService) ListQuizzes(limit, offset int) ([]entity.Quiz, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.quizRepo.List(limit, offset)
}

// DeleteQuiz удаляет викторину с вопросами
func (s *QuizService) DeleteQuiz(id string) error {
	return s.quizRepo.Delete(id)
}

func validateQuizInput(input *QuizInput) error {
	if input.Title == "" {
		return fmt.Errorf("quiz title is required: %w", apperrors.ErrValidation)
	}
	if len(input.Questions) == 0 {
		return fmt.Errorf("quiz must have at least one question: %w", apperrors.ErrValidation)
	}
	for i, q := range input.Questions {
		if q.Text == "" {
			return fmt.Errorf("question %d: text is required: %w", i+1, apperrors.ErrValidation)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d: at least two options required: %w", i+1, apperrors.ErrValidation)
		}
		seen := make(map[string]bool, len(q.Options))
		correctFound := false
		for _, opt := range q.Options {
			if opt == "" {
				return fmt.Errorf("question %d: empty option: %w", i+1, apperrors.ErrValidation)
			}
			if seen[opt] {
				return fmt.Errorf("question %d: duplicate option %q: %w", i+1, opt, apperrors.ErrValidation)
			}
			seen[opt] = true
			if opt == q.CorrectAnswer {
				correctFound = true
			}
		}
		if !correctFound {
			return fmt.Errorf("question %d: correct answer must be one of the options: %w", i+1, apperrors.ErrValidation)
		}
	}
	return nil
}
