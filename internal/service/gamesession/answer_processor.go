package gamesession

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
	"github.com/yourusername/quizlive-api/internal/realtime"
)

// AnswerProcessor принимает ответы игроков: оценивает корректность и счет,
// сохраняет ответ (сначала запись, затем broadcast) и начисляет очки.
// Дубликат (player_id, question_id) ловится уникальным индексом в БД,
// а не проверкой в памяти, поэтому гонка двух одновременных submit
// разрешается ровно в одну запись.
type AnswerProcessor struct {
	config *Config
	deps   *Dependencies
}

// NewAnswerProcessor создает новый процессор ответов
func NewAnswerProcessor(config *Config, deps *Dependencies) *AnswerProcessor {
	return &AnswerProcessor{
		config: config,
		deps:   deps,
	}
}

// ProcessAnswer обрабатывает ответ игрока на вопрос.
// responseTimeMs измеряется клиентом от показа вопроса до выбора.
func (ap *AnswerProcessor) ProcessAnswer(ctx context.Context, player *entity.Player, question *entity.Question, selectedAnswer string, responseTimeMs int64) (*entity.PlayerAnswer, error) {
	if player == nil || question == nil {
		return nil, apperrors.ErrValidation
	}
	if !question.IsValidOption(selectedAnswer) {
		return nil, fmt.Errorf("answer %q is not an option of question %s: %w", selectedAnswer, question.ID, apperrors.ErrValidation)
	}
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}

	isCorrect := question.IsCorrect(selectedAnswer)
	score := CalculateScore(isCorrect, responseTimeMs, ap.config.MaxResponseTimeMs)

	answer := &entity.PlayerAnswer{
		ID:             uuid.NewString(),
		PlayerID:       player.ID,
		QuestionID:     question.ID,
		SelectedAnswer: selectedAnswer,
		IsCorrect:      isCorrect,
		ResponseTimeMs: responseTimeMs,
		Score:          score,
	}

	// Сначала запись: ответ, который не удалось сохранить, не существует
	if err := ap.deps.AnswerRepo.Save(answer); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyAnswered) {
			log.Printf("[AnswerProcessor] Игрок %s уже ответил на вопрос %s", player.ID, question.ID)
			return nil, apperrors.ErrAlreadyAnswered
		}
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	// Атомарный инкремент: одновременные ответы разных игроков не теряются
	if err := ap.deps.PlayerRepo.IncrementScore(player.ID, score); err != nil {
		log.Printf("[AnswerProcessor] ERROR: Ответ %s сохранен, но счет игрока %s не обновлен: %v", answer.ID, player.ID, err)
		return nil, fmt.Errorf("failed to increment score: %w", err)
	}

	log.Printf("[AnswerProcessor] Игрок %s ответил на вопрос %s: correct=%v, time=%dms, score=%d",
		player.ID, question.ID, isCorrect, responseTimeMs, score)

	// Живой счетчик "ответили N" на экране ведущего
	answeredCount, err := ap.deps.AnswerRepo.CountByQuestion(question.ID)
	if err != nil {
		log.Printf("[AnswerProcessor] Ошибка подсчета ответов на вопрос %s: %v", question.ID, err)
		answeredCount = 0
	}

	payload := PlayerAnsweredPayload{
		PlayerID:       player.ID,
		QuestionID:     question.ID,
		SelectedAnswer: selectedAnswer,
		IsCorrect:      isCorrect,
		ResponseTimeMs: responseTimeMs,
		Score:          score,
		AnsweredCount:  answeredCount,
	}
	ap.publish(ctx, player.SessionID, realtime.EventPlayerAnswered, payload)

	return answer, nil
}

func (ap *AnswerProcessor) publish(ctx context.Context, sessionID, eventType string, payload interface{}) {
	event, err := realtime.NewEvent(eventType, payload)
	if err != nil {
		log.Printf("[AnswerProcessor] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	if err := ap.deps.Bus.Publish(ctx, realtime.SessionChannel(sessionID), event); err != nil {
		log.Printf("[AnswerProcessor] Ошибка доставки события %s в сессию %s: %v", eventType, sessionID, err)
	}
}
