package gamesession

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
	"github.com/yourusername/quizlive-api/internal/realtime"
)

// PlayerView — снимок локального представления игрока для отдачи клиенту
type PlayerView struct {
	Status      string             `json:"status"`
	Question    *QuestionPayload   `json:"question,omitempty"`
	TimeLeft    int                `json:"time_left"`
	Selected    string             `json:"selected,omitempty"`
	Submitted   bool               `json:"submitted"`
	LastScore   int                `json:"last_score"`
	TotalScore  int                `json:"total_score"`
	Leaderboard []LeaderboardEntry `json:"leaderboard,omitempty"`
}

// PlayerAgent — агент игрока на стороне сервера. Держит локальное
// представление сессии, реагирует на события шины и отправляет ответы.
//
// Корректность выбранного варианта оценивается локально из broadcast-данных
// текущего вопроса, без чтения из хранилища. Итоговые места после
// game_ended, наоборот, перечитываются из хранилища: broadcast мог быть
// потерян или устареть, а хранилище авторитетно.
type PlayerAgent struct {
	config *Config
	deps   *Dependencies

	answers *AnswerProcessor

	player  *entity.Player
	session *entity.GameSession

	mu              sync.Mutex
	status          string
	question        *QuestionPayload
	timeLeft        int
	selected        string
	submitted       bool
	lastScore       int
	questionShownAt time.Time
	leaderboard     []LeaderboardEntry

	cancel context.CancelFunc
	done   chan struct{}
}

// JoinSession подключает игрока к сессии по PIN и запускает агента.
// Повторный вызов с тем же никнеймом переиспользует существующего игрока.
func JoinSession(ctx context.Context, config *Config, deps *Dependencies, pin, nickname string) (*PlayerAgent, error) {
	sm := NewSessionManager(config, deps)
	player, session, err := sm.JoinPlayer(ctx, pin, nickname)
	if err != nil {
		return nil, err
	}

	agentCtx, cancel := context.WithCancel(context.Background())
	events, err := deps.Bus.Subscribe(agentCtx, realtime.SessionChannel(session.ID))
	if err != nil {
		cancel()
		return nil, err
	}

	agent := &PlayerAgent{
		config:  config,
		deps:    deps,
		answers: NewAnswerProcessor(config, deps),
		player:  player,
		session: session,
		status:  session.Status,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go agent.run(agentCtx, events)

	// Игрок мог переподключиться к уже идущей игре
	if session.IsActive() {
		if err := agent.Resync(ctx); err != nil {
			log.Printf("[PlayerAgent] Игрок %s: ошибка resync при подключении: %v", player.ID, err)
		}
	}
	return agent, nil
}

// Player возвращает сущность игрока, которым управляет агент
func (pa *PlayerAgent) Player() *entity.Player {
	return pa.player
}

// Close останавливает агента и отписывается от шины
func (pa *PlayerAgent) Close() {
	pa.cancel()
	<-pa.done
}

// Snapshot возвращает копию текущего локального представления
func (pa *PlayerAgent) Snapshot() PlayerView {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	view := PlayerView{
		Status:     pa.status,
		TimeLeft:   pa.timeLeft,
		Selected:   pa.selected,
		Submitted:  pa.submitted,
		LastScore:  pa.lastScore,
		TotalScore: pa.player.TotalScore,
	}
	if pa.question != nil {
		q := *pa.question
		view.Question = &q
	}
	if pa.leaderboard != nil {
		view.Leaderboard = append([]LeaderboardEntry(nil), pa.leaderboard...)
	}
	return view
}

// SelectOption фиксирует выбор варианта. Выбор можно менять до submit.
func (pa *PlayerAgent) SelectOption(option string) error {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	if pa.question == nil || pa.submitted {
		return apperrors.ErrConflict
	}
	valid := false
	for _, o := range pa.question.Options {
		if o == option {
			valid = true
			break
		}
	}
	if !valid {
		return apperrors.ErrValidation
	}
	pa.selected = option
	return nil
}

// SubmitAnswer отправляет текущий выбор. Флаг submitted выставляется только
// после успешной записи, поэтому неудачный submit можно повторить.
func (pa *PlayerAgent) SubmitAnswer(ctx context.Context) error {
	pa.mu.Lock()
	if pa.question == nil || pa.submitted {
		pa.mu.Unlock()
		return apperrors.ErrConflict
	}
	if pa.selected == "" {
		pa.mu.Unlock()
		return apperrors.ErrValidation
	}
	question := questionFromPayload(pa.question)
	selected := pa.selected
	responseTimeMs := time.Since(pa.questionShownAt).Milliseconds()
	pa.mu.Unlock()

	answer, err := pa.answers.ProcessAnswer(ctx, pa.player, question, selected, responseTimeMs)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyAnswered) {
			// Ответ уже записан (гонка auto-submit и ручного submit)
			pa.mu.Lock()
			pa.submitted = true
			pa.mu.Unlock()
			return nil
		}
		return err
	}

	pa.mu.Lock()
	pa.submitted = true
	pa.lastScore = answer.Score
	pa.player.TotalScore += answer.Score
	pa.mu.Unlock()
	return nil
}

// Resync перечитывает состояние сессии и счет игрока из хранилища.
// Для идущей игры текущий вопрос и остаток времени берутся из кешированного
// снимка: он не авторитетен, поэтому его отсутствие не ошибка — агент просто
// дождется следующего broadcast.
func (pa *PlayerAgent) Resync(ctx context.Context) error {
	session, err := pa.deps.SessionRepo.GetByID(pa.session.ID)
	if err != nil {
		return err
	}
	player, err := pa.deps.PlayerRepo.GetByID(pa.player.ID)
	if err != nil {
		return err
	}

	var standings []LeaderboardEntry
	if session.IsCompleted() {
		standings, err = NewLeaderboard(pa.deps).Standings(ctx, session.ID)
		if err != nil {
			return err
		}
	}

	var question *QuestionPayload
	var shownAt time.Time
	timeLeft := 0
	submitted := false
	lastScore := 0
	if session.IsActive() {
		var snap sessionSnapshot
		err := pa.deps.CacheRepo.GetJSON(stateKey(session.ID), &snap)
		switch {
		case err == nil && snap.Question.ID != "":
			q := snap.Question
			question = &q
			shownAt = time.Now()
			if snap.QuestionStartMs > 0 {
				shownAt = time.UnixMilli(snap.QuestionStartMs)
				if snap.TimerSec > 0 {
					timeLeft = snap.TimerSec - int(time.Since(shownAt).Milliseconds()/1000)
					if timeLeft < 0 {
						timeLeft = 0
					}
				}
			}
			// Уже записанный ответ на этот вопрос восстанавливается из
			// хранилища: после reconnect повторный submit не нужен
			answers, err := pa.deps.AnswerRepo.GetByPlayer(player.ID)
			if err != nil {
				log.Printf("[PlayerAgent] Игрок %s: ошибка чтения ответов при resync: %v", player.ID, err)
			}
			for _, a := range answers {
				if a.QuestionID == snap.Question.ID {
					submitted = true
					lastScore = a.Score
					break
				}
			}
		case err != nil && !errors.Is(err, apperrors.ErrNotFound):
			log.Printf("[PlayerAgent] Игрок %s: снимок сессии %s недоступен: %v", player.ID, session.ID, err)
		}
	}

	pa.mu.Lock()
	pa.session = session
	pa.player = player
	pa.status = session.Status
	if question != nil {
		pa.question = question
		pa.timeLeft = timeLeft
		pa.selected = ""
		pa.submitted = submitted
		pa.lastScore = lastScore
		pa.questionShownAt = shownAt
	}
	if standings != nil {
		pa.leaderboard = standings
	}
	pa.mu.Unlock()
	return nil
}

// run — цикл обработки событий шины до отмены контекста
func (pa *PlayerAgent) run(ctx context.Context, events <-chan realtime.Event) {
	defer close(pa.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			pa.handleEvent(ctx, event)
		}
	}
}

func (pa *PlayerAgent) handleEvent(ctx context.Context, event realtime.Event) {
	switch event.Type {
	case realtime.EventGameStarted, realtime.EventNextQuestion:
		var payload QuestionEventPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			log.Printf("[PlayerAgent] Игрок %s: некорректный payload %s: %v", pa.player.ID, event.Type, err)
			return
		}
		pa.mu.Lock()
		pa.status = entity.SessionStatusActive
		pa.question = &payload.Question
		pa.timeLeft = payload.TimeLeft
		pa.selected = ""
		pa.submitted = false
		pa.lastScore = 0
		pa.questionShownAt = time.Now()
		pa.mu.Unlock()

	case realtime.EventTimerUpdate:
		var payload TimerUpdatePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return
		}
		pa.mu.Lock()
		pa.timeLeft = payload.TimeLeft
		autoSubmit := payload.TimeLeft == 0 && !pa.submitted && pa.selected != "" && pa.question != nil
		pa.mu.Unlock()

		// Время вышло: выбранный, но не отправленный вариант уходит сам
		if autoSubmit {
			if err := pa.SubmitAnswer(ctx); err != nil && !errors.Is(err, apperrors.ErrConflict) {
				log.Printf("[PlayerAgent] Игрок %s: ошибка auto-submit: %v", pa.player.ID, err)
			}
		}

	case realtime.EventRevealAnswer:
		var payload RevealAnswerPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return
		}
		pa.mu.Lock()
		pa.leaderboard = payload.Leaderboard
		pa.mu.Unlock()

	case realtime.EventGameEnded:
		pa.mu.Lock()
		pa.status = entity.SessionStatusCompleted
		pa.question = nil
		pa.mu.Unlock()
		// Финальные места — из хранилища, не из broadcast
		if err := pa.Resync(ctx); err != nil {
			log.Printf("[PlayerAgent] Игрок %s: ошибка resync после завершения: %v", pa.player.ID, err)
		}
	}
}

// questionFromPayload восстанавливает вопрос из broadcast-данных для
// локальной оценки корректности
func questionFromPayload(p *QuestionPayload) *entity.Question {
	return &entity.Question{
		ID:            p.ID,
		Text:          p.QuestionText,
		Options:       entity.StringArray(p.Options),
		CorrectAnswer: p.CorrectAnswer,
		Explanation:   p.Explanation,
	}
}
