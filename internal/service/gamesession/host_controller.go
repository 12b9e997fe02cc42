package gamesession

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
	"github.com/yourusername/quizlive-api/internal/realtime"
)

// HostController управляет ходом одной активной сессии со стороны ведущего:
// запускает отсчет таймера вопроса, показывает правильный ответ и
// промежуточный лидерборд, продвигает сессию дальше.
//
// Источник двойных триггеров: ручной "следующий вопрос" может прийти в тот
// же момент, что и истечение таймера. Каждому запуску таймера присваивается
// поколение (timerGen); горутина отсчета действует только пока ее поколение
// актуально, а сам переход дополнительно защищен compare-and-set в
// SessionManager. Поэтому переход происходит ровно один раз.
type HostController struct {
	config *Config
	deps   *Dependencies

	sessions    *SessionManager
	leaderboard *Leaderboard

	state *ActiveSessionState

	mu          sync.Mutex
	timerGen    atomic.Int64
	cancelTimer context.CancelFunc
}

// NewHostController создает контроллер для загруженного состояния сессии
func NewHostController(config *Config, deps *Dependencies, state *ActiveSessionState) *HostController {
	return &HostController{
		config:      config,
		deps:        deps,
		sessions:    NewSessionManager(config, deps),
		leaderboard: NewLeaderboard(deps),
		state:       state,
	}
}

// State возвращает состояние сессии, которой управляет контроллер
func (hc *HostController) State() *ActiveSessionState {
	return hc.state
}

// Start запускает игру: waiting -> active, первый вопрос, отсчет таймера
func (hc *HostController) Start(ctx context.Context) error {
	if err := hc.sessions.Start(ctx, hc.state); err != nil {
		return err
	}
	hc.startTimer()
	return nil
}

// NextQuestion — ручное продвижение ведущим. Отменяет текущий отсчет и
// выполняет ту же последовательность reveal -> advance, что и таймер.
func (hc *HostController) NextQuestion(ctx context.Context) error {
	if !hc.state.Session.IsActive() {
		return apperrors.ErrConflict
	}
	gen := hc.stopTimer()
	return hc.revealAndAdvance(ctx, gen)
}

// Stop останавливает отсчет (завершение работы процесса, сессия сохранена)
func (hc *HostController) Stop() {
	hc.stopTimer()
}

// startTimer запускает отсчет для текущего вопроса, если у викторины
// включен таймер. Предыдущий отсчет, если он был, отменяется.
func (hc *HostController) startTimer() {
	if !hc.state.Quiz.HasTimer {
		return
	}

	hc.mu.Lock()
	if hc.cancelTimer != nil {
		hc.cancelTimer()
	}
	ctx, cancel := context.WithCancel(context.Background())
	hc.cancelTimer = cancel
	gen := hc.timerGen.Add(1)
	hc.mu.Unlock()

	go hc.runCountdown(ctx, gen)
}

// stopTimer отменяет текущий отсчет и инвалидирует его поколение.
// Возвращает новое актуальное поколение.
func (hc *HostController) stopTimer() int64 {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.cancelTimer != nil {
		hc.cancelTimer()
		hc.cancelTimer = nil
	}
	return hc.timerGen.Add(1)
}

// runCountdown ведет посекундный отсчет текущего вопроса и рассылает
// timer_update. По достижении нуля запускает reveal -> advance.
func (hc *HostController) runCountdown(ctx context.Context, gen int64) {
	total := hc.state.TimerBudgetSec(hc.config)
	if total <= 0 {
		return
	}

	sessionID := hc.state.Session.ID
	endTime := time.Now().Add(time.Duration(total) * time.Second)
	log.Printf("[HostController] Сессия %s: отсчет %d сек (gen %d)", sessionID, total, gen)

	ticker := time.NewTicker(hc.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if hc.timerGen.Load() != gen {
				return
			}
			timeLeft := int(time.Until(endTime).Round(time.Second).Seconds())
			if timeLeft < 0 {
				timeLeft = 0
			}
			hc.publish(ctx, sessionID, realtime.EventTimerUpdate, TimerUpdatePayload{TimeLeft: timeLeft})

			if timeLeft == 0 {
				// Отсчет истек: инвалидируем свое поколение, чтобы
				// параллельный ручной Next не сработал вторым.
				if !hc.timerGen.CompareAndSwap(gen, gen+1) {
					return
				}
				if err := hc.revealAndAdvance(context.Background(), gen+1); err != nil {
					log.Printf("[HostController] Сессия %s: ошибка advance по таймеру: %v", sessionID, err)
				}
				return
			}
		}
	}
}

// revealAndAdvance показывает правильный ответ с промежуточным лидербордом,
// выдерживает паузу и продвигает сессию. gen — поколение, под которым идет
// переход; если за время пауз оно изменилось, переход отменяется.
func (hc *HostController) revealAndAdvance(ctx context.Context, gen int64) error {
	sessionID := hc.state.Session.ID

	question, _ := hc.state.CurrentQuestion()
	if question != nil {
		hc.sleep(hc.config.RevealDelayMs)
		if hc.timerGen.Load() != gen {
			return nil
		}

		standings, err := hc.leaderboard.Standings(ctx, sessionID)
		if err != nil {
			log.Printf("[HostController] Сессия %s: ошибка чтения лидерборда: %v", sessionID, err)
			standings = nil
		}

		// Распределение ответов по вариантам для экрана ведущего
		counts := make(map[string]int)
		answers, err := hc.deps.AnswerRepo.GetByQuestion(question.ID)
		if err != nil {
			log.Printf("[HostController] Сессия %s: ошибка чтения ответов на вопрос %s: %v", sessionID, question.ID, err)
		}
		for _, a := range answers {
			counts[a.SelectedAnswer]++
		}

		hc.publish(ctx, sessionID, realtime.EventRevealAnswer, RevealAnswerPayload{
			QuestionID:    question.ID,
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
			AnswerCounts:  counts,
			Leaderboard:   standings,
		})

		hc.sleep(hc.config.LeaderboardDelayMs)
		if hc.timerGen.Load() != gen {
			return nil
		}
	}

	next, err := hc.sessions.Advance(ctx, hc.state)
	if err != nil {
		return err
	}
	if next == NextStateQuestion {
		hc.startTimer()
	}
	return nil
}

func (hc *HostController) sleep(ms int) {
	if ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
}

func (hc *HostController) publish(ctx context.Context, sessionID, eventType string, payload interface{}) {
	event, err := realtime.NewEvent(eventType, payload)
	if err != nil {
		log.Printf("[HostController] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	if err := hc.deps.Bus.Publish(ctx, realtime.SessionChannel(sessionID), event); err != nil {
		log.Printf("[HostController] Ошибка доставки события %s в сессию %s: %v", eventType, sessionID, err)
	}
}
