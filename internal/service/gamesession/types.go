package gamesession

import (
	"sync"
	"time"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	"github.com/yourusername/quizlive-api/internal/domain/repository"
	"github.com/yourusername/quizlive-api/internal/realtime"
)

const (
	// DefaultMaxResponseTimeMs — бюджет времени ответа по умолчанию (скоринг)
	DefaultMaxResponseTimeMs = 20000
)

// Config содержит настройки для всех компонентов игровой сессии
type Config struct {
	// Таймауты и интервалы
	TickInterval       time.Duration // Шаг обратного отсчета
	RevealDelayMs      int           // Задержка после истечения таймера перед показом ответа
	LeaderboardDelayMs int           // Сколько показывается лидерборд перед следующим вопросом

	// Настройки ответов
	DefaultTimerSec   int   // Бюджет на вопрос, если викторина не задала свой
	MaxResponseTimeMs int64 // Максимальное время ответа в мс (потолок скоринга)
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		TickInterval:       1 * time.Second,
		RevealDelayMs:      500,
		LeaderboardDelayMs: 3000,
		DefaultTimerSec:    entity.DefaultQuestionTimerSec,
		MaxResponseTimeMs:  DefaultMaxResponseTimeMs,
	}
}

// Dependencies содержит зависимости компонентов игровой сессии
type Dependencies struct {
	QuizRepo     repository.QuizRepository
	QuestionRepo repository.QuestionRepository
	SessionRepo  repository.GameSessionRepository
	PlayerRepo   repository.PlayerRepository
	AnswerRepo   repository.PlayerAnswerRepository
	CacheRepo    repository.CacheRepository
	Bus          realtime.Bus
}

// ActiveSessionState хранит состояние активной сессии в процессе хоста.
// Авторитетный current_index лежит в строке game_sessions; здесь — рабочая
// копия, защищенная mutex'ом.
type ActiveSessionState struct {
	Session   *entity.GameSession
	Quiz      *entity.Quiz
	Questions []entity.Question

	mu              sync.RWMutex
	currentIndex    int
	questionStartMs int64
}

// NewActiveSessionState создает состояние сессии из строк хранилища
func NewActiveSessionState(session *entity.GameSession, quiz *entity.Quiz, questions []entity.Question) *ActiveSessionState {
	return &ActiveSessionState{
		Session:      session,
		Quiz:         quiz,
		Questions:    questions,
		currentIndex: session.CurrentIndex,
	}
}

// CurrentIndex возвращает индекс текущего вопроса (-1 до старта)
func (s *ActiveSessionState) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// CurrentQuestion возвращает текущий вопрос и его номер (1-based).
// До старта и после завершения возвращает (nil, 0).
func (s *ActiveSessionState) CurrentQuestion() (*entity.Question, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentIndex < 0 || s.currentIndex >= len(s.Questions) {
		return nil, 0
	}
	return &s.Questions[s.currentIndex], s.currentIndex + 1
}

// SetCurrent устанавливает индекс текущего вопроса и время его отправки
func (s *ActiveSessionState) SetCurrent(index int, startMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentIndex = index
	s.questionStartMs = startMs
}

// QuestionStartMs возвращает время отправки текущего вопроса (Unix ms)
func (s *ActiveSessionState) QuestionStartMs() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questionStartMs
}

// TimerBudgetSec возвращает бюджет времени на вопрос для этой сессии
func (s *ActiveSessionState) TimerBudgetSec(config *Config) int {
	if s.Quiz != nil && s.Quiz.QuestionTimerSec > 0 {
		return s.Quiz.QuestionTimerSec
	}
	return config.DefaultTimerSec
}
