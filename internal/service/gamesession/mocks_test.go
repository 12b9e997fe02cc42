package gamesession

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
)

// ============================================================================
// Моки репозиториев для тестов пакета gamesession
// ============================================================================

// MockQuizRepo реализует repository.QuizRepository
type MockQuizRepo struct {
	mock.Mock
}

func (m *MockQuizRepo) Create(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) GetByID(id string) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) GetWithQuestions(id string) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) UpdateStatus(quizID string, status string) error {
	args := m.Called(quizID, status)
	return args.Error(0)
}

func (m *MockQuizRepo) Update(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) List(limit, offset int) ([]entity.Quiz, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockQuestionRepo реализует repository.QuestionRepository
type MockQuestionRepo struct {
	mock.Mock
}

func (m *MockQuestionRepo) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepo) GetByID(id string) (*entity.Question, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) GetByQuizID(quizID string) ([]entity.Question, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) DeleteByQuizID(quizID string) error {
	args := m.Called(quizID)
	return args.Error(0)
}

// MockSessionRepo реализует repository.GameSessionRepository
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Create(session *entity.GameSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionRepo) GetByID(id string) (*entity.GameSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockSessionRepo) GetByPIN(pin string) (*entity.GameSession, error) {
	args := m.Called(pin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockSessionRepo) FindForHost(quizID, hostID string) (*entity.GameSession, error) {
	args := m.Called(quizID, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockSessionRepo) AtomicStart(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

func (m *MockSessionRepo) AtomicAdvance(sessionID string, fromIndex int) error {
	args := m.Called(sessionID, fromIndex)
	return args.Error(0)
}

func (m *MockSessionRepo) AtomicComplete(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

// MockPlayerRepo реализует repository.PlayerRepository
type MockPlayerRepo struct {
	mock.Mock
}

func (m *MockPlayerRepo) Create(player *entity.Player) error {
	args := m.Called(player)
	return args.Error(0)
}

func (m *MockPlayerRepo) GetByID(id string) (*entity.Player, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Player), args.Error(1)
}

func (m *MockPlayerRepo) FindByNickname(sessionID, nickname string) (*entity.Player, error) {
	args := m.Called(sessionID, nickname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Player), args.Error(1)
}

func (m *MockPlayerRepo) CountBySession(sessionID string) (int64, error) {
	args := m.Called(sessionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlayerRepo) ListBySessionRanked(sessionID string) ([]entity.Player, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Player), args.Error(1)
}

func (m *MockPlayerRepo) IncrementScore(playerID string, delta int) error {
	args := m.Called(playerID, delta)
	return args.Error(0)
}

// MockAnswerRepo реализует repository.PlayerAnswerRepository
type MockAnswerRepo struct {
	mock.Mock
}

func (m *MockAnswerRepo) Save(answer *entity.PlayerAnswer) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockAnswerRepo) GetByPlayer(playerID string) ([]entity.PlayerAnswer, error) {
	args := m.Called(playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PlayerAnswer), args.Error(1)
}

func (m *MockAnswerRepo) GetByQuestion(questionID string) ([]entity.PlayerAnswer, error) {
	args := m.Called(questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PlayerAnswer), args.Error(1)
}

func (m *MockAnswerRepo) CountByQuestion(questionID string) (int64, error) {
	args := m.Called(questionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) SAdd(key string, member string) error {
	args := m.Called(key, member)
	return args.Error(0)
}

func (m *MockCacheRepo) SMembers(key string) ([]string, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
