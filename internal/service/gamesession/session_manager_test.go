package gamesession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
	"github.com/yourusername/quizlive-api/internal/realtime"
)

// testDeps собирает все моки и зависимости для тестов
type testDeps struct {
	quizRepo     *MockQuizRepo
	questionRepo *MockQuestionRepo
	sessionRepo  *MockSessionRepo
	playerRepo   *MockPlayerRepo
	answerRepo   *MockAnswerRepo
	cacheRepo    *MockCacheRepo
	bus          *realtime.MemoryBus
	deps         *Dependencies
}

func newTestDeps() *testDeps {
	td := &testDeps{
		quizRepo:     new(MockQuizRepo),
		questionRepo: new(MockQuestionRepo),
		sessionRepo:  new(MockSessionRepo),
		playerRepo:   new(MockPlayerRepo),
		answerRepo:   new(MockAnswerRepo),
		cacheRepo:    new(MockCacheRepo),
		bus:          realtime.NewMemoryBus(),
	}
	td.deps = &Dependencies{
		QuizRepo:     td.quizRepo,
		QuestionRepo: td.questionRepo,
		SessionRepo:  td.sessionRepo,
		PlayerRepo:   td.playerRepo,
		AnswerRepo:   td.answerRepo,
		CacheRepo:    td.cacheRepo,
		Bus:          td.bus,
	}
	// Кеш в большинстве тестов не под проверкой: снимки и чистка ключей
	// проходят без ошибок
	td.cacheRepo.On("SetJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	td.cacheRepo.On("Delete", mock.Anything).Return(nil).Maybe()
	return td
}

func testQuiz(hasTimer bool, questionCount int) *entity.Quiz {
	quiz := &entity.Quiz{
		ID:               "quiz-1",
		Title:            "Test Quiz",
		Status:           entity.QuizStatusReady,
		HasTimer:         hasTimer,
		QuestionTimerSec: 20,
	}
	for i := 0; i < questionCount; i++ {
		quiz.Questions = append(quiz.Questions, entity.Question{
			ID:            "q-" + string(rune('1'+i)),
			QuizID:        quiz.ID,
			Text:          "Question",
			Options:       entity.StringArray{"A", "B", "C"},
			CorrectAnswer: "A",
			Order:         i,
		})
	}
	return quiz
}

func testState(quiz *entity.Quiz, status string, currentIndex int) *ActiveSessionState {
	session := &entity.GameSession{
		ID:           "session-1",
		QuizID:       quiz.ID,
		HostID:       "host-1",
		PIN:          "123456",
		Status:       status,
		CurrentIndex: currentIndex,
	}
	state := NewActiveSessionState(session, quiz, quiz.Questions)
	if currentIndex >= 0 {
		state.SetCurrent(currentIndex, time.Now().UnixMilli())
	}
	return state
}

// collectEvents подписывается на канал сессии и возвращает приемник событий
func collectEvents(t *testing.T, bus *realtime.MemoryBus, sessionID string) <-chan realtime.Event {
	t.Helper()
	events, err := bus.Subscribe(context.Background(), realtime.SessionChannel(sessionID))
	require.NoError(t, err)
	return events
}

func waitEvent(t *testing.T, events <-chan realtime.Event) realtime.Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(time.Second):
		t.Fatal("событие не пришло за секунду")
		return realtime.Event{}
	}
}

func TestSessionManager_Start_NoPlayers(t *testing.T) {
	// Arrange
	td := newTestDeps()
	quiz := testQuiz(true, 2)
	state := testState(quiz, entity.SessionStatusWaiting, -1)

	td.playerRepo.On("CountBySession", "session-1").Return(int64(0), nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	err := sm.Start(context.Background(), state)

	// Assert: без игроков запуск запрещен и статус не меняется
	assert.ErrorIs(t, err, apperrors.ErrNoPlayers)
	assert.Equal(t, entity.SessionStatusWaiting, state.Session.Status)
	td.sessionRepo.AssertNotCalled(t, "AtomicStart", mock.Anything)
}

func TestSessionManager_Start_NotWaiting(t *testing.T) {
	// Arrange: завершенная сессия — терминальное состояние
	td := newTestDeps()
	quiz := testQuiz(true, 2)
	state := testState(quiz, entity.SessionStatusCompleted, 1)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	err := sm.Start(context.Background(), state)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSessionManager_Start_BroadcastsFirstQuestion(t *testing.T) {
	// Arrange
	td := newTestDeps()
	quiz := testQuiz(true, 2)
	state := testState(quiz, entity.SessionStatusWaiting, -1)
	events := collectEvents(t, td.bus, "session-1")

	td.playerRepo.On("CountBySession", "session-1").Return(int64(3), nil)
	td.sessionRepo.On("AtomicStart", "session-1").Return(nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	err := sm.Start(context.Background(), state)

	// Assert: статус active, индекс 0, broadcast первого вопроса
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusActive, state.Session.Status)
	assert.Equal(t, 0, state.CurrentIndex())

	event := waitEvent(t, events)
	assert.Equal(t, realtime.EventGameStarted, event.Type)
	// Снимок текущего вопроса закеширован для resync переподключившихся
	td.cacheRepo.AssertCalled(t, "SetJSON", "session:session-1:state", mock.Anything, mock.Anything)
	td.sessionRepo.AssertExpectations(t)
}

func TestSessionManager_Advance_NextQuestion(t *testing.T) {
	// Arrange: активная сессия на первом из двух вопросов
	td := newTestDeps()
	quiz := testQuiz(true, 2)
	state := testState(quiz, entity.SessionStatusActive, 0)
	events := collectEvents(t, td.bus, "session-1")

	td.sessionRepo.On("AtomicAdvance", "session-1", 0).Return(nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	next, err := sm.Advance(context.Background(), state)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, NextStateQuestion, next)
	assert.Equal(t, 1, state.CurrentIndex())

	event := waitEvent(t, events)
	assert.Equal(t, realtime.EventNextQuestion, event.Type)
}

func TestSessionManager_Advance_Completes(t *testing.T) {
	// Arrange: последний вопрос пройден
	td := newTestDeps()
	quiz := testQuiz(true, 2)
	state := testState(quiz, entity.SessionStatusActive, 1)
	events := collectEvents(t, td.bus, "session-1")

	td.sessionRepo.On("AtomicComplete", "session-1").Return(nil)
	td.quizRepo.On("UpdateStatus", "quiz-1", entity.QuizStatusCompleted).Return(nil)
	td.playerRepo.On("ListBySessionRanked", "session-1").Return([]entity.Player{
		{ID: "p-1", Nickname: "alice", TotalScore: 1500},
		{ID: "p-2", Nickname: "bob", TotalScore: 900},
	}, nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	next, err := sm.Advance(context.Background(), state)

	// Assert: завершение с финальным лидербордом
	require.NoError(t, err)
	assert.Equal(t, NextStateCompleted, next)
	assert.Equal(t, entity.SessionStatusCompleted, state.Session.Status)

	event := waitEvent(t, events)
	assert.Equal(t, realtime.EventGameEnded, event.Type)
	// Ключи завершенной сессии вычищены из кеша
	td.cacheRepo.AssertCalled(t, "Delete", "session:session-1:state")
	td.cacheRepo.AssertCalled(t, "Delete", "session:session-1:participants")
	td.quizRepo.AssertExpectations(t)
}

func TestSessionManager_Advance_DoubleTrigger(t *testing.T) {
	// Arrange: второй advance по тому же индексу отвергается хранилищем
	td := newTestDeps()
	quiz := testQuiz(true, 3)
	state := testState(quiz, entity.SessionStatusActive, 0)

	td.sessionRepo.On("AtomicAdvance", "session-1", 0).Return(nil).Once()
	td.sessionRepo.On("AtomicAdvance", "session-1", 1).Return(apperrors.ErrConflict).Once()

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	_, err1 := sm.Advance(context.Background(), state)
	_, err2 := sm.Advance(context.Background(), state)

	// Assert: ровно один переход, второй получает конфликт
	require.NoError(t, err1)
	assert.ErrorIs(t, err2, apperrors.ErrConflict)
	assert.Equal(t, 1, state.CurrentIndex())
}

func TestSessionManager_JoinPlayer_New(t *testing.T) {
	// Arrange
	td := newTestDeps()
	session := &entity.GameSession{
		ID:     "session-1",
		QuizID: "quiz-1",
		PIN:    "123456",
		Status: entity.SessionStatusWaiting,
	}
	events := collectEvents(t, td.bus, "session-1")

	td.sessionRepo.On("GetByPIN", "123456").Return(session, nil)
	td.playerRepo.On("FindByNickname", "session-1", "alice").Return(nil, apperrors.ErrNotFound)
	td.quizRepo.On("GetByID", "quiz-1").Return(testQuiz(true, 2), nil)
	td.playerRepo.On("Create", mock.AnythingOfType("*entity.Player")).Return(nil)
	td.cacheRepo.On("SAdd", "session:session-1:participants", mock.AnythingOfType("string")).Return(nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	player, got, err := sm.JoinPlayer(context.Background(), "123456", "alice")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "alice", player.Nickname)
	assert.Equal(t, "session-1", got.ID)

	event := waitEvent(t, events)
	assert.Equal(t, realtime.EventPlayerJoined, event.Type)
	td.playerRepo.AssertExpectations(t)
}

func TestSessionManager_JoinPlayer_Reconnect(t *testing.T) {
	// Arrange: игрок с этим никнеймом уже есть в сессии
	td := newTestDeps()
	session := &entity.GameSession{
		ID:     "session-1",
		QuizID: "quiz-1",
		PIN:    "123456",
		Status: entity.SessionStatusActive,
	}
	existing := &entity.Player{ID: "p-1", SessionID: "session-1", Nickname: "alice", TotalScore: 700}

	td.sessionRepo.On("GetByPIN", "123456").Return(session, nil)
	td.playerRepo.On("FindByNickname", "session-1", "alice").Return(existing, nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	player, _, err := sm.JoinPlayer(context.Background(), "123456", "alice")

	// Assert: возвращается существующая строка, Create не вызывается
	require.NoError(t, err)
	assert.Equal(t, "p-1", player.ID)
	assert.Equal(t, 700, player.TotalScore)
	td.playerRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestSessionManager_JoinPlayer_SessionFull(t *testing.T) {
	// Arrange: лимит игроков достигнут
	td := newTestDeps()
	session := &entity.GameSession{
		ID:     "session-1",
		QuizID: "quiz-1",
		PIN:    "123456",
		Status: entity.SessionStatusWaiting,
	}
	quiz := testQuiz(true, 2)
	quiz.PlayerLimit = 2

	td.sessionRepo.On("GetByPIN", "123456").Return(session, nil)
	td.playerRepo.On("FindByNickname", "session-1", "carol").Return(nil, apperrors.ErrNotFound)
	td.quizRepo.On("GetByID", "quiz-1").Return(quiz, nil)
	td.playerRepo.On("CountBySession", "session-1").Return(int64(2), nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	_, _, err := sm.JoinPlayer(context.Background(), "123456", "carol")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrSessionFull)
}

func TestSessionManager_JoinPlayer_UnknownPIN(t *testing.T) {
	// Arrange
	td := newTestDeps()
	td.sessionRepo.On("GetByPIN", "000000").Return(nil, apperrors.ErrNotFound)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	_, _, err := sm.JoinPlayer(context.Background(), "000000", "alice")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestSessionManager_JoinPlayer_CompletedSession(t *testing.T) {
	// Arrange: к завершенной сессии присоединиться нельзя
	td := newTestDeps()
	session := &entity.GameSession{
		ID:     "session-1",
		PIN:    "123456",
		Status: entity.SessionStatusCompleted,
	}
	td.sessionRepo.On("GetByPIN", "123456").Return(session, nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	_, _, err := sm.JoinPlayer(context.Background(), "123456", "alice")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestSessionManager_CheckNickname_Taken(t *testing.T) {
	// Arrange
	td := newTestDeps()
	session := &entity.GameSession{
		ID:     "session-1",
		PIN:    "123456",
		Status: entity.SessionStatusWaiting,
	}
	td.sessionRepo.On("GetByPIN", "123456").Return(session, nil)
	td.playerRepo.On("FindByNickname", "session-1", "alice").
		Return(&entity.Player{ID: "p-1", Nickname: "alice"}, nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	err := sm.CheckNickname(context.Background(), "123456", "alice")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrNicknameTaken)
}

func TestSessionManager_Participants_FromCache(t *testing.T) {
	// Arrange
	td := newTestDeps()
	td.cacheRepo.On("SMembers", "session:session-1:participants").
		Return([]string{"p-1", "p-2"}, nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	ids, err := sm.Participants(context.Background(), "session-1")

	// Assert: хранилище не трогается, пока presence-набор жив
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p-1", "p-2"}, ids)
	td.playerRepo.AssertNotCalled(t, "ListBySessionRanked", mock.Anything)
}

func TestSessionManager_Participants_StoreFallback(t *testing.T) {
	// Arrange: Redis недоступен
	td := newTestDeps()
	td.cacheRepo.On("SMembers", "session:session-1:participants").
		Return(nil, assert.AnError)
	td.playerRepo.On("ListBySessionRanked", "session-1").Return([]entity.Player{
		{ID: "p-1", Nickname: "alice"},
		{ID: "p-2", Nickname: "bob"},
	}, nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	ids, err := sm.Participants(context.Background(), "session-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2"}, ids)
}

func TestSessionManager_CreateOrResume_ReusesOpenSession(t *testing.T) {
	// Arrange: у хоста уже есть незавершенная сессия
	td := newTestDeps()
	quiz := testQuiz(true, 2)
	existing := &entity.GameSession{
		ID:     "session-1",
		QuizID: "quiz-1",
		HostID: "host-1",
		PIN:    "654321",
		Status: entity.SessionStatusActive,
	}
	td.quizRepo.On("GetWithQuestions", "quiz-1").Return(quiz, nil)
	td.sessionRepo.On("FindForHost", "quiz-1", "host-1").Return(existing, nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	session, err := sm.CreateOrResume(context.Background(), "quiz-1", "host-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.ID)
	td.sessionRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestSessionManager_CreateOrResume_CreatesWithPIN(t *testing.T) {
	// Arrange: открытой сессии нет
	td := newTestDeps()
	quiz := testQuiz(true, 2)
	td.quizRepo.On("GetWithQuestions", "quiz-1").Return(quiz, nil)
	td.sessionRepo.On("FindForHost", "quiz-1", "host-1").Return(nil, apperrors.ErrNotFound)
	td.sessionRepo.On("Create", mock.AnythingOfType("*entity.GameSession")).Return(nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	session, err := sm.CreateOrResume(context.Background(), "quiz-1", "host-1")

	// Assert: waiting, индекс -1, 6-значный PIN
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusWaiting, session.Status)
	assert.Equal(t, -1, session.CurrentIndex)
	assert.Len(t, session.PIN, 6)
}

func TestSessionManager_CreateOrResume_EmptyQuiz(t *testing.T) {
	// Arrange: викторина без вопросов
	td := newTestDeps()
	quiz := testQuiz(true, 0)
	td.quizRepo.On("GetWithQuestions", "quiz-1").Return(quiz, nil)

	sm := NewSessionManager(DefaultConfig(), td.deps)

	// Act
	_, err := sm.CreateOrResume(context.Background(), "quiz-1", "host-1")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGeneratePIN_SixDigits(t *testing.T) {
	for i := 0; i < 100; i++ {
		pin := generatePIN()
		assert.Len(t, pin, 6)
		assert.GreaterOrEqual(t, pin, "100000")
		assert.LessOrEqual(t, pin, "999999")
	}
}
