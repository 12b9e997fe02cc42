package gamesession

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
	"github.com/yourusername/quizlive-api/internal/realtime"
)

// sessionCacheTTL ограничивает жизнь ключей сессии в кеше: брошенные
// сессии не копятся в Redis
const sessionCacheTTL = 6 * time.Hour

// stateKey — ключ снимка текущего вопроса сессии
func stateKey(sessionID string) string {
	return fmt.Sprintf("session:%s:state", sessionID)
}

// participantsKey — ключ presence-набора участников сессии
func participantsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:participants", sessionID)
}

// sessionSnapshot — снимок текущего вопроса в кеше. Переподключившийся
// игрок восстанавливает вопрос и остаток времени из него, не дожидаясь
// следующего broadcast.
type sessionSnapshot struct {
	Status          string          `json:"status"`
	Question        QuestionPayload `json:"question"`
	TimerSec        int             `json:"timer_sec"`
	QuestionStartMs int64           `json:"question_start_ms"`
}

// NextState описывает результат advance
type NextState int

const (
	// NextStateQuestion — сессия перешла к следующему вопросу
	NextStateQuestion NextState = iota
	// NextStateCompleted — последний вопрос пройден, сессия завершена
	NextStateCompleted
)

// SessionManager владеет жизненным циклом игровой сессии:
// waiting -> active -> completed, без пропуска состояний.
// Переходы запрашивает только Host Controller; каждый переход сначала
// персистится, и только после успешной записи уходит broadcast.
type SessionManager struct {
	config *Config
	deps   *Dependencies
}

// NewSessionManager создает новый менеджер сессий
func NewSessionManager(config *Config, deps *Dependencies) *SessionManager {
	return &SessionManager{
		config: config,
		deps:   deps,
	}
}

// CreateOrResume возвращает существующую незавершенную сессию хоста для этой
// викторины (идемпотентный resume после перезагрузки страницы) или создает
// новую в статусе waiting со свежим 6-значным PIN.
func (sm *SessionManager) CreateOrResume(ctx context.Context, quizID, hostID string) (*entity.GameSession, error) {
	quiz, err := sm.deps.QuizRepo.GetWithQuestions(quizID)
	if err != nil {
		return nil, err
	}

	// Викторина без вопросов не может быть сыграна
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("quiz %s has no questions: %w", quizID, apperrors.ErrNotFound)
	}

	// Ищем существующую waiting/active сессию этого хоста
	existing, err := sm.deps.SessionRepo.FindForHost(quizID, hostID)
	if err == nil {
		log.Printf("[SessionManager] Хост %s возобновляет сессию %s (PIN %s, статус %s)",
			hostID, existing.ID, existing.PIN, existing.Status)
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	session := &entity.GameSession{
		ID:           uuid.NewString(),
		QuizID:       quizID,
		HostID:       hostID,
		PIN:          generatePIN(),
		Status:       entity.SessionStatusWaiting,
		CurrentIndex: -1,
	}
	if err := sm.deps.SessionRepo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}

	log.Printf("[SessionManager] Создана сессия %s для викторины %s (PIN %s)", session.ID, quizID, session.PIN)
	return session, nil
}

// LoadState загружает состояние сессии из хранилища (истина для resync хоста)
func (sm *SessionManager) LoadState(ctx context.Context, sessionID string) (*ActiveSessionState, error) {
	session, err := sm.deps.SessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	quiz, err := sm.deps.QuizRepo.GetByID(session.QuizID)
	if err != nil {
		return nil, err
	}
	questions, err := sm.deps.QuestionRepo.GetByQuizID(session.QuizID)
	if err != nil {
		return nil, err
	}
	return NewActiveSessionState(session, quiz, questions), nil
}

// Start переводит сессию waiting -> active. Требует хотя бы одного игрока.
// Broadcast game_started уходит только после успешной записи статуса.
func (sm *SessionManager) Start(ctx context.Context, state *ActiveSessionState) error {
	if !state.Session.IsWaiting() {
		return fmt.Errorf("session %s is not waiting: %w", state.Session.ID, apperrors.ErrConflict)
	}

	count, err := sm.deps.PlayerRepo.CountBySession(state.Session.ID)
	if err != nil {
		return fmt.Errorf("failed to count players: %w", err)
	}
	if count == 0 {
		return apperrors.ErrNoPlayers
	}

	// Атомарный переход: второй Start получит ErrConflict
	if err := sm.deps.SessionRepo.AtomicStart(state.Session.ID); err != nil {
		return err
	}
	state.Session.Status = entity.SessionStatusActive
	state.Session.CurrentIndex = 0
	state.SetCurrent(0, time.Now().UnixMilli())

	log.Printf("[SessionManager] Сессия %s запущена, игроков: %d", state.Session.ID, count)
	sm.broadcastQuestion(ctx, state, realtime.EventGameStarted)
	return nil
}

// Advance продвигает сессию к следующему вопросу либо завершает ее.
// Compare-and-set по current_index гарантирует ровно один переход при
// двойном триггере (ручной Next во время срабатывания таймера).
func (sm *SessionManager) Advance(ctx context.Context, state *ActiveSessionState) (NextState, error) {
	if !state.Session.IsActive() {
		return 0, fmt.Errorf("session %s is not active: %w", state.Session.ID, apperrors.ErrConflict)
	}

	idx := state.CurrentIndex()
	next := idx + 1

	if next < len(state.Questions) {
		if err := sm.deps.SessionRepo.AtomicAdvance(state.Session.ID, idx); err != nil {
			return 0, err
		}
		state.Session.CurrentIndex = next
		state.SetCurrent(next, time.Now().UnixMilli())

		log.Printf("[SessionManager] Сессия %s: вопрос %d из %d", state.Session.ID, next+1, len(state.Questions))
		sm.broadcastQuestion(ctx, state, realtime.EventNextQuestion)
		return NextStateQuestion, nil
	}

	// Последний вопрос пройден: active -> completed, ровно один раз
	if err := sm.deps.SessionRepo.AtomicComplete(state.Session.ID); err != nil {
		return 0, err
	}
	state.Session.Status = entity.SessionStatusCompleted

	// Викторина отмечается завершенной; ошибка не откатывает переход сессии
	if err := sm.deps.QuizRepo.UpdateStatus(state.Session.QuizID, entity.QuizStatusCompleted); err != nil {
		log.Printf("[SessionManager] Ошибка при завершении викторины %s: %v", state.Session.QuizID, err)
	}

	// Финальные места всегда читаются из хранилища, не из устаревшего broadcast
	leaderboard := NewLeaderboard(sm.deps)
	standings, err := leaderboard.Standings(ctx, state.Session.ID)
	if err != nil {
		log.Printf("[SessionManager] Ошибка при чтении финального лидерборда сессии %s: %v", state.Session.ID, err)
		standings = nil
	}

	// Ключи завершенной сессии в кеше больше не нужны
	for _, key := range []string{stateKey(state.Session.ID), participantsKey(state.Session.ID)} {
		if err := sm.deps.CacheRepo.Delete(key); err != nil {
			log.Printf("[SessionManager] WARNING: Не удалось удалить ключ %s: %v", key, err)
		}
	}

	log.Printf("[SessionManager] Сессия %s завершена", state.Session.ID)
	sm.publish(ctx, state.Session.ID, realtime.EventGameEnded, GameEndedPayload{Leaderboard: standings})
	return NextStateCompleted, nil
}

// JoinPlayer подключает игрока к сессии по PIN-коду.
// Повторный join с тем же (pin, nickname) возвращает существующую строку
// без ошибки — reconnect после перезагрузки страницы.
func (sm *SessionManager) JoinPlayer(ctx context.Context, pin, nickname string) (*entity.Player, *entity.GameSession, error) {
	if nickname == "" {
		return nil, nil, fmt.Errorf("nickname is required: %w", apperrors.ErrValidation)
	}

	session, err := sm.deps.SessionRepo.GetByPIN(pin)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.ErrSessionNotFound
		}
		return nil, nil, err
	}
	// К завершенной сессии присоединиться нельзя
	if session.IsCompleted() {
		return nil, nil, apperrors.ErrSessionNotFound
	}

	// Идемпотентность: существующая строка переиспользуется
	existing, err := sm.deps.PlayerRepo.FindByNickname(session.ID, nickname)
	if err == nil {
		log.Printf("[SessionManager] Игрок %s переподключился к сессии %s", nickname, session.ID)
		return existing, session, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, err
	}

	// Проверяем лимит игроков викторины
	quiz, err := sm.deps.QuizRepo.GetByID(session.QuizID)
	if err != nil {
		return nil, nil, err
	}
	if quiz.PlayerLimit > 0 {
		count, err := sm.deps.PlayerRepo.CountBySession(session.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to count players: %w", err)
		}
		if count >= int64(quiz.PlayerLimit) {
			return nil, nil, apperrors.ErrSessionFull
		}
	}

	player := &entity.Player{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Nickname:  nickname,
	}
	if err := sm.deps.PlayerRepo.Create(player); err != nil {
		return nil, nil, fmt.Errorf("failed to create player: %w", err)
	}

	// Presence-набор участников (живой список лобби на стороне хоста)
	if err := sm.deps.CacheRepo.SAdd(participantsKey(session.ID), player.ID); err != nil {
		log.Printf("[SessionManager] WARNING: Не удалось добавить игрока %s в presence-набор: %v", player.ID, err)
	}

	log.Printf("[SessionManager] Игрок %s (%s) присоединился к сессии %s", nickname, player.ID, session.ID)
	sm.publish(ctx, session.ID, realtime.EventPlayerJoined, PlayerJoinedPayload{Player: *player})
	return player, session, nil
}

// Participants возвращает ID игроков сессии: сначала presence-набор из
// кеша, при пустом или недоступном кеше — строки хранилища.
func (sm *SessionManager) Participants(ctx context.Context, sessionID string) ([]string, error) {
	ids, err := sm.deps.CacheRepo.SMembers(participantsKey(sessionID))
	if err == nil && len(ids) > 0 {
		return ids, nil
	}
	if err != nil {
		log.Printf("[SessionManager] WARNING: Presence-набор сессии %s недоступен, читаем хранилище: %v", sessionID, err)
	}

	players, err := sm.deps.PlayerRepo.ListBySessionRanked(sessionID)
	if err != nil {
		return nil, err
	}
	ids = make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// CheckNickname проверяет доступность никнейма в сессии (для формы входа)
func (sm *SessionManager) CheckNickname(ctx context.Context, pin, nickname string) error {
	session, err := sm.deps.SessionRepo.GetByPIN(pin)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrSessionNotFound
		}
		return err
	}
	if session.IsCompleted() {
		return apperrors.ErrSessionNotFound
	}

	_, err = sm.deps.PlayerRepo.FindByNickname(session.ID, nickname)
	if err == nil {
		return apperrors.ErrNicknameTaken
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}

// broadcastQuestion отправляет текущий вопрос всем участникам сессии
func (sm *SessionManager) broadcastQuestion(ctx context.Context, state *ActiveSessionState, eventType string) {
	question, number := state.CurrentQuestion()
	if question == nil {
		return
	}

	timeLeft := 0
	if state.Quiz.HasTimer {
		timeLeft = state.TimerBudgetSec(sm.config)
	}

	payload := QuestionEventPayload{
		Question: newQuestionPayload(question, number, len(state.Questions)),
		TimeLeft: timeLeft,
	}

	// Снимок пишется до broadcast: игрок, подключившийся между событиями,
	// получит текущий вопрос из кеша при resync
	snapshot := sessionSnapshot{
		Status:          state.Session.Status,
		Question:        payload.Question,
		TimerSec:        timeLeft,
		QuestionStartMs: state.QuestionStartMs(),
	}
	if err := sm.deps.CacheRepo.SetJSON(stateKey(state.Session.ID), snapshot, sessionCacheTTL); err != nil {
		log.Printf("[SessionManager] WARNING: Не удалось закешировать снимок сессии %s: %v", state.Session.ID, err)
	}

	sm.publish(ctx, state.Session.ID, eventType, payload)
}

// publish отправляет событие в канал сессии. Ошибки доставки не фатальны:
// хранилище авторитетно, клиенты пересинхронизируются из него.
func (sm *SessionManager) publish(ctx context.Context, sessionID, eventType string, payload interface{}) {
	event, err := realtime.NewEvent(eventType, payload)
	if err != nil {
		log.Printf("[SessionManager] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	if err := sm.deps.Bus.Publish(ctx, realtime.SessionChannel(sessionID), event); err != nil {
		log.Printf("[SessionManager] Ошибка доставки события %s в сессию %s: %v", eventType, sessionID, err)
	}
}

// generatePIN возвращает 6-значный цифровой PIN-код
func generatePIN() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}
