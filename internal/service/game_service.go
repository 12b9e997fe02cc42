package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
	"github.com/yourusername/quizlive-api/internal/service/gamesession"
)

// SessionResults — итоги завершенной сессии
type SessionResults struct {
	Session     *entity.GameSession            `json:"session"`
	Leaderboard []gamesession.LeaderboardEntry `json:"leaderboard"`
}

// GameService — фасад над пакетом gamesession. Держит реестр активных
// контроллеров хоста (по ID сессии) и агентов игроков (по ID игрока),
// проверяет права хоста и маршрутизирует операции HTTP-слоя.
type GameService struct {
	config *gamesession.Config
	deps   *gamesession.Dependencies

	sessions    *gamesession.SessionManager
	leaderboard *gamesession.Leaderboard

	mu          sync.Mutex
	controllers map[string]*gamesession.HostController
	agents      map[string]*gamesession.PlayerAgent
}

// NewGameService создает новый игровой сервис
func NewGameService(config *gamesession.Config, deps *gamesession.Dependencies) *GameService {
	if config == nil {
		config = gamesession.DefaultConfig()
	}
	return &GameService{
		config:      config,
		deps:        deps,
		sessions:    gamesession.NewSessionManager(config, deps),
		leaderboard: gamesession.NewLeaderboard(deps),
		controllers: make(map[string]*gamesession.HostController),
		agents:      make(map[string]*gamesession.PlayerAgent),
	}
}

// CreateSession создает или возобновляет сессию хоста для викторины
func (s *GameService) CreateSession(ctx context.Context, quizID, hostID string) (*entity.GameSession, error) {
	if hostID == "" {
		return nil, fmt.Errorf("host id is required: %w", apperrors.ErrValidation)
	}
	return s.sessions.CreateOrResume(ctx, quizID, hostID)
}

// GetSession возвращает сессию по ID
func (s *GameService) GetSession(ctx context.Context, sessionID string) (*entity.GameSession, error) {
	return s.deps.SessionRepo.GetByID(sessionID)
}

// Roster возвращает ID игроков сессии (живой список лобби хоста)
func (s *GameService) Roster(ctx context.Context, sessionID string) ([]string, error) {
	if _, err := s.deps.SessionRepo.GetByID(sessionID); err != nil {
		return nil, err
	}
	return s.sessions.Participants(ctx, sessionID)
}

// StartSession запускает игру. Доступно только хосту сессии.
func (s *GameService) StartSession(ctx context.Context, sessionID, hostID string) error {
	controller, err := s.controllerFor(ctx, sessionID, hostID)
	if err != nil {
		return err
	}
	return controller.Start(ctx)
}

// NextQuestion — ручное продвижение хостом
func (s *GameService) NextQuestion(ctx context.Context, sessionID, hostID string) error {
	controller, err := s.controllerFor(ctx, sessionID, hostID)
	if err != nil {
		return err
	}
	err = controller.NextQuestion(ctx)
	if err == nil && controller.State().Session.IsCompleted() {
		s.releaseController(sessionID)
	}
	return err
}

// Join подключает игрока к сессии по PIN-коду
func (s *GameService) Join(ctx context.Context, pin, nickname string) (*gamesession.PlayerAgent, error) {
	agent, err := gamesession.JoinSession(ctx, s.config, s.deps, pin, nickname)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Переподключение под тем же игроком: старый агент останавливается
	if prev, ok := s.agents[agent.Player().ID]; ok {
		go prev.Close()
	}
	s.agents[agent.Player().ID] = agent
	s.mu.Unlock()
	return agent, nil
}

// ValidateNickname проверяет доступность никнейма до join
func (s *GameService) ValidateNickname(ctx context.Context, pin, nickname string) error {
	return s.sessions.CheckNickname(ctx, pin, nickname)
}

// SelectOption фиксирует выбор варианта игроком
func (s *GameService) SelectOption(playerID, option string) error {
	agent, err := s.agentFor(playerID)
	if err != nil {
		return err
	}
	return agent.SelectOption(option)
}

// SubmitAnswer отправляет выбранный вариант игрока
func (s *GameService) SubmitAnswer(ctx context.Context, playerID string) error {
	agent, err := s.agentFor(playerID)
	if err != nil {
		return err
	}
	return agent.SubmitAnswer(ctx)
}

// PlayerView возвращает текущее локальное представление игрока
func (s *GameService) PlayerView(playerID string) (gamesession.PlayerView, error) {
	agent, err := s.agentFor(playerID)
	if err != nil {
		return gamesession.PlayerView{}, err
	}
	return agent.Snapshot(), nil
}

// Leaderboard возвращает текущие места игроков сессии
func (s *GameService) Leaderboard(ctx context.Context, sessionID string) ([]gamesession.LeaderboardEntry, error) {
	if _, err := s.deps.SessionRepo.GetByID(sessionID); err != nil {
		return nil, err
	}
	return s.leaderboard.Standings(ctx, sessionID)
}

// Results возвращает итоги завершенной сессии
func (s *GameService) Results(ctx context.Context, sessionID string) (*SessionResults, error) {
	session, err := s.deps.SessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsCompleted() {
		return nil, fmt.Errorf("session %s is not completed: %w", sessionID, apperrors.ErrConflict)
	}
	standings, err := s.leaderboard.Standings(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionResults{Session: session, Leaderboard: standings}, nil
}

// Shutdown останавливает все контроллеры и агентов
func (s *GameService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.controllers {
		c.Stop()
		delete(s.controllers, id)
	}
	for id, a := range s.agents {
		go a.Close()
		delete(s.agents, id)
	}
	log.Println("[GameService] Все контроллеры и агенты остановлены")
}

// controllerFor возвращает контроллер сессии, создавая его при первом
// обращении (resume хоста после перезапуска процесса). Проверяет, что
// операцию запрашивает хост сессии.
func (s *GameService) controllerFor(ctx context.Context, sessionID, hostID string) (*gamesession.HostController, error) {
	s.mu.Lock()
	controller, ok := s.controllers[sessionID]
	s.mu.Unlock()

	if !ok {
		state, err := s.sessions.LoadState(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		// Гонка двух запросов: второй переиспользует уже созданный
		if existing, raced := s.controllers[sessionID]; raced {
			controller = existing
		} else {
			controller = gamesession.NewHostController(s.config, s.deps, state)
			s.controllers[sessionID] = controller
		}
		s.mu.Unlock()
	}

	if controller.State().Session.HostID != hostID {
		return nil, apperrors.ErrForbidden
	}
	return controller, nil
}

func (s *GameService) agentFor(playerID string) (*gamesession.PlayerAgent, error) {
	s.mu.Lock()
	agent, ok := s.agents[playerID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("player %s has no active agent: %w", playerID, apperrors.ErrNotFound)
	}
	return agent, nil
}

func (s *GameService) releaseController(sessionID string) {
	s.mu.Lock()
	if c, ok := s.controllers[sessionID]; ok {
		c.Stop()
		delete(s.controllers, sessionID)
	}
	s.mu.Unlock()
}
