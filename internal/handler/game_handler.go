package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
	"github.com/yourusername/quizlive-api/internal/service"
)

// GameHandler обрабатывает запросы игрового процесса: сессии хоста,
// подключение игроков, ответы и лидерборды
type GameHandler struct {
	gameService *service.GameService
}

// NewGameHandler создает новый игровой обработчик
func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// CreateSessionRequest — запрос на создание сессии хостом
type CreateSessionRequest struct {
	QuizID string `json:"quiz_id" binding:"required"`
	HostID string `json:"host_id" binding:"required"`
}

// CreateSession создает или возобновляет сессию хоста
func (h *GameHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.gameService.CreateSession(c.Request.Context(), req.QuizID, req.HostID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetSession возвращает сессию по ID
func (h *GameHandler) GetSession(c *gin.Context) {
	session, err := h.gameService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Roster возвращает список игроков сессии (лобби хоста)
func (h *GameHandler) Roster(c *gin.Context) {
	players, err := h.gameService.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": players, "count": len(players)})
}

// HostActionRequest — запрос действия хоста над сессией
type HostActionRequest struct {
	HostID string `json:"host_id" binding:"required"`
}

// StartSession запускает игру (только хост)
func (h *GameHandler) StartSession(c *gin.Context) {
	var req HostActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gameService.StartSession(c.Request.Context(), c.Param("id"), req.HostID); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

// NextQuestion продвигает сессию к следующему вопросу (только хост)
func (h *GameHandler) NextQuestion(c *gin.Context) {
	var req HostActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gameService.NextQuestion(c.Request.Context(), c.Param("id"), req.HostID); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// JoinRequest — запрос игрока на подключение по PIN
type JoinRequest struct {
	PIN      string `json:"pin" binding:"required,len=6"`
	Nickname string `json:"nickname" binding:"required,min=1,max=20"`
}

// Join подключает игрока к сессии
func (h *GameHandler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agent, err := h.gameService.Join(c.Request.Context(), req.PIN, req.Nickname)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"player": agent.Player(),
		"view":   agent.Snapshot(),
	})
}

// ValidateNickname проверяет доступность никнейма до подключения
func (h *GameHandler) ValidateNickname(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gameService.ValidateNickname(c.Request.Context(), req.PIN, req.Nickname); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": true})
}

// SelectRequest — выбор варианта ответа игроком
type SelectRequest struct {
	Option string `json:"option" binding:"required"`
}

// SelectOption фиксирует выбор варианта игроком
func (h *GameHandler) SelectOption(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gameService.SelectOption(c.Param("id"), req.Option); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "selected"})
}

// SubmitAnswer отправляет выбранный вариант игрока
func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	if err := h.gameService.SubmitAnswer(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

// PlayerView возвращает текущее представление игрока (resync клиента)
func (h *GameHandler) PlayerView(c *gin.Context) {
	view, err := h.gameService.PlayerView(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Leaderboard возвращает текущие места игроков сессии
func (h *GameHandler) Leaderboard(c *gin.Context) {
	standings, err := h.gameService.Leaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": standings})
}

// Results возвращает итоги завершенной сессии
func (h *GameHandler) Results(c *gin.Context) {
	results, err := h.gameService.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *GameHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound), errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNicknameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "nickname already taken in this session"})
	case errors.Is(err, apperrors.ErrSessionFull):
		c.JSON(http.StatusConflict, gin.H{"error": "session player limit reached"})
	case errors.Is(err, apperrors.ErrAlreadyAnswered):
		c.JSON(http.StatusConflict, gin.H{"error": "answer already submitted"})
	case errors.Is(err, apperrors.ErrNoPlayers):
		c.JSON(http.StatusConflict, gin.H{"error": "cannot start session without players"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the session host may perform this action"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
