package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
	"github.com/yourusername/quizlive-api/internal/service"
)

// QuizHandler обрабатывает запросы, связанные с викторинами
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// CreateQuiz обрабатывает запрос на создание викторины с вопросами
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req service.QuizInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.CreateQuiz(&req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz возвращает викторину с вопросами
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quiz, err := h.quizService.GetQuiz(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

// ListQuizzes возвращает страницу викторин
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	quizzes, err := h.quizService.ListQuizzes(limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes})
}

// DeleteQuiz удаляет викторину
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	if err := h.quizService.DeleteQuiz(c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuizHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
