package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrSessionNotFound используется, когда по PIN-коду не найдена игровая сессия.
	ErrSessionNotFound = errors.New("game session not found")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, попытка
	// запустить уже завершённую сессию или повторный advance).
	ErrConflict = errors.New("resource state conflict")

	// ErrNicknameTaken используется, когда никнейм уже занят в рамках сессии.
	ErrNicknameTaken = errors.New("nickname already taken in this session")

	// ErrNoPlayers используется при попытке запустить сессию без игроков.
	ErrNoPlayers = errors.New("session has no players")

	// ErrSessionFull используется, когда достигнут лимит игроков викторины.
	ErrSessionFull = errors.New("session player limit reached")

	// ErrAlreadyAnswered используется, когда игрок уже отвечал на этот вопрос.
	ErrAlreadyAnswered = errors.New("player already answered this question")

	// ErrForbidden используется, когда действие доступно только хосту сессии.
	ErrForbidden = errors.New("operation not allowed")
)
