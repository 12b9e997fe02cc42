package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
)

// SessionRepo реализует repository.GameSessionRepository поверх GORM.
// Переходы статуса выполнены как compare-and-set UPDATE: WHERE-условие
// описывает ожидаемое текущее состояние, RowsAffected == 0 означает, что
// переход уже выполнен кем-то другим (или состояние не то).
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий игровых сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create сохраняет новую сессию
func (r *SessionRepo) Create(session *entity.GameSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create game session: %w", err)
	}
	return nil
}

// GetByID возвращает сессию по ID
func (r *SessionRepo) GetByID(id string) (*entity.GameSession, error) {
	var session entity.GameSession
	err := r.db.First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}
	return &session, nil
}

// GetByPIN возвращает последнюю незавершенную сессию с этим PIN-кодом.
// PIN переиспользуется между играми, поэтому completed-сессии исключаются.
func (r *SessionRepo) GetByPIN(pin string) (*entity.GameSession, error) {
	var session entity.GameSession
	err := r.db.Where("pin = ? AND status <> ?", pin, entity.SessionStatusCompleted).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get game session by pin: %w", err)
	}
	return &session, nil
}

// FindForHost возвращает незавершенную сессию хоста для викторины (resume)
func (r *SessionRepo) FindForHost(quizID, hostID string) (*entity.GameSession, error) {
	var session entity.GameSession
	err := r.db.Where("quiz_id = ? AND host_id = ? AND status <> ?", quizID, hostID, entity.SessionStatusCompleted).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find session for host: %w", err)
	}
	return &session, nil
}

// AtomicStart выполняет переход waiting -> active с первым вопросом.
// Возвращает ErrConflict, если сессия уже не в waiting.
func (r *SessionRepo) AtomicStart(sessionID string) error {
	result := r.db.Model(&entity.GameSession{}).
		Where("id = ? AND status = ?", sessionID, entity.SessionStatusWaiting).
		Updates(map[string]interface{}{
			"status":        entity.SessionStatusActive,
			"current_index": 0,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to start session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

// AtomicAdvance продвигает current_index с fromIndex на fromIndex+1.
// При двойном триггере второй UPDATE не находит строку и получает ErrConflict.
func (r *SessionRepo) AtomicAdvance(sessionID string, fromIndex int) error {
	result := r.db.Model(&entity.GameSession{}).
		Where("id = ? AND status = ? AND current_index = ?", sessionID, entity.SessionStatusActive, fromIndex).
		Update("current_index", fromIndex+1)
	if result.Error != nil {
		return fmt.Errorf("failed to advance session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

// AtomicComplete выполняет переход active -> completed ровно один раз
func (r *SessionRepo) AtomicComplete(sessionID string) error {
	result := r.db.Model(&entity.GameSession{}).
		Where("id = ? AND status = ?", sessionID, entity.SessionStatusActive).
		Update("status", entity.SessionStatusCompleted)
	if result.Error != nil {
		return fmt.Errorf("failed to complete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}
