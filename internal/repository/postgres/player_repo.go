package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizlive-api/internal/pkg/errors"
)

// PlayerRepo реализует repository.PlayerRepository поверх GORM
type PlayerRepo struct {
	db *gorm.DB
}

// NewPlayerRepo создает новый репозиторий игроков
func NewPlayerRepo(db *gorm.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// Create сохраняет нового игрока. Два одновременных join под одним никнеймом
// оба проходят предварительный FindByNickname; проигравшего гонку ловит
// уникальный индекс (session_id, nickname) и он получает ErrNicknameTaken.
func (r *PlayerRepo) Create(player *entity.Player) error {
	if err := r.db.Create(player).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrNicknameTaken
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

// GetByID возвращает игрока по ID
func (r *PlayerRepo) GetByID(id string) (*entity.Player, error) {
	var player entity.Player
	err := r.db.First(&player, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &player, nil
}

// FindByNickname ищет игрока сессии по никнейму (для идемпотентного join)
func (r *PlayerRepo) FindByNickname(sessionID, nickname string) (*entity.Player, error) {
	var player entity.Player
	err := r.db.Where("session_id = ? AND nickname = ?", sessionID, nickname).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find player by nickname: %w", err)
	}
	return &player, nil
}

// CountBySession возвращает число игроков сессии
func (r *PlayerRepo) CountBySession(sessionID string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Player{}).Where("session_id = ?", sessionID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}

// ListBySessionRanked возвращает игроков сессии в порядке лидерборда:
// по убыванию счета, при равенстве — раньше присоединившийся выше,
// при равном времени — по ID. Порядок полностью детерминирован.
func (r *PlayerRepo) ListBySessionRanked(sessionID string) ([]entity.Player, error) {
	var players []entity.Player
	err := r.db.Where("session_id = ?", sessionID).
		Order("total_score DESC, created_at ASC, id ASC").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ranked players: %w", err)
	}
	return players, nil
}

// IncrementScore атомарно прибавляет delta к счету игрока
func (r *PlayerRepo) IncrementScore(playerID string, delta int) error {
	result := r.db.Model(&entity.Player{}).
		Where("id = ?", playerID).
		Update("total_score", gorm.Expr("total_score + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to increment score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
