package repository

import (
	"github.com/yourusername/quizlive-api/internal/domain/entity"
)

// GameSessionRepository определяет методы для работы с игровыми сессиями.
// Статус и current_index пишет только Host Controller (единственный писатель);
// compare-and-set методы гарантируют ровно один переход при двойном триггере.
type GameSessionRepository interface {
	Create(session *entity.GameSession) error
	GetByID(id string) (*entity.GameSession, error)
	// GetByPIN возвращает сессию по PIN-коду. Если несколько сессий имеют один
	// PIN, берётся самая свежая незавершённая.
	GetByPIN(pin string) (*entity.GameSession, error)
	// FindForHost ищет сессию хоста по викторине в статусе waiting/active
	// (идемпотентный resume после перезагрузки страницы хоста).
	FindForHost(quizID, hostID string) (*entity.GameSession, error)
	// AtomicStart атомарно переводит waiting -> active и устанавливает
	// current_index = 0. Возвращает ErrConflict, если сессия не в waiting.
	AtomicStart(sessionID string) error
	// AtomicAdvance атомарно увеличивает current_index с fromIndex на fromIndex+1
	// только для активной сессии. Возвращает ErrConflict, если индекс уже ушёл
	// вперёд (защита от двойного advance).
	AtomicAdvance(sessionID string, fromIndex int) error
	// AtomicComplete атомарно переводит active -> completed. Возвращает
	// ErrConflict, если сессия уже не активна: ровно один game_ended.
	AtomicComplete(sessionID string) error
}
