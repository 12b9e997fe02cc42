package gamesession

import (
	"context"
	"fmt"
)

// Leaderboard агрегирует текущие места игроков сессии.
// Чистая выборка: порядок определяется хранилищем (total_score DESC,
// created_at ASC, id ASC), так что повторный вызов на неизменных данных
// всегда дает тот же результат.
type Leaderboard struct {
	deps *Dependencies
}

// NewLeaderboard создает агрегатор лидерборда
func NewLeaderboard(deps *Dependencies) *Leaderboard {
	return &Leaderboard{deps: deps}
}

// Standings возвращает всех игроков сессии по убыванию счета с 1-based
// рангами. Игроки с равным счетом получают разные ранги (ранний join выше).
func (lb *Leaderboard) Standings(ctx context.Context, sessionID string) ([]LeaderboardEntry, error) {
	players, err := lb.deps.PlayerRepo.ListBySessionRanked(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranked players: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(players))
	for i, p := range players {
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			PlayerID:   p.ID,
			Nickname:   p.Nickname,
			TotalScore: p.TotalScore,
		})
	}
	return entries, nil
}
