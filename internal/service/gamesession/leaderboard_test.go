package gamesession

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizlive-api/internal/domain/entity"
)

func TestLeaderboard_Standings(t *testing.T) {
	// Arrange: хранилище уже отдает игроков в порядке лидерборда
	td := newTestDeps()
	td.playerRepo.On("ListBySessionRanked", "session-1").Return([]entity.Player{
		{ID: "p-2", Nickname: "bob", TotalScore: 2100},
		{ID: "p-1", Nickname: "alice", TotalScore: 1500},
		{ID: "p-3", Nickname: "carol", TotalScore: 1500},
		{ID: "p-4", Nickname: "dave", TotalScore: 0},
	}, nil)

	lb := NewLeaderboard(td.deps)

	// Act
	standings, err := lb.Standings(context.Background(), "session-1")

	// Assert: ранги 1-based, равный счет дает разные ранги
	require.NoError(t, err)
	require.Len(t, standings, 4)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, "bob", standings[0].Nickname)
	assert.Equal(t, 2, standings[1].Rank)
	assert.Equal(t, 3, standings[2].Rank)
	assert.Equal(t, standings[1].TotalScore, standings[2].TotalScore)
	assert.Equal(t, 4, standings[3].Rank)
}

func TestLeaderboard_Empty(t *testing.T) {
	// Arrange
	td := newTestDeps()
	td.playerRepo.On("ListBySessionRanked", "session-1").Return([]entity.Player{}, nil)

	lb := NewLeaderboard(td.deps)

	// Act
	standings, err := lb.Standings(context.Background(), "session-1")

	// Assert
	require.NoError(t, err)
	assert.Empty(t, standings)
}
