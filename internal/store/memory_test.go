package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arthneeti/internal/game"
)

func seedSession(id string) *game.Session {
	now := time.Now().UTC()
	return &game.Session{
		ID:          id,
		DisplayName: "Asha",
		Wealth:      25_000,
		Happiness:   100,
		IsActive:    true,
		Portfolio:   map[string]float64{},
		FundUnits:   map[string]float64{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemoryGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, seedSession("a")))

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	got.Wealth = 1

	again, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(25_000), again.Wealth, "mutating a returned session must not touch the stored one")
}

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), "nope")
	require.ErrorIs(t, err, game.ErrSessionNotFound)
}

func TestMemoryUpdateAppliesFn(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, seedSession("a")))

	updated, err := m.Update(ctx, "a", func(s *game.Session) error {
		s.Wealth -= 5_000
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(20_000), updated.Wealth)

	stored, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(20_000), stored.Wealth)
}

func TestMemoryUpdateErrorLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, seedSession("a")))

	_, err := m.Update(ctx, "a", func(s *game.Session) error {
		s.Wealth = 0
		return game.ErrInsufficientFunds
	})
	require.ErrorIs(t, err, game.ErrInsufficientFunds)

	stored, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(25_000), stored.Wealth)
}

func TestMemoryRecordResultDedupes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec := game.GameRecord{SessionID: "a", DisplayName: "Asha", Score: 100, EndedAt: time.Now()}
	require.NoError(t, m.RecordResult(ctx, rec))
	rec.Score = 999
	require.NoError(t, m.RecordResult(ctx, rec))

	rows, err := m.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(100), rows[0].Score, "a session's first record wins")
}

func TestMemoryLeaderboardOrdersByScore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Now().UTC()

	require.NoError(t, m.RecordResult(ctx, game.GameRecord{SessionID: "a", DisplayName: "A", Score: 100, EndedAt: base}))
	require.NoError(t, m.RecordResult(ctx, game.GameRecord{SessionID: "b", DisplayName: "B", Score: 300, EndedAt: base.Add(time.Minute)}))
	require.NoError(t, m.RecordResult(ctx, game.GameRecord{SessionID: "c", DisplayName: "C", Score: 200, EndedAt: base.Add(2 * time.Minute)}))

	rows, err := m.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "B", rows[0].DisplayName)
	require.Equal(t, int64(1), rows[0].Rank)
	require.Equal(t, "C", rows[1].DisplayName)
	require.Equal(t, int64(2), rows[1].Rank)
}

func TestMemoryProfileAggregatesBests(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Profile(ctx, "Asha")
	require.ErrorIs(t, err, game.ErrProfileNotFound)

	base := time.Now().UTC()
	require.NoError(t, m.RecordResult(ctx, game.GameRecord{
		SessionID: "a", DisplayName: "Asha", EndReason: game.EndBankruptcy,
		Wealth: 0, NetWorth: 500, CreditScore: 620, Happiness: 35,
		Literacy: 45, Score: 40_000, EndedAt: base,
	}))
	require.NoError(t, m.RecordResult(ctx, game.GameRecord{
		SessionID: "b", DisplayName: "Asha", EndReason: game.EndCompleted,
		Wealth: 90_000, NetWorth: 150_000, CreditScore: 780, Happiness: 95,
		Literacy: 85, Score: 260_000, EndedAt: base.Add(time.Hour),
	}))
	// A replayed session id must not inflate the profile.
	require.NoError(t, m.RecordResult(ctx, game.GameRecord{
		SessionID: "b", DisplayName: "Asha", Score: 999_999, EndedAt: base,
	}))

	prof, err := m.Profile(ctx, "Asha")
	require.NoError(t, err)
	require.Equal(t, 2, prof.TotalGames)
	require.Equal(t, 1, prof.GamesCompleted)
	require.Equal(t, int64(90_000), prof.HighestWealth)
	require.Equal(t, int64(150_000), prof.HighestNetWorth)
	require.Equal(t, 780, prof.HighestCreditScore)
	require.Equal(t, int64(260_000), prof.HighestScore)
	require.ElementsMatch(t, []string{
		game.BadgeSurvivor, game.BadgeLakhpati, game.BadgeCreditChamp,
		game.BadgeGuru, game.BadgeZenMaster,
	}, prof.Badges)

	// Returned profiles are copies.
	prof.Badges = append(prof.Badges, "SCRIBBLE")
	again, err := m.Profile(ctx, "Asha")
	require.NoError(t, err)
	require.Len(t, again.Badges, 5)
}

func TestMemoryStaleSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	old := seedSession("old")
	old.UpdatedAt = time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, m.Create(ctx, old))

	fresh := seedSession("fresh")
	require.NoError(t, m.Create(ctx, fresh))

	done := seedSession("done")
	done.IsActive = false
	done.UpdatedAt = time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, m.Create(ctx, done))

	ids, err := m.StaleSessions(ctx, 48*time.Hour, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"old"}, ids)
}
