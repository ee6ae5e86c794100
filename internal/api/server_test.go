package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arthneeti/internal/advisor"
	"arthneeti/internal/config"
	"arthneeti/internal/game"
	"arthneeti/internal/store"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	catalog, err := game.LoadCatalog("")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := game.NewService(store.NewMemory(), catalog, advisor.NewRuleBased(), logger)
	return New(config.APIConfig{}, logger, svc).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func startGame(t *testing.T, h http.Handler) game.SessionView {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/v1/games", map[string]any{
		"display_name": "Asha",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[game.SessionView](t, rec)
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStartGameDefaults(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, game.StageFresher, sess.CareerStage)
	require.Equal(t, game.StartingWealth, sess.Wealth)
	require.Equal(t, 1, sess.CurrentMonth)
	require.True(t, sess.IsActive)

	rec := doJSON(t, h, http.MethodGet, "/v1/games/"+sess.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStartGameRejectsUnknownStage(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/games", map[string]any{
		"career_stage": "WIZARD",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/games/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCardAndChoiceFlow(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)

	rec := doJSON(t, h, http.MethodGet, "/v1/games/"+sess.ID+"/card", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	card := decode[game.CardView](t, rec)
	require.NotZero(t, card.CardID)
	require.NotEmpty(t, card.Title)
	require.NotEmpty(t, card.Choices)

	// Replaying a stale card id conflicts.
	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/choice", map[string]any{
		"card_id":   card.CardID + 9999,
		"choice_id": card.Choices[0].ID,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// A choice from another card is a bad request.
	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/choice", map[string]any{
		"card_id":   card.CardID,
		"choice_id": int64(999999),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/choice", map[string]any{
		"card_id":   card.CardID,
		"choice_id": card.Choices[0].ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	turn := decode[game.TurnResult](t, rec)
	require.Equal(t, 1, turn.Session.CardsResolved)
}

func TestCardRejectsBadLanguage(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)
	rec := doJSON(t, h, http.MethodGet, "/v1/games/"+sess.ID+"/card?lang=xx", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSkipCountsTowardTheMonth(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)

	for i := 1; i <= game.CardsPerMonth; i++ {
		rec := doJSON(t, h, http.MethodGet, "/v1/games/"+sess.ID+"/card", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		card := decode[game.CardView](t, rec)

		rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/skip", map[string]any{
			"card_id": card.CardID,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		turn := decode[game.TurnResult](t, rec)
		require.True(t, turn.Skipped)
		if i == game.CardsPerMonth {
			require.True(t, turn.MonthAdvanced)
			require.Equal(t, 2, turn.Session.CurrentMonth)
		} else {
			require.False(t, turn.MonthAdvanced)
		}
	}
}

func TestLifelineRunsOutAt403(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)

	rec := doJSON(t, h, http.MethodGet, "/v1/games/"+sess.ID+"/card", nil)
	card := decode[game.CardView](t, rec)

	for i := 0; i < game.StartingLifelines; i++ {
		rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/lifeline", map[string]any{
			"card_id": card.CardID,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		result := decode[game.LifelineResult](t, rec)
		require.NotEmpty(t, result.Hints)
		require.NotEmpty(t, result.AdvisorMessage)
		require.Equal(t, game.StartingLifelines-(i+1), result.LifelinesLeft)
		require.Equal(t, sess.ID, result.Session.ID)
		require.Equal(t, result.LifelinesLeft, result.Session.Lifelines)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/lifeline", map[string]any{
		"card_id": card.CardID,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoans(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/loan", map[string]any{
		"loan_type": "FAMILY",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	loan := decode[game.LoanResult](t, rec)
	require.Equal(t, game.FamilyLoanPrincipal, loan.Amount)

	// A fresher's starting score is below the bank's bar.
	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/loan", map[string]any{
		"loan_type": "BANK",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/loan", map[string]any{
		"loan_type": "PAYDAY",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketAndStockTrades(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)

	rec := doJSON(t, h, http.MethodGet, "/v1/games/"+sess.ID+"/market", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	market := decode[game.MarketView](t, rec)
	require.NotEmpty(t, market.Prices)
	require.Contains(t, market.Prices, "tech")

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/stocks/buy", map[string]any{
		"sector": "tech",
		"amount": int64(5_000),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	buy := decode[game.TradeResult](t, rec)
	require.Greater(t, buy.Units, 0.0)
	require.Equal(t, game.StartingWealth-5_000, buy.Cash)

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/stocks/sell", map[string]any{
		"sector": "tech",
		"units":  buy.Units,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	sell := decode[game.TradeResult](t, rec)
	require.Equal(t, game.StartingWealth, sell.Cash)

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/stocks/sell", map[string]any{
		"sector": "tech",
		"units":  1.0,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/stocks/buy", map[string]any{
		"sector": "crypto",
		"amount": int64(1_000),
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFundTrades(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/funds/BLUECHIP/invest", map[string]any{
		"amount": int64(10_000),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	buy := decode[game.TradeResult](t, rec)
	require.Greater(t, buy.Units, 0.0)

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/funds/BLUECHIP/redeem", map[string]any{
		"units": buy.Units,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	sell := decode[game.TradeResult](t, rec)
	require.Equal(t, game.StartingWealth, sell.Cash)
}

func TestIPOApplyOutsideWindow(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)

	// Every IPO in the deck opens after month one.
	rec := doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/ipos/NOVA/apply", map[string]any{
		"amount": int64(10_000),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/ipos/GHOST/apply", map[string]any{
		"amount": int64(10_000),
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFutures(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/futures", map[string]any{
		"sector":          "tech",
		"units":           5.0,
		"duration_months": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[game.FuturesResult](t, rec)
	require.Equal(t, 3, out.Position.ExpiryMonth)

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/futures", map[string]any{
		"sector":          "tech",
		"units":           5.0,
		"duration_months": 9,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdviceUsesCardInPlay(t *testing.T) {
	h := newTestServer(t)
	sess := startGame(t, h)

	rec := doJSON(t, h, http.MethodGet, "/v1/games/"+sess.ID+"/card", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/v1/games/"+sess.ID+"/advice", map[string]any{
		"language": "hi",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[game.AdviceResult](t, rec)
	require.NotEmpty(t, out.Message)
	require.Equal(t, "rules", out.Source)
}

func TestLeaderboardEmpty(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPlayerProfile(t *testing.T) {
	catalog, err := game.LoadCatalog("")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemory()
	svc := game.NewService(mem, catalog, advisor.NewRuleBased(), logger)
	h := New(config.APIConfig{}, logger, svc).Handler()

	rec := doJSON(t, h, http.MethodGet, "/v1/players/Asha", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, mem.RecordResult(context.Background(), game.GameRecord{
		SessionID: "s1", DisplayName: "Asha", EndReason: game.EndCompleted,
		Wealth: 80_000, NetWorth: 120_000, CreditScore: 760, Happiness: 95,
		Literacy: 85, Months: 12, Score: 220_000, EndedAt: time.Now().UTC(),
	}))

	rec = doJSON(t, h, http.MethodGet, "/v1/players/Asha", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prof := decode[game.PlayerProfile](t, rec)
	require.Equal(t, "Asha", prof.DisplayName)
	require.Equal(t, 1, prof.TotalGames)
	require.Equal(t, int64(120_000), prof.HighestNetWorth)
	require.Contains(t, prof.Badges, game.BadgeSurvivor)
}
