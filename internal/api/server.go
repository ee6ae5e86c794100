package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arthneeti/internal/config"
	"arthneeti/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	game *game.Service
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		game: gameSvc,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/games", s.handleStartGame)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/players/{name}", s.handleProfile)

		r.Route("/games/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Get("/card", s.handleNextCard)
			r.Post("/choice", s.handleChoice)
			r.Post("/skip", s.handleSkip)
			r.Post("/lifeline", s.handleLifeline)
			r.Post("/loan", s.handleLoan)
			r.Post("/advice", s.handleAdvice)

			r.Get("/market", s.handleMarket)
			r.Post("/stocks/buy", s.handleStockBuy)
			r.Post("/stocks/sell", s.handleStockSell)
			r.Post("/funds/{code}/invest", s.handleFundInvest)
			r.Post("/funds/{code}/redeem", s.handleFundRedeem)
			r.Post("/ipos/{ipo}/apply", s.handleIPOApply)
			r.Post("/futures", s.handleFutures)
		})
	})
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func language(r *http.Request) (game.Language, error) {
	return game.ParseLanguage(r.URL.Query().Get("lang"))
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var in game.StartGameInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.StartGame(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.GetSession(r.Context(), sessionID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNextCard(w http.ResponseWriter, r *http.Request) {
	lang, err := language(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.NextCard(r.Context(), sessionID(r), lang)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	lang, err := language(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		CardID   int64 `json:"card_id"`
		ChoiceID int64 `json:"choice_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.SubmitChoice(r.Context(), sessionID(r), in.CardID, in.ChoiceID, lang)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CardID int64 `json:"card_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.SkipCard(r.Context(), sessionID(r), in.CardID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLifeline(w http.ResponseWriter, r *http.Request) {
	lang, err := language(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		CardID int64 `json:"card_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.UseLifeline(r.Context(), sessionID(r), in.CardID, lang)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLoan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		LoanType string `json:"loan_type"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.TakeLoan(r.Context(), sessionID(r), in.LoanType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CardID   int64  `json:"card_id"`
		Language string `json:"language"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang, err := game.ParseLanguage(in.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Advice(r.Context(), sessionID(r), in.CardID, lang)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	lang, err := language(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Market(r.Context(), sessionID(r), lang)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStockBuy(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Sector string `json:"sector"`
		Amount int64  `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.BuyStock(r.Context(), sessionID(r), in.Sector, in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStockSell(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Sector string  `json:"sector"`
		Units  float64 `json:"units"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.SellStock(r.Context(), sessionID(r), in.Sector, in.Units)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFundInvest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.InvestFund(r.Context(), sessionID(r), chi.URLParam(r, "code"), in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFundRedeem(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Units float64 `json:"units"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.RedeemFund(r.Context(), sessionID(r), chi.URLParam(r, "code"), in.Units)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIPOApply(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.ApplyIPO(r.Context(), sessionID(r), chi.URLParam(r, "ipo"), in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFutures(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Sector         string  `json:"sector"`
		Units          float64 `json:"units"`
		DurationMonths int     `json:"duration_months"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.OpenFutures(r.Context(), sessionID(r), in.Sector, in.Units, in.DurationMonths)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Profile(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	out, err := s.game.Leaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": out})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound), errors.Is(err, game.ErrUnknownSector),
		errors.Is(err, game.ErrUnknownFund), errors.Is(err, game.ErrUnknownIPO),
		errors.Is(err, game.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrSessionTerminated), errors.Is(err, game.ErrCardMismatch),
		errors.Is(err, game.ErrNoCardInPlay), errors.Is(err, game.ErrDuplicateIPO):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrNoLifelines), errors.Is(err, game.ErrIneligibleLoan),
		errors.Is(err, game.ErrDebtLimit):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrInvalidChoice), errors.Is(err, game.ErrInvalidLoanType),
		errors.Is(err, game.ErrInvalidCareerStage), errors.Is(err, game.ErrInvalidAmount),
		errors.Is(err, game.ErrInvalidDuration), errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientUnits), errors.Is(err, game.ErrIPOClosed),
		errors.Is(err, game.ErrLanguageUnsupported):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrAdvisorUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
