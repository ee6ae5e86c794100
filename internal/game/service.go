package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions and finished-game records. Update must apply fn
// atomically: concurrent commands against one session are serialized.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	RecordResult(ctx context.Context, rec GameRecord) error
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
	Profile(ctx context.Context, displayName string) (*PlayerProfile, error)
	StaleSessions(ctx context.Context, idleFor time.Duration, limit int) ([]string, error)
}

// Advisor produces guidance text for the card in play. Implementations must
// never mutate the session.
type Advisor interface {
	Advise(ctx context.Context, s *Session, card *ScenarioCard, lang Language) (string, error)
	Name() string
}

type Service struct {
	store   Store
	catalog *Catalog
	advisor Advisor
	log     *slog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

func NewService(store Store, catalog *Catalog, advisor Advisor, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:   store,
		catalog: catalog,
		advisor: advisor,
		log:     log,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) Catalog() *Catalog { return s.catalog }

func (s *Service) newSeed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Int63()
}

func (s *Service) StartGame(ctx context.Context, in StartGameInput) (SessionView, error) {
	stage, err := ParseCareerStage(in.CareerStage)
	if err != nil {
		return SessionView{}, err
	}
	risk, err := ParseRiskAppetite(in.RiskAppetite)
	if err != nil {
		return SessionView{}, err
	}
	name := in.DisplayName
	if name == "" {
		name = "Guest Player"
	}

	sess := NewSession(s.catalog, uuid.NewString(), name, stage, risk, s.newSeed(), time.Now().UTC())
	if err := s.store.Create(ctx, sess); err != nil {
		return SessionView{}, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("game started",
		"session_id", sess.ID,
		"career_stage", stage,
		"wealth", sess.Wealth)
	return sess.View(), nil
}

func (s *Service) GetSession(ctx context.Context, id string) (SessionView, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return sess.View(), nil
}

// NextCard draws (or re-serves) the current card. When the deck runs dry the
// session completes and the view says so.
func (s *Service) NextCard(ctx context.Context, id string, lang Language) (CardView, error) {
	var view CardView
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		card, err := sess.NextCard(s.catalog)
		if err != nil {
			return err
		}
		if card == nil {
			view = CardView{GameComplete: true}
			return nil
		}
		view = cardView(card, lang)
		return nil
	})
	if err != nil {
		return CardView{}, err
	}
	if view.GameComplete {
		s.recordIfOver(ctx, sess)
	}
	return view, nil
}

func (s *Service) SubmitChoice(ctx context.Context, id string, cardID, choiceID int64, lang Language) (TurnResult, error) {
	var result TurnResult
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		out, err := sess.ApplyChoice(s.catalog, cardID, choiceID)
		if err != nil {
			return err
		}
		result = TurnResult{
			Feedback:       out.Choice.Feedback.In(lang),
			WasRecommended: out.Choice.Recommended,
			MonthAdvanced:  out.MonthAdvanced,
			MonthEvents:    out.MonthEvents,
			GameOver:       out.GameOver,
			GameOverReason: out.Reason,
		}
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}
	result.Session = sess.View()
	if result.GameOver {
		s.log.Info("game over", "session_id", id, "reason", result.GameOverReason)
		s.recordIfOver(ctx, sess)
	}
	return result, nil
}

func (s *Service) SkipCard(ctx context.Context, id string, cardID int64) (TurnResult, error) {
	var result TurnResult
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		out, err := sess.Skip(s.catalog, cardID)
		if err != nil {
			return err
		}
		result = TurnResult{
			Skipped:        true,
			MonthAdvanced:  out.MonthAdvanced,
			MonthEvents:    out.MonthEvents,
			GameOver:       out.GameOver,
			GameOverReason: out.Reason,
		}
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}
	result.Session = sess.View()
	if result.GameOver {
		s.recordIfOver(ctx, sess)
	}
	return result, nil
}

// UseLifeline reveals a hint per option on the card, flagging the
// recommended one. If an advisor is wired its commentary rides along.
func (s *Service) UseLifeline(ctx context.Context, id string, cardID int64, lang Language) (LifelineResult, error) {
	var result LifelineResult
	var card *ScenarioCard
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		rec, err := sess.UseLifeline(s.catalog, cardID)
		if err != nil {
			return err
		}
		card, _ = s.catalog.Card(cardID)
		for _, ch := range card.Choices {
			result.Hints = append(result.Hints, LifelineHint{
				ChoiceID:      ch.ID,
				IsRecommended: ch.ID == rec.ID,
			})
		}
		result.LifelinesLeft = sess.Lifelines
		return nil
	})
	if err != nil {
		return LifelineResult{}, err
	}
	result.Session = sess.View()
	if s.advisor != nil && card != nil {
		msg, aerr := s.advisor.Advise(ctx, sess, card, lang)
		if aerr != nil {
			s.log.Warn("advisor failed during lifeline", "session_id", id, "error", aerr)
		} else {
			result.AdvisorMessage = msg
		}
	}
	return result, nil
}

func (s *Service) TakeLoan(ctx context.Context, id string, loanType string) (LoanResult, error) {
	lt, err := ParseLoanType(loanType)
	if err != nil {
		return LoanResult{}, err
	}
	var amount int64
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		before := sess.Wealth
		if err := sess.TakeLoan(lt); err != nil {
			return err
		}
		amount = sess.Wealth - before
		return nil
	})
	if err != nil {
		return LoanResult{}, err
	}
	s.log.Info("loan taken", "session_id", id, "loan_type", lt, "amount", amount)
	return LoanResult{LoanType: lt, Amount: amount, Session: sess.View()}, nil
}

func (s *Service) Market(ctx context.Context, id string, lang Language) (MarketView, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return MarketView{}, err
	}
	view := MarketView{
		Month:     sess.CurrentMonth,
		Prices:    sess.Market.Prices,
		Trends:    sess.Market.Trends,
		History:   sess.Market.History,
		NAVs:      sess.Market.NAVs,
		Portfolio: sess.Portfolio,
		FundUnits: sess.FundUnits,
		Futures:   sess.Futures,
		Applied:   sess.IPOs,
	}
	for _, def := range s.catalog.IPOs {
		view.IPOs = append(view.IPOs, IPOView{
			ID:         def.ID,
			Name:       def.Name.In(lang),
			OpenMonth:  def.OpenMonth,
			CloseMonth: def.CloseMonth,
			Open:       sess.CurrentMonth >= def.OpenMonth && sess.CurrentMonth <= def.CloseMonth,
		})
	}
	return view, nil
}

func (s *Service) BuyStock(ctx context.Context, id, sector string, amount int64) (TradeResult, error) {
	var units float64
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		var err error
		units, err = sess.BuyStock(s.catalog, sector, amount)
		return err
	})
	if err != nil {
		return TradeResult{}, err
	}
	return TradeResult{
		Sector:  sector,
		Units:   units,
		Price:   sess.Market.Prices[sector],
		Cash:    sess.Wealth,
		Session: sess.View(),
	}, nil
}

func (s *Service) SellStock(ctx context.Context, id, sector string, units float64) (TradeResult, error) {
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		_, err := sess.SellStock(s.catalog, sector, units)
		return err
	})
	if err != nil {
		return TradeResult{}, err
	}
	return TradeResult{
		Sector:  sector,
		Units:   units,
		Price:   sess.Market.Prices[sector],
		Cash:    sess.Wealth,
		Session: sess.View(),
	}, nil
}

func (s *Service) InvestFund(ctx context.Context, id, code string, amount int64) (TradeResult, error) {
	var units float64
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		var err error
		units, err = sess.InvestFund(s.catalog, code, amount)
		return err
	})
	if err != nil {
		return TradeResult{}, err
	}
	return TradeResult{
		FundCode: code,
		Units:    units,
		Price:    sess.Market.NAVs[code],
		Cash:     sess.Wealth,
		Session:  sess.View(),
	}, nil
}

func (s *Service) RedeemFund(ctx context.Context, id, code string, units float64) (TradeResult, error) {
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		_, err := sess.RedeemFund(s.catalog, code, units)
		return err
	})
	if err != nil {
		return TradeResult{}, err
	}
	return TradeResult{
		FundCode: code,
		Units:    units,
		Price:    sess.Market.NAVs[code],
		Cash:     sess.Wealth,
		Session:  sess.View(),
	}, nil
}

func (s *Service) ApplyIPO(ctx context.Context, id, ipoID string, amount int64) (SessionView, error) {
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		return sess.ApplyIPO(s.catalog, ipoID, amount)
	})
	if err != nil {
		return SessionView{}, err
	}
	return sess.View(), nil
}

func (s *Service) OpenFutures(ctx context.Context, id, sector string, units float64, durationMonths int) (FuturesResult, error) {
	var pos *FuturesPosition
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		var err error
		pos, err = sess.OpenFutures(s.catalog, sector, units, durationMonths)
		return err
	})
	if err != nil {
		return FuturesResult{}, err
	}
	return FuturesResult{Position: *pos, Session: sess.View()}, nil
}

// Advice asks the advisor about a card. State is read, never written; a
// broken advisor degrades to an error, not a corrupt session.
func (s *Service) Advice(ctx context.Context, id string, cardID int64, lang Language) (AdviceResult, error) {
	if s.advisor == nil {
		return AdviceResult{}, ErrAdvisorUnavailable
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return AdviceResult{}, err
	}
	if !sess.IsActive {
		return AdviceResult{}, ErrSessionTerminated
	}
	if cardID == 0 {
		cardID = sess.CurrentCardID
	}
	card, ok := s.catalog.Card(cardID)
	if !ok {
		return AdviceResult{}, ErrCardMismatch
	}
	msg, err := s.advisor.Advise(ctx, sess, card, lang)
	if err != nil {
		return AdviceResult{}, fmt.Errorf("%w: %v", ErrAdvisorUnavailable, err)
	}
	return AdviceResult{Message: msg, Source: s.advisor.Name()}, nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.Leaderboard(ctx, limit)
}

// Profile returns the cross-session aggregate for a display name.
func (s *Service) Profile(ctx context.Context, displayName string) (PlayerProfile, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return PlayerProfile{}, ErrProfileNotFound
	}
	prof, err := s.store.Profile(ctx, name)
	if err != nil {
		return PlayerProfile{}, err
	}
	return *prof, nil
}

// SweepStale abandons sessions idle past the TTL. Used by the worker.
func (s *Service) SweepStale(ctx context.Context, idleFor time.Duration, limit int) (int, error) {
	ids, err := s.store.StaleSessions(ctx, idleFor, limit)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, id := range ids {
		sess, err := s.store.Update(ctx, id, func(sess *Session) error {
			sess.Abandon()
			return nil
		})
		if err != nil {
			s.log.Warn("sweep failed", "session_id", id, "error", err)
			continue
		}
		s.recordIfOver(ctx, sess)
		swept++
	}
	if swept > 0 {
		s.log.Info("stale sessions abandoned", "count", swept)
	}
	return swept, nil
}

func (s *Service) recordIfOver(ctx context.Context, sess *Session) {
	if sess == nil || sess.IsActive || sess.EndReason == EndNone {
		return
	}
	if err := s.store.RecordResult(ctx, recordOf(sess, time.Now().UTC())); err != nil {
		s.log.Warn("record result failed", "session_id", sess.ID, "error", err)
	}
}
