package game

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSeedYAML = `
sectors:
  - name: tech
    start_price: 100
    drift: 0.01
    volatility: 0.05
    shock_prob: 0.1
    shock_scale: 0.2
  - name: gold
    start_price: 2000
    drift: 0.005
    volatility: 0.02
funds:
  - code: TESTFUND
    name: {en: Test Fund}
    start_nav: 100
    drift: 0.008
    volatility: 0.02
ipos:
  - id: TESTIPO
    name: {en: Test IPO}
    open_month: 2
    close_month: 3
    allotment_prob: 1.0
    min_listing: 0.5
    max_listing: 0.5
cards:
  - id: 1
    category: WANTS
    difficulty: 1
    title: {en: Card One}
    description: {en: First decision.}
    choices:
      - id: 11
        text: {en: Splurge}
        wealth: -5000
        happiness: -10
        feedback: {en: That stung.}
      - id: 12
        text: {en: Hold back}
        literacy: 5
        recommended: true
        feedback: {en: Good call.}
  - id: 2
    category: NEWS
    difficulty: 1
    title: {en: Card Two}
    description: {en: Tech crash headline.}
    market_event:
      tech: 0.5
    choices:
      - id: 21
        text: {en: Panic}
        happiness: -5
        feedback: {en: Breathe.}
      - id: 22
        text: {en: Stay invested}
        literacy: 5
        recommended: true
        feedback: {en: Markets recover.}
  - id: 3
    category: NEEDS
    difficulty: 1
    title: {en: Card Three}
    description: {en: Third decision.}
    choices:
      - id: 31
        text: {en: Ignore}
        happiness: -5
        feedback: {en: Risky.}
      - id: 32
        text: {en: Plan}
        literacy: 5
        recommended: true
        feedback: {en: Sensible.}
  - id: 4
    category: QUIZ
    difficulty: 1
    title: {en: Card Four}
    description: {en: Fourth decision.}
    choices:
      - id: 41
        text: {en: Wrong}
        feedback: {en: Not quite.}
      - id: 42
        text: {en: Right}
        literacy: 5
        recommended: true
        feedback: {en: Correct.}
  - id: 5
    category: TRAP
    difficulty: 1
    title: {en: Card Five}
    description: {en: Fifth decision.}
    choices:
      - id: 51
        text: {en: Fall for it}
        wealth: -10000
        feedback: {en: Scammed.}
      - id: 52
        text: {en: Walk away}
        literacy: 5
        recommended: true
        feedback: {en: Dodged.}
  - id: 6
    category: SOCIAL
    difficulty: 1
    title: {en: Card Six}
    description: {en: Sixth decision.}
    choices:
      - id: 61
        text: {en: Overspend}
        wealth: -3000
        happiness: 5
        feedback: {en: Fun but pricey.}
      - id: 62
        text: {en: Budget it}
        literacy: 5
        recommended: true
        feedback: {en: Balanced.}
`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSeedYAML), 0o600))
	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	return cat
}

func newTestSession(t *testing.T, cat *Catalog, seed int64) *Session {
	t.Helper()
	return NewSession(cat, "s-test", "Asha", StageFresher, RiskMedium, seed, time.Now().UTC())
}

func drawCard(t *testing.T, cat *Catalog, s *Session) *ScenarioCard {
	t.Helper()
	card, err := s.NextCard(cat)
	require.NoError(t, err)
	require.NotNil(t, card)
	return card
}

func TestNewSessionCareerStarts(t *testing.T) {
	cat := testCatalog(t)
	student := NewSession(cat, "s1", "S", StageStudent, RiskLow, 1, time.Now())
	require.Equal(t, int64(10_000), student.Wealth)
	require.Equal(t, 650, student.CreditScore)
	require.Equal(t, IncomeFreelance, student.IncomeType)

	fresher := newTestSession(t, cat, 1)
	require.Equal(t, StartingWealth, fresher.Wealth)
	require.Equal(t, StartingHappiness, fresher.Happiness)
	require.Equal(t, StartingCredit, fresher.CreditScore)
	require.Equal(t, StartingLifelines, fresher.Lifelines)
	require.Equal(t, 1, fresher.CurrentMonth)
	require.True(t, fresher.IsActive)
	require.Len(t, fresher.Expenses, 4)
}

func TestDrawIsDeterministicAndReServes(t *testing.T) {
	cat := testCatalog(t)
	a := newTestSession(t, cat, 42)
	b := newTestSession(t, cat, 42)

	cardA := drawCard(t, cat, a)
	cardB := drawCard(t, cat, b)
	require.Equal(t, cardA.ID, cardB.ID)

	again := drawCard(t, cat, a)
	require.Equal(t, cardA.ID, again.ID, "undrawn card must be re-served, not redrawn")
	require.Len(t, a.CardsSeen, 1)
}

func TestApplyChoiceImpacts(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.CurrentCardID = 1
	s.CardsSeen = append(s.CardsSeen, 1)

	out, err := s.ApplyChoice(cat, 1, 11)
	require.NoError(t, err)
	require.NotNil(t, out.Choice)
	require.False(t, out.Choice.Recommended)

	require.Equal(t, StartingWealth-5_000, s.Wealth)
	require.Equal(t, StartingHappiness-10, s.Happiness)
	require.Equal(t, StartingCredit, s.CreditScore)
	require.Equal(t, StartingLiteracy, s.Literacy)
	require.Equal(t, int64(0), s.CurrentCardID)
	require.Equal(t, 1, s.CardsResolved)
}

func TestApplyChoiceGuards(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	_, err := s.ApplyChoice(cat, 1, 11)
	require.ErrorIs(t, err, ErrNoCardInPlay)

	card := drawCard(t, cat, s)
	_, err = s.ApplyChoice(cat, card.ID+100, 11)
	require.ErrorIs(t, err, ErrCardMismatch)

	_, err = s.ApplyChoice(cat, card.ID, 999)
	require.ErrorIs(t, err, ErrInvalidChoice)
}

func TestSkipHasNoImpactButCounts(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	wealth, happiness := s.Wealth, s.Happiness

	card := drawCard(t, cat, s)
	out, err := s.Skip(cat, card.ID)
	require.NoError(t, err)
	require.False(t, out.MonthAdvanced)
	require.Equal(t, wealth, s.Wealth)
	require.Equal(t, happiness, s.Happiness)
	require.Equal(t, 1, s.CardsResolved)
}

func TestMonthAdvancesEveryThirdCard(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	for i := 0; i < 2; i++ {
		card := drawCard(t, cat, s)
		out, err := s.Skip(cat, card.ID)
		require.NoError(t, err)
		require.False(t, out.MonthAdvanced)
		require.Equal(t, 1, s.CurrentMonth)
	}

	card := drawCard(t, cat, s)
	out, err := s.Skip(cat, card.ID)
	require.NoError(t, err)
	require.True(t, out.MonthAdvanced)
	require.NotEmpty(t, out.MonthEvents)
	require.Equal(t, 2, s.CurrentMonth)

	// Salary in, the four recurring expenses out, one point of high-life
	// happiness decay.
	require.Equal(t, int64(25_000+25_000-14_500), s.Wealth)
	require.Equal(t, 99, s.Happiness)
}

func TestLifelineRevealsAndRunsOut(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	card := drawCard(t, cat, s)

	for i := 0; i < StartingLifelines; i++ {
		rec, err := s.UseLifeline(cat, card.ID)
		require.NoError(t, err)
		require.True(t, rec.Recommended)
		require.Equal(t, card.ID, s.CurrentCardID, "lifeline must not resolve the card")
	}
	require.Equal(t, 0, s.Lifelines)

	_, err := s.UseLifeline(cat, card.ID)
	require.ErrorIs(t, err, ErrNoLifelines)
}

func TestFamilyLoanOncePerGame(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	require.NoError(t, s.TakeLoan(LoanFamily))
	require.Equal(t, StartingWealth+FamilyLoanPrincipal, s.Wealth)
	require.Equal(t, 95, s.Happiness)

	require.ErrorIs(t, s.TakeLoan(LoanFamily), ErrIneligibleLoan)
}

func TestBankLoanNeedsCleanCredit(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	require.ErrorIs(t, s.TakeLoan(LoanBank), ErrIneligibleLoan)

	s.CreditScore = 800
	require.NoError(t, s.TakeLoan(LoanBank))
	require.Equal(t, StartingWealth+BankLoanPrincipal, s.Wealth)
}

func TestInstantLoanSideEffects(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	require.NoError(t, s.TakeLoan(LoanInstant))
	require.Equal(t, StartingWealth+InstantLoanPrincipal, s.Wealth)
	require.Equal(t, StartingCredit-50, s.CreditScore)

	var emi *Expense
	for i := range s.Expenses {
		if s.Expenses[i].Category == "DEBT" {
			emi = &s.Expenses[i]
		}
	}
	require.NotNil(t, emi, "instant loan must add a recurring collection expense")
	require.Equal(t, InstantLoanEMI, emi.Amount)
}

func TestDebtCapBlocksNewLoans(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.Loans = append(s.Loans, Loan{Type: LoanBank, Principal: 198_000, Outstanding: 198_000, MonthlyRate: BankLoanMonthlyRate})

	require.ErrorIs(t, s.TakeLoan(LoanFamily), ErrDebtLimit)
}

func TestMissedInterestGrowsDebtAndHitsCredit(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.Loans = []Loan{{Type: LoanInstant, Principal: 10_000, Outstanding: 10_000, MonthlyRate: InstantLoanMonthlyRate}}
	s.Expenses = nil
	s.MonthlyIncome = 0
	s.Wealth = 100

	s.advanceMonth(cat)
	require.Equal(t, int64(10_300), s.Loans[0].Outstanding)
	require.Equal(t, StartingCredit-MissedInterestCreditPenalty, s.CreditScore)
}

func TestMissedInterestRespectsDebtCap(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.Loans = []Loan{{Type: LoanInstant, Principal: 10_000, Outstanding: 199_950, MonthlyRate: InstantLoanMonthlyRate}}
	s.Expenses = nil
	s.MonthlyIncome = 0
	s.Wealth = 0

	s.advanceMonth(cat)
	require.Equal(t, DebtCap, s.Loans[0].Outstanding)
	require.Equal(t, StartingCredit-MissedInterestCreditPenalty, s.CreditScore)
}

func TestBuySellRoundTripIsExact(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	units, err := s.BuyStock(cat, "tech", 5_000)
	require.NoError(t, err)
	require.InDelta(t, 50.0, units, 1e-9)
	require.Equal(t, StartingWealth-5_000, s.Wealth)

	proceeds, err := s.SellStock(cat, "tech", units)
	require.NoError(t, err)
	require.Equal(t, int64(5_000), proceeds)
	require.Equal(t, StartingWealth, s.Wealth)
	require.NotContains(t, s.Portfolio, "tech")
}

func TestTradeGuards(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	_, err := s.BuyStock(cat, "nope", 1_000)
	require.ErrorIs(t, err, ErrUnknownSector)

	_, err = s.BuyStock(cat, "tech", 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.BuyStock(cat, "tech", s.Wealth+1)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = s.SellStock(cat, "tech", 1)
	require.ErrorIs(t, err, ErrInsufficientUnits)
}

func TestTradesRejectUnpricedInstruments(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	// A session persisted before the catalog grew a sector has no price for
	// it; trades must fail instead of dividing by zero.
	delete(s.Market.Prices, "tech")
	delete(s.Market.NAVs, "TESTFUND")

	_, err := s.BuyStock(cat, "tech", 1_000)
	require.ErrorIs(t, err, ErrUnknownSector)

	_, err = s.InvestFund(cat, "TESTFUND", 1_000)
	require.ErrorIs(t, err, ErrUnknownFund)

	_, err = s.OpenFutures(cat, "tech", 5, 2)
	require.ErrorIs(t, err, ErrUnknownSector)
}

func TestFundRoundTrip(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	units, err := s.InvestFund(cat, "TESTFUND", 10_000)
	require.NoError(t, err)
	require.InDelta(t, 100.0, units, 1e-9)

	proceeds, err := s.RedeemFund(cat, "TESTFUND", units)
	require.NoError(t, err)
	require.Equal(t, int64(10_000), proceeds)
	require.Equal(t, StartingWealth, s.Wealth)

	_, err = s.InvestFund(cat, "NOFUND", 100)
	require.ErrorIs(t, err, ErrUnknownFund)
}

func TestIPOWindowAndResolution(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	require.ErrorIs(t, s.ApplyIPO(cat, "TESTIPO", 10_000), ErrIPOClosed)
	require.ErrorIs(t, s.ApplyIPO(cat, "NOIPO", 10_000), ErrUnknownIPO)

	s.CurrentMonth = 2
	require.NoError(t, s.ApplyIPO(cat, "TESTIPO", 10_000))
	require.Equal(t, StartingWealth-10_000, s.Wealth)
	require.ErrorIs(t, s.ApplyIPO(cat, "TESTIPO", 5_000), ErrDuplicateIPO)

	// Still inside the window: money stays blocked.
	s.CurrentMonth = 3
	require.Empty(t, s.resolveIPOs(cat, rand.New(rand.NewSource(1))))

	s.CurrentMonth = 4
	events := s.resolveIPOs(cat, rand.New(rand.NewSource(1)))
	require.NotEmpty(t, events)
	require.Equal(t, IPOAllotted, s.IPOs[0].Status)
	// allotment_prob 1 and a fixed 50% listing pop make the payout exact
	require.Equal(t, int64(15_000), s.IPOs[0].Payout)
	require.Equal(t, StartingWealth+5_000, s.Wealth)
}

func TestFuturesValidation(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	_, err := s.OpenFutures(cat, "nope", 10, 3)
	require.ErrorIs(t, err, ErrUnknownSector)
	_, err = s.OpenFutures(cat, "tech", 0, 3)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.OpenFutures(cat, "tech", 10, 0)
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = s.OpenFutures(cat, "tech", 10, 7)
	require.ErrorIs(t, err, ErrInvalidDuration)

	s.Wealth = 100 // margin for 10 units at 100 is 200
	_, err = s.OpenFutures(cat, "tech", 10, 3)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestShortFuturesPayoff(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	pos, err := s.OpenFutures(cat, "tech", 10, 2)
	require.NoError(t, err)
	require.Equal(t, int64(100), pos.EntryPrice)
	require.Equal(t, 3, pos.ExpiryMonth)
	require.Equal(t, StartingWealth, s.Wealth, "margin is checked, not deducted")

	s.Market.Prices["tech"] = 80
	s.CurrentMonth = 3
	events := s.settleFutures()
	require.NotEmpty(t, events)
	require.Equal(t, StartingWealth+200, s.Wealth)
	require.Empty(t, s.Futures)
}

func TestShortFuturesLoss(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)

	_, err := s.OpenFutures(cat, "tech", 10, 1)
	require.NoError(t, err)

	s.Market.Prices["tech"] = 150
	s.CurrentMonth = 2
	s.settleFutures()
	require.Equal(t, StartingWealth-500, s.Wealth)
}

func TestBankruptcyEndsTheGame(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.CurrentCardID = 1
	s.CardsSeen = append(s.CardsSeen, 1)
	s.Wealth = 4_000

	out, err := s.ApplyChoice(cat, 1, 11) // -5000
	require.NoError(t, err)
	require.True(t, out.GameOver)
	require.Equal(t, EndBankruptcy, out.Reason)
	require.False(t, s.IsActive)
	require.NotEmpty(t, s.FinalReport)
}

func TestBurnoutEndsTheGame(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.CurrentCardID = 1
	s.CardsSeen = append(s.CardsSeen, 1)
	s.Happiness = 5
	s.Wealth = 1_000_000

	_, err := s.ApplyChoice(cat, 1, 11) // -10 happiness, clamped to 0
	require.NoError(t, err)
	require.False(t, s.IsActive)
	require.Equal(t, EndBurnout, s.EndReason)
}

func TestTwelfthMonthCompletes(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.CurrentMonth = 12
	s.CardsResolved = 2

	card := drawCard(t, cat, s)
	out, err := s.Skip(cat, card.ID)
	require.NoError(t, err)
	require.True(t, out.GameOver)
	require.Equal(t, EndCompleted, out.Reason)
	require.False(t, s.IsActive)
}

func TestDeckExhaustionCompletes(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	for id := int64(1); id <= 6; id++ {
		s.CardsSeen = append(s.CardsSeen, id)
	}

	card, err := s.NextCard(cat)
	require.NoError(t, err)
	require.Nil(t, card)
	require.False(t, s.IsActive)
	require.Equal(t, EndCompleted, s.EndReason)
}

func TestTerminatedSessionRejectsCommands(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.finish(EndBankruptcy)

	_, err := s.NextCard(cat)
	require.ErrorIs(t, err, ErrSessionTerminated)
	require.ErrorIs(t, s.TakeLoan(LoanFamily), ErrSessionTerminated)
	_, err = s.BuyStock(cat, "tech", 100)
	require.ErrorIs(t, err, ErrSessionTerminated)
}

func TestMarketEventCardMovesPrices(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.CurrentCardID = 2
	s.CardsSeen = append(s.CardsSeen, 2)

	_, err := s.ApplyChoice(cat, 2, 22)
	require.NoError(t, err)
	require.Equal(t, int64(50), s.Market.Prices["tech"])
}

func TestAbandonProducesReport(t *testing.T) {
	cat := testCatalog(t)
	s := newTestSession(t, cat, 42)
	s.Abandon()
	require.False(t, s.IsActive)
	require.Equal(t, EndAbandoned, s.EndReason)
	require.NotEmpty(t, s.FinalReport)

	// Abandoning twice is a no-op.
	s.EndReason = EndAbandoned
	s.Abandon()
	require.Equal(t, EndAbandoned, s.EndReason)
}
