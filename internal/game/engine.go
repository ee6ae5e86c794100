package game

import (
	"fmt"
	"math/rand"
	"time"
)

const unitEpsilon = 1e-9

// NewSession sets up the opening position for the chosen career stage.
func NewSession(cat *Catalog, id, displayName string, stage CareerStage, risk RiskAppetite, seed int64, now time.Time) *Session {
	start := careerStarts[stage]
	s := &Session{
		ID:            id,
		DisplayName:   displayName,
		CareerStage:   stage,
		RiskAppetite:  risk,
		Wealth:        start.wealth,
		Happiness:     StartingHappiness,
		CreditScore:   start.credit,
		Literacy:      StartingLiteracy,
		Lifelines:     StartingLifelines,
		CurrentMonth:  1,
		CurrentLevel:  1,
		MonthlyIncome: start.income,
		IncomeType:    start.incomeType,
		Expenses: []Expense{
			{Name: "Rent", Amount: 10_000, Category: "HOUSING", Essential: true, InflationRate: 0.08},
			{Name: "Groceries", Amount: 2_500, Category: "FOOD", Essential: true, InflationRate: 0.06},
			{Name: "Utilities", Amount: 1_000, Category: "HOUSING", Essential: true, InflationRate: 0.05},
			{Name: "Transport", Amount: 1_000, Category: "TRANSPORT", Essential: true, InflationRate: 0.05},
		},
		Portfolio: make(map[string]float64),
		FundUnits: make(map[string]float64),
		Market:    newMarketState(cat),
		IsActive:  true,
		Seed:      seed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.logf("Month 1: Started as %s with ₹%d", stage, s.Wealth)
	return s
}

func (s *Session) logf(format string, args ...any) {
	s.GameplayLog = append(s.GameplayLog, fmt.Sprintf(format, args...))
}

// drawRNG is deterministic in (seed, cards drawn so far), so a reloaded
// session redraws identically.
func (s *Session) drawRNG() *rand.Rand {
	return rand.New(rand.NewSource(s.Seed + int64(len(s.CardsSeen))))
}

func (s *Session) monthRNG() *rand.Rand {
	return rand.New(rand.NewSource(s.Seed*31 + int64(s.CurrentMonth)))
}

// NextCard returns the card in play, drawing one if none is. A nil card with
// nil error means the deck is exhausted and the game just completed.
func (s *Session) NextCard(cat *Catalog) (*ScenarioCard, error) {
	if !s.IsActive {
		return nil, ErrSessionTerminated
	}
	if s.CurrentCardID != 0 {
		if card, ok := cat.Card(s.CurrentCardID); ok {
			return card, nil
		}
		s.CurrentCardID = 0
	}
	pool := cat.eligibleCards(s)
	if len(pool) == 0 {
		s.finish(EndCompleted)
		return nil, nil
	}
	card := pool[s.drawRNG().Intn(len(pool))]
	s.CurrentCardID = card.ID
	s.CardsSeen = append(s.CardsSeen, card.ID)
	return card, nil
}

// TurnOutcome reports what a resolved card did to the session.
type TurnOutcome struct {
	Choice        *Choice
	MonthAdvanced bool
	MonthEvents   []string
	GameOver      bool
	Reason        EndReason
}

func (s *Session) cardInPlay(cat *Catalog, cardID int64) (*ScenarioCard, error) {
	if !s.IsActive {
		return nil, ErrSessionTerminated
	}
	if s.CurrentCardID == 0 {
		return nil, ErrNoCardInPlay
	}
	if cardID != s.CurrentCardID {
		return nil, ErrCardMismatch
	}
	card, ok := cat.Card(cardID)
	if !ok {
		return nil, ErrCardMismatch
	}
	return card, nil
}

// ApplyChoice resolves the current card with the picked option: impacts,
// clamps, side effects, then the usual end-of-card bookkeeping.
func (s *Session) ApplyChoice(cat *Catalog, cardID, choiceID int64) (*TurnOutcome, error) {
	card, err := s.cardInPlay(cat, cardID)
	if err != nil {
		return nil, err
	}
	ch, ok := card.choice(choiceID)
	if !ok {
		return nil, ErrInvalidChoice
	}

	s.Wealth += ch.Wealth
	s.Happiness += ch.Happiness
	s.CreditScore += ch.Credit
	s.Literacy += ch.Literacy
	s.clampVitals()

	if ch.AddsExpense.Name != "" {
		s.Expenses = append(s.Expenses, Expense{
			Name:          ch.AddsExpense.Name,
			Amount:        ch.AddsExpense.Amount,
			Category:      ch.AddsExpense.Category,
			InflationRate: ch.AddsExpense.InflationRate,
		})
	}
	if ch.CancelsExp != "" {
		for i := range s.Expenses {
			if s.Expenses[i].Name == ch.CancelsExp {
				s.Expenses[i].Cancelled = true
			}
		}
	}
	if len(card.MarketEvent) > 0 {
		s.Market.applyEvent(card.MarketEvent)
	}

	s.logf("Month %d: %s — %s", s.CurrentMonth, card.Title.EN, ch.Text.EN)
	out := s.resolveCard(cat)
	out.Choice = ch
	return out, nil
}

// Skip resolves the current card with no impact. It still counts toward the
// month rollover.
func (s *Session) Skip(cat *Catalog, cardID int64) (*TurnOutcome, error) {
	card, err := s.cardInPlay(cat, cardID)
	if err != nil {
		return nil, err
	}
	s.logf("Month %d: skipped %s", s.CurrentMonth, card.Title.EN)
	return s.resolveCard(cat), nil
}

// UseLifeline burns a lifeline and reveals the card's recommended option.
// The card stays in play.
func (s *Session) UseLifeline(cat *Catalog, cardID int64) (*Choice, error) {
	card, err := s.cardInPlay(cat, cardID)
	if err != nil {
		return nil, err
	}
	if s.Lifelines <= 0 {
		return nil, ErrNoLifelines
	}
	s.Lifelines--
	s.logf("Month %d: used a lifeline on %s", s.CurrentMonth, card.Title.EN)
	return card.recommended(), nil
}

func (s *Session) resolveCard(cat *Catalog) *TurnOutcome {
	s.CurrentCardID = 0
	s.CardsResolved++
	out := &TurnOutcome{}
	if s.CardsResolved%CardsPerMonth == 0 {
		out.MonthAdvanced = true
		out.MonthEvents = s.advanceMonth(cat)
	}
	s.CurrentLevel = levelFor(s.CurrentMonth, s.Literacy)
	if over, reason := s.terminal(); over {
		s.finish(reason)
		out.GameOver = true
		out.Reason = reason
	}
	return out
}

// advanceMonth runs the end-of-month pipeline: income, expenses, debt
// interest, market tick, derivative settlement, stress decay.
func (s *Session) advanceMonth(cat *Catalog) []string {
	rng := s.monthRNG()
	s.CurrentMonth++
	var events []string

	income := s.MonthlyIncome
	if s.IncomeType != IncomeSalary {
		// Freelance and business income wobbles around the base.
		income = roundRupees(float64(income) * (0.8 + 0.4*rng.Float64()))
	}
	s.Wealth += income
	events = append(events, fmt.Sprintf("Income credited: ₹%d", income))

	if s.CurrentMonth%12 == 1 && s.CurrentMonth > 1 {
		for i := range s.Expenses {
			e := &s.Expenses[i]
			if e.Cancelled || e.InflationRate == 0 {
				continue
			}
			e.Amount = roundRupees(float64(e.Amount) * (1 + e.InflationRate))
		}
		events = append(events, "Annual inflation raised your recurring expenses")
	}

	var spent int64
	for _, e := range s.Expenses {
		if e.Cancelled {
			continue
		}
		spent += e.Amount
	}
	if spent > 0 {
		s.Wealth -= spent
		events = append(events, fmt.Sprintf("Recurring expenses: -₹%d", spent))
	}

	for i := range s.Loans {
		l := &s.Loans[i]
		if l.MonthlyRate == 0 || l.Outstanding == 0 {
			continue
		}
		interest := roundRupees(float64(l.Outstanding) * l.MonthlyRate)
		if interest <= 0 {
			continue
		}
		if s.Wealth >= interest {
			s.Wealth -= interest
			events = append(events, fmt.Sprintf("%s loan interest paid: -₹%d", l.Type, interest))
			continue
		}
		// Missed payment: interest rolls into the principal, score takes
		// the hit. The debt cap bounds how far this can spiral.
		headroom := DebtCap - s.Debt()
		if headroom > 0 {
			if interest > headroom {
				interest = headroom
			}
			l.Outstanding += interest
		}
		s.CreditScore -= MissedInterestCreditPenalty
		events = append(events, fmt.Sprintf("Missed %s loan interest: debt grew by ₹%d", l.Type, interest))
	}

	events = append(events, s.Market.tick(cat, rng)...)
	events = append(events, s.settleFutures()...)
	events = append(events, s.resolveIPOs(cat, rng)...)

	if s.hasLoan(LoanInstant) && rng.Float64() < 0.15 {
		s.Happiness -= 15
		events = append(events, "Your loan app leaked your data. Spam calls all week")
	}

	if s.Wealth < 10_000 {
		s.Happiness -= 2
	}
	if s.Happiness > 90 {
		s.Happiness--
	}
	s.clampVitals()

	for _, e := range events {
		s.logf("Month %d: %s", s.CurrentMonth, e)
	}
	return events
}

func (s *Session) settleFutures() []string {
	if len(s.Futures) == 0 {
		return nil
	}
	var events []string
	remaining := s.Futures[:0]
	for _, pos := range s.Futures {
		if pos.ExpiryMonth > s.CurrentMonth {
			remaining = append(remaining, pos)
			continue
		}
		spot := s.Market.Prices[pos.Sector]
		payoff := roundRupees(pos.Units * float64(pos.EntryPrice-spot))
		s.Wealth += payoff
		if payoff >= 0 {
			events = append(events, fmt.Sprintf("Short %s futures settled: +₹%d", pos.Sector, payoff))
		} else {
			events = append(events, fmt.Sprintf("Short %s futures settled: -₹%d", pos.Sector, -payoff))
		}
	}
	s.Futures = remaining
	return events
}

func (s *Session) resolveIPOs(cat *Catalog, rng *rand.Rand) []string {
	var events []string
	for i := range s.IPOs {
		app := &s.IPOs[i]
		if app.Status != IPOApplied {
			continue
		}
		def, ok := cat.IPO(app.IPOID)
		if !ok || s.CurrentMonth <= def.CloseMonth {
			continue
		}
		if rng.Float64() < def.AllotmentProb {
			ret := def.MinListing + rng.Float64()*(def.MaxListing-def.MinListing)
			app.Payout = roundRupees(float64(app.Amount) * (1 + ret))
			app.Status = IPOAllotted
			s.Wealth += app.Payout
			events = append(events, fmt.Sprintf("%s IPO allotted, listed for ₹%d", app.IPOID, app.Payout))
		} else {
			app.Payout = app.Amount
			app.Status = IPORefunded
			s.Wealth += app.Amount
			events = append(events, fmt.Sprintf("%s IPO not allotted, ₹%d refunded", app.IPOID, app.Amount))
		}
	}
	return events
}

func (s *Session) terminal() (bool, EndReason) {
	switch {
	case s.Wealth <= 0:
		return true, EndBankruptcy
	case s.Happiness <= 0:
		return true, EndBurnout
	case s.CurrentMonth > GameDurationMonths:
		return true, EndCompleted
	}
	return false, EndNone
}

func (s *Session) finish(reason EndReason) {
	if !s.IsActive && s.EndReason != EndNone {
		return
	}
	s.IsActive = false
	s.EndReason = reason
	s.CurrentCardID = 0
	s.FinalReport = buildReport(s)
	s.logf("Game over: %s", reason)
}

// Abandon marks an idle session terminal without a report ceremony.
func (s *Session) Abandon() {
	if !s.IsActive {
		return
	}
	s.IsActive = false
	s.EndReason = EndAbandoned
	s.CurrentCardID = 0
	s.FinalReport = buildReport(s)
	s.logf("Game over: %s", EndAbandoned)
}

// TakeLoan credits the principal and applies the lender's side effects.
func (s *Session) TakeLoan(t LoanType) error {
	if !s.IsActive {
		return ErrSessionTerminated
	}
	var loan Loan
	switch t {
	case LoanFamily:
		// Family lends once per game.
		if s.hasLoan(LoanFamily) {
			return ErrIneligibleLoan
		}
		loan = Loan{Type: t, Principal: FamilyLoanPrincipal, MonthlyRate: 0}
	case LoanInstant:
		loan = Loan{Type: t, Principal: InstantLoanPrincipal, MonthlyRate: InstantLoanMonthlyRate}
	case LoanBank:
		if s.CreditScore <= BankLoanMinCredit {
			return ErrIneligibleLoan
		}
		loan = Loan{Type: t, Principal: BankLoanPrincipal, MonthlyRate: BankLoanMonthlyRate}
	default:
		return ErrInvalidLoanType
	}
	if s.Debt()+loan.Principal > DebtCap {
		return ErrDebtLimit
	}

	loan.Outstanding = loan.Principal
	loan.TakenMonth = s.CurrentMonth
	s.Loans = append(s.Loans, loan)
	s.Wealth += loan.Principal

	switch t {
	case LoanFamily:
		s.Happiness -= 5
	case LoanInstant:
		s.CreditScore -= 50
		s.Happiness += 5
		s.Expenses = append(s.Expenses, Expense{
			Name: "High Interest Loan", Amount: InstantLoanEMI, Category: "DEBT",
		})
	}
	s.clampVitals()
	s.logf("Month %d: took %s loan of ₹%d", s.CurrentMonth, t, loan.Principal)
	return nil
}

// BuyStock converts cash into fractional sector units at the current price.
func (s *Session) BuyStock(cat *Catalog, sector string, amount int64) (float64, error) {
	if !s.IsActive {
		return 0, ErrSessionTerminated
	}
	if _, ok := cat.Sector(sector); !ok {
		return 0, ErrUnknownSector
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if s.Wealth < amount {
		return 0, ErrInsufficientFunds
	}
	// A session started under an older catalog may lack the sector entirely.
	price := s.Market.Prices[sector]
	if price <= 0 {
		return 0, ErrUnknownSector
	}
	units := float64(amount) / float64(price)
	s.Wealth -= amount
	s.Portfolio[sector] += units
	s.logf("Month %d: bought %.4f %s units for ₹%d", s.CurrentMonth, units, sector, amount)
	return units, nil
}

// SellStock liquidates units at the current price.
func (s *Session) SellStock(cat *Catalog, sector string, units float64) (int64, error) {
	if !s.IsActive {
		return 0, ErrSessionTerminated
	}
	if _, ok := cat.Sector(sector); !ok {
		return 0, ErrUnknownSector
	}
	if units <= 0 {
		return 0, ErrInvalidAmount
	}
	held := s.Portfolio[sector]
	if held+unitEpsilon < units {
		return 0, ErrInsufficientUnits
	}
	price := s.Market.Prices[sector]
	proceeds := roundRupees(units * float64(price))
	s.Portfolio[sector] = held - units
	if s.Portfolio[sector] < unitEpsilon {
		delete(s.Portfolio, sector)
	}
	s.Wealth += proceeds
	s.logf("Month %d: sold %.4f %s units for ₹%d", s.CurrentMonth, units, sector, proceeds)
	return proceeds, nil
}

// InvestFund buys fund units at the current NAV.
func (s *Session) InvestFund(cat *Catalog, code string, amount int64) (float64, error) {
	if !s.IsActive {
		return 0, ErrSessionTerminated
	}
	if _, ok := cat.Fund(code); !ok {
		return 0, ErrUnknownFund
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if s.Wealth < amount {
		return 0, ErrInsufficientFunds
	}
	nav := s.Market.NAVs[code]
	if nav <= 0 {
		return 0, ErrUnknownFund
	}
	units := float64(amount) / float64(nav)
	s.Wealth -= amount
	s.FundUnits[code] += units
	s.logf("Month %d: invested ₹%d in %s", s.CurrentMonth, amount, code)
	return units, nil
}

// RedeemFund sells fund units at the current NAV.
func (s *Session) RedeemFund(cat *Catalog, code string, units float64) (int64, error) {
	if !s.IsActive {
		return 0, ErrSessionTerminated
	}
	if _, ok := cat.Fund(code); !ok {
		return 0, ErrUnknownFund
	}
	if units <= 0 {
		return 0, ErrInvalidAmount
	}
	held := s.FundUnits[code]
	if held+unitEpsilon < units {
		return 0, ErrInsufficientUnits
	}
	nav := s.Market.NAVs[code]
	proceeds := roundRupees(units * float64(nav))
	s.FundUnits[code] = held - units
	if s.FundUnits[code] < unitEpsilon {
		delete(s.FundUnits, code)
	}
	s.Wealth += proceeds
	s.logf("Month %d: redeemed %.4f %s units for ₹%d", s.CurrentMonth, units, code, proceeds)
	return proceeds, nil
}

// ApplyIPO blocks the application amount until resolution.
func (s *Session) ApplyIPO(cat *Catalog, ipoID string, amount int64) error {
	if !s.IsActive {
		return ErrSessionTerminated
	}
	def, ok := cat.IPO(ipoID)
	if !ok {
		return ErrUnknownIPO
	}
	if s.CurrentMonth < def.OpenMonth || s.CurrentMonth > def.CloseMonth {
		return ErrIPOClosed
	}
	for _, app := range s.IPOs {
		if app.IPOID == ipoID {
			return ErrDuplicateIPO
		}
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if s.Wealth < amount {
		return ErrInsufficientFunds
	}
	s.Wealth -= amount
	s.IPOs = append(s.IPOs, IPOApplication{
		IPOID:        ipoID,
		Amount:       amount,
		AppliedMonth: s.CurrentMonth,
		Status:       IPOApplied,
	})
	s.logf("Month %d: applied ₹%d to %s IPO", s.CurrentMonth, amount, ipoID)
	return nil
}

// OpenFutures opens a short position: the holder profits when the sector
// falls below the entry price at expiry. A 20% good-faith margin must be
// available in cash, though it is not deducted.
func (s *Session) OpenFutures(cat *Catalog, sector string, units float64, durationMonths int) (*FuturesPosition, error) {
	if !s.IsActive {
		return nil, ErrSessionTerminated
	}
	if _, ok := cat.Sector(sector); !ok {
		return nil, ErrUnknownSector
	}
	if units <= 0 {
		return nil, ErrInvalidAmount
	}
	if durationMonths < 1 || durationMonths > 6 {
		return nil, ErrInvalidDuration
	}
	entry := s.Market.Prices[sector]
	if entry <= 0 {
		return nil, ErrUnknownSector
	}
	margin := roundRupees(0.2 * units * float64(entry))
	if s.Wealth < margin {
		return nil, ErrInsufficientFunds
	}
	pos := FuturesPosition{
		Sector:      sector,
		Units:       units,
		EntryPrice:  entry,
		OpenedMonth: s.CurrentMonth,
		ExpiryMonth: s.CurrentMonth + durationMonths,
	}
	s.Futures = append(s.Futures, pos)
	s.logf("Month %d: shorted %.2f %s units at ₹%d, expiry month %d",
		s.CurrentMonth, units, sector, entry, pos.ExpiryMonth)
	return &pos, nil
}

// NetWorth is cash plus marked holdings minus debt. Open futures are carried
// at zero until settlement.
func (s *Session) NetWorth() int64 {
	return s.Wealth + s.PortfolioValue() - s.Debt()
}
