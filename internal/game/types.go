package game

import "time"

type SessionView struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"display_name"`
	CareerStage  CareerStage  `json:"career_stage"`
	RiskAppetite RiskAppetite `json:"risk_appetite"`

	Wealth      int64 `json:"wealth"`
	Happiness   int   `json:"happiness"`
	CreditScore int   `json:"credit_score"`
	Literacy    int   `json:"financial_literacy"`
	Debt        int64 `json:"debt"`
	NetWorth    int64 `json:"net_worth"`
	Lifelines   int   `json:"lifelines"`

	CurrentMonth  int `json:"current_month"`
	CurrentLevel  int `json:"current_level"`
	CardsResolved int `json:"cards_resolved"`

	MonthlyIncome int64     `json:"monthly_income"`
	Expenses      []Expense `json:"recurring_expenses"`
	Loans         []Loan    `json:"loans"`

	Portfolio map[string]float64 `json:"portfolio"`
	FundUnits map[string]float64 `json:"fund_units"`

	IsActive    bool      `json:"is_active"`
	EndReason   EndReason `json:"end_reason,omitempty"`
	Persona     Persona   `json:"persona,omitempty"`
	FinalReport string    `json:"final_report,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) View() SessionView {
	v := SessionView{
		ID:            s.ID,
		DisplayName:   s.DisplayName,
		CareerStage:   s.CareerStage,
		RiskAppetite:  s.RiskAppetite,
		Wealth:        s.Wealth,
		Happiness:     s.Happiness,
		CreditScore:   s.CreditScore,
		Literacy:      s.Literacy,
		Debt:          s.Debt(),
		NetWorth:      s.NetWorth(),
		Lifelines:     s.Lifelines,
		CurrentMonth:  s.CurrentMonth,
		CurrentLevel:  s.CurrentLevel,
		CardsResolved: s.CardsResolved,
		MonthlyIncome: s.MonthlyIncome,
		Expenses:      s.Expenses,
		Loans:         s.Loans,
		Portfolio:     s.Portfolio,
		FundUnits:     s.FundUnits,
		IsActive:      s.IsActive,
		EndReason:     s.EndReason,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if !s.IsActive {
		v.Persona = PersonaFor(s.Literacy)
		v.FinalReport = s.FinalReport
	}
	return v
}

type StartGameInput struct {
	DisplayName  string `json:"display_name"`
	CareerStage  string `json:"career_stage"`
	RiskAppetite string `json:"risk_appetite"`
}

type ChoiceOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type CardView struct {
	CardID       int64          `json:"card_id"`
	Category     Category       `json:"category"`
	Difficulty   int            `json:"difficulty"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Choices      []ChoiceOption `json:"choices"`
	GameComplete bool           `json:"game_complete"`
}

func cardView(card *ScenarioCard, lang Language) CardView {
	v := CardView{
		CardID:      card.ID,
		Category:    card.Category,
		Difficulty:  card.Difficulty,
		Title:       card.Title.In(lang),
		Description: card.Description.In(lang),
	}
	for _, ch := range card.Choices {
		v.Choices = append(v.Choices, ChoiceOption{ID: ch.ID, Text: ch.Text.In(lang)})
	}
	return v
}

type TurnResult struct {
	Feedback       string      `json:"feedback,omitempty"`
	WasRecommended bool        `json:"was_recommended"`
	Skipped        bool        `json:"skipped,omitempty"`
	MonthAdvanced  bool        `json:"month_advanced"`
	MonthEvents    []string    `json:"month_events,omitempty"`
	GameOver       bool        `json:"game_over"`
	GameOverReason EndReason   `json:"game_over_reason,omitempty"`
	Session        SessionView `json:"session"`
}

type LifelineHint struct {
	ChoiceID      int64 `json:"choice_id"`
	IsRecommended bool  `json:"is_recommended"`
}

type LifelineResult struct {
	Hints          []LifelineHint `json:"hints"`
	LifelinesLeft  int            `json:"lifelines_left"`
	AdvisorMessage string         `json:"advisor_message,omitempty"`
	Session        SessionView    `json:"session"`
}

type LoanResult struct {
	LoanType LoanType    `json:"loan_type"`
	Amount   int64       `json:"amount"`
	Session  SessionView `json:"session"`
}

type TradeResult struct {
	Sector   string      `json:"sector,omitempty"`
	FundCode string      `json:"fund_code,omitempty"`
	Units    float64     `json:"units"`
	Price    int64       `json:"price"`
	Cash     int64       `json:"cash"`
	Session  SessionView `json:"session"`
}

type FuturesResult struct {
	Position FuturesPosition `json:"position"`
	Session  SessionView     `json:"session"`
}

type IPOView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OpenMonth  int    `json:"open_month"`
	CloseMonth int    `json:"close_month"`
	Open       bool   `json:"open"`
}

type MarketView struct {
	Month     int                `json:"month"`
	Prices    map[string]int64   `json:"prices"`
	Trends    map[string]int     `json:"trends"`
	History   map[string][]int64 `json:"history"`
	NAVs      map[string]int64   `json:"navs"`
	Portfolio map[string]float64 `json:"portfolio"`
	FundUnits map[string]float64 `json:"fund_units"`
	Futures   []FuturesPosition  `json:"futures"`
	IPOs      []IPOView          `json:"ipos"`
	Applied   []IPOApplication   `json:"ipo_applications"`
}

type AdviceResult struct {
	Message string `json:"message"`
	Source  string `json:"source"`
}

type LeaderboardRow struct {
	Rank        int64     `json:"rank"`
	DisplayName string    `json:"display_name"`
	NetWorth    int64     `json:"net_worth"`
	Score       int64     `json:"score"`
	Persona     Persona   `json:"persona"`
	EndReason   EndReason `json:"end_reason"`
	Months      int       `json:"months"`
}

// GameRecord is the append-only row written when a session ends.
type GameRecord struct {
	SessionID   string    `json:"session_id"`
	DisplayName string    `json:"display_name"`
	CareerStage CareerStage `json:"career_stage"`
	EndReason   EndReason `json:"end_reason"`
	NetWorth    int64     `json:"net_worth"`
	Wealth      int64     `json:"wealth"`
	Happiness   int       `json:"happiness"`
	CreditScore int       `json:"credit_score"`
	Literacy    int       `json:"financial_literacy"`
	Months      int       `json:"months"`
	Score       int64     `json:"score"`
	Persona     Persona   `json:"persona"`
	EndedAt     time.Time `json:"ended_at"`
}

// PlayerProfile is the cross-session aggregate for a display name: game
// counts, personal bests and earned badges. Updated only when a finished
// game is recorded; bests are monotonic.
type PlayerProfile struct {
	DisplayName        string    `json:"display_name"`
	TotalGames         int       `json:"total_games"`
	GamesCompleted     int       `json:"games_completed"`
	HighestWealth      int64     `json:"highest_wealth"`
	HighestNetWorth    int64     `json:"highest_net_worth"`
	HighestCreditScore int       `json:"highest_credit_score"`
	HighestHappiness   int       `json:"highest_happiness"`
	HighestLiteracy    int       `json:"highest_literacy"`
	HighestScore       int64     `json:"highest_score"`
	Badges             []string  `json:"badges"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Absorb folds one finished game into the profile.
func (p *PlayerProfile) Absorb(rec GameRecord) {
	p.DisplayName = rec.DisplayName
	p.TotalGames++
	if rec.EndReason == EndCompleted {
		p.GamesCompleted++
	}
	p.HighestWealth = max(p.HighestWealth, rec.Wealth)
	p.HighestNetWorth = max(p.HighestNetWorth, rec.NetWorth)
	p.HighestCreditScore = max(p.HighestCreditScore, rec.CreditScore)
	p.HighestHappiness = max(p.HighestHappiness, rec.Happiness)
	p.HighestLiteracy = max(p.HighestLiteracy, rec.Literacy)
	p.HighestScore = max(p.HighestScore, rec.Score)
	p.Badges = mergeBadges(p.Badges, badgesFor(rec))
	if rec.EndedAt.After(p.UpdatedAt) {
		p.UpdatedAt = rec.EndedAt
	}
}

const (
	BadgeSurvivor    = "SURVIVOR"     // finished all twelve months
	BadgeLakhpati    = "LAKHPATI"     // ended with net worth of a lakh or more
	BadgeCreditChamp = "CREDIT_CHAMP" // ended with a bank-grade credit score
	BadgeGuru        = "GURU"         // ended at the top literacy band
	BadgeZenMaster   = "ZEN_MASTER"   // ended with happiness above 90
)

func badgesFor(rec GameRecord) []string {
	var out []string
	if rec.EndReason == EndCompleted {
		out = append(out, BadgeSurvivor)
	}
	if rec.NetWorth >= 100_000 {
		out = append(out, BadgeLakhpati)
	}
	if rec.CreditScore >= BankLoanMinCredit {
		out = append(out, BadgeCreditChamp)
	}
	if rec.Literacy >= 80 {
		out = append(out, BadgeGuru)
	}
	if rec.Happiness > 90 {
		out = append(out, BadgeZenMaster)
	}
	return out
}

func mergeBadges(have, earned []string) []string {
	for _, b := range earned {
		seen := false
		for _, h := range have {
			if h == b {
				seen = true
				break
			}
		}
		if !seen {
			have = append(have, b)
		}
	}
	return have
}

func recordOf(s *Session, now time.Time) GameRecord {
	return GameRecord{
		SessionID:   s.ID,
		DisplayName: s.DisplayName,
		CareerStage: s.CareerStage,
		EndReason:   s.EndReason,
		NetWorth:    s.NetWorth(),
		Wealth:      s.Wealth,
		Happiness:   s.Happiness,
		CreditScore: s.CreditScore,
		Literacy:    s.Literacy,
		Months:      monthsPlayed(s),
		Score:       s.CompositeScore(),
		Persona:     PersonaFor(s.Literacy),
		EndedAt:     now,
	}
}
