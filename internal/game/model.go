package game

import (
	"errors"
	"time"
)

const (
	StartingWealth    = int64(25_000)
	StartingHappiness = 100
	StartingCredit    = 700
	StartingLiteracy  = 50
	StartingLifelines = 3

	CardsPerMonth      = 3
	GameDurationMonths = 12

	MinHappiness = 0
	MaxHappiness = 100
	MinCredit    = 300
	MaxCredit    = 900
	MinLiteracy  = 0
	MaxLiteracy  = 100

	// Outstanding debt never grows past this; unpaid interest beyond it is
	// forfeited by the lender, the credit penalty still lands.
	DebtCap = int64(200_000)

	MissedInterestCreditPenalty = 15

	BankLoanMinCredit = 750
)

// Loan terms. Family money is interest-free but costs goodwill; the
// instant-app loan wrecks the credit score and adds a recurring collection
// expense; the bank loan needs a clean score.
const (
	FamilyLoanPrincipal  = int64(5_000)
	InstantLoanPrincipal = int64(10_000)
	BankLoanPrincipal    = int64(100_000)

	InstantLoanMonthlyRate = 0.03
	BankLoanMonthlyRate    = 0.01

	InstantLoanEMI = int64(500)
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionTerminated   = errors.New("session already terminated")
	ErrCardMismatch        = errors.New("card is not the session's current card")
	ErrInvalidChoice       = errors.New("choice does not belong to card")
	ErrNoLifelines         = errors.New("no lifelines remaining")
	ErrIneligibleLoan      = errors.New("loan requirements not met")
	ErrInvalidLoanType     = errors.New("unknown loan type")
	ErrInvalidCareerStage  = errors.New("unknown career stage")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientUnits   = errors.New("insufficient units held")
	ErrUnknownSector       = errors.New("unknown sector")
	ErrUnknownFund         = errors.New("unknown fund")
	ErrUnknownIPO          = errors.New("unknown ipo")
	ErrIPOClosed           = errors.New("ipo application window closed")
	ErrDuplicateIPO        = errors.New("already applied to this ipo")
	ErrInvalidAmount       = errors.New("amount must be > 0")
	ErrInvalidDuration     = errors.New("duration must be between 1 and 6 months")
	ErrDebtLimit           = errors.New("debt limit reached")
	ErrAdvisorUnavailable  = errors.New("advisor unavailable")
	ErrNoCardInPlay        = errors.New("no card is currently in play")
	ErrProfileNotFound     = errors.New("player profile not found")
	ErrLanguageUnsupported = errors.New("unsupported language")
)

type Language string

const (
	LangEnglish Language = "en"
	LangHindi   Language = "hi"
	LangMarathi Language = "mr"
)

func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LangEnglish, LangHindi, LangMarathi:
		return Language(s), nil
	case "":
		return LangEnglish, nil
	}
	return "", ErrLanguageUnsupported
}

type Category string

const (
	CategoryNeeds      Category = "NEEDS"
	CategoryWants      Category = "WANTS"
	CategoryEmergency  Category = "EMERGENCY"
	CategoryInvestment Category = "INVESTMENT"
	CategorySocial     Category = "SOCIAL"
	CategoryTrap       Category = "TRAP"
	CategoryNews       Category = "NEWS"
	CategoryQuiz       Category = "QUIZ"
)

func ValidCategory(c Category) bool {
	switch c {
	case CategoryNeeds, CategoryWants, CategoryEmergency, CategoryInvestment,
		CategorySocial, CategoryTrap, CategoryNews, CategoryQuiz:
		return true
	}
	return false
}

type LoanType string

const (
	LoanFamily  LoanType = "FAMILY"
	LoanInstant LoanType = "INSTANT_APP"
	LoanBank    LoanType = "BANK"
)

func ParseLoanType(s string) (LoanType, error) {
	switch LoanType(s) {
	case LoanFamily, LoanInstant, LoanBank:
		return LoanType(s), nil
	}
	return "", ErrInvalidLoanType
}

type CareerStage string

const (
	StageStudent       CareerStage = "STUDENT"
	StageFresher       CareerStage = "FRESHER"
	StageProfessional  CareerStage = "PROFESSIONAL"
	StageBusinessOwner CareerStage = "BUSINESS_OWNER"
)

func ParseCareerStage(s string) (CareerStage, error) {
	switch CareerStage(s) {
	case StageStudent, StageFresher, StageProfessional, StageBusinessOwner:
		return CareerStage(s), nil
	case "":
		return StageFresher, nil
	}
	return "", ErrInvalidCareerStage
}

type RiskAppetite string

const (
	RiskLow    RiskAppetite = "LOW"
	RiskMedium RiskAppetite = "MEDIUM"
	RiskHigh   RiskAppetite = "HIGH"
)

func ParseRiskAppetite(s string) (RiskAppetite, error) {
	switch RiskAppetite(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskAppetite(s), nil
	case "":
		return RiskMedium, nil
	}
	return "", errors.New("unknown risk appetite")
}

type EndReason string

const (
	EndNone       EndReason = ""
	EndCompleted  EndReason = "COMPLETED"
	EndBankruptcy EndReason = "BANKRUPTCY"
	EndBurnout    EndReason = "BURNOUT"
	EndAbandoned  EndReason = "ABANDONED"
)

type IncomeType string

const (
	IncomeSalary    IncomeType = "SALARY"
	IncomeFreelance IncomeType = "FREELANCE"
	IncomeBusiness  IncomeType = "BUSINESS"
)

// careerStart fixes the opening position for each career stage.
type careerStart struct {
	wealth     int64
	credit     int
	income     int64
	incomeType IncomeType
}

var careerStarts = map[CareerStage]careerStart{
	StageStudent:       {wealth: 10_000, credit: 650, income: 8_000, incomeType: IncomeFreelance},
	StageFresher:       {wealth: StartingWealth, credit: StartingCredit, income: 25_000, incomeType: IncomeSalary},
	StageProfessional:  {wealth: 100_000, credit: 750, income: 80_000, incomeType: IncomeSalary},
	StageBusinessOwner: {wealth: 50_000, credit: 720, income: 60_000, incomeType: IncomeBusiness},
}

type Expense struct {
	Name          string  `json:"name"`
	Amount        int64   `json:"amount"`
	Category      string  `json:"category"`
	Essential     bool    `json:"essential"`
	InflationRate float64 `json:"inflation_rate"`
	Cancelled     bool    `json:"cancelled"`
}

type Loan struct {
	Type        LoanType `json:"type"`
	Principal   int64    `json:"principal"`
	Outstanding int64    `json:"outstanding"`
	MonthlyRate float64  `json:"monthly_rate"`
	TakenMonth  int      `json:"taken_month"`
}

// FuturesPosition is a short contract: the player commits to sell at the
// entry price, settlement at expiry pays units*(entry-spot). Losses are not
// bounded by the notional.
type FuturesPosition struct {
	Sector      string  `json:"sector"`
	Units       float64 `json:"units"`
	EntryPrice  int64   `json:"entry_price"`
	OpenedMonth int     `json:"opened_month"`
	ExpiryMonth int     `json:"expiry_month"`
}

type IPOStatus string

const (
	IPOApplied  IPOStatus = "APPLIED"
	IPOAllotted IPOStatus = "ALLOTTED"
	IPORefunded IPOStatus = "REFUNDED"
)

type IPOApplication struct {
	IPOID        string    `json:"ipo_id"`
	Amount       int64     `json:"amount"`
	AppliedMonth int       `json:"applied_month"`
	Status       IPOStatus `json:"status"`
	Payout       int64     `json:"payout"`
}

// MarketState is per-session: prices evolve from the session's own seed, so
// two sessions never observe each other's market.
type MarketState struct {
	Prices  map[string]int64   `json:"prices"`
	History map[string][]int64 `json:"history"`
	Trends  map[string]int     `json:"trends"` // -1 bearish, 0 flat, 1 bullish
	NAVs    map[string]int64   `json:"navs"`
}

type Session struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"display_name"`
	CareerStage  CareerStage  `json:"career_stage"`
	RiskAppetite RiskAppetite `json:"risk_appetite"`

	Wealth      int64 `json:"wealth"`
	Happiness   int   `json:"happiness"`
	CreditScore int   `json:"credit_score"`
	Literacy    int   `json:"financial_literacy"`
	Lifelines   int   `json:"lifelines"`

	CurrentMonth  int `json:"current_month"`
	CurrentLevel  int `json:"current_level"`
	CardsResolved int `json:"cards_resolved"`

	MonthlyIncome int64      `json:"monthly_income"`
	IncomeType    IncomeType `json:"income_type"`
	Expenses      []Expense  `json:"expenses"`
	Loans         []Loan     `json:"loans"`

	Portfolio map[string]float64 `json:"portfolio"`  // sector -> units
	FundUnits map[string]float64 `json:"fund_units"` // fund code -> units
	Futures   []FuturesPosition  `json:"futures"`
	IPOs      []IPOApplication   `json:"ipos"`

	Market MarketState `json:"market"`

	CardsSeen     []int64 `json:"cards_seen"`
	CurrentCardID int64   `json:"current_card_id"` // 0 = none in play

	IsActive    bool      `json:"is_active"`
	EndReason   EndReason `json:"end_reason"`
	FinalReport string    `json:"final_report,omitempty"`

	GameplayLog []string `json:"gameplay_log"`

	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Debt is the sum of outstanding loan balances.
func (s *Session) Debt() int64 {
	var total int64
	for _, l := range s.Loans {
		total += l.Outstanding
	}
	return total
}

func (s *Session) seen(cardID int64) bool {
	for _, id := range s.CardsSeen {
		if id == cardID {
			return true
		}
	}
	return false
}

func (s *Session) hasLoan(t LoanType) bool {
	for _, l := range s.Loans {
		if l.Type == t {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Session) clampVitals() {
	s.Happiness = clampInt(s.Happiness, MinHappiness, MaxHappiness)
	s.CreditScore = clampInt(s.CreditScore, MinCredit, MaxCredit)
	s.Literacy = clampInt(s.Literacy, MinLiteracy, MaxLiteracy)
}

// Level thresholds: the earlier of the month milestone or the literacy
// milestone unlocks the level. Levels only widen the card pool.
func levelFor(month, literacy int) int {
	switch {
	case month >= 10 || literacy >= 70:
		return 4
	case month >= 7 || literacy >= 45:
		return 3
	case month >= 4 || literacy >= 20:
		return 2
	default:
		return 1
	}
}

// maxDifficultyForLevel caps how hard a drawn card may be.
func maxDifficultyForLevel(level int) int {
	switch {
	case level <= 1:
		return 2
	case level == 2:
		return 3
	case level == 3:
		return 4
	default:
		return 5
	}
}

type Persona string

const (
	PersonaWarrenBuffett  Persona = "Warren Buffett Jr."
	PersonaCautiousSaver  Persona = "Cautious Saver"
	PersonaBalancedSpend  Persona = "Balanced Spender"
	PersonaYOLOEnthusiast Persona = "YOLO Enthusiast"
	PersonaFOMOVictim     Persona = "FOMO Victim"
)

// PersonaFor maps final financial literacy to an archetype. It ignores how
// the game ended; a bankrupt player with high literacy keeps the label.
func PersonaFor(literacy int) Persona {
	switch {
	case literacy >= 80:
		return PersonaWarrenBuffett
	case literacy >= 60:
		return PersonaCautiousSaver
	case literacy >= 40:
		return PersonaBalancedSpend
	case literacy >= 20:
		return PersonaYOLOEnthusiast
	default:
		return PersonaFOMOVictim
	}
}

// CompositeScore ranks finished games for the leaderboard: net worth
// dominates, vitals break ties.
func (s *Session) CompositeScore() int64 {
	score := s.Wealth + s.PortfolioValue() - s.Debt()
	score += int64(s.Literacy) * 500
	score += int64(s.Happiness) * 200
	score += int64(s.CreditScore-MinCredit) * 50
	if s.EndReason == EndCompleted {
		score += 25_000
	}
	return score
}

// PortfolioValue marks stock and fund holdings to current prices.
func (s *Session) PortfolioValue() int64 {
	var total float64
	for sector, units := range s.Portfolio {
		total += units * float64(s.Market.Prices[sector])
	}
	for code, units := range s.FundUnits {
		total += units * float64(s.Market.NAVs[code])
	}
	return roundRupees(total)
}
