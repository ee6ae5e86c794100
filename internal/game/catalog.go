package game

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed/cards.yaml
var seedYAML []byte

// Localized is a translated string. English is the fallback when a
// translation is missing.
type Localized struct {
	EN string `yaml:"en" json:"en"`
	HI string `yaml:"hi" json:"hi,omitempty"`
	MR string `yaml:"mr" json:"mr,omitempty"`
}

func (l Localized) In(lang Language) string {
	switch lang {
	case LangHindi:
		if l.HI != "" {
			return l.HI
		}
	case LangMarathi:
		if l.MR != "" {
			return l.MR
		}
	}
	return l.EN
}

type AddedExpense struct {
	Name          string  `yaml:"name"`
	Amount        int64   `yaml:"amount"`
	Category      string  `yaml:"category"`
	InflationRate float64 `yaml:"inflation"`
}

type Choice struct {
	ID          int64        `yaml:"id"`
	Text        Localized    `yaml:"text"`
	Wealth      int64        `yaml:"wealth"`
	Happiness   int          `yaml:"happiness"`
	Credit      int          `yaml:"credit"`
	Literacy    int          `yaml:"literacy"`
	Recommended bool         `yaml:"recommended"`
	Feedback    Localized    `yaml:"feedback"`
	AddsExpense AddedExpense `yaml:"adds_expense"`
	CancelsExp  string       `yaml:"cancels_expense"`
}

type ScenarioCard struct {
	ID          int64              `yaml:"id"`
	Category    Category           `yaml:"category"`
	Difficulty  int                `yaml:"difficulty"`
	MinMonth    int                `yaml:"min_month"`
	Title       Localized          `yaml:"title"`
	Description Localized          `yaml:"description"`
	MarketEvent map[string]float64 `yaml:"market_event"` // sector -> price multiplier
	Choices     []Choice           `yaml:"choices"`
}

func (c *ScenarioCard) choice(id int64) (*Choice, bool) {
	for i := range c.Choices {
		if c.Choices[i].ID == id {
			return &c.Choices[i], true
		}
	}
	return nil, false
}

func (c *ScenarioCard) recommended() *Choice {
	for i := range c.Choices {
		if c.Choices[i].Recommended {
			return &c.Choices[i]
		}
	}
	return &c.Choices[0]
}

type SectorDef struct {
	Name       string  `yaml:"name"`
	StartPrice int64   `yaml:"start_price"`
	Drift      float64 `yaml:"drift"`
	Volatility float64 `yaml:"volatility"`
	ShockProb  float64 `yaml:"shock_prob"`
	ShockScale float64 `yaml:"shock_scale"`
}

type FundDef struct {
	Code       string    `yaml:"code"`
	Name       Localized `yaml:"name"`
	StartNAV   int64     `yaml:"start_nav"`
	Drift      float64   `yaml:"drift"`
	Volatility float64   `yaml:"volatility"`
}

type IPODef struct {
	ID            string    `yaml:"id"`
	Name          Localized `yaml:"name"`
	OpenMonth     int       `yaml:"open_month"`
	CloseMonth    int       `yaml:"close_month"`
	AllotmentProb float64   `yaml:"allotment_prob"`
	MinListing    float64   `yaml:"min_listing"` // listing return bounds, e.g. -0.15
	MaxListing    float64   `yaml:"max_listing"`
}

// Catalog is the immutable scenario deck plus market instrument definitions.
// Safe for concurrent reads.
type Catalog struct {
	Sectors []SectorDef
	Funds   []FundDef
	IPOs    []IPODef

	cards   []ScenarioCard
	cardsBy map[int64]*ScenarioCard
	fundsBy map[string]*FundDef
	iposBy  map[string]*IPODef
	sectors map[string]*SectorDef
}

type seedFile struct {
	Sectors []SectorDef    `yaml:"sectors"`
	Funds   []FundDef      `yaml:"funds"`
	IPOs    []IPODef       `yaml:"ipos"`
	Cards   []ScenarioCard `yaml:"cards"`
}

// LoadCatalog parses the embedded seed. If path is non-empty the file at
// path replaces the embedded deck.
func LoadCatalog(path string) (*Catalog, error) {
	raw := seedYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		raw = b
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	cat := &Catalog{
		Sectors: f.Sectors,
		Funds:   f.Funds,
		IPOs:    f.IPOs,
		cards:   f.Cards,
		cardsBy: make(map[int64]*ScenarioCard, len(f.Cards)),
		fundsBy: make(map[string]*FundDef, len(f.Funds)),
		iposBy:  make(map[string]*IPODef, len(f.IPOs)),
		sectors: make(map[string]*SectorDef, len(f.Sectors)),
	}

	for i := range cat.cards {
		c := &cat.cards[i]
		if c.ID == 0 {
			return nil, fmt.Errorf("card %q: missing id", c.Title.EN)
		}
		if _, dup := cat.cardsBy[c.ID]; dup {
			return nil, fmt.Errorf("card id %d duplicated", c.ID)
		}
		if !ValidCategory(c.Category) {
			return nil, fmt.Errorf("card %d: invalid category %q", c.ID, c.Category)
		}
		if len(c.Choices) == 0 {
			return nil, fmt.Errorf("card %d: no choices", c.ID)
		}
		seenChoice := make(map[int64]bool, len(c.Choices))
		hasRec := false
		for _, ch := range c.Choices {
			if ch.ID == 0 || seenChoice[ch.ID] {
				return nil, fmt.Errorf("card %d: bad choice id %d", c.ID, ch.ID)
			}
			seenChoice[ch.ID] = true
			hasRec = hasRec || ch.Recommended
		}
		if !hasRec {
			return nil, fmt.Errorf("card %d: no recommended choice", c.ID)
		}
		if c.Difficulty < 1 || c.Difficulty > 5 {
			return nil, fmt.Errorf("card %d: difficulty %d out of range", c.ID, c.Difficulty)
		}
		if c.MinMonth < 1 {
			c.MinMonth = 1
		}
		for sector := range c.MarketEvent {
			found := false
			for _, sd := range f.Sectors {
				if sd.Name == sector {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("card %d: market event on unknown sector %q", c.ID, sector)
			}
		}
		cat.cardsBy[c.ID] = c
	}

	for i := range cat.Funds {
		f := &cat.Funds[i]
		if f.Code == "" || f.StartNAV <= 0 {
			return nil, fmt.Errorf("fund %q: invalid definition", f.Code)
		}
		cat.fundsBy[f.Code] = f
	}
	for i := range cat.IPOs {
		d := &cat.IPOs[i]
		if d.ID == "" || d.CloseMonth < d.OpenMonth {
			return nil, fmt.Errorf("ipo %q: invalid definition", d.ID)
		}
		cat.iposBy[d.ID] = d
	}
	for i := range cat.Sectors {
		s := &cat.Sectors[i]
		if s.Name == "" || s.StartPrice <= 0 {
			return nil, fmt.Errorf("sector %q: invalid definition", s.Name)
		}
		cat.sectors[s.Name] = s
	}
	if len(cat.Sectors) == 0 {
		return nil, fmt.Errorf("catalog has no sectors")
	}

	return cat, nil
}

func (c *Catalog) Card(id int64) (*ScenarioCard, bool) {
	card, ok := c.cardsBy[id]
	return card, ok
}

func (c *Catalog) Sector(name string) (*SectorDef, bool) {
	s, ok := c.sectors[name]
	return s, ok
}

func (c *Catalog) Fund(code string) (*FundDef, bool) {
	f, ok := c.fundsBy[code]
	return f, ok
}

func (c *Catalog) IPO(id string) (*IPODef, bool) {
	d, ok := c.iposBy[id]
	return d, ok
}

func (c *Catalog) CardCount() int { return len(c.cards) }

// eligibleCards returns unseen cards the session may draw right now.
func (c *Catalog) eligibleCards(s *Session) []*ScenarioCard {
	maxDiff := maxDifficultyForLevel(s.CurrentLevel)
	var out []*ScenarioCard
	for i := range c.cards {
		card := &c.cards[i]
		if s.seen(card.ID) {
			continue
		}
		if card.MinMonth > s.CurrentMonth {
			continue
		}
		if card.Difficulty > maxDiff {
			continue
		}
		out = append(out, card)
	}
	if len(out) > 0 {
		return out
	}
	// Difficulty pool exhausted; relax the level cap before giving up.
	for i := range c.cards {
		card := &c.cards[i]
		if s.seen(card.ID) || card.MinMonth > s.CurrentMonth {
			continue
		}
		out = append(out, card)
	}
	return out
}
