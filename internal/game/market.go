package game

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	priceFloor     = int64(1)
	maxDropPerTick = 0.5
)

func roundRupees(v float64) int64 {
	return int64(math.Round(v))
}

// normalish maps two uniform draws to a rough zero-mean sample in [-1, 1].
func normalish(rng *rand.Rand) float64 {
	return rng.Float64() + rng.Float64() - 1
}

func signedShock(rng *rand.Rand, scale float64) float64 {
	shock := rng.Float64() * scale
	if rng.Intn(2) == 0 {
		return -shock
	}
	return shock
}

// evolvePrice applies a relative return with a bounded downside and a floor.
func evolvePrice(price int64, ret float64) int64 {
	if ret < -maxDropPerTick {
		ret = -maxDropPerTick
	}
	next := roundRupees(float64(price) * (1 + ret))
	if next < priceFloor {
		return priceFloor
	}
	return next
}

// newMarketState prices every sector and fund at its catalog start.
func newMarketState(cat *Catalog) MarketState {
	m := MarketState{
		Prices:  make(map[string]int64, len(cat.Sectors)),
		History: make(map[string][]int64, len(cat.Sectors)),
		Trends:  make(map[string]int, len(cat.Sectors)),
		NAVs:    make(map[string]int64, len(cat.Funds)),
	}
	for _, sd := range cat.Sectors {
		m.Prices[sd.Name] = sd.StartPrice
		m.History[sd.Name] = []int64{sd.StartPrice}
		m.Trends[sd.Name] = 0
	}
	for _, fd := range cat.Funds {
		m.NAVs[fd.Code] = fd.StartNAV
	}
	return m
}

// tick advances every sector price and fund NAV by one month. Returns
// headline strings for sectors that moved sharply.
func (m *MarketState) tick(cat *Catalog, rng *rand.Rand) []string {
	var headlines []string
	for _, sd := range cat.Sectors {
		prev := m.Prices[sd.Name]
		ret := sd.Drift + sd.Volatility*normalish(rng)
		if rng.Float64() < sd.ShockProb {
			ret += signedShock(rng, sd.ShockScale)
		}
		next := evolvePrice(prev, ret)
		m.Prices[sd.Name] = next
		m.History[sd.Name] = append(m.History[sd.Name], next)
		m.Trends[sd.Name] = trendOf(prev, next)

		move := float64(next-prev) / float64(prev)
		switch {
		case move <= -0.10:
			headlines = append(headlines, fmt.Sprintf("%s slid %.0f%% this month", sd.Name, -move*100))
		case move >= 0.10:
			headlines = append(headlines, fmt.Sprintf("%s rallied %.0f%% this month", sd.Name, move*100))
		}
	}
	for _, fd := range cat.Funds {
		ret := fd.Drift + fd.Volatility*normalish(rng)
		m.NAVs[fd.Code] = evolvePrice(m.NAVs[fd.Code], ret)
	}
	return headlines
}

// applyEvent scales sector prices by card-driven multipliers, keeping the
// floor and history intact.
func (m *MarketState) applyEvent(multipliers map[string]float64) {
	for sector, mult := range multipliers {
		prev, ok := m.Prices[sector]
		if !ok {
			continue
		}
		next := roundRupees(float64(prev) * mult)
		if next < priceFloor {
			next = priceFloor
		}
		m.Prices[sector] = next
		m.History[sector] = append(m.History[sector], next)
		m.Trends[sector] = trendOf(prev, next)
	}
}

func trendOf(prev, next int64) int {
	switch {
	case next > prev:
		return 1
	case next < prev:
		return -1
	}
	return 0
}
