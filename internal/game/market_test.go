package game

import (
	"math/rand"
	"testing"
)

func TestEvolvePriceBoundsDownside(t *testing.T) {
	if got := evolvePrice(1000, -0.9); got != 500 {
		t.Fatalf("drop should be capped at 50%%, got %d", got)
	}
	if got := evolvePrice(1, -0.5); got != priceFloor {
		t.Fatalf("price should never go below the floor, got %d", got)
	}
	if got := evolvePrice(1000, 0.12); got != 1120 {
		t.Fatalf("got %d want 1120", got)
	}
}

func TestRoundRupees(t *testing.T) {
	if got := roundRupees(10.5); got != 11 {
		t.Fatalf("got %d", got)
	}
	if got := roundRupees(-10.5); got != -11 {
		t.Fatalf("got %d", got)
	}
	if got := roundRupees(10.49); got != 10 {
		t.Fatalf("got %d", got)
	}
}

func TestNewMarketStateUsesCatalogStarts(t *testing.T) {
	cat := testCatalog(t)
	m := newMarketState(cat)
	if m.Prices["tech"] != 100 {
		t.Fatalf("tech price=%d want 100", m.Prices["tech"])
	}
	if m.NAVs["TESTFUND"] != 100 {
		t.Fatalf("nav=%d want 100", m.NAVs["TESTFUND"])
	}
	if len(m.History["tech"]) != 1 || m.History["tech"][0] != 100 {
		t.Fatalf("history should open with the start price: %v", m.History["tech"])
	}
	if m.Trends["tech"] != 0 {
		t.Fatalf("trend should open flat")
	}
}

func TestApplyEvent(t *testing.T) {
	cat := testCatalog(t)
	m := newMarketState(cat)
	m.applyEvent(map[string]float64{"tech": 0.5, "unknown": 2.0})
	if m.Prices["tech"] != 50 {
		t.Fatalf("tech=%d want 50", m.Prices["tech"])
	}
	if m.Trends["tech"] != -1 {
		t.Fatalf("trend=%d want -1", m.Trends["tech"])
	}
	if _, ok := m.Prices["unknown"]; ok {
		t.Fatalf("unknown sector must be ignored")
	}
}

func TestTickIsDeterministicPerSeed(t *testing.T) {
	cat := testCatalog(t)
	a := newMarketState(cat)
	b := newMarketState(cat)
	a.tick(cat, rand.New(rand.NewSource(7)))
	b.tick(cat, rand.New(rand.NewSource(7)))
	for name, price := range a.Prices {
		if b.Prices[name] != price {
			t.Fatalf("sector %s diverged: %d vs %d", name, price, b.Prices[name])
		}
	}
}

func TestTickKeepsHistory(t *testing.T) {
	cat := testCatalog(t)
	m := newMarketState(cat)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5; i++ {
		m.tick(cat, rng)
	}
	if len(m.History["tech"]) != 6 {
		t.Fatalf("history len=%d want 6", len(m.History["tech"]))
	}
	for _, p := range m.History["tech"] {
		if p < priceFloor {
			t.Fatalf("price %d below floor", p)
		}
	}
}
