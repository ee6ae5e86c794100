package advisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"arthneeti/internal/game"
)

func TestRuleBasedIsDeterministic(t *testing.T) {
	adv := NewRuleBased()
	card := &game.ScenarioCard{ID: 105, Category: game.CategoryTrap}
	s := &game.Session{}

	first, err := adv.Advise(context.Background(), s, card, game.LangEnglish)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := adv.Advise(context.Background(), s, card, game.LangEnglish)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRuleBasedSpeaksAllLanguages(t *testing.T) {
	adv := NewRuleBased()
	card := &game.ScenarioCard{ID: 101, Category: game.CategoryInvestment}
	s := &game.Session{}

	for _, lang := range []game.Language{game.LangEnglish, game.LangHindi, game.LangMarathi} {
		msg, err := adv.Advise(context.Background(), s, card, lang)
		require.NoError(t, err)
		require.NotEmpty(t, msg, "language %s", lang)
	}

	en, _ := adv.Advise(context.Background(), s, card, game.LangEnglish)
	hi, _ := adv.Advise(context.Background(), s, card, game.LangHindi)
	require.NotEqual(t, en, hi)
}

func TestRuleBasedFallsBackToGenericTips(t *testing.T) {
	adv := NewRuleBased()
	card := &game.ScenarioCard{ID: 7, Category: game.Category("SOMETHING_NEW")}

	msg, err := adv.Advise(context.Background(), &game.Session{}, card, game.LangEnglish)
	require.NoError(t, err)
	require.NotEmpty(t, msg)
}
