package advisor

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"arthneeti/internal/game"
)

//go:embed prompts/advice.txt
var advicePrompt string

var adviceTmpl = template.Must(template.New("advice").Parse(advicePrompt))

// Gemini asks a generative model for advice and degrades to the fallback
// advisor when the call fails.
type Gemini struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	fallback game.Advisor
	log      *slog.Logger
}

func NewGemini(ctx context.Context, apiKey string, fallback game.Advisor, log *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gemini{
		client:   client,
		model:    client.GenerativeModel("gemini-2.5-flash"),
		fallback: fallback,
		log:      log,
	}, nil
}

func (g *Gemini) Close() {
	g.client.Close()
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Advise(ctx context.Context, s *game.Session, card *game.ScenarioCard, lang game.Language) (string, error) {
	msg, err := g.generate(ctx, s, card, lang)
	if err == nil {
		return msg, nil
	}
	if g.fallback != nil {
		g.log.Warn("gemini advice failed, using fallback", "error", err)
		return g.fallback.Advise(ctx, s, card, lang)
	}
	return "", err
}

func (g *Gemini) generate(ctx context.Context, s *game.Session, card *game.ScenarioCard, lang game.Language) (string, error) {
	var choices []string
	for _, ch := range card.Choices {
		choices = append(choices, ch.Text.In(lang))
	}

	var buf bytes.Buffer
	err := adviceTmpl.Execute(&buf, struct {
		CareerStage  game.CareerStage
		Month        int
		Wealth       int64
		Happiness    int
		Credit       int
		Literacy     int
		Debt         int64
		Title        string
		Description  string
		Choices      []string
		LanguageName string
	}{
		CareerStage:  s.CareerStage,
		Month:        s.CurrentMonth,
		Wealth:       s.Wealth,
		Happiness:    s.Happiness,
		Credit:       s.CreditScore,
		Literacy:     s.Literacy,
		Debt:         s.Debt(),
		Title:        card.Title.In(lang),
		Description:  card.Description.In(lang),
		Choices:      choices,
		LanguageName: languageName(lang),
	})
	if err != nil {
		return "", err
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(buf.String()))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from model")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type from model")
	}
	return strings.TrimSpace(string(text)), nil
}

func languageName(lang game.Language) string {
	switch lang {
	case game.LangHindi:
		return "Hindi"
	case game.LangMarathi:
		return "Marathi"
	}
	return "English"
}
