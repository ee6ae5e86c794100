package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arthneeti/internal/game"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) StartGame(ctx context.Context, in game.StartGameInput) (game.SessionView, error) {
	var out game.SessionView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games", in, &out)
	return out, err
}

func (c *Client) Session(ctx context.Context, id string) (game.SessionView, error) {
	var out game.SessionView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) Card(ctx context.Context, id, lang string) (game.CardView, error) {
	var out game.CardView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(id)+"/card?lang="+url.QueryEscape(lang), nil, &out)
	return out, err
}

func (c *Client) Choose(ctx context.Context, id, lang string, cardID, choiceID int64) (game.TurnResult, error) {
	var out game.TurnResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/choice?lang="+url.QueryEscape(lang), map[string]any{
		"card_id":   cardID,
		"choice_id": choiceID,
	}, &out)
	return out, err
}

func (c *Client) Skip(ctx context.Context, id string, cardID int64) (game.TurnResult, error) {
	var out game.TurnResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/skip", map[string]any{
		"card_id": cardID,
	}, &out)
	return out, err
}

func (c *Client) Lifeline(ctx context.Context, id, lang string, cardID int64) (game.LifelineResult, error) {
	var out game.LifelineResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/lifeline?lang="+url.QueryEscape(lang), map[string]any{
		"card_id": cardID,
	}, &out)
	return out, err
}

func (c *Client) TakeLoan(ctx context.Context, id, loanType string) (game.LoanResult, error) {
	var out game.LoanResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/loan", map[string]any{
		"loan_type": loanType,
	}, &out)
	return out, err
}

func (c *Client) Market(ctx context.Context, id, lang string) (game.MarketView, error) {
	var out game.MarketView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(id)+"/market?lang="+url.QueryEscape(lang), nil, &out)
	return out, err
}

func (c *Client) BuyStock(ctx context.Context, id, sector string, amount int64) (game.TradeResult, error) {
	var out game.TradeResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/stocks/buy", map[string]any{
		"sector": sector,
		"amount": amount,
	}, &out)
	return out, err
}

func (c *Client) SellStock(ctx context.Context, id, sector string, units float64) (game.TradeResult, error) {
	var out game.TradeResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/stocks/sell", map[string]any{
		"sector": sector,
		"units":  units,
	}, &out)
	return out, err
}

func (c *Client) InvestFund(ctx context.Context, id, code string, amount int64) (game.TradeResult, error) {
	var out game.TradeResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/funds/"+url.PathEscape(code)+"/invest", map[string]any{
		"amount": amount,
	}, &out)
	return out, err
}

func (c *Client) RedeemFund(ctx context.Context, id, code string, units float64) (game.TradeResult, error) {
	var out game.TradeResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/funds/"+url.PathEscape(code)+"/redeem", map[string]any{
		"units": units,
	}, &out)
	return out, err
}

func (c *Client) ApplyIPO(ctx context.Context, id, ipoID string, amount int64) (game.SessionView, error) {
	var out game.SessionView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/ipos/"+url.PathEscape(ipoID)+"/apply", map[string]any{
		"amount": amount,
	}, &out)
	return out, err
}

func (c *Client) OpenFutures(ctx context.Context, id, sector string, units float64, durationMonths int) (game.FuturesResult, error) {
	var out game.FuturesResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/futures", map[string]any{
		"sector":          sector,
		"units":           units,
		"duration_months": durationMonths,
	}, &out)
	return out, err
}

func (c *Client) Advice(ctx context.Context, id, lang string, cardID int64) (game.AdviceResult, error) {
	var out game.AdviceResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(id)+"/advice", map[string]any{
		"card_id":  cardID,
		"language": lang,
	}, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, displayName string) (game.PlayerProfile, error) {
	var out game.PlayerProfile
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players/"+url.PathEscape(displayName), nil, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]game.LeaderboardRow, error) {
	var out struct {
		Rows []game.LeaderboardRow `json:"rows"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/leaderboard?limit=%d", limit), nil, &out)
	return out.Rows, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
