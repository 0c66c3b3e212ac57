// Package quantbot is a Go client for the quantbot-trader status API.
package quantbot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Position is an open simulated position.
type Position struct {
	Symbol      string    `json:"symbol"`
	EntryPrice  float64   `json:"entry_price"`
	Qty         float64   `json:"qty"`
	EntryTime   time.Time `json:"entry_time"`
	TargetPrice float64   `json:"target_price,omitempty"`
	StopPrice   float64   `json:"stop_price,omitempty"`
}

// SymbolScore is one entry of a ranking.
type SymbolScore struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

// Ranking is the latest ranking published by the trader.
type Ranking struct {
	UpdatedAt time.Time     `json:"updated_at"`
	Scores    []SymbolScore `json:"scores"`
}

// OrderIntent is a simulated market order.
type OrderIntent struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Price     float64   `json:"price"`
	Qty       float64   `json:"qty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExitIntent is a simulated take-profit/stop-loss pair.
type ExitIntent struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	TargetPrice float64   `json:"target_price"`
	StopPrice   float64   `json:"stop_price"`
	Qty         float64   `json:"qty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Intents holds every intent the trader's broker has recorded.
type Intents struct {
	Orders []OrderIntent `json:"orders"`
	Exits  []ExitIntent  `json:"exits"`
}

// Decision is the outcome of one symbol in the latest trade pass.
type Decision struct {
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	Score      float64   `json:"score"`
	Transition string    `json:"transition"`
	Price      float64   `json:"price"`
	Time       time.Time `json:"time"`
}

// Client provides a Go SDK for interacting with the quantbot-trader API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new quantbot API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetPositions retrieves the open positions.
func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	var out []Position
	if err := c.get(ctx, "/api/positions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRanking retrieves the most recent ranking.
func (c *Client) GetRanking(ctx context.Context) (Ranking, error) {
	var out Ranking
	err := c.get(ctx, "/api/ranking", &out)
	return out, err
}

// GetIntents retrieves the simulated order and exit intents.
func (c *Client) GetIntents(ctx context.Context) (Intents, error) {
	var out Intents
	err := c.get(ctx, "/api/intents", &out)
	return out, err
}

// GetDecisions retrieves the decisions of the latest trade pass.
func (c *Client) GetDecisions(ctx context.Context) ([]Decision, error) {
	var out []Decision
	if err := c.get(ctx, "/api/decisions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("GET %s: %s: %s", path, resp.Status, apiErr.Error)
		}
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
