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

	"investlab/internal/invest"
	"investlab/internal/ledger"
	"investlab/internal/market"
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

func (c *Client) Dashboard(ctx context.Context) (invest.Dashboard, error) {
	var out invest.Dashboard
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/dashboard", nil, &out, "")
	return out, err
}

func (c *Client) Instruments(ctx context.Context) ([]market.Quote, error) {
	var out struct {
		Instruments []market.Quote `json:"instruments"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/instruments", nil, &out, "")
	return out.Instruments, err
}

func (c *Client) Instrument(ctx context.Context, symbol string, window int) (invest.InstrumentDetail, error) {
	var out invest.InstrumentDetail
	path := fmt.Sprintf("/v1/instruments/%s?window=%d", url.PathEscape(symbol), window)
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out, err
}

// PlaceOrder sends a buy, sell or sell_all order. shares is ignored for
// sell_all.
func (c *Client) PlaceOrder(ctx context.Context, symbol, side, idem string, shares int64) (invest.TradeResult, error) {
	var out invest.TradeResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/orders", map[string]any{
		"symbol": symbol,
		"side":   side,
		"shares": shares,
	}, &out, idem)
	return out, err
}

func (c *Client) Transactions(ctx context.Context) ([]ledger.SellRecord, error) {
	var out struct {
		Transactions []ledger.SellRecord `json:"transactions"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/transactions", nil, &out, "")
	return out.Transactions, err
}

func (c *Client) Tick(ctx context.Context) (int, error) {
	var out struct {
		Tick int `json:"tick"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/tick", nil, &out, "")
	return out.Tick, err
}

func (c *Client) Reset(ctx context.Context) (invest.Dashboard, error) {
	var out invest.Dashboard
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/reset", nil, &out, "")
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
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
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, apiErrorMessage(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiErrorMessage unwraps the server's {"error": "..."} envelope when present.
func apiErrorMessage(raw []byte) string {
	var env struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return strings.TrimSpace(string(raw))
}
