// Package ohlcv implements a feeder against an OHLCV market data HTTP API.
package ohlcv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marketscope/predictd/internal/config"
	"github.com/marketscope/predictd/pkg/models"
	"github.com/shopspring/decimal"
)

// Client fetches candle windows over HTTP.
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewClient creates a new OHLCV HTTP client.
func NewClient(cfg config.HTTPFeedConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "http" }

// Fetch returns the most recent window candles for symbol, oldest first.
func (c *Client) Fetch(ctx context.Context, symbol string, window int) ([]models.Candle, error) {
	params := url.Values{
		"symbol": {symbol},
		"limit":  {strconv.Itoa(window)},
		"order":  {"asc"},
	}

	u := fmt.Sprintf("%s/api/v1/candles?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.username != "" && c.password != "" {
		httpReq.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for symbol %q", models.ErrDataUnavailable, resp.StatusCode, symbol)
	}

	var body candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", models.ErrDataUnavailable, err)
	}

	if len(body.Data) < window {
		return nil, fmt.Errorf("%w: got %d candles for symbol %q, need %d",
			models.ErrDataUnavailable, len(body.Data), symbol, window)
	}

	return parseCandles(body.Data[:window])
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrFeedTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrFeedTimeout, err)
	}

	return fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
}

func parseCandles(raw []rawCandle) ([]models.Candle, error) {
	candles := make([]models.Candle, 0, len(raw))
	for _, r := range raw {
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timestamp %q", models.ErrDataUnavailable, r.Timestamp)
		}
		open, err := decimal.NewFromString(r.Open)
		if err != nil {
			return nil, fmt.Errorf("%w: bad open price %q", models.ErrDataUnavailable, r.Open)
		}
		high, err := decimal.NewFromString(r.High)
		if err != nil {
			return nil, fmt.Errorf("%w: bad high price %q", models.ErrDataUnavailable, r.High)
		}
		low, err := decimal.NewFromString(r.Low)
		if err != nil {
			return nil, fmt.Errorf("%w: bad low price %q", models.ErrDataUnavailable, r.Low)
		}
		closePrice, err := decimal.NewFromString(r.Close)
		if err != nil {
			return nil, fmt.Errorf("%w: bad close price %q", models.ErrDataUnavailable, r.Close)
		}
		candles = append(candles, models.Candle{
			Timestamp: ts.UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    r.Volume,
		})
	}
	return candles, nil
}

// --- OHLCV API response types ---

type candlesResponse struct {
	Data []rawCandle `json:"data"`
}

type rawCandle struct {
	Timestamp string `json:"timestamp"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    int64  `json:"volume"`
}

// Compile-time check that Client implements Feeder.
var _ models.Feeder = (*Client)(nil)
