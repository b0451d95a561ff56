// Package pricing defines the reference price oracle consumed by the order
// engine at placement time, plus the Yahoo Finance implementation used in
// production. The oracle is a required external collaborator: when it fails,
// market-order placement fails with it rather than falling back to a default
// price.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
)

// Oracle provides the current reference price for a ticker symbol, in cents.
type Oracle interface {
	GetReferencePrice(ctx context.Context, symbol string) (int64, error)
}

const (
	yahooBaseURL = "https://query1.finance.yahoo.com/v7/finance/quote"
	yahooUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
)

// yahooQuoteResponse is the top-level Yahoo Finance API response.
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []yahooQuoteResult `json:"result"`
	} `json:"quoteResponse"`
}

// yahooQuoteResult is a single quote result from Yahoo Finance.
type yahooQuoteResult struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

// YahooOracle fetches reference prices from Yahoo Finance.
type YahooOracle struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
}

// NewYahooOracle creates a new Yahoo Finance price oracle.
func NewYahooOracle(httpClient *http.Client) *YahooOracle {
	return &YahooOracle{httpClient: httpClient, baseURL: yahooBaseURL}
}

// GetReferencePrice fetches the regular market price for a single symbol.
func (o *YahooOracle) GetReferencePrice(ctx context.Context, symbol string) (int64, error) {
	url := o.baseURL + "?symbols=" + symbol

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var quoteResp yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteResp); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}

	for _, r := range quoteResp.QuoteResponse.Result {
		if r.Symbol != symbol {
			continue
		}
		if r.RegularMarketPrice <= 0 {
			return 0, fmt.Errorf("zero price returned for %s", symbol)
		}
		return int64(math.Round(r.RegularMarketPrice * 100)), nil
	}

	return 0, fmt.Errorf("symbol %s not found in response", symbol)
}
