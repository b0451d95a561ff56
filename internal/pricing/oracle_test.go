package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestOracle(ts *httptest.Server) *YahooOracle {
	oracle := NewYahooOracle(ts.Client())
	oracle.baseURL = ts.URL
	return oracle
}

func quoteBody(symbol string, price float64) string {
	return fmt.Sprintf(`{"quoteResponse":{"result":[{"symbol":%q,"regularMarketPrice":%v}]}}`, symbol, price)
}

func TestYahooOracle_GetReferencePrice(t *testing.T) {
	t.Run("converts price to cents", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("symbols"); got != "VTI" {
				t.Errorf("expected symbols=VTI, got %q", got)
			}
			fmt.Fprint(w, quoteBody("VTI", 245.67))
		}))
		defer ts.Close()

		price, err := newTestOracle(ts).GetReferencePrice(context.Background(), "VTI")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price != 24567 {
			t.Errorf("expected 24567 cents, got %d", price)
		}
	})

	t.Run("rounds sub-cent prices", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, quoteBody("DOGE", 0.08715))
		}))
		defer ts.Close()

		price, err := newTestOracle(ts).GetReferencePrice(context.Background(), "DOGE")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price != 9 {
			t.Errorf("expected 9 cents, got %d", price)
		}
	})

	t.Run("errors on upstream failure", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer ts.Close()

		if _, err := newTestOracle(ts).GetReferencePrice(context.Background(), "VTI"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("errors when symbol missing from response", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, quoteBody("AAPL", 190.10))
		}))
		defer ts.Close()

		if _, err := newTestOracle(ts).GetReferencePrice(context.Background(), "VTI"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("errors on zero price", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, quoteBody("VTI", 0))
		}))
		defer ts.Close()

		if _, err := newTestOracle(ts).GetReferencePrice(context.Background(), "VTI"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			fmt.Fprint(w, quoteBody("VTI", 245.67))
		}))
		defer ts.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := newTestOracle(ts).GetReferencePrice(ctx, "VTI"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
