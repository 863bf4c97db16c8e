package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "tradeflow/config"
	"tradeflow/models"
)

func instrumentsServer(t *testing.T) *httptest.Server {
	t.Helper()
	spot, swap, futures := sampleLists()
	mux := http.NewServeMux()
	serve := func(list []models.Instrument) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewEncoder(w).Encode(list); err != nil {
				t.Errorf("encode: %v", err)
			}
		}
	}
	mux.HandleFunc("/api/spot/v3/instruments", serve(spot))
	mux.HandleFunc("/api/swap/v3/instruments", serve(swap))
	mux.HandleFunc("/api/futures/v3/instruments", serve(futures))
	return httptest.NewServer(mux)
}

func TestFetcherFetch(t *testing.T) {
	srv := instrumentsServer(t)
	defer srv.Close()

	cfg := &appconfig.Config{
		Reader: appconfig.ReaderConfig{Timeout: time.Second},
		Catalog: appconfig.CatalogConfig{
			SpotURL:    srv.URL + "/api/spot/v3/instruments",
			SwapURL:    srv.URL + "/api/swap/v3/instruments",
			FuturesURL: srv.URL + "/api/futures/v3/instruments",
			RateLimit:  appconfig.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 3},
		},
	}

	catalog, err := NewFetcher(cfg).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if catalog.Products["BTCUSD"] != "BTC-USDT" {
		t.Errorf("unexpected products: %+v", catalog.Products)
	}
	if catalog.Specs["BTC-USD-SWAP"] != 100 {
		t.Errorf("unexpected specs: %+v", catalog.Specs)
	}
}

func TestFetcherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &appconfig.Config{
		Reader: appconfig.ReaderConfig{Timeout: time.Second},
		Catalog: appconfig.CatalogConfig{
			SpotURL:    srv.URL,
			SwapURL:    srv.URL,
			FuturesURL: srv.URL,
			RateLimit:  appconfig.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 3},
		},
	}

	if _, err := NewFetcher(cfg).Fetch(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
