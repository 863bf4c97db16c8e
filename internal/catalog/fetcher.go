package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	appconfig "tradeflow/config"
	"tradeflow/logger"
	"tradeflow/models"
)

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}

// Fetcher pulls the three public instrument lists and rebuilds the product
// catalog wholesale. Requests across the endpoints are paced by a shared
// limiter.
type Fetcher struct {
	config     *appconfig.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

func NewFetcher(cfg *appconfig.Config) *Fetcher {
	rl := cfg.Catalog.RateLimit
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}

	timeout := cfg.Reader.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Fetcher{
		config: cfg,
		httpClient: &http.Client{
			Transport: userAgentTransport{agent: "tradeflow/1.0", base: http.DefaultTransport},
			Timeout:   timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}
}

// Fetch retrieves the spot, swap and futures instrument lists, positionally
// ordered, and builds a fresh catalog from them.
func (f *Fetcher) Fetch(ctx context.Context) (*models.Catalog, error) {
	spot, err := f.fetchInstruments(ctx, f.config.Catalog.SpotURL)
	if err != nil {
		return nil, fmt.Errorf("fetch spot instruments: %w", err)
	}
	swap, err := f.fetchInstruments(ctx, f.config.Catalog.SwapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch swap instruments: %w", err)
	}
	futures, err := f.fetchInstruments(ctx, f.config.Catalog.FuturesURL)
	if err != nil {
		return nil, fmt.Errorf("fetch futures instruments: %w", err)
	}

	catalog := Build(spot, swap, futures)
	f.log.WithComponent("catalog_fetcher").WithFields(logger.Fields{
		"products": len(catalog.Products),
		"specs":    len(catalog.Specs),
	}).Info("catalog rebuilt")
	logger.IncrementCatalogRefresh()
	return catalog, nil
}

func (f *Fetcher) fetchInstruments(ctx context.Context, url string) ([]models.Instrument, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build instruments request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch instruments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instruments endpoint returned status %d", resp.StatusCode)
	}

	var instruments []models.Instrument
	if err := json.NewDecoder(resp.Body).Decode(&instruments); err != nil {
		return nil, fmt.Errorf("decode instruments: %w", err)
	}
	return instruments, nil
}

// Run refreshes the catalog periodically until the context is cancelled.
// Each successful refresh swaps the classifier's catalog and persists a
// snapshot; failures keep the previous catalog in place.
func (f *Fetcher) Run(ctx context.Context, classifier *Classifier, store *Store) {
	interval := f.config.Catalog.RefreshInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	log := f.log.WithComponent("catalog_fetcher").WithFields(logger.Fields{"interval": interval.String()})
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("catalog refresh loop stopped")
			return
		case <-ticker.C:
			catalog, err := f.Fetch(ctx)
			if err != nil {
				log.WithError(err).Warn("catalog refresh failed, keeping previous catalog")
				continue
			}
			classifier.SetCatalog(catalog)
			if store != nil {
				if err := store.Save(catalog); err != nil {
					log.WithError(err).Warn("failed to persist catalog snapshot")
				}
			}
		}
	}
}
