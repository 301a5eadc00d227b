// Package feed polls a price source and records observations for the assets
// markets are written against. The recorded prices are what settlement uses.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// PriceSource supplies the current price for an asset.
type PriceSource interface {
	Price(ctx context.Context, assetName string) (float64, error)
}

// startingPrices seed the simulated walk for well-known assets; anything else
// starts at 100.
var startingPrices = map[string]float64{
	"BTC": 65000,
	"ETH": 3200,
	"SOL": 150,
	"ANT": 42,
}

// SimulatedSource produces a bounded random walk per asset. Each call moves
// the price by at most volatility (a fraction of the current price) in either
// direction, floored at one cent.
type SimulatedSource struct {
	volatility float64

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewSimulatedSource creates a SimulatedSource. A zero seed is time-seeded.
func NewSimulatedSource(volatility float64, seed int64) *SimulatedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedSource{
		volatility: volatility,
		rng:        rand.New(rand.NewSource(seed)),
		prices:     map[string]float64{},
	}
}

// Price returns the next step of the asset's random walk.
func (s *SimulatedSource) Price(_ context.Context, assetName string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.prices[assetName]
	if !ok {
		current, ok = startingPrices[assetName]
		if !ok {
			current = 100
		}
	}

	step := (s.rng.Float64()*2 - 1) * s.volatility
	next := current * (1 + step)
	if next < 0.01 {
		next = 0.01
	}
	s.prices[assetName] = next
	return next, nil
}

// HTTPSource fetches prices from a JSON endpoint. The endpoint is expected to
// respond to GET {base}?asset={name} with {"price": <number>}.
type HTTPSource struct {
	base   string
	client *http.Client
}

// NewHTTPSource creates an HTTPSource for the given base URL.
func NewHTTPSource(base string) *HTTPSource {
	return &HTTPSource{
		base:   base,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Price fetches the current price for an asset.
func (s *HTTPSource) Price(ctx context.Context, assetName string) (float64, error) {
	u := fmt.Sprintf("%s?asset=%s", s.base, url.QueryEscape(assetName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("feed: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("feed: fetch %s: %w", assetName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed: fetch %s: unexpected status %d", assetName, resp.StatusCode)
	}

	var body struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("feed: decode %s: %w", assetName, err)
	}
	if body.Price <= 0 {
		return 0, fmt.Errorf("feed: fetch %s: non-positive price %v", assetName, body.Price)
	}
	return body.Price, nil
}
