package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedSourceBoundedWalk(t *testing.T) {
	src := NewSimulatedSource(0.02, 7)
	ctx := context.Background()

	prev, err := src.Price(ctx, "BTC")
	require.NoError(t, err)
	assert.Positive(t, prev)

	for i := 0; i < 200; i++ {
		next, err := src.Price(ctx, "BTC")
		require.NoError(t, err)
		assert.Positive(t, next)

		// Each step moves at most the configured fraction.
		ratio := next / prev
		assert.GreaterOrEqual(t, ratio, 0.98-1e-9)
		assert.LessOrEqual(t, ratio, 1.02+1e-9)
		prev = next
	}
}

func TestSimulatedSourceDeterministicWithSeed(t *testing.T) {
	ctx := context.Background()
	a := NewSimulatedSource(0.01, 99)
	b := NewSimulatedSource(0.01, 99)

	for i := 0; i < 20; i++ {
		pa, err := a.Price(ctx, "ETH")
		require.NoError(t, err)
		pb, err := b.Price(ctx, "ETH")
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
	}
}

func TestSimulatedSourceTracksAssetsIndependently(t *testing.T) {
	src := NewSimulatedSource(0.01, 1)
	ctx := context.Background()

	btc, err := src.Price(ctx, "BTC")
	require.NoError(t, err)
	unknown, err := src.Price(ctx, "XYZ")
	require.NoError(t, err)

	assert.Greater(t, btc, 1000.0, "BTC starts near its seed price")
	assert.Less(t, unknown, 200.0, "unknown assets start at the default")
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC", r.URL.Query().Get("asset"))
		_ = json.NewEncoder(w).Encode(map[string]float64{"price": 64321.5})
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	price, err := src.Price(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 64321.5, price)
}

func TestHTTPSourceErrors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL).Price(context.Background(), "BTC")
		assert.Error(t, err)
	})

	t.Run("non-positive price", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]float64{"price": 0})
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL).Price(context.Background(), "BTC")
		assert.Error(t, err)
	})
}
