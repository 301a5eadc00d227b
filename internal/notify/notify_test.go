package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	if r.err != nil {
		return r.err
	}
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingSender) Name() string { return r.name }

func TestNotifyFiltersEvents(t *testing.T) {
	s := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{s}, []string{"market_settled"}, discardLogger())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, "market_settled", "settled", "body"))
	require.NoError(t, n.Notify(ctx, "price_tick", "tick", "body"))

	assert.Equal(t, []string{"settled"}, s.titles)
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	s := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{s}, nil, discardLogger())

	require.NoError(t, n.Notify(context.Background(), "anything", "a", "b"))
	assert.Len(t, s.titles, 1)
}

func TestNotifyDeliversPastFailedSender(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), "market_settled", "t", "m")
	assert.Error(t, err)
	assert.Len(t, good.titles, 1, "remaining senders still deliver")
}

func TestDiscordSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "Market settled", "BTC at 51000"))
	assert.Equal(t, "**Market settled**\nBTC at 51000", got["content"])
}

func TestDiscordSenderBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	assert.ErrorContains(t, err, "unexpected status 429")
}

func TestFormatEvent(t *testing.T) {
	title, msg := formatEvent("market_settled", map[string]any{
		"asset_name": "BTC", "settled_price": 51000.0, "strike_price": 50000.0,
		"yes_pool": 120.0, "no_pool": 80.0, "market_id": "m1",
	})
	assert.Equal(t, "Market settled", title)
	assert.Contains(t, msg, "BTC settled at 51000")
	assert.Contains(t, msg, "strike 50000")

	title, _ = formatEvent("mystery_event", map[string]any{"x": 1})
	assert.Equal(t, "mystery_event", title)
}
