package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// watchChannels are the bus channels the watcher listens on. Price ticks are
// deliberately excluded; they arrive every few seconds and would drown any
// operator channel.
var watchChannels = []string{"markets", "trades", "transactions"}

// Watcher bridges the engine's event bus to the notifier. It subscribes to
// the event channels and turns each event into an operator alert; the
// notifier's event filter decides which ones actually go out.
type Watcher struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewWatcher creates a Watcher.
func NewWatcher(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_watcher")),
	}
}

// Run subscribes to the event channels and forwards events until the context
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	merged := make(chan []byte, 64)
	for _, ch := range watchChannels {
		msgs, err := w.bus.Subscribe(ctx, ch)
		if err != nil {
			return fmt.Errorf("notify: subscribe %s: %w", ch, err)
		}
		go func() {
			for msg := range msgs {
				select {
				case merged <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	w.logger.Info("notify watcher started")
	defer w.logger.Info("notify watcher stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-merged:
			w.handle(ctx, msg)
		}
	}
}

// handle decodes one event payload and forwards it to the notifier.
func (w *Watcher) handle(ctx context.Context, payload []byte) {
	var evt map[string]any
	if err := json.Unmarshal(payload, &evt); err != nil {
		w.logger.Warn("malformed event payload", slog.String("error", err.Error()))
		return
	}
	name, _ := evt["event"].(string)
	if name == "" {
		return
	}

	title, message := formatEvent(name, evt)
	if err := w.notifier.Notify(ctx, name, title, message); err != nil {
		w.logger.WarnContext(ctx, "notify failed",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
	}
}

// formatEvent renders an event into a short title and body for chat
// channels. Unknown events fall back to the raw field dump.
func formatEvent(name string, evt map[string]any) (string, string) {
	switch name {
	case "market_created":
		return "Market created",
			fmt.Sprintf("%v above %v, expires %v (id %v)",
				evt["asset_name"], evt["strike_price"], evt["expiry_at"], evt["market_id"])
	case "market_settled":
		return "Market settled",
			fmt.Sprintf("%v settled at %v vs strike %v (pools yes=%v no=%v, id %v)",
				evt["asset_name"], evt["settled_price"], evt["strike_price"],
				evt["yes_pool"], evt["no_pool"], evt["market_id"])
	case "trade_placed":
		return "Trade placed",
			fmt.Sprintf("%v staked %v on %v (market %v)",
				evt["wallet"], evt["amount"], evt["side"], evt["market_id"])
	case "claim_paid":
		return "Claim paid",
			fmt.Sprintf("%v claimed %v (market %v)",
				evt["wallet"], evt["payout"], evt["market_id"])
	case "transaction_failed":
		return "Transaction failed",
			fmt.Sprintf("%v tx %v for %v (amount %v)",
				evt["tx_type"], evt["tx_hash"], evt["wallet"], evt["amount"])
	default:
		return name, fmt.Sprintf("%v", evt)
	}
}
