package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// In-memory store implementations mirroring the conditional-update semantics
// of the postgres layer.

type memMarketStore struct {
	mu      sync.Mutex
	markets map[string]domain.Market
}

func newMemMarketStore() *memMarketStore {
	return &memMarketStore{markets: map[string]domain.Market{}}
}

func (m *memMarketStore) Create(_ context.Context, market domain.Market) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets[market.ID] = market
	return nil
}

func (m *memMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	market, ok := m.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return market, nil
}

func (m *memMarketStore) List(_ context.Context, status domain.MarketStatus, _ domain.ListOpts) ([]domain.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Market
	for _, market := range m.markets {
		if status == "" || market.Status == status {
			out = append(out, market)
		}
	}
	return out, nil
}

func (m *memMarketStore) ListExpiredActive(_ context.Context, now time.Time, _ int) ([]domain.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Market
	for _, market := range m.markets {
		if market.Status == domain.MarketStatusActive && market.Expired(now) {
			out = append(out, market)
		}
	}
	return out, nil
}

func (m *memMarketStore) Settle(_ context.Context, id string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	market, ok := m.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	if market.Status != domain.MarketStatusActive {
		return domain.ErrAlreadySettled
	}
	market.Status = domain.MarketStatusSettled
	market.SettledPrice = &price
	market.UpdatedAt = time.Now().UTC()
	m.markets[id] = market
	return nil
}

func (m *memMarketStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.markets)), nil
}

type memPositionStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	markets   *memMarketStore
}

func newMemPositionStore(markets *memMarketStore) *memPositionStore {
	return &memPositionStore{positions: map[string]domain.Position{}, markets: markets}
}

func (p *memPositionStore) Place(_ context.Context, pos domain.Position) error {
	p.markets.mu.Lock()
	defer p.markets.mu.Unlock()
	market, ok := p.markets.markets[pos.MarketID]
	if !ok {
		return domain.ErrNotFound
	}
	if market.Status != domain.MarketStatusActive {
		return domain.ErrMarketClosed
	}
	if pos.Side == domain.SideYes {
		market.YesPool += pos.Amount
	} else {
		market.NoPool += pos.Amount
	}
	p.markets.markets[pos.MarketID] = market

	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[pos.ID] = pos
	return nil
}

// place inserts a position without the active-market guard, for seeding
// fixtures on already-settled markets.
func (p *memPositionStore) place(pos domain.Position) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[pos.ID] = pos
	return nil
}

func (p *memPositionStore) GetByID(_ context.Context, id string) (domain.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (p *memPositionStore) ListByWallet(_ context.Context, wallet string, _ domain.ListOpts) ([]domain.PositionWithMarket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.PositionWithMarket
	for _, pos := range p.positions {
		if pos.Wallet != wallet {
			continue
		}
		market, _ := p.markets.GetByID(context.Background(), pos.MarketID)
		out = append(out, domain.PositionWithMarket{
			Position:     pos,
			AssetName:    market.AssetName,
			StrikePrice:  market.StrikePrice,
			MarketStatus: market.Status,
			ExpiryAt:     market.ExpiryAt,
			SettledPrice: market.SettledPrice,
		})
	}
	return out, nil
}

func (p *memPositionStore) ListByMarket(_ context.Context, marketID string, _ domain.ListOpts) ([]domain.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Position
	for _, pos := range p.positions {
		if pos.MarketID == marketID {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (p *memPositionStore) MarkClaimed(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if pos.Claimed {
		return domain.ErrInvalidState
	}
	pos.Claimed = true
	p.positions[id] = pos
	return nil
}

type memBalanceStore struct {
	mu       sync.Mutex
	balances map[string]float64 // wallet|token -> amount
}

func newMemBalanceStore() *memBalanceStore {
	return &memBalanceStore{balances: map[string]float64{}}
}

func balanceKey(wallet, token string) string { return wallet + "|" + token }

func (b *memBalanceStore) Get(_ context.Context, wallet, token string) (domain.Balance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	amount, ok := b.balances[balanceKey(wallet, token)]
	if !ok {
		return domain.Balance{}, domain.ErrNotFound
	}
	return domain.Balance{Wallet: wallet, Token: token, Amount: amount}, nil
}

func (b *memBalanceStore) Credit(_ context.Context, wallet, token string, amount float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[balanceKey(wallet, token)] += amount
	return nil
}

func (b *memBalanceStore) Debit(_ context.Context, wallet, token string, amount float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := balanceKey(wallet, token)
	if b.balances[key] < amount {
		return domain.ErrInsufficientFunds
	}
	b.balances[key] -= amount
	return nil
}

type memPriceStore struct {
	mu     sync.Mutex
	latest map[string]domain.PricePoint
}

func newMemPriceStore() *memPriceStore {
	return &memPriceStore{latest: map[string]domain.PricePoint{}}
}

func (p *memPriceStore) Insert(_ context.Context, pp domain.PricePoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest[pp.AssetName] = pp
	return nil
}

func (p *memPriceStore) Latest(_ context.Context, assetName string) (domain.PricePoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pp, ok := p.latest[assetName]
	if !ok {
		return domain.PricePoint{}, domain.ErrNotFound
	}
	return pp, nil
}

// Caches, bus, locks, audit, submitter.

type noopMarketCache struct{}

func (noopMarketCache) Set(context.Context, domain.Market) error { return nil }
func (noopMarketCache) Get(context.Context, string) (domain.Market, error) {
	return domain.Market{}, domain.ErrNotFound
}
func (noopMarketCache) Invalidate(context.Context, string) error { return nil }

type noopPriceCache struct{}

func (noopPriceCache) SetPrice(context.Context, string, float64, time.Time) error { return nil }
func (noopPriceCache) GetPrice(context.Context, string) (float64, time.Time, error) {
	return 0, time.Time{}, domain.ErrNotFound
}
func (noopPriceCache) GetPrices(context.Context, []string) (map[string]float64, error) {
	return map[string]float64{}, nil
}

type memLockManager struct {
	mu    sync.Mutex
	locks map[string]bool
}

func newMemLockManager() *memLockManager {
	return &memLockManager{locks: map[string]bool{}}
}

func (l *memLockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] {
		return nil, domain.ErrLockHeld
	}
	l.locks[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.locks, key)
	}, nil
}

type memBus struct {
	mu     sync.Mutex
	events map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{events: map[string][][]byte{}}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[channel] = append(b.events[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *memBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *memBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type memAuditStore struct {
	mu     sync.Mutex
	events []string
}

func (a *memAuditStore) Log(_ context.Context, event string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *memAuditStore) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (a *memAuditStore) ListBefore(context.Context, time.Time) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (a *memAuditStore) DeleteByID(context.Context, []int64) (int64, error) {
	return 0, nil
}

type fakeSubmitter struct {
	mu        sync.Mutex
	submitted []domain.ChainTransaction
}

func (f *fakeSubmitter) Submit(_ context.Context, tx domain.ChainTransaction) (domain.ChainTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx.ID = fmt.Sprintf("tx-%d", len(f.submitted)+1)
	tx.Hash = fmt.Sprintf("0xhash%d", len(f.submitted)+1)
	tx.Status = domain.TxStatusPending
	f.submitted = append(f.submitted, tx)
	return tx, nil
}

func (f *fakeSubmitter) count(kind domain.TxKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, tx := range f.submitted {
		if tx.Kind == kind {
			n++
		}
	}
	return n
}
