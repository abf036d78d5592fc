package engine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"escrow-auction/internal/domain"
	"escrow-auction/internal/engine"
	"escrow-auction/internal/escrow"
	"escrow-auction/internal/infrastructure/custody"
)

const escrowAccount = "escrow"

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memAuctionRepo struct {
	mu       sync.Mutex
	auctions map[uint64]domain.Auction
}

func newMemAuctionRepo() *memAuctionRepo {
	return &memAuctionRepo{auctions: make(map[uint64]domain.Auction)}
}

func (r *memAuctionRepo) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.ID] = *auction
	return nil
}

func (r *memAuctionRepo) GetAuction(ctx context.Context, auctionID uint64) (*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %d not stored", auctionID)
	}
	return &a, nil
}

func (r *memAuctionRepo) UpdateAuctionStatus(ctx context.Context, auctionID uint64, status domain.AuctionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("auction %d not stored", auctionID)
	}
	a.Status = status
	r.auctions[auctionID] = a
	return nil
}

func (r *memAuctionRepo) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Auction
	for i := uint64(0); i < uint64(len(r.auctions)); i++ {
		a := r.auctions[i]
		out = append(out, &a)
	}
	return out, nil
}

func (r *memAuctionRepo) ListOpenPastDeadline(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.AuctionOpen && !now.Before(a.Deadline) {
			c := a
			out = append(out, &c)
		}
	}
	return out, nil
}

type memBidRepo struct {
	mu        sync.Mutex
	bids      map[uint64][]domain.Bid
	withdrawn map[uint64][]string
}

func newMemBidRepo() *memBidRepo {
	return &memBidRepo{
		bids:      make(map[uint64][]domain.Bid),
		withdrawn: make(map[uint64][]string),
	}
}

func (r *memBidRepo) SaveBid(ctx context.Context, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], *bid)
	return nil
}

func (r *memBidRepo) ListBids(ctx context.Context, auctionID uint64) ([]*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Bid
	for i := range r.bids[auctionID] {
		b := r.bids[auctionID][i]
		out = append(out, &b)
	}
	return out, nil
}

func (r *memBidRepo) MarkWithdrawn(ctx context.Context, auctionID uint64, bidder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawn[auctionID] = append(r.withdrawn[auctionID], bidder)
	return nil
}

func (r *memBidRepo) ListWithdrawn(ctx context.Context, auctionID uint64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.withdrawn[auctionID]...), nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuctionEvent
}

func (s *recordingSink) Publish(ctx context.Context, event *domain.AuctionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *recordingSink) ofType(t domain.EventType) []domain.AuctionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuctionEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// flakyCustody fails every transfer while tripped.
type flakyCustody struct {
	inner domain.AssetCustody
	fail  bool
}

func (c *flakyCustody) Transfer(ctx context.Context, asset domain.Asset, from, to string) error {
	if c.fail {
		return fmt.Errorf("custody unavailable")
	}
	return c.inner.Transfer(ctx, asset, from, to)
}

// flakyEscrow fails payouts while tripped; credits always land.
type flakyEscrow struct {
	*escrow.Ledger
	failPayOut bool
}

func (e *flakyEscrow) PayOut(ctx context.Context, account string, amount uint64) error {
	if e.failPayOut {
		return fmt.Errorf("value transfer rejected")
	}
	return e.Ledger.PayOut(ctx, account, amount)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Fatal(msg string, keysAndValues ...interface{}) {}

type testEnv struct {
	eng         *engine.Engine
	custody     *custody.Registry
	flakyCust   *flakyCustody
	ledger      *escrow.Ledger
	flakyEscrow *flakyEscrow
	sink        *recordingSink
	clock       *manualClock
	auctionRepo *memAuctionRepo
	bidRepo     *memBidRepo
}

func newTestEnv() *testEnv {
	reg := custody.NewRegistry()
	ledger := escrow.NewLedger()
	env := &testEnv{
		custody:     reg,
		flakyCust:   &flakyCustody{inner: reg},
		ledger:      ledger,
		flakyEscrow: &flakyEscrow{Ledger: ledger},
		sink:        &recordingSink{},
		clock:       newManualClock(),
		auctionRepo: newMemAuctionRepo(),
		bidRepo:     newMemBidRepo(),
	}
	env.eng = engine.New(
		env.flakyCust,
		env.flakyEscrow,
		env.sink,
		env.auctionRepo,
		env.bidRepo,
		env.clock,
		escrowAccount,
		nopLogger{},
	)
	return env
}

func (env *testEnv) mustDeposit(t *testing.T, asset domain.Asset, offset time.Duration, reserve uint64, seller string) uint64 {
	t.Helper()
	env.custody.Mint(asset, seller)
	id, err := env.eng.Deposit(context.Background(), asset, offset, reserve, seller)
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	return id
}

func assetX() domain.Asset {
	return domain.Asset{Registry: "vault-1", TokenID: "x"}
}

func TestConcurrentDistinctBidders(t *testing.T) {
	env := newTestEnv()
	id := env.mustDeposit(t, assetX(), 24*time.Hour, 100, "seller")

	const bidders = 16
	var wg sync.WaitGroup
	errs := make([]error, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.eng.PlaceBid(context.Background(), id, fmt.Sprintf("bidder-%d", i), uint64(100+i))
		}(i)
	}
	wg.Wait()

	var total uint64
	for i, err := range errs {
		if err != nil {
			t.Fatalf("bid %d failed: %v", i, err)
		}
		total += uint64(100 + i)
	}

	if got := len(env.eng.GetAuctionBids(id)); got != bidders {
		t.Fatalf("expected %d bids, got %d", bidders, got)
	}
	if held := env.ledger.TotalHeld(); held != total {
		t.Fatalf("expected %d held, got %d", total, held)
	}
}

func TestConcurrentSameBidderAcceptsExactlyOne(t *testing.T) {
	env := newTestEnv()
	id := env.mustDeposit(t, assetX(), 24*time.Hour, 100, "seller")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.eng.PlaceBid(context.Background(), id, "racer", 150)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else if err != domain.ErrDuplicateBid {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 accepted bid, got %d", successes)
	}
	if amount := env.eng.GetBidderAmount(id, "racer"); amount != 150 {
		t.Fatalf("expected index amount 150, got %d", amount)
	}
	if held := env.ledger.TotalHeld(); held != 150 {
		t.Fatalf("expected 150 held, got %d", held)
	}
}

func TestRestoreRebuildsState(t *testing.T) {
	env := newTestEnv()
	id := env.mustDeposit(t, assetX(), 24*time.Hour, 100, "seller")

	if err := env.eng.PlaceBid(context.Background(), id, "b1", 150); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	if err := env.eng.PlaceBid(context.Background(), id, "b2", 300); err != nil {
		t.Fatalf("bid failed: %v", err)
	}

	env.clock.Advance(24*time.Hour + time.Second)
	if err := env.eng.Withdraw(context.Background(), id, "b1"); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	restored := engine.New(
		env.flakyCust,
		env.flakyEscrow,
		env.sink,
		env.auctionRepo,
		env.bidRepo,
		env.clock,
		escrowAccount,
		nopLogger{},
	)
	if err := restored.Restore(context.Background()); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if count := restored.AuctionCount(); count != 1 {
		t.Fatalf("expected 1 auction after restore, got %d", count)
	}
	if got := len(restored.GetAuctionBids(id)); got != 2 {
		t.Fatalf("expected 2 bids after restore, got %d", got)
	}
	if amount := restored.GetBidderAmount(id, "b1"); amount != 0 {
		t.Fatalf("withdrawn bidder should have zero amount, got %d", amount)
	}
	if amount := restored.GetBidderAmount(id, "b2"); amount != 300 {
		t.Fatalf("expected 300 for b2 after restore, got %d", amount)
	}

	// Identifier assignment continues past restored auctions.
	next := domain.Asset{Registry: "vault-1", TokenID: "y"}
	env.custody.Mint(next, "seller")
	nextID, err := restored.Deposit(context.Background(), next, time.Hour, 10, "seller")
	if err != nil {
		t.Fatalf("deposit after restore failed: %v", err)
	}
	if nextID != 1 {
		t.Fatalf("expected next id 1, got %d", nextID)
	}
}

func TestRestoredSettledAuctionStaysSettled(t *testing.T) {
	env := newTestEnv()
	id := env.mustDeposit(t, assetX(), time.Hour, 100, "seller")
	if err := env.eng.PlaceBid(context.Background(), id, "b1", 150); err != nil {
		t.Fatalf("bid failed: %v", err)
	}

	env.clock.Advance(2 * time.Hour)
	if err := env.eng.SellerEndAuction(context.Background(), id, "seller"); err != nil {
		t.Fatalf("settlement failed: %v", err)
	}

	restored := engine.New(env.flakyCust, env.flakyEscrow, env.sink, env.auctionRepo, env.bidRepo, env.clock, escrowAccount, nopLogger{})
	if err := restored.Restore(context.Background()); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if err := restored.SellerEndAuction(context.Background(), id, "seller"); err != domain.ErrAlreadySettled {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
	if amount := restored.GetBidderAmount(id, "b1"); amount != 0 {
		t.Fatalf("winning amount should stay consumed after restore, got %d", amount)
	}
}
