package engine

import (
	"context"
	"sync"

	"escrow-auction/internal/domain"
	"escrow-auction/pkg/logger"
)

// auctionState is everything mutable about one auction. Every mutating
// operation runs under mu, adapter calls included, so no caller ever
// observes a partially applied transition.
type auctionState struct {
	mu      sync.Mutex
	auction domain.Auction
	bids    []domain.Bid
	// index holds each bidder's outstanding escrowed amount. An entry
	// exists iff the bidder has exactly one recorded bid that has not
	// been consumed by settlement or withdrawal.
	index map[string]uint64
}

type Engine struct {
	mu       sync.RWMutex
	auctions map[uint64]*auctionState
	nextID   uint64

	custody       domain.AssetCustody
	escrow        domain.ValueEscrow
	sink          domain.NotificationSink
	auctionRepo   domain.AuctionRepository
	bidRepo       domain.BidRepository
	clock         domain.Clock
	escrowAccount string
	log           logger.Logger
}

func New(
	custody domain.AssetCustody,
	escrow domain.ValueEscrow,
	sink domain.NotificationSink,
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	clock domain.Clock,
	escrowAccount string,
	log logger.Logger,
) *Engine {
	return &Engine{
		auctions:      make(map[uint64]*auctionState),
		custody:       custody,
		escrow:        escrow,
		sink:          sink,
		auctionRepo:   auctionRepo,
		bidRepo:       bidRepo,
		clock:         clock,
		escrowAccount: escrowAccount,
		log:           log,
	}
}

// Restore rebuilds in-memory state from the durable store. The bidder index
// is replayed from the bid list minus entries already consumed by
// settlement or withdrawal.
func (e *Engine) Restore(ctx context.Context) error {
	auctions, err := e.auctionRepo.ListAuctions(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range auctions {
		state := &auctionState{
			auction: *a,
			index:   make(map[string]uint64),
		}

		bids, err := e.bidRepo.ListBids(ctx, a.ID)
		if err != nil {
			return err
		}
		for _, b := range bids {
			state.bids = append(state.bids, *b)
			state.index[b.Bidder] = b.Amount
		}

		withdrawn, err := e.bidRepo.ListWithdrawn(ctx, a.ID)
		if err != nil {
			return err
		}
		for _, bidder := range withdrawn {
			delete(state.index, bidder)
		}

		e.auctions[a.ID] = state
		if a.ID >= e.nextID {
			e.nextID = a.ID + 1
		}
	}

	e.log.Info("Engine state restored", "auctions", len(e.auctions))
	return nil
}

func (e *Engine) state(auctionID uint64) (*auctionState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.auctions[auctionID]
	return s, ok
}

func (e *Engine) publish(ctx context.Context, event *domain.AuctionEvent) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, event); err != nil {
		e.log.Error("Failed to publish event", "type", event.Type, "auction_id", event.AuctionID, "error", err)
	}
}
