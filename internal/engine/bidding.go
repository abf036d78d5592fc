package engine

import (
	"context"

	"github.com/google/uuid"

	"escrow-auction/internal/domain"
)

// PlaceBid records a single-shot bid. The bid's value units must already
// have arrived with the call; Credit attributes them to the engine's
// balance, it does not pull them.
func (e *Engine) PlaceBid(ctx context.Context, auctionID uint64, bidder string, amount uint64) error {
	state, ok := e.state(auctionID)
	if !ok {
		return domain.ErrAuctionNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if bidder == state.auction.Seller {
		return domain.ErrSellerCannotBid
	}
	if state.auction.Status == domain.AuctionSettled || !e.clock.Now().Before(state.auction.Deadline) {
		return domain.ErrAuctionEnded
	}
	if amount < state.auction.ReservePrice {
		return domain.ErrBelowReservePrice
	}
	if state.index[bidder] != 0 {
		return domain.ErrDuplicateBid
	}

	bid := domain.Bid{
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    amount,
		PlacedAt:  e.clock.Now(),
	}

	if err := e.bidRepo.SaveBid(ctx, &bid); err != nil {
		return err
	}

	e.escrow.Credit(bidder, amount)
	state.bids = append(state.bids, bid)
	state.index[bidder] = amount

	e.log.Info("Bid recorded", "auction_id", auctionID, "bidder", bidder, "amount", amount)

	e.publish(ctx, &domain.AuctionEvent{
		ID:        uuid.NewString(),
		Type:      domain.BidRecorded,
		AuctionID: auctionID,
		Account:   bidder,
		Amount:    amount,
		Timestamp: bid.PlacedAt,
	})

	return nil
}

// highestBid returns the winning bid under the earliest-wins tie-break, or
// false when no bid is recorded. Caller must hold state.mu.
func highestBid(state *auctionState) (domain.Bid, bool) {
	if len(state.bids) == 0 {
		return domain.Bid{}, false
	}

	best := state.bids[0]
	for _, b := range state.bids[1:] {
		if b.Amount > best.Amount {
			best = b
		}
	}
	return best, true
}
