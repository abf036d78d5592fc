package engine

import (
	"context"

	"github.com/google/uuid"

	"escrow-auction/internal/domain"
)

// SellerEndAuction finalizes a closed auction. With a highest bid the asset
// goes to the winner and the winning amount to the seller; with no bids the
// seller reclaims the asset. Either way the auction is settled exactly
// once. A transfer failure leaves the auction unsettled so the call can be
// retried.
func (e *Engine) SellerEndAuction(ctx context.Context, auctionID uint64, caller string) error {
	state, ok := e.state(auctionID)
	if !ok {
		return domain.ErrAuctionNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if e.clock.Now().Before(state.auction.Deadline) {
		return domain.ErrAuctionNotEnded
	}
	if caller != state.auction.Seller {
		return domain.ErrNotSeller
	}
	if state.auction.Status == domain.AuctionSettled {
		return domain.ErrAlreadySettled
	}

	winner, hasWinner := highestBid(state)

	if !hasWinner {
		// No qualifying bid: the seller reclaims the asset and the
		// auction settles with no winner.
		if err := e.custody.Transfer(ctx, state.auction.Asset, e.escrowAccount, state.auction.Seller); err != nil {
			return domain.AssetTransferError(err)
		}
		return e.markSettled(ctx, state, "", 0)
	}

	if err := e.custody.Transfer(ctx, state.auction.Asset, e.escrowAccount, winner.Bidder); err != nil {
		return domain.AssetTransferError(err)
	}

	if err := e.escrow.PayOut(ctx, state.auction.Seller, winner.Amount); err != nil {
		// Pull the asset back so the failed settlement is not observable.
		if rbErr := e.custody.Transfer(ctx, state.auction.Asset, winner.Bidder, e.escrowAccount); rbErr != nil {
			e.log.Error("Failed to reclaim asset after payout failure", "auction_id", auctionID, "winner", winner.Bidder, "error", rbErr)
		}
		return domain.ValueTransferError(err)
	}

	// The winning escrowed amount is consumed here; the winner can never
	// separately withdraw it.
	delete(state.index, winner.Bidder)
	if err := e.bidRepo.MarkWithdrawn(ctx, auctionID, winner.Bidder); err != nil {
		e.log.Error("Failed to persist winning bid consumption", "auction_id", auctionID, "winner", winner.Bidder, "error", err)
	}

	return e.markSettled(ctx, state, winner.Bidder, winner.Amount)
}

// markSettled flips the terminal status and records it durably. Caller
// must hold state.mu.
func (e *Engine) markSettled(ctx context.Context, state *auctionState, winner string, amount uint64) error {
	state.auction.Status = domain.AuctionSettled
	if err := e.auctionRepo.UpdateAuctionStatus(ctx, state.auction.ID, domain.AuctionSettled); err != nil {
		e.log.Error("Failed to persist settled status", "auction_id", state.auction.ID, "error", err)
	}

	e.log.Info("Auction settled", "auction_id", state.auction.ID, "winner", winner, "amount", amount)

	e.publish(ctx, &domain.AuctionEvent{
		ID:        uuid.NewString(),
		Type:      domain.AuctionSettledUp,
		AuctionID: state.auction.ID,
		Account:   winner,
		Amount:    amount,
		Timestamp: e.clock.Now(),
	})

	return nil
}

// Withdraw returns a losing bidder's escrowed amount. The index entry is
// zeroed with the payout, so a repeat call fails instead of paying twice.
func (e *Engine) Withdraw(ctx context.Context, auctionID uint64, caller string) error {
	state, ok := e.state(auctionID)
	if !ok {
		return domain.ErrAuctionNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if e.clock.Now().Before(state.auction.Deadline) {
		return domain.ErrAuctionNotEnded
	}

	amount := state.index[caller]
	if amount == 0 {
		return domain.ErrNoBidToWithdraw
	}

	// Until settlement decides the outcome the highest bid stays locked.
	if state.auction.Status != domain.AuctionSettled {
		if winner, ok := highestBid(state); ok && winner.Bidder == caller {
			return domain.ErrCannotWithdrawWinningBid
		}
	}

	if err := e.escrow.PayOut(ctx, caller, amount); err != nil {
		return domain.ValueTransferError(err)
	}

	delete(state.index, caller)
	if err := e.bidRepo.MarkWithdrawn(ctx, auctionID, caller); err != nil {
		e.log.Error("Failed to persist withdrawal", "auction_id", auctionID, "bidder", caller, "error", err)
	}

	e.log.Info("Bid withdrawn", "auction_id", auctionID, "bidder", caller, "amount", amount)

	e.publish(ctx, &domain.AuctionEvent{
		ID:        uuid.NewString(),
		Type:      domain.BidWithdrawn,
		AuctionID: auctionID,
		Account:   caller,
		Amount:    amount,
		Timestamp: e.clock.Now(),
	})

	return nil
}
