package mysql

import (
	"context"
	"database/sql"
	"time"

	"escrow-auction/internal/domain"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) SaveBid(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (auction_id, bidder, amount, placed_at, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		bid.AuctionID, bid.Bidder, bid.Amount, bid.PlacedAt, time.Now())
	return err
}

func (r *MySQLBidRepository) ListBids(ctx context.Context, auctionID uint64) ([]*domain.Bid, error) {
	query := `
        SELECT auction_id, bidder, amount, placed_at
        FROM bids
        WHERE auction_id = ?
        ORDER BY placed_at ASC, id ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		if err := rows.Scan(&bid.AuctionID, &bid.Bidder, &bid.Amount, &bid.PlacedAt); err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}

	return bids, rows.Err()
}

// MarkWithdrawn records that a bidder's escrowed amount was consumed, by
// withdrawal or by settlement. Replay subtracts these from the bidder index.
func (r *MySQLBidRepository) MarkWithdrawn(ctx context.Context, auctionID uint64, bidder string) error {
	query := `
        INSERT INTO bid_withdrawals (auction_id, bidder, withdrawn_at)
        VALUES (?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query, auctionID, bidder, time.Now())
	return err
}

func (r *MySQLBidRepository) ListWithdrawn(ctx context.Context, auctionID uint64) ([]string, error) {
	query := `SELECT bidder FROM bid_withdrawals WHERE auction_id = ?`

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bidders []string
	for rows.Next() {
		var bidder string
		if err := rows.Scan(&bidder); err != nil {
			return nil, err
		}
		bidders = append(bidders, bidder)
	}

	return bidders, rows.Err()
}
