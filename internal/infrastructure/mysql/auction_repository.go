package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"escrow-auction/internal/domain"
)

type MySQLAuctionRepository struct {
	db *sql.DB
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db}
}

func (r *MySQLAuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, seller, asset_registry, asset_token_id, deadline, reserve_price, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		auction.ID, auction.Seller, auction.Asset.Registry, auction.Asset.TokenID,
		auction.Deadline, auction.ReservePrice, int(auction.Status), auction.CreatedAt)
	return err
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID uint64) (*domain.Auction, error) {
	query := `
        SELECT id, seller, asset_registry, asset_token_id, deadline, reserve_price, status, created_at
        FROM auctions WHERE id = ?
    `

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		return nil, err
	}
	return auction, nil
}

func (r *MySQLAuctionRepository) UpdateAuctionStatus(ctx context.Context, auctionID uint64, status domain.AuctionStatus) error {
	query := `UPDATE auctions SET status = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, int(status), auctionID)
	return err
}

func (r *MySQLAuctionRepository) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT id, seller, asset_registry, asset_token_id, deadline, reserve_price, status, created_at
        FROM auctions ORDER BY id ASC
    `
	return r.queryAuctions(ctx, query)
}

func (r *MySQLAuctionRepository) ListOpenPastDeadline(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `
        SELECT id, seller, asset_registry, asset_token_id, deadline, reserve_price, status, created_at
        FROM auctions WHERE status = ? AND deadline <= ?
    `
	return r.queryAuctions(ctx, query, int(domain.AuctionOpen), now)
}

func (r *MySQLAuctionRepository) queryAuctions(ctx context.Context, query string, args ...interface{}) ([]*domain.Auction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}

	return auctions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status int

	err := row.Scan(&auction.ID, &auction.Seller, &auction.Asset.Registry, &auction.Asset.TokenID,
		&auction.Deadline, &auction.ReservePrice, &status, &auction.CreatedAt)
	if err != nil {
		return nil, err
	}

	auction.Status = domain.AuctionStatus(status)
	return &auction, nil
}
