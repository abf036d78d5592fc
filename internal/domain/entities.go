package domain

import (
	"fmt"
	"time"
)

// Asset identifies a unique escrowed item: the custody registry that holds
// it plus the registry-local token identifier.
type Asset struct {
	Registry string `json:"registry"`
	TokenID  string `json:"token_id"`
}

func (a Asset) IsZero() bool {
	return a.Registry == "" && a.TokenID == ""
}

func (a Asset) String() string {
	return fmt.Sprintf("%s/%s", a.Registry, a.TokenID)
}

type Auction struct {
	ID           uint64
	Seller       string
	Asset        Asset
	Deadline     time.Time
	ReservePrice uint64
	Status       AuctionStatus
	CreatedAt    time.Time
}

type AuctionStatus int

const (
	AuctionOpen AuctionStatus = iota
	AuctionClosed
	AuctionSettled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionOpen:
		return "open"
	case AuctionClosed:
		return "closed"
	case AuctionSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Bid is append-only: once recorded it is never mutated or removed.
// Settlement and withdrawal consume the bidder index, not the bid list.
type Bid struct {
	AuctionID uint64
	Bidder    string
	Amount    uint64
	PlacedAt  time.Time
}

type AuctionEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AuctionID uint64    `json:"auction_id"`
	Account   string    `json:"account,omitempty"`
	Amount    uint64    `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type EventType string

const (
	AuctionDeposited EventType = "auction_deposited"
	BidRecorded      EventType = "bid_recorded"
	AuctionClosedOut EventType = "auction_closed"
	AuctionSettledUp EventType = "auction_settled"
	BidWithdrawn     EventType = "bid_withdrawn"
)
