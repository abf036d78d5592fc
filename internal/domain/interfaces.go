package domain

import (
	"context"
	"time"
)

// External adapters

// AssetCustody moves a uniquely identified asset between accounts. A
// returned error means no transfer happened; partial transfers are never
// observed.
type AssetCustody interface {
	Transfer(ctx context.Context, asset Asset, from, to string) error
}

// ValueEscrow holds value units attributed to the engine's balance. Credit
// records funds that arrived with a bid; PayOut moves held funds to a
// recipient and fails without moving anything.
type ValueEscrow interface {
	Credit(account string, amount uint64)
	PayOut(ctx context.Context, account string, amount uint64) error
}

// NotificationSink receives fire-and-forget lifecycle events. Sink errors
// are logged by implementations, never surfaced to engine callers.
type NotificationSink interface {
	Publish(ctx context.Context, event *AuctionEvent) error
}

// Repository interfaces
type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID uint64) (*Auction, error)
	UpdateAuctionStatus(ctx context.Context, auctionID uint64, status AuctionStatus) error
	ListAuctions(ctx context.Context) ([]*Auction, error)
	ListOpenPastDeadline(ctx context.Context, now time.Time) ([]*Auction, error)
}

type BidRepository interface {
	SaveBid(ctx context.Context, bid *Bid) error
	ListBids(ctx context.Context, auctionID uint64) ([]*Bid, error)
	MarkWithdrawn(ctx context.Context, auctionID uint64, bidder string) error
	ListWithdrawn(ctx context.Context, auctionID uint64) ([]string, error)
}

// Cache interfaces
type AuctionStatusCache interface {
	SetAuctionStatus(ctx context.Context, auctionID uint64, status AuctionStatus) error
	GetAuctionStatus(ctx context.Context, auctionID uint64) (AuctionStatus, bool, error)
}

// Event interfaces
type EventSubscriber interface {
	SubscribeToAuctionEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *AuctionEvent) error

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// Clock supplies the engine's notion of now. Deadlines are evaluated
// against it on every call; the engine never sleeps or sets timers.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	ClientID() string
	AuctionID() uint64
}

type ConnectionManager interface {
	RegisterConnection(clientID string, auctionID uint64, conn WebSocketConnection) error
	UnregisterConnection(clientID string, auctionID uint64) error
	BroadcastToAuction(auctionID uint64, message interface{}) error
	CloseAndUnregisterConnections(auctionID uint64) error
}
