package domain

import (
	"errors"
	"fmt"
)

// Deposit-time validation.
var (
	ErrInvalidAsset     = errors.New("invalid asset")
	ErrDeadlineInPast   = errors.New("deadline not in the future")
	ErrZeroReservePrice = errors.New("reserve price must be positive")
)

// Any operation.
var ErrAuctionNotFound = errors.New("auction not found")

// Bid-time validation.
var (
	ErrSellerCannotBid   = errors.New("seller cannot bid on own auction")
	ErrAuctionEnded      = errors.New("auction has ended")
	ErrBelowReservePrice = errors.New("bid below reserve price")
	ErrDuplicateBid      = errors.New("bidder already has a recorded bid")
)

// Settlement/withdraw-time validation.
var (
	ErrAuctionNotEnded          = errors.New("auction has not ended")
	ErrNotSeller                = errors.New("caller is not the seller")
	ErrAlreadySettled           = errors.New("auction already settled")
	ErrNoBidToWithdraw          = errors.New("no bid to withdraw")
	ErrCannotWithdrawWinningBid = errors.New("winning bid is locked until settlement")
)

// Adapter failures. Always terminal for the current call, never partially
// applied; the wrapped cause is the adapter's own error.
var (
	ErrAssetTransferFailed = errors.New("asset transfer failed")
	ErrValueTransferFailed = errors.New("value transfer failed")
)

func AssetTransferError(cause error) error {
	return fmt.Errorf("%w: %v", ErrAssetTransferFailed, cause)
}

func ValueTransferError(cause error) error {
	return fmt.Errorf("%w: %v", ErrValueTransferFailed, cause)
}
