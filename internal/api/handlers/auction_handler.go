package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"escrow-auction/internal/domain"
	"escrow-auction/internal/engine"
	"escrow-auction/pkg/logger"
)

type AuctionHandler struct {
	engine *engine.Engine
	log    logger.Logger
}

func NewAuctionHandler(eng *engine.Engine, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		engine: eng,
		log:    log,
	}
}

type DepositRequest struct {
	Asset          domain.Asset `json:"asset"`
	DeadlineOffset string       `json:"deadline_offset"`
	ReservePrice   uint64       `json:"reserve_price"`
	Seller         string       `json:"seller"`
}

type DepositResponse struct {
	AuctionID uint64       `json:"auction_id"`
	Asset     domain.Asset `json:"asset"`
	Deadline  time.Time    `json:"deadline"`
	Status    string       `json:"status"`
}

func (h *AuctionHandler) Deposit(c echo.Context) error {
	var req DepositRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	offset, err := time.ParseDuration(req.DeadlineOffset)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid deadline_offset"))
	}

	auctionID, err := h.engine.Deposit(c.Request().Context(), req.Asset, offset, req.ReservePrice, req.Seller)
	if err != nil {
		h.log.Error("Deposit failed", "seller", req.Seller, "asset", req.Asset.String(), "error", err)
		return h.writeError(c, err)
	}

	auction, _ := h.engine.GetAuction(auctionID)
	return c.JSON(http.StatusCreated, DepositResponse{
		AuctionID: auctionID,
		Asset:     auction.Asset,
		Deadline:  auction.Deadline,
		Status:    auction.Status.String(),
	})
}

type AuctionResponse struct {
	AuctionID    uint64       `json:"auction_id"`
	Seller       string       `json:"seller"`
	Asset        domain.Asset `json:"asset"`
	Deadline     time.Time    `json:"deadline"`
	ReservePrice uint64       `json:"reserve_price"`
	Status       string       `json:"status"`
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auctionID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	auction, ok := h.engine.GetAuction(auctionID)
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody("auction not found"))
	}

	return c.JSON(http.StatusOK, AuctionResponse{
		AuctionID:    auction.ID,
		Seller:       auction.Seller,
		Asset:        auction.Asset,
		Deadline:     auction.Deadline,
		ReservePrice: auction.ReservePrice,
		Status:       auction.Status.String(),
	})
}

func (h *AuctionHandler) GetAuctionCount(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]uint64{"count": h.engine.AuctionCount()})
}

type BidResponse struct {
	Bidder   string    `json:"bidder"`
	Amount   uint64    `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

func (h *AuctionHandler) GetAuctionBids(c echo.Context) error {
	auctionID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	bids := h.engine.GetAuctionBids(auctionID)
	resp := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, BidResponse{Bidder: b.Bidder, Amount: b.Amount, PlacedAt: b.PlacedAt})
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AuctionHandler) GetBidderAmount(c echo.Context) error {
	auctionID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	amount := h.engine.GetBidderAmount(auctionID, c.Param("bidder"))
	return c.JSON(http.StatusOK, map[string]uint64{"amount": amount})
}

type PlaceBidRequest struct {
	Bidder string `json:"bidder"`
	Amount uint64 `json:"amount"`
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	auctionID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := h.engine.PlaceBid(c.Request().Context(), auctionID, req.Bidder, req.Amount); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"status": "recorded"})
}

type CallerRequest struct {
	Caller string `json:"caller"`
}

func (h *AuctionHandler) EndAuction(c echo.Context) error {
	auctionID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	var req CallerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := h.engine.SellerEndAuction(c.Request().Context(), auctionID, req.Caller); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "settled"})
}

func (h *AuctionHandler) Withdraw(c echo.Context) error {
	auctionID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid auction id"))
	}

	var req CallerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := h.engine.Withdraw(c.Request().Context(), auctionID, req.Caller); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (h *AuctionHandler) writeError(c echo.Context, err error) error {
	return c.JSON(statusFor(err), errorBody(err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAsset),
		errors.Is(err, domain.ErrDeadlineInPast),
		errors.Is(err, domain.ErrZeroReservePrice),
		errors.Is(err, domain.ErrBelowReservePrice):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSellerCannotBid),
		errors.Is(err, domain.ErrNotSeller),
		errors.Is(err, domain.ErrCannotWithdrawWinningBid):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAuctionEnded),
		errors.Is(err, domain.ErrAuctionNotEnded),
		errors.Is(err, domain.ErrDuplicateBid),
		errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrNoBidToWithdraw):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAssetTransferFailed),
		errors.Is(err, domain.ErrValueTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func parseID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
