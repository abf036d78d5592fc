package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"escrow-auction/internal/api/handlers"
	"escrow-auction/internal/domain"
	"escrow-auction/internal/engine"
	"escrow-auction/internal/escrow"
	"escrow-auction/internal/infrastructure/custody"
)

type stubAuctionRepo struct{}

func (stubAuctionRepo) CreateAuction(ctx context.Context, auction *domain.Auction) error { return nil }
func (stubAuctionRepo) GetAuction(ctx context.Context, auctionID uint64) (*domain.Auction, error) {
	return nil, nil
}
func (stubAuctionRepo) UpdateAuctionStatus(ctx context.Context, auctionID uint64, status domain.AuctionStatus) error {
	return nil
}
func (stubAuctionRepo) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	return nil, nil
}
func (stubAuctionRepo) ListOpenPastDeadline(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	return nil, nil
}

type stubBidRepo struct{}

func (stubBidRepo) SaveBid(ctx context.Context, bid *domain.Bid) error { return nil }
func (stubBidRepo) ListBids(ctx context.Context, auctionID uint64) ([]*domain.Bid, error) {
	return nil, nil
}
func (stubBidRepo) MarkWithdrawn(ctx context.Context, auctionID uint64, bidder string) error {
	return nil
}
func (stubBidRepo) ListWithdrawn(ctx context.Context, auctionID uint64) ([]string, error) {
	return nil, nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Fatal(msg string, keysAndValues ...interface{}) {}

func newTestHandler(t *testing.T) (*handlers.AuctionHandler, *custody.Registry) {
	t.Helper()
	reg := custody.NewRegistry()
	eng := engine.New(
		reg,
		escrow.NewLedger(),
		nil,
		stubAuctionRepo{},
		stubBidRepo{},
		domain.SystemClock{},
		"escrow",
		nopLogger{},
	)
	return handlers.NewAuctionHandler(eng, nopLogger{}), reg
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newAPI(h *handlers.AuctionHandler) *echo.Echo {
	e := echo.New()
	e.POST("/auctions", h.Deposit)
	e.GET("/auctions/:id", h.GetAuction)
	e.POST("/auctions/:id/bids", h.PlaceBid)
	return e
}

func TestDepositAndReadBack(t *testing.T) {
	h, reg := newTestHandler(t)
	reg.Mint(domain.Asset{Registry: "vault-1", TokenID: "x"}, "seller")
	e := newAPI(h)

	rec := doJSON(e, http.MethodPost, "/auctions",
		`{"asset":{"registry":"vault-1","token_id":"x"},"deadline_offset":"24h","reserve_price":100,"seller":"seller"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created handlers.DepositResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.AuctionID != 0 || created.Status != "open" {
		t.Fatalf("unexpected deposit response: %+v", created)
	}

	rec = doJSON(e, http.MethodGet, "/auctions/0", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestDepositValidationMapsToBadRequest(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newAPI(h)

	rec := doJSON(e, http.MethodPost, "/auctions",
		`{"asset":{"registry":"","token_id":""},"deadline_offset":"24h","reserve_price":100,"seller":"seller"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid asset, got %d", rec.Code)
	}
}

func TestBidErrorMapping(t *testing.T) {
	h, reg := newTestHandler(t)
	reg.Mint(domain.Asset{Registry: "vault-1", TokenID: "x"}, "seller")
	e := newAPI(h)

	rec := doJSON(e, http.MethodPost, "/auctions/99/bids", `{"bidder":"b1","amount":100}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown auction, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/auctions",
		`{"asset":{"registry":"vault-1","token_id":"x"},"deadline_offset":"24h","reserve_price":100,"seller":"seller"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit failed: %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/auctions/0/bids", `{"bidder":"b1","amount":150}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for accepted bid, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/auctions/0/bids", `{"bidder":"b1","amount":200}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate bid, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/auctions/0/bids", `{"bidder":"seller","amount":150}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for seller bid, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/auctions/0/bids", `{"bidder":"b2","amount":50}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for below-reserve bid, got %d", rec.Code)
	}
}
