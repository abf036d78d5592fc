package websocket

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"escrow-auction/internal/domain"
	"escrow-auction/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// FeedHandler upgrades clients onto the live feed for one auction. Events
// arrive from the Redis subscriber and fan out through the connection
// manager; clients only listen.
type FeedHandler struct {
	statusCache domain.AuctionStatusCache
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewFeedHandler(statusCache domain.AuctionStatusCache, connManager domain.ConnectionManager, log logger.Logger) *FeedHandler {
	return &FeedHandler{
		statusCache: statusCache,
		connManager: connManager,
		log:         log,
	}
}

func (h *FeedHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID, err := strconv.ParseUint(vars["auctionID"], 10, 64)
	if err != nil {
		http.Error(w, "invalid auction id", http.StatusBadRequest)
		return
	}

	if _, known, err := h.statusCache.GetAuctionStatus(r.Context(), auctionID); err != nil {
		h.log.Error("Failed to look up auction status", "auction_id", auctionID, "error", err)
		http.Error(w, "status lookup failed", http.StatusInternalServerError)
		return
	} else if !known {
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	feedConn := newFeedConnection(conn, clientID, auctionID)

	if err := h.connManager.RegisterConnection(clientID, auctionID, feedConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	go h.readLoop(feedConn)
}

// readLoop drains client frames so close/ping handling works; the feed is
// one-way.
func (h *FeedHandler) readLoop(conn *feedConnection) {
	defer func() {
		h.connManager.UnregisterConnection(conn.ClientID(), conn.AuctionID())
		conn.Close()
	}()

	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type feedConnection struct {
	conn      *websocket.Conn
	clientID  string
	auctionID uint64
	writeMu   sync.Mutex
}

func newFeedConnection(conn *websocket.Conn, clientID string, auctionID uint64) *feedConnection {
	return &feedConnection{
		conn:      conn,
		clientID:  clientID,
		auctionID: auctionID,
	}
}

func (c *feedConnection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *feedConnection) Close() error {
	return c.conn.Close()
}

func (c *feedConnection) ClientID() string { return c.clientID }

func (c *feedConnection) AuctionID() uint64 { return c.auctionID }
