package websocket

import (
	"sync"

	"escrow-auction/internal/domain"
	"escrow-auction/pkg/logger"
)

type ConnectionManager struct {
	connections map[uint64]map[string]domain.WebSocketConnection // auctionID -> clientID -> connection
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[uint64]map[string]domain.WebSocketConnection),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(clientID string, auctionID uint64, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[auctionID] == nil {
		cm.connections[auctionID] = make(map[string]domain.WebSocketConnection)
	}
	cm.connections[auctionID][clientID] = conn

	cm.log.Info("Connection registered", "client_id", clientID, "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(clientID string, auctionID uint64) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if auctionConns, exists := cm.connections[auctionID]; exists {
		delete(auctionConns, clientID)
		if len(auctionConns) == 0 {
			delete(cm.connections, auctionID)
		}
	}

	cm.log.Info("Connection unregistered", "client_id", clientID, "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) BroadcastToAuction(auctionID uint64, message interface{}) error {
	cm.mutex.RLock()
	conns := make([]domain.WebSocketConnection, 0, len(cm.connections[auctionID]))
	for _, conn := range cm.connections[auctionID] {
		conns = append(conns, conn)
	}
	cm.mutex.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(message); err != nil {
			cm.log.Error("Failed to send to connection", "client_id", conn.ClientID(), "auction_id", auctionID, "error", err)
		}
	}

	return nil
}

func (cm *ConnectionManager) CloseAndUnregisterConnections(auctionID uint64) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for clientID, conn := range cm.connections[auctionID] {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "client_id", clientID, "auction_id", auctionID, "error", err)
		}
	}
	delete(cm.connections, auctionID)

	return nil
}
