package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/upwatch-dev/upwatch/internal/types"
	"github.com/upwatch-dev/upwatch/internal/utils"
	"go.uber.org/zap"
)

var (
	orgClients   = make(map[uint]map[*websocket.Conn]bool)
	orgClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// StatusFeed pushes committed status transitions to connected dashboard
// clients. Implements tracker.Listener.
type StatusFeed struct{}

func (StatusFeed) OnStatusChange(_ context.Context, event types.StatusChangeEvent) {
	BroadcastStatusChange(event)
}

func BroadcastStatusChange(event types.StatusChangeEvent) {
	orgClientsMu.RLock()
	clients, exists := orgClients[event.OrgID]
	if !exists || len(clients) == 0 {
		orgClientsMu.RUnlock()
		return
	}

	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	orgClientsMu.RUnlock()

	payload := gin.H{
		"type":       "status_change",
		"monitor_id": event.MonitorID,
		"monitor":    event.MonitorName,
		"region":     event.Region,
		"from":       event.From,
		"to":         event.To,
		"reason":     event.Reason,
		"at":         event.Result.Timestamp.Format(time.RFC3339),
	}

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			continue
		}

		if err := conn.WriteJSON(payload); err != nil {
			logger.Warn("failed to broadcast status change", zap.Error(err))
			unregisterClient(event.OrgID, conn)
			conn.Close()
		}
	}
}

func WebSocket(c *gin.Context) {
	orgID, err := utils.GetOrgID(c)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	orgClientsMu.Lock()
	if orgClients[orgID] == nil {
		orgClients[orgID] = make(map[*websocket.Conn]bool)
	}
	orgClients[orgID][conn] = true
	orgClientsMu.Unlock()

	defer func() {
		unregisterClient(orgID, conn)
		conn.Close()
		logger.Info("websocket connection closed", zap.Uint("org_id", orgID))
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	err = conn.WriteJSON(gin.H{
		"type":    "connected",
		"message": "Status feed established",
		"org_id":  strconv.FormatUint(uint64(orgID), 10),
	})
	if err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket error", zap.Uint("org_id", orgID), zap.Error(err))
			}
			break
		}
	}
}

func unregisterClient(orgID uint, conn *websocket.Conn) {
	orgClientsMu.Lock()
	if clients, exists := orgClients[orgID]; exists {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(orgClients, orgID)
		}
	}
	orgClientsMu.Unlock()
}
