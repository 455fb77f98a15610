package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"taskboard/internal/realtime"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// wsClient implements realtime.Client by wrapping a websocket connection.
// gorilla connections allow one concurrent writer.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(message)
}

// write sends one text frame. The caller holds c.mu.
func (c *wsClient) write(message []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, message) == nil
}

// subscribe registers the client and writes the ack under the write lock, so
// a concurrent Publish cannot reach the connection before the ack.
func (c *wsClient) subscribe(hub *realtime.Hub, userID, table string, filter realtime.Filter, ack []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	hub.Register(userID, c, table, filter)
	return c.write(ack)
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteWait))
}

func (c *wsClient) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the API key and token checks run before the upgrade
		return true
	},
}

var watchableTables = map[string]bool{
	realtime.TableTasks:    true,
	realtime.TableSubTasks: true,
	realtime.TableProfiles: true,
}

// RealtimeHandler handles GET /realtime/v1?table=...&filter=column=eq.value.
// It upgrades the connection, registers the subscription with the hub and
// acknowledges it with a SYSTEM event before any change is delivered.
func RealtimeHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	table := c.Query("table")
	if !watchableTables[table] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown table"})
		return
	}
	filter, err := realtime.ParseFilter(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := &wsClient{conn: conn}
	hub := realtime.GetHub()
	ack, _ := json.Marshal(realtime.ChangeEvent{
		Table:           table,
		Type:            realtime.EventSystem,
		CommitTimestamp: time.Now().UTC(),
	})
	client.subscribe(hub, userID, table, filter, ack)

	// Heartbeat: send periodic pings; close on error
	pingTicker := time.NewTicker(wsPingPeriod)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				if err := client.ping(); err != nil {
					return
				}
			}
		}
	}()
	defer func() {
		close(done)
		pingTicker.Stop()
		hub.Unregister(userID, client)
		client.Close()
	}()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"realtime": realtime.GetHub().Count(),
	})
}
