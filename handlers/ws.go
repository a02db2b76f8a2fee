// handlers/ws.go - Realtime change feed + per-connection round coordinators
package handlers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"owlhoot/services"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait = 10 * time.Second

	// Send channel buffer size
	sendBufferSize = 64
)

type wsMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// wsClient is one connected browser tab. Each tab watching a scoreboard
// gets its own RoundCoordinator - every client decides the countdown
// independently, exactly like the per-tab protocol this replaces.
type wsClient struct {
	conn *websocket.Conn
	send chan wsMessage

	mu          sync.Mutex
	coordinator *services.RoundCoordinator
	coordCancel context.CancelFunc
}

var (
	wsClients = make(map[*wsClient]bool)
	wsMu      sync.RWMutex
)

// HandleWebSocket runs one client connection: registers it on the feed,
// streams player snapshots, and dispatches coordinator commands.
func HandleWebSocket(conn *websocket.Conn) {
	client := &wsClient{
		conn: conn,
		send: make(chan wsMessage, sendBufferSize),
	}

	wsMu.Lock()
	wsClients[client] = true
	wsMu.Unlock()

	log.Printf("🎮 Feed client connected: %s", conn.RemoteAddr())
	client.sendMessage("connected", map[string]interface{}{"scoreboard_hold_ms": scoreboardHold.Milliseconds()})

	// Every store change delivers a fresh ordered snapshot to this client.
	snapshots, cancelFeed := playerStore.Subscribe(nil)
	go func() {
		for snap := range snapshots {
			client.sendMessage("players", snap)
		}
	}()

	// Start write pump in separate goroutine
	quit := make(chan struct{})
	go client.writePump(quit)

	// Read loop (blocking)
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		client.handleMessage(msg)
	}

	// Cleanup when connection closes. The send channel is never closed: a
	// coordinator callback may still race a final message into it, which
	// is harmless once the pump has quit.
	cancelFeed()
	client.stopCoordinator()

	wsMu.Lock()
	delete(wsClients, client)
	wsMu.Unlock()

	close(quit)
	log.Printf("🔌 Feed client disconnected: %s", conn.RemoteAddr())
}

func (c *wsClient) handleMessage(msg wsMessage) {
	switch msg.Type {
	case "watch_scoreboard":
		c.handleWatchScoreboard(msg.Payload)
	case "leave_scoreboard":
		// Client navigated away early; no stale navigation may fire.
		c.stopCoordinator()
	case "resume":
		// The tab came back from the background: re-check the deadline now
		// instead of waiting for a throttled timer.
		c.mu.Lock()
		coordinator := c.coordinator
		c.mu.Unlock()
		if coordinator != nil {
			coordinator.Resume()
		}
	case "ping":
		c.sendMessage("pong", map[string]interface{}{})
	}
}

func (c *wsClient) handleWatchScoreboard(payload interface{}) {
	data := parsePayload(payload)
	round := getInt(data, "question_id", -1)
	if round < 0 {
		c.sendMessage("error", map[string]interface{}{"error": "question_id is required"})
		return
	}

	session, err := sessions.Get()
	if err != nil || session.ActiveQuizID == nil {
		c.sendMessage("error", map[string]interface{}{"error": "No quiz is live"})
		return
	}
	quizID := *session.ActiveQuizID

	questionCount, err := content.QuestionCount(quizID)
	if err != nil || questionCount == 0 {
		c.sendMessage("error", map[string]interface{}{"error": "Active quiz has no questions"})
		return
	}

	// One coordinator per watched round; watching a new round replaces it.
	c.stopCoordinator()

	coordinator := services.NewRoundCoordinator(playerStore, round, questionCount, scoreboardHold, gameClock, func(target services.NavTarget) {
		to := fmt.Sprintf("/questions/%d?quizId=%d", target.Question, quizID)
		if target.Podium {
			to = fmt.Sprintf("/podium?quizId=%d", quizID)
		}
		c.sendMessage("navigate", map[string]interface{}{
			"to":       to,
			"podium":   target.Podium,
			"question": target.Question,
		})
	})
	coordinator.OnCountdown = func(deadline time.Time) {
		c.sendMessage("countdown_started", map[string]interface{}{
			"deadline_ms": deadline.UnixMilli(),
			"question_id": round,
		})
	}
	coordinator.OnCancelled = func() {
		c.sendMessage("countdown_cancelled", map[string]interface{}{"question_id": round})
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.coordinator = coordinator
	c.coordCancel = cancel
	c.mu.Unlock()

	go coordinator.Run(ctx)
	c.sendMessage("watching", map[string]interface{}{"question_id": round, "question_count": questionCount})
}

func (c *wsClient) stopCoordinator() {
	c.mu.Lock()
	coordinator := c.coordinator
	cancel := c.coordCancel
	c.coordinator = nil
	c.coordCancel = nil
	c.mu.Unlock()

	if coordinator != nil {
		coordinator.Stop()
	}
	if cancel != nil {
		cancel()
	}
}

// sendMessage queues a message to be sent to the client via WebSocket
func (c *wsClient) sendMessage(msgType string, payload interface{}) {
	msg := wsMessage{Type: msgType, Payload: payload}

	select {
	case c.send <- msg:
		// Message queued successfully
	default:
		// Send buffer full - drop message and log warning
		log.Printf("⚠️ Send buffer full for feed client %s, dropping message type: %s", c.conn.RemoteAddr(), msgType)
	}
}

// writePump drains the send channel onto the wire until quit closes.
func (c *wsClient) writePump(quit <-chan struct{}) {
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("⚠️ Write error for feed client %s: %v", c.conn.RemoteAddr(), err)
				return
			}
		case <-quit:
			return
		}
	}
}

// broadcastGameStarted tells every connected client the host released the
// game: waiting players head for round 0.
func broadcastGameStarted(quizID uint) {
	wsMu.RLock()
	defer wsMu.RUnlock()

	for client := range wsClients {
		client.sendMessage("game_started", map[string]interface{}{
			"quiz_id": quizID,
			"to":      fmt.Sprintf("/questions/0?quizId=%d", quizID),
		})
	}
}
