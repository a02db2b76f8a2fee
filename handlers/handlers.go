// handlers/handlers.go - Shared handler wiring and payload helpers
package handlers

import (
	"time"

	"owlhoot/services"

	"github.com/jonboulle/clockwork"
)

var (
	playerStore *services.PlayerStore
	content     *services.ContentService
	sessions    *services.SessionService
	scorer      *services.Scorer

	// Countdown timing shared by every coordinator this server spawns.
	gameClock         clockwork.Clock
	scoreboardHold    time.Duration
	answerRevealDelay = 3500 * time.Millisecond
)

// InitHandlers wires the handler package to its services. Called once
// from main before any route is registered.
func InitHandlers(store *services.PlayerStore, contentSvc *services.ContentService, sessionSvc *services.SessionService, clock clockwork.Clock, countdown time.Duration) {
	playerStore = store
	content = contentSvc
	sessions = sessionSvc
	scorer = services.NewScorer(store, contentSvc)
	gameClock = clock
	scoreboardHold = countdown
}

// Payload helpers for websocket messages (payloads arrive as
// map[string]interface{} from JSON decoding).

func parsePayload(payload interface{}) map[string]interface{} {
	if data, ok := payload.(map[string]interface{}); ok {
		return data
	}
	return map[string]interface{}{}
}

func getInt(data map[string]interface{}, key string, defaultVal int) int {
	if val, ok := data[key]; ok {
		if num, ok := val.(float64); ok {
			return int(num)
		}
	}
	return defaultVal
}
