// handlers/debug.go - Troubleshooting endpoints (remove in production)
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// GetActiveCoordinators reports every connected feed client's coordinator
// state. GET /api/debug/coordinators
func GetActiveCoordinators(c *fiber.Ctx) error {
	wsMu.RLock()
	defer wsMu.RUnlock()

	coordinators := make([]map[string]interface{}, 0, len(wsClients))
	for client := range wsClients {
		client.mu.Lock()
		coordinator := client.coordinator
		client.mu.Unlock()

		if coordinator == nil {
			continue
		}
		state, round, deadline := coordinator.Status()
		entry := map[string]interface{}{
			"remote": client.conn.RemoteAddr().String(),
			"state":  state,
			"round":  round,
		}
		if !deadline.IsZero() {
			entry["deadline"] = deadline.Format(time.RFC3339)
		}
		coordinators = append(coordinators, entry)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"connections":  len(wsClients),
		"coordinators": coordinators,
	})
}
