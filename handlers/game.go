// handlers/game.go - Host console: activate, start, reset the live game
package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// GetGameState returns the shared session row (active quiz + start
// signal). Waiting clients poll or watch this to be released into round 0.
// GET /api/game
func GetGameState(c *fiber.Ctx) error {
	session, err := sessions.Get()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load game state"})
	}
	return c.JSON(fiber.Map{"success": true, "session": session})
}

type playRequest struct {
	QuizID uint `json:"quiz_id"`
}

// PlayQuiz marks a quiz as live and resets existing players, without yet
// releasing anyone into the first round. POST /api/game/play
func PlayQuiz(c *fiber.Ctx) error {
	var req playRequest
	if err := c.BodyParser(&req); err != nil || req.QuizID == 0 {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "quiz_id is required"})
	}

	if _, err := content.GetQuiz(req.QuizID); err != nil {
		return c.Status(404).JSON(fiber.Map{"success": false, "error": "Quiz not found"})
	}

	if err := sessions.Activate(req.QuizID); err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to activate quiz"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// StartGame flips the start signal and tells every connected client to
// head for round 0. POST /api/game/start
func StartGame(c *fiber.Ctx) error {
	session, err := sessions.Get()
	if err != nil || session.ActiveQuizID == nil {
		return c.Status(409).JSON(fiber.Map{"success": false, "error": "No quiz is live"})
	}

	if err := sessions.Start(); err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to start game"})
	}

	broadcastGameStarted(*session.ActiveQuizID)
	return c.JSON(fiber.Map{"success": true})
}

// ClearStartFlag drops the start signal without touching players. The
// podium view applies this so a finished game cannot re-release players
// into round 0. POST /api/game/clear-start
func ClearStartFlag(c *fiber.Ctx) error {
	if err := sessions.ClearStartFlag(); err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to clear start flag"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// ResetGame is "play again": deletes every player and idles the session
// row. Devices discover their identity no longer resolves and return to
// the join screen. POST /api/game/reset
func ResetGame(c *fiber.Ctx) error {
	if err := sessions.Reset(); err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to reset game"})
	}
	return c.JSON(fiber.Map{"success": true})
}
