// handlers/players.go - Player join, identity resolution, answers and presence
package handlers

import (
	"errors"
	"strings"
	"time"

	"owlhoot/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type joinRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// JoinPlayer creates a player row for this device and issues its identity
// token. POST /api/players
func JoinPlayer(c *fiber.Ctx) error {
	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Name is required"})
	}

	if _, err := playerStore.GetByName(req.Name); err == nil {
		return c.Status(409).JSON(fiber.Map{"success": false, "error": "That name is already taken"})
	}

	player, err := playerStore.Insert(req.Name, req.Color)
	if err != nil {
		// A concurrent join can slip past the lookup above and land on the
		// unique index instead.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(409).JSON(fiber.Map{"success": false, "error": "That name is already taken"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to join the game"})
	}

	token, err := middleware.IssuePlayerToken(player.ID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to issue player identity"})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"player":  player,
		"token":   token,
	})
}

// GetPlayers lists all players ordered by points descending (the
// scoreboard query). GET /api/players
func GetPlayers(c *fiber.Ctx) error {
	players, err := playerStore.List()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to fetch players"})
	}
	return c.JSON(fiber.Map{"success": true, "players": players})
}

// GetCurrentPlayer re-fetches the live record for this device's identity.
// A 404 here is terminal: the client clears its stored identity and goes
// back to the join screen. GET /api/players/me
func GetCurrentPlayer(c *fiber.Ctx) error {
	playerID, _ := c.Locals("playerId").(string)

	player, err := playerStore.Get(playerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Player no longer exists"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to fetch player"})
	}

	return c.JSON(fiber.Map{"success": true, "player": player})
}

// DeletePlayer removes a player by name (the host console path) or id.
// DELETE /api/players/:name
func DeletePlayer(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Player name is required"})
	}

	err := playerStore.DeleteByName(name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = playerStore.Delete(name)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Player not found"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to delete player"})
	}

	return c.JSON(fiber.Map{"success": true})
}

type answerRequest struct {
	QuestionID int    `json:"question_id"`
	AnswerKey  string `json:"answer_key"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

// SubmitAnswer scores this device's answer for the current round and
// persists the delta to its own player row. POST /api/answers
func SubmitAnswer(c *fiber.Ctx) error {
	playerID, _ := c.Locals("playerId").(string)

	var req answerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if req.ElapsedMS < 0 {
		req.ElapsedMS = 0
	}

	session, err := sessions.Get()
	if err != nil || session.ActiveQuizID == nil {
		return c.Status(409).JSON(fiber.Map{"success": false, "error": "No quiz is live"})
	}

	result, err := scorer.SubmitAnswer(playerID, *session.ActiveQuizID, req.QuestionID, req.AnswerKey, time.Duration(req.ElapsedMS)*time.Millisecond)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Player or question not found"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to score answer"})
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"result":          result,
		"reveal_delay_ms": answerRevealDelay.Milliseconds(),
	})
}

type presenceRequest struct {
	QuestionID int `json:"question_id"`
}

// MarkPresence records this device's arrival on the scoreboard for a
// round. The coordinator's all-present predicate pairs the flag with the
// round index, so a stale flag from a previous round never counts.
// POST /api/presence
func MarkPresence(c *fiber.Ctx) error {
	playerID, _ := c.Locals("playerId").(string)

	var req presenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if req.QuestionID < 0 {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid question id"})
	}

	if err := playerStore.MarkPresent(playerID, req.QuestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Player no longer exists"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to record presence"})
	}

	return c.JSON(fiber.Map{"success": true})
}
