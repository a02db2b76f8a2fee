// handlers/quiz.go - Quiz authoring wizard endpoints + asset upload
package handlers

import (
	"errors"
	"io"
	"strconv"

	"owlhoot/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GetQuizzes lists quizzes with question counts for the host console.
// GET /api/quizzes
func GetQuizzes(c *fiber.Ctx) error {
	quizzes, err := content.ListQuizzes()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load quizzes"})
	}
	return c.JSON(fiber.Map{"success": true, "quizzes": quizzes})
}

// GetQuiz fetches one quiz with nested questions and answers (the edit
// flow's single-document fetch). GET /api/quizzes/:id
func GetQuiz(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid quiz id"})
	}

	quiz, err := content.GetQuiz(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Quiz not found"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load quiz"})
	}

	return c.JSON(fiber.Map{"success": true, "quiz": quiz})
}

// CreateQuiz writes a new quiz document from the wizard's review step.
// POST /api/quizzes
func CreateQuiz(c *fiber.Ctx) error {
	var input services.QuizInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	quiz, err := content.CreateQuiz(&input)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.Status(201).JSON(fiber.Map{"success": true, "quiz": quiz})
}

// UpdateQuiz replaces a quiz document from the edit flow.
// PUT /api/quizzes/:id
func UpdateQuiz(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid quiz id"})
	}

	var input services.QuizInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	quiz, err := content.UpdateQuiz(id, &input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Quiz not found"})
		}
		return c.Status(400).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{"success": true, "quiz": quiz})
}

// DeleteQuiz removes a quiz document. DELETE /api/quizzes/:id
func DeleteQuiz(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid quiz id"})
	}

	if err := content.DeleteQuiz(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Quiz not found"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to delete quiz"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// UploadAsset accepts a multipart image and returns its opaque reference.
// POST /api/assets
func UploadAsset(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "An image file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to read upload"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to read upload"})
	}

	asset, err := content.UploadAsset(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to store asset"})
	}

	return c.Status(201).JSON(fiber.Map{"success": true, "asset_id": asset.ID})
}

// GetAssetFile serves an uploaded image by reference. GET /api/assets/:id
func GetAssetFile(c *fiber.Ctx) error {
	asset, err := content.GetAsset(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "Asset not found"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to load asset"})
	}

	if asset.ContentType != "" {
		c.Set("Content-Type", asset.ContentType)
	}
	return c.SendFile(asset.Path)
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
