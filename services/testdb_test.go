package services

import (
	"fmt"
	"testing"

	"owlhoot/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB gives each test its own in-memory sqlite database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.Player{},
		&models.GameSession{},
		&models.Quiz{},
		&models.Question{},
		&models.Answer{},
		&models.Asset{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := db.Create(&models.GameSession{ID: 1}).Error; err != nil {
		t.Fatal(err)
	}
	return db
}

func strPtr(s string) *string { return &s }

// seedQuiz creates a two-question quiz whose correct answers are always
// slot answer_0.
func seedQuiz(t *testing.T, content *ContentService) *models.Quiz {
	t.Helper()

	input := &QuizInput{
		Title:        "Friday night trivia",
		Description:  "Warmup round",
		CoverImageID: strPtr("cover-asset"),
		Questions: []QuestionInput{
			{
				Title:   "Which owl hoots loudest?",
				ImageID: strPtr("img-1"),
				Answers: []AnswerInput{
					{Key: "answer_0", Text: "The great horned owl", Color: "#dc2626", IsCorrect: true},
					{Key: "answer_1", Text: "The barn owl", Color: "#65a30d"},
					{Key: "answer_2", Text: "The snowy owl", Color: "#0369a1"},
				},
			},
			{
				Title:   "How many hearts does an octopus have?",
				ImageID: strPtr("img-2"),
				Answers: []AnswerInput{
					{Key: "answer_0", Text: "Three", Color: "#dc2626", IsCorrect: true},
					{Key: "answer_1", Text: "One", Color: "#65a30d"},
				},
			},
		},
	}

	quiz, err := content.CreateQuiz(input)
	if err != nil {
		t.Fatalf("failed to seed quiz: %v", err)
	}
	return quiz
}
