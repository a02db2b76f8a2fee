// database/migrate.go - Database Migration Runner
package database

import (
	"log"
	"owlhoot/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.Player{},
		&models.GameSession{},
		&models.Quiz{},
		&models.Question{},
		&models.Answer{},
		&models.Asset{},
	); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	createIndexes()
	seedGameSession()

	log.Println("✅ All migrations completed successfully")
}

// createIndexes creates indexes the query paths rely on
func createIndexes() {
	db := GetDB()

	// Scoreboard listing orders by points; presence check filters joined players
	db.Exec("CREATE INDEX IF NOT EXISTS idx_players_points ON players(points DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_players_added ON players(has_been_added)")

	// Questions are fetched per quiz in round order
	db.Exec("CREATE INDEX IF NOT EXISTS idx_questions_quiz_position ON questions(quiz_id, position)")
}

// seedGameSession ensures the single shared admin row (id=1) exists.
func seedGameSession() {
	db := GetDB()

	var count int64
	db.Model(&models.GameSession{}).Where("id = ?", 1).Count(&count)
	if count == 0 {
		if err := db.Create(&models.GameSession{ID: 1}).Error; err != nil {
			log.Printf("⚠️ Failed to seed game session row: %v", err)
			return
		}
		log.Println("✅ Seeded game session row")
	}
}
