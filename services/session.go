// services/session.go - Shared game session row (active quiz + start signal)
package services

import (
	"fmt"
	"log"

	"owlhoot/models"

	"gorm.io/gorm"
)

// SessionService owns the single shared admin row: which quiz is live and
// the startGame flip that releases waiting players into round 0.
type SessionService struct {
	db      *gorm.DB
	players *PlayerStore
}

func NewSessionService(db *gorm.DB, players *PlayerStore) *SessionService {
	return &SessionService{db: db, players: players}
}

// Get returns the session row.
func (s *SessionService) Get() (*models.GameSession, error) {
	var session models.GameSession
	if err := s.db.First(&session, 1).Error; err != nil {
		return nil, fmt.Errorf("failed to load game session: %w", err)
	}
	return &session, nil
}

// Activate marks a quiz as live and resets every existing player's state,
// the host console's "play" action. startGame stays false until Start.
func (s *SessionService) Activate(quizID uint) error {
	err := s.db.Model(&models.GameSession{}).Where("id = ?", 1).Updates(map[string]interface{}{
		"active_quiz_id": quizID,
		"start_game":     false,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to activate quiz %d: %w", quizID, err)
	}

	if err := s.players.ResetForNewGame(); err != nil {
		// Stale scores are recoverable; the activation itself succeeded.
		log.Printf("⚠️ Failed to reset players for new game: %v", err)
	}

	log.Printf("🎯 Quiz %d is live", quizID)
	return nil
}

// Start flips the start signal. Waiting clients observe it and navigate
// to round 0.
func (s *SessionService) Start() error {
	err := s.db.Model(&models.GameSession{}).Where("id = ?", 1).
		Update("start_game", true).Error
	if err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	log.Println("🏁 Game started")
	return nil
}

// ClearStartFlag drops the start signal without touching players. The
// podium view applies this so a finished game cannot re-release players.
func (s *SessionService) ClearStartFlag() error {
	err := s.db.Model(&models.GameSession{}).Where("id = ?", 1).
		Update("start_game", false).Error
	if err != nil {
		return fmt.Errorf("failed to clear start flag: %w", err)
	}
	return nil
}

// Reset is the "play again" action: every player row is deleted and the
// session row returns to idle.
func (s *SessionService) Reset() error {
	if err := s.players.DeleteAll(); err != nil {
		return err
	}

	err := s.db.Model(&models.GameSession{}).Where("id = ?", 1).Updates(map[string]interface{}{
		"active_quiz_id": nil,
		"start_game":     false,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to reset game session: %w", err)
	}

	log.Println("🔄 Game reset, ready for a new round of players")
	return nil
}
