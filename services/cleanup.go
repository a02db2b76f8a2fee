// services/cleanup.go - Background cleanup of abandoned player rows
package services

import (
	"log"
	"os"
	"strconv"
	"time"

	"owlhoot/models"

	"gorm.io/gorm"
)

// CleanupService sweeps player rows that have not been touched for a long
// time - leftovers from games nobody reset. This is operational hygiene
// only: it is NOT a round-forfeit timeout, and it never fires on the
// timescale of a live round.
type CleanupService struct {
	db       *gorm.DB
	interval time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
}

var cleanupService *CleanupService

// InitCleanupService initializes and starts the singleton cleanup service.
func InitCleanupService(db *gorm.DB) {
	if os.Getenv("PLAYER_CLEANUP_ENABLED") == "false" {
		log.Println("🧹 Player cleanup disabled")
		return
	}

	cleanupService = &CleanupService{
		db:       db,
		interval: time.Duration(getEnvInt("CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
		ttl:      time.Duration(getEnvInt("PLAYER_TTL_HOURS", 24)) * time.Hour,
		stopCh:   make(chan struct{}),
	}
	go cleanupService.run()
}

// GetCleanupService returns the initialized cleanup service, nil if disabled.
func GetCleanupService() *CleanupService {
	return cleanupService
}

func (s *CleanupService) run() {
	log.Printf("🧹 Player cleanup running every %s (TTL %s)", s.interval, s.ttl)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the cleanup worker.
func (s *CleanupService) Stop() {
	close(s.stopCh)
}

func (s *CleanupService) sweep() {
	cutoff := time.Now().UTC().Add(-s.ttl)
	result := s.db.Where("updated_at < ?", cutoff).Delete(&models.Player{})
	if result.Error != nil {
		log.Printf("⚠️ Player cleanup failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("🧹 Cleaned up %d abandoned players", result.RowsAffected)
	}
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
