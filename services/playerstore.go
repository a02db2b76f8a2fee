// services/playerstore.go - Player Store (shared mutable table + change notifications)
package services

import (
	"fmt"
	"log"
	"sync"

	"owlhoot/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlayerStore is the one shared mutable resource every client coordinates
// through: a players table plus an in-process change feed. Subscribers get
// a fresh ordered snapshot after every insert/update/delete, which is the
// contract the round coordinator's all-present predicate runs on.
type PlayerStore struct {
	db *gorm.DB

	mu     sync.RWMutex
	subs   map[int]*playerSub
	nextID int
}

type playerSub struct {
	ch     chan []models.Player
	filter func(*models.Player) bool
}

func NewPlayerStore(db *gorm.DB) *PlayerStore {
	return &PlayerStore{
		db:   db,
		subs: make(map[int]*playerSub),
	}
}

// List returns all players ordered by points descending (the scoreboard
// ordering). Invariants are checked at the boundary: a negative score in
// the store is clamped and logged rather than propagated to the game.
func (s *PlayerStore) List() ([]models.Player, error) {
	var players []models.Player
	if err := s.db.Order("points DESC, created_at ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	for i := range players {
		if players[i].Points < 0 {
			log.Printf("⚠️ Player %s has negative points (%d), clamping to 0", players[i].ID, players[i].Points)
			players[i].Points = 0
		}
	}
	return players, nil
}

// Get fetches one player's live record by id.
func (s *PlayerStore) Get(id string) (*models.Player, error) {
	var player models.Player
	if err := s.db.First(&player, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

// GetByName fetches one player's live record by display name.
func (s *PlayerStore) GetByName(name string) (*models.Player, error) {
	var player models.Player
	if err := s.db.First(&player, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

// Insert creates a fully joined player row. Name uniqueness is enforced by
// the unique index; callers map the conflict to a join-screen error.
func (s *PlayerStore) Insert(name, color string) (*models.Player, error) {
	player := &models.Player{
		ID:           uuid.NewString(),
		Name:         name,
		Color:        color,
		Points:       0,
		IsReady:      true,
		HasBeenAdded: true,
	}
	if err := s.db.Create(player).Error; err != nil {
		return nil, fmt.Errorf("failed to insert player %q: %w", name, err)
	}

	log.Printf("🎮 Player joined: %s (ID: %s)", name, player.ID)
	s.broadcast()
	return player, nil
}

// Mutate applies a patch to a single player row. Scoring updates go
// through here so they stay scoped to the acting player only.
func (s *PlayerStore) Mutate(id string, patch map[string]interface{}) error {
	result := s.db.Model(&models.Player{}).Where("id = ?", id).Updates(patch)
	if result.Error != nil {
		return fmt.Errorf("failed to update player %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	s.broadcast()
	return nil
}

// Delete removes a player by id.
func (s *PlayerStore) Delete(id string) error {
	result := s.db.Delete(&models.Player{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete player %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	log.Printf("🔌 Player removed: %s", id)
	s.broadcast()
	return nil
}

// DeleteByName removes a player by display name (the host console path).
func (s *PlayerStore) DeleteByName(name string) error {
	result := s.db.Delete(&models.Player{}, "name = ?", name)
	if result.Error != nil {
		return fmt.Errorf("failed to delete player %q: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	log.Printf("🔌 Player removed: %s", name)
	s.broadcast()
	return nil
}

// DeleteAll wipes the table. Part of the "play again" reset.
func (s *PlayerStore) DeleteAll() error {
	if err := s.db.Where("1 = 1").Delete(&models.Player{}).Error; err != nil {
		return fmt.Errorf("failed to delete players: %w", err)
	}

	log.Println("🧹 All players deleted")
	s.broadcast()
	return nil
}

// ResetForNewGame zeroes every player's score and presence before a quiz
// goes live (the host console's "play" action).
func (s *PlayerStore) ResetForNewGame() error {
	err := s.db.Model(&models.Player{}).Where("1 = 1").Updates(map[string]interface{}{
		"points":              0,
		"previous_points":     0,
		"added_points":        0,
		"on_scoreboard":       false,
		"current_question_id": 0,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to reset players: %w", err)
	}

	s.broadcast()
	return nil
}

// MarkPresent records a player's arrival on the scoreboard for round n.
func (s *PlayerStore) MarkPresent(id string, round int) error {
	return s.Mutate(id, map[string]interface{}{
		"on_scoreboard":       true,
		"current_question_id": round,
	})
}

// ClearPresence drops the presence flag for every player on round n. Every
// watching coordinator applies this at its deadline, so the update must be
// (and is) safe to apply redundantly from multiple clients.
func (s *PlayerStore) ClearPresence(round int) error {
	err := s.db.Model(&models.Player{}).
		Where("current_question_id = ?", round).
		Update("on_scoreboard", false).Error
	if err != nil {
		return fmt.Errorf("failed to clear presence for round %d: %w", round, err)
	}

	s.broadcast()
	return nil
}

// Subscribe registers for snapshot notifications. Every store write
// delivers a fresh ordered snapshot, optionally narrowed by filter. The
// returned cancel func must be called when the watcher goes away.
func (s *PlayerStore) Subscribe(filter func(*models.Player) bool) (<-chan []models.Player, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	sub := &playerSub{
		// Buffer one snapshot; broadcast coalesces instead of blocking.
		ch:     make(chan []models.Player, 1),
		filter: filter,
	}
	s.subs[id] = sub
	s.mu.Unlock()

	// Seed the subscriber with the current state so a watcher that attaches
	// after the last write still evaluates it.
	if players, err := s.List(); err == nil {
		sub.deliver(players)
	} else {
		log.Printf("⚠️ Failed to seed subscriber snapshot: %v", err)
	}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub.ch)
		}
		s.mu.Unlock()
	}
	return sub.ch, cancel
}

// broadcast re-queries the table and fans the snapshot out to every
// subscriber. Slow consumers get the stale snapshot replaced rather than
// a blocked store - only the latest state matters to the predicate.
func (s *PlayerStore) broadcast() {
	players, err := s.List()
	if err != nil {
		log.Printf("⚠️ Failed to fetch snapshot for broadcast: %v", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		sub.deliver(players)
	}
}

func (sub *playerSub) deliver(players []models.Player) {
	snapshot := players
	if sub.filter != nil {
		snapshot = make([]models.Player, 0, len(players))
		for i := range players {
			if sub.filter(&players[i]) {
				snapshot = append(snapshot, players[i])
			}
		}
	}

	for {
		select {
		case sub.ch <- snapshot:
			return
		default:
			// Drop the stale queued snapshot and retry with the fresh one.
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}
