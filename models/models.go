// models/models.go - Core game models (players + shared session row)
package models

import (
	"time"
)

// Player represents one joined device in the active game. The row is the
// single shared mutable resource every client coordinates through: the
// answer path mutates the acting player's own row, and the scoreboard
// presence reset may be applied redundantly from any client's coordinator.
type Player struct {
	ID    string `json:"id" gorm:"primaryKey;size:36"`
	Name  string `json:"name" gorm:"not null;uniqueIndex;size:100"`
	Color string `json:"color" gorm:"size:50"` // UI accent, doubles as avatar key

	Points         int `json:"points" gorm:"default:0"`
	PreviousPoints int `json:"previousPoints" gorm:"default:0"` // snapshot before last scoring update
	AddedPoints    int `json:"addedPoints" gorm:"default:0"`    // cached last delta, animated by the UI

	// HasBeenAdded distinguishes fully joined players from transient rows.
	HasBeenAdded bool `json:"hasBeenAdded" gorm:"default:false;index"`
	IsReady      bool `json:"isReady" gorm:"default:false"`

	// OnScoreboard is only meaningful paired with CurrentQuestionID: a stale
	// true from a previous round must not count as presence for the current one.
	OnScoreboard      bool `json:"onScoreboard" gorm:"default:false"`
	CurrentQuestionID int  `json:"currentQuestionId" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

func (Player) TableName() string {
	return "players"
}

// PresentOn reports whether this player counts as present on the
// scoreboard for round n.
func (p *Player) PresentOn(n int) bool {
	return p.OnScoreboard && p.CurrentQuestionID == n
}

// GameSession is the single shared admin row (id=1) holding which quiz is
// live and the start signal that releases waiting players into round 0.
type GameSession struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ActiveQuizID *uint     `json:"activeQuizId"`
	StartGame    bool      `json:"startGame" gorm:"default:false"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (GameSession) TableName() string {
	return "game_sessions"
}
