// services/scorer.go - Answer Scorer (time-decayed points + single-player persistence)
package services

import (
	"log"
	"math"
	"time"
)

const (
	// MaxPoints is the full score for a fast correct answer.
	MaxPoints = 1000
	// GraceWindow awards full points for any correct answer inside it.
	GraceWindow = 5 * time.Second
	// DecayWindow is the span over which a correct answer's value decays to zero.
	DecayWindow = 60 * time.Second
)

// ComputeScore converts an answer into earned points. Wrong answers score
// a flat 0: an incorrect answer never moves a player's total. Correct
// answers score full value inside the grace window, then decay linearly
// to zero over the remainder of the 60-second window.
func ComputeScore(correct bool, elapsed time.Duration) int {
	if !correct {
		return 0
	}
	if elapsed <= GraceWindow {
		return MaxPoints
	}
	if elapsed >= DecayWindow {
		return 0
	}

	secs := elapsed.Seconds()
	earned := math.Round(float64(MaxPoints) - secs*(float64(MaxPoints)/DecayWindow.Seconds()))
	if earned < 0 {
		earned = 0
	}
	return int(earned)
}

// AnswerResult is what the submitting client gets back. Persisted=false
// means the store write failed; the client proceeds anyway and the score
// is simply lost (logged, non-fatal).
type AnswerResult struct {
	Correct   bool   `json:"correct"`
	Earned    int    `json:"earned"`
	Points    int    `json:"points"`
	AnswerKey string `json:"answer_key"` // the correct answer's key, for the reveal
	Persisted bool   `json:"persisted"`
}

// Scorer wires score computation to the player store and the content
// repository (which supplies the answer key).
type Scorer struct {
	store   *PlayerStore
	content *ContentService
}

func NewScorer(store *PlayerStore, content *ContentService) *Scorer {
	return &Scorer{store: store, content: content}
}

// SubmitAnswer resolves the selected answer against the question's answer
// key, computes the earned points from the client-measured elapsed time,
// and persists the delta to the acting player's row only.
func (s *Scorer) SubmitAnswer(playerID string, quizID uint, questionIndex int, answerKey string, elapsed time.Duration) (*AnswerResult, error) {
	player, err := s.store.Get(playerID)
	if err != nil {
		return nil, err
	}

	question, err := s.content.QuestionAt(quizID, questionIndex)
	if err != nil {
		return nil, err
	}
	correctAnswer := question.CorrectAnswer()

	correct := answerKey == correctAnswer.Key
	earned := ComputeScore(correct, elapsed)

	newPoints := player.Points + earned
	if newPoints < 0 {
		newPoints = 0
	}

	result := &AnswerResult{
		Correct:   correct,
		Earned:    earned,
		Points:    newPoints,
		AnswerKey: correctAnswer.Key,
		Persisted: true,
	}

	// Scoped to the submitting player only.
	err = s.store.Mutate(playerID, map[string]interface{}{
		"points":          newPoints,
		"previous_points": player.Points,
		"added_points":    earned,
	})
	if err != nil {
		// One player's connectivity issue must not stall their client: the
		// score write is allowed to fail, the game moves on.
		log.Printf("⚠️ Failed to persist score for player %s: %v", playerID, err)
		result.Persisted = false
	}

	return result, nil
}
