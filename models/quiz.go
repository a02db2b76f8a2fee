// models/quiz.go - Quiz content documents (authored via the wizard, read-only during play)
package models

import (
	"fmt"
	"time"
)

// Quiz is the top-level content document.
type Quiz struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Title        string     `json:"title" gorm:"not null;size:200"`
	Description  string     `json:"description" gorm:"type:text"`
	CoverImageID *string    `json:"cover_image_id" gorm:"size:36"` // asset reference
	Questions    []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Question is one round of a quiz. Position is the zero-based round index.
type Question struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	QuizID   uint     `json:"quiz_id" gorm:"not null;index"`
	Position int      `json:"position" gorm:"not null"`
	Title    string   `json:"title" gorm:"not null;size:500"`
	ImageID  *string  `json:"image_id" gorm:"size:36"`
	Answers  []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

// Answer is one selectable option. Exactly one answer per question carries
// IsCorrect - validated at the boundary on both write and read.
type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Key        string `json:"key" gorm:"not null;size:50"` // stable per-question slot key
	Text       string `json:"text" gorm:"not null;size:500"`
	Color      string `json:"color" gorm:"size:50"` // answer button background
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
}

// Asset is an uploaded binary (quiz cover / question image). Its uuid ID is
// the opaque reference stored in image fields.
type Asset struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Filename    string    `json:"filename" gorm:"size:255"`
	ContentType string    `json:"content_type" gorm:"size:100"`
	Size        int64     `json:"size"`
	Path        string    `json:"-" gorm:"size:500"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Quiz) TableName() string     { return "quizzes" }
func (Question) TableName() string { return "questions" }
func (Answer) TableName() string   { return "answers" }
func (Asset) TableName() string    { return "assets" }

// Validate enforces the single-correct-answer invariant for a question.
// Applied on write from the authoring wizard and on read before play.
func (q *Question) Validate() error {
	if q.Title == "" {
		return fmt.Errorf("question %d: title is required", q.Position)
	}
	if len(q.Answers) == 0 {
		return fmt.Errorf("question %d: at least one answer is required", q.Position)
	}
	correct := 0
	for _, a := range q.Answers {
		if a.Text == "" {
			return fmt.Errorf("question %d: answer %q has no text", q.Position, a.Key)
		}
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("question %d: exactly one answer must be marked correct, got %d", q.Position, correct)
	}
	return nil
}

// CorrectAnswer returns the single correct answer, or nil if the invariant
// is broken (callers treat that as a content error).
func (q *Question) CorrectAnswer() *Answer {
	for i := range q.Answers {
		if q.Answers[i].IsCorrect {
			return &q.Answers[i]
		}
	}
	return nil
}
