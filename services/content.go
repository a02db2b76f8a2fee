// services/content.go - Content Repository (quiz documents + asset upload)
package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"owlhoot/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentService is the read/write path for quiz content. Documents are
// authored through the wizard endpoints and read-only during gameplay.
type ContentService struct {
	db        *gorm.DB
	uploadDir string
}

func NewContentService(db *gorm.DB) *ContentService {
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	return &ContentService{db: db, uploadDir: uploadDir}
}

// QuizSummary is the dashboard projection: quiz metadata plus how many
// rounds it has.
type QuizSummary struct {
	ID            uint    `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	CoverImageID  *string `json:"cover_image_id"`
	QuestionCount int     `json:"question_count"`
}

// ListQuizzes returns all quizzes with their question counts. Duplicate
// titles are filtered out (first one wins), matching the host console's
// behavior when the content store accumulates copies.
func (s *ContentService) ListQuizzes() ([]QuizSummary, error) {
	var quizzes []models.Quiz
	if err := s.db.Order("created_at DESC").Find(&quizzes).Error; err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	summaries := make([]QuizSummary, 0, len(quizzes))
	seenTitles := make(map[string]bool)
	for _, quiz := range quizzes {
		if seenTitles[quiz.Title] {
			log.Printf("⚠️ Duplicate quiz found: %q (ID %d)", quiz.Title, quiz.ID)
			continue
		}
		seenTitles[quiz.Title] = true

		var count int64
		if err := s.db.Model(&models.Question{}).Where("quiz_id = ?", quiz.ID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count questions for quiz %d: %w", quiz.ID, err)
		}

		summaries = append(summaries, QuizSummary{
			ID:            quiz.ID,
			Title:         quiz.Title,
			Description:   quiz.Description,
			CoverImageID:  quiz.CoverImageID,
			QuestionCount: int(count),
		})
	}
	return summaries, nil
}

// GetQuiz fetches one quiz with its questions and answers in round order.
func (s *ContentService) GetQuiz(id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.position ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.id ASC")
		}).
		First(&quiz, id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// QuestionCount returns how many rounds quiz id has. The coordinator uses
// this to decide between "next question" and "podium".
func (s *ContentService) QuestionCount(quizID uint) (int, error) {
	var count int64
	err := s.db.Model(&models.Question{}).Where("quiz_id = ?", quizID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions for quiz %d: %w", quizID, err)
	}
	return int(count), nil
}

// QuestionAt fetches round index of a quiz, validating the content
// invariants on read - a document that lost its single correct answer is
// a content error, not a scoring input.
func (s *ContentService) QuestionAt(quizID uint, index int) (*models.Question, error) {
	var question models.Question
	err := s.db.
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.id ASC")
		}).
		Where("quiz_id = ? AND position = ?", quizID, index).
		First(&question).Error
	if err != nil {
		return nil, err
	}

	if err := question.Validate(); err != nil {
		return nil, fmt.Errorf("quiz %d question %d failed validation: %w", quizID, index, err)
	}
	return &question, nil
}

// QuizInput is the authoring wizard's submission shape.
type QuizInput struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	CoverImageID *string         `json:"cover_image_id"`
	Questions    []QuestionInput `json:"questions"`
}

type QuestionInput struct {
	Title   string        `json:"title"`
	ImageID *string       `json:"image_id"`
	Answers []AnswerInput `json:"answers"`
}

type AnswerInput struct {
	Key       string `json:"key"`
	Text      string `json:"text"`
	Color     string `json:"color"`
	IsCorrect bool   `json:"is_correct"`
}

// Validate applies the wizard's validation policy. creating=true adds the
// creation-mode requirement of a cover image.
func (in *QuizInput) Validate(creating bool) error {
	if in.Title == "" {
		return fmt.Errorf("quiz title is required")
	}
	if creating && in.CoverImageID == nil {
		return fmt.Errorf("cover image is required")
	}
	if len(in.Questions) == 0 {
		return fmt.Errorf("at least one question is required")
	}

	for i, q := range in.Questions {
		if q.Title == "" {
			return fmt.Errorf("question %d: title is required", i)
		}
		if q.ImageID == nil {
			return fmt.Errorf("question %d: image is required", i)
		}
		if len(q.Answers) == 0 {
			return fmt.Errorf("question %d: at least one answer is required", i)
		}
		correct := 0
		for j, a := range q.Answers {
			if a.Text == "" {
				return fmt.Errorf("question %d: answer %d has no text", i, j)
			}
			if a.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("question %d: exactly one answer must be marked correct", i)
		}
	}
	return nil
}

// CreateQuiz writes a validated quiz document with its question and
// answer children.
func (s *ContentService) CreateQuiz(in *QuizInput) (*models.Quiz, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}

	quiz := buildQuiz(in)
	if err := s.db.Create(quiz).Error; err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	log.Printf("📝 Quiz created: %q (ID %d, %d questions)", quiz.Title, quiz.ID, len(quiz.Questions))
	return quiz, nil
}

// UpdateQuiz replaces a quiz document. The wizard submits the full
// document on edit, so the old question tree is swapped out wholesale.
func (s *ContentService) UpdateQuiz(id uint, in *QuizInput) (*models.Quiz, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}

	var existing models.Quiz
	if err := s.db.First(&existing, id).Error; err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		tx.Model(&models.Question{}).Where("quiz_id = ?", id).Pluck("id", &questionIDs)
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.Answer{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"title":       in.Title,
			"description": in.Description,
		}
		if in.CoverImageID != nil {
			updates["cover_image_id"] = *in.CoverImageID
		}
		if err := tx.Model(&models.Quiz{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		replacement := buildQuiz(in)
		for i := range replacement.Questions {
			replacement.Questions[i].QuizID = id
			if err := tx.Create(&replacement.Questions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update quiz %d: %w", id, err)
	}

	log.Printf("📝 Quiz updated: ID %d", id)
	return s.GetQuiz(id)
}

// DeleteQuiz removes a quiz and its question tree.
func (s *ContentService) DeleteQuiz(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		tx.Model(&models.Question{}).Where("quiz_id = ?", id).Pluck("id", &questionIDs)
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.Answer{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Quiz{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete quiz %d: %w", id, err)
	}

	log.Printf("🗑️ Quiz deleted: ID %d", id)
	return nil
}

func buildQuiz(in *QuizInput) *models.Quiz {
	quiz := &models.Quiz{
		Title:        in.Title,
		Description:  in.Description,
		CoverImageID: in.CoverImageID,
	}
	for i, q := range in.Questions {
		question := models.Question{
			Position: i,
			Title:    q.Title,
			ImageID:  q.ImageID,
		}
		for j, a := range q.Answers {
			key := a.Key
			if key == "" {
				key = fmt.Sprintf("answer_%d", j)
			}
			question.Answers = append(question.Answers, models.Answer{
				Key:       key,
				Text:      a.Text,
				Color:     a.Color,
				IsCorrect: a.IsCorrect,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

// UploadAsset stores an uploaded binary on disk and returns the asset row
// whose uuid is the opaque reference used in image fields.
func (s *ContentService) UploadAsset(filename, contentType string, data []byte) (*models.Asset, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	asset := &models.Asset{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	asset.Path = filepath.Join(s.uploadDir, asset.ID+filepath.Ext(filename))

	if err := os.WriteFile(asset.Path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write asset file: %w", err)
	}
	if err := s.db.Create(asset).Error; err != nil {
		return nil, fmt.Errorf("failed to record asset: %w", err)
	}

	log.Printf("🖼️ Asset uploaded: %s (%s, %d bytes)", asset.ID, filename, len(data))
	return asset, nil
}

// GetAsset resolves an asset reference.
func (s *ContentService) GetAsset(id string) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}
