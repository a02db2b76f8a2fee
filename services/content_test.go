package services

import (
	"testing"

	"owlhoot/models"
)

func TestListQuizzesFiltersDuplicateTitles(t *testing.T) {
	db := openTestDB(t)
	content := NewContentService(db)

	first := seedQuiz(t, content)
	input := &QuizInput{
		Title:        first.Title,
		Description:  "Accidental copy",
		CoverImageID: strPtr("cover-dup"),
		Questions: []QuestionInput{
			{
				Title:   "Copy question?",
				ImageID: strPtr("img-dup"),
				Answers: []AnswerInput{
					{Key: "answer_0", Text: "Yes", Color: "#dc2626", IsCorrect: true},
					{Key: "answer_1", Text: "No", Color: "#65a30d"},
				},
			},
		},
	}
	if _, err := content.CreateQuiz(input); err != nil {
		t.Fatal(err)
	}

	summaries, err := content.ListQuizzes()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want duplicate title filtered down to 1", len(summaries))
	}
	if summaries[0].QuestionCount != 2 {
		t.Fatalf("question_count = %d, want 2", summaries[0].QuestionCount)
	}
}

func TestListQuizzesSurfacesCountFailure(t *testing.T) {
	db := openTestDB(t)
	content := NewContentService(db)

	seedQuiz(t, content)

	// A broken questions table must surface as an error, not as a quiz
	// silently reporting zero questions.
	if err := db.Migrator().DropTable(&models.Question{}); err != nil {
		t.Fatal(err)
	}

	if _, err := content.ListQuizzes(); err == nil {
		t.Fatal("ListQuizzes succeeded with an unreadable questions table")
	}
}
