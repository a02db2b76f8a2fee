package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"owlhoot/middleware"
	"owlhoot/models"
	"owlhoot/services"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv bundles the app with direct service handles so tests can seed
// state without going through HTTP.
type testEnv struct {
	app     *fiber.App
	store   *services.PlayerStore
	content *services.ContentService
}

// newTestApp wires the handler package to an in-memory database and
// registers the API routes the way main does.
func newTestApp(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", t.Name())
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

	store := services.NewPlayerStore(db)
	content := services.NewContentService(db)
	sessions := services.NewSessionService(db, store)
	InitHandlers(store, content, sessions, clockwork.NewRealClock(), 7*time.Second)

	app := fiber.New()
	api := app.Group("/api")

	api.Post("/players", JoinPlayer)
	api.Get("/players", GetPlayers)
	api.Get("/players/me", middleware.PlayerIdentity, GetCurrentPlayer)
	api.Delete("/players/:name", DeletePlayer)

	api.Post("/answers", middleware.PlayerIdentity, SubmitAnswer)
	api.Post("/presence", middleware.PlayerIdentity, MarkPresence)

	api.Get("/quizzes", GetQuizzes)
	api.Post("/quizzes", CreateQuiz)
	api.Get("/quizzes/:id", GetQuiz)
	api.Put("/quizzes/:id", UpdateQuiz)
	api.Delete("/quizzes/:id", DeleteQuiz)

	api.Get("/game", GetGameState)
	api.Post("/game/play", PlayQuiz)
	api.Post("/game/start", StartGame)
	api.Post("/game/clear-start", ClearStartFlag)
	api.Post("/game/reset", ResetGame)

	return &testEnv{app: app, store: store, content: content}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}

	var parsed map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Fatalf("%s %s returned non-JSON body: %s", method, path, raw)
		}
	}
	return resp, parsed
}

// join creates a player over HTTP and returns its id and identity token.
func (e *testEnv) join(t *testing.T, name, color string) (id, token string) {
	t.Helper()

	resp, body := e.request(t, "POST", "/api/players", map[string]string{"name": name, "color": color}, "")
	if resp.StatusCode != 201 {
		t.Fatalf("join %s returned %d: %v", name, resp.StatusCode, body)
	}
	player := body["player"].(map[string]interface{})
	return player["id"].(string), body["token"].(string)
}

func validQuizInput(title string) map[string]interface{} {
	question := func(q string) map[string]interface{} {
		return map[string]interface{}{
			"title":    q,
			"image_id": "img-1",
			"answers": []map[string]interface{}{
				{"key": "answer_0", "text": "Right", "color": "#dc2626", "is_correct": true},
				{"key": "answer_1", "text": "Wrong", "color": "#65a30d"},
			},
		}
	}
	return map[string]interface{}{
		"title":          title,
		"description":    "A test quiz",
		"cover_image_id": "cover-1",
		"questions": []map[string]interface{}{
			question("First question?"),
			question("Second question?"),
		},
	}
}

// createQuiz seeds a valid two-question quiz over HTTP and returns its id.
func (e *testEnv) createQuiz(t *testing.T, title string) uint {
	t.Helper()

	resp, body := e.request(t, "POST", "/api/quizzes", validQuizInput(title), "")
	if resp.StatusCode != 201 {
		t.Fatalf("create quiz returned %d: %v", resp.StatusCode, body)
	}
	quiz := body["quiz"].(map[string]interface{})
	return uint(quiz["id"].(float64))
}
