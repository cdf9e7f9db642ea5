package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"nombroludo/internal/store"
)

const testSessionID = "test-session-0123456789"

// setupTestApp creates an App with temp storage and a router with all routes.
func setupTestApp(t *testing.T) (*App, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scores, err := store.Open(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("Failed to open test score store: %v", err)
	}
	t.Cleanup(func() { scores.Close() })

	app := &App{
		GameSessions:   make(map[string]*GameState),
		Scores:         scores,
		SessionDir:     filepath.Join(t.TempDir(), "sessions"),
		SessionTimeout: 2 * time.Hour,
		CookieMaxAge:   2 * time.Hour,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
		LimiterMap:     make(map[string]*rate.Limiter),
		StartTime:      time.Now(),
	}

	router := gin.Default()
	router.LoadHTMLGlob("templates/*.html")
	router.GET(RouteHome, app.homeHandler)
	router.GET(RouteNewGame, app.newGameHandler)
	router.POST(RouteNewGame, app.newGameHandler)
	router.POST(RouteGuess, app.guessHandler)
	router.POST(RouteDifficulty, app.difficultyHandler)
	router.GET(RouteGameState, app.gameStateHandler)
	router.GET(RouteLeaderboard, app.leaderboardHandler)
	router.GET("/healthz", app.healthzHandler)
	return app, router
}

// seedGame installs a game with a known secret under testSessionID.
func seedGame(app *App, difficulty Difficulty, secret int) *GameState {
	params := difficultyParams(difficulty)
	game := &GameState{
		Difficulty:        difficulty,
		Low:               params.Low,
		High:              params.High,
		Secret:            secret,
		MaxAttempts:       params.MaxAttempts,
		AttemptsRemaining: params.MaxAttempts,
		History:           []GuessRecord{},
		Status:            StatusPlaying,
		LastAccessTime:    time.Now(),
	}
	app.GameSessions[testSessionID] = game
	return game
}

func postForm(router *gin.Engine, path, form string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: testSessionID})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHomeHandler(t *testing.T) {
	_, router := setupTestApp(t)
	req, _ := http.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET / returned status %d, want 200", w.Code)
	}
}

func TestNewGameHandler_Redirects(t *testing.T) {
	_, router := setupTestApp(t)
	req, _ := http.NewRequest("GET", "/new-game", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusSeeOther && w.Code != http.StatusFound {
		t.Errorf("GET /new-game returned status %d, want 303 or 302", w.Code)
	}
}

func TestNewGameHandler_ClearsStateKeepsDifficulty(t *testing.T) {
	app, router := setupTestApp(t)
	game := seedGame(app, DifficultyHard, 42)
	game.History = append(game.History, GuessRecord{Attempt: 1, Guess: 10, Outcome: OutcomeTooLow})
	game.AttemptsRemaining = 2
	game.LastError = ErrorNotANumber

	req, _ := http.NewRequest("GET", "/new-game", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: testSessionID})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusSeeOther && w.Code != http.StatusFound {
		t.Fatalf("GET /new-game returned status %d, want redirect", w.Code)
	}

	fresh := app.GameSessions[testSessionID]
	if fresh == game {
		t.Fatal("New game must replace the GameState, not reuse it")
	}
	if fresh.Difficulty != DifficultyHard {
		t.Errorf("Difficulty = %v, want Hard preserved", fresh.Difficulty)
	}
	if len(fresh.History) != 0 || fresh.LastError != "" {
		t.Error("New game must clear history and error")
	}
	if fresh.AttemptsRemaining != fresh.MaxAttempts {
		t.Error("New game must restore the full attempt budget")
	}
}

func TestNewGameHandler_ResetRotatesCookie(t *testing.T) {
	_, router := setupTestApp(t)
	req, _ := http.NewRequest("GET", "/new-game?reset=1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("Expected session_id cookie to be set on reset")
	}
}

func TestGuessHandler_InvalidInputCostsNoAttempt(t *testing.T) {
	app, router := setupTestApp(t)
	seedGame(app, DifficultyMedium, 30)

	w := postForm(router, "/guess", "guess=abc")
	if w.Code != http.StatusOK {
		t.Fatalf("POST /guess returned status %d, want 200", w.Code)
	}

	game := app.GameSessions[testSessionID]
	if game.AttemptsRemaining != game.MaxAttempts {
		t.Errorf("Invalid input consumed an attempt: %d/%d", game.AttemptsRemaining, game.MaxAttempts)
	}
	if len(game.History) != 0 {
		t.Error("Invalid input must not be appended to history")
	}
	if game.LastError != ErrorNotANumber {
		t.Errorf("LastError = %q, want %q", game.LastError, ErrorNotANumber)
	}
}

func TestGuessHandler_OutOfRangeCostsNoAttempt(t *testing.T) {
	app, router := setupTestApp(t)
	seedGame(app, DifficultyEasy, 10)

	postForm(router, "/guess", "guess=500")

	game := app.GameSessions[testSessionID]
	if game.AttemptsRemaining != game.MaxAttempts || len(game.History) != 0 {
		t.Error("Out-of-range guess must not consume an attempt")
	}
	if game.LastError == "" {
		t.Error("Out-of-range guess should set a user-visible error")
	}
}

func TestGuessHandler_WrongGuessConsumesAttempt(t *testing.T) {
	app, router := setupTestApp(t)
	seedGame(app, DifficultyMedium, 30)

	w := postForm(router, "/guess", "guess=10")
	if w.Code != http.StatusOK {
		t.Fatalf("POST /guess returned status %d, want 200", w.Code)
	}

	game := app.GameSessions[testSessionID]
	if game.AttemptsRemaining != game.MaxAttempts-1 {
		t.Errorf("AttemptsRemaining = %d, want %d", game.AttemptsRemaining, game.MaxAttempts-1)
	}
	if len(game.History) != 1 || game.History[0].Outcome != OutcomeTooLow {
		t.Errorf("History = %+v, want one too-low record", game.History)
	}
	if game.LastError != "" {
		t.Errorf("LastError = %q, want cleared after a valid guess", game.LastError)
	}
}

func TestGuessHandler_WinRecordsHighScore(t *testing.T) {
	app, router := setupTestApp(t)
	seedGame(app, DifficultyMedium, 30)

	postForm(router, "/guess", "guess=30")

	game := app.GameSessions[testSessionID]
	if game.Status != StatusWon {
		t.Fatalf("Status = %q, want won", game.Status)
	}
	if game.Score != 90 {
		t.Errorf("Score = %d, want 90", game.Score)
	}

	best, ok, err := app.Scores.Best(dummyContext())
	if err != nil || !ok {
		t.Fatalf("Best() = ok=%v err=%v, want a recorded win", ok, err)
	}
	if best.Points != 90 || best.Attempts != 1 || best.Difficulty != "Medium" {
		t.Errorf("Best = %+v, want 90 points in 1 attempt on Medium", best)
	}
}

func TestGuessHandler_ExhaustionLoses(t *testing.T) {
	app, router := setupTestApp(t)
	game := seedGame(app, DifficultyHard, 30)
	game.AttemptsRemaining = 1

	postForm(router, "/guess", "guess=99")
	if game.Status != StatusLost {
		t.Fatalf("Status = %q, want lost", game.Status)
	}

	// A further guess on the finished game must change nothing.
	w := postForm(router, "/guess", "guess=30")
	if w.Code != http.StatusOK {
		t.Fatalf("POST /guess on finished game returned %d, want 200", w.Code)
	}
	if game.Status != StatusLost || len(game.History) != 1 {
		t.Error("Guess on a finished game must not mutate state")
	}
}

func TestDifficultyHandler_AtomicReset(t *testing.T) {
	app, router := setupTestApp(t)
	game := seedGame(app, DifficultyMedium, 30)
	game.History = append(game.History, GuessRecord{Attempt: 1, Guess: 10, Outcome: OutcomeTooLow})
	game.AttemptsRemaining = 7
	game.LastError = ErrorNotANumber

	w := postForm(router, "/difficulty", "difficulty=Easy")
	if w.Code != http.StatusSeeOther && w.Code != http.StatusFound {
		t.Fatalf("POST /difficulty returned status %d, want redirect", w.Code)
	}

	fresh := app.GameSessions[testSessionID]
	if fresh == game {
		t.Fatal("Difficulty change must allocate a new GameState")
	}
	if fresh.Difficulty != DifficultyEasy || fresh.Low != 1 || fresh.High != 20 {
		t.Errorf("Fresh game = %v %d-%d, want Easy 1-20", fresh.Difficulty, fresh.Low, fresh.High)
	}
	if len(fresh.History) != 0 || fresh.LastError != "" || fresh.AttemptsRemaining != 6 {
		t.Error("Difficulty change must reset history, error and attempts together")
	}
	if fresh.Secret < fresh.Low || fresh.Secret > fresh.High {
		t.Errorf("Secret %d outside new range [%d, %d]", fresh.Secret, fresh.Low, fresh.High)
	}
}

func TestGameStateHandler(t *testing.T) {
	_, router := setupTestApp(t)
	req, _ := http.NewRequest("GET", "/game-state", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET /game-state returned status %d, want 200", w.Code)
	}
}

func TestLeaderboardHandler(t *testing.T) {
	app, router := setupTestApp(t)
	ctx := dummyContext()
	if err := app.Scores.RecordWin(ctx, 70, "Easy", 4); err != nil {
		t.Fatalf("RecordWin failed: %v", err)
	}
	if err := app.Scores.RecordWin(ctx, 90, "Hard", 2); err != nil {
		t.Fatalf("RecordWin failed: %v", err)
	}

	req, _ := http.NewRequest("GET", "/leaderboard", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /leaderboard returned status %d, want 200", w.Code)
	}

	var resp struct {
		Scores []store.HighScore `json:"scores"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal /leaderboard response: %v", err)
	}
	if len(resp.Scores) != 2 {
		t.Fatalf("Leaderboard has %d entries, want 2", len(resp.Scores))
	}
	if resp.Scores[0].Points != 90 {
		t.Errorf("Top score = %d, want 90 first", resp.Scores[0].Points)
	}
}

func TestHealthzHandler_Fields(t *testing.T) {
	_, router := setupTestApp(t)
	req, _ := http.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz returned status %d, want 200", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal /healthz response: %v", err)
	}
	for _, field := range []string{"status", "env", "active_sessions", "best_score", "uptime", "timestamp"} {
		if _, ok := resp[field]; !ok {
			t.Errorf("Expected %q field in /healthz response", field)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	app, _ := setupTestApp(t)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(app.rateLimitMiddleware())
	router.GET("/limited", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req, _ := http.NewRequest("GET", "/limited", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("11th request: expected 429 Too Many Requests, got %d", w.Code)
	}
}
