package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nombroludo/internal/store"
)

// homeHandler renders the main game page for the current session.
func (app *App) homeHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	game := app.getGameState(ctx, sessionID)
	best, hasBest := app.bestScore(c)

	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":   "Nombroludo - Guess the Number",
		"message": "Guess the secret number!",
		"game":    game,
		"best":    best,
		"hasBest": hasBest,
	})
}

// newGameHandler replaces the session's game with a fresh one at the same
// difficulty, optionally rotating the session ID.
func (app *App) newGameHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	logInfo("Creating new game for session: %s", sessionID)

	difficulty := DifficultyMedium
	app.SessionMutex.RLock()
	if old, exists := app.GameSessions[sessionID]; exists {
		difficulty = old.Difficulty
	}
	app.SessionMutex.RUnlock()

	app.SessionMutex.Lock()
	delete(app.GameSessions, sessionID)
	app.SessionMutex.Unlock()
	app.removeSessionFile(sessionID)

	if c.Query("reset") == "1" {
		c.SetSameSite(http.SameSiteStrictMode)
		secure := app.IsProduction
		c.SetCookie(SessionCookieName, "", -1, "/", "", secure, true)

		newSessionID := uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(SessionCookieName, newSessionID, int(app.CookieMaxAge.Seconds()), "/", "", secure, true)
		logInfo("Created new session ID: %s", newSessionID)
		sessionID = newSessionID
	}

	app.SessionMutex.Lock()
	game := app.createNewGame(ctx, sessionID, difficulty)
	app.SessionMutex.Unlock()
	app.saveGameState(sessionID, game)

	if c.GetHeader("HX-Request") == "true" {
		c.HTML(http.StatusOK, "game-content", gin.H{
			"game":    game,
			"newGame": true,
		})
	} else {
		c.Redirect(http.StatusSeeOther, RouteHome)
	}
}

// difficultyHandler switches the session to a new difficulty. The switch and
// the game reset happen as one transaction under the session lock.
func (app *App) difficultyHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	difficulty := parseDifficulty(c.PostForm("difficulty"))
	logInfo("Session %s switching difficulty to %s", sessionID, difficulty)

	app.SessionMutex.Lock()
	delete(app.GameSessions, sessionID)
	game := app.createNewGame(ctx, sessionID, difficulty)
	app.SessionMutex.Unlock()
	app.saveGameState(sessionID, game)

	if c.GetHeader("HX-Request") == "true" {
		c.HTML(http.StatusOK, "game-content", gin.H{
			"game":    game,
			"newGame": true,
		})
	} else {
		c.Redirect(http.StatusSeeOther, RouteHome)
	}
}

// guessHandler processes a guess submission, validates it, and updates the
// game state. Invalid input surfaces an error message without consuming an
// attempt.
func (app *App) guessHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	game := app.getGameState(ctx, sessionID)
	isHTMX := c.GetHeader("HX-Request") == "true"

	render := func(errMsg string) {
		if errMsg != "" {
			payload := map[string]string{"server_error": errMsg}
			if b, jerr := json.Marshal(payload); jerr == nil {
				c.Header("HX-Trigger", string(b))
			} else {
				logWarn("Failed to marshal HX-Trigger payload: %v", jerr)
			}
		}
		best, hasBest := app.bestScore(c)
		if isHTMX {
			c.HTML(http.StatusOK, "game-content", gin.H{
				"game":  game,
				"error": errMsg,
			})
		} else {
			c.HTML(http.StatusOK, "index.html", gin.H{
				"title":   "Nombroludo - Guess the Number",
				"message": "Guess the secret number!",
				"game":    game,
				"error":   errMsg,
				"best":    best,
				"hasBest": hasBest,
			})
		}
	}

	if game.Over() {
		logWarn("Session %s attempted guess on completed game", sessionID)
		render(ErrorGameOver)
		return
	}

	guess, err := parseGuess(c.PostForm("guess"))
	if err == nil {
		err = validateGuess(game, guess)
	}
	if err != nil {
		logInfo("Session %s submitted invalid guess: %v", sessionID, err)
		game.LastError = err.Error()
		app.saveGameState(sessionID, game)
		render(err.Error())
		return
	}

	logInfo("Session %s guessed %d (attempt %d/%d)", sessionID, guess, game.AttemptsUsed()+1, game.MaxAttempts)
	app.applyGuess(ctx, sessionID, game, guess)
	app.saveGameState(sessionID, game)
	render("")
}

// gameStateHandler renders the current game as an HTML fragment.
func (app *App) gameStateHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	game := app.getGameState(ctx, sessionID)

	c.HTML(http.StatusOK, "game-content", gin.H{
		"game": game,
	})
}

// leaderboardHandler returns the top recorded wins as JSON.
func (app *App) leaderboardHandler(c *gin.Context) {
	if app.Scores == nil {
		c.JSON(http.StatusOK, gin.H{"scores": []store.HighScore{}})
		return
	}
	scores, err := app.Scores.Top(c.Request.Context(), 10)
	if err != nil {
		logWarn("Failed to load leaderboard: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": scores})
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	uptime := time.Since(app.StartTime)

	app.SessionMutex.RLock()
	activeSessions := len(app.GameSessions)
	app.SessionMutex.RUnlock()

	best, hasBest := app.bestScore(c)
	bestPoints := 0
	if hasBest {
		bestPoints = best.Points
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"env":             map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"active_sessions": activeSessions,
		"best_score":      bestPoints,
		"uptime":          formatUptime(uptime),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// bestScore loads the current best win, tolerating a missing store.
func (app *App) bestScore(c *gin.Context) (store.HighScore, bool) {
	if app.Scores == nil {
		return store.HighScore{}, false
	}
	best, ok, err := app.Scores.Best(c.Request.Context())
	if err != nil {
		logWarn("Failed to load best score: %v", err)
		return store.HighScore{}, false
	}
	return best, ok
}
