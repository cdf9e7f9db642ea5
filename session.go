package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// getOrCreateSession retrieves the session ID from the cookie or creates a new one.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || len(sessionID) < 10 {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		secure := app.IsProduction
		c.SetCookie(SessionCookieName, sessionID, int(app.CookieMaxAge.Seconds()), "/", "", secure, true)
		logInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

// getGameState retrieves the GameState for a session, falling back to the
// on-disk copy after a restart and finally to a fresh Medium game.
func (app *App) getGameState(ctx context.Context, sessionID string) *GameState {
	app.SessionMutex.RLock()
	game, exists := app.GameSessions[sessionID]
	app.SessionMutex.RUnlock()
	if exists {
		app.SessionMutex.Lock()
		game.LastAccessTime = time.Now()
		app.SessionMutex.Unlock()
		return game
	}

	if restored, err := app.loadSessionFromFile(sessionID); err == nil {
		logInfo("Restored session %s from disk (difficulty %s, %d guesses)",
			sessionID, restored.Difficulty, len(restored.History))
		app.SessionMutex.Lock()
		app.GameSessions[sessionID] = restored
		app.SessionMutex.Unlock()
		return restored
	}

	logInfo("Creating new game for session: %s", sessionID)
	app.SessionMutex.Lock()
	game = app.createNewGame(ctx, sessionID, DifficultyMedium)
	app.SessionMutex.Unlock()
	return game
}

// saveGameState updates the in-memory game state for a session and writes
// the on-disk copy.
func (app *App) saveGameState(sessionID string, game *GameState) {
	app.SessionMutex.Lock()
	app.GameSessions[sessionID] = game
	game.LastAccessTime = time.Now()
	app.SessionMutex.Unlock()

	if err := app.saveSessionToFile(sessionID, game); err != nil {
		logWarn("Failed to persist session %s: %v", sessionID, err)
	}
}
