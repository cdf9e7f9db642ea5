package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// saveSessionToFile persists a game session to disk so it survives restarts.
func (app *App) saveSessionToFile(sessionID string, game *GameState) error {
	if sessionID == "" || len(sessionID) < 10 {
		logWarn("Skipping save for invalid session ID: %s", sessionID)
		return nil
	}

	if err := os.MkdirAll(app.SessionDir, 0755); err != nil {
		return err
	}

	sessionFile := filepath.Join(app.SessionDir, sessionID+".json")
	game.LastAccessTime = time.Now()
	data, err := json.MarshalIndent(game, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sessionFile, data, 0644)
}

// loadSessionFromFile loads a game session from disk. Stale, corrupted or
// structurally invalid files are removed and reported as missing.
func (app *App) loadSessionFromFile(sessionID string) (*GameState, error) {
	if sessionID == "" || len(sessionID) < 10 {
		return nil, os.ErrNotExist
	}

	sessionFile := filepath.Join(app.SessionDir, sessionID+".json")
	info, err := os.Stat(sessionFile)
	if err != nil {
		return nil, err
	}

	fileAge := time.Since(info.ModTime())
	if fileAge > app.SessionTimeout {
		logInfo("Session file too old (%v, max %v), removing: %s", fileAge, app.SessionTimeout, sessionFile)
		os.Remove(sessionFile)
		return nil, os.ErrNotExist
	}

	data, err := os.ReadFile(sessionFile)
	if err != nil {
		return nil, err
	}

	var game GameState
	if err := json.Unmarshal(data, &game); err != nil {
		logWarn("Session file %s corrupted, removing: %v", sessionFile, err)
		os.Remove(sessionFile)
		return nil, os.ErrNotExist
	}

	// Secret must sit inside the session's range; anything else means the
	// file predates a format change or was tampered with.
	if game.MaxAttempts <= 0 || game.High < game.Low ||
		game.Secret < game.Low || game.Secret > game.High || game.Status == "" {
		logWarn("Session file %s has invalid structure, removing", sessionFile)
		os.Remove(sessionFile)
		return nil, os.ErrNotExist
	}
	if game.History == nil {
		game.History = []GuessRecord{}
	}

	game.LastAccessTime = time.Now()
	return &game, nil
}

// removeSessionFile deletes the persisted copy of a session, if any.
func (app *App) removeSessionFile(sessionID string) {
	if sessionID == "" || len(sessionID) < 10 {
		return
	}
	sessionFile := filepath.Join(app.SessionDir, sessionID+".json")
	if err := os.Remove(sessionFile); err != nil && !os.IsNotExist(err) {
		logWarn("Failed to remove session file %s: %v", sessionFile, err)
	}
}

// cleanupOldSessions removes session files older than maxAge.
func (app *App) cleanupOldSessions(maxAge time.Duration) error {
	entries, err := os.ReadDir(app.SessionDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	removedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errorCount++
			continue
		}
		if info.ModTime().Before(cutoff) {
			sessionFile := filepath.Join(app.SessionDir, entry.Name())
			if err := os.Remove(sessionFile); err != nil {
				logWarn("Failed to remove old session file %s: %v", sessionFile, err)
				errorCount++
			} else {
				removedCount++
			}
		}
	}

	logInfo("Session cleanup completed: removed %d files, %d errors", removedCount, errorCount)
	return nil
}
