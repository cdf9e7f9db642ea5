package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// difficultyParams returns the number range and attempt budget for a
// difficulty. Unknown difficulties get the widest range and the smallest
// attempt budget.
func difficultyParams(d Difficulty) DifficultyParams {
	switch d {
	case DifficultyEasy:
		return DifficultyParams{Low: 1, High: 20, MaxAttempts: 6}
	case DifficultyMedium:
		return DifficultyParams{Low: 1, High: 50, MaxAttempts: 8}
	case DifficultyHard:
		return DifficultyParams{Low: 1, High: 100, MaxAttempts: 5}
	default:
		return DifficultyParams{Low: 1, High: 100, MaxAttempts: 5}
	}
}

// parseDifficulty maps a form value to a known difficulty, defaulting to Medium.
func parseDifficulty(raw string) Difficulty {
	switch Difficulty(strings.TrimSpace(raw)) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyMedium:
		return DifficultyMedium
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// parseGuess converts raw user input into an integer guess. Float-like
// input is truncated ("52.9" becomes 52). The returned error carries the
// user-facing message and is never fatal.
func parseGuess(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, errors.New(ErrorEmptyGuess)
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New(ErrorNotANumber)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errors.New(ErrorNotANumber)
	}
	return int(f), nil
}

// checkGuess compares a guess to the secret and returns the outcome plus a
// direction hint for the player.
func checkGuess(guess, secret int) (GuessOutcome, string) {
	if guess == secret {
		return OutcomeCorrect, "Correct!"
	}
	if guess > secret {
		return OutcomeTooHigh, "Go lower!"
	}
	return OutcomeTooLow, "Go higher!"
}

// pointsForWin returns the points earned for winning in the given number
// of attempts. Faster wins score more, with a floor of 10.
func pointsForWin(attemptsUsed int) int {
	points := 100 - 10*attemptsUsed
	if points < 10 {
		return 10
	}
	return points
}

// randomSecret draws a secret uniformly from [low, high] inclusive using
// crypto/rand. Falls back to low on rand failure or cancelled context.
func (app *App) randomSecret(ctx context.Context, low, high int) int {
	reqID, _ := ctx.Value(requestIDKey).(string)

	select {
	case <-ctx.Done():
		if reqID != "" {
			logWarn("[request_id=%v] randomSecret cancelled: %v", reqID, ctx.Err())
		} else {
			logWarn("randomSecret cancelled: %v", ctx.Err())
		}
		return low
	default:
	}

	span := int64(high - low + 1)
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		if reqID != "" {
			logWarn("[request_id=%v] Error generating random number: %v, using fallback", reqID, err)
		} else {
			logWarn("Error generating random number: %v, using fallback", err)
		}
		return low
	}
	return low + int(n.Int64())
}

// createNewGame initializes a fresh GameState for a session at the given
// difficulty and stores it. History and last error start empty; the full
// attempt budget is restored. Caller must hold SessionMutex.
func (app *App) createNewGame(ctx context.Context, sessionID string, difficulty Difficulty) *GameState {
	params := difficultyParams(difficulty)
	secret := app.randomSecret(ctx, params.Low, params.High)
	logInfo("New %s game created for session %s (range %d-%d, %d attempts)",
		difficulty, sessionID, params.Low, params.High, params.MaxAttempts)

	game := &GameState{
		Difficulty:        difficulty,
		Low:               params.Low,
		High:              params.High,
		Secret:            secret,
		MaxAttempts:       params.MaxAttempts,
		AttemptsRemaining: params.MaxAttempts,
		History:           []GuessRecord{},
		LastError:         "",
		Status:            StatusPlaying,
		Score:             0,
		LastAccessTime:    time.Now(),
	}
	app.GameSessions[sessionID] = game
	return game
}

// validateGuess checks a parsed guess against the session's range and
// history. Failures are InvalidInput: they set no state and cost no attempt.
func validateGuess(game *GameState, guess int) error {
	if guess < game.Low || guess > game.High {
		return fmt.Errorf(ErrorOutOfRangeFmt, game.Low, game.High)
	}
	already := lo.ContainsBy(game.History, func(r GuessRecord) bool {
		return r.Guess == guess
	})
	if already {
		return errors.New(ErrorDuplicateGuess)
	}
	return nil
}

// applyGuess evaluates a valid guess against the session, appends it to the
// history, consumes an attempt and handles the won/lost transitions. The
// guess must already have passed validateGuess.
func (app *App) applyGuess(ctx context.Context, sessionID string, game *GameState, guess int) GuessOutcome {
	reqID, _ := ctx.Value(requestIDKey).(string)

	outcome, hint := checkGuess(guess, game.Secret)
	game.AttemptsRemaining--
	game.History = append(game.History, GuessRecord{
		Attempt: game.AttemptsUsed(),
		Guess:   guess,
		Outcome: outcome,
		Hint:    hint,
	})
	game.LastError = ""
	game.LastAccessTime = time.Now()

	switch {
	case outcome == OutcomeCorrect:
		game.Status = StatusWon
		game.Revealed = game.Secret
		points := pointsForWin(game.AttemptsUsed())
		game.Score += points
		if reqID != "" {
			logInfo("[request_id=%v] Session %s won in %d attempts, %d points", reqID, sessionID, game.AttemptsUsed(), points)
		} else {
			logInfo("Session %s won in %d attempts, %d points", sessionID, game.AttemptsUsed(), points)
		}
		app.recordWin(ctx, game)
	case game.AttemptsRemaining <= 0:
		game.Status = StatusLost
		game.Revealed = game.Secret
		if reqID != "" {
			logInfo("[request_id=%v] Session %s lost, secret was %d", reqID, sessionID, game.Secret)
		} else {
			logInfo("Session %s lost, secret was %d", sessionID, game.Secret)
		}
	}
	return outcome
}

// recordWin persists a win to the high-score store. Store failures are
// logged and never surfaced to the player.
func (app *App) recordWin(ctx context.Context, game *GameState) {
	if app.Scores == nil {
		return
	}
	points := pointsForWin(game.AttemptsUsed())
	if err := app.Scores.RecordWin(ctx, points, string(game.Difficulty), game.AttemptsUsed()); err != nil {
		logWarn("Failed to record win: %v", err)
	}
}
