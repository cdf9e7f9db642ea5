package main

import "time"

type contextKey string

// Difficulty selects the number range and attempt budget for a game.
type Difficulty string

// GuessOutcome is the result of comparing one guess to the secret.
type GuessOutcome string

// DifficultyParams holds the inclusive number range and attempt budget
// for a difficulty level.
type DifficultyParams struct {
	Low         int `json:"low"`
	High        int `json:"high"`
	MaxAttempts int `json:"maxAttempts"`
}

// GuessRecord is a single evaluated guess in a session's history.
type GuessRecord struct {
	Attempt int          `json:"attempt"`
	Guess   int          `json:"guess"`
	Outcome GuessOutcome `json:"outcome"`
	Hint    string       `json:"hint"`
}

// GameState represents a player's current game session. It is replaced
// wholesale on every new game or difficulty change, never merged.
type GameState struct {
	Difficulty        Difficulty    `json:"difficulty"`
	Low               int           `json:"low"`
	High              int           `json:"high"`
	Secret            int           `json:"secret"` // hidden from the view until the game ends
	MaxAttempts       int           `json:"maxAttempts"`
	AttemptsRemaining int           `json:"attemptsRemaining"`
	History           []GuessRecord `json:"history"`
	LastError         string        `json:"lastError,omitempty"`
	Status            string        `json:"status"`
	Score             int           `json:"score"`
	Revealed          int           `json:"revealed,omitempty"` // secret, exposed once Status leaves playing
	LastAccessTime    time.Time     `json:"lastAccessTime"`
}

// Over reports whether the session has finished (won or lost).
func (g *GameState) Over() bool {
	return g.Status != StatusPlaying
}

// AttemptsUsed returns how many attempts the session has consumed.
func (g *GameState) AttemptsUsed() int {
	return g.MaxAttempts - g.AttemptsRemaining
}
