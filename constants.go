package main

// Difficulty labels
const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Guess outcome constants
const (
	OutcomeCorrect GuessOutcome = "correct"
	OutcomeTooHigh GuessOutcome = "too-high"
	OutcomeTooLow  GuessOutcome = "too-low"
)

// Game status constants
const (
	StatusPlaying = "playing"
	StatusWon     = "won"
	StatusLost    = "lost"
)

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteHome        = "/"
	RouteNewGame     = "/new-game"
	RouteGuess       = "/guess"
	RouteDifficulty  = "/difficulty"
	RouteGameState   = "/game-state"
	RouteLeaderboard = "/leaderboard"
)

// Error message constants
const (
	ErrorGameOver       = "Game is over."
	ErrorEmptyGuess     = "Enter a guess."
	ErrorNotANumber     = "That is not a number."
	ErrorDuplicateGuess = "You already guessed that number."
	ErrorOutOfRangeFmt  = "Guess must be between %d and %d."
)

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)
