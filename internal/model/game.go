package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// GameID uniquely identifies a game session
type GameID string

// GameMode selects the rules a session is played with
type GameMode string

const (
	ModeRoundRobin GameMode = "round-robin"
	ModeKingOfHill GameMode = "king-of-the-hill"
	ModeWordlist   GameMode = "wordlist"
	ModeTimeAttack GameMode = "time-attack"
)

// ParseGameMode maps a configuration value to a GameMode
func ParseGameMode(s string) (GameMode, error) {
	switch mode := GameMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case ModeRoundRobin, ModeKingOfHill, ModeWordlist, ModeTimeAttack:
		return mode, nil
	case "":
		return ModeRoundRobin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGameMode, s)
	}
}

// DefaultMaxFails is the last survivable fail count; one more loses the round
const DefaultMaxFails = 9

// GuessKind classifies how a guess resolved
type GuessKind string

const (
	GuessRepeatedLetter GuessKind = "repeated_letter"
	GuessWrongLetter    GuessKind = "wrong_letter"
	GuessCorrectLetter  GuessKind = "correct_letter"
	GuessCorrectWord    GuessKind = "correct_word"
	GuessWrongWord      GuessKind = "wrong_word"
)

// CountsAsFail reports whether the guess increments the fail count
func (k GuessKind) CountsAsFail() bool {
	switch k {
	case GuessRepeatedLetter, GuessWrongLetter, GuessWrongWord:
		return true
	default:
		return false
	}
}

// RoundOutcome is how a round ended
type RoundOutcome string

const (
	OutcomeGuessersWin  RoundOutcome = "guessers-win"
	OutcomeGuessersLose RoundOutcome = "guessers-lose"
	OutcomeAborted      RoundOutcome = "aborted"
)

// Round is the state of one word-guessing contest
type Round struct {
	Index    int
	Hanger   string
	Guessers []string
	Word     string
	Tried    []string
	Fails    int
	MaxFails int

	next int
}

// NewRound creates a round with a fixed guesser order
func NewRound(index int, hanger string, guessers []string, maxFails int) *Round {
	return &Round{
		Index:    index,
		Hanger:   hanger,
		Guessers: append([]string(nil), guessers...),
		MaxFails: maxFails,
	}
}

// HasTried reports whether symbol (a letter or a whole word) was already guessed
func (r *Round) HasTried(symbol string) bool {
	symbol = strings.ToLower(symbol)
	for _, t := range r.Tried {
		if t == symbol {
			return true
		}
	}
	return false
}

// TriedLetters returns the guessed single letters as a set for masking
func (r *Round) TriedLetters() map[rune]bool {
	letters := make(map[rune]bool)
	for _, t := range r.Tried {
		runes := []rune(t)
		if len(runes) == 1 {
			letters[runes[0]] = true
		}
	}
	return letters
}

// MarkTried records a symbol once
func (r *Round) MarkTried(symbol string) {
	symbol = strings.ToLower(symbol)
	if !r.HasTried(symbol) {
		r.Tried = append(r.Tried, symbol)
	}
}

// RevealAll marks every letter of the word as guessed
func (r *Round) RevealAll() {
	for _, c := range r.Word {
		if unicode.IsLetter(c) {
			r.MarkTried(string(unicode.ToLower(c)))
		}
	}
}

// Lost reports whether the fail count went past the limit
func (r *Round) Lost() bool {
	return r.Fails > r.MaxFails
}

// NextGuesser returns the next guesser in rotation that present accepts.
// It returns false when no guesser is present any more.
func (r *Round) NextGuesser(present func(nickname string) bool) (string, bool) {
	for i := 0; i < len(r.Guessers); i++ {
		candidate := r.Guessers[r.next%len(r.Guessers)]
		r.next = (r.next + 1) % len(r.Guessers)
		if present(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// RoundSummary records how a finished round went
type RoundSummary struct {
	Index   int          `json:"index"`
	Hanger  string       `json:"hanger"`
	Word    string       `json:"word"`
	Outcome RoundOutcome `json:"outcome"`
	Fails   int          `json:"fails"`
	Turns   int          `json:"turns"`
}

// GameSummary is the persisted record of a finished game
type GameSummary struct {
	ID          GameID         `json:"id"`
	Mode        GameMode       `json:"mode"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Rounds      []RoundSummary `json:"rounds"`
	FinalScores map[string]int `json:"final_scores"`
	Winner      string         `json:"winner,omitempty"`
	EndReason   string         `json:"end_reason"`
}

// ComputeWinner picks the single highest final score; ties have no winner
func (g *GameSummary) ComputeWinner() string {
	best, winner, tie := 0, "", false
	for nick, score := range g.FinalScores {
		switch {
		case winner == "" || score > best:
			best, winner, tie = score, nick, false
		case score == best:
			tie = true
		}
	}
	if tie {
		return ""
	}
	return winner
}
