package game

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mcoot/nethang/internal/model"
)

// Guess is a parsed guess: one letter or a whole word, lower-cased
type Guess struct {
	Text   string
	Letter rune
	Whole  bool
}

// ParseGuess interprets a line typed by the active guesser
func ParseGuess(text, word string) (Guess, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		return Guess{}, fmt.Errorf("%w: empty guess", model.ErrProtocolViolation)
	case n == 1:
		letter, _ := utf8.DecodeRuneInString(text)
		if !unicode.IsLetter(letter) {
			return Guess{}, fmt.Errorf("%w: guess a letter", model.ErrProtocolViolation)
		}
		return Guess{Text: text, Letter: letter}, nil
	case n != utf8.RuneCountInString(word):
		return Guess{}, fmt.Errorf("%w: the word has %d characters", model.ErrProtocolViolation, utf8.RuneCountInString(word))
	default:
		return Guess{Text: text, Whole: true}, nil
	}
}

// Resolve applies a guess to the round, updating tried symbols and the fail
// count, and classifies it for scoring
func Resolve(r *model.Round, g Guess) model.GuessKind {
	kind := classify(r, g)
	r.MarkTried(g.Text)
	if kind == model.GuessCorrectWord {
		r.RevealAll()
	}
	if kind.CountsAsFail() {
		r.Fails++
	}
	return kind
}

func classify(r *model.Round, g Guess) model.GuessKind {
	word := strings.ToLower(r.Word)
	switch {
	case g.Whole && g.Text == word:
		return model.GuessCorrectWord
	case g.Whole:
		return model.GuessWrongWord
	case r.HasTried(g.Text):
		return model.GuessRepeatedLetter
	case strings.ContainsRune(word, g.Letter):
		return model.GuessCorrectLetter
	default:
		return model.GuessWrongLetter
	}
}

// ValidateWord checks a secret word submitted by the hanger
func ValidateWord(word string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(word)
	if n < minLen || n > maxLen {
		return fmt.Errorf("%w: word must be %d to %d characters", model.ErrProtocolViolation, minLen, maxLen)
	}
	if !strings.ContainsFunc(word, unicode.IsLetter) {
		return fmt.Errorf("%w: word must contain a letter", model.ErrProtocolViolation)
	}
	return nil
}
