package scoring

import "github.com/mcoot/nethang/internal/model"

// Reward and penalty constants. Score-scaled terms use floor division so
// negative scores shrink penalties the same way positive ones grow them.
const (
	RepeatedLetterBase = 5
	WrongLetterBase    = 12
	CorrectLetterBase  = 50
	CorrectWordReward  = 200
	WrongWordBase      = 200

	rewardStep = 500
)

// Service computes score deltas for resolved guesses
type Service struct{}

// New creates a new ScoringService
func New() *Service {
	return &Service{}
}

// Delta returns the score change for a guess of the given kind made by a
// player currently holding score
func (s *Service) Delta(kind model.GuessKind, score int) int {
	switch kind {
	case model.GuessRepeatedLetter:
		return RepeatedLetterPenalty(score)
	case model.GuessWrongLetter:
		return WrongLetterPenalty(score)
	case model.GuessCorrectLetter:
		return CorrectLetterReward(score)
	case model.GuessCorrectWord:
		return CorrectWordReward
	case model.GuessWrongWord:
		return WrongWordPenalty(score)
	default:
		return 0
	}
}

// RepeatedLetterPenalty is charged for guessing a letter that was already tried
func RepeatedLetterPenalty(score int) int {
	return -(RepeatedLetterBase + floorDiv(score, 10))
}

// WrongLetterPenalty is charged for a new letter that is not in the word
func WrongLetterPenalty(score int) int {
	return -(WrongLetterBase + floorDiv(score, 20))
}

// CorrectLetterReward shrinks as the score grows: the divisor stays 1 until
// score reaches 1000
func CorrectLetterReward(score int) int {
	return CorrectLetterBase / max(1, floorDiv(score, rewardStep))
}

// WrongWordPenalty is charged for a whole-word guess that misses
func WrongWordPenalty(score int) int {
	return -(WrongWordBase + floorDiv(score, 5))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
