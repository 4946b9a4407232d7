package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGameMode(t *testing.T) {
	tests := []struct {
		input   string
		want    GameMode
		wantErr bool
	}{
		{input: "round-robin", want: ModeRoundRobin},
		{input: "", want: ModeRoundRobin},
		{input: " Time-Attack ", want: ModeTimeAttack},
		{input: "wordlist", want: ModeWordlist},
		{input: "king-of-the-hill", want: ModeKingOfHill},
		{input: "battle-royale", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGameMode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGameMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundNextGuesserCycles(t *testing.T) {
	r := NewRound(1, "Alice", []string{"Bob", "Carol"}, DefaultMaxFails)
	all := func(string) bool { return true }

	var order []string
	for i := 0; i < 5; i++ {
		nick, ok := r.NextGuesser(all)
		require.True(t, ok)
		order = append(order, nick)
	}
	assert.Equal(t, []string{"Bob", "Carol", "Bob", "Carol", "Bob"}, order)
}

func TestRoundNextGuesserSkipsAbsent(t *testing.T) {
	r := NewRound(1, "Alice", []string{"Bob", "Carol", "Dave"}, DefaultMaxFails)
	present := func(n string) bool { return n != "Carol" }

	first, _ := r.NextGuesser(present)
	second, _ := r.NextGuesser(present)
	third, _ := r.NextGuesser(present)
	assert.Equal(t, []string{"Bob", "Dave", "Bob"}, []string{first, second, third})
}

func TestRoundNextGuesserNonePresent(t *testing.T) {
	r := NewRound(1, "Alice", []string{"Bob"}, DefaultMaxFails)
	_, ok := r.NextGuesser(func(string) bool { return false })
	assert.False(t, ok)
}

func TestRoundLostOnlyPastMaxFails(t *testing.T) {
	r := NewRound(1, "Alice", []string{"Bob"}, DefaultMaxFails)
	r.Fails = 9
	assert.False(t, r.Lost())
	r.Fails = 10
	assert.True(t, r.Lost())
}

func TestRoundTried(t *testing.T) {
	r := NewRound(1, "Alice", []string{"Bob"}, DefaultMaxFails)
	r.Word = "Kite"
	r.MarkTried("K")
	r.MarkTried("k")
	r.MarkTried("kit")
	assert.Equal(t, []string{"k", "kit"}, r.Tried)
	assert.True(t, r.HasTried("K"))
	assert.Equal(t, map[rune]bool{'k': true}, r.TriedLetters())

	r.RevealAll()
	assert.Equal(t, map[rune]bool{'k': true, 'i': true, 't': true, 'e': true}, r.TriedLetters())
}

func TestComputeWinner(t *testing.T) {
	g := &GameSummary{FinalScores: map[string]int{"Alice": 10, "Bob": 50, "Carol": 3}}
	assert.Equal(t, "Bob", g.ComputeWinner())

	g.FinalScores["Carol"] = 50
	assert.Equal(t, "", g.ComputeWinner())

	assert.Equal(t, "", (&GameSummary{}).ComputeWinner())
}
