// Package mask produces the partially revealed form of a secret word.
package mask

import (
	"strings"
	"unicode"
)

// Rune hides a letter that has not been guessed yet
const Rune = '.'

// DefaultWidth is the column at which masked words are wrapped
const DefaultWidth = 48

// Cell is one character of a secret word and whether it is shown
type Cell struct {
	Rune     rune
	Revealed bool
}

// Cells classifies every character of word. Non-letters are always shown;
// letters are shown once their lower-case form is in tried.
func Cells(word string, tried map[rune]bool) []Cell {
	cells := make([]Cell, 0, len(word))
	for _, c := range word {
		revealed := !unicode.IsLetter(c) || tried[unicode.ToLower(c)]
		cells = append(cells, Cell{Rune: c, Revealed: revealed})
	}
	return cells
}

// Mask renders word with unrevealed letters replaced by Rune
func Mask(word string, tried map[rune]bool) string {
	var b strings.Builder
	for _, cell := range Cells(word, tried) {
		if cell.Revealed {
			b.WriteRune(cell.Rune)
		} else {
			b.WriteRune(Rune)
		}
	}
	return b.String()
}

// Revealed reports whether every letter of word has been guessed
func Revealed(word string, tried map[rune]bool) bool {
	for _, cell := range Cells(word, tried) {
		if !cell.Revealed {
			return false
		}
	}
	return true
}

// Wrap renders cells through show and breaks the line with a hyphenated
// continuation every width characters
func Wrap(cells []Cell, width int, show func(Cell) string) string {
	if width <= 0 {
		width = DefaultWidth
	}
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 && i%width == 0 {
			b.WriteString("-\n-")
		}
		b.WriteString(show(cell))
	}
	return b.String()
}

// Plain shows revealed cells as themselves and hides the rest
func Plain(cell Cell) string {
	if cell.Revealed {
		return string(cell.Rune)
	}
	return string(Rune)
}
