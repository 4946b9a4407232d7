// Package render builds the ANSI text sent to terminal clients.
package render

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/services/mask"
)

// ClearScreen erases the terminal and homes the cursor
const ClearScreen = "\033[2J\033[H"

const titleText = " ============= Welcome to Hangman ============="

// Renderer formats game output. Colors are forced on or off explicitly
// because output goes to sockets, not to the server's own terminal.
type Renderer struct {
	accent *color.Color
	bar    *color.Color
	alert  *color.Color
	good   *color.Color
	width  int
}

// New creates a Renderer
func New(colorEnabled bool) *Renderer {
	r := &Renderer{
		accent: color.New(color.FgCyan, color.Bold),
		bar:    color.New(color.ReverseVideo, color.FgCyan),
		alert:  color.New(color.FgRed, color.Bold),
		good:   color.New(color.FgGreen, color.Bold),
		width:  mask.DefaultWidth,
	}
	for _, c := range []*color.Color{r.accent, r.bar, r.alert, r.good} {
		if colorEnabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Clear returns the clear-screen sequence
func (r *Renderer) Clear() string {
	return ClearScreen
}

// Title is the first thing a new connection sees
func (r *Renderer) Title() string {
	return ClearScreen + r.accent.Sprint(titleText) + "\n"
}

// Opening describes the game modes once a nickname is accepted
func (r *Renderer) Opening() string {
	var b strings.Builder
	b.WriteString("\nWelcome to the game of Hangman on command line!\n")
	b.WriteString("Several players share one game, taking turns to\n")
	b.WriteString("guess the word another player has chosen. Modes:\n\n")
	modes := []struct {
		key, text string
	}{
		{"a.", "Round-robin hanger: the player who chooses the\n    word changes every round;"},
		{"b.", "King of the hill: whoever guesses the word\n    chooses the next one;"},
		{"c.", "Wordlist: nobody hangs, words come from a list;"},
		{"d.", "Time attack: a wordlist without turns, guess\n    as fast as you can."},
	}
	for _, m := range modes {
		fmt.Fprintf(&b, " %s %s\n\n", r.accent.Sprint(m.key), m.text)
	}
	fmt.Fprintf(&b, "You can %s at any moment with %s (Ctrl-C).\n\n", r.accent.Sprint("quit"), r.accent.Sprint("^C"))
	return b.String()
}

// RejoinCode tells a player how to reclaim their nickname
func (r *Renderer) RejoinCode(code string) string {
	return "Your rejoin code is " + r.alert.Sprint(code) + ".\n\n"
}

// LobbyWait tells a newly admitted player when play starts
func (r *Renderer) LobbyWait(seconds int, gameActive bool) string {
	if gameActive {
		return "A game is in progress, you will play from the next round.\n"
	}
	return fmt.Sprintf("The next game starts %s after at least two players are here.\n", in(seconds))
}

// Countdown announces the lobby timer
func (r *Renderer) Countdown(seconds int) string {
	return fmt.Sprintf("Starting %s.\n", in(seconds))
}

func in(seconds int) string {
	return "in " + PrettyDuration(seconds)
}

// Chat formats a lobby line
func (r *Renderer) Chat(nickname, text string) string {
	return r.accent.Sprint(nickname) + ": " + text + "\n"
}

// Notice formats a server message
func (r *Renderer) Notice(format string, args ...any) string {
	return fmt.Sprintf(format, args...) + "\n"
}

// Prompt formats a question awaiting a line of input
func (r *Renderer) Prompt(text string) string {
	return r.accent.Sprint(text) + " "
}

// Figure draws the gallows for the fail count with a progress bar
func (r *Renderer) Figure(fails int) string {
	stage := min(max(fails, 0), MaxStage)
	lines := append([]string(nil), gallows[stage]...)

	progress := fmt.Sprintf("%d/%d", stage, MaxStage)
	cells := " " + progress + strings.Repeat(" ", MaxStage-len(progress)+1)
	filled := min(stage, len(cells))
	bar := "[" + r.bar.Sprint(cells[:filled]) + cells[filled:] + "]"

	last := len(lines) - 1
	lines[last] = fmt.Sprintf("%-9s%s", lines[last], bar)
	return "\n" + strings.Join(lines, "\n") + "\n"
}

// MaskedWord shows the secret word with unguessed letters hidden and revealed
// characters highlighted, wrapped at the renderer width
func (r *Renderer) MaskedWord(word string, tried map[rune]bool) string {
	return mask.Wrap(mask.Cells(word, tried), r.width, func(c mask.Cell) string {
		if c.Revealed {
			return r.accent.Sprint(string(c.Rune))
		}
		return string(mask.Rune)
	}) + "\n"
}

// Tried lists every guessed symbol
func (r *Renderer) Tried(tried []string) string {
	if len(tried) == 0 {
		return "Tried: nothing yet\n"
	}
	return "Tried: " + strings.Join(tried, ", ") + "\n"
}

// Scoreboard lists standings, best first
func (r *Renderer) Scoreboard(entries []model.ScoreEntry) string {
	var b strings.Builder
	b.WriteString(r.accent.Sprint("Scoreboard") + "\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%2d. %-32s %6d\n", i+1, e.Nickname, e.Score)
	}
	return b.String()
}

// GuessResult annotates the last guess
func (r *Renderer) GuessResult(nickname, guess string, kind model.GuessKind, delta int) string {
	var verdict string
	switch kind {
	case model.GuessRepeatedLetter:
		verdict = "was already tried"
	case model.GuessWrongLetter, model.GuessWrongWord:
		verdict = "is wrong"
	default:
		verdict = "is right"
	}
	sign := r.good
	if delta < 0 {
		sign = r.alert
	}
	return fmt.Sprintf("%s guessed '%s', which %s (%s).\n", nickname, guess, verdict, sign.Sprintf("%+d", delta))
}

// RoundResult reveals the word and announces the outcome
func (r *Renderer) RoundResult(word string, outcome model.RoundOutcome) string {
	reveal := "The word was " + r.accent.Sprint(word) + ".\n"
	switch outcome {
	case model.OutcomeGuessersWin:
		return reveal + r.good.Sprint("The guessers win!") + "\n"
	case model.OutcomeGuessersLose:
		return reveal + r.alert.Sprint("The guessers were hanged!") + "\n"
	default:
		return reveal + "The round was abandoned.\n"
	}
}
