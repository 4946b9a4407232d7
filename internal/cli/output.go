package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/mcoot/nethang/internal/api/response"
)

var heading = color.New(color.Bold)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Health:
		o.printf("Status: %s\n", v.Status)
	case response.Status:
		o.printStatus(v)
	case response.GameList:
		o.printGameList(v)
	case response.GameSummary:
		o.printGame(v)
	case response.Leaderboard:
		o.printLeaderboard(v)
	case response.Action:
		o.printf("%s: %s\n", actionDone(v.Action), v.Target)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printStatus(s response.Status) {
	switch {
	case s.GameActive && s.GameID != nil:
		o.printf("Game: in progress (%s)\n", *s.GameID)
	case s.GameActive:
		o.printf("Game: in progress\n")
	default:
		o.printf("Game: next one starts in %s\n", time.Duration(s.Countdown)*time.Second)
	}

	_, _ = heading.Fprintf(o.w, "Players (%d):\n", len(s.Players))
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	for _, p := range s.Players {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%d\tsince %s\n", p.Nickname, p.Address, p.Score, p.JoinedAt.Format(time.Kitchen))
	}
	_ = tw.Flush()

	if len(s.Denylist) > 0 {
		o.printf("Banned: %s\n", strings.Join(s.Denylist, ", "))
	}
}

func (o *Output) printGameList(l response.GameList) {
	if len(l.Games) == 0 {
		o.printf("No finished games\n")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tFINISHED\tROUNDS\tWINNER\tREASON")
	for _, g := range l.Games {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			g.ID, g.CompletedAt.Format(time.DateTime), len(g.Rounds), winnerName(g.Winner), g.EndReason)
	}
	_ = tw.Flush()
}

func (o *Output) printGame(g response.GameSummary) {
	_, _ = heading.Fprintf(o.w, "Game %s (%s)\n", g.ID, g.Mode)
	o.printf("Played: %s, %s\n", g.StartedAt.Format(time.DateTime), g.CompletedAt.Sub(g.StartedAt).Round(time.Second))
	o.printf("Ended: %s\n", g.EndReason)
	o.printf("Winner: %s\n", winnerName(g.Winner))

	if len(g.Rounds) > 0 {
		_, _ = heading.Fprintln(o.w, "Rounds:")
		for _, r := range g.Rounds {
			o.printf("  %d. %s hung %q: %s after %d turns, %d fails\n",
				r.Index, r.Hanger, r.Word, r.Outcome, r.Turns, r.Fails)
		}
	}

	_, _ = heading.Fprintln(o.w, "Final scores:")
	names := make([]string, 0, len(g.FinalScores))
	for name := range g.FinalScores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if g.FinalScores[names[i]] != g.FinalScores[names[j]] {
			return g.FinalScores[names[i]] > g.FinalScores[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		o.printf("  %s: %d\n", name, g.FinalScores[name])
	}
}

func (o *Output) printLeaderboard(l response.Leaderboard) {
	if len(l.Entries) == 0 {
		o.printf("Leaderboard is empty\n")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	for _, e := range l.Entries {
		_, _ = fmt.Fprintf(tw, "%d.\t%s\t%d\n", e.Rank, e.Nickname, e.Score)
	}
	_ = tw.Flush()
}

func winnerName(w *string) string {
	if w == nil {
		return "none"
	}
	return *w
}

func actionDone(action string) string {
	switch action {
	case "kick":
		return "Kicked"
	case "ban":
		return "Banned"
	default:
		return action
	}
}
