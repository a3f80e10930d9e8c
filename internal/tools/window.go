package tools

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ai-atl/hoopcast/internal/models"
)

// window is a parsed stats-tool window argument: "season", "gamesN", or
// "daysN", anchored to the matchup date and season per section 4.11.
type window struct {
	kind string // "season" | "games" | "days"
	n int
}

func parseWindow(raw string) (window, error) {
	switch {
	case raw == "" || raw == "season":
		return window{kind: "season"}, nil
	case strings.HasPrefix(raw, "games"):
		n, err := strconv.Atoi(strings.TrimPrefix(raw, "games"))
		if err != nil || n <= 0 {
			return window{}, fmt.Errorf("tools: malformed window %q", raw)
		}
		return window{kind: "games", n: n}, nil
	case strings.HasPrefix(raw, "days"):
		n, err := strconv.Atoi(strings.TrimPrefix(raw, "days"))
		if err != nil || n <= 0 {
			return window{}, fmt.Errorf("tools: malformed window %q", raw)
		}
		return window{kind: "days", n: n}, nil
	default:
		return window{}, fmt.Errorf("tools: unknown window %q, want season|gamesN|daysN", raw)
	}
}

// applyWindow sorts a team's games (all before the anchor date) ascending by
// date in place and trims them down to the requested window.
func applyWindow(games []models.Game, anchor time.Time, w window) []models.Game {
	sort.Slice(games, func(i, j int) bool { return games[i].Date.Before(games[j].Date) })

	switch w.kind {
	case "games":
		if len(games) <= w.n {
			return games
		}
		return games[len(games)-w.n:]
	case "days":
		cutoff := anchor.AddDate(0, 0, -w.n)
		out := games[:0:0]
		for _, g := range games {
			if !g.Date.Before(cutoff) {
				out = append(out, g)
			}
		}
		return out
	default: // "season"
		return games
	}
}
