package tools

import (
	"testing"
	"time"

	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	cases := map[string]window{
		"":       {kind: "season"},
		"season": {kind: "season"},
		"games10": {kind: "games", n: 10},
		"days30":  {kind: "days", n: 30},
	}
	for raw, want := range cases {
		got, err := parseWindow(raw)
		require.NoErrorf(t, err, "parseWindow(%q)", raw)
		assert.Equalf(t, want, got, "parseWindow(%q)", raw)
	}
}

func TestParseWindowRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"gamesX", "daysX", "quarter"} {
		_, err := parseWindow(raw)
		assert.Errorf(t, err, "expected error for malformed window %q", raw)
	}
}

func TestApplyWindowGamesN(t *testing.T) {
	anchor := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	var games []models.Game
	for i := 0; i < 5; i++ {
		games = append(games, models.Game{GameID: string(rune('a' + i)), Date: anchor.AddDate(0, 0, -i)})
	}
	w := window{kind: "games", n: 2}
	out := applyWindow(games, anchor, w)
	assert.Len(t, out, 2)
}

func TestApplyWindowDaysN(t *testing.T) {
	anchor := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	games := []models.Game{
		{GameID: "recent", Date: anchor.AddDate(0, 0, -1)},
		{GameID: "old", Date: anchor.AddDate(0, 0, -40)},
	}
	out := applyWindow(games, anchor, window{kind: "days", n: 7})
	require.Len(t, out, 1)
	assert.Equal(t, "recent", out[0].GameID)
}

func TestEvalExprArithmetic(t *testing.T) {
	cases := map[string]float64{
		"1 + 2":       3,
		"2 * (3 + 4)": 14,
		"10 / 4":      2.5,
		"-5 + 2":      -3,
	}
	for expr, want := range cases {
		v, err := evalExprFromString(t, expr)
		require.NoErrorf(t, err, "eval(%q)", expr)
		assert.Equalf(t, want, v, "eval(%q)", expr)
	}
}

func TestEvalExprDivisionByZero(t *testing.T) {
	_, err := evalExprFromString(t, "1 / 0")
	assert.Error(t, err, "expected division by zero error")
}

func evalExprFromString(t *testing.T, code string) (float64, error) {
	t.Helper()
	r := &Registry{}
	v, err := r.toolRunCode(nil, map[string]any{"code": code})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}
