// Package leagueconfig resolves collection names, season rules, and
// league-specific constants for every other component. It replaces the
// teacher's module-level globals and scattered per-league constants with
// one explicit struct passed into every repository and context, plus a
// process-wide "active league" resolved once at boot.
package leagueconfig

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Collections names the logical document-store collections each league
// deployment uses. Per-league deployments may remap any of them via
// environment overrides.
type Collections struct {
	Games string
	PlayerStats string
	Players string
	Rosters string
	Teams string
	ModelConfig string
	ModelConfigPoints string
	ExperimentRuns string
	MasterTrainingMeta string
	CachedLeagueStats string
	CachedEloRatings string
	PointPredictionCache string
	ModelPredictions string
	PredictionScenarios string
	CachedNews string
	SharedContext string
}

func defaultCollections(league string) Collections {
	prefix := league + "_"
	return Collections{
		Games: prefix + "games",
		PlayerStats: prefix + "player_stats",
		Players: prefix + "players",
		Rosters: prefix + "rosters",
		Teams: prefix + "teams",
		ModelConfig: prefix + "model_config",
		ModelConfigPoints: prefix + "model_config_points",
		ExperimentRuns: prefix + "experiment_runs",
		MasterTrainingMeta: prefix + "master_training_metadata",
		CachedLeagueStats: prefix + "cached_league_stats",
		CachedEloRatings: prefix + "cached_elo_ratings",
		PointPredictionCache: prefix + "point_prediction_cache",
		ModelPredictions: prefix + "model_predictions",
		PredictionScenarios: prefix + "prediction_scenarios",
		CachedNews: prefix + "cached_news",
		SharedContext: prefix + "shared_context",
	}
}

// Config is everything the rest of the core needs to know about one league.
type Config struct {
	League string

	Collections Collections

	// SeasonCutoverMonth is the calendar month (1-12) that separates
	// consecutive seasons; a game on or after this month in year Y belongs to
	// season "Y-Y+1", before it to "Y-1-Y".
	SeasonCutoverMonth int
	SeasonStartMonth int
	SeasonStartDay int
	SeasonEndMonth int
	SeasonEndDay int

	// ExcludeGameTypes are omitted from training and records.
	ExcludeGameTypes []string

	// TeamPrimaryIdentifier names which field on a team doc identifies it
	// across collections ("abbr" or "external_id").
	TeamPrimaryIdentifier string

	// ESPNScoreboardTemplate and friends are per-league URL patterns with
	// placeholders, consumed only by the upstream client (external
	// collaborator; the core never dials them directly).
	ScoreboardURLTemplate string
	GameSummaryURLTemplate string
	VenueURLTemplate string

	// NewsSearchURLTemplate is the upstream news/media search endpoint the
	// Research/Media agent's tools query on a cache miss; a %s placeholder
	// receives the URL-encoded query.
	NewsSearchURLTemplate string

	// EloKFactor and EloHomeAdvantage parameterize EloCache.
	EloKFactor float64
	EloHomeAdvantage float64
	EloColdStart float64

	// MasterCSVRoot and ArtifactRoot are filesystem roots for the master
	// table, dataset cache, and model artifacts.
	MasterCSVRoot string
	ArtifactRoot string
}

var (
	mu sync.RWMutex
	registry = map[string]*Config{}
	active string
)

// Load builds a Config for league from environment variables, falling back
// to defaults when unset.
func Load(league string) *Config {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no.env file found, using process environment")
	}

	envPrefix := league + "_"
	cfg := &Config{
		League: league,
		Collections: defaultCollections(league),

		SeasonCutoverMonth: getEnvInt(envPrefix+"SEASON_CUTOVER_MONTH", 10),
		SeasonStartMonth: getEnvInt(envPrefix+"SEASON_START_MONTH", 10),
		SeasonStartDay: getEnvInt(envPrefix+"SEASON_START_DAY", 1),
		SeasonEndMonth: getEnvInt(envPrefix+"SEASON_END_MONTH", 6),
		SeasonEndDay: getEnvInt(envPrefix+"SEASON_END_DAY", 30),

		ExcludeGameTypes: []string{"preseason", "all_star"},

		TeamPrimaryIdentifier: getEnv(envPrefix+"TEAM_PRIMARY_IDENTIFIER", "abbr"),

		ScoreboardURLTemplate: getEnv(envPrefix+"ESPN_SCOREBOARD_URL", ""),
		GameSummaryURLTemplate: getEnv(envPrefix+"ESPN_SUMMARY_URL", ""),
		VenueURLTemplate: getEnv(envPrefix+"ESPN_VENUE_URL", ""),
		NewsSearchURLTemplate: getEnv(envPrefix+"NEWS_SEARCH_URL", ""),

		EloKFactor: getEnvFloat(envPrefix+"ELO_K_FACTOR", 20.0),
		EloHomeAdvantage: getEnvFloat(envPrefix+"ELO_HOME_ADVANTAGE", 100.0),
		EloColdStart: getEnvFloat(envPrefix+"ELO_COLD_START", 1500.0),

		MasterCSVRoot: getEnv(envPrefix+"MASTER_CSV_ROOT", "./data/"+league),
		ArtifactRoot: getEnv(envPrefix+"ARTIFACT_ROOT", "./artifacts/"+league),
	}

	if cfg.SeasonCutoverMonth < 1 || cfg.SeasonCutoverMonth > 12 {
		logrus.WithFields(logrus.Fields{"league": league, "value": cfg.SeasonCutoverMonth}).
		Warn("invalid season_cutover_month, defaulting to October")
		cfg.SeasonCutoverMonth = 10
	}

	return cfg
}

// RegisterLeague loads (if not already present) and registers cfg as an
// addressable league, without changing the active league.
func RegisterLeague(league string) *Config {
	mu.Lock()
	defer mu.Unlock()
	if cfg, ok := registry[league]; ok {
		return cfg
	}
	cfg := Load(league)
	registry[league] = cfg
	if active == "" {
		active = league
	}
	return cfg
}

// SetActive resolves the process-wide active league, used by components that
// are not explicitly handed a *Config (e.g. boot-time CLI wiring that lives
// outside this core).
func SetActive(league string) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[league]; !ok {
		registry[league] = Load(league)
	}
	active = league
}

// Active returns the process-wide active league config. Panics if none has
// been registered — callers inside this core should always receive a
// *Config explicitly; Active exists only for boot-time convenience.
func Active() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if active == "" {
		panic("leagueconfig: no active league registered; call SetActive first")
	}
	return registry[active]
}

// SeasonFor derives the season string for a calendar date, per the cutover
// month: a date on or after SeasonCutoverMonth in year Y belongs to season
// "Y-Y+1"; before it, to season "Y-1-Y".
func (c *Config) SeasonFor(t time.Time) string {
	y := t.Year()
	if int(t.Month()) >= c.SeasonCutoverMonth {
		return fmt.Sprintf("%d-%d", y, y+1)
	}
	return fmt.Sprintf("%d-%d", y-1, y)
}

// SeasonStartYear returns the first calendar year of a "Y-Y+1" season string,
// used by ExperimentRunner's year-based calibration partitioning.
func SeasonStartYear(season string) (int, error) {
	var y int
	if _, err := fmt.Sscanf(season, "%d-", &y); err != nil {
		return 0, fmt.Errorf("leagueconfig: malformed season %q: %w", season, err)
	}
	return y, nil
}

// ExcludesGameType reports whether a game type is configured to be omitted
// from training and records.
func (c *Config) ExcludesGameType(gameType string) bool {
	for _, g := range c.ExcludeGameTypes {
		if g == gameType {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out int
	if _, err := fmt.Sscanf(v, "%d", &out); err != nil {
		return def
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out float64
	if _, err := fmt.Sscanf(v, "%g", &out); err != nil {
		return def
	}
	return out
}
