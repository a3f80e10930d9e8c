package models

import "time"

// HistoryEntry is one append-only record of an agent turn's tool calls and
// output, in workflow order.
type HistoryEntry struct {
	Agent string `json:"agent" bson:"agent"`
	Tools []string `json:"tools,omitempty" bson:"tools,omitempty"`
	Output string `json:"output,omitempty" bson:"output,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// EnsembleModelRef is the baseline prediction reference the conversational
// core reads through; agents never rewrite it.
type EnsembleModelRef struct {
	ConfigID string `json:"config_id" bson:"config_id"`
	PHome float64 `json:"p_home" bson:"p_home"`
}

// MarketSnapshot is the best-effort external market line, if one was found.
type MarketSnapshot struct {
	Spread float64 `json:"spread,omitempty" bson:"spread,omitempty"`
	MoneylineH int `json:"moneyline_home,omitempty" bson:"moneyline_home,omitempty"`
	MoneylineA int `json:"moneyline_away,omitempty" bson:"moneyline_away,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty" bson:"fetched_at,omitempty"`
}

// SharedContext is the per-matchup document aggregating baseline prediction,
// market snapshot, and the chronological history of agent/tool events. Keyed
// by GameID.
type SharedContext struct {
	GameID string `json:"game_id" bson:"game_id"`
	Game *Game `json:"game,omitempty" bson:"game,omitempty"`
	EnsembleModel EnsembleModelRef `json:"ensemble_model" bson:"ensemble_model"`
	MarketSnapshot *MarketSnapshot `json:"market_snapshot,omitempty" bson:"market_snapshot,omitempty"`
	History []HistoryEntry `json:"history" bson:"history"`
	LatestByAgent map[string]string `json:"latest_by_agent" bson:"latest_by_agent"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// AppendHistory records one agent turn in workflow order and updates the
// latest-output-per-agent index used by the Planner's slice of context.
func (c *SharedContext) AppendHistory(entry HistoryEntry) {
	c.History = append(c.History, entry)
	if c.LatestByAgent == nil {
		c.LatestByAgent = map[string]string{}
	}
	c.LatestByAgent[entry.Agent] = entry.Output
}

// PredictionDoc is the persisted output of PredictionService.Predict.
type PredictionDoc struct {
	GameID string `json:"game_id" bson:"game_id"`
	EnsembleConfigID string `json:"ensemble_config_id" bson:"ensemble_config_id"`
	HomeWinProb float64 `json:"home_win_prob" bson:"home_win_prob"`
	AwayWinProb float64 `json:"away_win_prob" bson:"away_win_prob"`
	PredictedWinner string `json:"predicted_winner" bson:"predicted_winner"`
	FeaturesDict map[string]float64 `json:"features_dict,omitempty" bson:"features_dict,omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// PredictionScenarioSnapshot is an immutable copy of a PredictionDoc captured
// after a roster-mutation scenario, keyed by SnapshotID, so the conversational
// core can diff "what-if" outcomes.
type PredictionScenarioSnapshot struct {
	SnapshotID string `json:"snapshot_id" bson:"snapshot_id"`
	GameID string `json:"game_id" bson:"game_id"`
	Prediction PredictionDoc `json:"prediction" bson:"prediction"`
	Reason string `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
