// Package agents defines the (system prompt, tool set) pairing for each
// matchup specialist and the shared-context slicing rules the controller
// applies before invoking one. Prompt text is not part of the contract the
// core specifies; only the tool contracts and slicing rules are.
package agents

import (
	"encoding/json"
	"time"

	"github.com/ai-atl/hoopcast/internal/llm"
	"github.com/ai-atl/hoopcast/internal/models"
)

// Name identifies one of the six matchup agents.
type Name string

const (
	Planner Name = "planner"
	ModelInspector Name = "model_inspector"
	Stats Name = "stats"
	Research Name = "research"
	Experimenter Name = "experimenter"
	FinalSynthesizer Name = "final_synthesizer"
)

// Spec pairs an agent's system prompt with the tool set it is invoked with.
// The controller binds Tools to live state per turn; Spec itself is
// static.
type Spec struct {
	Name Name
	SystemPrompt string
	Tools []llm.ToolSpec
}

// ModelInspectorSpec is read-only over the selected ensemble's prediction
// surface: direction table, selected configs, prediction doc, feature
// values, base outputs, meta-model params, and scenario variants.
var ModelInspectorSpec = Spec{
	Name: ModelInspector,
	SystemPrompt: "You are the Model-Inspector. You explain what the prediction model believes and why, using only the tools provided. You never speculate about data you have not fetched.",
	Tools: []llm.ToolSpec{
		toolSpec("get_base_model_direction_table", "Per-base directional table for the ensemble's prediction.", objSchema("game_id")),
		toolSpec("get_selected_configs", "The currently selected classifier and points configs.", objSchema()),
		toolSpec("get_prediction_doc", "The persisted prediction document for a game.", objSchema("game_id")),
		toolSpec("get_prediction_feature_values", "Feature values used in a game's prediction, optionally filtered to specific keys.", objSchemaOpt([]string{"game_id"}, []string{"keys"})),
		toolSpec("get_prediction_base_outputs", "Each base model's raw and calibrated output for a game.", objSchema("game_id")),
		toolSpec("get_ensemble_meta_model_params", "The meta-model's fitted parameters for a game's ensemble.", objSchema("game_id")),
		toolSpec("get_scenario_snapshot", "A previously captured what-if prediction snapshot.", objSchema("snapshot_id")),
		toolSpec("diff_scenario", "Compares a captured what-if snapshot against the game's live prediction.", objSchema("snapshot_id", "game_id")),
	},
}

// StatsSpec covers lineups, team/rotation/head-to-head stats, player stats,
// and a sandboxed code tool; every windowed tool takes {season, gamesN,
// daysN} anchored to the matchup date and season.
var StatsSpec = Spec{
	Name: Stats,
	SystemPrompt: "You are the Stats agent. You ground every claim in a tool call; you never invent a statistic. When your audit finds a statistic that contradicts the model's prediction, you report it with a severity level.",
	Tools: []llm.ToolSpec{
		toolSpec("get_lineups", "A team's current starters/bench/inactive.", objSchema("team_id")),
		toolSpec("get_team_stats", "A team's aggregate stats over a window.", objSchemaOpt([]string{"team_id", "window"}, []string{"split"})),
		toolSpec("compare_team_stats", "Side-by-side team stats over a window.", objSchema("a", "b", "window")),
		toolSpec("get_rotation_stats", "Per-player rotation/minutes stats over a window.", objSchema("team_id", "window")),
		toolSpec("get_team_games", "A team's recent games over a window.", objSchemaOpt([]string{"team_id", "window"}, []string{"split"})),
		toolSpec("get_head_to_head_games", "Recent head-to-head games between two teams.", objSchema("a", "b", "window")),
		toolSpec("get_head_to_head_stats", "Aggregated head-to-head stats between two teams.", objSchema("a", "b", "window")),
		toolSpec("get_player_stats", "A player's box-score stats over a window.", objSchema("player_id", "window")),
		toolSpec("get_advanced_player_stats", "A player's advanced stats (PER, usage) over a window.", objSchema("player_id", "window")),
		toolSpec("run_code", "Runs a short sandboxed expression over fetched stats.", objSchema("code")),
	},
}

// ResearchSpec covers news and search; every tool accepts force_refresh to
// bypass the TTL cache.
var ResearchSpec = Spec{
	Name: Research,
	SystemPrompt: "You are the Research/Media agent. You surface recent news relevant to the matchup. You flag rumor versus confirmed reporting.",
	Tools: []llm.ToolSpec{
		toolSpec("get_game_news", "Recent news about this specific game.", objSchemaOpt([]string{"game_id"}, []string{"force_refresh"})),
		toolSpec("get_team_news", "Recent news about a team.", objSchemaOpt([]string{"team_id"}, []string{"force_refresh"})),
		toolSpec("get_player_news", "Recent news about a player.", objSchemaOpt([]string{"player_id"}, []string{"force_refresh"})),
		toolSpec("web_search", "A general web search.", objSchemaOpt([]string{"query"}, []string{"force_refresh"})),
	},
}

// ExperimenterSpec can mutate rosters platform-wide and re-run the selected
// ensemble to produce a what-if prediction.
var ExperimenterSpec = Spec{
	Name: Experimenter,
	SystemPrompt: "You are the Experimenter. You can move a player between injured/bench/starter and re-run the prediction to see the effect. State clearly which mutation you made before predicting.",
	Tools: []llm.ToolSpec{
		toolSpec("get_lineups", "A team's current starters/bench/inactive.", objSchema("team_id")),
		toolSpec("set_player_lineup_bucket", "Moves a player into injured, bench, or starter. This mutates the roster platform-wide.", objSchema("player_id", "bucket")),
		toolSpec("predict", "Re-runs the selected ensemble for this game and persists a new prediction and snapshot.", objSchema()),
	},
}

// FinalSynthesizerSpec has no tools; it synthesizes prose from the
// accumulated workflow outputs it is handed.
var FinalSynthesizerSpec = Spec{
	Name: FinalSynthesizer,
	SystemPrompt: "You are the Final-Synthesizer. Write a clear, confident answer to the user's question grounded only in the specialist outputs and baseline probability you were given.",
}

// PlannerSpec has no bound tools; it only emits a JSON turn plan.
var PlannerSpec = Spec{
	Name: Planner,
	SystemPrompt: "You are the Planner. Given the conversation and a summary of matchup state, decide which specialist agents to invoke, in what order, and with what instruction. Return only the JSON turn plan.",
}

func toolSpec(name, desc string, schema map[string]any) llm.ToolSpec {
	return llm.ToolSpec{Name: name, Description: desc, Parameters: schema}
}

func objSchema(required ...string) map[string]any {
	return objSchemaOpt(required, nil)
}

func objSchemaOpt(required, optional []string) map[string]any {
	props := map[string]any{}
	for _, r := range required {
		props[r] = map[string]any{"type": "string"}
	}
	for _, o := range optional {
		props[o] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type": "object",
		"properties": props,
		"required": required,
	}
}

// ContextSlice builds the minimal shared-context view one agent is handed,
// per section 4.10's slicing rules, controlling LLM context size.
func ContextSlice(name Name, sc *models.SharedContext) string {
	var v any
	switch name {
	case ModelInspector:
		v = map[string]any{"game_id": sc.GameID, "ensemble_model": sc.EnsembleModel}
	case Stats, Experimenter:
		v = map[string]any{"game_id": sc.GameID, "game": sc.Game}
	case Research:
		v = map[string]any{"game_id": sc.GameID, "game": sc.Game, "market_snapshot": sc.MarketSnapshot}
	case Planner:
		v = map[string]any{
			"game_id": sc.GameID,
			"summary": summarize(sc),
			"latest_by_agent": sc.LatestByAgent,
		}
	case FinalSynthesizer:
		v = map[string]any{
			"game_id": sc.GameID,
			"game": sc.Game,
			"ensemble_model": sc.EnsembleModel,
			"market_snapshot": sc.MarketSnapshot,
			// History and latest_by_agent are deliberately withheld: the
			// synthesizer receives them via the accumulated workflow
			// outputs, not the raw history stack.
		}
	default:
		v = map[string]any{"game_id": sc.GameID}
	}
	b, _ := json.MarshalIndent(v, "", " ")
	return string(b)
}

// summarize gives the Planner a compact, bounded view of matchup state
// instead of the full history stack.
func summarize(sc *models.SharedContext) map[string]any {
	out := map[string]any{
		"p_home": sc.EnsembleModel.PHome,
		"history_length": len(sc.History),
	}
	if len(sc.History) > 0 {
		last := sc.History[len(sc.History)-1]
		out["last_agent"] = last.Agent
		out["last_at"] = last.Timestamp.Format(time.RFC3339)
	}
	return out
}
