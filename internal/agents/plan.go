package agents

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Step is one entry in a TurnPlan's workflow: invoke Agent with Instruction.
type Step struct {
	Agent Name `json:"agent"`
	Instruction string `json:"instruction"`
}

// TurnPlan is the Planner's JSON output: an ordered workflow of specialist
// invocations plus a short narrative of its reasoning.
type TurnPlan struct {
	Narrative string `json:"narrative"`
	Workflow []Step `json:"workflow"`
}

// planJSON mirrors TurnPlan's wire shape for parsing; kept distinct so a
// malformed agent name in the raw JSON doesn't silently zero-value Step.Agent.
type planJSON struct {
	Narrative string `json:"narrative"`
	Workflow []struct {
		Agent string `json:"agent"`
		Instruction string `json:"instruction"`
	} `json:"workflow"`
}

var validAgents = map[string]bool{
	string(ModelInspector): true,
	string(Stats): true,
	string(Research): true,
	string(Experimenter): true,
}

// ParsePlan decodes the Planner's structured-JSON response into a TurnPlan,
// rejecting any workflow step naming an agent outside the four specialists
// the Planner is allowed to schedule.
func ParsePlan(raw string) (*TurnPlan, error) {
	var pj planJSON
	if err := json.Unmarshal([]byte(raw), &pj); err != nil {
		return nil, fmt.Errorf("agents: parse turn plan: %w", err)
	}
	plan := &TurnPlan{Narrative: pj.Narrative}
	for _, s := range pj.Workflow {
		agent := strings.TrimSpace(s.Agent)
		if !validAgents[agent] {
			return nil, fmt.Errorf("agents: turn plan names unknown agent %q", s.Agent)
		}
		plan.Workflow = append(plan.Workflow, Step{Agent: Name(agent), Instruction: s.Instruction})
	}
	return plan, nil
}

// FallbackPlan is the deterministic plan used when the Planner's output
// fails to parse: model-inspector for the baseline, stats for grounding,
// research for context. It is never empty, so a workflow always runs.
func FallbackPlan(userMessage string) *TurnPlan {
	return &TurnPlan{
		Narrative: "Planner output unavailable; running the default model-inspector, stats, research sequence.",
		Workflow: []Step{
			{Agent: ModelInspector, Instruction: "Summarize the baseline model prediction for this game."},
			{Agent: Stats, Instruction: "Pull the key stats a user asking '" + userMessage + "' would want."},
			{Agent: Research, Instruction: "Surface any recent news relevant to this matchup."},
		},
	}
}

// outcomeKeywords flags a first-turn question asking directly "who wins" /
// "who is favored", which should see the model's opinion before anything
// else.
var outcomeKeywords = []string{"who wins", "who will win", "who is favored", "who's favored", "who covers"}

// ApplyGuardrails enforces the two plan-rewrite rules of section 4.10 step
// 3: on a first-turn outcome question, model-inspector, stats, and research
// are forced to the head of the workflow in that order; otherwise, if
// model-inspector is scheduled without a stats step, one is inserted
// immediately after it with a fixed audit-checklist instruction.
func ApplyGuardrails(plan *TurnPlan, firstTurn bool, userMessage string) *TurnPlan {
	steps := append([]Step(nil), plan.Workflow...)

	if firstTurn && isOutcomeQuestion(userMessage) {
		steps = headWith(steps, ModelInspector, Stats, Research)
	} else {
		steps = ensureStatsAfterModelInspector(steps)
	}

	return &TurnPlan{Narrative: plan.Narrative, Workflow: steps}
}

// headWith removes any existing occurrence of each named agent from steps
// and prepends them, in order, ahead of whatever remains.
func headWith(steps []Step, agents ...Name) []Step {
	want := map[Name]bool{}
	for _, a := range agents {
		want[a] = true
	}
	var rest []Step
	for _, s := range steps {
		if !want[s.Agent] {
			rest = append(rest, s)
		}
	}
	head := make([]Step, len(agents))
	for i, a := range agents {
		head[i] = Step{Agent: a, Instruction: defaultInstruction(a)}
	}
	return append(head, rest...)
}

func defaultInstruction(a Name) string {
	switch a {
	case ModelInspector:
		return "Summarize the baseline model prediction for this game."
	case Stats:
		return "Pull the stats that ground the model's prediction."
	case Research:
		return "Surface any recent news relevant to this matchup."
	default:
		return ""
	}
}

func isOutcomeQuestion(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range outcomeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ensureStatsAfterModelInspector inserts a stats step immediately after the
// first model-inspector step if the workflow schedules model-inspector
// without scheduling stats anywhere, per the controller's guardrail rule.
func ensureStatsAfterModelInspector(steps []Step) []Step {
	inspectorIdx := -1
	hasStats := false
	for i, s := range steps {
		if s.Agent == ModelInspector && inspectorIdx == -1 {
			inspectorIdx = i
		}
		if s.Agent == Stats {
			hasStats = true
		}
	}
	if inspectorIdx == -1 || hasStats {
		return steps
	}
	statsStep := Step{Agent: Stats, Instruction: "Execute the inspector's audit checklist against current stats."}
	out := append([]Step{}, steps[:inspectorIdx+1]...)
	out = append(out, statsStep)
	out = append(out, steps[inspectorIdx+1:]...)
	return out
}

// ContradictionRequeue appends one bounded model-inspector re-invocation
// when a stats audit reports a high-severity contradiction, per the
// controller's single-retry contradiction loop.
func ContradictionRequeue(plan *TurnPlan, instruction string) *TurnPlan {
	steps := append([]Step(nil), plan.Workflow...)
	steps = append(steps, Step{Agent: ModelInspector, Instruction: instruction})
	return &TurnPlan{Narrative: plan.Narrative, Workflow: steps}
}
