package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanRejectsUnknownAgent(t *testing.T) {
	raw := `{"narrative":"x","workflow":[{"agent":"weather","instruction":"y"}]}`
	_, err := ParsePlan(raw)
	assert.Error(t, err, "expected error for unknown agent in turn plan")
}

func TestParsePlanRoundtrip(t *testing.T) {
	raw := `{"narrative":"n","workflow":[{"agent":"stats","instruction":"pull stats"},{"agent":"research","instruction":"check news"}]}`
	plan, err := ParsePlan(raw)
	require.NoError(t, err)
	require.Len(t, plan.Workflow, 2)
	assert.Equal(t, Stats, plan.Workflow[0].Agent)
	assert.Equal(t, Research, plan.Workflow[1].Agent)
}

func TestFallbackPlanNeverEmpty(t *testing.T) {
	plan := FallbackPlan("who wins?")
	assert.NotEmpty(t, plan.Workflow, "fallback plan must not be empty")
}

func TestApplyGuardrailsFirstTurnOutcomeQuestion(t *testing.T) {
	plan := &TurnPlan{Workflow: []Step{{Agent: Research, Instruction: "news"}}}
	out := ApplyGuardrails(plan, true, "Who wins tonight?")
	require.GreaterOrEqual(t, len(out.Workflow), 3)
	assert.Equal(t, ModelInspector, out.Workflow[0].Agent)
	assert.Equal(t, Stats, out.Workflow[1].Agent)
	assert.Equal(t, Research, out.Workflow[2].Agent)
}

func TestApplyGuardrailsInsertsStatsAfterModelInspector(t *testing.T) {
	plan := &TurnPlan{Workflow: []Step{{Agent: ModelInspector, Instruction: "explain"}}}
	out := ApplyGuardrails(plan, false, "explain the model")
	require.Len(t, out.Workflow, 2)
	assert.Equal(t, ModelInspector, out.Workflow[0].Agent)
	assert.Equal(t, Stats, out.Workflow[1].Agent)
}

func TestApplyGuardrailsNoopWhenStatsAlreadyPresent(t *testing.T) {
	plan := &TurnPlan{Workflow: []Step{
		{Agent: Stats, Instruction: "pull"},
		{Agent: ModelInspector, Instruction: "explain"},
	}}
	out := ApplyGuardrails(plan, false, "explain the model")
	assert.Len(t, out.Workflow, 2, "guardrail should not duplicate stats")
}

func TestParseAuditResultsHighSeverityTriggersRequeue(t *testing.T) {
	statsOut := "Here is my summary.\nAuditResultsJSON:\n{\"contradictions\":[{\"statistic\":\"home_ortg\",\"severity\":\"high\",\"detail\":\"home offense has collapsed over last 5 games\"}]}\n"
	audit, ok := ParseAuditResults(statsOut)
	require.True(t, ok, "expected audit block to parse")
	assert.True(t, audit.HighSeverity())

	plan := FallbackPlan("who wins?")
	requeued := ContradictionRequeue(plan, ContradictionPacket(audit))
	last := requeued.Workflow[len(requeued.Workflow)-1]
	assert.Equal(t, ModelInspector, last.Agent)
}

func TestParseAuditResultsAbsentMarker(t *testing.T) {
	_, ok := ParseAuditResults("nothing unusual here")
	assert.False(t, ok, "expected no audit block to be found")
}

func TestFallbackSynthesisFormatsMoneylineAndExcerpts(t *testing.T) {
	workflow := []Step{{Agent: Stats, Instruction: "x"}}
	outputs := map[string]string{"stats": "home team shooting well"}
	out := FallbackSynthesis(0.65, workflow, outputs)
	assert.NotEmpty(t, out)
}
