// Package controller implements the Matchup Controller (section 4.10): the
// per-user-turn orchestrator that bootstraps shared context, plans,
// executes specialist agents with recorded tool calls, and synthesizes a
// final answer.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ai-atl/hoopcast/internal/agents"
	"github.com/ai-atl/hoopcast/internal/llm"
	"github.com/ai-atl/hoopcast/internal/models"
	"github.com/ai-atl/hoopcast/internal/services"
	"github.com/ai-atl/hoopcast/internal/store"
	"github.com/ai-atl/hoopcast/internal/tools"
)

// toolCallTimeout bounds any single tool invocation a specialist agent makes
// during its turn, so one slow upstream call cannot stall the whole workflow.
const toolCallTimeout = 20 * time.Second

// ConversationTurn is one prior turn of the conversation the controller is
// handed by its caller (the chat surface); Role is "user" or "assistant".
type ConversationTurn struct {
	Role string
	Text string
}

// Options carries per-request knobs the controller honors; currently empty,
// reserved for future per-turn overrides (e.g. a max-workflow-length cap).
type Options struct{}

// AgentAction is one recorded tool invocation, in chronological order, the
// action stream handle_user_message returns to the caller.
type AgentAction struct {
	Agent string `json:"agent"`
	Tool string `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Cached bool `json:"cached"`
	Error string `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is handle_user_message's return value.
type Response struct {
	Response string `json:"response"`
	TurnPlan *agents.TurnPlan `json:"turn_plan"`
	AgentActions []AgentAction `json:"agent_actions"`
}

// Controller wires the shared-context store, the LLM runtime, and the tool
// registry together into the per-turn workflow of section 4.10.
type Controller struct {
	sharedContexts *store.SharedContextStore
	predictions *store.PredictionStore
	predictionSvc *services.PredictionService
	runtime llm.Runtime
	registry *tools.Registry
	log *logrus.Entry
}

func New(sharedContexts *store.SharedContextStore, predictions *store.PredictionStore,
	predictionSvc *services.PredictionService, runtime llm.Runtime, registry *tools.Registry) *Controller {
	return &Controller{
		sharedContexts: sharedContexts,
		predictions: predictions,
		predictionSvc: predictionSvc,
		runtime: runtime,
		registry: registry,
		log: logrus.WithField("component", "controller"),
	}
}

// HandleUserMessage runs the full per-turn workflow for one user message
// against one matchup and returns the synthesized response, the plan that
// produced it, and the chronological tool-call stream.
func (c *Controller) HandleUserMessage(ctx context.Context, gameID, userMessage string, history []ConversationTurn, _ Options) (*Response, error) {
	sc, err := c.bootstrap(ctx, gameID)
	if err != nil {
		return nil, err
	}

	firstTurn := len(history) == 0

	plan := c.plan(ctx, sc, history, userMessage)
	plan = agents.ApplyGuardrails(plan, firstTurn, userMessage)

	var mu sync.Mutex
	var actions []AgentAction
	outputs := map[string]string{}

	record := func(agent agents.Name, result string, recorded []AgentAction) {
		mu.Lock()
		defer mu.Unlock()
		actions = append(actions, recorded...)
		outputs[string(agent)] = result
		entry := models.HistoryEntry{Agent: string(agent), Output: result, Timestamp: time.Now()}
		for _, a := range recorded {
			entry.Tools = append(entry.Tools, a.Tool)
		}
		sc.AppendHistory(entry)
		if err := c.sharedContexts.AppendHistory(ctx, gameID, entry); err != nil {
			c.log.WithError(err).Warn("failed to persist shared-context history entry")
		}
	}

	// The bounded contradiction requeue (section 4.10 step 5) runs joined
	// against the remainder of the main workflow rather than serialized
	// after it: nothing later in a single turn's plan depends on the
	// model-inspector's revised explanation.
	g, gctx := errgroup.WithContext(ctx)

	// Iterate over a fixed snapshot of the planned steps: the contradiction
	// requeue below appends to plan.Workflow so the final plan reflects the
	// extra model-inspector invocation, but that step must run exactly once,
	// joined via g.Go, never picked up again by this loop's own iteration.
	steps := append([]agents.Step(nil), plan.Workflow...)
	for i := 0; i < len(steps); i++ {
		step := steps[i]
		result, recorded, err := c.runStep(ctx, sc, gameID, step, history, userMessage)
		if err != nil {
			mu.Lock()
			actions = append(actions, recorded...)
			mu.Unlock()
			c.log.WithError(err).WithField("agent", step.Agent).Warn("specialist agent turn failed")
			continue
		}
		record(step.Agent, result, recorded)

		if step.Agent == agents.Stats {
			if audit, ok := agents.ParseAuditResults(result); ok && audit.HighSeverity() {
				instruction := agents.ContradictionPacket(audit)
				reqStep := agents.Step{Agent: agents.ModelInspector, Instruction: instruction}
				mu.Lock()
				plan.Workflow = append(plan.Workflow, reqStep)
				mu.Unlock()
				g.Go(func() error {
					out, recorded, err := c.runStep(gctx, sc, gameID, reqStep, history, userMessage)
					if err != nil {
						c.log.WithError(err).Warn("contradiction requeue of model-inspector failed")
						return nil
					}
					record(agents.ModelInspector, out, recorded)
					return nil
				})
			}
		}
	}

	_ = g.Wait()

	response := c.synthesize(ctx, sc, plan, outputs)

	return &Response{Response: response, TurnPlan: plan, AgentActions: actions}, nil
}

// bootstrap ensures a SharedContext doc exists for gameID, populating the
// read-through baseline fields agents never rewrite.
func (c *Controller) bootstrap(ctx context.Context, gameID string) (*models.SharedContext, error) {
	sc, err := c.sharedContexts.Get(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("controller: load shared context for %s: %w", gameID, err)
	}
	if sc != nil {
		return sc, nil
	}

	doc, err := c.predictions.Get(ctx, gameID)
	if err != nil || doc == nil {
		fresh, predErr := c.predictionSvc.Predict(ctx, gameID, "")
		if predErr != nil {
			return nil, fmt.Errorf("controller: bootstrap baseline prediction for %s: %w", gameID, predErr)
		}
		doc = fresh
	}

	sc = &models.SharedContext{
		GameID: gameID,
		EnsembleModel: models.EnsembleModelRef{ConfigID: doc.EnsembleConfigID, PHome: doc.HomeWinProb},
		LatestByAgent: map[string]string{},
		UpdatedAt: time.Now(),
	}
	if err := c.sharedContexts.Upsert(ctx, sc); err != nil {
		return nil, fmt.Errorf("controller: bootstrap shared context for %s: %w", gameID, err)
	}
	return sc, nil
}

// plan invokes the Planner; on any failure (transport error or unparseable
// output) it falls back to the fixed deterministic plan.
func (c *Controller) plan(ctx context.Context, sc *models.SharedContext, history []ConversationTurn, userMessage string) *agents.TurnPlan {
	prompt := plannerPrompt(sc, history, userMessage)
	raw, err := c.runtime.GenerateStructured(ctx, prompt)
	if err != nil {
		c.log.WithError(err).Warn("planner call failed, using fallback plan")
		return agents.FallbackPlan(userMessage)
	}
	parsed, err := agents.ParsePlan(raw)
	if err != nil {
		c.log.WithError(err).Warn("planner output unparseable, using fallback plan")
		return agents.FallbackPlan(userMessage)
	}
	return parsed
}

func plannerPrompt(sc *models.SharedContext, history []ConversationTurn, userMessage string) string {
	slice := agents.ContextSlice(agents.Planner, sc)
	var convo string
	for _, h := range history {
		convo += fmt.Sprintf("%s: %s\n", h.Role, h.Text)
	}
	return fmt.Sprintf("%s\n\n--- State ---\n%s\n\n--- Conversation ---\n%s\nuser: %s\n\n"+
		"Return JSON: {\"narrative\": string, \"workflow\": [{\"agent\": one of model_inspector|stats|research|experimenter, \"instruction\": string}]}",
		agents.PlannerSpec.SystemPrompt, slice, convo, userMessage)
}

// runStep invokes one specialist agent with its minimal context/conversation
// slice and tool set, returning its final text and the tool calls it made.
func (c *Controller) runStep(ctx context.Context, sc *models.SharedContext, gameID string, step agents.Step, history []ConversationTurn, userMessage string) (string, []AgentAction, error) {
	spec, handlers := c.specFor(step.Agent, gameID)
	slice := agents.ContextSlice(step.Agent, sc)

	conversation := make([]llm.Turn, 0, len(history)+1)
	for _, h := range history {
		conversation = append(conversation, llm.Turn{Role: h.Role, Text: h.Text})
	}
	conversation = append(conversation, llm.Turn{Role: "user", Text: step.Instruction})

	bound := c.registry.Bind(gameID, handlers)
	var recordMu sync.Mutex
	var recorded []AgentAction
	runTool := func(ctx context.Context, call llm.ToolCall) (any, error) {
		toolCtx, cancel := context.WithTimeout(ctx, toolCallTimeout)
		defer cancel()
		out, err := bound(toolCtx, call)

		action := AgentAction{Agent: string(step.Agent), Tool: call.Name, Arguments: call.Arguments, Timestamp: time.Now()}
		if err != nil {
			action.Error = err.Error()
		} else if m, ok := out.(map[string]any); ok {
			if cached, ok := m["cached"].(bool); ok {
				action.Cached = cached
			}
		}
		recordMu.Lock()
		recorded = append(recorded, action)
		recordMu.Unlock()
		return out, err
	}

	result, err := c.runtime.RunAgent(ctx, spec.SystemPrompt, slice, conversation, spec.Tools, runTool)
	if err != nil {
		return "", recorded, fmt.Errorf("controller: agent %s: %w", step.Agent, err)
	}
	return result.Text, recorded, nil
}

func (c *Controller) specFor(name agents.Name, gameID string) (agents.Spec, map[string]func(ctx context.Context, args map[string]any) (any, error)) {
	switch name {
	case agents.ModelInspector:
		return agents.ModelInspectorSpec, c.registry.ModelInspectorHandlers(gameID)
	case agents.Stats:
		return agents.StatsSpec, c.registry.StatsHandlers(gameID)
	case agents.Research:
		return agents.ResearchSpec, c.registry.ResearchHandlers(gameID)
	case agents.Experimenter:
		return agents.ExperimenterSpec, c.registry.ExperimenterHandlers(gameID)
	default:
		return agents.Spec{Name: name}, nil
	}
}

// synthesize invokes the Final-Synthesizer with the full shared slice, the
// plan, and the accumulated workflow outputs. On failure it falls back to
// the deterministic formatter.
func (c *Controller) synthesize(ctx context.Context, sc *models.SharedContext, plan *agents.TurnPlan, outputs map[string]string) string {
	prompt := synthesizerPrompt(sc, plan, outputs)
	result, err := c.runtime.RunAgent(ctx, agents.FinalSynthesizerSpec.SystemPrompt, prompt, nil, nil, nil)
	if err != nil || result.Text == "" {
		if err != nil {
			c.log.WithError(err).Warn("final synthesizer call failed, using fallback synthesis")
		}
		return agents.FallbackSynthesis(sc.EnsembleModel.PHome, plan.Workflow, outputs)
	}
	return result.Text
}

func synthesizerPrompt(sc *models.SharedContext, plan *agents.TurnPlan, outputs map[string]string) string {
	slice := agents.ContextSlice(agents.FinalSynthesizer, sc)
	var workflowOut string
	for _, step := range plan.Workflow {
		if out, ok := outputs[string(step.Agent)]; ok {
			workflowOut += fmt.Sprintf("%s: %s\n", step.Agent, out)
		}
	}
	return fmt.Sprintf("--- State ---\n%s\n\n--- Plan narrative ---\n%s\n\n--- Specialist outputs ---\n%s",
		slice, plan.Narrative, workflowOut)
}
