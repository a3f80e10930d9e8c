// Package llm defines the vendor-agnostic agent runtime contract: chat
// completion with tool calls plus structured JSON output. The controller
// and every specialist agent depend only on this interface, never on a
// vendor's message types, so the LLM backing it is swappable without
// touching C11/C12.
package llm

import "context"

// ToolSpec declares one callable tool: its name, a natural-language
// description, and a JSON-schema argument shape.
type ToolSpec struct {
	Name string
	Description string
	Parameters map[string]any
}

// ToolCall is one invocation the model requested.
type ToolCall struct {
	Name string
	Arguments map[string]any
}

// ToolResult is what the caller hands back after running a ToolCall.
type ToolResult struct {
	Name string
	Result any
	Error string
}

// Turn is one message in the conversation slice an agent is given: either a
// prior user/assistant exchange or a tool result being replayed.
type Turn struct {
	Role string // "user" | "assistant" | "tool"
	Text string
	ToolCall *ToolCall
	ToolResult *ToolResult
}

// Trace records one round of the agent loop for the agent-actions stream:
// the tool calls the model made and what came back, in call order.
type Trace struct {
	ToolCalls []ToolCall
	ToolResults []ToolResult
}

// AgentResult is what invoking one agent over one turn produces.
type AgentResult struct {
	Text string
	Trace Trace
}

// ToolRunner executes one tool call against live state (a bound database
// client, a cache, a sandboxed code runner) and returns its JSON-serializable
// result or a ToolError.
type ToolRunner func(ctx context.Context, call ToolCall) (any, error)

// Runtime is the one interface every specialist agent and the Planner /
// Final-Synthesizer run against: chat completion with tool calls, plus a
// structured-JSON mode for the planner's turn plan. A vendor adapter
// (Gemini, OpenAI, ...) implements this once; the conversational core never
// imports a vendor package directly.
type Runtime interface {
	// RunAgent drives one agent's tool-calling loop to completion: it
	// sends the system prompt, context slice, and conversation slice to
	// the model, executes any ToolCall the model requests via runTool,
	// feeds results back, and returns once the model produces a final
	// text answer (or a turn budget is exhausted).
	RunAgent(ctx context.Context, systemPrompt string, contextSlice string, conversation []Turn, tools []ToolSpec, runTool ToolRunner) (AgentResult, error)

	// GenerateStructured asks for a single JSON-constrained completion
	// with no tool calls, the mode the Planner relies on.
	GenerateStructured(ctx context.Context, prompt string) (string, error)
}
