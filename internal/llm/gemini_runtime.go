package llm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ai-atl/hoopcast/pkg/gemini"
)

// maxToolRounds bounds the tool-calling loop per agent invocation; costs are
// otherwise capped only by the planner's workflow length, per section 5.
const maxToolRounds = 6

// GeminiRuntime adapts pkg/gemini's function-calling API to the
// vendor-agnostic Runtime contract.
type GeminiRuntime struct {
	client *gemini.Client
	log *logrus.Entry
}

func NewGeminiRuntime(client *gemini.Client) *GeminiRuntime {
	return &GeminiRuntime{client: client, log: logrus.WithField("component", "gemini_runtime")}
}

func (g *GeminiRuntime) RunAgent(ctx context.Context, systemPrompt, contextSlice string, conversation []Turn, tools []ToolSpec, runTool ToolRunner) (AgentResult, error) {
	contents := []gemini.Content{
		{Role: "user", Parts: []gemini.Part{{Text: systemPrompt + "\n\n--- Context ---\n" + contextSlice}}},
	}
	for _, t := range conversation {
		switch t.Role {
		case "tool":
			if t.ToolResult != nil {
				contents = append(contents, gemini.Content{
					Role: "function",
					Parts: []gemini.Part{{FunctionResponse: &gemini.FunctionResponsePart{
						Name: t.ToolResult.Name,
						Response: map[string]any{"result": t.ToolResult.Result, "error": t.ToolResult.Error},
					}}},
				})
			}
		default:
			role := "user"
			if t.Role == "assistant" {
				role = "model"
			}
			contents = append(contents, gemini.Content{Role: role, Parts: []gemini.Part{{Text: t.Text}}})
		}
	}

	var geminiTools []gemini.Tool
	if len(tools) > 0 {
		decls := make([]gemini.FunctionDeclaration, len(tools))
		for i, t := range tools {
			decls[i] = gemini.FunctionDeclaration{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
		}
		geminiTools = []gemini.Tool{{FunctionDeclarations: decls}}
	}

	var trace Trace
	for round := 0; round < maxToolRounds; round++ {
		content, err := g.client.GenerateContent(ctx, contents, geminiTools)
		if err != nil {
			return AgentResult{Trace: trace}, fmt.Errorf("llm: gemini generate: %w", err)
		}

		var calls []gemini.FunctionCall
		var text string
		for _, p := range content.Parts {
			if p.FunctionCall != nil {
				calls = append(calls, *p.FunctionCall)
			}
			if p.Text != "" {
				text += p.Text
			}
		}
		if len(calls) == 0 {
			return AgentResult{Text: text, Trace: trace}, nil
		}

		contents = append(contents, content)
		for _, c := range calls {
			call := ToolCall{Name: c.Name, Arguments: c.Args}
			trace.ToolCalls = append(trace.ToolCalls, call)

			result, err := runTool(ctx, call)
			tr := ToolResult{Name: c.Name, Result: result}
			if err != nil {
				tr.Error = err.Error()
			}
			trace.ToolResults = append(trace.ToolResults, tr)

			contents = append(contents, gemini.Content{
				Role: "function",
				Parts: []gemini.Part{{FunctionResponse: &gemini.FunctionResponsePart{
					Name: c.Name,
					Response: map[string]any{"result": result, "error": tr.Error},
				}}},
			})
		}
	}

	g.log.WithField("rounds", maxToolRounds).Warn("agent tool-call loop exhausted its round budget")
	return AgentResult{Trace: trace}, nil
}

func (g *GeminiRuntime) GenerateStructured(ctx context.Context, prompt string) (string, error) {
	return g.client.GenerateJSON(ctx, prompt)
}
