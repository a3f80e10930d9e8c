package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	baseURL = "https://generativelanguage.googleapis.com/v1"
)

type Client struct {
	apiKey     string
	httpClient *http.Client
	model      string
}

type GenerateRequest struct {
	Contents []Content `json:"contents"`
	Tools []Tool `json:"tools,omitempty"`
	GenerationConfig GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is one turn of the conversation; Role is "user", "model", or
// "function" (a tool result being handed back to the model).
type Content struct {
	Role string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a union of the three payloads a turn can carry: plain text, a
// model-issued function call, or a function's result handed back in.
type Part struct {
	Text string `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponsePart `json:"functionResponse,omitempty"`
}

// FunctionCall is the model's request to invoke one declared tool.
type FunctionCall struct {
	Name string `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponsePart wraps a tool's JSON result back into the
// conversation for the next turn.
type FunctionResponsePart struct {
	Name string `json:"name"`
	Response map[string]any `json:"response"`
}

// Tool declares one or more callable functions the model may invoke,
// matching the function-calling contract the agent runtime requires.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration names one tool, its description, and its JSON
// argument schema.
type FunctionDeclaration struct {
	Name string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type GenerationConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopK        int     `json:"topK,omitempty"`
	TopP        float64 `json:"topP,omitempty"`
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content Content `json:"content"`
	FinishReason string `json:"finishReason,omitempty"`
}

// NewClient creates a new Gemini API client
func NewClient() *Client {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = "demo-key" // For development
	}

	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		model: "gemini-2.5-flash-lite",
	}
}

// Generate sends a prompt to Gemini and returns the response
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, c.model, c.apiKey)

	reqBody := GenerateRequest{
		Contents: []Content{
			{
				Parts: []Part{
					{Text: prompt},
				},
			},
		},
		GenerationConfig: GenerationConfig{
			Temperature: 0.7,
			TopK:        40,
			TopP:        0.95,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// GenerateContent sends a full multi-turn conversation plus an optional
// tool declaration list and returns the raw candidate content, letting the
// caller inspect FunctionCall parts instead of only plain text.
func (c *Client) GenerateContent(ctx context.Context, contents []Content, tools []Tool) (Content, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, c.model, c.apiKey)

	reqBody := GenerateRequest{
		Contents: contents,
		Tools: tools,
		GenerationConfig: GenerationConfig{
			Temperature: 0.7,
			TopK: 40,
			TopP: 0.95,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Content{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return Content{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Content{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Content{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return Content{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return Content{}, fmt.Errorf("no response from API")
	}
	return genResp.Candidates[0].Content, nil
}

// GenerateJSON requests a response constrained to application/json, the
// structured-output path the Planner uses when it needs a parseable turn
// plan rather than free text.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, c.model, c.apiKey)

	reqBody := GenerateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
		GenerationConfig: GenerationConfig{
			Temperature: 0.2,
			ResponseMIMEType: "application/json",
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from API")
	}
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// GenerateWithRetry generates with automatic retry on failure
func (c *Client) GenerateWithRetry(ctx context.Context, prompt string, retries int) (string, error) {
	var lastErr error
	for i := 0; i < retries; i++ {
		result, err := c.Generate(ctx, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err
		time.Sleep(time.Second * time.Duration(i+1))
	}
	return "", fmt.Errorf("failed after %d retries: %w", retries, lastErr)
}

