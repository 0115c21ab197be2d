package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client is an OpenAI-compatible chat-completions client used in tool-calling
// mode. The default endpoint is OpenRouter; any compatible endpoint works.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	appURL     string // optional; sent as OpenRouter attribution headers
	httpClient *http.Client
}

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "openai/gpt-4"
)

// normalizeBaseURL strips trailing slashes and the "/chat/completions" suffix
// from a raw OPENAI_BASE_URL value so the path is never doubled when the
// client appends "/chat/completions" itself.
//
// Expectations:
//   - Strips a trailing "/chat/completions" suffix
//   - Strips a trailing slash without "/chat/completions"
//   - Strips trailing slash AND "/chat/completions" when both are present
//   - Returns the URL unchanged when neither suffix is present
//   - Returns "" for empty input
func normalizeBaseURL(raw string) string {
	s := strings.TrimRight(raw, "/")
	return strings.TrimSuffix(s, "/chat/completions")
}

// New creates a Client from the environment:
//
//	OPENAI_API_KEY, OPENAI_BASE_URL (default OpenRouter), OPENAI_MODEL, APP_URL
func New() *Client {
	baseURL := normalizeBaseURL(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		model:      model,
		appURL:     os.Getenv("APP_URL"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Validate reports missing configuration. It is checked before any network
// call so a blank credential fails the command, not the request.
//
// Expectations:
//   - Returns nil when base URL, API key, and model are all non-empty
//   - Returns an error listing every missing field, comma-separated
func (c *Client) Validate() error {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, "base URL")
	}
	if strings.TrimSpace(c.apiKey) == "" {
		missing = append(missing, "API key")
	}
	if c.model == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("llm: missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Tool is one callable function definition offered to the model.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function describes a tool's name and JSON-schema parameters.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is one structured invocation returned by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the invoked function name and its JSON-encoded
// argument object. Arguments are untrusted and revalidated by the caller.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage reports token consumption for one LLM call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Reply is the parsed model response: either structured tool calls, or raw
// assistant text when the model ignored the tool_choice requirement.
type Reply struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

type chatRequest struct {
	Model      string    `json:"model"`
	Messages   []chatMsg `json:"messages"`
	Tools      []Tool    `json:"tools,omitempty"`
	ToolChoice string    `json:"tool_choice,omitempty"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatTools sends a system + user prompt with the given tool definitions and
// tool_choice "required", and returns the parsed reply. It never retries;
// retry policy belongs to the caller.
func (c *Client) ChatTools(ctx context.Context, system, user string, tools []Tool) (Reply, error) {
	if err := c.Validate(); err != nil {
		return Reply{}, err
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMsg{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Tools:      tools,
		ToolChoice: "required",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.appURL != "" {
		// OpenRouter attribution headers; harmless on other endpoints.
		req.Header.Set("HTTP-Referer", c.appURL)
		req.Header.Set("X-Title", "simvoice")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("llm: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("llm: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return Reply{}, fmt.Errorf("llm: unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return Reply{}, fmt.Errorf("llm: API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return Reply{}, fmt.Errorf("llm: no choices in response")
	}

	msg := chatResp.Choices[0].Message
	log.Printf("[LLM] response tool_calls=%d tokens(prompt=%d completion=%d)",
		len(msg.ToolCalls), chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)
	return Reply{
		Content:   msg.Content,
		ToolCalls: msg.ToolCalls,
		Usage:     chatResp.Usage,
	}, nil
}
