package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/use-agent/tweetscope/models"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"

	// NoContent is returned when the provider answers without any text.
	NoContent = "No content returned from API."

	systemPrompt = "You are an analytical assistant that helps analyze data from Twitter/X."
	dataLabel    = "Data for analysis:"
	temperature  = 0.7
)

// Client is a lightweight OpenAI-compatible chat completion client.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new LLM client with the given http.Client.
// Pass nil to use a default client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// AnalyzeParams holds per-request LLM configuration (BYOK) and input.
type AnalyzeParams struct {
	APIKey  string
	Prompt  string
	Data    string // serialized rows, usually the JSON export
	Model   string // default: DefaultModel
	BaseURL string // default: DefaultBaseURL
}

// AnalyzeResult holds the completion text and token usage.
type AnalyzeResult struct {
	Text  string
	Model string
	Usage *models.LLMUsage
}

// chatRequest is the OpenAI chat completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the minimal OpenAI chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// chatErrorResponse captures an API error from the LLM provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Analyze sends the prompt and data to the completion endpoint and returns
// the first completion's text. Missing inputs fail before any network call.
func (c *Client) Analyze(ctx context.Context, params AnalyzeParams) (*AnalyzeResult, error) {
	switch {
	case params.APIKey == "":
		return nil, models.NewValidationError("completion API key is required")
	case params.Prompt == "":
		return nil, models.NewValidationError("analysis prompt is required")
	case params.Data == "":
		return nil, models.NewValidationError("data for analysis is required")
	}
	if params.Model == "" {
		params.Model = DefaultModel
	}
	if params.BaseURL == "" {
		params.BaseURL = DefaultBaseURL
	}

	reqBody := chatRequest{
		Model: params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildUserMessage(params.Prompt, params.Data)},
		},
		Temperature: temperature,
	}

	slog.Debug("completion request",
		"model", params.Model,
		"estimated_tokens", EstimateTokens(systemPrompt)+EstimateTokens(reqBody.Messages[1].Content),
	)

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Build URL: baseURL + /chat/completions
	endpoint := strings.TrimRight(params.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+params.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, models.NewTransportError(models.PhaseAnalyze, "completion request failed", 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewTransportError(models.PhaseAnalyze, "failed to read completion response", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyLLMError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewTransportError(models.PhaseAnalyze, "failed to parse completion response", resp.StatusCode, err)
	}

	text := NoContent
	if len(chatResp.Choices) > 0 && chatResp.Choices[0].Message.Content != "" {
		text = chatResp.Choices[0].Message.Content
	}

	return &AnalyzeResult{
		Text:  text,
		Model: params.Model,
		Usage: &models.LLMUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

// BuildUserMessage joins the prompt and the data behind a labeled separator.
func BuildUserMessage(prompt, data string) string {
	return prompt + "\n\n" + dataLabel + "\n" + data
}

// classifyLLMError maps HTTP status codes to appropriate error codes.
// The provider's error.message is preferred over the status text.
func classifyLLMError(statusCode int, body []byte) *models.Error {
	var errResp chatErrorResponse
	msg := http.StatusText(statusCode)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewAPIError(models.ErrCodeLLMAuthFailure, statusCode, msg)
	case statusCode == http.StatusTooManyRequests:
		return models.NewAPIError(models.ErrCodeLLMRateLimited, statusCode, msg)
	default:
		return models.NewAPIError(models.ErrCodeLLMFailure, statusCode, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg))
	}
}
