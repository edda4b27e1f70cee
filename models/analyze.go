package models

// AnalyzeRequest is the payload for POST /api/v1/analyze.
// The data payload is always the JSON export of the current run's rows.
type AnalyzeRequest struct {
	// LLMAPIKey is the user's own completion API key (BYOK). Required.
	LLMAPIKey string `json:"llm_api_key" binding:"required"`

	// ProfileID selects a stored profile. Ignored when Prompt is set.
	// Default: the currently selected profile.
	ProfileID string `json:"profile_id,omitempty"`

	// Prompt is an ad-hoc prompt overriding the profile.
	Prompt string `json:"prompt,omitempty"`

	// LLMModel is the model to use. Default: "gpt-4o-mini".
	LLMModel string `json:"llm_model,omitempty"`

	// LLMBaseURL is the base URL of an OpenAI-compatible API.
	// Default: "https://api.openai.com/v1".
	LLMBaseURL string `json:"llm_base_url,omitempty" binding:"omitempty,url"`

	// MaxAge enables the analysis cache: a cached result younger than
	// MaxAge milliseconds is returned without calling the provider.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// AnalyzeResponse is the response for POST /api/v1/analyze.
type AnalyzeResponse struct {
	Success     bool         `json:"success"`
	Analysis    string       `json:"analysis,omitempty"`
	ProfileID   string       `json:"profile_id,omitempty"`
	Model       string       `json:"model,omitempty"`
	LLMUsage    *LLMUsage    `json:"llm_usage,omitempty"`
	CacheStatus string       `json:"cache_status,omitempty"`
	TimingMs    int64        `json:"timing_ms"`
	Error       *ErrorDetail `json:"error,omitempty"`
}

// LLMUsage reports token consumption from the completion call.
type LLMUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
