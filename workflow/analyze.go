package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/tweetscope/cache"
	"github.com/use-agent/tweetscope/export"
	"github.com/use-agent/tweetscope/llm"
	"github.com/use-agent/tweetscope/models"
)

// Analyze sends the JSON export of the held rows to the completion provider.
// The prompt is req.Prompt when set, else the prompt of req.ProfileID, else
// the selected profile's.
//
// Flow:
//  1. Resolve the prompt and the data (NO_DATA without a completed run).
//  2. Cache lookup when MaxAge > 0.
//  3. Completion call.
//  4. Cache store.
func (o *Orchestrator) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	start := time.Now()

	if req.LLMAPIKey == "" {
		return nil, models.NewValidationError("completion API key is required")
	}

	prompt, profileID, err := o.resolvePrompt(req)
	if err != nil {
		return nil, err
	}

	rows, _, err := o.held()
	if err != nil {
		return nil, err
	}
	data, err := export.ToJSON(rows)
	if err != nil {
		return nil, models.NewError(models.ErrCodeInternal, "failed to serialize rows", err)
	}

	model := firstNonEmpty(req.LLMModel, o.llmModel, llm.DefaultModel)
	baseURL := firstNonEmpty(req.LLMBaseURL, o.llmBaseURL, llm.DefaultBaseURL)

	var key string
	if o.cache != nil && req.MaxAge > 0 {
		key = cache.Key(baseURL, model, prompt, data)
		if cached, hit := o.cache.Get(key, req.MaxAge); hit {
			resp := *cached
			resp.ProfileID = profileID
			resp.CacheStatus = "hit"
			resp.TimingMs = time.Since(start).Milliseconds()
			return &resp, nil
		}
	}

	result, err := o.analyzer.Analyze(ctx, llm.AnalyzeParams{
		APIKey:  req.LLMAPIKey,
		Prompt:  prompt,
		Data:    data,
		Model:   model,
		BaseURL: baseURL,
	})
	if err != nil {
		slog.Warn("analysis failed", "profile_id", profileID, "model", model, "error", err)
		return nil, err
	}

	resp := &models.AnalyzeResponse{
		Success:   true,
		Analysis:  result.Text,
		ProfileID: profileID,
		Model:     result.Model,
		LLMUsage:  result.Usage,
		TimingMs:  time.Since(start).Milliseconds(),
	}
	if key != "" {
		stored := *resp
		o.cache.Set(key, &stored)
		resp.CacheStatus = "miss"
	}

	slog.Info("analysis completed",
		"profile_id", profileID,
		"model", model,
		"rows", len(rows),
		"timing_ms", resp.TimingMs,
	)
	return resp, nil
}

// resolvePrompt picks the ad-hoc prompt or a profile's prompt. profileID is
// empty for ad-hoc prompts.
func (o *Orchestrator) resolvePrompt(req *models.AnalyzeRequest) (prompt, profileID string, err error) {
	if req.Prompt != "" {
		return req.Prompt, "", nil
	}
	if req.ProfileID == "" {
		p := o.profiles.Selected()
		return p.Prompt, p.ID, nil
	}
	p, err := o.profiles.Get(req.ProfileID)
	if err != nil {
		return "", "", err
	}
	return p.Prompt, p.ID, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
