package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/tweetscope/models"
)

const pollEvery = 2 * time.Second

func main() {
	_ = godotenv.Load()

	apiURL := os.Getenv("TWEETSCOPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("TWEETSCOPE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "TWEETSCOPE_API_KEY is required")
		os.Exit(1)
	}

	s := newServer(&apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 120 * time.Second},
	}, pollEvery)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(api *apiClient, interval time.Duration) *server.MCPServer {
	s := server.NewMCPServer(
		"tweetscope",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("scrape_accounts",
		mcp.WithDescription("Scrape recent posts from one or more Twitter/X accounts through the Apify scraping provider and wait until the run finishes. Returns a run summary; use export_run to get the rows."),
		mcp.WithString("apify_token",
			mcp.Required(),
			mcp.Description("Apify API token used for this run only"),
		),
		mcp.WithArray("targets",
			mcp.Required(),
			mcp.Description("Account handles (\"@name\" or \"name\") or profile URLs"),
		),
		mcp.WithNumber("desired_count",
			mcp.Description("Posts to fetch per account (default: 10, max: 3000)"),
		),
		mcp.WithBoolean("include_replies",
			mcp.Description("Include replies (default: true)"),
		),
		mcp.WithBoolean("include_user_info",
			mcp.Description("Attach author profile data (default: true)"),
		),
	), handleScrapeAccounts(api, interval))

	s.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Show the state of the current scrape run."),
	), handleGetRun(api))

	s.AddTool(mcp.NewTool("export_run",
		mcp.WithDescription("Export the rows of the completed run as CSV, JSON, or raw CSV with every provider field."),
		mcp.WithString("format",
			mcp.Description("Export format: 'csv' (default), 'json', or 'raw'"),
			mcp.Enum("csv", "json", "raw"),
		),
	), handleExportRun(api))

	s.AddTool(mcp.NewTool("analyze_run",
		mcp.WithDescription("Analyze the rows of the completed run with an OpenAI-compatible LLM, using an analysis profile or an ad-hoc prompt."),
		mcp.WithString("llm_api_key",
			mcp.Required(),
			mcp.Description("API key for the LLM service (OpenAI-compatible)"),
		),
		mcp.WithString("profile_id",
			mcp.Description("Analysis profile id (default: the selected profile). See list_profiles."),
		),
		mcp.WithString("prompt",
			mcp.Description("Ad-hoc prompt; overrides profile_id"),
		),
		mcp.WithString("llm_model",
			mcp.Description("LLM model to use (default: 'gpt-4o-mini')"),
		),
		mcp.WithString("llm_base_url",
			mcp.Description("Base URL for the LLM API (default: 'https://api.openai.com/v1')"),
		),
	), handleAnalyzeRun(api))

	s.AddTool(mcp.NewTool("list_profiles",
		mcp.WithDescription("List the analysis profiles and the selected one."),
	), handleListProfiles(api))

	return s
}

// apiClient calls the tweetscope HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// do sends a request and returns the status code and body.
func (a *apiClient) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// apiError extracts the structured error from a failure body.
func apiError(status int, body []byte) string {
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != nil {
		return fmt.Sprintf("[%s] %s", er.Error.Code, er.Error.Message)
	}
	return fmt.Sprintf("API returned %d", status)
}

// getRun fetches the current run snapshot.
func (a *apiClient) getRun(ctx context.Context) (*models.RunSnapshot, error) {
	status, body, err := a.do(ctx, http.MethodGet, "/api/v1/runs/current", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s", apiError(status, body))
	}
	var rr models.RunResponse
	if err := json.Unmarshal(body, &rr); err != nil || rr.Run == nil {
		return nil, fmt.Errorf("parse run response: %v", err)
	}
	return rr.Run, nil
}

// pollRun polls the current run until it leaves in_progress or ctx ends.
// A different run id means ours was reset and replaced.
func pollRun(ctx context.Context, a *apiClient, runID string, interval time.Duration) (*models.RunSnapshot, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			run, err := a.getRun(ctx)
			if err != nil {
				return nil, err
			}
			if run.RunID != runID {
				return nil, fmt.Errorf("run %s was reset", runID)
			}
			if run.State != models.RunInProgress {
				return run, nil
			}
		}
	}
}

func formatRun(run *models.RunSnapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s: %s", run.RunID, run.State)
	if run.Phase != "" {
		fmt.Fprintf(&sb, " (%s)", run.Phase)
	}
	sb.WriteString("\n")
	if run.JobID != "" {
		fmt.Fprintf(&sb, "Provider job: %s %s\n", run.JobID, run.JobStatus)
	}
	if len(run.Targets) > 0 {
		fmt.Fprintf(&sb, "Targets: %s\n", strings.Join(run.Targets, ", "))
	}
	fmt.Fprintf(&sb, "Rows: %d\n", run.RowCount)
	if run.Error != nil {
		fmt.Fprintf(&sb, "Error: [%s] %s\n", run.Error.Code, run.Error.Message)
	}
	return sb.String()
}

func handleScrapeAccounts(api *apiClient, interval time.Duration) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, err := request.RequireString("apify_token")
		if err != nil {
			return mcp.NewToolResultError("apify_token is required"), nil
		}
		targets, err := request.RequireStringSlice("targets")
		if err != nil {
			return mcp.NewToolResultError("targets is required and must be an array of strings"), nil
		}

		payload := models.ScrapeRequest{
			Token:        token,
			Targets:      targets,
			DesiredCount: request.GetInt("desired_count", 0),
		}
		args := request.GetArguments()
		if _, ok := args["include_replies"]; ok {
			v := request.GetBool("include_replies", true)
			payload.IncludeReplies = &v
		}
		if _, ok := args["include_user_info"]; ok {
			v := request.GetBool("include_user_info", true)
			payload.IncludeUserInfo = &v
		}

		status, body, err := api.do(ctx, http.MethodPost, "/api/v1/runs", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run request failed: %v", err)), nil
		}
		if status != http.StatusAccepted {
			return mcp.NewToolResultError(apiError(status, body)), nil
		}
		var started models.RunResponse
		if err := json.Unmarshal(body, &started); err != nil || started.Run == nil {
			return mcp.NewToolResultError("failed to parse run response"), nil
		}

		run, err := pollRun(ctx, api, started.Run.RunID, interval)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling run failed: %v", err)), nil
		}
		if run.State == models.RunFailed {
			return mcp.NewToolResultError(formatRun(run)), nil
		}
		return mcp.NewToolResultText(formatRun(run)), nil
	}
}

func handleGetRun(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		run, err := api.getRun(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatRun(run)), nil
	}
}

func handleExportRun(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := url.Values{}
		q.Set("format", request.GetString("format", "csv"))

		status, body, err := api.do(ctx, http.MethodGet, "/api/v1/runs/current/export?"+q.Encode(), nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("export request failed: %v", err)), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(apiError(status, body)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleAnalyzeRun(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("llm_api_key")
		if err != nil {
			return mcp.NewToolResultError("llm_api_key is required"), nil
		}

		payload := models.AnalyzeRequest{
			LLMAPIKey:  key,
			ProfileID:  request.GetString("profile_id", ""),
			Prompt:     request.GetString("prompt", ""),
			LLMModel:   request.GetString("llm_model", ""),
			LLMBaseURL: request.GetString("llm_base_url", ""),
		}

		status, body, err := api.do(ctx, http.MethodPost, "/api/v1/analyze", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analyze request failed: %v", err)), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(apiError(status, body)), nil
		}

		var resp models.AnalyzeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse analyze response: %v", err)), nil
		}

		result := resp.Analysis
		if resp.LLMUsage != nil {
			result += fmt.Sprintf("\n\n---\nModel: %s, tokens: %d", resp.Model, resp.LLMUsage.TotalTokens)
		}
		return mcp.NewToolResultText(result), nil
	}
}

func handleListProfiles(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, body, err := api.do(ctx, http.MethodGet, "/api/v1/profiles", nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("profiles request failed: %v", err)), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(apiError(status, body)), nil
		}

		var list models.ProfileListResponse
		if err := json.Unmarshal(body, &list); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse profiles: %v", err)), nil
		}

		var sb strings.Builder
		for _, p := range list.Profiles {
			mark := " "
			if p.ID == list.SelectedID {
				mark = "*"
			}
			kind := "custom"
			if p.BuiltIn {
				kind = "built-in"
			}
			fmt.Fprintf(&sb, "%s %s (%s, %s)\n  %s\n", mark, p.ID, p.Name, kind, p.Prompt)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
