package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/use-agent/tweetscope/models"
)

func newFakeAPI(t *testing.T, mux *http.ServeMux) *apiClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return &apiClient{baseURL: srv.URL, apiKey: "k", http: srv.Client()}
}

func writeRun(w http.ResponseWriter, status int, run models.RunSnapshot) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.RunResponse{Success: true, Run: &run})
}

func callText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T", res.Content[0])
	}
	return tc.Text
}

func TestScrapeAccounts_PollsUntilTerminal(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		var req models.ScrapeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Token != "apify" || len(req.Targets) != 1 {
			t.Errorf("request = %+v", req)
		}
		writeRun(w, http.StatusAccepted, models.RunSnapshot{RunID: "r1", State: models.RunInProgress})
	})
	mux.HandleFunc("GET /api/v1/runs/current", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			writeRun(w, http.StatusOK, models.RunSnapshot{RunID: "r1", State: models.RunInProgress, Phase: models.PhasePolling})
			return
		}
		writeRun(w, http.StatusOK, models.RunSnapshot{RunID: "r1", State: models.RunCompleted, RowCount: 4, JobID: "j", JobStatus: models.JobSucceeded})
	})
	api := newFakeAPI(t, mux)

	req := mcp.CallToolRequest{}
	req.Params.Name = "scrape_accounts"
	req.Params.Arguments = map[string]any{"apify_token": "apify", "targets": []any{"@golang"}}

	res, err := handleScrapeAccounts(api, time.Millisecond)(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", callText(t, res))
	}
	text := callText(t, res)
	if !strings.Contains(text, "Run r1: completed") || !strings.Contains(text, "Rows: 4") {
		t.Errorf("text = %q", text)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d, want 3", polls.Load())
	}
}

func TestPollRun_DetectsReset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/runs/current", func(w http.ResponseWriter, r *http.Request) {
		writeRun(w, http.StatusOK, models.RunSnapshot{State: models.RunIdle})
	})
	api := newFakeAPI(t, mux)

	if _, err := pollRun(context.Background(), api, "r1", time.Millisecond); err == nil {
		t.Fatal("expected reset error")
	}
}

func TestScrapeAccounts_APIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: &models.ErrorDetail{Code: models.ErrCodeBusy, Message: "busy"}})
	})
	api := newFakeAPI(t, mux)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"apify_token": "apify", "targets": []any{"a"}}
	res, _ := handleScrapeAccounts(api, time.Millisecond)(context.Background(), req)
	if !res.IsError || !strings.Contains(callText(t, res), models.ErrCodeBusy) {
		t.Fatalf("result = %+v", res)
	}
}

func TestListProfiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.ProfileListResponse{
			Profiles: []models.AnalysisProfile{
				{ID: "sentiment", Name: "Sentiment analysis", Prompt: "p1", BuiltIn: true},
				{ID: "profile-x", Name: "Mine", Prompt: "p2"},
			},
			SelectedID: "profile-x",
		})
	})
	api := newFakeAPI(t, mux)

	res, _ := handleListProfiles(api)(context.Background(), mcp.CallToolRequest{})
	text := callText(t, res)
	if !strings.Contains(text, "  sentiment (Sentiment analysis, built-in)") || !strings.Contains(text, "* profile-x (Mine, custom)") {
		t.Errorf("text = %q", text)
	}
}
