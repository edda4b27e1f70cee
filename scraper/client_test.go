package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/tweetscope/cleaner"
	"github.com/use-agent/tweetscope/models"
)

// fakeProvider is an httptest-backed stand-in for the actor-run API.
type fakeProvider struct {
	t        *testing.T
	statuses []string // returned in order; the last one repeats
	dataset  string
	items    string

	submitStatus int
	pollStatus   int

	mu        sync.Mutex
	pollTimes []time.Time
	submits   atomic.Int32
	polls     atomic.Int32
	fetches   atomic.Int32
	lastInput runInput
	lastAuth  string
}

func (f *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /acts/{actor}/runs", func(w http.ResponseWriter, r *http.Request) {
		f.submits.Add(1)
		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&f.lastInput); err != nil {
			f.t.Errorf("decode input: %v", err)
		}
		f.mu.Unlock()
		if f.submitStatus != 0 {
			w.WriteHeader(f.submitStatus)
			w.Write([]byte(`{"error":{"type":"x","message":"rejected by provider"}}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"run-1","status":"READY"}}`))
	})
	mux.HandleFunc("GET /actor-runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.polls.Add(1)) - 1
		f.mu.Lock()
		f.pollTimes = append(f.pollTimes, time.Now())
		f.mu.Unlock()
		if f.pollStatus != 0 {
			w.WriteHeader(f.pollStatus)
			return
		}
		status := f.statuses[min(n, len(f.statuses)-1)]
		resp := map[string]any{"data": map[string]any{"id": r.PathValue("id"), "status": status, "defaultDatasetId": f.dataset}}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("GET /datasets/{id}/items", func(w http.ResponseWriter, r *http.Request) {
		f.fetches.Add(1)
		if r.PathValue("id") != f.dataset {
			f.t.Errorf("fetched dataset %q, want %q", r.PathValue("id"), f.dataset)
		}
		w.Write([]byte(f.items))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeProvider, opts ...Option) *Client {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	base := []Option{WithBaseURL(srv.URL), WithPollInterval(10 * time.Millisecond)}
	return NewClient(append(base, opts...)...)
}

func validRequest() *models.ScrapeRequest {
	req := &models.ScrapeRequest{Token: "secret-token", Targets: []string{"@acct1", "https://x.com/acct2"}, DesiredCount: 25}
	req.Defaults()
	return req
}

func TestSubmit_SendsActorInput(t *testing.T) {
	f := &fakeProvider{}
	c := newTestClient(t, f)

	h, err := c.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if h.JobID != "run-1" || h.CreatedAt.IsZero() {
		t.Fatalf("unexpected handle: %+v", h)
	}
	if f.lastAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", f.lastAuth)
	}

	in := f.lastInput
	if len(in.StartURLs) != 2 || in.StartURLs[0].URL != "https://twitter.com/acct1" || in.StartURLs[1].URL != "https://x.com/acct2" {
		t.Errorf("startUrls = %+v", in.StartURLs)
	}
	if in.TweetsDesired != 25 || in.ProfilesDesired != 2 {
		t.Errorf("counts = %d/%d", in.TweetsDesired, in.ProfilesDesired)
	}
	if !in.WithReplies || !in.IncludeUserInfo {
		t.Error("reply and user-info flags should default to true")
	}
	if in.RepliesDepth != 2 || in.StoreUserIfNoTweets {
		t.Errorf("fixed inputs wrong: depth=%d storeUser=%v", in.RepliesDepth, in.StoreUserIfNoTweets)
	}
	if !in.ProxyConfig.UseApifyProxy || len(in.ProxyConfig.ApifyProxyGroups) != 1 || in.ProxyConfig.ApifyProxyGroups[0] != "RESIDENTIAL" {
		t.Errorf("proxy config = %+v", in.ProxyConfig)
	}
}

func TestSubmit_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		req  *models.ScrapeRequest
		code string
	}{
		{"empty token", &models.ScrapeRequest{Targets: []string{"a"}, DesiredCount: 1}, models.ErrCodeAuth},
		{"empty targets", &models.ScrapeRequest{Token: "t", DesiredCount: 1}, models.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeProvider{}
			c := newTestClient(t, f)
			_, err := c.Submit(context.Background(), tt.req)
			if !models.IsCode(err, tt.code) {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
			if f.submits.Load() != 0 {
				t.Fatal("no request must be sent for invalid input")
			}
		})
	}
}

func TestSubmit_ProviderErrors(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, models.ErrCodeAuth},
		{http.StatusForbidden, models.ErrCodeAuth},
		{http.StatusBadRequest, models.ErrCodeTransport},
		{http.StatusInternalServerError, models.ErrCodeTransport},
	}
	for _, tt := range tests {
		f := &fakeProvider{submitStatus: tt.status}
		c := newTestClient(t, f)
		_, err := c.Submit(context.Background(), validRequest())
		if !models.IsCode(err, tt.code) {
			t.Errorf("status %d: err = %v, want %s", tt.status, err, tt.code)
			continue
		}
		if !strings.Contains(err.Error(), "rejected by provider") {
			t.Errorf("status %d: provider message missing from %q", tt.status, err.Error())
		}
		if strings.Contains(err.Error(), "secret-token") {
			t.Errorf("token leaked into error: %q", err.Error())
		}
		if e := models.AsError(err); e.Phase != models.PhaseSubmit {
			t.Errorf("phase = %q, want submit", e.Phase)
		}
	}
}

func TestAwaitCompletion_PollsUntilSucceeded(t *testing.T) {
	f := &fakeProvider{
		statuses: []string{"RUNNING", "RUNNING", "SUCCEEDED"},
		dataset:  "ds-1",
		items:    `[{"text":"a","likes":3},{"text":"b","user":{"description":"bio"}}]`,
	}
	interval := 15 * time.Millisecond
	c := newTestClient(t, f, WithPollInterval(interval))

	var seen []models.JobStatus
	items, err := c.AwaitCompletion(context.Background(), "secret-token", models.JobHandle{JobID: "run-1"},
		func(s models.JobStatus) { seen = append(seen, s) })
	if err != nil {
		t.Fatalf("AwaitCompletion: %v", err)
	}

	if got := f.polls.Load(); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
	if got := f.fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want exactly 1", got)
	}
	if len(seen) != 3 || seen[2] != models.JobSucceeded {
		t.Errorf("observed statuses = %v", seen)
	}
	for i := 1; i < len(f.pollTimes); i++ {
		if gap := f.pollTimes[i].Sub(f.pollTimes[i-1]); gap < interval {
			t.Errorf("poll %d came %v after the previous one, want >= %v", i, gap, interval)
		}
	}

	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if n, ok := items[0].Number("likes"); !ok || n != 3 {
		t.Errorf("likes = (%v, %v)", n, ok)
	}
	if s, _ := items[1].Map("user").String("description"); s != "bio" {
		t.Errorf("user.description = %q", s)
	}
}

func TestAwaitCompletion_NumericCountersSurviveNormalization(t *testing.T) {
	f := &fakeProvider{
		statuses: []string{"SUCCEEDED"},
		dataset:  "ds-1",
		items:    `[{"text":"a","likes":12.0,"views":1.5e3,"retweets":2.5,"replies":3}]`,
	}
	c := newTestClient(t, f)

	items, err := c.AwaitCompletion(context.Background(), "tok", models.JobHandle{JobID: "run-1"}, nil)
	if err != nil {
		t.Fatalf("AwaitCompletion: %v", err)
	}
	rows := cleaner.Normalize(items)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	got := rows[0].Values()
	want := map[string]float64{
		models.FieldLikeCount:  12,
		models.FieldViewCount:  1500,
		models.FieldShareCount: 2.5,
		models.FieldReplyCount: 3,
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s = %v, want %v", k, got[k], w)
		}
	}
}

func TestAwaitCompletion_TerminalFailuresStopWithoutFetch(t *testing.T) {
	for _, status := range []models.JobStatus{models.JobFailed, models.JobTimedOut, models.JobAborted} {
		t.Run(string(status), func(t *testing.T) {
			f := &fakeProvider{statuses: []string{string(status), "SUCCEEDED"}, dataset: "ds"}
			c := newTestClient(t, f)

			_, err := c.AwaitCompletion(context.Background(), "tok", models.JobHandle{JobID: "run-1"}, nil)
			if !models.IsCode(err, models.ErrCodeJobFailed) {
				t.Fatalf("err = %v, want JOB_FAILED", err)
			}
			if got := models.AsError(err).JobStatus; got != status {
				t.Errorf("JobStatus = %q, want %q", got, status)
			}
			if f.polls.Load() != 1 {
				t.Errorf("polls = %d, want 1", f.polls.Load())
			}
			if f.fetches.Load() != 0 {
				t.Errorf("fetches = %d, want 0", f.fetches.Load())
			}
		})
	}
}

func TestAwaitCompletion_PollTransportError(t *testing.T) {
	f := &fakeProvider{pollStatus: http.StatusBadGateway}
	c := newTestClient(t, f)

	_, err := c.AwaitCompletion(context.Background(), "tok", models.JobHandle{JobID: "run-1"}, nil)
	if !models.IsCode(err, models.ErrCodeTransport) {
		t.Fatalf("err = %v, want TRANSPORT_ERROR", err)
	}
	if e := models.AsError(err); e.Phase != models.PhasePoll || e.StatusCode != http.StatusBadGateway {
		t.Errorf("phase=%q status=%d", e.Phase, e.StatusCode)
	}
	if f.polls.Load() != 1 {
		t.Errorf("failed polls must not be retried, got %d", f.polls.Load())
	}
}

func TestStatus_ReadsRunAndDataset(t *testing.T) {
	f := &fakeProvider{statuses: []string{"TIMING-OUT"}, dataset: "ds-9"}
	c := newTestClient(t, f)

	status, ds, err := c.Status(context.Background(), "tok", models.JobHandle{JobID: "run-1"})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != models.JobRunning || ds != "ds-9" {
		t.Errorf("status=%q dataset=%q", status, ds)
	}
	if f.fetches.Load() != 0 {
		t.Error("status read must not fetch the dataset")
	}
}

func TestAwaitCompletion_SucceededWithoutDataset(t *testing.T) {
	f := &fakeProvider{statuses: []string{"SUCCEEDED"}}
	c := newTestClient(t, f)

	_, err := c.AwaitCompletion(context.Background(), "tok", models.JobHandle{JobID: "run-1"}, nil)
	if e := models.AsError(err); e.Code != models.ErrCodeTransport || e.Phase != models.PhaseFetch {
		t.Fatalf("err = %v, want fetch transport error", err)
	}
}

func TestAwaitCompletion_Deadline(t *testing.T) {
	f := &fakeProvider{statuses: []string{"RUNNING"}}
	c := newTestClient(t, f, WithPollDeadline(60*time.Millisecond))

	_, err := c.AwaitCompletion(context.Background(), "tok", models.JobHandle{JobID: "run-1"}, nil)
	if !models.IsCode(err, models.ErrCodePollDeadline) {
		t.Fatalf("err = %v, want POLL_DEADLINE", err)
	}
	if f.fetches.Load() != 0 {
		t.Error("no fetch expected after deadline")
	}
}

func TestAwaitCompletion_Cancelled(t *testing.T) {
	f := &fakeProvider{statuses: []string{"RUNNING"}}
	c := newTestClient(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.AwaitCompletion(ctx, "tok", models.JobHandle{JobID: "run-1"}, nil)
	if !models.IsCode(err, models.ErrCodeTransport) {
		t.Fatalf("err = %v, want TRANSPORT_ERROR", err)
	}
	if f.polls.Load() != 0 {
		t.Errorf("polls = %d, want 0", f.polls.Load())
	}
}

func TestTargetURL(t *testing.T) {
	tests := map[string]string{
		"@elon":                "https://twitter.com/elon",
		"golang":               "https://twitter.com/golang",
		"https://x.com/golang": "https://x.com/golang",
	}
	for in, want := range tests {
		if got := targetURL(in); got != want {
			t.Errorf("targetURL(%q) = %q, want %q", in, got, want)
		}
	}
}
