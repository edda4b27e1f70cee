// Package scraper drives scraping jobs on the Apify actor-run API:
// submit a run, poll its status at a fixed interval, fetch the dataset.
package scraper

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
	"time"

	"github.com/use-agent/tweetscope/models"
)

const (
	DefaultBaseURL      = "https://api.apify.com/v2"
	DefaultActorID      = "web.harvester~twitter-scraper"
	DefaultPollInterval = 5 * time.Second

	// repliesDepth and the residential proxy group are fixed actor inputs.
	repliesDepth = 2
	proxyGroup   = "RESIDENTIAL"

	maxErrorBody = 4 << 10
)

// Client talks to the scraping provider. It holds no credentials: every call
// receives the caller's token and sends it only as a bearer header.
type Client struct {
	baseURL      string
	actorID      string
	pollInterval time.Duration
	pollDeadline time.Duration
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider API root (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithActorID selects the actor that performs the scrape.
func WithActorID(id string) Option {
	return func(c *Client) {
		c.actorID = id
	}
}

// WithPollInterval sets the fixed wait before each status read.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithPollDeadline bounds AwaitCompletion. Zero means no client-side limit;
// the run then ends only on a provider terminal status or cancellation.
func WithPollDeadline(d time.Duration) Option {
	return func(c *Client) {
		c.pollDeadline = d
	}
}

// WithHTTPClient sets the http.Client used for all provider calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a provider client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		actorID:      DefaultActorID,
		pollInterval: DefaultPollInterval,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// runInput is the actor input document.
type runInput struct {
	StartURLs           []startURL  `json:"startUrls"`
	TweetsDesired       int         `json:"tweetsDesired"`
	ProfilesDesired     int         `json:"profilesDesired"`
	WithReplies         bool        `json:"withReplies"`
	IncludeUserInfo     bool        `json:"includeUserInfo"`
	ProxyConfig         proxyConfig `json:"proxyConfig"`
	RepliesDepth        int         `json:"repliesDepth"`
	StoreUserIfNoTweets bool        `json:"storeUserIfNoTweets"`
}

type startURL struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

type proxyConfig struct {
	UseApifyProxy    bool     `json:"useApifyProxy"`
	ApifyProxyGroups []string `json:"apifyProxyGroups"`
}

// runEnvelope is the provider's wrapper around run objects.
type runEnvelope struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

// providerError is the provider's error payload.
type providerError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Submit starts a scraping run and returns its handle.
func (c *Client) Submit(ctx context.Context, req *models.ScrapeRequest) (models.JobHandle, error) {
	if err := req.Validate(); err != nil {
		return models.JobHandle{}, err
	}

	input := buildInput(req)
	body, err := json.Marshal(input)
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("marshal run input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/acts/%s/runs", c.baseURL, url.PathEscape(c.actorID))
	var env runEnvelope
	if err := c.do(ctx, http.MethodPost, endpoint, req.Token, body, models.PhaseSubmit, &env); err != nil {
		return models.JobHandle{}, err
	}
	if env.Data.ID == "" {
		return models.JobHandle{}, models.NewTransportError(models.PhaseSubmit, "provider response carried no run id", 0, nil)
	}

	slog.Info("scrape job submitted",
		"job_id", env.Data.ID,
		"targets", len(req.Targets),
		"desired_count", req.DesiredCount,
	)
	return models.JobHandle{JobID: env.Data.ID, CreatedAt: time.Now().UTC()}, nil
}

// Status reads the current status of a run. datasetID is set once the
// provider has assigned the run's result set.
func (c *Client) Status(ctx context.Context, token string, h models.JobHandle) (models.JobStatus, string, error) {
	endpoint := fmt.Sprintf("%s/actor-runs/%s", c.baseURL, url.PathEscape(h.JobID))
	var env runEnvelope
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, models.PhasePoll, &env); err != nil {
		return "", "", err
	}
	return models.ParseJobStatus(env.Data.Status), env.Data.DefaultDatasetID, nil
}

// AwaitCompletion polls the run every poll interval until a terminal status
// is read. On SUCCEEDED it fetches the dataset exactly once; any other
// terminal status fails with JOB_FAILED and fetches nothing. onStatus, if
// non-nil, observes every status read. Failures are not retried.
func (c *Client) AwaitCompletion(ctx context.Context, token string, h models.JobHandle, onStatus func(models.JobStatus)) ([]models.RawRecord, error) {
	if c.pollDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.pollDeadline)
		defer cancel()
	}

	status := models.JobRunning
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, c.stopped(ctx, h)
		case <-timer.C:
		}

		next, datasetID, err := c.Status(ctx, token, h)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.stopped(ctx, h)
			}
			return nil, err
		}
		if !models.CanTransition(status, next) {
			return nil, models.NewTransportError(models.PhasePoll,
				fmt.Sprintf("illegal job status transition %s -> %s", status, next), 0, nil)
		}
		status = next
		if onStatus != nil {
			onStatus(status)
		}
		slog.Debug("scrape job polled", "job_id", h.JobID, "status", status)

		switch status {
		case models.JobRunning:
			timer.Reset(c.pollInterval)
		case models.JobSucceeded:
			if datasetID == "" {
				return nil, models.NewTransportError(models.PhaseFetch, "run succeeded without a dataset id", 0, nil)
			}
			return c.fetchItems(ctx, token, datasetID)
		default:
			slog.Warn("scrape job ended unsuccessfully", "job_id", h.JobID, "status", status)
			return nil, models.NewJobFailedError(status)
		}
	}
}

// fetchItems downloads every item of a dataset in one request.
func (c *Client) fetchItems(ctx context.Context, token, datasetID string) ([]models.RawRecord, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/items?format=json", c.baseURL, url.PathEscape(datasetID))

	var items []models.RawRecord
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, models.PhaseFetch, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.RawRecord{}
	}
	slog.Info("scrape dataset fetched", "dataset_id", datasetID, "items", len(items))
	return items, nil
}

// do performs one provider call and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, method, endpoint, token string, body []byte, phase string, out any) error {
	if token == "" {
		return models.NewAuthError(phase, "scraping provider token is required")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.NewTransportError(phase, "provider request failed", 0, stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyProviderError(phase, resp)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return models.NewTransportError(phase, "failed to parse provider response", resp.StatusCode, err)
	}
	return nil
}

// stopped reports why polling ended early.
func (c *Client) stopped(ctx context.Context, h models.JobHandle) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &models.Error{
			Code:    models.ErrCodePollDeadline,
			Phase:   models.PhasePoll,
			Message: fmt.Sprintf("job %s did not finish in time", h.JobID),
			Err:     ctx.Err(),
		}
	}
	return models.NewTransportError(models.PhasePoll, "polling cancelled", 0, ctx.Err())
}

// classifyProviderError maps a non-2xx provider response to an error.
func classifyProviderError(phase string, resp *http.Response) *models.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := http.StatusText(resp.StatusCode)
	var pe providerError
	if err := json.Unmarshal(raw, &pe); err == nil && pe.Error.Message != "" {
		msg = pe.Error.Message
	} else if trimmed := strings.TrimSpace(string(raw)); trimmed != "" {
		msg = trimmed
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e := models.NewAuthError(phase, msg)
		e.StatusCode = resp.StatusCode
		return e
	default:
		return models.NewTransportError(phase,
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, msg), resp.StatusCode, nil)
	}
}

// stripURL drops the request URL from *url.Error so errors never echo
// provider endpoints with query parameters.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func buildInput(req *models.ScrapeRequest) runInput {
	urls := make([]startURL, len(req.Targets))
	for i, t := range req.Targets {
		urls[i] = startURL{URL: targetURL(t), Method: http.MethodGet}
	}
	return runInput{
		StartURLs:       urls,
		TweetsDesired:   req.DesiredCount,
		ProfilesDesired: len(req.Targets),
		WithReplies:     req.Replies(),
		IncludeUserInfo: req.UserInfo(),
		ProxyConfig: proxyConfig{
			UseApifyProxy:    true,
			ApifyProxyGroups: []string{proxyGroup},
		},
		RepliesDepth:        repliesDepth,
		StoreUserIfNoTweets: false,
	}
}

// targetURL turns a bare handle ("@name" or "name") into a profile URL.
// Anything that already looks like a URL is passed through unchanged.
func targetURL(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	return "https://twitter.com/" + strings.TrimPrefix(target, "@")
}
