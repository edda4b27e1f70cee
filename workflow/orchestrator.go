// Package workflow sequences one scrape run end to end: submit the job, poll
// it to a terminal status, normalize the records and hold the rows for export
// and analysis. Only one run is in flight at a time.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/tweetscope/cache"
	"github.com/use-agent/tweetscope/cleaner"
	"github.com/use-agent/tweetscope/export"
	"github.com/use-agent/tweetscope/llm"
	"github.com/use-agent/tweetscope/models"
	"github.com/use-agent/tweetscope/profile"
	"github.com/use-agent/tweetscope/webhook"
)

// JobClient is the scraping provider as the orchestrator uses it.
type JobClient interface {
	Submit(ctx context.Context, req *models.ScrapeRequest) (models.JobHandle, error)
	AwaitCompletion(ctx context.Context, token string, h models.JobHandle, onStatus func(models.JobStatus)) ([]models.RawRecord, error)
}

// Analyzer is the completion provider as the orchestrator uses it.
type Analyzer interface {
	Analyze(ctx context.Context, params llm.AnalyzeParams) (*llm.AnalyzeResult, error)
}

// Notifier delivers run events to a caller-supplied webhook.
type Notifier func(url, secret string, event *webhook.Event)

// Orchestrator owns the current run and its rows.
type Orchestrator struct {
	jobs     JobClient
	analyzer Analyzer
	profiles *profile.Store
	cache    *cache.Cache
	notify   Notifier

	llmModel   string
	llmBaseURL string

	mu     sync.Mutex
	snap   models.RunSnapshot
	raw    []models.RawRecord
	cancel context.CancelFunc

	subMu  sync.Mutex
	subs   map[int]chan models.RunSnapshot
	nextID int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache enables the analysis result cache.
func WithCache(c *cache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithNotifier replaces the webhook delivery function.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notify = n
		}
	}
}

// WithLLMDefaults sets the model and base URL used when a request names none.
func WithLLMDefaults(model, baseURL string) Option {
	return func(o *Orchestrator) {
		o.llmModel = model
		o.llmBaseURL = baseURL
	}
}

// New creates an idle orchestrator.
func New(jobs JobClient, analyzer Analyzer, profiles *profile.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		jobs:     jobs,
		analyzer: analyzer,
		profiles: profiles,
		notify:   webhook.DeliverAsync,
		snap:     models.RunSnapshot{State: models.RunIdle},
		subs:     make(map[int]chan models.RunSnapshot),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Profiles exposes the profile store.
func (o *Orchestrator) Profiles() *profile.Store {
	return o.profiles
}

// Run executes a full scrape synchronously and returns the terminal snapshot.
// Prior results are cleared before the new run becomes visible.
func (o *Orchestrator) Run(ctx context.Context, req *models.ScrapeRequest) (models.RunSnapshot, error) {
	runCtx, runID, err := o.begin(ctx, req)
	if err != nil {
		return o.Snapshot(), err
	}
	err = o.execute(runCtx, runID, req)
	return o.Snapshot(), err
}

// Start begins a scrape in the background and returns the in-progress
// snapshot. The run outlives ctx's cancellation but keeps its values.
func (o *Orchestrator) Start(ctx context.Context, req *models.ScrapeRequest) (models.RunSnapshot, error) {
	runCtx, runID, err := o.begin(context.WithoutCancel(ctx), req)
	if err != nil {
		return o.Snapshot(), err
	}
	snap := o.Snapshot()
	go o.execute(runCtx, runID, req)
	return snap, nil
}

// begin validates req, rejects concurrent runs and resets state to a fresh
// in-progress run.
func (o *Orchestrator) begin(ctx context.Context, req *models.ScrapeRequest) (context.Context, string, error) {
	req.Defaults()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	o.mu.Lock()
	if o.snap.State == models.RunInProgress {
		o.mu.Unlock()
		return nil, "", models.NewError(models.ErrCodeBusy, "a scrape run is already in progress", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	now := time.Now().UTC()
	runID := uuid.NewString()
	o.raw = nil
	o.cancel = cancel
	o.snap = models.RunSnapshot{
		RunID:     runID,
		State:     models.RunInProgress,
		Phase:     models.PhaseSubmitting,
		Targets:   append([]string(nil), req.Targets...),
		StartedAt: &now,
	}
	o.publishLocked()
	o.mu.Unlock()

	slog.Info("scrape run started", "run_id", runID, "targets", len(req.Targets), "desired_count", req.DesiredCount)
	return runCtx, runID, nil
}

// execute drives one run to a terminal state. It never panics.
func (o *Orchestrator) execute(ctx context.Context, runID string, req *models.ScrapeRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scrape run panicked", "run_id", runID, "panic", r)
			err = models.NewError(models.ErrCodeInternal, fmt.Sprintf("run aborted: %v", r), nil)
			o.finish(runID, req, nil, nil, err)
		}
	}()

	handle, err := o.jobs.Submit(ctx, req)
	if err != nil {
		o.finish(runID, req, nil, nil, err)
		return err
	}
	o.update(runID, func(s *models.RunSnapshot) {
		s.Phase = models.PhasePolling
		s.JobID = handle.JobID
		s.JobStatus = models.JobRunning
	})

	raw, err := o.jobs.AwaitCompletion(ctx, req.Token, handle, func(st models.JobStatus) {
		o.update(runID, func(s *models.RunSnapshot) { s.JobStatus = st })
	})
	if err != nil {
		o.finish(runID, req, nil, nil, err)
		return err
	}

	o.update(runID, func(s *models.RunSnapshot) { s.Phase = models.PhaseNormalizing })
	rows := cleaner.Normalize(raw)
	o.finish(runID, req, raw, rows, nil)
	return nil
}

// update mutates the snapshot of runID, if it is still the current run.
func (o *Orchestrator) update(runID string, fn func(*models.RunSnapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap.RunID != runID || o.snap.State != models.RunInProgress {
		return
	}
	fn(&o.snap)
	o.publishLocked()
}

// finish moves runID to Completed or Failed. A run that was reset meanwhile
// is discarded.
func (o *Orchestrator) finish(runID string, req *models.ScrapeRequest, raw []models.RawRecord, rows []models.NormalizedRow, runErr error) {
	o.mu.Lock()
	if o.snap.RunID != runID || o.snap.State != models.RunInProgress {
		o.mu.Unlock()
		return
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}

	now := time.Now().UTC()
	o.snap.Phase = ""
	o.snap.FinishedAt = &now
	eventType := webhook.EventRunCompleted
	if runErr != nil {
		e := models.AsError(runErr)
		o.snap.State = models.RunFailed
		o.snap.Error = e.ToDetail()
		if e.JobStatus != "" {
			o.snap.JobStatus = e.JobStatus
		}
		eventType = webhook.EventRunFailed
	} else {
		o.snap.State = models.RunCompleted
		o.snap.Rows = rows
		o.snap.RowCount = len(rows)
		o.raw = raw
	}
	o.publishLocked()
	summary := o.summaryLocked()
	o.mu.Unlock()

	if runErr != nil {
		slog.Warn("scrape run failed", "run_id", runID, "error", runErr)
	} else {
		slog.Info("scrape run completed", "run_id", runID, "rows", len(rows))
	}

	if req != nil && req.WebhookURL != "" {
		o.notify(req.WebhookURL, req.WebhookSecret, webhook.NewEvent(eventType, runID, summary))
	}
}

// Reset returns to Idle, clearing rows and cancelling any in-flight run.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if o.snap.State == models.RunInProgress {
		slog.Info("scrape run cancelled", "run_id", o.snap.RunID)
	}
	o.raw = nil
	o.snap = models.RunSnapshot{State: models.RunIdle}
	if o.cache != nil {
		slog.Debug("analysis cache purged", "entries", o.cache.Len())
		o.cache.Purge()
	}
	o.publishLocked()
}

// Snapshot returns a copy of the current state, rows included.
func (o *Orchestrator) Snapshot() models.RunSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.snap
	s.Targets = append([]string(nil), o.snap.Targets...)
	s.Rows = append([]models.NormalizedRow(nil), o.snap.Rows...)
	return s
}

// State reports the current run state.
func (o *Orchestrator) State() models.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap.State
}

// summaryLocked is the snapshot without rows, as sent to subscribers.
func (o *Orchestrator) summaryLocked() models.RunSnapshot {
	s := o.snap
	s.Targets = append([]string(nil), o.snap.Targets...)
	s.Rows = nil
	return s
}

// held returns the completed run's rows and raw records.
func (o *Orchestrator) held() ([]models.NormalizedRow, []models.RawRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.snap.State != models.RunCompleted || len(o.snap.Rows) == 0 {
		return nil, nil, models.NewError(models.ErrCodeNoData, "no scraped rows available, run a scrape first", nil)
	}
	return o.snap.Rows, o.raw, nil
}

// Export encodes the held rows. NO_DATA is returned when there is nothing
// to export.
func (o *Orchestrator) Export(format export.Format) (string, error) {
	rows, raw, err := o.held()
	if err != nil {
		return "", err
	}
	return export.Encode(format, rows, raw)
}
