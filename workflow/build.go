package workflow

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/use-agent/tweetscope/cache"
	"github.com/use-agent/tweetscope/config"
	"github.com/use-agent/tweetscope/llm"
	"github.com/use-agent/tweetscope/models"
	"github.com/use-agent/tweetscope/profile"
	"github.com/use-agent/tweetscope/scraper"
)

// Build wires an orchestrator from configuration: the provider client, the
// completion client, the profile store (with presets) and the analysis cache.
func Build(cfg *config.Config) (*Orchestrator, error) {
	var presets []models.AnalysisProfile
	if cfg.Profiles.File != "" {
		var err error
		presets, err = profile.LoadPresets(cfg.Profiles.File)
		if err != nil {
			return nil, err
		}
		slog.Info("profile presets loaded", "file", cfg.Profiles.File, "count", len(presets))
	}
	store, err := profile.NewStore(presets...)
	if err != nil {
		return nil, fmt.Errorf("init profiles: %w", err)
	}

	jobs := scraper.NewClient(
		scraper.WithBaseURL(cfg.Provider.BaseURL),
		scraper.WithActorID(cfg.Provider.ActorID),
		scraper.WithPollInterval(cfg.Provider.PollInterval),
		scraper.WithPollDeadline(cfg.Provider.PollDeadline),
		scraper.WithHTTPClient(&http.Client{Timeout: cfg.Provider.HTTPTimeout}),
	)
	analyzer := llm.NewClient(&http.Client{Timeout: cfg.LLM.Timeout})

	return New(jobs, analyzer, store,
		WithLLMDefaults(cfg.LLM.Model, cfg.LLM.BaseURL),
		WithCache(cache.New(cfg.Cache.MaxEntries)),
	), nil
}
