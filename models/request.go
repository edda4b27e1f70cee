package models

import (
	"fmt"
	"strings"
)

// Bounds for ScrapeRequest.DesiredCount.
const (
	MinDesiredCount     = 1
	MaxDesiredCount     = 3000
	DefaultDesiredCount = 10
)

// ScrapeRequest is the payload for POST /api/v1/runs.
type ScrapeRequest struct {
	// Token is the scraping provider's bearer token. Required.
	// It is only ever sent to the provider and never logged.
	Token string `json:"apify_token"`

	// Targets lists account handles or profile URLs. At least one is required.
	Targets []string `json:"targets"`

	// DesiredCount is the number of posts to fetch per target.
	// Default: 10. Range: 1-3000.
	DesiredCount int `json:"desired_count,omitempty"`

	// IncludeReplies asks the provider to include replies. Default: true.
	IncludeReplies *bool `json:"include_replies,omitempty"`

	// IncludeUserInfo asks the provider to attach the author profile. Default: true.
	IncludeUserInfo *bool `json:"include_user_info,omitempty"`

	// WebhookURL receives run.completed / run.failed events when set.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields and drops blank targets.
func (r *ScrapeRequest) Defaults() {
	if r.DesiredCount == 0 {
		r.DesiredCount = DefaultDesiredCount
	}
	if r.IncludeReplies == nil {
		t := true
		r.IncludeReplies = &t
	}
	if r.IncludeUserInfo == nil {
		t := true
		r.IncludeUserInfo = &t
	}

	targets := make([]string, 0, len(r.Targets))
	for _, t := range r.Targets {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	r.Targets = targets
}

// Validate checks the request invariants. Nothing is sent over the network
// for a request that fails validation.
func (r *ScrapeRequest) Validate() error {
	if r.Token == "" {
		return NewAuthError(PhaseSubmit, "scraping provider token is required")
	}
	if len(r.Targets) == 0 {
		return NewValidationError("at least one target account is required")
	}
	if r.DesiredCount < MinDesiredCount || r.DesiredCount > MaxDesiredCount {
		return NewValidationError(fmt.Sprintf("desired_count must be between %d and %d, got %d",
			MinDesiredCount, MaxDesiredCount, r.DesiredCount))
	}
	return nil
}

// Replies reports the effective IncludeReplies flag.
func (r *ScrapeRequest) Replies() bool {
	return r.IncludeReplies == nil || *r.IncludeReplies
}

// UserInfo reports the effective IncludeUserInfo flag.
func (r *ScrapeRequest) UserInfo() bool {
	return r.IncludeUserInfo == nil || *r.IncludeUserInfo
}

// ParseTargets splits newline- or comma-separated input into targets,
// trimming whitespace and dropping empty entries.
func ParseTargets(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	targets := make([]string, 0, len(fields))
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	return targets
}
