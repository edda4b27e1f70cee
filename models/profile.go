package models

// AnalysisProfile is a named, reusable analysis prompt.
type AnalysisProfile struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Prompt  string `json:"prompt" yaml:"prompt"`
	BuiltIn bool   `json:"built_in" yaml:"-"`
}

// ProfileRequest is the payload for POST /api/v1/profiles and PUT /api/v1/profiles/:id.
type ProfileRequest struct {
	Name   string `json:"name" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
}

// ProfileListResponse is the response for GET /api/v1/profiles.
type ProfileListResponse struct {
	Profiles   []AnalysisProfile `json:"profiles"`
	SelectedID string            `json:"selected_id"`
}
