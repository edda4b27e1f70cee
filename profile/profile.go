// Package profile keeps the session's analysis profiles: named prompts that
// drive the completion call. Built-in profiles cannot be edited or deleted.
package profile

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/tweetscope/models"
)

// DefaultID is selected at startup and after the selected profile is deleted.
const DefaultID = "sentiment"

// Builtins returns the stock profiles in display order.
func Builtins() []models.AnalysisProfile {
	return []models.AnalysisProfile{
		{
			ID:      "sentiment",
			Name:    "Sentiment analysis",
			Prompt:  "Analyze the following tweets and determine the overall mood of the authors. Summarize which emotions dominate and point out the key topics that draw positive and negative reactions.",
			BuiltIn: true,
		},
		{
			ID:      "topics",
			Name:    "Topic extraction",
			Prompt:  "Analyze the following tweets and identify the 5-7 main topics the authors talk about. For each topic give its importance and example quotes from the tweets.",
			BuiltIn: true,
		},
		{
			ID:      "engagement",
			Name:    "Engagement analysis",
			Prompt:  "Analyze the following tweets and determine which kinds of content attract the most attention. Name the factors that drive the number of likes, retweets and replies.",
			BuiltIn: true,
		},
	}
}

// Store is a concurrency-safe keyed collection of profiles plus the current
// selection. Nothing is persisted.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*models.AnalysisProfile
	order    []string
	selected string
}

// NewStore creates a store seeded with the built-ins and any extra presets.
// Presets are treated as built-ins; a preset reusing an existing id is an error.
func NewStore(presets ...models.AnalysisProfile) (*Store, error) {
	s := &Store{
		byID:     make(map[string]*models.AnalysisProfile),
		selected: DefaultID,
	}
	for _, p := range Builtins() {
		s.add(p)
	}
	for _, p := range presets {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" || p.Name == "" || p.Prompt == "" {
			return nil, fmt.Errorf("profile preset %q: id, name and prompt are required", p.ID)
		}
		if _, exists := s.byID[p.ID]; exists {
			return nil, fmt.Errorf("profile preset %q: duplicate id", p.ID)
		}
		p.BuiltIn = true
		s.add(p)
	}
	return s, nil
}

// presetFile is the on-disk shape of a preset file.
type presetFile struct {
	Profiles []models.AnalysisProfile `yaml:"profiles"`
}

// LoadPresets reads extra built-in profiles from a YAML file:
//
//	profiles:
//	  - id: hiring
//	    name: Hiring signals
//	    prompt: Find tweets that mention open roles...
func LoadPresets(path string) ([]models.AnalysisProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles yaml: %w", err)
	}
	return f.Profiles, nil
}

func (s *Store) add(p models.AnalysisProfile) {
	s.byID[p.ID] = &p
	s.order = append(s.order, p.ID)
}

// List returns copies of all profiles in insertion order.
func (s *Store) List() []models.AnalysisProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AnalysisProfile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Get returns the profile with the given id.
func (s *Store) Get(id string) (models.AnalysisProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return models.AnalysisProfile{}, notFound(id)
	}
	return *p, nil
}

// Create adds a user profile under a fresh id and selects it.
func (s *Store) Create(name, prompt string) (models.AnalysisProfile, error) {
	if err := validate(name, prompt); err != nil {
		return models.AnalysisProfile{}, err
	}
	p := models.AnalysisProfile{
		ID:     "profile-" + uuid.NewString(),
		Name:   strings.TrimSpace(name),
		Prompt: prompt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(p)
	s.selected = p.ID
	return p, nil
}

// Update edits a user profile in place.
func (s *Store) Update(id, name, prompt string) (models.AnalysisProfile, error) {
	if err := validate(name, prompt); err != nil {
		return models.AnalysisProfile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return models.AnalysisProfile{}, notFound(id)
	}
	if p.BuiltIn {
		return models.AnalysisProfile{}, builtIn(id)
	}
	p.Name = strings.TrimSpace(name)
	p.Prompt = prompt
	return *p, nil
}

// Delete removes a user profile. Built-ins are rejected without mutation.
// Deleting the selected profile reverts the selection to DefaultID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return notFound(id)
	}
	if p.BuiltIn {
		return builtIn(id)
	}

	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = DefaultID
	}
	return nil
}

// Select makes id the current profile.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return notFound(id)
	}
	s.selected = id
	return nil
}

// Selected returns the current profile.
func (s *Store) Selected() models.AnalysisProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.byID[s.selected]
}

// SelectedID returns the id of the current profile.
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func validate(name, prompt string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(prompt) == "" {
		return models.NewValidationError("profile name and prompt are required")
	}
	return nil
}

func notFound(id string) *models.Error {
	return models.NewError(models.ErrCodeProfileNotFound, fmt.Sprintf("profile %q not found", id), nil)
}

func builtIn(id string) *models.Error {
	return models.NewError(models.ErrCodeBuiltInProfile, fmt.Sprintf("profile %q is built in and cannot be changed", id), nil)
}
