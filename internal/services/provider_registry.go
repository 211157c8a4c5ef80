package services

import (
	"errors"
	"time"
)

// ProviderCandidate is one configured completion backend. The registry's
// order encodes preference: best paid model first, then free-tier models,
// then an alternate provider.
type ProviderCandidate struct {
	Provider    string
	Model       string
	Endpoint    string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// ProviderConfig carries the credentials and endpoints for all candidate
// backends. It is read once at startup and injected into the registry, never
// read from the environment per request.
type ProviderConfig struct {
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	GroqAPIKey        string
	GroqBaseURL       string
	MaxTokens         int
	Temperature       float64
	PaidTimeout       time.Duration
	FreeTimeout       time.Duration
}

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultGroqBaseURL       = "https://api.groq.com/openai/v1/chat/completions"
)

var ErrNoUsableCandidates = errors.New("no completion provider has a credential configured")

// ProviderRegistry is a static, ordered catalogue of candidates. It is
// immutable after construction and safe to share across requests.
type ProviderRegistry struct {
	candidates []ProviderCandidate
}

// NewProviderRegistry builds the candidate list from config. A registry with
// zero usable candidates is a startup error, not a per-request one.
func NewProviderRegistry(cfg ProviderConfig) (*ProviderRegistry, error) {
	if cfg.OpenRouterBaseURL == "" {
		cfg.OpenRouterBaseURL = defaultOpenRouterBaseURL
	}
	if cfg.GroqBaseURL == "" {
		cfg.GroqBaseURL = defaultGroqBaseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.PaidTimeout == 0 {
		cfg.PaidTimeout = 30 * time.Second
	}
	if cfg.FreeTimeout == 0 {
		cfg.FreeTimeout = 20 * time.Second
	}

	var candidates []ProviderCandidate

	if cfg.OpenRouterAPIKey != "" {
		candidates = append(candidates,
			ProviderCandidate{
				Provider:    "openrouter",
				Model:       "anthropic/claude-3.5-sonnet",
				Endpoint:    cfg.OpenRouterBaseURL,
				APIKey:      cfg.OpenRouterAPIKey,
				Timeout:     cfg.PaidTimeout,
				MaxTokens:   cfg.MaxTokens,
				Temperature: cfg.Temperature,
			},
			ProviderCandidate{
				Provider:    "openrouter",
				Model:       "meta-llama/llama-3.1-8b-instruct:free",
				Endpoint:    cfg.OpenRouterBaseURL,
				APIKey:      cfg.OpenRouterAPIKey,
				Timeout:     cfg.FreeTimeout,
				MaxTokens:   cfg.MaxTokens,
				Temperature: cfg.Temperature,
			},
			ProviderCandidate{
				Provider:    "openrouter",
				Model:       "mistralai/mistral-7b-instruct:free",
				Endpoint:    cfg.OpenRouterBaseURL,
				APIKey:      cfg.OpenRouterAPIKey,
				Timeout:     cfg.FreeTimeout,
				MaxTokens:   cfg.MaxTokens,
				Temperature: cfg.Temperature,
			},
		)
	}

	if cfg.GroqAPIKey != "" {
		candidates = append(candidates, ProviderCandidate{
			Provider:    "groq",
			Model:       "llama-3.1-8b-instant",
			Endpoint:    cfg.GroqBaseURL,
			APIKey:      cfg.GroqAPIKey,
			Timeout:     cfg.FreeTimeout,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	}

	if len(candidates) == 0 {
		return nil, ErrNoUsableCandidates
	}

	return &ProviderRegistry{candidates: candidates}, nil
}

// NewProviderRegistryFromCandidates builds a registry from an explicit
// ordered list. Used by tests and by deployments with custom model mixes.
func NewProviderRegistryFromCandidates(candidates []ProviderCandidate) (*ProviderRegistry, error) {
	usable := make([]ProviderCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.APIKey != "" {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoUsableCandidates
	}
	return &ProviderRegistry{candidates: usable}, nil
}

// Candidates returns the priority-ordered candidate list. The returned slice
// is a copy; the registry itself never mutates.
func (r *ProviderRegistry) Candidates() []ProviderCandidate {
	out := make([]ProviderCandidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}
