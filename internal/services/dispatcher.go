package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// OutcomeKind classifies a single provider attempt.
type OutcomeKind string

const (
	OutcomeSuccess    OutcomeKind = "success"
	OutcomeHTTPError  OutcomeKind = "http-error"
	OutcomeTimeout    OutcomeKind = "timeout"
	OutcomeParseError OutcomeKind = "parse-error"
)

// AttemptOutcome records what happened on one candidate. It is transient,
// used for logging and tests, never persisted.
type AttemptOutcome struct {
	Provider string
	Model    string
	Kind     OutcomeKind
	Detail   string
}

// ErrProvidersExhausted is the dispatcher's normal terminal state when every
// candidate failed. Callers recover via the fallback responder; the error
// never reaches an end user.
var ErrProvidersExhausted = errors.New("all completion providers exhausted")

const maxResponseBodyBytes = 1 << 20

// Dispatcher walks the provider registry in priority order, invoking each
// candidate until one yields a valid normalized result or the list is
// exhausted. Attempts are strictly sequential: extra latency on failure is
// traded for never paying two providers for the same logical request.
type Dispatcher struct {
	registry   *ProviderRegistry
	httpClient *http.Client
	referer    string
	appName    string
	log        zerolog.Logger
}

func NewDispatcher(registry *ProviderRegistry, referer, appName string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			// Per-attempt deadlines come from the request context, not a
			// client-wide timeout.
		},
		referer: referer,
		appName: appName,
		log:     log,
	}
}

// Dispatch tries each candidate at most once, in declared order. The first
// valid result wins and no further candidates are attempted. When all fail
// it returns ErrProvidersExhausted together with the recorded outcomes.
// Caller cancellation propagates into whichever attempt is in flight.
func (d *Dispatcher) Dispatch(ctx context.Context, req CompletionRequest) (*CompletionResult, []AttemptOutcome, error) {
	candidates := d.registry.Candidates()
	outcomes := make([]AttemptOutcome, 0, len(candidates))

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, outcomes, err
		}

		result, outcome := d.attempt(ctx, candidate, req)
		outcomes = append(outcomes, outcome)

		if result != nil {
			d.log.Info().
				Str("provider", candidate.Provider).
				Str("model", candidate.Model).
				Int("tokens", result.TokensUsed).
				Int("attempts", len(outcomes)).
				Msg("completion succeeded")
			return result, outcomes, nil
		}

		d.log.Warn().
			Str("provider", candidate.Provider).
			Str("model", candidate.Model).
			Str("outcome", string(outcome.Kind)).
			Str("detail", outcome.Detail).
			Msg("provider attempt failed, advancing to next candidate")
	}

	d.log.Warn().Int("attempts", len(outcomes)).Msg("all completion providers exhausted")
	return nil, outcomes, ErrProvidersExhausted
}

// attempt issues one bounded network call. Exactly one of the four outcome
// kinds is produced; on timeout the in-flight call is cancelled through the
// request context so no connection is left pending.
func (d *Dispatcher) attempt(ctx context.Context, candidate ProviderCandidate, req CompletionRequest) (*CompletionResult, AttemptOutcome) {
	outcome := AttemptOutcome{Provider: candidate.Provider, Model: candidate.Model}

	attemptCtx, cancel := context.WithTimeout(ctx, candidate.Timeout)
	defer cancel()

	body, err := json.Marshal(chatCompletionRequest{
		Model: candidate.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserMessage},
		},
		MaxTokens:   candidate.MaxTokens,
		Temperature: candidate.Temperature,
	})
	if err != nil {
		outcome.Kind = OutcomeParseError
		outcome.Detail = err.Error()
		return nil, outcome
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, candidate.Endpoint, bytes.NewReader(body))
	if err != nil {
		outcome.Kind = OutcomeHTTPError
		outcome.Detail = err.Error()
		return nil, outcome
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+candidate.APIKey)
	if d.referer != "" {
		httpReq.Header.Set("HTTP-Referer", d.referer)
	}
	if d.appName != "" {
		httpReq.Header.Set("X-Title", d.appName)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			outcome.Kind = OutcomeTimeout
			outcome.Detail = fmt.Sprintf("no response within %s", candidate.Timeout)
		} else {
			outcome.Kind = OutcomeHTTPError
			outcome.Detail = err.Error()
		}
		return nil, outcome
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			outcome.Kind = OutcomeTimeout
			outcome.Detail = fmt.Sprintf("response body not read within %s", candidate.Timeout)
		} else {
			outcome.Kind = OutcomeHTTPError
			outcome.Detail = err.Error()
		}
		return nil, outcome
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome.Kind = OutcomeHTTPError
		outcome.Detail = fmt.Sprintf("status %d", resp.StatusCode)
		return nil, outcome
	}

	result, err := normalizeCompletion(candidate.Provider, candidate.Model, payload)
	if err != nil {
		outcome.Kind = OutcomeParseError
		outcome.Detail = err.Error()
		return nil, outcome
	}

	outcome.Kind = OutcomeSuccess
	return result, outcome
}
