package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CompletionRequest is the value object handed to the dispatcher. It has no
// identity and is discarded after the call.
type CompletionRequest struct {
	SystemPrompt string
	UserMessage  string
}

// CompletionResult is a normalized provider success. Content is guaranteed
// non-empty; a syntactically valid envelope with no usable text never
// becomes a CompletionResult.
type CompletionResult struct {
	Content    string
	TokensUsed int
	ModelID    string
	Provider   string
	Success    bool
}

var (
	ErrEmptyCompletion     = errors.New("completion content is empty")
	ErrMalformedCompletion = errors.New("completion payload does not match expected shape")
)

// Wire shapes for the OpenAI-compatible chat completion contract.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// normalizeCompletion converts a provider success payload into a uniform
// result. Empty or unparsable content is a failure, not a success with
// empty content, so the dispatcher never terminates on a useless result.
func normalizeCompletion(provider, model string, payload []byte) (*CompletionResult, error) {
	var envelope chatCompletionResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCompletion, err)
	}

	if len(envelope.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedCompletion)
	}

	content := envelope.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyCompletion
	}

	tokens := envelope.Usage.TotalTokens
	if tokens <= 0 {
		// Providers occasionally omit usage; record a positive estimate so
		// accounting never sees a zero-cost generation for a real call.
		tokens = estimateTokens(content)
	}

	return &CompletionResult{
		Content:    content,
		TokensUsed: tokens,
		ModelID:    model,
		Provider:   provider,
		Success:    true,
	}, nil
}

func estimateTokens(content string) int {
	estimate := len(content) / 4
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}
