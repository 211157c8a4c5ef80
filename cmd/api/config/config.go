package config

import "time"

type Config struct {
	PaidModelTimeout time.Duration
	FreeModelTimeout time.Duration
	MaxTokens        int
	Temperature      float64
	SystemPrompt     string
}

func NewConfig() *Config {
	return &Config{
		PaidModelTimeout: 30 * time.Second,
		FreeModelTimeout: 20 * time.Second,
		MaxTokens:        1024,
		Temperature:      0.7,
		SystemPrompt:     "You are a helpful writing assistant. Answer clearly and keep paragraphs easy to read.",
	}
}
