package services

import "math/rand"

// fallbackStatements are topic-neutral replies used when every provider has
// failed, so a chat request never surfaces a raw provider error.
var fallbackStatements = []string{
	"I'm having trouble reaching my writing tools right now. Could you send that again in a moment?",
	"Something on my side is a bit slow at the moment. Please try your request once more shortly.",
	"I couldn't put together a good answer just now. Give me another try in a minute or two.",
	"My generation service is briefly unavailable. Your message wasn't lost, please retry soon.",
}

const fallbackProvider = "internal"

// FallbackService produces a canned, non-empty response after provider
// exhaustion.
type FallbackService struct{}

func NewFallbackService() *FallbackService {
	return &FallbackService{}
}

// Respond picks one of the canned statements at random and tags it with the
// internal provider identity and a nominal token count.
func (s *FallbackService) Respond() *CompletionResult {
	content := fallbackStatements[rand.Intn(len(fallbackStatements))]
	return &CompletionResult{
		Content:    content,
		TokensUsed: estimateTokens(content),
		ModelID:    "fallback",
		Provider:   fallbackProvider,
		Success:    true,
	}
}
