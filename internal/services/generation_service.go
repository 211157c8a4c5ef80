package services

import (
	"context"
	"errors"
	"fmt"

	"inkwell_go_backend/internal/models"
	"inkwell_go_backend/internal/utils/broker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GenerationResult is the caller-visible outcome of a generation request.
// Success is false only for a quota rejection; provider exhaustion still
// returns usable fallback content with Success true.
type GenerationResult struct {
	Success    bool   `json:"success"`
	Content    string `json:"content"`
	ModelID    string `json:"model"`
	Provider   string `json:"provider"`
	TokensUsed int    `json:"tokens_used"`
	Remaining  int    `json:"remaining"`
}

// GenerationService orchestrates one generation request: quota consumption,
// dispatch through the provider chain, fallback on exhaustion, and the
// conversation bookkeeping that lives outside the dispatcher.
type GenerationService struct {
	quota         QuotaChecker
	dispatcher    CompletionDispatcher
	conversations ConversationStore
	fallback      *FallbackService
	messageBroker *broker.Broker
	systemPrompt  string
	log           zerolog.Logger
}

func NewGenerationService(
	quota QuotaChecker,
	dispatcher CompletionDispatcher,
	conversations ConversationStore,
	fallback *FallbackService,
	messageBroker *broker.Broker,
	systemPrompt string,
	log zerolog.Logger,
) *GenerationService {
	return &GenerationService{
		quota:         quota,
		dispatcher:    dispatcher,
		conversations: conversations,
		fallback:      fallback,
		messageBroker: messageBroker,
		systemPrompt:  systemPrompt,
		log:           log,
	}
}

// Generate handles one chat message for a user. The quota is consumed
// atomically before any provider call; a QuotaExceededError is returned as-is
// so handlers can surface used/limit/remaining.
func (s *GenerationService) Generate(ctx context.Context, user *models.User, sessionID, message string) (*GenerationResult, error) {
	used, err := s.quota.ConsumeDailyUsage(user.ID, user.Plan)
	if err != nil {
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			return &GenerationResult{Success: false}, err
		}
		// Store failure: the gate fails closed rather than permitting
		// unmetered use.
		return &GenerationResult{Success: false}, fmt.Errorf("quota check failed: %w", err)
	}

	if err := s.conversations.SaveConversationToDB(user.ID, sessionID); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	if err := s.conversations.SaveMessageToDB(sessionID, "user", message); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	result, _, err := s.dispatcher.Dispatch(ctx, CompletionRequest{
		SystemPrompt: s.systemPrompt,
		UserMessage:  message,
	})
	if err != nil {
		if !errors.Is(err, ErrProvidersExhausted) {
			// Caller cancelled mid-flight; nothing useful to persist.
			return nil, err
		}
		result = s.fallback.Respond()
		s.log.Info().Str("session_id", sessionID).Msg("serving fallback response after provider exhaustion")
	}

	if err := s.conversations.SaveGeneratedMessageToDB(sessionID, result); err != nil {
		// The user already has their content; losing the history row is
		// logged, not surfaced.
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to save generated message")
	}

	remaining := s.remainingAfter(user, used)
	s.publishUsageUpdate(user.ID, used, remaining)

	return &GenerationResult{
		Success:    true,
		Content:    result.Content,
		ModelID:    result.ModelID,
		Provider:   result.Provider,
		TokensUsed: result.TokensUsed,
		Remaining:  remaining,
	}, nil
}

// ErrNotConversationOwner is returned when a user tries to act on a
// conversation that belongs to someone else.
var ErrNotConversationOwner = errors.New("conversation does not belong to user")

// GetUserConversationHistory returns all conversations for a user.
func (s *GenerationService) GetUserConversationHistory(userID uuid.UUID) ([]models.Conversation, error) {
	return s.conversations.GetConversationsByUserIDFromDB(userID)
}

// DeleteConversation removes a conversation and its messages after verifying
// the requesting user owns it.
func (s *GenerationService) DeleteConversation(userID uuid.UUID, sessionID string) error {
	conversation, err := s.conversations.GetConversationBySessionIDFromDB(sessionID)
	if err != nil {
		return err
	}
	if conversation.UserID != userID {
		return ErrNotConversationOwner
	}
	return s.conversations.DeleteConversationBySessionIDFromDB(sessionID)
}

func (s *GenerationService) remainingAfter(user *models.User, used int) int {
	limit := DailyLimitForPlan(user.Plan)
	if limit == UnlimitedQuota {
		return UnlimitedQuota
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (s *GenerationService) publishUsageUpdate(userID uuid.UUID, used, remaining int) {
	if s.messageBroker == nil {
		return
	}
	s.messageBroker.Publish("usage_update_"+userID.String(), fmt.Sprintf(`{"used": %d, "remaining": %d}`, used, remaining))
}
