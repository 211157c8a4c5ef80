package services

import (
	"context"

	"inkwell_go_backend/internal/models"

	"github.com/google/uuid"
)

type QuotaChecker interface {
	CheckLimits(userID uuid.UUID, plan string) (QuotaStatus, error)
	ConsumeDailyUsage(userID uuid.UUID, plan string) (int, error)
}

type CompletionDispatcher interface {
	Dispatch(ctx context.Context, req CompletionRequest) (*CompletionResult, []AttemptOutcome, error)
}

type ConversationStore interface {
	SaveConversationToDB(userID uuid.UUID, sessionID string) error
	SaveMessageToDB(sessionID, msgType, content string) error
	SaveGeneratedMessageToDB(sessionID string, result *CompletionResult) error
	GetConversationBySessionIDFromDB(sessionID string) (*models.Conversation, error)
	GetConversationsByUserIDFromDB(userID uuid.UUID) ([]models.Conversation, error)
	DeleteConversationBySessionIDFromDB(sessionID string) error
}

// UsageStore is the persistence seam for the daily generation counters.
type UsageStore interface {
	GetDailyCount(userID uuid.UUID, day string) (int, error)
	IncrementDailyCount(userID uuid.UUID, day string, limit int) (int, bool, error)
}
