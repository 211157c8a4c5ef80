package services

import (
	"context"

	"inkwell_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUsageStore struct {
	mock.Mock
}

func (m *MockUsageStore) GetDailyCount(userID uuid.UUID, day string) (int, error) {
	args := m.Called(userID, day)
	return args.Int(0), args.Error(1)
}

func (m *MockUsageStore) IncrementDailyCount(userID uuid.UUID, day string, limit int) (int, bool, error) {
	args := m.Called(userID, day, limit)
	return args.Int(0), args.Bool(1), args.Error(2)
}

type MockQuotaChecker struct {
	mock.Mock
}

func (m *MockQuotaChecker) CheckLimits(userID uuid.UUID, plan string) (QuotaStatus, error) {
	args := m.Called(userID, plan)
	return args.Get(0).(QuotaStatus), args.Error(1)
}

func (m *MockQuotaChecker) ConsumeDailyUsage(userID uuid.UUID, plan string) (int, error) {
	args := m.Called(userID, plan)
	return args.Int(0), args.Error(1)
}

type MockCompletionDispatcher struct {
	mock.Mock
}

func (m *MockCompletionDispatcher) Dispatch(ctx context.Context, req CompletionRequest) (*CompletionResult, []AttemptOutcome, error) {
	args := m.Called(ctx, req)
	var result *CompletionResult
	if args.Get(0) != nil {
		result = args.Get(0).(*CompletionResult)
	}
	var outcomes []AttemptOutcome
	if args.Get(1) != nil {
		outcomes = args.Get(1).([]AttemptOutcome)
	}
	return result, outcomes, args.Error(2)
}

type MockConversationStore struct {
	mock.Mock
}

func (m *MockConversationStore) SaveConversationToDB(userID uuid.UUID, sessionID string) error {
	args := m.Called(userID, sessionID)
	return args.Error(0)
}

func (m *MockConversationStore) SaveMessageToDB(sessionID, msgType, content string) error {
	args := m.Called(sessionID, msgType, content)
	return args.Error(0)
}

func (m *MockConversationStore) SaveGeneratedMessageToDB(sessionID string, result *CompletionResult) error {
	args := m.Called(sessionID, result)
	return args.Error(0)
}

func (m *MockConversationStore) GetConversationBySessionIDFromDB(sessionID string) (*models.Conversation, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationStore) GetConversationsByUserIDFromDB(userID uuid.UUID) ([]models.Conversation, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *MockConversationStore) DeleteConversationBySessionIDFromDB(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}
