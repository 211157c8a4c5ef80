package services

import (
	"time"

	"inkwell_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultConversationService implements ConversationStore on gorm.
type DefaultConversationService struct {
	db *gorm.DB
}

func NewConversationServiceDB(db *gorm.DB) ConversationStore {
	return &DefaultConversationService{db: db}
}

// SaveConversationToDB creates the conversation row for a session if it does
// not exist yet.
func (s *DefaultConversationService) SaveConversationToDB(userID uuid.UUID, sessionID string) error {
	conversation := &models.Conversation{
		UserID:    userID,
		SessionID: sessionID,
	}
	result := s.db.Where(models.Conversation{SessionID: sessionID}).Assign(conversation).FirstOrCreate(conversation)
	return result.Error
}

// SaveMessageToDB appends a message to an existing conversation.
func (s *DefaultConversationService) SaveMessageToDB(sessionID, msgType, content string) error {
	var conversation models.Conversation
	if err := s.db.Where("session_id = ?", sessionID).First(&conversation).Error; err != nil {
		return err
	}
	message := &models.Message{
		ConversationID: conversation.ID,
		Type:           msgType,
		Content:        content,
		Timestamp:      time.Now(),
	}
	return s.db.Create(message).Error
}

// SaveGeneratedMessageToDB appends an AI reply annotated with the provider,
// model and token usage that produced it.
func (s *DefaultConversationService) SaveGeneratedMessageToDB(sessionID string, result *CompletionResult) error {
	var conversation models.Conversation
	if err := s.db.Where("session_id = ?", sessionID).First(&conversation).Error; err != nil {
		return err
	}
	message := &models.Message{
		ConversationID: conversation.ID,
		Type:           "ai",
		Content:        result.Content,
		Provider:       result.Provider,
		ModelID:        result.ModelID,
		TokensUsed:     result.TokensUsed,
		Timestamp:      time.Now(),
	}
	return s.db.Create(message).Error
}

// GetConversationBySessionIDFromDB retrieves a conversation and its messages.
func (s *DefaultConversationService) GetConversationBySessionIDFromDB(sessionID string) (*models.Conversation, error) {
	var conversation models.Conversation
	result := s.db.Preload("Messages").Where("session_id = ?", sessionID).First(&conversation)
	if result.Error != nil {
		return nil, result.Error
	}
	return &conversation, nil
}

// GetConversationsByUserIDFromDB retrieves all conversations for a user.
func (s *DefaultConversationService) GetConversationsByUserIDFromDB(userID uuid.UUID) ([]models.Conversation, error) {
	var conversations []models.Conversation
	result := s.db.Preload("Messages").Where("user_id = ?", userID).Find(&conversations)
	if result.Error != nil {
		return nil, result.Error
	}
	return conversations, nil
}

// DeleteConversationBySessionIDFromDB deletes a conversation and its messages.
func (s *DefaultConversationService) DeleteConversationBySessionIDFromDB(sessionID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		if err := tx.Where("session_id = ?", sessionID).First(&conversation).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conversation.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&conversation).Error
	})
}
