package api

import (
	"errors"
	"net/http"
	"time"

	"inkwell_go_backend/internal/auth"
	apperrors "inkwell_go_backend/internal/errors"
	"inkwell_go_backend/internal/models"
	"inkwell_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func SetupRoutes(r *gin.Engine, generationService *services.GenerationService, quotaService *services.QuotaService) {
	api := r.Group("/api")
	{
		api.POST("/chat/message", auth.AuthMiddleware(), sendChatMessageHandler(generationService))
		api.GET("/chat/history", auth.AuthMiddleware(), getChatHistoryHandler(generationService))
		api.DELETE("/chat/:session_id", auth.AuthMiddleware(), deleteChatSessionHandler(generationService))
		api.GET("/usage", auth.AuthMiddleware(), getUsageHandler(quotaService))
	}
}

func userFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return nil, false
	}
	userModel, ok := user.(*models.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cast user to *models.User"})
		return nil, false
	}
	return userModel, true
}

func sendChatMessageHandler(generationService *services.GenerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			SessionID string `json:"session_id"`
			Message   string `json:"message" binding:"required"`
		}

		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userModel, ok := userFromContext(c)
		if !ok {
			return
		}

		sessionID := request.SessionID
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		result, err := generationService.Generate(c.Request.Context(), userModel, sessionID, request.Message)
		if err != nil {
			var quotaErr *services.QuotaExceededError
			if errors.As(err, &quotaErr) {
				apperrors.HandleError(c, apperrors.New429QuotaError(quotaErr.Used, quotaErr.Limit, quotaErr.Remaining))
				return
			}
			apperrors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id":  sessionID,
			"content":     result.Content,
			"model":       result.ModelID,
			"provider":    result.Provider,
			"tokens_used": result.TokensUsed,
			"remaining":   result.Remaining,
		})
	}
}

func getChatHistoryHandler(generationService *services.GenerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userModel, ok := userFromContext(c)
		if !ok {
			return
		}

		conversations, err := generationService.GetUserConversationHistory(userModel.ID)
		if err != nil {
			apperrors.HandleError(c, apperrors.LogAndReturn500(err))
			return
		}

		// Process conversations to return a more user-friendly format
		var chatHistory []gin.H
		for _, conversation := range conversations {
			messages := make([]gin.H, len(conversation.Messages))
			for i, msg := range conversation.Messages {
				messages[i] = gin.H{
					"type":        msg.Type,
					"content":     msg.Content,
					"provider":    msg.Provider,
					"model":       msg.ModelID,
					"tokens_used": msg.TokensUsed,
					"timestamp":   msg.Timestamp.Format(time.RFC3339),
				}
			}

			chatHistory = append(chatHistory, gin.H{
				"session_id": conversation.SessionID,
				"messages":   messages,
				"created_at": conversation.CreatedAt.Format(time.RFC3339),
			})
		}

		c.JSON(http.StatusOK, gin.H{"chat_history": chatHistory})
	}
}

func deleteChatSessionHandler(generationService *services.GenerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userModel, ok := userFromContext(c)
		if !ok {
			return
		}

		sessionID := c.Param("session_id")
		if err := generationService.DeleteConversation(userModel.ID, sessionID); err != nil {
			if errors.Is(err, services.ErrNotConversationOwner) {
				apperrors.HandleError(c, apperrors.New403Error())
				return
			}
			apperrors.HandleError(c, apperrors.LogAndReturn500(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully"})
	}
}

func getUsageHandler(quotaService *services.QuotaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userModel, ok := userFromContext(c)
		if !ok {
			return
		}

		status, err := quotaService.CheckLimits(userModel.ID, userModel.Plan)
		if err != nil {
			apperrors.HandleError(c, apperrors.LogAndReturn500(err))
			return
		}

		c.JSON(http.StatusOK, status)
	}
}
