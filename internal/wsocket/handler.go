package wsocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"inkwell_go_backend/internal/models"
	"inkwell_go_backend/internal/services"
	"inkwell_go_backend/internal/utils/broker"

	"github.com/gorilla/websocket"
)

type Handler struct {
	generationService *services.GenerationService
	upgrader          websocket.Upgrader
}

type Message struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
}

type aiReply struct {
	Content    string `json:"content"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokensUsed"`
	Remaining  int    `json:"remaining"`
}

func NewHandler(generationService *services.GenerationService, upgrader websocket.Upgrader) *Handler {
	return &Handler{
		generationService: generationService,
		upgrader:          upgrader,
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, user interface{}, messageBroker *broker.Broker) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "No sessionId provided", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading connection: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	userModel := user.(*models.User)
	usageUpdateChan := messageBroker.Subscribe("usage_update_" + userModel.ID.String())
	defer messageBroker.Unsubscribe("usage_update_"+userModel.ID.String(), usageUpdateChan)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-usageUpdateChan:
				if !ok {
					return
				}
				if err := conn.WriteJSON(Message{
					Type:      "usage_update",
					Content:   msg.(string),
					SessionID: sessionID,
				}); err != nil {
					log.Printf("Error sending usage update: %v", err)
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}
		if msg.SessionID == "" {
			msg.SessionID = sessionID
		}

		switch msg.Type {
		case "message":
			h.handleChatMessage(ctx, conn, userModel, msg)
		default:
			log.Printf("Unknown message type: %s", msg.Type)
		}
	}
}

func (h *Handler) handleChatMessage(ctx context.Context, conn *websocket.Conn, user *models.User, msg Message) {
	result, err := h.generationService.Generate(ctx, user, msg.SessionID, msg.Content)
	if err != nil {
		conn.WriteJSON(Message{
			Type:      "error",
			Content:   fmt.Sprintf("Failed to generate response: %v", err),
			SessionID: msg.SessionID,
		})
		return
	}

	replyJSON, err := json.Marshal(aiReply{
		Content:    result.Content,
		Provider:   result.Provider,
		Model:      result.ModelID,
		TokensUsed: result.TokensUsed,
		Remaining:  result.Remaining,
	})
	if err != nil {
		conn.WriteJSON(Message{
			Type:      "error",
			Content:   "Failed to encode response",
			SessionID: msg.SessionID,
		})
		return
	}

	if err := conn.WriteJSON(Message{
		Type:      "ai",
		Content:   string(replyJSON),
		SessionID: msg.SessionID,
	}); err != nil {
		log.Printf("Error sending AI response: %v", err)
	}
}
