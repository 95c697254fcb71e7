package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChatInput defines the structure of the JSON request body.
type ChatInput struct {
	Message string `json:"message" binding:"required"`
}

// AskAssistant is the handler for POST /v1/admin/assistant
func (h *Handlers) AskAssistant(c *gin.Context) {
	if h.AIService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Assistant is not configured"})
		return
	}
	userID, role := currentUser(c)

	// 1. Parse Input
	var input ChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. Ask
	answer, tokens, err := h.AIService.GenerateResponse(c.Request.Context(), input.Message, string(role))
	if err != nil {
		log.Printf("[%s] assistant: %v", c.GetString("requestID"), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Assistant unavailable"})
		return
	}

	// 3. Save to History. The user already has the answer, so a failed write is only logged.
	if _, err := h.DB.Exec(
		"INSERT INTO ai_chat_history (user_id, user_message, ai_response, tokens_used, created_at) VALUES (?, ?, ?, ?, ?)",
		userID, input.Message, answer, tokens, h.now()); err != nil {
		log.Printf("[%s] failed to save chat history: %v", c.GetString("requestID"), err)
	}

	c.JSON(http.StatusOK, gin.H{"response": answer, "tokensUsed": tokens})
}
