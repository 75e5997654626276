package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// ListConversations returns the caller's conversations, pinned first, most
// recently active next. Archived ones are skipped unless include_archived=true.
func (h *MessagingHandler) ListConversations(c *gin.Context) {
	callerID := c.GetInt("userID")
	includeArchived := c.Query("include_archived") == "true"

	items, total, err := h.participants.ListForUser(c.Request.Context(), callerID, includeArchived, skipParam(c), limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	details, err := h.buildDetails(c.Request.Context(), callerID, items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	c.JSON(http.StatusOK, models.ConversationList{Conversations: details, Total: total})
}

// StartConversation resolves the direct conversation with the recipient,
// creating it if needed, and optionally sends a first message.
func (h *MessagingHandler) StartConversation(c *gin.Context) {
	var req struct {
		RecipientID    int    `json:"recipient_id" binding:"required"`
		InitialMessage string `json:"initial_message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	callerID := c.GetInt("userID")
	if _, err := h.users.Get(c.Request.Context(), req.RecipientID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify recipient"})
		return
	}

	conv, created, err := h.conversations.GetOrCreateDirect(c.Request.Context(), callerID, req.RecipientID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfConversation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start conversation with yourself"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start conversation"})
		return
	}
	if created {
		observability.IncConversationStarted()
	}

	if req.InitialMessage != "" {
		if _, err := h.messages.Create(c.Request.Context(), conv.ID, callerID, req.InitialMessage, nil, nil); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
			return
		}
		observability.IncMessageSent()
	}

	// Re-read so the response reflects the initial message's preview update.
	conv, participant, err := h.conversations.GetForUser(c.Request.Context(), conv.ID, callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	detail, err := h.buildDetail(c.Request.Context(), callerID, conv, participant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "conversation started", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, detail)
}

// GetConversation returns one conversation; 404 unless the caller is an
// active participant.
func (h *MessagingHandler) GetConversation(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	callerID := c.GetInt("userID")
	conv, participant, err := h.conversations.GetForUser(c.Request.Context(), conversationID, callerID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	detail, err := h.buildDetail(c.Request.Context(), callerID, conv, participant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// UpdateSettings patches the caller's mute/archive/pin flags for one
// conversation.
func (h *MessagingHandler) UpdateSettings(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	var patch models.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	callerID := c.GetInt("userID")
	participant, err := h.participants.UpdateSettings(c.Request.Context(), conversationID, callerID, patch)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
		return
	}

	c.JSON(http.StatusOK, participant)
}

// GetUnreadSummary reports the caller's unread totals across conversations.
func (h *MessagingHandler) GetUnreadSummary(c *gin.Context) {
	callerID := c.GetInt("userID")
	summary, err := h.participants.UnreadSummary(c.Request.Context(), callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
