package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// ListMessages returns a page of messages in chronological order, newest
// page first via the before_id cursor.
func (h *MessagingHandler) ListMessages(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	callerID := c.GetInt("userID")
	if _, _, err := h.conversations.GetForUser(c.Request.Context(), conversationID, callerID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	var beforeID *int
	if raw := c.Query("before_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before_id"})
			return
		}
		// 0 means no cursor: serve the newest page.
		if id > 0 {
			beforeID = &id
		}
	}

	msgs, total, hasMore, err := h.messages.List(c.Request.Context(), conversationID, beforeID, limitParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	hydrated, err := h.hydrateMessages(c, msgs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}

	c.JSON(http.StatusOK, models.MessageList{Messages: hydrated, Total: total, HasMore: hasMore})
}

// SendMessage appends a message to the conversation. The insert, the
// conversation preview update and the unread fan-out commit atomically in
// the repository.
func (h *MessagingHandler) SendMessage(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	callerID := c.GetInt("userID")
	if _, _, err := h.conversations.GetForUser(c.Request.Context(), conversationID, callerID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	var req struct {
		Content    string  `json:"content" binding:"required"`
		Attachment *string `json:"attachment"`
		ReplyToID  *int    `json:"reply_to_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Create(c.Request.Context(), conversationID, callerID, req.Content, req.Attachment, req.ReplyToID)
	if err != nil {
		if errors.Is(err, repositories.ErrReplyNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reply message not found in this conversation"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}
	observability.IncMessageSent()
	h.emitter.Emit(c.Request.Context(), "INFO", "message sent", requestIDFromContext(c), userIDFromContext(c))

	hydrated, err := h.hydrateMessages(c, []models.Message{msg})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}

	c.JSON(http.StatusCreated, hydrated[0])
}

// EditMessage rewrites the content of the caller's own message.
func (h *MessagingHandler) EditMessage(c *gin.Context) {
	conversationID, messageID, ok := parseMessageIDs(c)
	if !ok {
		return
	}

	callerID := c.GetInt("userID")
	if _, _, err := h.conversations.GetForUser(c.Request.Context(), conversationID, callerID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Edit(c.Request.Context(), conversationID, messageID, callerID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, repositories.ErrNotSender):
			c.JSON(http.StatusForbidden, gin.H{"error": "can only edit your own messages"})
		case errors.Is(err, repositories.ErrMessageDeleted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot edit deleted message"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to edit message"})
		}
		return
	}

	c.JSON(http.StatusOK, msg)
}

// DeleteMessage soft-deletes the caller's own message, replacing its content
// with the placeholder.
func (h *MessagingHandler) DeleteMessage(c *gin.Context) {
	conversationID, messageID, ok := parseMessageIDs(c)
	if !ok {
		return
	}

	callerID := c.GetInt("userID")
	if _, _, err := h.conversations.GetForUser(c.Request.Context(), conversationID, callerID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	if err := h.messages.SoftDelete(c.Request.Context(), conversationID, messageID, callerID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, repositories.ErrNotSender):
			c.JSON(http.StatusForbidden, gin.H{"error": "can only delete your own messages"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		}
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "message deleted", requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}

// MarkRead zeroes the caller's unread counter, optionally recording the last
// read message id.
func (h *MessagingHandler) MarkRead(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	callerID := c.GetInt("userID")
	if _, _, err := h.conversations.GetForUser(c.Request.Context(), conversationID, callerID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	var req struct {
		MessageID *int `json:"message_id"`
	}
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.participants.MarkRead(c.Request.Context(), conversationID, callerID, req.MessageID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}

	c.Status(http.StatusNoContent)
}

// hydrateMessages attaches sender records and reply targets to a message
// page using one batched query per concern. Reply targets are returned even
// when deleted; their content is already the placeholder.
func (h *MessagingHandler) hydrateMessages(c *gin.Context, msgs []models.Message) ([]models.MessageWithSender, error) {
	senderIDs := make([]int, 0, len(msgs))
	senderSeen := map[int]struct{}{}
	replyIDs := make([]int, 0, len(msgs))
	replySeen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := senderSeen[m.SenderID]; !ok {
			senderSeen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
		if m.ReplyToID != nil {
			if _, ok := replySeen[*m.ReplyToID]; !ok {
				replySeen[*m.ReplyToID] = struct{}{}
				replyIDs = append(replyIDs, *m.ReplyToID)
			}
		}
	}

	users, err := h.users.ListByIDs(c.Request.Context(), senderIDs)
	if err != nil {
		return nil, err
	}
	userByID := make(map[int]models.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	replies, err := h.messages.ListByIDs(c.Request.Context(), replyIDs)
	if err != nil {
		return nil, err
	}
	replyByID := make(map[int]models.Message, len(replies))
	for _, r := range replies {
		replyByID[r.ID] = r
	}

	result := make([]models.MessageWithSender, 0, len(msgs))
	for _, m := range msgs {
		mws := models.MessageWithSender{Message: m}
		if u, ok := userByID[m.SenderID]; ok {
			user := u
			mws.Sender = &user
		}
		if m.ReplyToID != nil {
			if r, ok := replyByID[*m.ReplyToID]; ok {
				reply := r
				mws.ReplyTo = &reply
			}
		}
		result = append(result, mws)
	}
	return result, nil
}
