package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// MessagingHandler exposes the messaging endpoints: conversation listing and
// lookup, per-user settings, and the message log operations.
type MessagingHandler struct {
	conversations repositories.ConversationRepository
	participants  repositories.ParticipantRepository
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	emitter       *telemetry.AuditEmitter
}

// NewMessagingHandler builds a MessagingHandler.
func NewMessagingHandler(
	conversations repositories.ConversationRepository,
	participants repositories.ParticipantRepository,
	messages repositories.MessageRepository,
	users repositories.UserRepository,
	emitter *telemetry.AuditEmitter,
) *MessagingHandler {
	return &MessagingHandler{
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		users:         users,
		emitter:       emitter,
	}
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit < 1 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func skipParam(c *gin.Context) int {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		return 0
	}
	return skip
}

func parseConversationID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return 0, false
	}
	return id, true
}

func parseMessageIDs(c *gin.Context) (int, int, bool) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return 0, 0, false
	}
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, 0, false
	}
	return conversationID, messageID, true
}

// buildDetails assembles the API view of conversations for one caller:
// active participants with their user records, the caller's unread count,
// and the counterpart user for direct conversations. Participants and users
// are loaded in two batched queries regardless of page size.
func (h *MessagingHandler) buildDetails(ctx context.Context, callerID int, items []models.UserConversation) ([]models.ConversationDetail, error) {
	conversationIDs := make([]int, 0, len(items))
	for _, item := range items {
		conversationIDs = append(conversationIDs, item.Conversation.ID)
	}

	participantsByConv, err := h.participants.ActiveParticipants(ctx, conversationIDs)
	if err != nil {
		return nil, err
	}

	userIDs := make([]int, 0, len(items)*2)
	seen := map[int]struct{}{}
	for _, id := range conversationIDs {
		for _, p := range participantsByConv[id] {
			if _, ok := seen[p.UserID]; !ok {
				seen[p.UserID] = struct{}{}
				userIDs = append(userIDs, p.UserID)
			}
		}
	}

	users, err := h.users.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	userByID := make(map[int]models.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	details := make([]models.ConversationDetail, 0, len(items))
	for _, item := range items {
		detail := models.ConversationDetail{
			Conversation: item.Conversation,
			Participants: make([]models.ParticipantWithUser, 0, 2),
			UnreadCount:  item.Participant.UnreadCount,
		}
		for _, p := range participantsByConv[item.Conversation.ID] {
			pw := models.ParticipantWithUser{Participant: p}
			if u, ok := userByID[p.UserID]; ok {
				user := u
				pw.User = &user
				if p.UserID != callerID && detail.OtherUser == nil {
					detail.OtherUser = &user
				}
			}
			detail.Participants = append(detail.Participants, pw)
		}
		details = append(details, detail)
	}
	return details, nil
}

func (h *MessagingHandler) buildDetail(ctx context.Context, callerID int, conv models.Conversation, participant models.Participant) (models.ConversationDetail, error) {
	details, err := h.buildDetails(ctx, callerID, []models.UserConversation{{Conversation: conv, Participant: participant}})
	if err != nil {
		return models.ConversationDetail{}, err
	}
	return details[0], nil
}
