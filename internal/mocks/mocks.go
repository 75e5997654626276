package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) GetOrCreateDirect(ctx context.Context, userID int, recipientID int) (models.Conversation, bool, error) {
	args := m.Called(ctx, userID, recipientID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Bool(1), args.Error(2)
}

func (m *ConversationRepositoryMock) GetForUser(ctx context.Context, conversationID int, userID int) (models.Conversation, models.Participant, error) {
	args := m.Called(ctx, conversationID, userID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	var participant models.Participant
	if val := args.Get(1); val != nil {
		participant = val.(models.Participant)
	}
	return conv, participant, args.Error(2)
}

type ParticipantRepositoryMock struct {
	mock.Mock
}

func (m *ParticipantRepositoryMock) ListForUser(ctx context.Context, userID int, includeArchived bool, skip int, limit int) ([]models.UserConversation, int, error) {
	args := m.Called(ctx, userID, includeArchived, skip, limit)
	var list []models.UserConversation
	if val := args.Get(0); val != nil {
		list = val.([]models.UserConversation)
	}
	return list, args.Int(1), args.Error(2)
}

func (m *ParticipantRepositoryMock) ActiveParticipants(ctx context.Context, conversationIDs []int) (map[int][]models.Participant, error) {
	args := m.Called(ctx, conversationIDs)
	var participants map[int][]models.Participant
	if val := args.Get(0); val != nil {
		participants = val.(map[int][]models.Participant)
	}
	return participants, args.Error(1)
}

func (m *ParticipantRepositoryMock) UpdateSettings(ctx context.Context, conversationID int, userID int, patch models.SettingsPatch) (models.Participant, error) {
	args := m.Called(ctx, conversationID, userID, patch)
	var participant models.Participant
	if val := args.Get(0); val != nil {
		participant = val.(models.Participant)
	}
	return participant, args.Error(1)
}

func (m *ParticipantRepositoryMock) MarkRead(ctx context.Context, conversationID int, userID int, upToMessageID *int) error {
	args := m.Called(ctx, conversationID, userID, upToMessageID)
	return args.Error(0)
}

func (m *ParticipantRepositoryMock) UnreadSummary(ctx context.Context, userID int) (models.UnreadSummary, error) {
	args := m.Called(ctx, userID)
	var summary models.UnreadSummary
	if val := args.Get(0); val != nil {
		summary = val.(models.UnreadSummary)
	}
	return summary, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID int, senderID int, content string, attachment *string, replyToID *int) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content, attachment, replyToID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) List(ctx context.Context, conversationID int, beforeID *int, limit int) ([]models.Message, int, bool, error) {
	args := m.Called(ctx, conversationID, beforeID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Int(1), args.Bool(2), args.Error(3)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, conversationID int, messageID int) (models.Message, error) {
	args := m.Called(ctx, conversationID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListByIDs(ctx context.Context, messageIDs []int) ([]models.Message, error) {
	args := m.Called(ctx, messageIDs)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) Edit(ctx context.Context, conversationID int, messageID int, editorID int, content string) (models.Message, error) {
	args := m.Called(ctx, conversationID, messageID, editorID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, conversationID int, messageID int, deleterID int) error {
	args := m.Called(ctx, conversationID, messageID, deleterID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Get(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListByIDs(ctx context.Context, userIDs []int) ([]models.User, error) {
	args := m.Called(ctx, userIDs)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.ParticipantRepository = (*ParticipantRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
