package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

func setupMessagingRouter(handler *MessagingHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/messages", handler.ListConversations)
	r.POST("/messages", handler.StartConversation)
	r.GET("/messages/unread/count", handler.GetUnreadSummary)
	r.GET("/messages/:conversation_id", handler.GetConversation)
	r.PATCH("/messages/:conversation_id/settings", handler.UpdateSettings)
	r.GET("/messages/:conversation_id/messages", handler.ListMessages)
	r.POST("/messages/:conversation_id/messages", handler.SendMessage)
	r.PATCH("/messages/:conversation_id/messages/:message_id", handler.EditMessage)
	r.DELETE("/messages/:conversation_id/messages/:message_id", handler.DeleteMessage)
	r.POST("/messages/:conversation_id/read", handler.MarkRead)
	return r
}

func newMessagingMocks() (*mocks.ConversationRepositoryMock, *mocks.ParticipantRepositoryMock, *mocks.MessageRepositoryMock, *mocks.UserRepositoryMock, *MessagingHandler) {
	conversations := new(mocks.ConversationRepositoryMock)
	participants := new(mocks.ParticipantRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	handler := NewMessagingHandler(conversations, participants, messages, users, nil)
	return conversations, participants, messages, users, handler
}

func TestListConversationsSuccess(t *testing.T) {
	_, participants, _, users, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	items := []models.UserConversation{{
		Conversation: models.Conversation{ID: 3, Type: models.ConversationTypeDirect},
		Participant:  models.Participant{ID: 30, ConversationID: 3, UserID: 1, UnreadCount: 2},
	}}
	participants.On("ListForUser", mock.Anything, 1, false, 0, 50).Return(items, 1, nil).Once()
	participants.On("ActiveParticipants", mock.Anything, []int{3}).Return(map[int][]models.Participant{
		3: {
			{ID: 30, ConversationID: 3, UserID: 1, UnreadCount: 2},
			{ID: 31, ConversationID: 3, UserID: 2},
		},
	}, nil).Once()
	users.On("ListByIDs", mock.Anything, []int{1, 2}).Return([]models.User{
		{ID: 1, Username: "me"},
		{ID: 2, Username: "bob"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ConversationList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 2, resp.Conversations[0].UnreadCount)
	require.NotNil(t, resp.Conversations[0].OtherUser)
	assert.Equal(t, 2, resp.Conversations[0].OtherUser.ID)

	participants.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestListConversationsIncludeArchived(t *testing.T) {
	_, participants, _, users, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	participants.On("ListForUser", mock.Anything, 1, true, 5, 10).Return([]models.UserConversation(nil), 0, nil).Once()
	participants.On("ActiveParticipants", mock.Anything, []int{}).Return(map[int][]models.Participant{}, nil).Once()
	users.On("ListByIDs", mock.Anything, []int{}).Return([]models.User{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?include_archived=true&skip=5&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	participants.AssertExpectations(t)
}

func TestListConversationsRepoError(t *testing.T) {
	_, participants, _, _, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	participants.On("ListForUser", mock.Anything, 1, false, 0, 50).Return(([]models.UserConversation)(nil), 0, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	participants.AssertExpectations(t)
}

func TestStartConversationWithInitialMessage(t *testing.T) {
	conversations, participants, messages, users, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	conv := models.Conversation{ID: 10, Type: models.ConversationTypeDirect}
	users.On("Get", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	conversations.On("GetOrCreateDirect", mock.Anything, 1, 2).Return(conv, true, nil).Once()
	messages.On("Create", mock.Anything, 10, 1, "hi", (*string)(nil), (*int)(nil)).Return(models.Message{ID: 7, ConversationID: 10, SenderID: 1, Content: "hi"}, nil).Once()
	conversations.On("GetForUser", mock.Anything, 10, 1).Return(conv, models.Participant{ID: 20, ConversationID: 10, UserID: 1}, nil).Once()
	participants.On("ActiveParticipants", mock.Anything, []int{10}).Return(map[int][]models.Participant{
		10: {
			{ID: 20, ConversationID: 10, UserID: 1},
			{ID: 21, ConversationID: 10, UserID: 2},
		},
	}, nil).Once()
	users.On("ListByIDs", mock.Anything, []int{1, 2}).Return([]models.User{
		{ID: 1, Username: "me"},
		{ID: 2, Username: "bob"},
	}, nil).Once()

	body := bytes.NewBufferString(`{"recipient_id":2,"initial_message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.ConversationDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 10, resp.ID)
	require.NotNil(t, resp.OtherUser)
	assert.Equal(t, 2, resp.OtherUser.ID)

	conversations.AssertExpectations(t)
	messages.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestStartConversationReturnsExisting(t *testing.T) {
	conversations, participants, messages, users, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	conv := models.Conversation{ID: 10, Type: models.ConversationTypeDirect}
	users.On("Get", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	conversations.On("GetOrCreateDirect", mock.Anything, 1, 2).Return(conv, false, nil).Once()
	conversations.On("GetForUser", mock.Anything, 10, 1).Return(conv, models.Participant{ID: 20, ConversationID: 10, UserID: 1}, nil).Once()
	participants.On("ActiveParticipants", mock.Anything, []int{10}).Return(map[int][]models.Participant{}, nil).Once()
	users.On("ListByIDs", mock.Anything, []int{}).Return([]models.User{}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"recipient_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.ConversationDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 10, resp.ID)

	conversations.AssertExpectations(t)
	messages.AssertNotCalled(t, "Create")
}

func TestStartConversationWithSelf(t *testing.T) {
	conversations, _, _, users, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	users.On("Get", mock.Anything, 1).Return(models.User{ID: 1}, nil).Once()
	conversations.On("GetOrCreateDirect", mock.Anything, 1, 1).Return(models.Conversation{}, false, repositories.ErrSelfConversation).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"recipient_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	conversations.AssertExpectations(t)
}

func TestStartConversationRecipientNotFound(t *testing.T) {
	conversations, _, _, users, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	users.On("Get", mock.Anything, 9).Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"recipient_id":9}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	conversations.AssertNotCalled(t, "GetOrCreateDirect")
}

func TestGetConversationNotParticipant(t *testing.T) {
	conversations, _, _, _, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	conversations.On("GetForUser", mock.Anything, 5, 1).Return(models.Conversation{}, models.Participant{}, repositories.ErrConversationNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	conversations.AssertExpectations(t)
}

func TestGetConversationInvalidID(t *testing.T) {
	_, _, _, _, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/messages/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSettingsSuccess(t *testing.T) {
	_, participants, _, _, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	pinned := true
	participants.On("UpdateSettings", mock.Anything, 5, 1, models.SettingsPatch{IsPinned: &pinned}).
		Return(models.Participant{ID: 20, ConversationID: 5, UserID: 1, IsPinned: true}, nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/messages/5/settings", bytes.NewBufferString(`{"is_pinned":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.Participant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.IsPinned)
	participants.AssertExpectations(t)
}

func TestUpdateSettingsNotParticipant(t *testing.T) {
	_, participants, _, _, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	muted := true
	participants.On("UpdateSettings", mock.Anything, 5, 1, models.SettingsPatch{IsMuted: &muted}).
		Return(models.Participant{}, repositories.ErrConversationNotFound).Once()

	req := httptest.NewRequest(http.MethodPatch, "/messages/5/settings", bytes.NewBufferString(`{"is_muted":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	participants.AssertExpectations(t)
}

func TestGetUnreadSummary(t *testing.T) {
	_, participants, _, _, handler := newMessagingMocks()
	router := setupMessagingRouter(handler)

	participants.On("UnreadSummary", mock.Anything, 1).Return(models.UnreadSummary{TotalUnread: 4, ConversationsWithUnread: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/unread/count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.UnreadSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 4, resp.TotalUnread)
	assert.Equal(t, 2, resp.ConversationsWithUnread)
	participants.AssertExpectations(t)
}
