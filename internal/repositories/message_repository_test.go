package repositories

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func TestTruncatePreview(t *testing.T) {
	short := "hello there"
	assert.Equal(t, short, truncatePreview(short))

	long := strings.Repeat("a", 250)
	got := truncatePreview(long)
	assert.Equal(t, strings.Repeat("a", previewLimit), got)

	// multi-byte content truncates on rune boundaries, not bytes
	wide := strings.Repeat("я", 250)
	got = truncatePreview(wide)
	assert.Equal(t, previewLimit, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func descendingMessages(ids ...int) []models.Message {
	msgs := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		msgs = append(msgs, models.Message{ID: id})
	}
	return msgs
}

func TestTrimPage(t *testing.T) {
	tests := []struct {
		name    string
		fetched []models.Message
		limit   int
		wantIDs []int
		hasMore bool
	}{
		{"empty", nil, 3, nil, false},
		{"under limit", descendingMessages(5, 4), 3, []int{4, 5}, false},
		{"exactly limit", descendingMessages(6, 5, 4), 3, []int{4, 5, 6}, false},
		{"one over limit", descendingMessages(7, 6, 5, 4), 3, []int{5, 6, 7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, hasMore := trimPage(tt.fetched, tt.limit)
			assert.Equal(t, tt.hasMore, hasMore)
			gotIDs := make([]int, 0, len(msgs))
			for _, m := range msgs {
				gotIDs = append(gotIDs, m.ID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, gotIDs)
			} else {
				assert.Equal(t, tt.wantIDs, gotIDs)
			}
		})
	}
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func messageRow(id, conversationID, senderID int, content string, deleted bool) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "conversation_id", "sender_id", "content", "attachment", "reply_to_id",
		"status", "is_edited", "edited_at", "is_deleted", "deleted_at", "created_at",
	})
	if deleted {
		return rows.AddRow(id, conversationID, senderID, content, nil, nil, models.MessageStatusSent, false, nil, true, now, now)
	}
	return rows.AddRow(id, conversationID, senderID, content, nil, nil, models.MessageStatusSent, false, nil, false, nil, now)
}

func TestEditDeletedMessageFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db, NewParticipantRepo(db))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM direct_messages WHERE id=$1 AND conversation_id=$2`)).
		WithArgs(7, 5).
		WillReturnRows(messageRow(7, 5, 1, models.DeletedMessagePlaceholder, true))

	_, err := repo.Edit(context.Background(), 5, 7, 1, "rewrite")
	require.ErrorIs(t, err, ErrMessageDeleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEditByNonSenderFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db, NewParticipantRepo(db))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM direct_messages WHERE id=$1 AND conversation_id=$2`)).
		WithArgs(7, 5).
		WillReturnRows(messageRow(7, 5, 2, "theirs", false))

	_, err := repo.Edit(context.Background(), 5, 7, 1, "rewrite")
	require.ErrorIs(t, err, ErrNotSender)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteByNonSenderFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db, NewParticipantRepo(db))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM direct_messages WHERE id=$1 AND conversation_id=$2`)).
		WithArgs(7, 5).
		WillReturnRows(messageRow(7, 5, 2, "theirs", false))

	err := repo.SoftDelete(context.Background(), 5, 7, 1)
	require.ErrorIs(t, err, ErrNotSender)
	require.NoError(t, mock.ExpectationsWereMet())
}
