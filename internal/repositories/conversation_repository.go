package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot start conversation with yourself")
)

const conversationColumns = `id, type, name, direct_key, last_message_preview, last_message_at, created_at, updated_at`

// ConversationRepository resolves and gates access to conversations.
type ConversationRepository interface {
	GetOrCreateDirect(ctx context.Context, userID int, recipientID int) (models.Conversation, bool, error)
	GetForUser(ctx context.Context, conversationID int, userID int) (models.Conversation, models.Participant, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// directKey normalizes a user pair into the unique key stored on direct
// conversations. The ordering makes (a,b) and (b,a) collide.
func directKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// GetOrCreateDirect returns the direct conversation between two users,
// creating it together with both participant rows when none exists. The
// reported bool is true when a new conversation was created. Two concurrent
// callers racing on the same pair are serialized by the unique direct_key:
// the loser re-reads and returns the winner's row.
func (r *ConversationRepo) GetOrCreateDirect(ctx context.Context, userID int, recipientID int) (models.Conversation, bool, error) {
	if userID == recipientID {
		return models.Conversation{}, false, ErrSelfConversation
	}
	key := directKey(userID, recipientID)

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE direct_key=$1`, key)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, err
	}

	conv, err = r.createDirect(ctx, key, userID, recipientID)
	if err != nil {
		if isUniqueViolation(err) {
			if err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE direct_key=$1`, key); err != nil {
				return models.Conversation{}, false, err
			}
			return conv, false, nil
		}
		return models.Conversation{}, false, err
	}
	return conv, true, nil
}

func (r *ConversationRepo) createDirect(ctx context.Context, key string, userID int, recipientID int) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var conv models.Conversation
	if err = tx.GetContext(ctx, &conv, `INSERT INTO conversations (type, direct_key) VALUES ($1, $2) RETURNING `+conversationColumns, models.ConversationTypeDirect, key); err != nil {
		return models.Conversation{}, err
	}

	for _, id := range []int{userID, recipientID} {
		if _, err = tx.ExecContext(ctx, `INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`, conv.ID, id); err != nil {
			return models.Conversation{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// GetForUser fetches a conversation together with the caller's active
// participant row. A missing or left membership reads as not found, so
// non-participants cannot tell the conversation exists.
func (r *ConversationRepo) GetForUser(ctx context.Context, conversationID int, userID int) (models.Conversation, models.Participant, error) {
	var participant models.Participant
	err := r.db.GetContext(ctx, &participant, `SELECT `+participantColumns+` FROM conversation_participants
        WHERE conversation_id=$1 AND user_id=$2 AND left_at IS NULL`, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, models.Participant{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, models.Participant{}, err
	}

	var conv models.Conversation
	err = r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, models.Participant{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, models.Participant{}, err
	}
	return conv, participant, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
