package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrReplyNotFound   = errors.New("reply message not found in this conversation")
	ErrNotSender       = errors.New("not the message sender")
	ErrMessageDeleted  = errors.New("message is deleted")
)

const messageColumns = `id, conversation_id, sender_id, content, attachment, reply_to_id, status, is_edited, edited_at, is_deleted, deleted_at, created_at`

// previewLimit caps the conversation preview stored alongside each send.
const previewLimit = 200

// MessageRepository is the append-only message log of a conversation.
type MessageRepository interface {
	Create(ctx context.Context, conversationID int, senderID int, content string, attachment *string, replyToID *int) (models.Message, error)
	List(ctx context.Context, conversationID int, beforeID *int, limit int) ([]models.Message, int, bool, error)
	Get(ctx context.Context, conversationID int, messageID int) (models.Message, error)
	ListByIDs(ctx context.Context, messageIDs []int) ([]models.Message, error)
	Edit(ctx context.Context, conversationID int, messageID int, editorID int, content string) (models.Message, error)
	SoftDelete(ctx context.Context, conversationID int, messageID int, deleterID int) error
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db           *sqlx.DB
	participants *ParticipantRepo
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB, participants *ParticipantRepo) *MessageRepo {
	return &MessageRepo{db: db, participants: participants}
}

// truncatePreview shortens message content to the stored preview length,
// counting characters rather than bytes.
func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit])
}

// Create appends a message and, in the same transaction, refreshes the
// conversation's preview fields and bumps every other active participant's
// unread counter. A reply reference must point at a message of the same
// conversation.
func (r *MessageRepo) Create(ctx context.Context, conversationID int, senderID int, content string, attachment *string, replyToID *int) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if replyToID != nil {
		var exists bool
		if err = tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM direct_messages WHERE id=$1 AND conversation_id=$2)`, *replyToID, conversationID); err != nil {
			return models.Message{}, err
		}
		if !exists {
			err = ErrReplyNotFound
			return models.Message{}, err
		}
	}

	var msg models.Message
	if err = tx.GetContext(ctx, &msg, `INSERT INTO direct_messages (conversation_id, sender_id, content, attachment, reply_to_id)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+messageColumns, conversationID, senderID, content, attachment, replyToID); err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE conversations
        SET last_message_preview=$2, last_message_at=NOW(), updated_at=NOW()
        WHERE id=$1`, conversationID, truncatePreview(content)); err != nil {
		return models.Message{}, err
	}

	if err = r.participants.incrementUnreadForOthers(ctx, tx, conversationID, senderID); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// List returns a page of non-deleted messages in chronological order.
// Paging is keyset on message id: rows strictly below beforeID, newest
// fetched first with one extra row to detect more, then reversed. The total
// is the conversation's full non-deleted count.
func (r *MessageRepo) List(ctx context.Context, conversationID int, beforeID *int, limit int) ([]models.Message, int, bool, error) {
	query := `SELECT ` + messageColumns + ` FROM direct_messages
        WHERE conversation_id=$1 AND is_deleted = FALSE`
	args := []any{conversationID}
	if beforeID != nil {
		query += ` AND id < $2 ORDER BY id DESC LIMIT $3`
		args = append(args, *beforeID, limit+1)
	} else {
		query += ` ORDER BY id DESC LIMIT $2`
		args = append(args, limit+1)
	}

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, 0, false, err
	}

	msgs, hasMore := trimPage(msgs, limit)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM direct_messages WHERE conversation_id=$1 AND is_deleted = FALSE`, conversationID); err != nil {
		return nil, 0, false, err
	}
	return msgs, total, hasMore, nil
}

// trimPage turns a newest-first fetch of limit+1 rows into the ascending
// page to deliver: the extra row only signals that more rows exist below.
func trimPage(msgs []models.Message, limit int) ([]models.Message, bool) {
	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, hasMore
}

// Get fetches a single message scoped to its conversation.
func (r *MessageRepo) Get(ctx context.Context, conversationID int, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM direct_messages WHERE id=$1 AND conversation_id=$2`, messageID, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListByIDs loads a batch of messages regardless of deletion state; deleted
// rows already carry the placeholder content.
func (r *MessageRepo) ListByIDs(ctx context.Context, messageIDs []int) ([]models.Message, error) {
	if len(messageIDs) == 0 {
		return []models.Message{}, nil
	}
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM direct_messages WHERE id = ANY($1)`, pq.Array(messageIDs))
	return msgs, err
}

// Edit replaces the content of the sender's own message. Deleted messages
// are immutable.
func (r *MessageRepo) Edit(ctx context.Context, conversationID int, messageID int, editorID int, content string) (models.Message, error) {
	msg, err := r.Get(ctx, conversationID, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != editorID {
		return models.Message{}, ErrNotSender
	}
	if msg.IsDeleted {
		return models.Message{}, ErrMessageDeleted
	}

	err = r.db.GetContext(ctx, &msg, `UPDATE direct_messages
        SET content=$3, is_edited=TRUE, edited_at=NOW()
        WHERE id=$1 AND conversation_id=$2 AND is_deleted = FALSE
        RETURNING `+messageColumns, messageID, conversationID, content)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageDeleted
	}
	return msg, err
}

// SoftDelete marks the sender's own message deleted and blanks its content
// with the placeholder. The row is never removed.
func (r *MessageRepo) SoftDelete(ctx context.Context, conversationID int, messageID int, deleterID int) error {
	msg, err := r.Get(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != deleterID {
		return ErrNotSender
	}

	_, err = r.db.ExecContext(ctx, `UPDATE direct_messages
        SET is_deleted=TRUE, deleted_at=NOW(), content=$3
        WHERE id=$1 AND conversation_id=$2`, messageID, conversationID, models.DeletedMessagePlaceholder)
	return err
}
