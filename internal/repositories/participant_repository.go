package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

const participantColumns = `id, conversation_id, user_id, is_muted, is_archived, is_pinned, unread_count, last_read_at, last_read_message_id, joined_at, left_at`

// ParticipantRepository owns per-user conversation state: membership,
// notification flags, unread accounting and read markers.
type ParticipantRepository interface {
	ListForUser(ctx context.Context, userID int, includeArchived bool, skip int, limit int) ([]models.UserConversation, int, error)
	ActiveParticipants(ctx context.Context, conversationIDs []int) (map[int][]models.Participant, error)
	UpdateSettings(ctx context.Context, conversationID int, userID int, patch models.SettingsPatch) (models.Participant, error)
	MarkRead(ctx context.Context, conversationID int, userID int, upToMessageID *int) error
	UnreadSummary(ctx context.Context, userID int) (models.UnreadSummary, error)
}

// ParticipantRepo is a sqlx implementation of ParticipantRepository.
type ParticipantRepo struct {
	db *sqlx.DB
}

// NewParticipantRepo constructs a ParticipantRepo.
func NewParticipantRepo(db *sqlx.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// ListForUser returns the user's active conversations ordered pinned-first,
// then most recent activity. Archived conversations are skipped unless
// requested. The returned total matches the same filter, independent of the
// skip/limit window.
func (r *ParticipantRepo) ListForUser(ctx context.Context, userID int, includeArchived bool, skip int, limit int) ([]models.UserConversation, int, error) {
	filter := `cp.user_id=$1 AND cp.left_at IS NULL`
	if !includeArchived {
		filter += ` AND cp.is_archived = FALSE`
	}

	query := `SELECT c.id, c.type, c.name, c.direct_key, c.last_message_preview, c.last_message_at, c.created_at, c.updated_at,
            cp.id AS participant_id, cp.is_muted, cp.is_archived, cp.is_pinned, cp.unread_count, cp.last_read_at, cp.last_read_message_id, cp.joined_at
        FROM conversations c
        INNER JOIN conversation_participants cp ON cp.conversation_id = c.id
        WHERE ` + filter + `
        ORDER BY cp.is_pinned DESC, c.last_message_at DESC NULLS LAST
        OFFSET $2 LIMIT $3`

	rows, err := r.db.QueryxContext(ctx, query, userID, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []models.UserConversation
	for rows.Next() {
		var uc models.UserConversation
		if err := rows.Scan(
			&uc.Conversation.ID, &uc.Conversation.Type, &uc.Conversation.Name, &uc.Conversation.DirectKey,
			&uc.Conversation.LastMessagePreview, &uc.Conversation.LastMessageAt,
			&uc.Conversation.CreatedAt, &uc.Conversation.UpdatedAt,
			&uc.Participant.ID, &uc.Participant.IsMuted, &uc.Participant.IsArchived, &uc.Participant.IsPinned,
			&uc.Participant.UnreadCount, &uc.Participant.LastReadAt, &uc.Participant.LastReadMessageID,
			&uc.Participant.JoinedAt,
		); err != nil {
			return nil, 0, err
		}
		uc.Participant.ConversationID = uc.Conversation.ID
		uc.Participant.UserID = userID
		result = append(result, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM conversation_participants cp WHERE ` + filter
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// ActiveParticipants loads the active membership rows for a batch of
// conversations in one query, keyed by conversation id.
func (r *ParticipantRepo) ActiveParticipants(ctx context.Context, conversationIDs []int) (map[int][]models.Participant, error) {
	result := make(map[int][]models.Participant, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return result, nil
	}

	var participants []models.Participant
	err := r.db.SelectContext(ctx, &participants, `SELECT `+participantColumns+` FROM conversation_participants
        WHERE conversation_id = ANY($1) AND left_at IS NULL ORDER BY joined_at ASC`, pq.Array(conversationIDs))
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		result[p.ConversationID] = append(result[p.ConversationID], p)
	}
	return result, nil
}

// UpdateSettings applies only the provided flags to the caller's membership.
func (r *ParticipantRepo) UpdateSettings(ctx context.Context, conversationID int, userID int, patch models.SettingsPatch) (models.Participant, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 5)
	add := func(column string, value bool) {
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)+1))
		args = append(args, value)
	}
	if patch.IsMuted != nil {
		add("is_muted", *patch.IsMuted)
	}
	if patch.IsArchived != nil {
		add("is_archived", *patch.IsArchived)
	}
	if patch.IsPinned != nil {
		add("is_pinned", *patch.IsPinned)
	}

	var participant models.Participant
	if len(sets) == 0 {
		err := r.db.GetContext(ctx, &participant, `SELECT `+participantColumns+` FROM conversation_participants
            WHERE conversation_id=$1 AND user_id=$2 AND left_at IS NULL`, conversationID, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Participant{}, ErrConversationNotFound
		}
		return participant, err
	}

	args = append(args, conversationID, userID)
	query := fmt.Sprintf(`UPDATE conversation_participants SET %s WHERE conversation_id=$%d AND user_id=$%d AND left_at IS NULL RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), participantColumns)
	err := r.db.GetContext(ctx, &participant, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, ErrConversationNotFound
	}
	return participant, err
}

// MarkRead zeroes the caller's unread counter and advances the read markers.
func (r *ParticipantRepo) MarkRead(ctx context.Context, conversationID int, userID int, upToMessageID *int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversation_participants
        SET unread_count=0, last_read_at=NOW(), last_read_message_id=COALESCE($3, last_read_message_id)
        WHERE conversation_id=$1 AND user_id=$2 AND left_at IS NULL`, conversationID, userID, upToMessageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// incrementUnreadForOthers bumps the unread counter of every other active
// participant. The increment happens in SQL so concurrent sends never lose
// updates; exec runs on the sending transaction.
func (r *ParticipantRepo) incrementUnreadForOthers(ctx context.Context, exec sqlx.ExtContext, conversationID int, senderID int) error {
	_, err := exec.ExecContext(ctx, `UPDATE conversation_participants
        SET unread_count = unread_count + 1
        WHERE conversation_id=$1 AND user_id<>$2 AND left_at IS NULL`, conversationID, senderID)
	return err
}

// UnreadSummary aggregates unread counters across the user's active
// conversations. Muted conversations do not contribute to the total but a
// muted conversation with unread messages still counts as one with unread.
func (r *ParticipantRepo) UnreadSummary(ctx context.Context, userID int) (models.UnreadSummary, error) {
	var summary models.UnreadSummary
	err := r.db.GetContext(ctx, &summary.TotalUnread, `SELECT COALESCE(SUM(unread_count), 0) FROM conversation_participants
        WHERE user_id=$1 AND left_at IS NULL AND is_muted = FALSE`, userID)
	if err != nil {
		return models.UnreadSummary{}, err
	}
	err = r.db.GetContext(ctx, &summary.ConversationsWithUnread, `SELECT COUNT(*) FROM conversation_participants
        WHERE user_id=$1 AND left_at IS NULL AND unread_count > 0`, userID)
	if err != nil {
		return models.UnreadSummary{}, err
	}
	return summary, nil
}
