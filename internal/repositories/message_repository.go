package repositories

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"wardrobe-chat-service/internal/models"
)

const (
	defaultThreadPageSize = 50
	maxThreadPageSize     = 200
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	Append(ctx context.Context, senderID, receiverID, body string, product *models.ProductRef) (models.Message, error)
	ListThread(ctx context.Context, userA, userB string, limit int, before time.Time) ([]models.Message, error)
	MarkThreadRead(ctx context.Context, readerID, counterpartID string) (int64, error)
	DeleteThread(ctx context.Context, userA, userB string) (int64, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

type messageRow struct {
	ID          int64          `db:"id"`
	SenderID    string         `db:"sender_id"`
	ReceiverID  string         `db:"receiver_id"`
	Body        string         `db:"body"`
	ProductID   sql.NullString `db:"product_id"`
	ProductName sql.NullString `db:"product_name"`
	Read        bool           `db:"read"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r messageRow) toModel() models.Message {
	msg := models.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Body:       r.Body,
		Read:       r.Read,
		CreatedAt:  r.CreatedAt,
	}
	if r.ProductID.Valid {
		msg.Product = &models.ProductRef{ID: r.ProductID.String, Name: r.ProductName.String}
	}
	return msg
}

// Append stores a new message with read=false and a server-assigned timestamp.
func (r *MessageRepo) Append(ctx context.Context, senderID, receiverID, body string, product *models.ProductRef) (models.Message, error) {
	var productID, productName sql.NullString
	if product != nil {
		productID = sql.NullString{String: product.ID, Valid: true}
		productName = sql.NullString{String: product.Name, Valid: true}
	}

	var row messageRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, receiver_id, body, product_id, product_name)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, sender_id, receiver_id, body, product_id, product_name, read, created_at`,
		senderID, receiverID, body, productID, productName).StructScan(&row)
	if err != nil {
		return models.Message{}, err
	}
	return row.toModel(), nil
}

// ListThread returns messages between two users in either direction, ordered
// by creation time ascending. The page is keyset-bounded: at most limit rows,
// and only rows created strictly before the cursor when one is given.
func (r *MessageRepo) ListThread(ctx context.Context, userA, userB string, limit int, before time.Time) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultThreadPageSize
	}
	if limit > maxThreadPageSize {
		limit = maxThreadPageSize
	}

	query := `SELECT id, sender_id, receiver_id, body, product_id, product_name, read, created_at
        FROM messages
        WHERE ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1))`
	args := []interface{}{userA, userB}
	if !before.IsZero() {
		query += ` AND created_at < $3`
		args = append(args, before)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	// Fetched newest-first for the cursor; callers expect ascending.
	msgs := make([]models.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		msgs = append(msgs, rows[i].toModel())
	}
	return msgs, nil
}

// MarkThreadRead flips read=true on every unread message sent by counterpart
// to reader. Idempotent; returns the number of rows updated.
func (r *MessageRepo) MarkThreadRead(ctx context.Context, readerID, counterpartID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read = TRUE
        WHERE receiver_id=$1 AND sender_id=$2 AND read = FALSE`, readerID, counterpartID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteThread removes all messages between the two users in either direction.
func (r *MessageRepo) DeleteThread(ctx context.Context, userA, userB string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)`, userA, userB)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type conversationRow struct {
	messageRow
	CounterpartID string `db:"counterpart_id"`
	MessageCount  int    `db:"message_count"`
	UnreadCount   int    `db:"unread_count"`
}

// ListConversations groups the user's messages by counterpart, keeping the
// most recent message per group and counting unread messages addressed to the
// user. Ordered by most-recent-message time descending.
func (r *MessageRepo) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	query := `WITH thread AS (
            SELECT m.*, CASE WHEN m.sender_id=$1 THEN m.receiver_id ELSE m.sender_id END AS counterpart_id
            FROM messages m
            WHERE m.sender_id=$1 OR m.receiver_id=$1
        )
        SELECT DISTINCT ON (counterpart_id)
            counterpart_id, id, sender_id, receiver_id, body, product_id, product_name, read, created_at,
            COUNT(*) OVER (PARTITION BY counterpart_id) AS message_count,
            COUNT(*) FILTER (WHERE receiver_id=$1 AND read = FALSE) OVER (PARTITION BY counterpart_id) AS unread_count
        FROM thread
        ORDER BY counterpart_id, created_at DESC`

	var rows []conversationRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	result := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		result = append(result, models.ConversationSummary{
			CounterpartID: row.CounterpartID,
			LastMessage:   row.toModel(),
			MessageCount:  row.MessageCount,
			UnreadCount:   row.UnreadCount,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastMessage.CreatedAt.After(result[j].LastMessage.CreatedAt)
	})
	return result, nil
}
