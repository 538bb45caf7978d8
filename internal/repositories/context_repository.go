package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"wardrobe-chat-service/internal/models"
	"wardrobe-chat-service/internal/rooms"
)

var ErrContextNotFound = errors.New("conversation context not found")

// ContextRepository abstracts conversation-context persistence.
type ContextRepository interface {
	Upsert(ctx context.Context, userA, userB string, product *models.ProductRef) (models.ConversationContext, error)
	Get(ctx context.Context, userA, userB string) (models.ConversationContext, error)
	DeleteByPair(ctx context.Context, userA, userB string) error
}

// ContextRepo is a sqlx implementation of ContextRepository.
type ContextRepo struct {
	db *sqlx.DB
}

// NewContextRepo constructs a ContextRepo.
func NewContextRepo(db *sqlx.DB) *ContextRepo {
	return &ContextRepo{db: db}
}

type contextRow struct {
	PairKey      string         `db:"pair_key"`
	User1ID      string         `db:"user1_id"`
	User2ID      string         `db:"user2_id"`
	ProductID    sql.NullString `db:"product_id"`
	ProductName  sql.NullString `db:"product_name"`
	ProductImage sql.NullString `db:"product_image"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r contextRow) toModel() models.ConversationContext {
	cc := models.ConversationContext{
		PairKey:   r.PairKey,
		User1ID:   r.User1ID,
		User2ID:   r.User2ID,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ProductID.Valid {
		cc.Product = &models.ProductRef{
			ID:    r.ProductID.String,
			Name:  r.ProductName.String,
			Image: r.ProductImage.String,
		}
	}
	return cc
}

// Upsert replaces the context for the pair wholesale. The unique pair_key plus
// ON CONFLICT keeps concurrent updates from both participants down to one row;
// content is last-write-wins.
func (r *ContextRepo) Upsert(ctx context.Context, userA, userB string, product *models.ProductRef) (models.ConversationContext, error) {
	user1, user2 := rooms.Participants(userA, userB)
	key := rooms.Key(userA, userB)

	var productID, productName, productImage sql.NullString
	if product != nil {
		productID = sql.NullString{String: product.ID, Valid: true}
		productName = sql.NullString{String: product.Name, Valid: true}
		if product.Image != "" {
			productImage = sql.NullString{String: product.Image, Valid: true}
		}
	}

	var row contextRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO conversation_contexts
            (pair_key, user1_id, user2_id, product_id, product_name, product_image, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        ON CONFLICT (pair_key) DO UPDATE SET
            user1_id = EXCLUDED.user1_id,
            user2_id = EXCLUDED.user2_id,
            product_id = EXCLUDED.product_id,
            product_name = EXCLUDED.product_name,
            product_image = EXCLUDED.product_image,
            updated_at = NOW()
        RETURNING pair_key, user1_id, user2_id, product_id, product_name, product_image, updated_at`,
		key, user1, user2, productID, productName, productImage).StructScan(&row)
	if err != nil {
		return models.ConversationContext{}, err
	}
	return row.toModel(), nil
}

// Get fetches the context for a pair.
func (r *ContextRepo) Get(ctx context.Context, userA, userB string) (models.ConversationContext, error) {
	var row contextRow
	err := r.db.GetContext(ctx, &row, `SELECT pair_key, user1_id, user2_id, product_id, product_name, product_image, updated_at
        FROM conversation_contexts WHERE pair_key=$1`, rooms.Key(userA, userB))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConversationContext{}, ErrContextNotFound
	}
	if err != nil {
		return models.ConversationContext{}, err
	}
	return row.toModel(), nil
}

// DeleteByPair removes the context row for a pair, if any.
func (r *ContextRepo) DeleteByPair(ctx context.Context, userA, userB string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversation_contexts WHERE pair_key=$1`, rooms.Key(userA, userB))
	return err
}
