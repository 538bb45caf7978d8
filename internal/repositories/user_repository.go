package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"wardrobe-chat-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository gives read-only access to the user read model owned by the
// accounts service.
type UserRepository interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Usernames(ctx context.Context, ids []string) (map[string]string, error)
	NotificationTarget(ctx context.Context, userID string) (models.NotificationTarget, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Exists reports whether the account exists.
func (r *UserRepo) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, userID)
	return exists, err
}

// Usernames resolves display names for a set of user ids. Unknown ids are
// simply absent from the result.
func (r *UserRepo) Usernames(ctx context.Context, ids []string) (map[string]string, error) {
	result := map[string]string{}
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT id, username FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, err
		}
		result[id] = username
	}
	return result, rows.Err()
}

// NotificationTarget loads the user's push tokens and notification toggles.
func (r *UserRepo) NotificationTarget(ctx context.Context, userID string) (models.NotificationTarget, error) {
	var row struct {
		Enabled  bool   `db:"notifications_enabled"`
		Messages bool   `db:"message_notifications"`
		Tokens   []byte `db:"push_tokens"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT notifications_enabled, message_notifications, push_tokens
        FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotificationTarget{}, ErrUserNotFound
	}
	if err != nil {
		return models.NotificationTarget{}, err
	}

	target := models.NotificationTarget{Enabled: row.Enabled, Messages: row.Messages}
	if len(row.Tokens) > 0 {
		if err := json.Unmarshal(row.Tokens, &target.Tokens); err != nil {
			return models.NotificationTarget{}, err
		}
	}
	return target, nil
}
