package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tkhr/ecopoints/internal/models"
	"github.com/tkhr/ecopoints/internal/storage"
)

// CreateUser inserts a new user with a zero balance.
// The external ID format and uniqueness are enforced here, at write time.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if !models.ValidExternalID(user.ExternalID) {
		return storage.ErrInvalidUserID
	}

	existing, err := s.GetUserByExternalID(ctx, user.ExternalID)
	if err != nil {
		return err
	}
	if existing != nil {
		return storage.ErrDuplicateUser
	}

	// Generate ID if not set
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().UnixNano()
	}
	user.Points = 0

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, external_id, name, points, created_at) VALUES (?, ?, ?, 0, ?)",
		user.ID, user.ExternalID, user.Name, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByExternalID retrieves a user by their 9-digit external ID.
func (s *SQLiteStore) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, external_id, name, points, created_at FROM users WHERE external_id = ?",
		externalID,
	).Scan(&user.ID, &user.ExternalID, &user.Name, &user.Points, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ListUsersByRank returns every user ordered by the ranking key.
// The trailing id keeps the order total if two accounts share a timestamp.
func (s *SQLiteStore) ListUsersByRank(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, external_id, name, points, created_at FROM users ORDER BY points DESC, created_at ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.ExternalID, &user.Name, &user.Points, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
