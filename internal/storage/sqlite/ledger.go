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

// Purchase debits the item's price from the user's balance and appends the
// matching buy entry, both inside one database transaction. The balance is
// re-read inside the transaction and the debit carries a points >= price
// guard, so two racing purchases can never drive the balance negative.
func (s *SQLiteStore) Purchase(ctx context.Context, userID, itemName string) (*models.Transaction, error) {
	item, err := s.GetItemByName(ctx, itemName)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, storage.ErrItemNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var points int64
	err = tx.QueryRowContext(ctx, "SELECT points FROM users WHERE id = ?", userID).Scan(&points)
	if err == sql.ErrNoRows {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if points < item.PricePoints {
		return nil, storage.ErrInsufficientBalance
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET points = points - ? WHERE id = ? AND points >= ?",
		item.PricePoints, userID, item.PricePoints,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check debit: %w", err)
	}
	if affected == 0 {
		return nil, storage.ErrInsufficientBalance
	}

	entry := &models.Transaction{
		ID:           uuid.New().String(),
		UserID:       userID,
		Kind:         models.KindBuy,
		ItemName:     item.Name,
		PointsChange: -item.PricePoints,
		CreatedAt:    time.Now().UnixNano(),
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return entry, nil
}

// Recycle credits points to the user's balance and appends the matching
// recycle entry, both inside one database transaction.
func (s *SQLiteStore) Recycle(ctx context.Context, userID string, points int64) (*models.Transaction, error) {
	if points <= 0 {
		return nil, storage.ErrNonPositivePoints
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET points = points + ? WHERE id = ?",
		points, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check credit: %w", err)
	}
	if affected == 0 {
		return nil, storage.ErrUserNotFound
	}

	entry := &models.Transaction{
		ID:           uuid.New().String(),
		UserID:       userID,
		Kind:         models.KindRecycle,
		PointsChange: points,
		CreatedAt:    time.Now().UnixNano(),
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return entry, nil
}

// ListTransactions returns the user's ledger entries, newest first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, kind, item_name, points_change, created_at
		 FROM transactions WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var entries []*models.Transaction
	for rows.Next() {
		entry := &models.Transaction{}
		var itemName sql.NullString
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Kind, &itemName, &entry.PointsChange, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if itemName.Valid {
			entry.ItemName = itemName.String
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return entries, nil
}

// insertTransaction appends one ledger entry inside the caller's transaction.
func insertTransaction(ctx context.Context, tx *sql.Tx, entry *models.Transaction) error {
	var itemName interface{} = nil
	if entry.ItemName != "" {
		itemName = entry.ItemName
	}

	_, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (id, user_id, kind, item_name, points_change, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ID, entry.UserID, entry.Kind, itemName, entry.PointsChange, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}
