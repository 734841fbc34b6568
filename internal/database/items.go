package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (owner_id, request_id, name, description, available, created_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.db.ExecContext(ctx, query,
		item.OwnerID,
		nullableID(item.RequestID),
		item.Name,
		item.Description,
		item.Available,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	return nil
}

func (db *DB) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT id, owner_id, request_id, name, description, available, created_at
              FROM items WHERE id = ?`
	item, err := scanItem(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET name = ?, description = ?, available = ? WHERE id = ?`
	result, err := db.db.ExecContext(ctx, query, item.Name, item.Description, item.Available, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NewNotFound("item", item.ID)
	}
	return nil
}

func (db *DB) OwnedItems(ctx context.Context, ownerID int64) ([]models.Item, error) {
	query := `SELECT id, owner_id, request_id, name, description, available, created_at
              FROM items WHERE owner_id = ? ORDER BY id`
	return db.queryItems(ctx, query, ownerID)
}

// SearchItems matches available items by substring over name and description,
// case-insensitive. A blank query matches nothing.
func (db *DB) SearchItems(ctx context.Context, text string) ([]models.Item, error) {
	if text == "" {
		return nil, nil
	}
	query := `SELECT id, owner_id, request_id, name, description, available, created_at
              FROM items
              WHERE available = 1 AND (name LIKE '%' || ? || '%' OR description LIKE '%' || ? || '%')
              ORDER BY id`
	return db.queryItems(ctx, query, text, text)
}

func (db *DB) ItemsByRequest(ctx context.Context, requestID int64) ([]models.Item, error) {
	query := `SELECT id, owner_id, request_id, name, description, available, created_at
              FROM items WHERE request_id = ? ORDER BY id`
	return db.queryItems(ctx, query, requestID)
}

func (db *DB) queryItems(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (db *DB) AddComment(ctx context.Context, comment *models.Comment) error {
	query := `INSERT INTO comments (item_id, author_id, text, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now()
	result, err := db.db.ExecContext(ctx, query, comment.ItemID, comment.AuthorID, comment.Text, now)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id
	comment.CreatedAt = now
	return nil
}

func (db *DB) CommentsForItems(ctx context.Context, itemIDs []int64) (map[int64][]models.Comment, error) {
	if len(itemIDs) == 0 {
		return map[int64][]models.Comment{}, nil
	}

	query := fmt.Sprintf(`SELECT c.id, c.item_id, c.author_id, u.name, c.text, c.created_at
              FROM comments c
              JOIN users u ON u.id = c.author_id
              WHERE c.item_id IN (%s)
              ORDER BY c.created_at DESC, c.id DESC`, placeholders(len(itemIDs)))

	args := make([]any, 0, len(itemIDs))
	for _, id := range itemIDs {
		args = append(args, id)
	}

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := make(map[int64][]models.Comment)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments[c.ItemID] = append(comments[c.ItemID], c)
	}
	return comments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var requestID sql.NullInt64
	err := row.Scan(&item.ID, &item.OwnerID, &requestID, &item.Name, &item.Description, &item.Available, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.RequestID = requestID.Int64
	return &item, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
