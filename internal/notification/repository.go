package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Arcturus91/travel-divider/internal/database"
)

// Repository handles notification data persistence
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, recipient, type, message, is_read, related_entity_type, related_entity_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	n := &Notification{}
	var createdAt string
	if err := row.Scan(
		&n.ID,
		&n.Recipient,
		&n.Type,
		&n.Message,
		&n.IsRead,
		&n.RelatedEntityType,
		&n.RelatedEntityID,
		&createdAt,
	); err != nil {
		return nil, err
	}
	var err error
	if n.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return n, nil
}

// Create inserts a new notification into the database
func (r *Repository) Create(ctx context.Context, n *Notification) error {
	query := `INSERT INTO notifications (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		n.ID,
		n.Recipient,
		n.Type,
		n.Message,
		n.IsRead,
		n.RelatedEntityType,
		n.RelatedEntityID,
		database.FormatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the notification does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*Notification, error) {
	query := `SELECT ` + columns + ` FROM notifications WHERE id = ?`
	n, err := scanNotification(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListByRecipient retrieves a page of notifications, newest first.
func (r *Repository) ListByRecipient(ctx context.Context, recipient string, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	where := ` WHERE recipient = ?`
	args := []any{recipient}
	if unreadOnly {
		where += ` AND is_read = ?`
		args = append(args, false)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM notifications`+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + columns + ` FROM notifications` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, total, nil
}

func (r *Repository) MarkAsRead(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE notifications SET is_read = ? WHERE id = ?`), true, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

func (r *Repository) MarkAllAsRead(ctx context.Context, recipient string) error {
	query := `UPDATE notifications SET is_read = ? WHERE recipient = ? AND is_read = ?`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), true, recipient, false); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return nil
}

func (r *Repository) GetUnreadCount(ctx context.Context, recipient string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient = ? AND is_read = ?`
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), recipient, false).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}
