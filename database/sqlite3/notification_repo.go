package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/notifications"
)

const tableNotifications = "notifications"

type NotificationRepository struct {
	db *sql.DB
}

var _ notifications.NotificationRepository = (*NotificationRepository)(nil)

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const (
	notificationFieldID          = "id"
	notificationFieldRecipientID = "recipient_id"
	notificationFieldTitle       = "title"
	notificationFieldDescription = "description"
	notificationFieldIsRead      = "is_read"
	notificationFieldCreatedAt   = "created_at"
)

func notificationColumns() []string {
	return []string{
		notificationFieldID,
		notificationFieldRecipientID,
		notificationFieldTitle,
		notificationFieldDescription,
		notificationFieldIsRead,
		notificationFieldCreatedAt,
	}
}

func scanNotification(row sq.RowScanner) (*notifications.Notification, error) {
	var notification notifications.Notification

	err := row.Scan(
		&notification.ID,
		&notification.RecipientID,
		&notification.Title,
		&notification.Description,
		&notification.IsRead,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &notification, nil
}

func (repo *NotificationRepository) Insert(ctx context.Context, notification *notifications.Notification) error {
	_, err := sq.Insert(tableNotifications).
		Columns(notificationColumns()...).
		Values(
			notification.ID,
			notification.RecipientID,
			notification.Title,
			notification.Description,
			notification.IsRead,
			notification.CreatedAt,
		).
		RunWith(runner(ctx, repo.db)).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *NotificationRepository) Find(ctx context.Context, notificationID string) (*notifications.Notification, error) {
	q := sq.Select(notificationColumns()...).
		From(tableNotifications).
		Where(sq.Eq{notificationFieldID: notificationID}).
		RunWith(runner(ctx, repo.db))

	notification, err := scanNotification(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &failure.NotFoundError{Entity: "notification", ID: notificationID}
		}

		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	return notification, nil
}

func (repo *NotificationRepository) Update(ctx context.Context, notification *notifications.Notification) error {
	res, err := sq.Update(tableNotifications).
		SetMap(map[string]any{
			notificationFieldTitle:       notification.Title,
			notificationFieldDescription: notification.Description,
			notificationFieldIsRead:      notification.IsRead,
		}).
		Where(sq.Eq{notificationFieldID: notification.ID}).
		RunWith(runner(ctx, repo.db)).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return &failure.NotFoundError{Entity: "notification", ID: notification.ID}
	}

	return nil
}

func (repo *NotificationRepository) List(
	ctx context.Context,
	params *notifications.ListNotificationsParams,
) ([]*notifications.Notification, error) {
	q := sq.Select(notificationColumns()...).
		From(tableNotifications).
		OrderBy(notificationFieldCreatedAt+" DESC", "rowid DESC")

	if params != nil {
		if params.RecipientID != "" {
			q = q.Where(sq.Eq{notificationFieldRecipientID: params.RecipientID})
		}

		if params.UnreadOnly {
			q = q.Where(sq.Eq{notificationFieldIsRead: false})
		}
	}

	rows, err := q.RunWith(runner(ctx, repo.db)).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close notification rows", "error", err)
		}
	}()

	result := make([]*notifications.Notification, 0)

	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, notification)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate notification rows: %w", err)
	}

	return result, nil
}
