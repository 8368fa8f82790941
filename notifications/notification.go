package notifications

import (
	"context"
	"time"
)

type Notification struct {
	ID          string
	RecipientID string
	Title       string
	Description string
	IsRead      bool
	CreatedAt   time.Time
}

type NotificationRepository interface {
	Insert(ctx context.Context, notification *Notification) (err error)
	Find(ctx context.Context, notificationID string) (notification *Notification, err error)
	Update(ctx context.Context, notification *Notification) (err error)
	List(ctx context.Context, params *ListNotificationsParams) (notifications []*Notification, err error)
}

type ListNotificationsParams struct {
	RecipientID string
	UnreadOnly  bool
}
