package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/failure"
)

const ServiceName = "github.com/nasermirzaei89/vidtube/notifications"

// Service is the recipient facing side of notifications.
type Service interface {
	ReadNotification(ctx context.Context, actorID, notificationID string) (*Notification, error)
	ListNotifications(ctx context.Context, actorID string, unreadOnly bool) ([]*Notification, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type BaseService struct {
	notificationRepo NotificationRepository
	userRepo         authentication.UserRepository
	transactor       Transactor
	now              func() time.Time
}

var _ Service = (*BaseService)(nil)

func NewService(
	notificationRepo NotificationRepository,
	userRepo authentication.UserRepository,
	transactor Transactor,
) *BaseService {
	return &BaseService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		transactor:       transactor,
		now:              time.Now,
	}
}

type NotifyRequest struct {
	RecipientID string
	Title       string
	Description string
}

// Notify stores an unread notification and links it to the recipient.
func (svc *BaseService) Notify(ctx context.Context, req NotifyRequest) (*Notification, error) {
	notification := &Notification{
		ID:          uuid.NewString(),
		RecipientID: req.RecipientID,
		Title:       req.Title,
		Description: req.Description,
		IsRead:      false,
		CreatedAt:   svc.now(),
	}

	err := svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		recipient, err := svc.userRepo.Find(ctx, req.RecipientID)
		if err != nil {
			return fmt.Errorf("failed to find recipient: %w", err)
		}

		err = svc.notificationRepo.Insert(ctx, notification)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}

		recipient.Notifications.Add(notification.ID)

		err = svc.userRepo.Update(ctx, recipient)
		if err != nil {
			return fmt.Errorf("failed to link notification to recipient: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return notification, nil
}

// ReadNotification marks the notification read. Only its recipient may do so
// and there is no way back to unread.
func (svc *BaseService) ReadNotification(ctx context.Context, actorID, notificationID string) (*Notification, error) {
	notification, err := svc.notificationRepo.Find(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}

	if notification.RecipientID != actorID {
		return nil, &failure.AuthorizationError{
			Subject: actorID,
			Action:  "read",
			Entity:  "notification",
			ID:      notificationID,
		}
	}

	if notification.IsRead {
		return notification, nil
	}

	notification.IsRead = true

	err = svc.notificationRepo.Update(ctx, notification)
	if err != nil {
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}

	return notification, nil
}

func (svc *BaseService) ListNotifications(ctx context.Context, actorID string, unreadOnly bool) ([]*Notification, error) {
	notifications, err := svc.notificationRepo.List(ctx, &ListNotificationsParams{
		RecipientID: actorID,
		UnreadOnly:  unreadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}
