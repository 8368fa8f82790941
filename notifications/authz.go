package notifications

import (
	"context"
	"fmt"

	"github.com/nasermirzaei89/vidtube/authorization"
)

const (
	ActionReadNotification  = "readNotification"
	ActionListNotifications = "listNotifications"
)

type AuthorizationMiddleware struct {
	authzClient *authorization.Client
	next        Service
}

var _ Service = (*AuthorizationMiddleware)(nil)

func NewAuthorizationMiddleware(authzClient *authorization.Client, next Service) *AuthorizationMiddleware {
	return &AuthorizationMiddleware{
		authzClient: authzClient,
		next:        next,
	}
}

func (mw *AuthorizationMiddleware) ReadNotification(
	ctx context.Context,
	actorID, notificationID string,
) (*Notification, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, notificationID, ActionReadNotification)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	notification, err := mw.next.ReadNotification(ctx, actorID, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return notification, nil
}

func (mw *AuthorizationMiddleware) ListNotifications(
	ctx context.Context,
	actorID string,
	unreadOnly bool,
) ([]*Notification, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, "", ActionListNotifications)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	notifications, err := mw.next.ListNotifications(ctx, actorID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return notifications, nil
}
