package reactions

import (
	"context"
	"fmt"

	"github.com/nasermirzaei89/vidtube/authorization"
)

const (
	ActionLikeVideo    = "likeVideo"
	ActionDislikeVideo = "dislikeVideo"
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

func (mw *AuthorizationMiddleware) LikeVideo(ctx context.Context, actorID, videoID string) (*VideoView, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, videoID, ActionLikeVideo)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	view, err := mw.next.LikeVideo(ctx, actorID, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return view, nil
}

func (mw *AuthorizationMiddleware) DislikeVideo(ctx context.Context, actorID, videoID string) (*VideoView, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, videoID, ActionDislikeVideo)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	view, err := mw.next.DislikeVideo(ctx, actorID, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return view, nil
}
