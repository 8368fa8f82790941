package contents

import (
	"context"
	"fmt"

	"github.com/nasermirzaei89/vidtube/authorization"
)

const (
	ActionUploadVideo = "uploadVideo"
	ActionGetVideo    = "getVideo"
	ActionUpdateVideo = "updateVideo"
	ActionDeleteVideo = "deleteVideo"
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

func (mw *AuthorizationMiddleware) UploadVideo(ctx context.Context, req UploadVideoRequest) (*Video, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, "", ActionUploadVideo)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	video, err := mw.next.UploadVideo(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return video, nil
}

func (mw *AuthorizationMiddleware) GetVideo(ctx context.Context, videoID string) (*VideoDetail, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, videoID, ActionGetVideo)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	video, err := mw.next.GetVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return video, nil
}

func (mw *AuthorizationMiddleware) UpdateVideo(ctx context.Context, req UpdateVideoRequest) (*Video, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, req.VideoID, ActionUpdateVideo)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	video, err := mw.next.UpdateVideo(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return video, nil
}

func (mw *AuthorizationMiddleware) DeleteVideo(ctx context.Context, actorID, videoID string) error {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, videoID, ActionDeleteVideo)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	err = mw.next.DeleteVideo(ctx, actorID, videoID)
	if err != nil {
		return fmt.Errorf("failed to call next method: %w", err)
	}

	return nil
}
