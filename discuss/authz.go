package discuss

import (
	"context"
	"fmt"

	"github.com/nasermirzaei89/vidtube/authorization"
)

const (
	ActionCreateComment    = "createComment"
	ActionCreateReply      = "createReply"
	ActionCreateChildReply = "createChildReply"
	ActionGetComment       = "getComment"
	ActionUpdateComment    = "updateComment"
	ActionDeleteComment    = "deleteComment"
	ActionDeleteReply      = "deleteReply"
	ActionDeleteChildReply = "deleteChildReply"
	ActionListComments     = "listComments"
	ActionListReplies      = "listReplies"
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

func (mw *AuthorizationMiddleware) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, req.VideoID, ActionCreateComment)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	comment, err := mw.next.CreateComment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return comment, nil
}

func (mw *AuthorizationMiddleware) CreateReply(ctx context.Context, req CreateReplyRequest) (*Reply, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, req.CommentID, ActionCreateReply)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	reply, err := mw.next.CreateReply(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return reply, nil
}

func (mw *AuthorizationMiddleware) CreateChildReply(ctx context.Context, req CreateChildReplyRequest) (*Reply, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, req.ReplyID, ActionCreateChildReply)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	reply, err := mw.next.CreateChildReply(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return reply, nil
}

func (mw *AuthorizationMiddleware) GetComment(ctx context.Context, videoID, commentID string) (*Comment, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, commentID, ActionGetComment)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	comment, err := mw.next.GetComment(ctx, videoID, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return comment, nil
}

func (mw *AuthorizationMiddleware) UpdateComment(ctx context.Context, req UpdateCommentRequest) (*Comment, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, req.CommentID, ActionUpdateComment)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	comment, err := mw.next.UpdateComment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return comment, nil
}

func (mw *AuthorizationMiddleware) DeleteComment(ctx context.Context, req DeleteCommentRequest) error {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, req.CommentID, ActionDeleteComment)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	err = mw.next.DeleteComment(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to call next method: %w", err)
	}

	return nil
}

func (mw *AuthorizationMiddleware) DeleteReply(ctx context.Context, req DeleteReplyRequest) error {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, req.ReplyID, ActionDeleteReply)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	err = mw.next.DeleteReply(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to call next method: %w", err)
	}

	return nil
}

func (mw *AuthorizationMiddleware) DeleteChildReply(ctx context.Context, req DeleteChildReplyRequest) error {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, req.ChildID, ActionDeleteChildReply)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	err = mw.next.DeleteChildReply(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to call next method: %w", err)
	}

	return nil
}

func (mw *AuthorizationMiddleware) ListComments(ctx context.Context, videoID string) ([]*Comment, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, videoID, ActionListComments)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	comments, err := mw.next.ListComments(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return comments, nil
}

func (mw *AuthorizationMiddleware) ListReplies(ctx context.Context, videoID, commentID string) ([]*Reply, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, commentID, ActionListReplies)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	replies, err := mw.next.ListReplies(ctx, videoID, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return replies, nil
}
