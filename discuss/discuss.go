package discuss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/contents"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/notifications"
)

const ServiceName = "github.com/nasermirzaei89/vidtube/discuss"

type Service interface {
	CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error)
	CreateReply(ctx context.Context, req CreateReplyRequest) (*Reply, error)
	CreateChildReply(ctx context.Context, req CreateChildReplyRequest) (*Reply, error)
	GetComment(ctx context.Context, videoID, commentID string) (*Comment, error)
	UpdateComment(ctx context.Context, req UpdateCommentRequest) (*Comment, error)
	DeleteComment(ctx context.Context, req DeleteCommentRequest) error
	DeleteReply(ctx context.Context, req DeleteReplyRequest) error
	DeleteChildReply(ctx context.Context, req DeleteChildReplyRequest) error
	ListComments(ctx context.Context, videoID string) ([]*Comment, error)
	ListReplies(ctx context.Context, videoID, commentID string) ([]*Reply, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Notifier interface {
	Notify(ctx context.Context, req notifications.NotifyRequest) (*notifications.Notification, error)
}

type BaseService struct {
	commentRepo CommentRepository
	replyRepo   ReplyRepository
	videoRepo   contents.VideoRepository
	userRepo    authentication.UserRepository
	notifier    Notifier
	transactor  Transactor
	now         func() time.Time
}

var (
	_ Service                = (*BaseService)(nil)
	_ contents.CommentPurger = (*BaseService)(nil)
)

func NewService(
	commentRepo CommentRepository,
	replyRepo ReplyRepository,
	videoRepo contents.VideoRepository,
	userRepo authentication.UserRepository,
	notifier Notifier,
	transactor Transactor,
) *BaseService {
	return &BaseService{
		commentRepo: commentRepo,
		replyRepo:   replyRepo,
		videoRepo:   videoRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		transactor:  transactor,
		now:         time.Now,
	}
}

func parseText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &failure.ValidationError{Field: "text", Reason: "must not be empty"}
	}

	return text, nil
}

// findVideoComment loads the video and the comment and checks that the comment
// is listed under the video.
func (svc *BaseService) findVideoComment(
	ctx context.Context,
	videoID, commentID string,
) (*contents.Video, *Comment, error) {
	video, err := svc.videoRepo.Find(ctx, videoID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find video: %w", err)
	}

	comment, err := svc.commentRepo.Find(ctx, commentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find comment: %w", err)
	}

	if !video.Comments.Has(comment.ID) {
		return nil, nil, &failure.RelationError{
			Parent:   "video",
			ParentID: video.ID,
			Child:    "comment",
			ChildID:  comment.ID,
		}
	}

	return video, comment, nil
}

// findCommentReply loads the reply and checks that it is a direct reply of
// comment.
func (svc *BaseService) findCommentReply(ctx context.Context, comment *Comment, replyID string) (*Reply, error) {
	reply, err := svc.replyRepo.Find(ctx, replyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find reply: %w", err)
	}

	if !comment.Replies.Has(reply.ID) {
		return nil, &failure.RelationError{
			Parent:   "comment",
			ParentID: comment.ID,
			Child:    "reply",
			ChildID:  reply.ID,
		}
	}

	return reply, nil
}

// notify sends a notification unless the recipient is the actor. A recipient
// that no longer exists is skipped.
func (svc *BaseService) notify(ctx context.Context, actor *authentication.User, recipientID, title, text string) error {
	if recipientID == actor.ID {
		return nil
	}

	_, err := svc.notifier.Notify(ctx, notifications.NotifyRequest{
		RecipientID: recipientID,
		Title:       title,
		Description: text,
	})
	if err != nil {
		var notFoundErr *failure.NotFoundError
		if errors.As(err, &notFoundErr) {
			slog.WarnContext(ctx, "notification recipient not found", "recipientId", recipientID)

			return nil
		}

		return fmt.Errorf("failed to notify: %w", err)
	}

	return nil
}

type CreateCommentRequest struct {
	ActorID string
	VideoID string
	Text    string
}

func (svc *BaseService) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	text, err := parseText(req.Text)
	if err != nil {
		return nil, err
	}

	var comment *Comment

	err = svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		video, err := svc.videoRepo.Find(ctx, req.VideoID)
		if err != nil {
			return fmt.Errorf("failed to find video: %w", err)
		}

		actor, err := svc.userRepo.Find(ctx, req.ActorID)
		if err != nil {
			return fmt.Errorf("failed to find actor: %w", err)
		}

		timeNow := svc.now()

		comment = &Comment{
			ID:        uuid.NewString(),
			VideoID:   video.ID,
			AuthorID:  actor.ID,
			Text:      text,
			CreatedAt: timeNow,
			UpdatedAt: timeNow,
		}

		err = svc.commentRepo.Insert(ctx, comment)
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}

		video.Comments.Add(comment.ID)

		err = svc.videoRepo.Update(ctx, video)
		if err != nil {
			return fmt.Errorf("failed to link comment to video: %w", err)
		}

		actor.Commented.Add(comment.ID)

		err = svc.userRepo.Update(ctx, actor)
		if err != nil {
			return fmt.Errorf("failed to link comment to author: %w", err)
		}

		// the uploader hears about every comment, their own included
		_, err = svc.notifier.Notify(ctx, notifications.NotifyRequest{
			RecipientID: video.UploadedBy,
			Title:       actor.Username + " commented on your video",
			Description: text,
		})
		if err != nil {
			var notFoundErr *failure.NotFoundError
			if !errors.As(err, &notFoundErr) {
				return fmt.Errorf("failed to notify uploader: %w", err)
			}

			slog.WarnContext(ctx, "video uploader not found", "videoId", video.ID, "uploadedBy", video.UploadedBy)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

type CreateReplyRequest struct {
	ActorID   string
	VideoID   string
	CommentID string
	Text      string
}

func (svc *BaseService) CreateReply(ctx context.Context, req CreateReplyRequest) (*Reply, error) {
	text, err := parseText(req.Text)
	if err != nil {
		return nil, err
	}

	var reply *Reply

	err = svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		video, comment, err := svc.findVideoComment(ctx, req.VideoID, req.CommentID)
		if err != nil {
			return err
		}

		actor, err := svc.userRepo.Find(ctx, req.ActorID)
		if err != nil {
			return fmt.Errorf("failed to find actor: %w", err)
		}

		reply = &Reply{
			ID:            uuid.NewString(),
			VideoID:       video.ID,
			ParentComment: comment.ID,
			ParentReply:   nil,
			AuthorID:      actor.ID,
			Text:          text,
			CreatedAt:     svc.now(),
		}

		err = svc.replyRepo.Insert(ctx, reply)
		if err != nil {
			return fmt.Errorf("failed to insert reply: %w", err)
		}

		comment.Replies.Add(reply.ID)

		err = svc.commentRepo.Update(ctx, comment)
		if err != nil {
			return fmt.Errorf("failed to link reply to comment: %w", err)
		}

		actor.CommentReplied.Add(reply.ID)

		err = svc.userRepo.Update(ctx, actor)
		if err != nil {
			return fmt.Errorf("failed to link reply to author: %w", err)
		}

		return svc.notify(ctx, actor, comment.AuthorID, actor.Username+" replied to your comment", text)
	})
	if err != nil {
		return nil, err
	}

	return reply, nil
}

type CreateChildReplyRequest struct {
	ActorID   string
	VideoID   string
	CommentID string
	ReplyID   string
	Text      string
}

// CreateChildReply answers a direct reply of a comment. The whole chain
// video, comment, reply is checked before anything is written.
func (svc *BaseService) CreateChildReply(ctx context.Context, req CreateChildReplyRequest) (*Reply, error) {
	text, err := parseText(req.Text)
	if err != nil {
		return nil, err
	}

	var child *Reply

	err = svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		video, comment, err := svc.findVideoComment(ctx, req.VideoID, req.CommentID)
		if err != nil {
			return err
		}

		parent, err := svc.findCommentReply(ctx, comment, req.ReplyID)
		if err != nil {
			return err
		}

		actor, err := svc.userRepo.Find(ctx, req.ActorID)
		if err != nil {
			return fmt.Errorf("failed to find actor: %w", err)
		}

		parentID := parent.ID

		child = &Reply{
			ID:            uuid.NewString(),
			VideoID:       video.ID,
			ParentComment: comment.ID,
			ParentReply:   &parentID,
			AuthorID:      actor.ID,
			Text:          text,
			CreatedAt:     svc.now(),
		}

		err = svc.replyRepo.Insert(ctx, child)
		if err != nil {
			return fmt.Errorf("failed to insert reply: %w", err)
		}

		parent.ChildReplies.Add(child.ID)

		err = svc.replyRepo.Update(ctx, parent)
		if err != nil {
			return fmt.Errorf("failed to link reply to parent reply: %w", err)
		}

		actor.ReplyReplied.Add(child.ID)

		err = svc.userRepo.Update(ctx, actor)
		if err != nil {
			return fmt.Errorf("failed to link reply to author: %w", err)
		}

		return svc.notify(ctx, actor, parent.AuthorID, actor.Username+" replied to your reply", text)
	})
	if err != nil {
		return nil, err
	}

	return child, nil
}

func (svc *BaseService) GetComment(ctx context.Context, videoID, commentID string) (*Comment, error) {
	_, comment, err := svc.findVideoComment(ctx, videoID, commentID)
	if err != nil {
		return nil, err
	}

	return comment, nil
}

type UpdateCommentRequest struct {
	ActorID   string
	VideoID   string
	CommentID string
	Text      string
}

func (svc *BaseService) UpdateComment(ctx context.Context, req UpdateCommentRequest) (*Comment, error) {
	text, err := parseText(req.Text)
	if err != nil {
		return nil, err
	}

	var comment *Comment

	err = svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error

		_, comment, err = svc.findVideoComment(ctx, req.VideoID, req.CommentID)
		if err != nil {
			return err
		}

		actor, err := svc.userRepo.Find(ctx, req.ActorID)
		if err != nil {
			return fmt.Errorf("failed to find actor: %w", err)
		}

		if !actor.Commented.Has(comment.ID) {
			return &failure.AuthorizationError{
				Subject: actor.ID,
				Action:  "update",
				Entity:  "comment",
				ID:      comment.ID,
			}
		}

		comment.Text = text
		comment.UpdatedAt = svc.now()

		err = svc.commentRepo.Update(ctx, comment)
		if err != nil {
			return fmt.Errorf("failed to update comment: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

type DeleteCommentRequest struct {
	ActorID   string
	VideoID   string
	CommentID string
}

// DeleteComment is allowed to the video uploader and to the comment author.
// It removes the whole thread and every user reference to it.
func (svc *BaseService) DeleteComment(ctx context.Context, req DeleteCommentRequest) error {
	return svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		video, comment, err := svc.findVideoComment(ctx, req.VideoID, req.CommentID)
		if err != nil {
			return err
		}

		actor, err := svc.userRepo.Find(ctx, req.ActorID)
		if err != nil {
			return fmt.Errorf("failed to find actor: %w", err)
		}

		if !actor.UploadedVideos.Has(video.ID) && !actor.Commented.Has(comment.ID) {
			return &failure.AuthorizationError{
				Subject: actor.ID,
				Action:  "delete",
				Entity:  "comment",
				ID:      comment.ID,
			}
		}

		video.Comments.Remove(comment.ID)

		err = svc.videoRepo.Update(ctx, video)
		if err != nil {
			return fmt.Errorf("failed to unlink comment from video: %w", err)
		}

		return svc.removeComments(ctx, comment.ID)
	})
}

// removeComments deletes the comments with every reply of their threads and
// pulls all of those ids out of user lists.
func (svc *BaseService) removeComments(ctx context.Context, commentIDs ...string) error {
	replies, err := svc.replyRepo.List(ctx, &ListRepliesParams{CommentIDs: commentIDs})
	if err != nil {
		return fmt.Errorf("failed to list thread replies: %w", err)
	}

	replyIDs := make([]string, 0, len(replies))
	for _, reply := range replies {
		replyIDs = append(replyIDs, reply.ID)
	}

	err = svc.removeReplies(ctx, replyIDs)
	if err != nil {
		return err
	}

	err = svc.userRepo.PullFromAll(ctx, []authentication.UserList{authentication.ListCommented}, commentIDs)
	if err != nil {
		return fmt.Errorf("failed to pull comments from users: %w", err)
	}

	err = svc.commentRepo.Delete(ctx, commentIDs...)
	if err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}

	return nil
}

func (svc *BaseService) removeReplies(ctx context.Context, replyIDs []string) error {
	if len(replyIDs) == 0 {
		return nil
	}

	err := svc.userRepo.PullFromAll(ctx, []authentication.UserList{
		authentication.ListCommentReplied,
		authentication.ListReplyReplied,
	}, replyIDs)
	if err != nil {
		return fmt.Errorf("failed to pull replies from users: %w", err)
	}

	err = svc.replyRepo.Delete(ctx, replyIDs...)
	if err != nil {
		return fmt.Errorf("failed to delete replies: %w", err)
	}

	return nil
}

// removeSubtree deletes the reply with all of its descendants. Threads are at
// most two levels deep since CreateChildReply only answers direct replies.
func (svc *BaseService) removeSubtree(ctx context.Context, reply *Reply) error {
	arena, err := svc.replyRepo.List(ctx, &ListRepliesParams{CommentIDs: []string{reply.ParentComment}})
	if err != nil {
		return fmt.Errorf("failed to list thread replies: %w", err)
	}

	return svc.removeReplies(ctx, descendants(arena, reply.ID))
}

type DeleteReplyRequest struct {
	ActorID   string
	VideoID   string
	CommentID string
	ReplyID   string
}

// DeleteReply removes a direct reply of a comment with everything below it.
// Only the reply author may delete it.
func (svc *BaseService) DeleteReply(ctx context.Context, req DeleteReplyRequest) error {
	return svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		_, comment, err := svc.findVideoComment(ctx, req.VideoID, req.CommentID)
		if err != nil {
			return err
		}

		reply, err := svc.findCommentReply(ctx, comment, req.ReplyID)
		if err != nil {
			return err
		}

		actor, err := svc.userRepo.Find(ctx, req.ActorID)
		if err != nil {
			return fmt.Errorf("failed to find actor: %w", err)
		}

		if !actor.CommentReplied.Has(reply.ID) {
			return &failure.AuthorizationError{
				Subject: actor.ID,
				Action:  "delete",
				Entity:  "reply",
				ID:      reply.ID,
			}
		}

		comment.Replies.Remove(reply.ID)

		err = svc.commentRepo.Update(ctx, comment)
		if err != nil {
			return fmt.Errorf("failed to unlink reply from comment: %w", err)
		}

		return svc.removeSubtree(ctx, reply)
	})
}

type DeleteChildReplyRequest struct {
	ActorID   string
	VideoID   string
	CommentID string
	ReplyID   string
	ChildID   string
}

// DeleteChildReply removes a reply to a direct reply, with everything below
// it. Only its author may delete it.
func (svc *BaseService) DeleteChildReply(ctx context.Context, req DeleteChildReplyRequest) error {
	return svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		_, comment, err := svc.findVideoComment(ctx, req.VideoID, req.CommentID)
		if err != nil {
			return err
		}

		parent, err := svc.findCommentReply(ctx, comment, req.ReplyID)
		if err != nil {
			return err
		}

		child, err := svc.replyRepo.Find(ctx, req.ChildID)
		if err != nil {
			return fmt.Errorf("failed to find reply: %w", err)
		}

		if !parent.ChildReplies.Has(child.ID) {
			return &failure.RelationError{
				Parent:   "reply",
				ParentID: parent.ID,
				Child:    "reply",
				ChildID:  child.ID,
			}
		}

		actor, err := svc.userRepo.Find(ctx, req.ActorID)
		if err != nil {
			return fmt.Errorf("failed to find actor: %w", err)
		}

		if !actor.ReplyReplied.Has(child.ID) {
			return &failure.AuthorizationError{
				Subject: actor.ID,
				Action:  "delete",
				Entity:  "reply",
				ID:      child.ID,
			}
		}

		parent.ChildReplies.Remove(child.ID)

		err = svc.replyRepo.Update(ctx, parent)
		if err != nil {
			return fmt.Errorf("failed to unlink reply from parent reply: %w", err)
		}

		return svc.removeSubtree(ctx, child)
	})
}

func (svc *BaseService) ListComments(ctx context.Context, videoID string) ([]*Comment, error) {
	video, err := svc.videoRepo.Find(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to find video: %w", err)
	}

	comments, err := svc.commentRepo.List(ctx, &ListCommentsParams{VideoID: video.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

// ListReplies returns every reply of the comment thread in creation order.
// Nesting is given by ParentReply.
func (svc *BaseService) ListReplies(ctx context.Context, videoID, commentID string) ([]*Reply, error) {
	_, comment, err := svc.findVideoComment(ctx, videoID, commentID)
	if err != nil {
		return nil, err
	}

	replies, err := svc.replyRepo.List(ctx, &ListRepliesParams{CommentIDs: []string{comment.ID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}

	return replies, nil
}

// PurgeVideoComments removes every comment thread of a video. The video record
// itself is left to the caller.
func (svc *BaseService) PurgeVideoComments(ctx context.Context, videoID string) error {
	return svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		comments, err := svc.commentRepo.List(ctx, &ListCommentsParams{VideoID: videoID})
		if err != nil {
			return fmt.Errorf("failed to list video comments: %w", err)
		}

		if len(comments) == 0 {
			return nil
		}

		commentIDs := make([]string, 0, len(comments))
		for _, comment := range comments {
			commentIDs = append(commentIDs, comment.ID)
		}

		return svc.removeComments(ctx, commentIDs...)
	})
}
