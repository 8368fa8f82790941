package reactions

import (
	"context"
	"fmt"
	"time"

	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/contents"
)

const ServiceName = "github.com/nasermirzaei89/vidtube/reactions"

type Service interface {
	LikeVideo(ctx context.Context, actorID, videoID string) (*VideoView, error)
	DislikeVideo(ctx context.Context, actorID, videoID string) (*VideoView, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type BaseService struct {
	videoRepo  contents.VideoRepository
	userRepo   authentication.UserRepository
	transactor Transactor
}

var _ Service = (*BaseService)(nil)

func NewService(
	videoRepo contents.VideoRepository,
	userRepo authentication.UserRepository,
	transactor Transactor,
) *BaseService {
	return &BaseService{
		videoRepo:  videoRepo,
		userRepo:   userRepo,
		transactor: transactor,
	}
}

// VideoView is a video without the sets of users who reacted to it.
type VideoView struct {
	ID          string
	Title       string
	Description string
	Category    string
	Keywords    []string
	FileURL     string
	UploadedBy  string
	Likes       int
	Dislikes    int
	Views       int
	Comments    []string
	CreatedAt   time.Time
	Reaction    Reaction
}

func newVideoView(video *contents.Video, reaction Reaction) *VideoView {
	return &VideoView{
		ID:          video.ID,
		Title:       video.Title,
		Description: video.Description,
		Category:    video.Category,
		Keywords:    video.Keywords,
		FileURL:     video.FileURL,
		UploadedBy:  video.UploadedBy,
		Likes:       video.Likes,
		Dislikes:    video.Dislikes,
		Views:       video.Views,
		Comments:    video.Comments.IDs(),
		CreatedAt:   video.CreatedAt,
		Reaction:    reaction,
	}
}

func (svc *BaseService) LikeVideo(ctx context.Context, actorID, videoID string) (*VideoView, error) {
	return svc.react(ctx, actorID, videoID, Like)
}

func (svc *BaseService) DislikeVideo(ctx context.Context, actorID, videoID string) (*VideoView, error) {
	return svc.react(ctx, actorID, videoID, Dislike)
}

// react loads both records, applies transition and writes both back in one
// transaction.
func (svc *BaseService) react(
	ctx context.Context,
	actorID, videoID string,
	transition func(*contents.Video, *authentication.User) Reaction,
) (*VideoView, error) {
	var view *VideoView

	err := svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		video, err := svc.videoRepo.Find(ctx, videoID)
		if err != nil {
			return fmt.Errorf("failed to find video: %w", err)
		}

		user, err := svc.userRepo.Find(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to find actor: %w", err)
		}

		reaction := transition(video, user)

		err = svc.userRepo.Update(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to update user reactions: %w", err)
		}

		err = svc.videoRepo.Update(ctx, video)
		if err != nil {
			return fmt.Errorf("failed to update video reactions: %w", err)
		}

		view = newVideoView(video, reaction)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}
