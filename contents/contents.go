package contents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/storage"
)

const ServiceName = "github.com/nasermirzaei89/vidtube/contents"

type Service interface {
	UploadVideo(ctx context.Context, req UploadVideoRequest) (*Video, error)
	GetVideo(ctx context.Context, videoID string) (*VideoDetail, error)
	UpdateVideo(ctx context.Context, req UpdateVideoRequest) (*Video, error)
	DeleteVideo(ctx context.Context, actorID, videoID string) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CommentPurger removes every comment of a video together with its replies and
// their back-references.
type CommentPurger interface {
	PurgeVideoComments(ctx context.Context, videoID string) error
}

type BaseService struct {
	videoRepo  VideoRepository
	userRepo   authentication.UserRepository
	transactor Transactor
	objects    storage.ObjectStore
	comments   CommentPurger
	now        func() time.Time
}

var _ Service = (*BaseService)(nil)

func NewService(
	videoRepo VideoRepository,
	userRepo authentication.UserRepository,
	transactor Transactor,
	objects storage.ObjectStore,
	comments CommentPurger,
) *BaseService {
	return &BaseService{
		videoRepo:  videoRepo,
		userRepo:   userRepo,
		transactor: transactor,
		objects:    objects,
		comments:   comments,
		now:        time.Now,
	}
}

type UploadVideoRequest struct {
	ActorID     string
	File        *storage.File
	Title       string
	Description string
	Category    string
	// Keywords is a JSON array of strings as sent by the client.
	Keywords string
}

func parseKeywords(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}

	var keywords []string

	err := json.Unmarshal([]byte(raw), &keywords)
	if err != nil {
		return nil, &failure.ValidationError{Field: "keywords", Reason: "must be a JSON array of strings"}
	}

	if keywords == nil {
		keywords = []string{}
	}

	return keywords, nil
}

func (svc *BaseService) UploadVideo(ctx context.Context, req UploadVideoRequest) (*Video, error) {
	if req.File == nil {
		return nil, &failure.ValidationError{Field: "video", Reason: "please upload a file"}
	}

	if !strings.HasPrefix(req.File.ContentType, "video/") {
		return nil, &failure.ValidationError{Field: "video", Reason: "please upload videos only"}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &failure.ValidationError{Field: "title", Reason: "must not be empty"}
	}

	keywords, err := parseKeywords(req.Keywords)
	if err != nil {
		return nil, err
	}

	user, err := svc.userRepo.Find(ctx, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find uploader: %w", err)
	}

	timeNow := svc.now()
	objectName := fmt.Sprintf("%s-%s-%d-%s", user.ID, uuid.NewString(), timeNow.UnixMilli(), req.File.Name)

	fileURL, err := svc.objects.Put(ctx, objectName, *req.File)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video file: %w", err)
	}

	video := &Video{
		ID:          uuid.NewString(),
		Title:       title,
		Description: req.Description,
		Category:    req.Category,
		Keywords:    keywords,
		FileURL:     fileURL,
		ObjectName:  objectName,
		UploadedBy:  user.ID,
		CreatedAt:   timeNow,
	}

	err = svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		err := svc.videoRepo.Insert(ctx, video)
		if err != nil {
			return fmt.Errorf("failed to insert video: %w", err)
		}

		// Reread: the copy loaded before the upload may miss writes made meanwhile.
		uploader, err := svc.userRepo.Find(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to find uploader: %w", err)
		}

		uploader.UploadedVideos.Add(video.ID)

		err = svc.userRepo.Update(ctx, uploader)
		if err != nil {
			return fmt.Errorf("failed to update uploader: %w", err)
		}

		return nil
	})
	if err != nil {
		rmErr := svc.objects.Remove(ctx, objectName)
		if rmErr != nil {
			slog.ErrorContext(ctx, "failed to remove orphaned video object", "object", objectName, "error", rmErr)
		}

		return nil, fmt.Errorf("failed to save video: %w", err)
	}

	return video, nil
}

// GetVideo counts a view and returns the video with its uploader.
func (svc *BaseService) GetVideo(ctx context.Context, videoID string) (*VideoDetail, error) {
	var detail *VideoDetail

	err := svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		video, err := svc.videoRepo.Find(ctx, videoID)
		if err != nil {
			return fmt.Errorf("failed to find video: %w", err)
		}

		video.Views++

		err = svc.videoRepo.Update(ctx, video)
		if err != nil {
			return fmt.Errorf("failed to count view: %w", err)
		}

		detail = &VideoDetail{Video: video}

		uploader, err := svc.userRepo.Find(ctx, video.UploadedBy)
		if err != nil {
			var notFoundErr *failure.NotFoundError
			if errors.As(err, &notFoundErr) {
				return nil
			}

			return fmt.Errorf("failed to find uploader: %w", err)
		}

		detail.Uploader = &Uploader{
			ID:        uploader.ID,
			FirstName: uploader.FirstName,
			LastName:  uploader.LastName,
			Email:     uploader.Email,
			Username:  uploader.Username,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return detail, nil
}

// ownedVideo loads the video and the actor and checks that the actor uploaded
// it.
func (svc *BaseService) ownedVideo(ctx context.Context, actorID, videoID, action string) (*Video, error) {
	video, err := svc.videoRepo.Find(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to find video: %w", err)
	}

	actor, err := svc.userRepo.Find(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find actor: %w", err)
	}

	if !actor.UploadedVideos.Has(video.ID) {
		return nil, &failure.AuthorizationError{Subject: actorID, Action: action, Entity: "video", ID: videoID}
	}

	return video, nil
}

type UpdateVideoRequest struct {
	ActorID     string
	VideoID     string
	Title       *string
	Description *string
	Category    *string
	Keywords    []string
}

// UpdateVideo replaces the metadata fields that are set in req. Nil Keywords
// keeps the current ones.
func (svc *BaseService) UpdateVideo(ctx context.Context, req UpdateVideoRequest) (*Video, error) {
	var video *Video

	err := svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error

		video, err = svc.ownedVideo(ctx, req.ActorID, req.VideoID, "update")
		if err != nil {
			return err
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return &failure.ValidationError{Field: "title", Reason: "must not be empty"}
			}

			video.Title = title
		}

		if req.Description != nil {
			video.Description = *req.Description
		}

		if req.Category != nil {
			video.Category = *req.Category
		}

		if req.Keywords != nil {
			video.Keywords = req.Keywords
		}

		err = svc.videoRepo.Update(ctx, video)
		if err != nil {
			return fmt.Errorf("failed to update video: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return video, nil
}

// DeleteVideo removes the video, its discussion and every user reference to
// it. The stored file is removed once the records are gone.
func (svc *BaseService) DeleteVideo(ctx context.Context, actorID, videoID string) error {
	var objectName string

	err := svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		video, err := svc.ownedVideo(ctx, actorID, videoID, "delete")
		if err != nil {
			return err
		}

		objectName = video.ObjectName

		err = svc.comments.PurgeVideoComments(ctx, video.ID)
		if err != nil {
			return fmt.Errorf("failed to purge video comments: %w", err)
		}

		err = svc.userRepo.PullFromAll(ctx, []authentication.UserList{
			authentication.ListUploadedVideos,
			authentication.ListLikedVideos,
			authentication.ListDislikedVideos,
		}, []string{video.ID})
		if err != nil {
			return fmt.Errorf("failed to pull video from users: %w", err)
		}

		err = svc.videoRepo.Delete(ctx, video.ID)
		if err != nil {
			return fmt.Errorf("failed to delete video: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	err = svc.objects.Remove(ctx, objectName)
	if err != nil {
		slog.ErrorContext(ctx, "failed to remove video object", "object", objectName, "error", err)
	}

	return nil
}
