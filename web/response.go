package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/contents"
	"github.com/nasermirzaei89/vidtube/discuss"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/idset"
	"github.com/nasermirzaei89/vidtube/notifications"
	"github.com/nasermirzaei89/vidtube/reactions"
)

const maxJSONBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// decodeJSON reads a JSON object body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}

		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}

		return &failure.ValidationError{Field: "body", Reason: "must be a valid JSON object"}
	}

	return nil
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func ids(set idset.Set) []string {
	items := set.IDs()
	if items == nil {
		return []string{}
	}

	return items
}

type userResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	Profile        string    `json:"profile"`
	IsVerified     bool      `json:"isVerified"`
	RegisteredAt   time.Time `json:"registeredAt"`
	UploadedVideos []string  `json:"uploadedVideos"`
	LikedVideos    []string  `json:"likedVideos"`
	DislikedVideos []string  `json:"dislikedVideos"`
}

func newUserResponse(user *authentication.User) *userResponse {
	return &userResponse{
		ID:             user.ID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Email:          user.Email,
		Username:       user.Username,
		Profile:        user.Profile,
		IsVerified:     user.IsVerified,
		RegisteredAt:   user.RegisteredAt,
		UploadedVideos: ids(user.UploadedVideos),
		LikedVideos:    ids(user.LikedVideos),
		DislikedVideos: ids(user.DislikedVideos),
	}
}

type uploaderResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
}

type videoResponse struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Category      string            `json:"category"`
	Keywords      []string          `json:"keywords"`
	FileURL       string            `json:"fileUrl"`
	UploadedBy    string            `json:"uploadedBy"`
	Uploader      *uploaderResponse `json:"uploader,omitempty"`
	Likes         int               `json:"likes"`
	Dislikes      int               `json:"dislikes"`
	Views         int               `json:"views"`
	Comments      []string          `json:"comments"`
	UsersLiked    []string          `json:"usersLikedThisVideo,omitempty"`
	UsersDisliked []string          `json:"usersDislikedThisVideo,omitempty"`
	Reaction      string            `json:"reaction,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func newVideoResponse(video *contents.Video) *videoResponse {
	keywords := video.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	return &videoResponse{
		ID:            video.ID,
		Title:         video.Title,
		Description:   video.Description,
		Category:      video.Category,
		Keywords:      keywords,
		FileURL:       video.FileURL,
		UploadedBy:    video.UploadedBy,
		Likes:         video.Likes,
		Dislikes:      video.Dislikes,
		Views:         video.Views,
		Comments:      ids(video.Comments),
		UsersLiked:    ids(video.UsersLiked),
		UsersDisliked: ids(video.UsersDisliked),
		CreatedAt:     video.CreatedAt,
	}
}

func newVideoDetailResponse(detail *contents.VideoDetail) *videoResponse {
	res := newVideoResponse(detail.Video)

	if detail.Uploader != nil {
		res.Uploader = &uploaderResponse{
			ID:        detail.Uploader.ID,
			FirstName: detail.Uploader.FirstName,
			LastName:  detail.Uploader.LastName,
			Email:     detail.Uploader.Email,
			Username:  detail.Uploader.Username,
		}
	}

	return res
}

// newReactionResponse leaves out the sets of users who reacted.
func newReactionResponse(view *reactions.VideoView) *videoResponse {
	keywords := view.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	comments := view.Comments
	if comments == nil {
		comments = []string{}
	}

	return &videoResponse{
		ID:          view.ID,
		Title:       view.Title,
		Description: view.Description,
		Category:    view.Category,
		Keywords:    keywords,
		FileURL:     view.FileURL,
		UploadedBy:  view.UploadedBy,
		Likes:       view.Likes,
		Dislikes:    view.Dislikes,
		Views:       view.Views,
		Comments:    comments,
		Reaction:    view.Reaction.String(),
		CreatedAt:   view.CreatedAt,
	}
}

type commentResponse struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	AuthorID  string    `json:"userId"`
	Text      string    `json:"text"`
	Replies   []string  `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newCommentResponse(comment *discuss.Comment) *commentResponse {
	return &commentResponse{
		ID:        comment.ID,
		VideoID:   comment.VideoID,
		AuthorID:  comment.AuthorID,
		Text:      comment.Text,
		Replies:   ids(comment.Replies),
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

type replyResponse struct {
	ID            string    `json:"id"`
	VideoID       string    `json:"videoId"`
	ParentComment string    `json:"parentComment"`
	ParentReply   *string   `json:"parentReply"`
	AuthorID      string    `json:"userId"`
	Text          string    `json:"text"`
	ChildReplies  []string  `json:"childReplies"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newReplyResponse(reply *discuss.Reply) *replyResponse {
	return &replyResponse{
		ID:            reply.ID,
		VideoID:       reply.VideoID,
		ParentComment: reply.ParentComment,
		ParentReply:   reply.ParentReply,
		AuthorID:      reply.AuthorID,
		Text:          reply.Text,
		ChildReplies:  ids(reply.ChildReplies),
		CreatedAt:     reply.CreatedAt,
	}
}

type notificationResponse struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipientId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newNotificationResponse(notification *notifications.Notification) *notificationResponse {
	return &notificationResponse{
		ID:          notification.ID,
		RecipientID: notification.RecipientID,
		Title:       notification.Title,
		Description: notification.Description,
		IsRead:      notification.IsRead,
		CreatedAt:   notification.CreatedAt,
	}
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	res := make([]R, 0, len(items))
	for _, item := range items {
		res = append(res, fn(item))
	}

	return res
}
