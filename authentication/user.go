package authentication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nasermirzaei89/vidtube/idset"
)

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Username     string
	PasswordHash string
	Profile      string
	IsVerified   bool
	OTP          string
	OTPExpiresAt *time.Time
	RegisteredAt time.Time

	UploadedVideos idset.Set
	LikedVideos    idset.Set
	DislikedVideos idset.Set
	Commented      idset.Set
	CommentReplied idset.Set
	ReplyReplied   idset.Set
	Notifications  idset.Set
}

// UserList names one of the membership lists a user carries.
type UserList string

const (
	ListUploadedVideos UserList = "uploadedVideos"
	ListLikedVideos    UserList = "likedVideos"
	ListDislikedVideos UserList = "dislikedVideos"
	ListCommented      UserList = "commented"
	ListCommentReplied UserList = "commentReplied"
	ListReplyReplied   UserList = "replyReplied"
	ListNotifications  UserList = "notifications"
)

func UserLists() []UserList {
	return []UserList{
		ListUploadedVideos,
		ListLikedVideos,
		ListDislikedVideos,
		ListCommented,
		ListCommentReplied,
		ListReplyReplied,
		ListNotifications,
	}
}

// List returns the set behind name, or nil for an unknown name.
func (user *User) List(name UserList) *idset.Set {
	switch name {
	case ListUploadedVideos:
		return &user.UploadedVideos
	case ListLikedVideos:
		return &user.LikedVideos
	case ListDislikedVideos:
		return &user.DislikedVideos
	case ListCommented:
		return &user.Commented
	case ListCommentReplied:
		return &user.CommentReplied
	case ListReplyReplied:
		return &user.ReplyReplied
	case ListNotifications:
		return &user.Notifications
	default:
		return nil
	}
}

// redact clears secrets before a user leaves the service.
func (user *User) redact() {
	user.PasswordHash = ""
	user.OTP = ""
	user.OTPExpiresAt = nil
}

type UserRepository interface {
	Insert(ctx context.Context, user *User) (err error)
	Find(ctx context.Context, userID string) (user *User, err error)
	FindByEmail(ctx context.Context, email string) (user *User, err error)
	Update(ctx context.Context, user *User) (err error)
	// UpdateAccount writes the user's own columns and leaves the membership
	// lists alone.
	UpdateAccount(ctx context.Context, user *User) (err error)
	Delete(ctx context.Context, userID string) (err error)
	PullFromAll(ctx context.Context, lists []UserList, ids []string) (err error)
	ListEmails(ctx context.Context) (emails []string, err error)
}

var (
	ErrInvalidCredentials  = errors.New("incorrect email or password")
	ErrCurrentUserNotFound = errors.New("current user not found")
)

type AccountNotVerifiedError struct {
	Email string
}

func (err AccountNotVerifiedError) Error() string {
	return fmt.Sprintf("account %q is not verified yet", err.Email)
}

type InvalidOTPError struct {
	Email string
}

func (err InvalidOTPError) Error() string {
	return fmt.Sprintf("otp for %q is invalid", err.Email)
}

type OTPExpiredError struct {
	Email     string
	ExpiredAt time.Time
}

func (err OTPExpiredError) Error() string {
	return fmt.Sprintf("otp for %q expired at %s", err.Email, err.ExpiredAt.Format(time.RFC3339))
}
