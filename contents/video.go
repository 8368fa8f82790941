package contents

import (
	"context"
	"time"

	"github.com/nasermirzaei89/vidtube/idset"
)

type Video struct {
	ID          string
	Title       string
	Description string
	Category    string
	Keywords    []string
	FileURL     string
	ObjectName  string
	UploadedBy  string
	Likes       int
	Dislikes    int
	Views       int
	CreatedAt   time.Time

	UsersLiked    idset.Set
	UsersDisliked idset.Set
	Comments      idset.Set
}

// VideoList names one of the membership lists a video carries.
type VideoList string

const (
	ListUsersLiked    VideoList = "usersLikedThisVideo"
	ListUsersDisliked VideoList = "usersDislikedThisVideo"
	ListComments      VideoList = "comments"
)

func VideoLists() []VideoList {
	return []VideoList{ListUsersLiked, ListUsersDisliked, ListComments}
}

// List returns the set behind name, or nil for an unknown name.
func (video *Video) List(name VideoList) *idset.Set {
	switch name {
	case ListUsersLiked:
		return &video.UsersLiked
	case ListUsersDisliked:
		return &video.UsersDisliked
	case ListComments:
		return &video.Comments
	default:
		return nil
	}
}

type VideoRepository interface {
	Insert(ctx context.Context, video *Video) (err error)
	Find(ctx context.Context, videoID string) (video *Video, err error)
	Update(ctx context.Context, video *Video) (err error)
	Delete(ctx context.Context, videoID string) (err error)
	PullFromAll(ctx context.Context, lists []VideoList, ids []string) (err error)
}

// Uploader is the public summary of the user who uploaded a video.
type Uploader struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Username  string
}

type VideoDetail struct {
	*Video
	Uploader *Uploader
}
