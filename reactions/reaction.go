package reactions

import (
	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/contents"
)

// Reaction is the state of one user towards one video.
type Reaction int

const (
	Neutral Reaction = iota
	Liked
	Disliked
)

func (r Reaction) String() string {
	switch r {
	case Liked:
		return "liked"
	case Disliked:
		return "disliked"
	default:
		return "neutral"
	}
}

// ReactionOf reads the state of userID from the video reaction sets.
func ReactionOf(video *contents.Video, userID string) Reaction {
	switch {
	case video.UsersLiked.Has(userID):
		return Liked
	case video.UsersDisliked.Has(userID):
		return Disliked
	default:
		return Neutral
	}
}

// Like applies a like by user to video and returns the new state. Liking a
// liked video goes back to neutral.
func Like(video *contents.Video, user *authentication.User) Reaction {
	return toggle(video, user, Liked)
}

// Dislike mirrors Like.
func Dislike(video *contents.Video, user *authentication.User) Reaction {
	return toggle(video, user, Disliked)
}

func toggle(video *contents.Video, user *authentication.User, target Reaction) Reaction {
	next := target
	if ReactionOf(video, user.ID) == target {
		next = Neutral
	}

	video.UsersLiked.Remove(user.ID)
	video.UsersDisliked.Remove(user.ID)
	user.LikedVideos.Remove(video.ID)
	user.DislikedVideos.Remove(video.ID)

	switch next {
	case Liked:
		video.UsersLiked.Add(user.ID)
		user.LikedVideos.Add(video.ID)
	case Disliked:
		video.UsersDisliked.Add(user.ID)
		user.DislikedVideos.Add(video.ID)
	case Neutral:
	}

	// counters follow the sets so they can never drift from them
	video.Likes = video.UsersLiked.Len()
	video.Dislikes = video.UsersDisliked.Len()

	return next
}
