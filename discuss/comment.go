package discuss

import (
	"context"
	"time"

	"github.com/nasermirzaei89/vidtube/idset"
)

type Comment struct {
	ID        string
	VideoID   string
	AuthorID  string
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Replies holds the direct replies of the comment.
	Replies idset.Set
}

// Reply is a node of a comment thread. ParentComment is the thread root and is
// shared by every descendant. A nil ParentReply means a direct reply to the
// comment.
type Reply struct {
	ID            string
	VideoID       string
	ParentComment string
	ParentReply   *string
	AuthorID      string
	Text          string
	CreatedAt     time.Time

	ChildReplies idset.Set
}

type CommentRepository interface {
	Insert(ctx context.Context, comment *Comment) (err error)
	Find(ctx context.Context, commentID string) (comment *Comment, err error)
	Update(ctx context.Context, comment *Comment) (err error)
	Delete(ctx context.Context, commentIDs ...string) (err error)
	List(ctx context.Context, params *ListCommentsParams) (comments []*Comment, err error)
}

type ListCommentsParams struct {
	VideoID string
}

type ReplyRepository interface {
	Insert(ctx context.Context, reply *Reply) (err error)
	Find(ctx context.Context, replyID string) (reply *Reply, err error)
	Update(ctx context.Context, reply *Reply) (err error)
	Delete(ctx context.Context, replyIDs ...string) (err error)
	List(ctx context.Context, params *ListRepliesParams) (replies []*Reply, err error)
}

// ListRepliesParams filters replies by thread root. Replies come back in
// creation order.
type ListRepliesParams struct {
	CommentIDs []string
}

// descendants walks the reply arena from rootID and returns it followed by
// every reply below it.
func descendants(arena []*Reply, rootID string) []string {
	children := make(map[string][]string)

	for _, reply := range arena {
		if reply.ParentReply != nil {
			children[*reply.ParentReply] = append(children[*reply.ParentReply], reply.ID)
		}
	}

	found := idset.New(rootID)
	queue := []string{rootID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, childID := range children[id] {
			if found.Add(childID) {
				queue = append(queue, childID)
			}
		}
	}

	return found.IDs()
}
