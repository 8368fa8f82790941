package discuss_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/contents"
	"github.com/nasermirzaei89/vidtube/database/sqlite3"
	"github.com/nasermirzaei89/vidtube/discuss"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc           *discuss.BaseService
	users         *sqlite3.UserRepository
	videos        *sqlite3.VideoRepository
	comments      *sqlite3.CommentRepository
	replies       *sqlite3.ReplyRepository
	notifications *notifications.BaseService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	err = sqlite3.MigrateUp(ctx, db)
	require.NoError(t, err)

	transactor := sqlite3.NewTransactor(db)

	f := &fixture{
		users:    sqlite3.NewUserRepository(db),
		videos:   sqlite3.NewVideoRepository(db),
		comments: sqlite3.NewCommentRepository(db),
		replies:  sqlite3.NewReplyRepository(db),
	}

	f.notifications = notifications.NewService(sqlite3.NewNotificationRepository(db), f.users, transactor)
	f.svc = discuss.NewService(f.comments, f.replies, f.videos, f.users, f.notifications, transactor)

	return f
}

func (f *fixture) user(t *testing.T, name string) *authentication.User {
	t.Helper()

	user := &authentication.User{
		ID:           uuid.NewString(),
		FirstName:    name,
		LastName:     "Doe",
		Email:        name + "@x.com",
		Username:     "@" + name,
		IsVerified:   true,
		RegisteredAt: time.Now(),
	}

	require.NoError(t, f.users.Insert(context.Background(), user))

	return user
}

func (f *fixture) video(t *testing.T, uploader *authentication.User) *contents.Video {
	t.Helper()

	ctx := context.Background()

	video := &contents.Video{
		ID:         uuid.NewString(),
		Title:      "video",
		Keywords:   []string{},
		UploadedBy: uploader.ID,
		CreatedAt:  time.Now(),
	}

	require.NoError(t, f.videos.Insert(ctx, video))

	stored, err := f.users.Find(ctx, uploader.ID)
	require.NoError(t, err)

	stored.UploadedVideos.Add(video.ID)
	require.NoError(t, f.users.Update(ctx, stored))

	return video
}

func (f *fixture) reload(t *testing.T, user *authentication.User) *authentication.User {
	t.Helper()

	found, err := f.users.Find(context.Background(), user.ID)
	require.NoError(t, err)

	return found
}

func (f *fixture) inbox(t *testing.T, user *authentication.User) []*notifications.Notification {
	t.Helper()

	list, err := f.notifications.ListNotifications(context.Background(), user.ID, false)
	require.NoError(t, err)

	return list
}

// thread builds a video of owner with one comment by commenter, one reply
// by replier and one child reply by commenter.
type thread struct {
	video   *contents.Video
	comment *discuss.Comment
	reply   *discuss.Reply
	child   *discuss.Reply
}

func (f *fixture) thread(t *testing.T, owner, commenter, replier *authentication.User) *thread {
	t.Helper()

	ctx := context.Background()
	th := &thread{video: f.video(t, owner)}

	var err error

	th.comment, err = f.svc.CreateComment(ctx, discuss.CreateCommentRequest{
		ActorID: commenter.ID,
		VideoID: th.video.ID,
		Text:    "nice video",
	})
	require.NoError(t, err)

	th.reply, err = f.svc.CreateReply(ctx, discuss.CreateReplyRequest{
		ActorID:   replier.ID,
		VideoID:   th.video.ID,
		CommentID: th.comment.ID,
		Text:      "agreed",
	})
	require.NoError(t, err)

	th.child, err = f.svc.CreateChildReply(ctx, discuss.CreateChildReplyRequest{
		ActorID:   commenter.ID,
		VideoID:   th.video.ID,
		CommentID: th.comment.ID,
		ReplyID:   th.reply.ID,
		Text:      "thanks",
	})
	require.NoError(t, err)

	return th
}

func TestCreateComment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	alice := f.user(t, "alice")
	video := f.video(t, owner)

	comment, err := f.svc.CreateComment(ctx, discuss.CreateCommentRequest{
		ActorID: alice.ID,
		VideoID: video.ID,
		Text:    "nice video",
	})
	require.NoError(t, err)

	assert.Equal(t, video.ID, comment.VideoID)
	assert.Equal(t, alice.ID, comment.AuthorID)

	storedVideo, err := f.videos.Find(ctx, video.ID)
	require.NoError(t, err)
	assert.True(t, storedVideo.Comments.Has(comment.ID))

	assert.True(t, f.reload(t, alice).Commented.Has(comment.ID))

	inbox := f.inbox(t, owner)
	require.Len(t, inbox, 1)
	assert.Equal(t, "@alice commented on your video", inbox[0].Title)
	assert.Equal(t, "nice video", inbox[0].Description)
	assert.False(t, inbox[0].IsRead)
	assert.True(t, f.reload(t, owner).Notifications.Has(inbox[0].ID))

	t.Run("uploader commenting is notified too", func(t *testing.T) {
		_, err := f.svc.CreateComment(ctx, discuss.CreateCommentRequest{
			ActorID: owner.ID,
			VideoID: video.ID,
			Text:    "thanks for watching",
		})
		require.NoError(t, err)

		assert.Len(t, f.inbox(t, owner), 2)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := f.svc.CreateComment(ctx, discuss.CreateCommentRequest{ActorID: alice.ID, VideoID: video.ID, Text: "  "})

		var validationErr *failure.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "text", validationErr.Field)
	})

	t.Run("unknown video", func(t *testing.T) {
		_, err := f.svc.CreateComment(ctx, discuss.CreateCommentRequest{ActorID: alice.ID, VideoID: uuid.NewString(), Text: "hi"})

		var notFoundErr *failure.NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "video", notFoundErr.Entity)
	})
}

func TestCreateComment_MissingUploader(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	alice := f.user(t, "alice")
	video := f.video(t, owner)

	require.NoError(t, f.users.Delete(ctx, owner.ID))

	comment, err := f.svc.CreateComment(ctx, discuss.CreateCommentRequest{ActorID: alice.ID, VideoID: video.ID, Text: "hi"})
	require.NoError(t, err)

	_, err = f.comments.Find(ctx, comment.ID)
	require.NoError(t, err)
}

func TestCreateReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	th := f.thread(t, owner, alice, bob)

	comment, err := f.comments.Find(ctx, th.comment.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{th.reply.ID}, comment.Replies.IDs())

	reply, err := f.replies.Find(ctx, th.reply.ID)
	require.NoError(t, err)
	assert.Nil(t, reply.ParentReply)
	assert.Equal(t, th.comment.ID, reply.ParentComment)
	assert.Equal(t, []string{th.child.ID}, reply.ChildReplies.IDs())

	require.NotNil(t, th.child.ParentReply)
	assert.Equal(t, th.reply.ID, *th.child.ParentReply)
	assert.Equal(t, th.comment.ID, th.child.ParentComment)

	assert.True(t, f.reload(t, bob).CommentReplied.Has(th.reply.ID))
	assert.True(t, f.reload(t, alice).ReplyReplied.Has(th.child.ID))

	aliceInbox := f.inbox(t, alice)
	require.Len(t, aliceInbox, 1)
	assert.Equal(t, "@bob replied to your comment", aliceInbox[0].Title)

	bobInbox := f.inbox(t, bob)
	require.Len(t, bobInbox, 1)
	assert.Equal(t, "@alice replied to your reply", bobInbox[0].Title)

	t.Run("replying to oneself is silent", func(t *testing.T) {
		_, err := f.svc.CreateReply(ctx, discuss.CreateReplyRequest{
			ActorID:   alice.ID,
			VideoID:   th.video.ID,
			CommentID: th.comment.ID,
			Text:      "me again",
		})
		require.NoError(t, err)

		assert.Len(t, f.inbox(t, alice), 1)
	})
}

func TestCreateReply_RelationChecks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	alice := f.user(t, "alice")

	th := f.thread(t, owner, alice, alice)
	otherVideo := f.video(t, owner)
	otherThread := f.thread(t, owner, alice, alice)

	countReplies := func() int {
		list, err := f.replies.List(ctx, &discuss.ListRepliesParams{})
		require.NoError(t, err)

		return len(list)
	}

	before := countReplies()

	t.Run("comment of another video", func(t *testing.T) {
		_, err := f.svc.CreateReply(ctx, discuss.CreateReplyRequest{
			ActorID:   alice.ID,
			VideoID:   otherVideo.ID,
			CommentID: th.comment.ID,
			Text:      "hi",
		})

		var relationErr *failure.RelationError
		require.ErrorAs(t, err, &relationErr)
		assert.Equal(t, "video", relationErr.Parent)
		assert.Equal(t, before, countReplies())
	})

	t.Run("reply of another comment", func(t *testing.T) {
		_, err := f.svc.CreateChildReply(ctx, discuss.CreateChildReplyRequest{
			ActorID:   alice.ID,
			VideoID:   th.video.ID,
			CommentID: th.comment.ID,
			ReplyID:   otherThread.reply.ID,
			Text:      "hi",
		})

		var relationErr *failure.RelationError
		require.ErrorAs(t, err, &relationErr)
		assert.Equal(t, "comment", relationErr.Parent)
		assert.Equal(t, before, countReplies())

		parent, err := f.replies.Find(ctx, otherThread.reply.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, parent.ChildReplies.Len())
	})

	t.Run("child replies cannot be answered", func(t *testing.T) {
		_, err := f.svc.CreateChildReply(ctx, discuss.CreateChildReplyRequest{
			ActorID:   alice.ID,
			VideoID:   th.video.ID,
			CommentID: th.comment.ID,
			ReplyID:   th.child.ID,
			Text:      "hi",
		})

		var relationErr *failure.RelationError
		require.ErrorAs(t, err, &relationErr)
		assert.Equal(t, before, countReplies())
	})

	t.Run("unknown comment", func(t *testing.T) {
		_, err := f.svc.CreateReply(ctx, discuss.CreateReplyRequest{
			ActorID:   alice.ID,
			VideoID:   th.video.ID,
			CommentID: uuid.NewString(),
			Text:      "hi",
		})

		var notFoundErr *failure.NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "comment", notFoundErr.Entity)
	})
}

func TestUpdateComment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	alice := f.user(t, "alice")

	th := f.thread(t, owner, alice, owner)

	_, err := f.svc.UpdateComment(ctx, discuss.UpdateCommentRequest{
		ActorID:   owner.ID,
		VideoID:   th.video.ID,
		CommentID: th.comment.ID,
		Text:      "hijacked",
	})

	var authzErr *failure.AuthorizationError
	require.ErrorAs(t, err, &authzErr)

	updated, err := f.svc.UpdateComment(ctx, discuss.UpdateCommentRequest{
		ActorID:   alice.ID,
		VideoID:   th.video.ID,
		CommentID: th.comment.ID,
		Text:      "edited",
	})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Text)

	got, err := f.svc.GetComment(ctx, th.video.ID, th.comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Text)
	assert.Equal(t, []string{th.reply.ID}, got.Replies.IDs())
}

func TestDeleteComment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assertGone := func(t *testing.T, f *fixture, th *thread, users ...*authentication.User) {
		t.Helper()

		var notFoundErr *failure.NotFoundError

		_, err := f.comments.Find(ctx, th.comment.ID)
		require.ErrorAs(t, err, &notFoundErr)

		_, err = f.replies.Find(ctx, th.reply.ID)
		require.ErrorAs(t, err, &notFoundErr)

		_, err = f.replies.Find(ctx, th.child.ID)
		require.ErrorAs(t, err, &notFoundErr)

		video, err := f.videos.Find(ctx, th.video.ID)
		require.NoError(t, err)
		assert.False(t, video.Comments.Has(th.comment.ID))

		for _, user := range users {
			stored := f.reload(t, user)
			assert.False(t, stored.Commented.Has(th.comment.ID))
			assert.False(t, stored.CommentReplied.Has(th.reply.ID))
			assert.False(t, stored.ReplyReplied.Has(th.child.ID))
		}
	}

	t.Run("by the video owner", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		owner := f.user(t, "owner")
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")

		th := f.thread(t, owner, alice, bob)

		err := f.svc.DeleteComment(ctx, discuss.DeleteCommentRequest{
			ActorID:   owner.ID,
			VideoID:   th.video.ID,
			CommentID: th.comment.ID,
		})
		require.NoError(t, err)

		assertGone(t, f, th, owner, alice, bob)
	})

	t.Run("by the author", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		owner := f.user(t, "owner")
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")

		th := f.thread(t, owner, alice, bob)

		err := f.svc.DeleteComment(ctx, discuss.DeleteCommentRequest{
			ActorID:   alice.ID,
			VideoID:   th.video.ID,
			CommentID: th.comment.ID,
		})
		require.NoError(t, err)

		assertGone(t, f, th, owner, alice, bob)
	})

	t.Run("by a stranger", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		owner := f.user(t, "owner")
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")

		th := f.thread(t, owner, alice, alice)

		err := f.svc.DeleteComment(ctx, discuss.DeleteCommentRequest{
			ActorID:   bob.ID,
			VideoID:   th.video.ID,
			CommentID: th.comment.ID,
		})

		var authzErr *failure.AuthorizationError
		require.ErrorAs(t, err, &authzErr)

		_, err = f.comments.Find(ctx, th.comment.ID)
		require.NoError(t, err)
	})
}

func TestDeleteReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	th := f.thread(t, owner, alice, bob)

	err := f.svc.DeleteReply(ctx, discuss.DeleteReplyRequest{
		ActorID:   alice.ID,
		VideoID:   th.video.ID,
		CommentID: th.comment.ID,
		ReplyID:   th.reply.ID,
	})

	var authzErr *failure.AuthorizationError
	require.ErrorAs(t, err, &authzErr)

	err = f.svc.DeleteReply(ctx, discuss.DeleteReplyRequest{
		ActorID:   bob.ID,
		VideoID:   th.video.ID,
		CommentID: th.comment.ID,
		ReplyID:   th.reply.ID,
	})
	require.NoError(t, err)

	var notFoundErr *failure.NotFoundError

	_, err = f.replies.Find(ctx, th.reply.ID)
	require.ErrorAs(t, err, &notFoundErr)

	// descendants go with it
	_, err = f.replies.Find(ctx, th.child.ID)
	require.ErrorAs(t, err, &notFoundErr)

	comment, err := f.comments.Find(ctx, th.comment.ID)
	require.NoError(t, err)
	assert.Zero(t, comment.Replies.Len())

	assert.False(t, f.reload(t, bob).CommentReplied.Has(th.reply.ID))
	assert.False(t, f.reload(t, alice).ReplyReplied.Has(th.child.ID))
	assert.True(t, f.reload(t, alice).Commented.Has(th.comment.ID))
}

func TestDeleteChildReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	th := f.thread(t, owner, alice, bob)

	req := discuss.DeleteChildReplyRequest{
		ActorID:   bob.ID,
		VideoID:   th.video.ID,
		CommentID: th.comment.ID,
		ReplyID:   th.reply.ID,
		ChildID:   th.child.ID,
	}

	err := f.svc.DeleteChildReply(ctx, req)

	var authzErr *failure.AuthorizationError
	require.ErrorAs(t, err, &authzErr)

	req.ActorID = alice.ID

	err = f.svc.DeleteChildReply(ctx, req)
	require.NoError(t, err)

	parent, err := f.replies.Find(ctx, th.reply.ID)
	require.NoError(t, err)
	assert.Zero(t, parent.ChildReplies.Len())

	assert.False(t, f.reload(t, alice).ReplyReplied.Has(th.child.ID))

	err = f.svc.DeleteChildReply(ctx, req)

	var notFoundErr *failure.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestListCommentsAndReplies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	alice := f.user(t, "alice")

	th := f.thread(t, owner, alice, owner)

	second, err := f.svc.CreateComment(ctx, discuss.CreateCommentRequest{ActorID: owner.ID, VideoID: th.video.ID, Text: "second"})
	require.NoError(t, err)

	comments, err := f.svc.ListComments(ctx, th.video.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, th.comment.ID, comments[0].ID)
	assert.Equal(t, second.ID, comments[1].ID)

	replies, err := f.svc.ListReplies(ctx, th.video.ID, th.comment.ID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, th.reply.ID, replies[0].ID)
	assert.Equal(t, th.child.ID, replies[1].ID)

	_, err = f.svc.ListComments(ctx, uuid.NewString())

	var notFoundErr *failure.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestPurgeVideoComments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	alice := f.user(t, "alice")

	th := f.thread(t, owner, alice, owner)
	kept := f.thread(t, owner, alice, owner)

	err := f.svc.PurgeVideoComments(ctx, th.video.ID)
	require.NoError(t, err)

	var notFoundErr *failure.NotFoundError

	_, err = f.comments.Find(ctx, th.comment.ID)
	require.ErrorAs(t, err, &notFoundErr)

	_, err = f.replies.Find(ctx, th.child.ID)
	require.ErrorAs(t, err, &notFoundErr)

	stored := f.reload(t, alice)
	assert.False(t, stored.Commented.Has(th.comment.ID))
	assert.True(t, stored.Commented.Has(kept.comment.ID))

	_, err = f.comments.Find(ctx, kept.comment.ID)
	require.NoError(t, err)

	// nothing left to purge
	require.NoError(t, f.svc.PurgeVideoComments(ctx, th.video.ID))
}
