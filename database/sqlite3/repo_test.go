package sqlite3_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/vidtube/contents"
	"github.com/nasermirzaei89/vidtube/database/sqlite3"
	"github.com/nasermirzaei89/vidtube/discuss"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/idset"
	"github.com/nasermirzaei89/vidtube/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoRepository(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	videos := sqlite3.NewVideoRepository(db)

	video := &contents.Video{
		ID:         uuid.NewString(),
		Title:      "title",
		Keywords:   []string{"go", "sqlite"},
		FileURL:    "http://objects.test/v.mp4",
		ObjectName: "v.mp4",
		UploadedBy: "u1",
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		UsersLiked: idset.New("u2"),
		Comments:   idset.New("c1", "c2"),
	}
	video.Likes = video.UsersLiked.Len()

	require.NoError(t, videos.Insert(ctx, video))

	found, err := videos.Find(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sqlite"}, found.Keywords)
	assert.Equal(t, 1, found.Likes)
	assert.Equal(t, []string{"u2"}, found.UsersLiked.IDs())
	assert.Equal(t, []string{"c1", "c2"}, found.Comments.IDs())

	found.Views = 7
	found.Comments.Remove("c1")
	require.NoError(t, videos.Update(ctx, found))

	require.NoError(t, videos.PullFromAll(ctx, []contents.VideoList{contents.ListUsersLiked}, []string{"u2"}))

	found, err = videos.Find(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, found.Views)
	assert.Equal(t, []string{"c2"}, found.Comments.IDs())
	assert.Zero(t, found.UsersLiked.Len())

	require.NoError(t, videos.Delete(ctx, video.ID))

	_, err = videos.Find(ctx, video.ID)

	var notFoundErr *failure.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	assert.Equal(t, "video", notFoundErr.Entity)
}

func TestCommentAndReplyRepositories(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	comments := sqlite3.NewCommentRepository(db)
	replies := sqlite3.NewReplyRepository(db)

	createdAt := time.Now().UTC().Truncate(time.Second)

	first := &discuss.Comment{ID: uuid.NewString(), VideoID: "v1", AuthorID: "u1", Text: "first", CreatedAt: createdAt, UpdatedAt: createdAt}
	second := &discuss.Comment{ID: uuid.NewString(), VideoID: "v1", AuthorID: "u2", Text: "second", CreatedAt: createdAt, UpdatedAt: createdAt}
	other := &discuss.Comment{ID: uuid.NewString(), VideoID: "v2", AuthorID: "u1", Text: "other", CreatedAt: createdAt, UpdatedAt: createdAt}

	for _, comment := range []*discuss.Comment{first, second, other} {
		require.NoError(t, comments.Insert(ctx, comment))
	}

	reply := &discuss.Reply{ID: uuid.NewString(), VideoID: "v1", ParentComment: first.ID, AuthorID: "u2", Text: "reply", CreatedAt: createdAt}
	require.NoError(t, replies.Insert(ctx, reply))

	parentID := reply.ID
	child := &discuss.Reply{ID: uuid.NewString(), VideoID: "v1", ParentComment: first.ID, ParentReply: &parentID, AuthorID: "u1", Text: "child", CreatedAt: createdAt}
	require.NoError(t, replies.Insert(ctx, child))

	first.Replies.Add(reply.ID)
	first.Text = "edited"
	require.NoError(t, comments.Update(ctx, first))

	reply.ChildReplies.Add(child.ID)
	require.NoError(t, replies.Update(ctx, reply))

	t.Run("list comments of a video in creation order", func(t *testing.T) {
		list, err := comments.List(ctx, &discuss.ListCommentsParams{VideoID: "v1"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, "edited", list[0].Text)
		assert.Equal(t, []string{reply.ID}, list[0].Replies.IDs())
		assert.Equal(t, second.ID, list[1].ID)
	})

	t.Run("find reply", func(t *testing.T) {
		found, err := replies.Find(ctx, child.ID)
		require.NoError(t, err)
		require.NotNil(t, found.ParentReply)
		assert.Equal(t, reply.ID, *found.ParentReply)

		found, err = replies.Find(ctx, reply.ID)
		require.NoError(t, err)
		assert.Nil(t, found.ParentReply)
		assert.Equal(t, []string{child.ID}, found.ChildReplies.IDs())
	})

	t.Run("list replies of threads", func(t *testing.T) {
		list, err := replies.List(ctx, &discuss.ListRepliesParams{CommentIDs: []string{first.ID, second.ID}})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, reply.ID, list[0].ID)
		assert.Equal(t, child.ID, list[1].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, replies.Delete(ctx, reply.ID, child.ID))
		require.NoError(t, comments.Delete(ctx, first.ID, second.ID))

		var notFoundErr *failure.NotFoundError

		_, err := replies.Find(ctx, reply.ID)
		require.ErrorAs(t, err, &notFoundErr)

		_, err = comments.Find(ctx, first.ID)
		require.ErrorAs(t, err, &notFoundErr)

		list, err := comments.List(ctx, &discuss.ListCommentsParams{VideoID: "v2"})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestNotificationRepository(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := sqlite3.NewNotificationRepository(db)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	older := &notifications.Notification{ID: uuid.NewString(), RecipientID: "u1", Title: "older", CreatedAt: base}
	newer := &notifications.Notification{ID: uuid.NewString(), RecipientID: "u1", Title: "newer", CreatedAt: base.Add(time.Minute)}
	foreign := &notifications.Notification{ID: uuid.NewString(), RecipientID: "u2", Title: "foreign", CreatedAt: base}

	for _, n := range []*notifications.Notification{older, newer, foreign} {
		require.NoError(t, repo.Insert(ctx, n))
	}

	list, err := repo.List(ctx, &notifications.ListNotificationsParams{RecipientID: "u1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Title)
	assert.Equal(t, "older", list[1].Title)

	newer.IsRead = true
	require.NoError(t, repo.Update(ctx, newer))

	list, err = repo.List(ctx, &notifications.ListNotificationsParams{RecipientID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, older.ID, list[0].ID)

	found, err := repo.Find(ctx, newer.ID)
	require.NoError(t, err)
	assert.True(t, found.IsRead)

	err = repo.Update(ctx, &notifications.Notification{ID: "missing"})

	var notFoundErr *failure.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}
