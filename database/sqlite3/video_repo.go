package sqlite3

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/vidtube/contents"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/idset"
)

const tableVideos = "videos"

type VideoRepository struct {
	db *sql.DB
}

var _ contents.VideoRepository = (*VideoRepository)(nil)

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

const (
	videoFieldID          = "id"
	videoFieldTitle       = "title"
	videoFieldDescription = "description"
	videoFieldCategory    = "category"
	videoFieldKeywords    = "keywords"
	videoFieldFileURL     = "file_url"
	videoFieldObjectName  = "object_name"
	videoFieldUploadedBy  = "uploaded_by"
	videoFieldLikes       = "likes"
	videoFieldDislikes    = "dislikes"
	videoFieldViews       = "views"
	videoFieldCreatedAt   = "created_at"
)

func videoColumns() []string {
	return []string{
		videoFieldID,
		videoFieldTitle,
		videoFieldDescription,
		videoFieldCategory,
		videoFieldKeywords,
		videoFieldFileURL,
		videoFieldObjectName,
		videoFieldUploadedBy,
		videoFieldLikes,
		videoFieldDislikes,
		videoFieldViews,
		videoFieldCreatedAt,
	}
}

func scanVideo(row sq.RowScanner) (*contents.Video, error) {
	var (
		video    contents.Video
		keywords string
	)

	err := row.Scan(
		&video.ID,
		&video.Title,
		&video.Description,
		&video.Category,
		&keywords,
		&video.FileURL,
		&video.ObjectName,
		&video.UploadedBy,
		&video.Likes,
		&video.Dislikes,
		&video.Views,
		&video.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	err = json.Unmarshal([]byte(keywords), &video.Keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}

	return &video, nil
}

func encodeKeywords(keywords []string) (string, error) {
	if keywords == nil {
		keywords = []string{}
	}

	b, err := json.Marshal(keywords)
	if err != nil {
		return "", fmt.Errorf("failed to encode keywords: %w", err)
	}

	return string(b), nil
}

func videoListsOf(video *contents.Video) map[string][]string {
	lists := make(map[string][]string)

	for _, name := range contents.VideoLists() {
		lists[string(name)] = video.List(name).IDs()
	}

	return lists
}

func (repo *VideoRepository) Insert(ctx context.Context, video *contents.Video) error {
	run := runner(ctx, repo.db)

	keywords, err := encodeKeywords(video.Keywords)
	if err != nil {
		return err
	}

	_, err = sq.Insert(tableVideos).
		Columns(videoColumns()...).
		Values(
			video.ID,
			video.Title,
			video.Description,
			video.Category,
			keywords,
			video.FileURL,
			video.ObjectName,
			video.UploadedBy,
			video.Likes,
			video.Dislikes,
			video.Views,
			video.CreatedAt,
		).
		RunWith(run).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	err = replaceLists(ctx, run, video.ID, videoListsOf(video))
	if err != nil {
		return fmt.Errorf("failed to insert video lists: %w", err)
	}

	return nil
}

func (repo *VideoRepository) Find(ctx context.Context, videoID string) (*contents.Video, error) {
	run := runner(ctx, repo.db)

	q := sq.Select(videoColumns()...).
		From(tableVideos).
		Where(sq.Eq{videoFieldID: videoID}).
		RunWith(run)

	video, err := scanVideo(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &failure.NotFoundError{Entity: "video", ID: videoID}
		}

		return nil, fmt.Errorf("failed to scan video: %w", err)
	}

	lists, err := loadLists(ctx, run, video.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load video lists: %w", err)
	}

	for _, name := range contents.VideoLists() {
		*video.List(name) = idset.New(lists[string(name)]...)
	}

	return video, nil
}

func (repo *VideoRepository) Update(ctx context.Context, video *contents.Video) error {
	run := runner(ctx, repo.db)

	keywords, err := encodeKeywords(video.Keywords)
	if err != nil {
		return err
	}

	res, err := sq.Update(tableVideos).
		SetMap(map[string]any{
			videoFieldTitle:       video.Title,
			videoFieldDescription: video.Description,
			videoFieldCategory:    video.Category,
			videoFieldKeywords:    keywords,
			videoFieldFileURL:     video.FileURL,
			videoFieldObjectName:  video.ObjectName,
			videoFieldLikes:       video.Likes,
			videoFieldDislikes:    video.Dislikes,
			videoFieldViews:       video.Views,
		}).
		Where(sq.Eq{videoFieldID: video.ID}).
		RunWith(run).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return &failure.NotFoundError{Entity: "video", ID: video.ID}
	}

	err = replaceLists(ctx, run, video.ID, videoListsOf(video))
	if err != nil {
		return fmt.Errorf("failed to update video lists: %w", err)
	}

	return nil
}

func (repo *VideoRepository) Delete(ctx context.Context, videoID string) error {
	run := runner(ctx, repo.db)

	_, err := sq.Delete(tableVideos).
		Where(sq.Eq{videoFieldID: videoID}).
		RunWith(run).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	err = deleteLists(ctx, run, videoID)
	if err != nil {
		return fmt.Errorf("failed to delete video lists: %w", err)
	}

	return nil
}

func (repo *VideoRepository) PullFromAll(ctx context.Context, lists []contents.VideoList, ids []string) error {
	names := make([]string, 0, len(lists))
	for _, list := range lists {
		names = append(names, string(list))
	}

	return pullFromLists(ctx, runner(ctx, repo.db), names, ids)
}
