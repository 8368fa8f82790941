package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/vidtube/discuss"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/idset"
)

const (
	tableComments = "comments"

	listCommentReplies = "replies"
)

type CommentRepository struct {
	db *sql.DB
}

var _ discuss.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const (
	commentFieldID        = "id"
	commentFieldVideoID   = "video_id"
	commentFieldAuthorID  = "author_id"
	commentFieldText      = "text"
	commentFieldCreatedAt = "created_at"
	commentFieldUpdatedAt = "updated_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldVideoID,
		commentFieldAuthorID,
		commentFieldText,
		commentFieldCreatedAt,
		commentFieldUpdatedAt,
	}
}

func scanComment(row sq.RowScanner) (*discuss.Comment, error) {
	var comment discuss.Comment

	err := row.Scan(
		&comment.ID,
		&comment.VideoID,
		&comment.AuthorID,
		&comment.Text,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &comment, nil
}

func (repo *CommentRepository) loadReplies(ctx context.Context, run sq.StdSqlCtx, comment *discuss.Comment) error {
	lists, err := loadLists(ctx, run, comment.ID)
	if err != nil {
		return fmt.Errorf("failed to load comment lists: %w", err)
	}

	comment.Replies = idset.New(lists[listCommentReplies]...)

	return nil
}

func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	run := runner(ctx, repo.db)

	_, err := sq.Insert(tableComments).
		Columns(commentColumns()...).
		Values(
			comment.ID,
			comment.VideoID,
			comment.AuthorID,
			comment.Text,
			comment.CreatedAt,
			comment.UpdatedAt,
		).
		RunWith(run).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	err = replaceLists(ctx, run, comment.ID, map[string][]string{listCommentReplies: comment.Replies.IDs()})
	if err != nil {
		return fmt.Errorf("failed to insert comment lists: %w", err)
	}

	return nil
}

func (repo *CommentRepository) Find(ctx context.Context, commentID string) (*discuss.Comment, error) {
	run := runner(ctx, repo.db)

	q := sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldID: commentID}).
		RunWith(run)

	comment, err := scanComment(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &failure.NotFoundError{Entity: "comment", ID: commentID}
		}

		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}

	err = repo.loadReplies(ctx, run, comment)
	if err != nil {
		return nil, err
	}

	return comment, nil
}

func (repo *CommentRepository) Update(ctx context.Context, comment *discuss.Comment) error {
	run := runner(ctx, repo.db)

	res, err := sq.Update(tableComments).
		Set(commentFieldText, comment.Text).
		Set(commentFieldUpdatedAt, comment.UpdatedAt).
		Where(sq.Eq{commentFieldID: comment.ID}).
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
		return &failure.NotFoundError{Entity: "comment", ID: comment.ID}
	}

	err = replaceLists(ctx, run, comment.ID, map[string][]string{listCommentReplies: comment.Replies.IDs()})
	if err != nil {
		return fmt.Errorf("failed to update comment lists: %w", err)
	}

	return nil
}

func (repo *CommentRepository) Delete(ctx context.Context, commentIDs ...string) error {
	if len(commentIDs) == 0 {
		return nil
	}

	run := runner(ctx, repo.db)

	_, err := sq.Delete(tableComments).
		Where(sq.Eq{commentFieldID: commentIDs}).
		RunWith(run).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	err = deleteLists(ctx, run, commentIDs...)
	if err != nil {
		return fmt.Errorf("failed to delete comment lists: %w", err)
	}

	return nil
}

func (repo *CommentRepository) List(
	ctx context.Context,
	params *discuss.ListCommentsParams,
) ([]*discuss.Comment, error) {
	run := runner(ctx, repo.db)

	query := sq.Select(commentColumns()...).
		From(tableComments).
		OrderBy(commentFieldCreatedAt+" ASC", "rowid ASC")

	if params != nil && params.VideoID != "" {
		query = query.Where(sq.Eq{commentFieldVideoID: params.VideoID})
	}

	comments, err := queryComments(ctx, query.RunWith(run))
	if err != nil {
		return nil, err
	}

	// lists are loaded once the rows are closed, the database has one
	// connection
	for _, comment := range comments {
		err = repo.loadReplies(ctx, run, comment)
		if err != nil {
			return nil, err
		}
	}

	return comments, nil
}

func queryComments(ctx context.Context, query sq.SelectBuilder) ([]*discuss.Comment, error) {
	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	comments := make([]*discuss.Comment, 0)

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment failed: %w", err)
		}

		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return comments, nil
}
