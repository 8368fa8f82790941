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
	tableReplies = "replies"

	listChildReplies = "childReplies"
)

type ReplyRepository struct {
	db *sql.DB
}

var _ discuss.ReplyRepository = (*ReplyRepository)(nil)

func NewReplyRepository(db *sql.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

const (
	replyFieldID            = "id"
	replyFieldVideoID       = "video_id"
	replyFieldParentComment = "parent_comment"
	replyFieldParentReply   = "parent_reply"
	replyFieldAuthorID      = "author_id"
	replyFieldText          = "text"
	replyFieldCreatedAt     = "created_at"
)

func replyColumns() []string {
	return []string{
		replyFieldID,
		replyFieldVideoID,
		replyFieldParentComment,
		replyFieldParentReply,
		replyFieldAuthorID,
		replyFieldText,
		replyFieldCreatedAt,
	}
}

func scanReply(row sq.RowScanner) (*discuss.Reply, error) {
	var (
		reply       discuss.Reply
		parentReply sql.NullString
	)

	err := row.Scan(
		&reply.ID,
		&reply.VideoID,
		&reply.ParentComment,
		&parentReply,
		&reply.AuthorID,
		&reply.Text,
		&reply.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if parentReply.Valid {
		reply.ParentReply = &parentReply.String
	}

	return &reply, nil
}

func parentReplyValue(reply *discuss.Reply) any {
	if reply.ParentReply == nil {
		return nil
	}

	return *reply.ParentReply
}

func (repo *ReplyRepository) loadChildren(ctx context.Context, run sq.StdSqlCtx, reply *discuss.Reply) error {
	lists, err := loadLists(ctx, run, reply.ID)
	if err != nil {
		return fmt.Errorf("failed to load reply lists: %w", err)
	}

	reply.ChildReplies = idset.New(lists[listChildReplies]...)

	return nil
}

func (repo *ReplyRepository) Insert(ctx context.Context, reply *discuss.Reply) error {
	run := runner(ctx, repo.db)

	_, err := sq.Insert(tableReplies).
		Columns(replyColumns()...).
		Values(
			reply.ID,
			reply.VideoID,
			reply.ParentComment,
			parentReplyValue(reply),
			reply.AuthorID,
			reply.Text,
			reply.CreatedAt,
		).
		RunWith(run).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	err = replaceLists(ctx, run, reply.ID, map[string][]string{listChildReplies: reply.ChildReplies.IDs()})
	if err != nil {
		return fmt.Errorf("failed to insert reply lists: %w", err)
	}

	return nil
}

func (repo *ReplyRepository) Find(ctx context.Context, replyID string) (*discuss.Reply, error) {
	run := runner(ctx, repo.db)

	q := sq.Select(replyColumns()...).
		From(tableReplies).
		Where(sq.Eq{replyFieldID: replyID}).
		RunWith(run)

	reply, err := scanReply(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &failure.NotFoundError{Entity: "reply", ID: replyID}
		}

		return nil, fmt.Errorf("failed to scan reply: %w", err)
	}

	err = repo.loadChildren(ctx, run, reply)
	if err != nil {
		return nil, err
	}

	return reply, nil
}

func (repo *ReplyRepository) Update(ctx context.Context, reply *discuss.Reply) error {
	run := runner(ctx, repo.db)

	res, err := sq.Update(tableReplies).
		Set(replyFieldText, reply.Text).
		Where(sq.Eq{replyFieldID: reply.ID}).
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
		return &failure.NotFoundError{Entity: "reply", ID: reply.ID}
	}

	err = replaceLists(ctx, run, reply.ID, map[string][]string{listChildReplies: reply.ChildReplies.IDs()})
	if err != nil {
		return fmt.Errorf("failed to update reply lists: %w", err)
	}

	return nil
}

func (repo *ReplyRepository) Delete(ctx context.Context, replyIDs ...string) error {
	if len(replyIDs) == 0 {
		return nil
	}

	run := runner(ctx, repo.db)

	_, err := sq.Delete(tableReplies).
		Where(sq.Eq{replyFieldID: replyIDs}).
		RunWith(run).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	err = deleteLists(ctx, run, replyIDs...)
	if err != nil {
		return fmt.Errorf("failed to delete reply lists: %w", err)
	}

	return nil
}

func (repo *ReplyRepository) List(ctx context.Context, params *discuss.ListRepliesParams) ([]*discuss.Reply, error) {
	run := runner(ctx, repo.db)

	query := sq.Select(replyColumns()...).
		From(tableReplies).
		OrderBy(replyFieldCreatedAt+" ASC", "rowid ASC")

	if params != nil && params.CommentIDs != nil {
		query = query.Where(sq.Eq{replyFieldParentComment: params.CommentIDs})
	}

	replies, err := queryReplies(ctx, query.RunWith(run))
	if err != nil {
		return nil, err
	}

	for _, reply := range replies {
		err = repo.loadChildren(ctx, run, reply)
		if err != nil {
			return nil, err
		}
	}

	return replies, nil
}

func queryReplies(ctx context.Context, query sq.SelectBuilder) ([]*discuss.Reply, error) {
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

	replies := make([]*discuss.Reply, 0)

	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reply failed: %w", err)
		}

		replies = append(replies, reply)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return replies, nil
}
