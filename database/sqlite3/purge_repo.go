package sqlite3

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/vidtube/authentication"
)

const tableAccountPurges = "account_purges"

const (
	purgeFieldUserID = "user_id"
	purgeFieldDueAt  = "due_at"
)

// PurgeRepository keeps due times as unix milliseconds so they compare
// numerically.
type PurgeRepository struct {
	db *sql.DB
}

var _ authentication.PurgeRepository = (*PurgeRepository)(nil)

func NewPurgeRepository(db *sql.DB) *PurgeRepository {
	return &PurgeRepository{db: db}
}

func (repo *PurgeRepository) Schedule(ctx context.Context, purge *authentication.AccountPurge) error {
	query := fmt.Sprintf(`
INSERT INTO %s (user_id, due_at)
VALUES (?, ?)
ON CONFLICT(user_id)
DO UPDATE SET due_at = excluded.due_at
`, tableAccountPurges)

	_, err := runner(ctx, repo.db).ExecContext(ctx, query, purge.UserID, purge.DueAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert account purge: %w", err)
	}

	return nil
}

func (repo *PurgeRepository) Cancel(ctx context.Context, userID string) error {
	_, err := sq.Delete(tableAccountPurges).
		Where(sq.Eq{purgeFieldUserID: userID}).
		RunWith(runner(ctx, repo.db)).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete account purge: %w", err)
	}

	return nil
}

func (repo *PurgeRepository) ListDue(ctx context.Context, now time.Time) ([]*authentication.AccountPurge, error) {
	q := sq.Select(purgeFieldUserID, purgeFieldDueAt).
		From(tableAccountPurges).
		Where(sq.LtOrEq{purgeFieldDueAt: now.UnixMilli()}).
		OrderBy(purgeFieldDueAt).
		RunWith(runner(ctx, repo.db))

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query due purges: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close purge rows", "error", err)
		}
	}()

	var purges []*authentication.AccountPurge

	for rows.Next() {
		var (
			userID string
			dueAt  int64
		)

		err := rows.Scan(&userID, &dueAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purge row: %w", err)
		}

		purges = append(purges, &authentication.AccountPurge{
			UserID: userID,
			DueAt:  time.UnixMilli(dueAt),
		})
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate purge rows: %w", err)
	}

	return purges, nil
}
