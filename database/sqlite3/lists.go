package sqlite3

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
)

// entity_lists stores every membership list of every entity as ordered rows.
// The primary key (owner_id, list, item_id) keeps each list a set.
const tableEntityLists = "entity_lists"

const (
	listFieldOwnerID  = "owner_id"
	listFieldList     = "list"
	listFieldItemID   = "item_id"
	listFieldPosition = "position"
)

func loadLists(ctx context.Context, run sq.StdSqlCtx, ownerID string) (map[string][]string, error) {
	q := sq.Select(listFieldList, listFieldItemID).
		From(tableEntityLists).
		Where(sq.Eq{listFieldOwnerID: ownerID}).
		OrderBy(listFieldList, listFieldPosition).
		RunWith(run)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close list rows", "error", err)
		}
	}()

	lists := make(map[string][]string)

	for rows.Next() {
		var list, itemID string

		err := rows.Scan(&list, &itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list row: %w", err)
		}

		lists[list] = append(lists[list], itemID)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate list rows: %w", err)
	}

	return lists, nil
}

// replaceLists overwrites every list of ownerID with lists.
func replaceLists(ctx context.Context, run sq.StdSqlCtx, ownerID string, lists map[string][]string) error {
	err := deleteLists(ctx, run, ownerID)
	if err != nil {
		return err
	}

	q := sq.Insert(tableEntityLists).
		Columns(listFieldOwnerID, listFieldList, listFieldItemID, listFieldPosition)

	count := 0

	for list, ids := range lists {
		for position, id := range ids {
			q = q.Values(ownerID, list, id, position)
			count++
		}
	}

	if count == 0 {
		return nil
	}

	_, err = q.RunWith(run).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert list items: %w", err)
	}

	return nil
}

// pullFromLists removes ids from the named lists of every owner.
func pullFromLists(ctx context.Context, run sq.StdSqlCtx, lists []string, ids []string) error {
	if len(lists) == 0 || len(ids) == 0 {
		return nil
	}

	q := sq.Delete(tableEntityLists).
		Where(sq.Eq{listFieldList: lists, listFieldItemID: ids}).
		RunWith(run)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to pull items from lists: %w", err)
	}

	return nil
}

func deleteLists(ctx context.Context, run sq.StdSqlCtx, ownerIDs ...string) error {
	if len(ownerIDs) == 0 {
		return nil
	}

	q := sq.Delete(tableEntityLists).
		Where(sq.Eq{listFieldOwnerID: ownerIDs}).
		RunWith(run)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete lists: %w", err)
	}

	return nil
}
