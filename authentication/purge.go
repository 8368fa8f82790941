package authentication

import (
	"context"
	"time"
)

// AccountPurge is a durable deferred deletion of an account that has not been
// verified by DueAt.
type AccountPurge struct {
	UserID string
	DueAt  time.Time
}

type PurgeRepository interface {
	Schedule(ctx context.Context, purge *AccountPurge) (err error)
	Cancel(ctx context.Context, userID string) (err error)
	ListDue(ctx context.Context, now time.Time) (purges []*AccountPurge, err error)
}
