package members

import (
	"context"
	"time"
)

type Repo interface {
	// Record notes a login by userID, creating the member on first sight
	Record(ctx context.Context, userID string, at time.Time) error
	Count(ctx context.Context) (int64, error)
}
