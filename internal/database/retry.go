package database

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const retryDelay = 50 * time.Millisecond

// RetryOnce runs fn and, if it fails with a transient store error, runs it one
// more time. Only use it for reads and single-statement conditional writes.
func RetryOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(retryDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
