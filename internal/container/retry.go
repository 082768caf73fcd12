// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"time"
)

// DefaultBuildBackoff is the delay before the second build attempt; it doubles
// for each further attempt.
const DefaultBuildBackoff = 2 * time.Second

// RetryWithBackoff runs op up to maxAttempts times with exponential backoff.
// ctx is checked between attempts so a cancelled run stops immediately.
//
// op returns (retry, err). A nil err ends the loop successfully; a non-nil
// err with retry false is returned as is. On exhaustion the last error is
// returned. maxAttempts below 1 is treated as 1.
func RetryWithBackoff(
	ctx context.Context,
	maxAttempts int,
	baseBackoff time.Duration,
	op func(attempt int) (retry bool, err error),
) error {
	maxAttempts = max(maxAttempts, 1)

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("retry aborted: %w", err)
			}
			time.Sleep(baseBackoff * time.Duration(1<<(attempt-1)))
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// BuildWithRetry builds an image, retrying only failures IsTransientError
// accepts. With attempts of 1 it is a plain Build call.
func BuildWithRetry(ctx context.Context, engine Engine, opts BuildOptions, attempts int, backoff time.Duration) error {
	return RetryWithBackoff(ctx, attempts, backoff, func(int) (bool, error) {
		err := engine.Build(ctx, opts)
		return IsTransientError(err), err
	})
}
