package utils

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// ShareCall runs fn once for all concurrent callers of key. A caller stops waiting
// when its ctx is done. If the shared call failed only because the caller that
// started it gave up, it is run again for callers that are still waiting.
func ShareCall(ctx context.Context, g *singleflight.Group, key string, fn func() (interface{}, error)) (interface{}, error) {
	for {
		ch := g.DoChan(key, fn)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil && ctx.Err() == nil && IsContextErr(res.Err) {
				continue
			}
			return res.Val, res.Err
		}
	}
}

// IsContextErr the error was caused by a canceled or expired context
func IsContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
