package middleware

import (
	"context"
	"time"

	"github.com/iota-uz/taskgate/pkg/constants"
)

func contextWithStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, constants.RequestStart, start)
}

// RequestStart returns when the logging middleware first saw the request.
func RequestStart(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(constants.RequestStart).(time.Time)
	return t, ok
}
