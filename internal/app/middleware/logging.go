package middleware

import (
	"context"
	"log/slog"
	"time"

	"reservations/internal/app/commands"
	"reservations/internal/app/queries"
	"reservations/internal/domain/shared/fault"
)

func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			started := time.Now()
			res, err := nextFn(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration", time.Since(started)}
			if err != nil {
				attrs = append(attrs, "error", err, "kind", fault.Code(err))
				logger.WarnContext(ctx, "command failed", attrs...)
				return nil, err
			}
			logger.DebugContext(ctx, "command handled", attrs...)
			return res, nil
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			started := time.Now()
			res, err := nextFn(ctx, q)
			if err != nil && fault.Code(err) == "" {
				logger.ErrorContext(ctx, "query failed", "query", q.Key(), "duration", time.Since(started), "error", err)
			}
			return res, err
		})
	}
}
