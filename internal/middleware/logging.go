package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// Install it after RequireAuth so the participant ID is in the context.
// It logs the procedure name, participant ID, duration, and any error codes/messages.
// Client errors (invalid input, not found, denied) log at WARN; everything
// else that fails logs at ERROR.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			userID := GetUserID(ctx)
			duration := time.Since(start).Milliseconds()
			if err == nil {
				slog.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"duration_ms", duration,
				)
				return resp, nil
			}

			code := connect.CodeOf(err)
			level := slog.LevelError
			if isClientError(code) {
				level = slog.LevelWarn
			}
			var connectErr *connect.Error
			message := err.Error()
			if errors.As(err, &connectErr) {
				message = connectErr.Message()
			}
			slog.Log(ctx, level, "RPC error",
				"procedure", procedure,
				"code", code.String(),
				"error", message,
				"user_id", userID,
				"duration_ms", duration,
			)
			return resp, err
		}
	}
}

func isClientError(code connect.Code) bool {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeNotFound,
		connect.CodePermissionDenied, connect.CodeUnauthenticated, connect.CodeAlreadyExists:
		return true
	}
	return false
}
