package middleware

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/expensesplit/internal/auth"
	"github.com/mmynk/expensesplit/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// participantKey is the context key for the authenticated participant.
const participantKey contextKey = "participant"

// WithParticipant returns a context carrying the authenticated participant.
func WithParticipant(ctx context.Context, p models.Participant) context.Context {
	return context.WithValue(ctx, participantKey, p)
}

// CurrentParticipant extracts the authenticated participant from the context.
func CurrentParticipant(ctx context.Context) (models.Participant, bool) {
	p, ok := ctx.Value(participantKey).(models.Participant)
	return p, ok && p.ID != ""
}

// GetUserID extracts the authenticated participant ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	p, _ := CurrentParticipant(ctx)
	return p.ID
}

// RequireAuth returns an interceptor that validates bearer tokens and
// rejects unauthenticated calls. The token's participant is added to the
// request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			tokenString, err := bearerToken(req.Header().Get("Authorization"))
			if err != nil {
				slog.Warn("Rejected unauthenticated RPC", "procedure", req.Spec().Procedure, "error", err)
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				slog.Warn("Rejected invalid token", "procedure", req.Spec().Procedure, "error", err)
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithParticipant(ctx, claims.Participant()), req)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", auth.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}
