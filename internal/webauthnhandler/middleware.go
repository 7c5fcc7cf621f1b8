package webauthnhandler

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/myrjola/wodcoach/internal/contexthelpers"
	"github.com/myrjola/wodcoach/internal/logging"
)

// AuthenticateMiddleware resolves the signed-in user of the session and stores their id in the request context.
// Sessions pointing to deleted users are treated as anonymous.
func (h *WebAuthnHandler) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		webauthnUserID := h.sessionManager.GetBytes(ctx, string(userIDSessionKey))

		if webauthnUserID == nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := h.getUserID(ctx, webauthnUserID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			h.logger.LogAttrs(ctx, slog.LevelError, "unable to fetch user", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		default:
			r = contexthelpers.AuthenticateContext(r, userID)
		}

		// The session token is hashed so that it does not leak into the logs.
		tokenHash := sha256.Sum256([]byte(h.sessionManager.Token(ctx)))
		ctx = logging.WithAttrs(r.Context(),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])),
			slog.Int("user_id", userID),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
