package middleware

import (
	"context"
	"net/http"
	"strings"

	"authd/internal/domain/models"
	"authd/internal/lib/api/response"
	"authd/internal/lib/jwt"
)

type ctxKey int

const identityKey ctxKey = iota

// Identity returns the authenticated principal stored by Authenticate.
func Identity(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// Authenticate validates the bearer access token and attaches the resolved
// identity to the request context. It is a pure function of the token and
// never consults storage: an access token stays valid until its expiry.
func Authenticate(codec *jwt.Codec, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.WriteErr(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := codec.Parse(token)
		if err != nil {
			response.WriteErr(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		identity := models.Identity{
			UserID:   claims.UserID,
			Username: claims.Username,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	}
}
