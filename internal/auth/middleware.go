package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const identityKey contextKey = "auth_identity"

// IdentityFrom returns the authenticated identity attached to the request
// context, or nil outside the middleware.
func IdentityFrom(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

// Middleware resolves the caller identity for every request. With auth
// enabled it validates the bearer token; disabled, it reads X-User-Id.
func Middleware(v *Validator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, errMsg := resolve(v, r)
			if identity == nil {
				logger.Debug("request rejected", zap.String("reason", errMsg))
				unauthorized(w, errMsg)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(v *Validator, r *http.Request) (*Identity, string) {
	if !v.Enabled() {
		userID := r.Header.Get("X-User-Id")
		if userID == "" {
			return nil, "authentication disabled but no X-User-Id header provided"
		}
		return DevIdentity(userID), ""
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, "missing authentication token"
	}

	identity, err := v.Validate(token)
	if err != nil {
		return nil, err.Error()
	}
	return identity, ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
