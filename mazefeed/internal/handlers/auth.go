package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/awsford/deeplens-maze-solver/common/httputil"
)

type contextKey string

// SubjectKey holds the verified token subject in the request context.
const SubjectKey contextKey = "subject"

// BearerAuth verifies HS256 bearer tokens on the feed API. Browsers cannot
// set headers on an EventSource, so the token may also arrive as the
// access_token query parameter.
type BearerAuth struct {
	secret []byte
	parser *jwt.Parser
}

// NewBearerAuth creates a BearerAuth. An empty secret disables the check.
func NewBearerAuth(secret string) *BearerAuth {
	return &BearerAuth{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Enabled reports whether tokens are checked.
func (a *BearerAuth) Enabled() bool {
	return len(a.secret) > 0
}

// Protect wraps next with the token check.
func (a *BearerAuth) Protect(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return a.secret, nil
		})
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			httputil.WriteError(w, http.StatusUnauthorized, msg)
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
