package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/conectapr/backend-b2b/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware verifies bearer tokens issued by the identity service and
// attaches the caller to the request context. Token issuance lives outside
// this service; only HS256 verification happens here.
type Middleware struct {
	Secret    []byte
	Issuer    string
	ClockSkew time.Duration
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole enforces authentication plus a specific caller role.
func (m Middleware) RequireRole(role common.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := m.authenticateRequest(r)
			if err != nil {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			caller, ok := common.CallerFrom(ctx)
			if !ok || caller.Role != role {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	raw := extractToken(r)
	if raw == "" {
		return r.Context(), errNoToken
	}
	caller, err := m.ParseToken(raw, time.Now())
	if err != nil {
		return r.Context(), err
	}
	return common.WithCaller(r.Context(), caller), nil
}

// ParseToken verifies the token signature and claims and extracts the caller identity.
func (m Middleware) ParseToken(raw string, now time.Time) (common.Caller, error) {
	options := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, m.Secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if m.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(m.ClockSkew))
	}
	if m.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.Issuer))
	}
	tok, err := jwt.Parse([]byte(raw), options...)
	if err != nil {
		return common.Caller{}, err
	}
	sub := strings.TrimSpace(tok.Subject())
	if sub == "" {
		return common.Caller{}, errors.New("auth: token missing subject")
	}
	rawRole, _ := tok.Get("role")
	roleClaim, _ := rawRole.(string)
	role, ok := common.ParseRole(roleClaim)
	if !ok {
		return common.Caller{}, errors.New("auth: token missing or invalid role claim")
	}
	return common.Caller{ID: sub, Role: role}, nil
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
