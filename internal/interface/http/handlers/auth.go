package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrMissingToken is returned when no bearer token is present.
	ErrMissingToken = errors.New("auth: missing bearer token")

	// ErrInvalidToken is returned when a token fails verification.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrInsufficientRole is returned when a valid token lacks the admin role.
	ErrInsufficientRole = errors.New("auth: insufficient role")
)

// AuthConfig configures AdminAuth.
type AuthConfig struct {
	// Secret is the HS256 signing key.
	Secret string

	// Issuer is required in the "iss" claim when set.
	Issuer string

	// Role is the value the "role" claim must carry.
	Role string

	// TokenTTL is the lifetime of tokens created by Issue.
	TokenTTL time.Duration
}

// Claims are the registrar's JWT claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth verifies admin bearer tokens.
type AdminAuth struct {
	cfg    AuthConfig
	parser *jwt.Parser
}

// NewAdminAuth creates an AdminAuth.
func NewAdminAuth(cfg AuthConfig) *AdminAuth {
	if cfg.Role == "" {
		cfg.Role = "admin"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &AdminAuth{cfg: cfg, parser: jwt.NewParser(opts...)}
}

// Issue signs an admin token for subject. Used by operators and tests.
func (a *AdminAuth) Issue(subject string, now time.Time) (string, error) {
	claims := Claims{
		Role: a.cfg.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and checks its signature, expiry, issuer and role.
func (a *AdminAuth) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Role != a.cfg.Role {
		return nil, ErrInsufficientRole
	}
	return claims, nil
}

// Middleware rejects requests without a valid admin token. Verified claims
// are available through ClaimsFromContext.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Verify(bearerToken(r))
		switch {
		case err == nil:
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		case errors.Is(err, ErrInsufficientRole):
			writeProblem(w, http.StatusForbidden, "forbidden", "Admin role required")
		default:
			w.Header().Set("WWW-Authenticate", `Bearer realm="registrar"`)
			writeProblem(w, http.StatusUnauthorized, "unauthorized", "Valid bearer token required")
		}
	})
}

// ClaimsFromContext returns the claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ContextKeyClaims).(*Claims)
	return c, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}
