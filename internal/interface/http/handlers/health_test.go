package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("test")

	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, StateOK, status.State)
	assert.Equal(t, "No health checks registered", status.Message)

	c.AddCheck("postgres", PingCheck(pinger{}))
	c.AddOptionalCheck("redis", PingCheck(pinger{err: errors.New("connection refused")}))

	status = c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, StateDegraded, status.State)
	assert.Equal(t, "Running without: redis", status.Message)
	assert.True(t, status.Checks["postgres"].Critical)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)

	c.AddCheck("postgres", PingCheck(pinger{err: errors.New("no route to host")}))
	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, StateDown, status.State)
	assert.Equal(t, "Some checks failed: postgres", status.Message)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("test")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.Equal(t, StateDown, status.State)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}

func TestAdminAuth(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	auth := NewAdminAuth(AuthConfig{Secret: secret, Issuer: "smcen-registrar", Role: "admin"})
	now := time.Now()

	token, err := auth.Issue("registrar-office", now)
	require.NoError(t, err)

	claims, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "registrar-office", claims.Subject)

	_, err = auth.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other := NewAdminAuth(AuthConfig{Secret: "another-secret-another-secret-xx", Issuer: "smcen-registrar"})
	forged, err := other.Issue("x", now)
	require.NoError(t, err)
	_, err = auth.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := auth.Issue("x", now.Add(-24*time.Hour))
	require.NoError(t, err)
	_, err = auth.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	student := NewAdminAuth(AuthConfig{Secret: secret, Issuer: "smcen-registrar", Role: "student"})
	studentToken, err := student.Issue("s", now)
	require.NoError(t, err)
	_, err = auth.Verify(studentToken)
	assert.ErrorIs(t, err, ErrInsufficientRole)
}

func TestAdminAuth_Middleware(t *testing.T) {
	auth := NewAdminAuth(AuthConfig{Secret: "0123456789abcdef0123456789abcdef", Role: "admin"})
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(claims.Subject))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	token, err := auth.Issue("office", time.Now())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "office", rec.Body.String())
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := ChainHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b"}, order)
}
