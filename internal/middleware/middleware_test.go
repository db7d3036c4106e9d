package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/utils"
)

type fakeUsers map[uint64]*model.User

func (f fakeUsers) ValidateUser(_ context.Context, id uint64) (*model.User, error) {
	return f[id], nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	issuer := utils.NewSessionIssuer("secret", time.Hour)
	users := fakeUsers{7: {ID: 7, Email: "a@example.com"}}

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": c.Get("user_id"), "email": c.Get("email")})
	}, JWTAuth(issuer, users))

	good, err := issuer.IssueDefault(7, "a@example.com")
	require.NoError(t, err)
	gone, err := issuer.IssueDefault(8, "b@example.com")
	require.NoError(t, err)
	forged, err := utils.NewSessionIssuer("other", time.Hour).IssueDefault(7, "a@example.com")
	require.NoError(t, err)

	rec := do(e, http.MethodGet, "/me", good.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"email":"a@example.com"}`, rec.Body.String())

	for name, tok := range map[string]string{"missing": "", "deleted user": gone.Token, "forged": forged.Token, "garbage": "abc"} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", tok).Code)
		})
	}
}

func rateLimitEcho(cfg config.RateLimitConfig, rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb))
	return e
}

func testLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func TestTokenBucket_Redis(t *testing.T) {
	mr, rdb := newRedis(t)
	e := rateLimitEcho(testLimitConfig(), rdb)

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/auth/login", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/auth/login", "").Code)
	rec := do(e, http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "rl:ip:192.0.2.1:route:POST /auth/login", keys[0])
}

func TestTokenBucket_LocalFallback(t *testing.T) {
	e := rateLimitEcho(testLimitConfig(), nil)

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/auth/login", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/auth/login", "").Code)
	rec := do(e, http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucket_Disabled(t *testing.T) {
	cfg := testLimitConfig()
	cfg.Enabled = false
	e := rateLimitEcho(cfg, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/auth/login", "").Code)
	}
}

func TestTaskCache_PerUserWithInvalidation(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}

	calls := 0
	e := echo.New()
	asUser := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", uint64(len(c.Request().Header.Get(echo.HeaderAuthorization))))
			return next(c)
		}
	}
	g := e.Group("/tasks", asUser, NewTaskCache(cfg, rdb))
	g.GET("", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls, "user": c.Get("user_id")})
	})
	g.POST("", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

	first := do(e, http.MethodGet, "/tasks", "a")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, http.MethodGet, "/tasks", "a")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	other := do(e, http.MethodGet, "/tasks", "bb")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/tasks", "a").Code)
	after := do(e, http.MethodGet, "/tasks", "a")
	assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)

	assert.Equal(t, "HIT", do(e, http.MethodGet, "/tasks", "bb").Header().Get("X-Cache"))
}
