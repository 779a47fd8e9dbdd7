package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/peterldowns/testy/check"

	"github.com/iliyamo/online-auction/internal/config"
)

func testContext(t *testing.T, method, path string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	return c
}

func TestRateKeyStrategies(t *testing.T) {
	c := testContext(t, http.MethodPost, "/v1/auctions/:id/bid")
	c.Set("user_id", uint64(42))

	cases := map[string]string{
		"ip":            "rl:ip:192.0.2.1",
		"user":          "rl:user:42",
		"ip_user":       "rl:ip:192.0.2.1:user:42",
		"user_route":    "rl:user:42:route:POST /v1/auctions/:id/bid",
		"ip_user_route": "rl:ip:192.0.2.1:user:42:route:POST /v1/auctions/:id/bid",
	}
	for strategy, want := range cases {
		cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}
		check.Equal(t, want, rateKey(cfg, c))
	}
}

func TestRateKeyAnonymousUser(t *testing.T) {
	c := testContext(t, http.MethodGet, "/v1/auctions")
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
	check.Equal(t, "rl:user:anon", rateKey(cfg, c))
}

func TestDisabledLimiterPassesThrough(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)
	c := testContext(t, http.MethodGet, "/healthz")

	called := false
	err := mw(func(echo.Context) error {
		called = true
		return nil
	})(c)
	check.Nil(t, err)
	check.True(t, called)
}

func TestCurrentUserIDClaimTypes(t *testing.T) {
	c := testContext(t, http.MethodGet, "/v1/me")
	check.Equal(t, "anon", currentUserID(c))

	c.Set("user_id", float64(7)) // JWT claims arrive as JSON numbers
	check.Equal(t, "7", currentUserID(c))

	c.Set("user_id", uint64(8))
	check.Equal(t, "8", currentUserID(c))
}
