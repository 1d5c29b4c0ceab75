package http_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/tazhibayda/greetings-service/internal/http"
)

func Test_RateLimit_Writes(t *testing.T) {
	env := newTestEnvWith(t, envOpts{limiter: httpapi.NewIPRateLimiter(2, time.Minute)})

	for i := 0; i < 2; i++ {
		w := env.do(http.MethodPost, "/api/greetings", `{"message":"hi"}`, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := env.do(http.MethodPost, "/api/greetings", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "Too many requests", errorMessage(t, w))

	w = env.do(http.MethodGet, "/api/greetings", "", nil)
	require.Equal(t, http.StatusOK, w.Code, "reads are not limited")
}

func Test_IPRateLimiter_PerKey(t *testing.T) {
	l := httpapi.NewIPRateLimiter(1, time.Hour)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.1")
	require.False(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.2")
	require.True(t, ok)
}

func Test_AuthJWT_Writes(t *testing.T) {
	env := newTestEnvWith(t, envOpts{verifier: staticVerifier{token: "good"}})

	w := env.do(http.MethodPost, "/api/greetings", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Missing bearer token", errorMessage(t, w))

	w = env.do(http.MethodPost, "/api/greetings", `{"message":"hi"}`, map[string]string{"Authorization": "Bearer bad"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid token", errorMessage(t, w))

	w = env.do(http.MethodPost, "/api/greetings", `{"message":"hi"}`, map[string]string{"Authorization": "bearer good"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/greetings", "", nil)
	require.Equal(t, http.StatusOK, w.Code, "reads stay public")
}
