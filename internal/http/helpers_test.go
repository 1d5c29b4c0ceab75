package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httpapi "github.com/tazhibayda/greetings-service/internal/http"
	"github.com/tazhibayda/greetings-service/internal/metrics"
	"github.com/tazhibayda/greetings-service/internal/repo"
	"github.com/tazhibayda/greetings-service/internal/security"
	"github.com/tazhibayda/greetings-service/internal/service"
)

type testEnv struct {
	T      *testing.T
	Store  *repo.MemoryStore
	Router *gin.Engine
}

type envOpts struct {
	limiter  httpapi.Limiter
	verifier security.Verifier
	checks   map[string]httpapi.Pinger
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, envOpts{})
}

func newTestEnvWith(t *testing.T, o envOpts) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repo.NewMemoryStore()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	svc := service.New(store, service.WithLogger(zap.NewNop()))
	checks := o.checks
	if checks == nil {
		checks = map[string]httpapi.Pinger{"store": store}
	}

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	h := httpapi.NewHandler(svc, checks)
	r := httpapi.NewRouter(h, httpapi.RouterOptions{
		Limiter:  o.limiter,
		Verifier: o.verifier,
		Logger:   zap.NewNop(),
		Gatherer: reg,
	})
	return &testEnv{T: t, Store: store, Router: r}
}

func (e *testEnv) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()
	var rdr *bytes.Buffer
	if body != "" {
		rdr = bytes.NewBufferString(body)
	} else {
		rdr = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

type greetingBody struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Sender    *string   `json:"sender"`
	Recipient *string   `json:"recipient"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body=%s", w.Body.String())
	return v
}

func (e *testEnv) create(body string) greetingBody {
	e.T.Helper()
	w := e.do(http.MethodPost, "/api/greetings", body, nil)
	require.Equal(e.T, http.StatusCreated, w.Code, "body=%s", w.Body.String())
	return decode[greetingBody](e.T, w)
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[struct {
		Message string `json:"message"`
	}](t, w).Message
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type staticVerifier struct{ token string }

func (v staticVerifier) ParseAndVerify(_ context.Context, tok string) (*security.Claims, error) {
	if tok != v.token {
		return nil, security.ErrBadToken
	}
	c := &security.Claims{}
	c.Subject = "alice"
	return c, nil
}
