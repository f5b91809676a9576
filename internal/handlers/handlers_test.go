package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-edge/internal/config"
	"github.com/vendora/vendora-edge/internal/middleware"
	"github.com/vendora/vendora-edge/internal/models"
	"github.com/vendora/vendora-edge/internal/service"
	"github.com/vendora/vendora-edge/internal/session"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type backendCall struct {
	method string
	uri    string
	header http.Header
	body   string
}

// fakeBackend records every call and answers with the configured handler.
type fakeBackend struct {
	mu     sync.Mutex
	calls  []backendCall
	server *httptest.Server
	reply  http.HandlerFunc
}

func newFakeBackend(t *testing.T, reply http.HandlerFunc) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{reply: reply}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.calls = append(fb.calls, backendCall{
			method: r.Method,
			uri:    r.RequestURI,
			header: r.Header.Clone(),
			body:   string(payload),
		})
		fb.mu.Unlock()
		fb.reply(w, r)
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) Calls() []backendCall {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]backendCall(nil), fb.calls...)
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

type memoryAuditStore struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (s *memoryAuditStore) Store(_ context.Context, event models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memoryAuditStore) Events() []models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditEvent(nil), s.events...)
}

type testEdge struct {
	handler http.Handler
	auth    *AuthHandlers
	audit   *memoryAuditStore
}

type edgeOption func(*RouterDependencies)

func withLoginLimit(limit int) edgeOption {
	return func(deps *RouterDependencies) {
		deps.LoginLimit = middleware.RateLimit(middleware.NewRateLimiter(), middleware.LoginKey, limit, time.Minute)
	}
}

func withPageUpstream(t *testing.T, upstream string) edgeOption {
	return func(deps *RouterDependencies) {
		pages, err := NewPageHandlers(upstream, quietLogger())
		require.NoError(t, err)
		deps.PageHandlers = pages
	}
}

// newTestEdge wires the full handler chain against backendURL, the same way
// the server binary does.
func newTestEdge(t *testing.T, backendURL string, opts ...edgeOption) *testEdge {
	t.Helper()
	logger := quietLogger()

	backend, err := service.NewBackendService(&config.BackendConfig{InternalURL: backendURL}, logger)
	require.NoError(t, err)

	store := &memoryAuditStore{}
	audit := service.NewAuditService(store, time.Hour, logger)
	cookies := session.NewCookieStore(true)

	auth := NewAuthHandlers(backend, service.NewTokenService(), cookies, audit, logger)
	pages, err := NewPageHandlers("", logger)
	require.NoError(t, err)

	deps := RouterDependencies{
		AuthHandlers:  auth,
		ProxyHandlers: NewProxyHandlers(backend, cookies, logger),
		PageHandlers:  pages,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	locale := middleware.NewLocaleMiddleware(&config.LocaleConfig{
		Locales:       []string{"en", "fr", "de"},
		DefaultLocale: "en",
	}, logger, "/health")

	clientIP, err := middleware.NewClientIPResolver(nil)
	require.NoError(t, err)

	return &testEdge{
		handler: middleware.Chain(NewRouter(deps), middleware.RequestID, clientIP.Handle, locale.Handle),
		auth:    auth,
		audit:   store,
	}
}

func (e *testEdge) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func closedServerURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}
