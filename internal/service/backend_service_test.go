package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-edge/internal/config"
	"github.com/vendora/vendora-edge/internal/models"
)

type capturedRequest struct {
	method string
	uri    string
	host   string
	header http.Header
	body   string
}

func newBackend(t *testing.T, status int, contentType, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		captured.method = r.Method
		captured.uri = r.RequestURI
		captured.host = r.Host
		captured.header = r.Header.Clone()
		captured.body = string(payload)
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		if status >= 300 && status < 400 {
			w.Header().Set("Location", "/elsewhere/")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newBackendService(t *testing.T, baseURL string) *BackendService {
	t.Helper()
	svc, err := NewBackendService(&config.BackendConfig{InternalURL: baseURL + "/"}, quietLogger())
	require.NoError(t, err)
	return svc
}

func TestObtainTokenForwardsBodyVerbatim(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, "application/json", `{"access":"A","refresh":"R"}`)
	svc := newBackendService(t, srv.URL)

	res, err := svc.ObtainToken(context.Background(), []byte(`{"email":"a@b.com","password":"x"}`))
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/api/token/", captured.uri)
	assert.Equal(t, `{"email":"a@b.com","password":"x"}`, captured.body)
	assert.Equal(t, "application/json", captured.header.Get("Content-Type"))
	assert.Equal(t, "application/json", captured.header.Get("Accept"))
}

func TestRefreshTokenSendsRefreshInBody(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, "application/json", `{"access":"A2"}`)
	svc := newBackendService(t, srv.URL)

	_, err := svc.RefreshToken(context.Background(), "R")
	require.NoError(t, err)

	assert.Equal(t, "/api/token/refresh/", captured.uri)
	assert.JSONEq(t, `{"refresh":"R"}`, captured.body)
}

func TestRedirectsAreNotFollowed(t *testing.T) {
	srv, _ := newBackend(t, http.StatusMovedPermanently, "", "")
	svc := newBackendService(t, srv.URL)

	res, err := svc.Forward(context.Background(), &models.ProxiedRequest{Method: http.MethodGet, Path: "/api/items"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMovedPermanently, res.StatusCode)
}

func TestForwardRewritesHeaders(t *testing.T) {
	srv, captured := newBackend(t, http.StatusCreated, "application/json; charset=utf-8", `{"id":1}`)
	svc := newBackendService(t, srv.URL)

	in := http.Header{}
	in.Set("Origin", "https://app.example.com")
	in.Set("Referer", "https://app.example.com/en/products")
	in.Set("Accept", "text/html")
	in.Set("X-Custom", "kept")
	in.Set("Cookie", "access=A; refresh=R; theme=dark")
	in.Set("Accept-Encoding", "br")
	in.Set("Connection", "keep-alive")

	res, err := svc.Forward(context.Background(), &models.ProxiedRequest{
		Method:      http.MethodPost,
		Path:        "/api/products/",
		RawQuery:    "page=2&q=a%20b",
		Header:      in,
		Body:        []byte(`{"name":"chair"}`),
		AccessToken: "A",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", res.ContentType)
	assert.Equal(t, `{"id":1}`, string(res.Body))

	assert.Equal(t, "/api/products/?page=2&q=a%20b", captured.uri)
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), captured.host)
	assert.Equal(t, srv.URL, captured.header.Get("Origin"))
	assert.Equal(t, srv.URL+"/", captured.header.Get("Referer"))
	assert.Equal(t, "application/json", captured.header.Get("Accept"))
	assert.Equal(t, "application/json", captured.header.Get("Content-Type"))
	assert.Equal(t, "Bearer A", captured.header.Get("Authorization"))
	assert.Equal(t, "kept", captured.header.Get("X-Custom"))
	assert.Equal(t, "theme=dark", captured.header.Get("Cookie"))
	assert.Equal(t, `{"name":"chair"}`, captured.body)
}

func TestForwardWithoutAccessSendsEmptyAuthorization(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, "", `[]`)
	svc := newBackendService(t, srv.URL)

	_, err := svc.Forward(context.Background(), &models.ProxiedRequest{Method: http.MethodGet, Path: "/api/products/", Header: http.Header{}})
	require.NoError(t, err)

	values, present := captured.header["Authorization"]
	require.True(t, present, "authorization header must be present")
	assert.Equal(t, []string{""}, values)
}

func TestForwardKeepsCallerContentType(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, "", ``)
	svc := newBackendService(t, srv.URL)

	in := http.Header{}
	in.Set("Content-Type", "multipart/form-data; boundary=x")

	_, err := svc.Forward(context.Background(), &models.ProxiedRequest{Method: http.MethodPut, Path: "/upload/", Header: in, Body: []byte("--x--")})
	require.NoError(t, err)

	assert.Equal(t, "multipart/form-data; boundary=x", captured.header.Get("Content-Type"))
	assert.Equal(t, "--x--", captured.body)
}

func TestForwardGetCarriesNoBody(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, "", ``)
	svc := newBackendService(t, srv.URL)

	_, err := svc.Forward(context.Background(), &models.ProxiedRequest{Method: http.MethodGet, Path: "/api/x/", Body: []byte("ignored")})
	require.NoError(t, err)
	assert.Empty(t, captured.body)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := newBackendService(t, url)
	_, err := svc.ObtainToken(context.Background(), []byte(`{}`))
	assert.Error(t, err)
}
