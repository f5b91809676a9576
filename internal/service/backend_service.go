package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vendora/vendora-edge/internal/config"
	"github.com/vendora/vendora-edge/internal/models"
	"github.com/vendora/vendora-edge/internal/session"
)

const (
	TokenPath        = "/api/token/"
	TokenRefreshPath = "/api/token/refresh/"

	jsonContentType = "application/json"
)

// Dropped before forwarding. Accept-Encoding is left to the transport so it
// can decompress transparently.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Accept-Encoding",
	"Content-Length",
}

// BackendService issues at most one call to the backend per relay. Redirects
// are never followed so the browser sees the original status.
type BackendService struct {
	baseURL *url.URL
	client  *http.Client
	logger  *logrus.Logger
}

func NewBackendService(cfg *config.BackendConfig, logger *logrus.Logger) (*BackendService, error) {
	base, err := url.Parse(strings.TrimRight(cfg.InternalURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse backend url: %w", err)
	}

	return &BackendService{
		baseURL: base,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}, nil
}

func (s *BackendService) BaseURL() string {
	return s.baseURL.String()
}

// ObtainToken forwards the raw credential body to the token endpoint.
func (s *BackendService) ObtainToken(ctx context.Context, credentials []byte) (*models.BackendResponse, error) {
	return s.postJSON(ctx, TokenPath, credentials)
}

func (s *BackendService) RefreshToken(ctx context.Context, refresh string) (*models.BackendResponse, error) {
	body, err := json.Marshal(models.RefreshRequest{Refresh: refresh})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}
	return s.postJSON(ctx, TokenRefreshPath, body)
}

// Forward relays an arbitrary request to the same path on the backend.
func (s *BackendService) Forward(ctx context.Context, in *models.ProxiedRequest) (*models.BackendResponse, error) {
	target := s.BaseURL() + ensureLeadingSlash(in.Path)
	if in.RawQuery != "" {
		target += "?" + in.RawQuery
	}

	var body io.Reader
	if in.Method != http.MethodGet && in.Method != http.MethodHead {
		body = bytes.NewReader(in.Body)
	}

	req, err := http.NewRequestWithContext(ctx, in.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy request: %w", err)
	}
	req.Header = s.proxyHeaders(in.Header, in.AccessToken)
	req.Host = s.baseURL.Host

	return s.do(req)
}

func (s *BackendService) proxyHeaders(in http.Header, access string) http.Header {
	h := in.Clone()
	if h == nil {
		h = http.Header{}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
	session.StripSessionCookies(h)

	h.Set("Host", s.baseURL.Host)
	h.Set("Origin", s.BaseURL())
	h.Set("Referer", s.BaseURL()+"/")
	h.Set("Accept", jsonContentType)
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", jsonContentType)
	}

	// Always present: an empty value tells the backend the caller is anonymous.
	if access != "" {
		h.Set("Authorization", "Bearer "+access)
	} else {
		h["Authorization"] = []string{""}
	}
	return h
}

func (s *BackendService) postJSON(ctx context.Context, path string, body []byte) (*models.BackendResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL()+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create backend request: %w", err)
	}
	req.Header.Set("Content-Type", jsonContentType)
	req.Header.Set("Accept", jsonContentType)

	return s.do(req)
}

func (s *BackendService) do(req *http.Request) (*models.BackendResponse, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to contact backend: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
		"status": resp.StatusCode,
	}).Debug("Backend call completed")

	return &models.BackendResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        payload,
	}, nil
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
