package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vendora/vendora-edge/internal/middleware"
	"github.com/vendora/vendora-edge/internal/models"
	"github.com/vendora/vendora-edge/internal/service"
	"github.com/vendora/vendora-edge/internal/session"
)

const detailProxyError = "Proxy error contacting backend"

type ProxyHandlers struct {
	backend *service.BackendService
	cookies *session.CookieStore
	logger  *logrus.Logger
}

func NewProxyHandlers(backend *service.BackendService, cookies *session.CookieStore, logger *logrus.Logger) *ProxyHandlers {
	return &ProxyHandlers{
		backend: backend,
		cookies: cookies,
		logger:  logger,
	}
}

// Forward relays any method under the proxy prefix to the same path on the
// backend. The bearer token is injected from the access cookie and must never
// be logged.
func (h *ProxyHandlers) Forward(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.EscapedPath(), middleware.ProxyPrefix)
	if path == "" {
		path = "/"
	}

	var body []byte
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			respondWithDetail(w, http.StatusBadRequest, detailInvalidBody)
			return
		}
	}

	access, _ := h.cookies.AccessToken(r)

	res, err := h.backend.Forward(r.Context(), &models.ProxiedRequest{
		Method:      r.Method,
		Path:        path,
		RawQuery:    r.URL.RawQuery,
		Header:      r.Header,
		Body:        body,
		AccessToken: access,
	})
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   path,
		}).Error("Proxy request failed")
		respondWithDetail(w, http.StatusBadGateway, detailProxyError)
		return
	}

	respondWithBackend(w, res)
}
