package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vendora/vendora-edge/internal/middleware"
	"github.com/vendora/vendora-edge/internal/models"
	"github.com/vendora/vendora-edge/internal/service"
	"github.com/vendora/vendora-edge/internal/session"
)

const (
	detailTokenProxyError   = "Proxy error contacting backend /api/token/"
	detailRefreshProxyError = "Proxy error contacting backend /api/token/refresh/"
	detailLoginFailed       = "Login failed"
	detailNoRefresh         = "No refresh"
	detailRefreshFailed     = "Refresh failed"
	detailInvalidBody       = "Invalid request body"
)

type AuthHandlers struct {
	backend *service.BackendService
	tokens  *service.TokenService
	cookies *session.CookieStore
	audit   *service.AuditService
	logger  *logrus.Logger
	now     func() time.Time
}

func NewAuthHandlers(
	backend *service.BackendService,
	tokens *service.TokenService,
	cookies *session.CookieStore,
	audit *service.AuditService,
	logger *logrus.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		backend: backend,
		tokens:  tokens,
		cookies: cookies,
		audit:   audit,
		logger:  logger,
		now:     time.Now,
	}
}

// Token relays the raw backend token response, tokens included.
func (h *AuthHandlers) Token(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithDetail(w, http.StatusBadRequest, detailInvalidBody)
		return
	}

	res, err := h.backend.ObtainToken(r.Context(), body)
	if err != nil {
		h.logger.WithError(err).Error("Token exchange failed")
		respondWithDetail(w, http.StatusBadGateway, detailTokenProxyError)
		return
	}

	respondWithBackend(w, res)
}

// Login exchanges credentials for a session. Tokens go into http-only
// cookies and are never returned to the browser.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithDetail(w, http.StatusBadRequest, detailInvalidBody)
		return
	}

	res, err := h.backend.ObtainToken(r.Context(), body)
	if err != nil {
		h.logger.WithError(err).Error("Login token exchange failed")
		h.record(r, models.AuditLoginFailed, "", http.StatusBadGateway, credentialMeta(body))
		respondWithDetail(w, http.StatusBadGateway, detailTokenProxyError)
		return
	}

	if !res.OK() {
		h.record(r, models.AuditLoginFailed, "", res.StatusCode, credentialMeta(body))

		var data any
		if err := json.Unmarshal(res.Body, &data); err != nil || data == nil {
			respondWithDetail(w, res.StatusCode, detailLoginFailed)
			return
		}
		respondWithBackend(w, res)
		return
	}

	var pair models.TokenPair
	if err := json.Unmarshal(res.Body, &pair); err != nil {
		h.logger.WithError(err).Warn("Backend token response is not a token pair")
	}

	h.cookies.SetSession(w, pair.Access, pair.Refresh)
	h.record(r, models.AuditLoginSucceeded, h.tokens.SubjectOf(pair.Access), http.StatusOK, nil)

	respondOK(w)
}

// Refresh mints a new access token from the refresh cookie. Every failure
// from the backend collapses into one 401.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh, ok := h.cookies.RefreshToken(r)
	if !ok {
		respondWithDetail(w, http.StatusUnauthorized, detailNoRefresh)
		return
	}

	res, err := h.backend.RefreshToken(r.Context(), refresh)
	if err != nil {
		h.logger.WithError(err).Error("Token refresh failed")
		h.record(r, models.AuditRefreshFailed, "", http.StatusBadGateway, nil)
		respondWithDetail(w, http.StatusBadGateway, detailRefreshProxyError)
		return
	}

	var pair models.TokenPair
	if !res.OK() || json.Unmarshal(res.Body, &pair) != nil || pair.Access == "" {
		h.record(r, models.AuditRefreshFailed, "", res.StatusCode, nil)
		respondWithDetail(w, http.StatusUnauthorized, detailRefreshFailed)
		return
	}

	h.cookies.SetAccess(w, pair.Access)
	h.record(r, models.AuditRefreshSucceeded, h.tokens.SubjectOf(pair.Access), http.StatusOK, nil)

	respondOK(w)
}

// Me decodes the access cookie for display data. Nothing here is verified.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	access, ok := h.cookies.AccessToken(r)
	if !ok {
		respondUnauthenticated(w)
		return
	}

	info, err := h.tokens.Introspect(access, h.now())
	if err != nil {
		h.logger.WithError(err).Debug("Access cookie could not be decoded")
		respondUnauthenticated(w)
		return
	}

	respondWithJSON(w, http.StatusOK, info)
}

// Logout only clears local state; the backend is not told.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	access, _ := h.cookies.AccessToken(r)

	h.cookies.Clear(w)
	h.record(r, models.AuditLogout, h.tokens.SubjectOf(access), http.StatusOK, nil)

	respondOK(w)
}

func (h *AuthHandlers) record(r *http.Request, action, userID string, status int, meta map[string]string) {
	h.audit.Record(r.Context(), models.AuditEvent{
		Action:    action,
		UserID:    userID,
		Status:    status,
		ClientIP:  middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		Meta:      meta,
	})
}

// credentialMeta keeps the scalar fields of a credential body for the audit
// trail. Sensitive keys are redacted by the audit service.
func credentialMeta(body []byte) map[string]string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}
	meta := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			meta[k] = val
		case float64:
			meta[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			meta[k] = strconv.FormatBool(val)
		}
	}
	return meta
}
