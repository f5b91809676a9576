package handlers

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/vendora/vendora-edge/internal/middleware"
)

const LocaleHeader = "X-Locale"

// PageHandlers hands locale-resolved page requests to the page renderer.
// Without an upstream every page is a 404.
type PageHandlers struct {
	proxy  *httputil.ReverseProxy
	logger *logrus.Logger
}

func NewPageHandlers(upstream string, logger *logrus.Logger) (*PageHandlers, error) {
	h := &PageHandlers{logger: logger}
	if upstream == "" {
		return h, nil
	}

	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pages upstream: %w", err)
	}

	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del(LocaleHeader)
			if locale, ok := middleware.LocaleFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(LocaleHeader, locale)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WithError(err).WithField("path", r.URL.Path).Error("Page upstream failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	return h, nil
}

func (h *PageHandlers) Serve(w http.ResponseWriter, r *http.Request) {
	if h.proxy == nil {
		http.NotFound(w, r)
		return
	}
	h.proxy.ServeHTTP(w, r)
}
