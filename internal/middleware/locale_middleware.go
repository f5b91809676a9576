package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vendora/vendora-edge/internal/config"
	"golang.org/x/text/language"
)

const (
	ProxyPrefix      = "/api/b"
	LocaleCookieName = "NEXT_LOCALE"

	ContextLocaleKey contextKey = "locale"

	localeCookieMaxAge = 60 * 60 * 24 * 365
)

// LocaleMiddleware normalizes paths before routing. Proxy paths get a trailing
// slash through an in-process rewrite; page paths are resolved to a locale
// segment. Proxy paths are handled first so they never gain a locale prefix.
type LocaleMiddleware struct {
	locales       []string
	defaultLocale string
	matcher       language.Matcher
	passthrough   map[string]struct{}
	logger        *logrus.Logger
}

// NewLocaleMiddleware builds the middleware. Paths listed in passthrough are
// left untouched even when they look like pages.
func NewLocaleMiddleware(cfg *config.LocaleConfig, logger *logrus.Logger, passthrough ...string) *LocaleMiddleware {
	tags := make([]language.Tag, 0, len(cfg.Locales))
	for _, locale := range cfg.Locales {
		tags = append(tags, language.Make(locale))
	}

	skip := make(map[string]struct{}, len(passthrough))
	for _, p := range passthrough {
		skip[p] = struct{}{}
	}

	return &LocaleMiddleware{
		locales:       cfg.Locales,
		defaultLocale: cfg.DefaultLocale,
		matcher:       language.NewMatcher(tags),
		passthrough:   skip,
		logger:        logger,
	}
}

func (m *LocaleMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		switch {
		case IsProxyPath(path):
			if !strings.HasSuffix(path, "/") {
				r = withTrailingSlash(r)
			}
			next.ServeHTTP(w, r)
		case m.isPagePath(path):
			m.resolveLocale(w, r, next)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func IsProxyPath(path string) bool {
	return path == ProxyPrefix || strings.HasPrefix(path, ProxyPrefix+"/")
}

// isPagePath matches everything that is not under api or _next and has no
// file extension.
func (m *LocaleMiddleware) isPagePath(path string) bool {
	if _, ok := m.passthrough[path]; ok {
		return false
	}
	rest := strings.TrimPrefix(path, "/")
	return !strings.HasPrefix(rest, "api") &&
		!strings.HasPrefix(rest, "_next") &&
		!strings.Contains(rest, ".")
}

func (m *LocaleMiddleware) resolveLocale(w http.ResponseWriter, r *http.Request, next http.Handler) {
	first, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	if m.isSupported(first) {
		if c, err := r.Cookie(LocaleCookieName); err != nil || c.Value != first {
			http.SetCookie(w, localeCookie(first))
		}
		ctx := context.WithValue(r.Context(), ContextLocaleKey, first)
		next.ServeHTTP(w, r.WithContext(ctx))
		return
	}

	locale := m.detect(r)
	target := "/" + locale
	if escaped := r.URL.EscapedPath(); escaped != "/" {
		target += escaped
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	m.logger.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"locale": locale,
	}).Debug("Redirecting to localized path")

	http.SetCookie(w, localeCookie(locale))
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// detect prefers the locale cookie, then Accept-Language, then the default.
func (m *LocaleMiddleware) detect(r *http.Request) string {
	if c, err := r.Cookie(LocaleCookieName); err == nil && m.isSupported(c.Value) {
		return c.Value
	}

	if header := r.Header.Get("Accept-Language"); header != "" {
		prefs, _, err := language.ParseAcceptLanguage(header)
		if err == nil && len(prefs) > 0 {
			_, index, confidence := m.matcher.Match(prefs...)
			if confidence != language.No && index >= 0 && index < len(m.locales) {
				return m.locales[index]
			}
		}
	}

	return m.defaultLocale
}

func (m *LocaleMiddleware) isSupported(locale string) bool {
	for _, l := range m.locales {
		if l == locale {
			return true
		}
	}
	return false
}

func LocaleFromContext(ctx context.Context) (string, bool) {
	locale, ok := ctx.Value(ContextLocaleKey).(string)
	return locale, ok
}

// withTrailingSlash rewrites the path in place of a redirect. The raw query
// is carried over untouched.
func withTrailingSlash(r *http.Request) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	u := *r.URL
	u.Path += "/"
	if u.RawPath != "" {
		u.RawPath += "/"
	}
	r2.URL = &u
	return r2
}

func localeCookie(locale string) *http.Cookie {
	return &http.Cookie{
		Name:     LocaleCookieName,
		Value:    locale,
		Path:     "/",
		MaxAge:   localeCookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	}
}
