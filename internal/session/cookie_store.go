// Package session keeps the browser session in two http-only cookies. There is
// no server-side session store.
package session

import (
	"net/http"
	"strings"
)

const (
	AccessCookieName  = "access"
	RefreshCookieName = "refresh"

	// Must match the backend's token validity.
	AccessMaxAge  = 60 * 5
	RefreshMaxAge = 60 * 60 * 24 * 7
)

type CookieStore struct {
	secure bool
}

func NewCookieStore(secure bool) *CookieStore {
	return &CookieStore{secure: secure}
}

// AccessToken returns the access cookie value. An empty cookie counts as absent.
func (s *CookieStore) AccessToken(r *http.Request) (string, bool) {
	return cookieValue(r, AccessCookieName)
}

func (s *CookieStore) RefreshToken(r *http.Request) (string, bool) {
	return cookieValue(r, RefreshCookieName)
}

func (s *CookieStore) SetSession(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, s.cookie(AccessCookieName, access, AccessMaxAge))
	http.SetCookie(w, s.cookie(RefreshCookieName, refresh, RefreshMaxAge))
}

func (s *CookieStore) SetAccess(w http.ResponseWriter, access string) {
	http.SetCookie(w, s.cookie(AccessCookieName, access, AccessMaxAge))
}

// Clear expires both cookies. A negative MaxAge is rendered as Max-Age=0.
func (s *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(AccessCookieName, "", -1))
	http.SetCookie(w, s.cookie(RefreshCookieName, "", -1))
}

func (s *CookieStore) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// StripSessionCookies removes the access and refresh cookies from a Cookie
// header so they are never forwarded to the backend's general API. Other
// pairs are kept byte for byte.
func StripSessionCookies(h http.Header) {
	lines := h.Values("Cookie")
	if len(lines) == 0 {
		return
	}

	var kept []string
	for _, line := range lines {
		for _, pair := range strings.Split(line, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			name, _, _ := strings.Cut(pair, "=")
			name = strings.TrimSpace(name)
			if name == AccessCookieName || name == RefreshCookieName {
				continue
			}
			kept = append(kept, pair)
		}
	}

	if len(kept) == 0 {
		h.Del("Cookie")
		return
	}
	h.Set("Cookie", strings.Join(kept, "; "))
}

func cookieValue(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
