package models

import "net/http"

// ProxiedRequest lives for the duration of one relay call.
type ProxiedRequest struct {
	Method      string
	Path        string
	RawQuery    string
	Header      http.Header
	Body        []byte
	AccessToken string
}

type BackendResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (r *BackendResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
