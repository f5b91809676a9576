package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vendora/vendora-edge/internal/models"
)

const jsonContentType = "application/json"

// DetailResponse is the error shape the browser reads.
type DetailResponse struct {
	Detail string `json:"detail"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type unauthenticatedResponse struct {
	Authenticated bool `json:"authenticated"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithDetail(w http.ResponseWriter, status int, detail string) {
	respondWithJSON(w, status, DetailResponse{Detail: detail})
}

func respondOK(w http.ResponseWriter) {
	respondWithJSON(w, http.StatusOK, OKResponse{OK: true})
}

func respondUnauthenticated(w http.ResponseWriter) {
	respondWithJSON(w, http.StatusUnauthorized, unauthenticatedResponse{Authenticated: false})
}

// respondWithBackend writes the backend status and body verbatim. Only the
// content type is carried over, defaulting to JSON.
func respondWithBackend(w http.ResponseWriter, res *models.BackendResponse) {
	contentType := res.ContentType
	if contentType == "" {
		contentType = jsonContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(res.StatusCode)
	w.Write(res.Body)
}
