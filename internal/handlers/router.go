package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vendora/vendora-edge/internal/middleware"
)

type RouterDependencies struct {
	AuthHandlers  *AuthHandlers
	ProxyHandlers *ProxyHandlers
	PageHandlers  *PageHandlers
	// LoginLimit guards the credential routes. Nil disables limiting.
	LoginLimit func(http.Handler) http.Handler
}

func NewRouter(deps RouterDependencies) *mux.Router {
	router := mux.NewRouter()
	// Proxied paths are forwarded as received.
	router.SkipClean(true)
	router.UseEncodedPath()

	limit := deps.LoginLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	auth := router.PathPrefix("/api/auth").Subrouter()
	auth.Handle("/token", limit(http.HandlerFunc(deps.AuthHandlers.Token))).Methods("POST")
	auth.Handle("/login", limit(http.HandlerFunc(deps.AuthHandlers.Login))).Methods("POST")
	auth.HandleFunc("/refresh", deps.AuthHandlers.Refresh).Methods("POST")
	auth.HandleFunc("/me", deps.AuthHandlers.Me).Methods("GET")
	auth.HandleFunc("/logout", deps.AuthHandlers.Logout).Methods("POST")

	router.PathPrefix(middleware.ProxyPrefix + "/").HandlerFunc(deps.ProxyHandlers.Forward)

	if deps.PageHandlers != nil {
		router.PathPrefix("/").HandlerFunc(deps.PageHandlers.Serve)
	}

	return router
}
