// Package api serves a StarSeeker-compatible HTTP API for local development
// and tests.
package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/harrylevesque/starseeker/internal/utils"
)

// Version is reported by GET /status.
var Version = "stub-dev"

type Server struct {
	network *Network
	apiKey  string
	log     *utils.Logger
}

func NewServer(network *Network, apiKey string, log *utils.Logger) *Server {
	return &Server{network: network, apiKey: apiKey, log: log}
}

// NewRouter wires the API routes. Every route except /health requires the
// x-api-key header when the server has a key.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK\n"))
	}).Methods(http.MethodGet, http.MethodHead)

	apiRoutes := r.NewRoute().Subrouter()
	apiRoutes.Use(s.logRequests, s.requireAPIKey)
	apiRoutes.HandleFunc("/status", s.GetStatusHandler).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/gates", s.ListGatesHandler).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/gates/{code}", s.GetGateHandler).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/gates/{from}/to/{to}", s.GetRouteHandler).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/transport/{distance}", s.GetTransportHandler).Methods(http.MethodGet)
	return r
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("x-api-key")), []byte(s.apiKey)) != 1 {
			writeError(w, utils.New(http.StatusUnauthorized, "invalid or missing API key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Infof("%s %s [%s]", r.Method, r.URL.RequestURI(), r.Header.Get("X-Request-ID"))
		next.ServeHTTP(w, r)
	})
}
