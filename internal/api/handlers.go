package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/harrylevesque/starseeker/internal/models"
	"github.com/harrylevesque/starseeker/internal/utils"
)

// GetStatusHandler reports the service as healthy.
func (s *Server) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	var status models.Status
	status.DB.CanConnect = true
	status.DB.HasRequiredTableAccess = true
	status.Version = Version
	writeJSON(w, http.StatusOK, status)
}

// ListGatesHandler returns every gate.
func (s *Server) ListGatesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.network.Gates())
}

// GetGateHandler returns one gate by code.
func (s *Server) GetGateHandler(w http.ResponseWriter, r *http.Request) {
	g, err := s.network.Gate(mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// GetRouteHandler returns the cheapest journey between two gates.
func (s *Server) GetRouteHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	j, err := s.network.CheapestRoute(vars["from"], vars["to"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// GetTransportHandler quotes /transport/{distance}?passengers=N&parking=N.
func (s *Server) GetTransportHandler(w http.ResponseWriter, r *http.Request) {
	distance, err := strconv.ParseFloat(mux.Vars(r)["distance"], 64)
	if err != nil || math.IsNaN(distance) || math.IsInf(distance, 0) || distance <= 0 {
		writeError(w, utils.New(http.StatusBadRequest, "distance must be a positive number"))
		return
	}
	passengers, err := intParam(r, "passengers", 1)
	if err != nil || passengers < 1 {
		writeError(w, utils.New(http.StatusBadRequest, "passengers must be a whole number of at least 1"))
		return
	}
	parking, err := intParam(r, "parking", 0)
	if err != nil || parking < 0 {
		writeError(w, utils.New(http.StatusBadRequest, "parking must be a whole number of days"))
		return
	}
	writeJSON(w, http.StatusOK, Quote(distance, passengers, parking))
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, fmt.Errorf("encode response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var ce *utils.CustomError
	if errors.As(err, &ce) {
		code = ce.Code
		msg = ce.Message
	}
	http.Error(w, msg, code)
}
