package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/duluk/clima/pkg/weather"
)

type Server struct {
	provider weather.Provider
	logger   *slog.Logger
}

func New(provider weather.Provider, logger *slog.Logger) *Server {
	return &Server{provider: provider, logger: logger}
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			s.logger.Warn("failed to write health response", "error", err)
		}
	})
	r.Get("/weather/{city}", s.getWeather)
	r.Get("/weather/", s.getWeather)
	return r
}

func (s *Server) getWeather(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")

	res, err := weather.Lookup(r.Context(), s.provider, city)
	if err != nil {
		f := weather.Classify(err)
		s.logger.Info("weather lookup failed",
			"request_id", r.Header.Get(RequestIDHeader),
			"city", city,
			"kind", f.Kind,
			"cause", f.Err)
		s.writeJSON(w, statusFor(f.Kind), errorResponse{Kind: f.Kind.String(), Message: f.Message})
		return
	}

	s.logger.Info("weather lookup",
		"request_id", r.Header.Get(RequestIDHeader),
		"city", res.City,
		"temperature", res.Temperature)
	s.writeJSON(w, http.StatusOK, res)
}

func statusFor(k weather.Kind) int {
	switch k {
	case weather.EmptyInput:
		return http.StatusBadRequest
	case weather.NotFound:
		return http.StatusNotFound
	case weather.UnknownError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "status", status, "error", err)
	}
}
