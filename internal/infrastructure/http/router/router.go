package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"offertrack/internal/interfaces/http/handler"
)

// Router holds all HTTP handlers
type Router struct {
	mux             *http.ServeMux
	trackHandler    *handler.TrackHandler
	postbackHandler *handler.PostbackHandler
	healthHandler   *handler.HealthHandler
	registry        *prometheus.Registry
}

// NewRouter creates a new router with all routes configured
func NewRouter(
	trackHandler *handler.TrackHandler,
	postbackHandler *handler.PostbackHandler,
	healthHandler *handler.HealthHandler,
	registry *prometheus.Registry,
) *Router {
	r := &Router{
		mux:             http.NewServeMux(),
		trackHandler:    trackHandler,
		postbackHandler: postbackHandler,
		healthHandler:   healthHandler,
		registry:        registry,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// Health endpoints
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.HandleFunc("GET /ready", r.healthHandler.Ready)
	r.mux.HandleFunc("GET /live", r.healthHandler.Live)

	// Metrics
	r.mux.Handle("GET /metrics", handler.MetricsHandler(r.registry))

	// Tracking ingress
	r.mux.HandleFunc("POST /track/click", r.trackHandler.TrackClick)
	r.mux.HandleFunc("POST /track/conversion", r.trackHandler.TrackConversion)

	// Upstream partner postback ingress (partners send GET or POST)
	r.mux.HandleFunc("GET /postback/{partner_key}", r.postbackHandler.Receive)
	r.mux.HandleFunc("POST /postback/{partner_key}", r.postbackHandler.Receive)

	// Operator reads
	r.mux.HandleFunc("GET /api/v1/clicks/{id}", r.trackHandler.GetClick)
	r.mux.HandleFunc("GET /api/v1/conversions/{id}", r.trackHandler.GetConversion)
	r.mux.HandleFunc("GET /api/v1/conversions/{id}/postbacks", r.postbackHandler.ListJobsByConversion)
	r.mux.HandleFunc("GET /api/v1/postbacks/{id}", r.postbackHandler.GetJob)
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r
}
