package geolib

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// HTTPHandlerOpts defines optional parts of HTTP API.
type HTTPHandlerOpts struct {
	// CORSOrigins is a list of origins which are allowed to make
	// cross-domain requests. Empty list means any origin.
	CORSOrigins []string

	// AdminMiddleware wraps endpoints which change a state of
	// resolver. Usually this is some authentication.
	AdminMiddleware func(http.Handler) http.Handler
}

type httpHandler struct {
	resolver *Resolver
}

func (h httpHandler) encodeJSON(w http.ResponseWriter, data interface{}) {
	encoder := json.NewEncoder(w)

	w.Header().Add("Content-Type", "application/json")
	encoder.SetEscapeHTML(false)
	encoder.Encode(data) // nolint: errcheck
}

func (h httpHandler) sendError(w http.ResponseWriter, err error, message string, statusCode int) {
	e := &httpError{
		message:    message,
		statusCode: statusCode,
		err:        err,
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	json.NewEncoder(w).Encode(e) // nolint: errcheck
}

// NewHTTPHandler returns an HTTP API of the resolver.
//
//    GET    /             - resolve an address of the caller
//    GET    /resolve/{ip} - resolve a single address
//    POST   /resolve      - resolve a batch {"ips": [...]}
//    GET    /source       - coordinate of the service
//    GET    /stats        - resolver counters
//    DELETE /cache        - drop all cached results (admin)
//    POST   /circuit/reset - close a circuit breaker (admin)
func NewHTTPHandler(resolver *Resolver, opts HTTPHandlerOpts) http.Handler {
	handler := httpHandler{
		resolver: resolver,
	}
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         900,
	}).Handler)

	router.Get("/", handler.handleGetSelf)
	router.Get("/resolve/{ip}", handler.handleGetIP)
	router.Post("/resolve", handler.handlePost)
	router.Get("/source", handler.handleGetSource)
	router.Get("/stats", handler.handleGetStats)

	router.Group(func(r chi.Router) {
		if opts.AdminMiddleware != nil {
			r.Use(opts.AdminMiddleware)
		}

		r.Delete("/cache", handler.handleDeleteCache)
		r.Post("/circuit/reset", handler.handleResetCircuit)
	})

	return router
}
