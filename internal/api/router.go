package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/watermark"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

// corsMiddleware adds CORS headers to each response
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with a UUID and logs it once served.
func requestLogger(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			logger.Info().
				Str("request_id", id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

// NewRouter creates and configures a new application router.
func NewRouter(fonts *watermark.FontResolver, opts imaging.EncodeOptions, logger zerolog.Logger) *mux.Router {
	router := mux.NewRouter()

	router.Use(requestLogger(logger))
	router.Use(corsMiddleware)

	// Create a subrouter for API versioning
	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	h := NewHandlers(fonts, opts, logger)

	apiV1.HandleFunc("/watermark", h.HandleWatermark).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/exif", h.HandleExif).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/anchors", h.HandleAnchors).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}
