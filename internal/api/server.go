// Package api exposes the dashboard over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jask/eventdesk/internal/service"
)

// maxRequestBodySize limits JSON request bodies.
const maxRequestBodySize = 1 << 20

const (
	userHeader = "X-User-ID"
	userCookie = "eventdesk_uid"
)

// Server routes HTTP requests to the services. Gatherer, when set, is served at /metrics.
type Server struct {
	Events   *service.EventService
	Tickets  *service.TicketService
	Layout   *service.LayoutService
	Designer *service.DesignerService
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewServer registers request metrics on reg when it is non-nil.
func NewServer(reg prometheus.Registerer) *Server {
	s := &Server{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventdesk_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Log: zerolog.Nop(),
	}
	if reg != nil {
		reg.MustRegister(s.requests, s.latency)
	}
	return s
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterHTTPHandlers(mux)
	return identify(s.observe(mux))
}

// RegisterHTTPHandlers registers:
//
//	GET    /healthz
//	GET    /metrics
//	GET    /api/events
//	POST   /api/events
//	GET    /api/events/{id}
//	PATCH  /api/events/{id}
//	DELETE /api/events/{id}
//	GET    /api/events/{id}/tickets
//	POST   /api/events/{id}/tickets
//	POST   /api/events/{id}/tickets/reorder
//	PATCH  /api/events/{id}/tickets/{ticketID}
//	DELETE /api/events/{id}/tickets/{ticketID}
//	POST   /api/layout-suggestions
//	POST   /api/events/{id}/designer
//	DELETE /api/events/{id}/designer?container=
//	GET    /api/designer/{container}
//	POST   /api/designer/{container}/objects/{label}
//	DELETE /api/designer/{container}/objects/{label}
func (s *Server) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("PATCH /api/events/{id}", s.handleUpdateEvent)
	mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	mux.HandleFunc("GET /api/events/{id}/tickets", s.handleListTickets)
	mux.HandleFunc("POST /api/events/{id}/tickets", s.handleCreateTicket)
	mux.HandleFunc("POST /api/events/{id}/tickets/reorder", s.handleReorderTickets)
	mux.HandleFunc("PATCH /api/events/{id}/tickets/{ticketID}", s.handleUpdateTicket)
	mux.HandleFunc("DELETE /api/events/{id}/tickets/{ticketID}", s.handleDeleteTicket)

	mux.HandleFunc("POST /api/layout-suggestions", s.handleSuggestLayout)

	mux.HandleFunc("POST /api/events/{id}/designer", s.handleOpenDesigner)
	mux.HandleFunc("DELETE /api/events/{id}/designer", s.handleCloseDesigner)
	mux.HandleFunc("GET /api/designer/{container}", s.handleDesignerStatus)
	mux.HandleFunc("POST /api/designer/{container}/objects/{label}", s.handleSelectObject)
	mux.HandleFunc("DELETE /api/designer/{container}/objects/{label}", s.handleDeselectObject)
}

type ownerKey struct{}

// identify resolves the caller: X-User-ID, then the uid cookie, else a fresh
// anonymous id issued as a cookie.
func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(userHeader)
		if owner == "" {
			if c, err := r.Cookie(userCookie); err == nil && c.Value != "" {
				owner = c.Value
			}
		}
		if owner == "" {
			owner = "anon-" + uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     userCookie,
				Value:    owner,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		if s.requests != nil {
			s.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
			s.latency.WithLabelValues(route).Observe(elapsed.Seconds())
		}
		s.Log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.code).
			Dur("elapsed", elapsed).
			Msg("http request")
	})
}
