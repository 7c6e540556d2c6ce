// Package api exposes a small read-only and administrative HTTP
// surface over the resolver: health, a cache snapshot, an on-demand
// liveness probe, a binding-history export, and a websocket event
// stream. Nothing here is consulted by the resolver's own invariants —
// it is a read-only view plus one admin action (verify), the same
// boundary the teacher draws between its virtual network core and its
// controller's gin REST API.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/athena-dhcpd/arpd/internal/arp"
	"github.com/athena-dhcpd/arpd/internal/events"
	"github.com/athena-dhcpd/arpd/internal/macvendor"
	"github.com/athena-dhcpd/arpd/internal/metrics"
	"github.com/athena-dhcpd/arpd/internal/rdns"
	"github.com/athena-dhcpd/arpd/internal/store"
	"github.com/athena-dhcpd/arpd/internal/verify"
)

// Server wires the resolver and its supporting packages to a gin
// engine. Fields are read-only after construction; handlers are safe
// for concurrent use, same as gin.Engine always requires.
type Server struct {
	resolver  *arp.Resolver
	store     *store.Store
	prober    *verify.Prober
	macdb     *macvendor.DB
	rdns      *rdns.Resolver
	bus       *events.Bus
	authToken string
	logger    *slog.Logger
	engine    *gin.Engine
}

// Option configures an optional Server dependency.
type Option func(*Server)

// WithStore attaches the binding-history store to enable /audit.
func WithStore(s *store.Store) Option {
	return func(srv *Server) { srv.store = s }
}

// WithProber attaches the ICMP liveness prober to enable /verify/:ip.
func WithProber(p *verify.Prober) Option {
	return func(srv *Server) { srv.prober = p }
}

// WithMACVendorDB attaches the OUI vendor database to enrich /cache.
func WithMACVendorDB(db *macvendor.DB) Option {
	return func(srv *Server) { srv.macdb = db }
}

// WithRDNS attaches the reverse-DNS enrichment resolver.
func WithRDNS(r *rdns.Resolver) Option {
	return func(srv *Server) { srv.rdns = r }
}

// WithEventBus attaches the event bus to enable the /events websocket stream.
func WithEventBus(bus *events.Bus) Option {
	return func(srv *Server) { srv.bus = bus }
}

// WithAuthToken requires a matching bearer JWT on admin endpoints. An
// empty token disables auth entirely.
func WithAuthToken(token string) Option {
	return func(srv *Server) { srv.authToken = token }
}

// NewServer constructs a Server bound to resolver and builds its gin
// engine.
func NewServer(resolver *arp.Resolver, logger *slog.Logger, opts ...Option) *Server {
	srv := &Server{resolver: resolver, logger: logger}
	for _, opt := range opts {
		opt(srv)
	}
	srv.engine = srv.buildEngine()
	return srv
}

// Handler returns the complete routed http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestMetricsMiddleware())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/cache", s.handleCache)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/verify/:ip", s.requireAuth(), s.handleVerify)
	r.GET("/audit", s.requireAuth(), s.handleAudit)
	r.GET("/events", s.requireAuth(), s.handleEvents)

	return r
}

func (s *Server) requestMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.APIRequests.WithLabelValues(c.Request.Method, c.FullPath(), http.StatusText(c.Writer.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(time.Since(start).Seconds())
	}
}

// requireAuth validates a bearer JWT against the configured signing
// token. An empty configured token disables auth entirely — useful
// for local/dev use, matching zerogo's optional auth_token config.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authToken == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeError(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		raw := header[len(prefix):]
		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return []byte(s.authToken), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "invalid bearer token")
			c.Abort()
			return
		}

		c.Next()
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
