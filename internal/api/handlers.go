package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/athena-dhcpd/arpd/internal/audit"
	"github.com/athena-dhcpd/arpd/internal/events"
	"github.com/athena-dhcpd/arpd/internal/metrics"
)

// cacheEntry is the JSON view of one arp.Snapshot, enriched with an
// OUI vendor name when a macvendor.DB is attached.
type cacheEntry struct {
	IP       string `json:"ip"`
	MAC      string `json:"mac"`
	State    string `json:"state"`
	Age      uint8  `json:"age"`
	Vendor   string `json:"vendor,omitempty"`
	Hostname string `json:"hostname,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCache(c *gin.Context) {
	snaps := s.resolver.Cache().Snapshot()

	out := make([]cacheEntry, 0, len(snaps))
	for _, snap := range snaps {
		entry := cacheEntry{
			IP:    snap.IP.String(),
			MAC:   snap.MAC.String(),
			State: snap.State,
			Age:   snap.Age,
		}
		if s.macdb != nil {
			entry.Vendor = s.macdb.Lookup(snap.MAC.String())
		}
		if s.rdns != nil && snap.State == "stable" {
			if name, ok := s.rdns.Cached(snap.IP); ok {
				entry.Hostname = name
			} else {
				s.rdns.EnrichAsync(snap.IP)
			}
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, out)
}

// handleVerify sends an on-demand ICMP probe to confirm a resolved
// peer is still alive. Never runs on the resolver's own path (§5's
// suspension-free contract) — this handler's goroutine owns the
// blocking wait, not the resolver.
func (s *Server) handleVerify(c *gin.Context) {
	if s.prober == nil {
		writeError(c, http.StatusServiceUnavailable, "liveness verification is not configured")
		return
	}

	ipStr := c.Param("ip")
	ip := net.ParseIP(ipStr)
	if ip == nil {
		writeError(c, http.StatusBadRequest, "invalid IP address")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	alive, err := s.prober.Probe(ctx, ip)
	if err != nil {
		writeError(c, http.StatusBadGateway, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"ip": ipStr, "alive": alive})
}

// handleAudit exports the binding-history store as JSON, JSONL, or
// CSV depending on the "format" query parameter (default: json).
func (s *Server) handleAudit(c *gin.Context) {
	if s.store == nil {
		writeError(c, http.StatusServiceUnavailable, "binding history is not configured")
		return
	}

	params := audit.QueryParams{IP: c.Query("ip")}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			params.Limit = limit
		}
	}

	records := audit.Export(s.store, params)

	switch c.Query("format") {
	case "csv":
		c.Header("Content-Type", "text/csv")
		if err := audit.WriteCSV(c.Writer, records); err != nil {
			s.logger.Error("writing CSV audit export", "error", err)
		}
	case "jsonl":
		c.Header("Content-Type", "application/x-ndjson")
		if err := audit.WriteJSONL(c.Writer, records); err != nil {
			s.logger.Error("writing JSONL audit export", "error", err)
		}
	default:
		c.JSON(http.StatusOK, records)
	}
}

// handleEvents upgrades to a websocket and streams the event bus until
// the client disconnects, matching zerogo's agent connection handler
// in internal/controller/ws.go.
func (s *Server) handleEvents(c *gin.Context) {
	if s.bus == nil {
		writeError(c, http.StatusServiceUnavailable, "event stream is not configured")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("upgrading event stream connection", "error", err)
		return
	}
	defer conn.Close()

	ch := s.bus.Subscribe(64)
	defer s.bus.Unsubscribe(ch)

	metrics.SSEConnections.Inc()
	defer metrics.SSEConnections.Dec()

	// Drain and discard client reads so the connection's read deadline
	// is serviced and close frames are observed, the same pattern
	// zerogo's ws.go uses for its otherwise-write-only agent socket.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, err := evt.MarshalJSON()
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}
