// Package store persists a GORM/SQLite-backed audit trail of learned
// bindings and re-MAC (possible spoof/misconfiguration) events. It is
// pure observability: nothing here is ever consulted by the cache's
// state machine, and a record for an IP the cache has since expired
// must never resurrect cache state (spec.md §3).
package store

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/athena-dhcpd/arpd/internal/events"
	"github.com/athena-dhcpd/arpd/internal/metrics"
)

// bindingRow is the GORM model backing the bindings table.
type bindingRow struct {
	IP            string `gorm:"primaryKey"`
	MAC           string `gorm:"not null"`
	PreviousMAC   string
	FirstObserved time.Time `gorm:"not null"`
	LastObserved  time.Time `gorm:"not null"`
	Observations  int       `gorm:"not null"`
	ReMACs        int       `gorm:"not null"`
}

// Record is the persisted history entry for one IP. It is a separate
// type from the live cache entry and carries no state field: there is
// one record per IP, updated in place, and it is never consulted for
// resolution.
type Record struct {
	IP            net.IP
	MAC           net.HardwareAddr
	FirstObserved time.Time
	LastObserved  time.Time
	Observations  int
	ReMACs        int
	PreviousMAC   net.HardwareAddr
}

func (r *Record) fromRow(row bindingRow) {
	r.IP = net.ParseIP(row.IP)
	r.MAC, _ = net.ParseMAC(row.MAC)
	r.FirstObserved = row.FirstObserved
	r.LastObserved = row.LastObserved
	r.Observations = row.Observations
	r.ReMACs = row.ReMACs
	if row.PreviousMAC != "" {
		r.PreviousMAC, _ = net.ParseMAC(row.PreviousMAC)
	}
}

func (r *Record) toRow() bindingRow {
	row := bindingRow{
		IP:            r.IP.String(),
		MAC:           r.MAC.String(),
		FirstObserved: r.FirstObserved,
		LastObserved:  r.LastObserved,
		Observations:  r.Observations,
		ReMACs:        r.ReMACs,
	}
	if r.PreviousMAC != nil {
		row.PreviousMAC = r.PreviousMAC.String()
	}
	return row
}

// Store manages the binding history table with GORM/SQLite persistence
// and an in-memory cache for fast reads.
type Store struct {
	db      *gorm.DB
	records map[string]*Record // IP string -> Record
	mu      sync.RWMutex
	logger  interface {
		Error(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// Open opens (creating if needed) a SQLite database at path and loads
// its binding history into memory. path may be a bare filesystem path
// or a "sqlite://" DSN, matching zerogo's controller database.
func Open(path string, log interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}) (*Store, error) {
	dbPath := strings.TrimPrefix(path, "sqlite://")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening store db %s: %w", dbPath, err)
	}

	if err := db.AutoMigrate(&bindingRow{}); err != nil {
		return nil, fmt.Errorf("migrating bindings table: %w", err)
	}

	s := &Store{
		db:      db,
		records: make(map[string]*Record),
		logger:  log,
	}

	if err := s.loadAll(); err != nil {
		return nil, fmt.Errorf("loading binding history: %w", err)
	}

	return s, nil
}

// loadAll reads all binding rows into memory.
func (s *Store) loadAll() error {
	var rows []bindingRow
	if err := s.db.Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		r := &Record{}
		r.fromRow(row)
		s.records[row.IP] = r
	}
	return nil
}

// persist upserts a record's row.
func (s *Store) persist(ipStr string, r *Record) error {
	row := r.toRow()
	return s.db.Save(&row).Error
}

// recordLearned counts an observation for ip/mac, creating the record
// on first sight. Observations increases monotonically per IP (A9).
func (s *Store) recordLearned(ip net.IP, mac net.HardwareAddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ipStr := ip.String()
	now := time.Now()

	r, exists := s.records[ipStr]
	if !exists {
		r = &Record{
			IP:            append(net.IP(nil), ip...),
			MAC:           append(net.HardwareAddr(nil), mac...),
			FirstObserved: now,
		}
		s.records[ipStr] = r
	}
	r.MAC = append(net.HardwareAddr(nil), mac...)
	r.LastObserved = now
	r.Observations++

	return s.persist(ipStr, r)
}

// recordReMAC updates ip's record with a duplicate-responder event: the IP was
// already stable under oldMAC and a packet now claims newMAC. The
// overwrite itself already happened in the cache; this only audits it.
func (s *Store) recordReMAC(ip net.IP, oldMAC, newMAC net.HardwareAddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ipStr := ip.String()
	now := time.Now()

	r, exists := s.records[ipStr]
	if !exists {
		r = &Record{
			IP:            append(net.IP(nil), ip...),
			FirstObserved: now,
		}
		s.records[ipStr] = r
	}
	r.PreviousMAC = append(net.HardwareAddr(nil), oldMAC...)
	r.MAC = append(net.HardwareAddr(nil), newMAC...)
	r.LastObserved = now
	r.Observations++
	r.ReMACs++

	return s.persist(ipStr, r)
}

// Get returns a copy of the record for ip, or nil if none exists.
func (s *Store) Get(ip net.IP) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[ip.String()]
	if !ok {
		return nil
	}
	rc := *r
	return &rc
}

// Records returns a clone of every record currently held, the same
// clone-on-read discipline the cache's own Snapshot uses (A10).
func (s *Store) Records() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		rc := *r
		out = append(out, &rc)
	}
	return out
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Run consumes events from ch until ctx is cancelled, persisting
// learned bindings and re-MAC observations. It is the only goroutine
// that ever calls recordLearned/recordReMAC, so writes never block a
// resolver call (A9) — the resolver only publishes to the bus.
func (s *Store) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			s.handle(evt)
		}
	}
}

func (s *Store) handle(evt events.Event) {
	switch evt.Type {
	case events.EventEntryLearned:
		if err := s.recordLearned(evt.IP, evt.MAC); err != nil {
			s.logger.Error("writing learned binding to store", "error", err, "ip", evt.IP.String())
			metrics.StoreWriteErrors.Inc()
			return
		}
		metrics.StoreWrites.WithLabelValues("learned").Inc()
	case events.EventEntryReMACed:
		if err := s.recordReMAC(evt.IP, evt.OldMAC, evt.MAC); err != nil {
			s.logger.Error("writing re-mac observation to store", "error", err, "ip", evt.IP.String())
			metrics.StoreWriteErrors.Inc()
			return
		}
		metrics.StoreWrites.WithLabelValues("re_mac").Inc()
	}
}
