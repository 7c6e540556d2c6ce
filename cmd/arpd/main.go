// Command arpd resolves IPv4 addresses to link-layer addresses over
// Ethernet via ARP (RFC 826), maintaining a fixed-size cache with
// on-demand resolution, gratuitous announcement, and an admin HTTP
// API for inspection and on-demand liveness verification.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athena-dhcpd/arpd/internal/api"
	"github.com/athena-dhcpd/arpd/internal/arp"
	"github.com/athena-dhcpd/arpd/internal/config"
	"github.com/athena-dhcpd/arpd/internal/events"
	"github.com/athena-dhcpd/arpd/internal/link"
	"github.com/athena-dhcpd/arpd/internal/logging"
	"github.com/athena-dhcpd/arpd/internal/macvendor"
	"github.com/athena-dhcpd/arpd/internal/rdns"
	"github.com/athena-dhcpd/arpd/internal/store"
	"github.com/athena-dhcpd/arpd/internal/verify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "/etc/arpd/arpd.yaml", "path to arpd.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "arpd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(cfg.Log.Level, os.Stderr)

	ip, ipNet, err := config.BindIP(cfg.Interface.Name)
	if err != nil {
		return fmt.Errorf("resolving bind address: %w", err)
	}

	linkSocket, err := link.Open(cfg.Interface.Name, logger)
	if err != nil {
		return fmt.Errorf("opening link socket: %w", err)
	}
	defer linkSocket.Close()

	iface := &arp.Interface{
		Name:       cfg.Interface.Name,
		IP:         ip,
		Netmask:    ipNet.Mask,
		Gateway:    cfg.GatewayIP(),
		HWAddr:     linkSocket.HWAddr(),
		LinkOutput: linkSocket.Output,
	}

	cache := arp.NewCache(cfg.Cache.Size, uint8(cfg.Cache.MaxAgeTicks), uint8(cfg.Cache.MaxPendingTicks), cfg.Cache.Queueing)

	bus := events.NewBus(2000, logger)
	go bus.Start()
	defer bus.Stop()

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	storeCh := bus.Subscribe(2000)
	defer bus.Unsubscribe(storeCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go st.Run(ctx, storeCh)

	resolver := arp.NewResolver(iface, cache, bus, nil, logger)

	prober, err := verify.NewProber(logger)
	if err != nil {
		return fmt.Errorf("opening verify prober: %w", err)
	}
	defer prober.Close()

	macdb := macvendor.NewDB(logger)
	if data, err := os.ReadFile("/usr/share/arpd/macdb.json"); err == nil {
		if err := macdb.Load(data); err != nil {
			logger.Warn("failed to parse mac vendor database", "error", err)
		}
	}

	apiOpts := []api.Option{
		api.WithStore(st),
		api.WithProber(prober),
		api.WithMACVendorDB(macdb),
		api.WithEventBus(bus),
		api.WithAuthToken(cfg.API.AuthToken),
	}
	if cfg.RDNS.Server != "" {
		apiOpts = append(apiOpts, api.WithRDNS(rdns.New(cfg.RDNS.Server, logger)))
	}
	apiServer := api.NewServer(resolver, logger, apiOpts...)

	apiHTTP := &http.Server{Addr: cfg.API.Listen, Handler: apiServer.Handler()}
	go func() {
		logger.Info("admin API listening", "addr", cfg.API.Listen)
		if err := apiHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin API server failed", "error", err)
		}
	}()
	defer apiHTTP.Shutdown(context.Background())

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsHTTP := &http.Server{Addr: cfg.Metrics.Listen, Handler: metricsMux}
	go func() {
		logger.Info("metrics listening", "addr", cfg.Metrics.Listen)
		if err := metricsHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer metricsHTTP.Shutdown(context.Background())

	if cfg.Announce.OnStart {
		resolver.Announce()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	var announceTicker *time.Ticker
	var announceCh <-chan time.Time
	if interval := cfg.AnnounceInterval(); interval > 0 {
		announceTicker = time.NewTicker(interval)
		announceCh = announceTicker.C
		defer announceTicker.Stop()
	}

	logger.Info("arpd started", "interface", cfg.Interface.Name, "ip", ip.String())

	for {
		select {
		case <-ticker.C:
			resolver.Tick()
		case <-announceCh:
			resolver.Announce()
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			return nil
		}
	}
}
