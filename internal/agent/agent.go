package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/smartdoctor/agent/internal/bridge"
	"github.com/smartdoctor/agent/internal/client"
	"github.com/smartdoctor/agent/internal/config"
	"github.com/smartdoctor/agent/internal/metrics"
	"github.com/smartdoctor/agent/internal/page"
	"github.com/smartdoctor/agent/pkg/deviceinfo"
)

const (
	agentVersion = "0.1.0"

	// Grace period for in-flight bridge calls on shutdown
	shutdownTimeout = 5 * time.Second
)

// Version returns the agent version
func Version() string {
	return agentVersion
}

// NewCollector builds a device collector from the configuration
func NewCollector(cfg *config.Config, log zerolog.Logger) *deviceinfo.Collector {
	return deviceinfo.NewCollector(
		deviceinfo.WithRunner(deviceinfo.ExecRunner{
			Timeout: time.Duration(cfg.CommandTimeoutSeconds) * time.Second,
		}),
		deviceinfo.WithDataDir(cfg.DataDir),
		deviceinfo.WithInstallationID(deviceinfo.NewInstallationID(cfg.Paths().InstallationID)),
		deviceinfo.WithLogger(log),
		deviceinfo.WithProbeHook(metrics.ObserveProbe),
	)
}

// PageURL returns the page the host loads. The served index.html is used
// when an assets dir is configured, else the configured default page.
func PageURL(cfg *config.Config, addr, deepLink string) string {
	base := cfg.DefaultPageURL
	if base == "" {
		base = page.DefaultURL
	}
	if cfg.AssetsDir != "" {
		base = "http://" + addr + "/index.html"
	}

	return page.ResolveURL(base, deepLink)
}

// Run starts the bridge in the foreground until SIGINT or SIGTERM
func Run(cfg *config.Config, deepLink string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, cfg, deepLink, nil)
}

// Serve runs the bridge until ctx is done. If ready is non-nil it receives
// the bound address once the listener is up.
func Serve(ctx context.Context, cfg *config.Config, deepLink string, ready chan<- string) error {
	log := zlog.Logger.With().Str("component", "host").Logger()

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	collector := NewCollector(cfg, log)
	router := bridge.NewRouter(bridge.RouterConfig{
		Bridge:    bridge.New(collector),
		AssetsDir: cfg.AssetsDir,
		Metrics:   metrics.Handler(reg),
		Logger:    log,
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	addr := ln.Addr().String()

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("version", agentVersion).
		Str("addr", addr).
		Str("page_url", PageURL(cfg, addr, deepLink)).
		Msg("bridge listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	if ready != nil {
		ready <- addr
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down bridge: %w", err)
		}
		log.Info().Msg("bridge stopped")
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge server failed: %w", err)
	}
}

// Status displays the current agent status
func Status(cfg *config.Config, w io.Writer) error {
	fmt.Fprintln(w, "SmartDoctor Agent Status")
	fmt.Fprintln(w, "========================")
	fmt.Fprintf(w, "Version: %s\n", agentVersion)
	fmt.Fprintf(w, "Config Dir: %s\n", cfg.ConfigDir)
	fmt.Fprintf(w, "Listen Addr: %s\n", cfg.ListenAddr)
	fmt.Fprintf(w, "Data Dir: %s\n", cfg.DataDir)
	fmt.Fprintf(w, "Page URL: %s\n", PageURL(cfg, cfg.ListenAddr, ""))

	id, err := deviceinfo.NewInstallationID(cfg.Paths().InstallationID).Stored()
	switch {
	case err == nil:
		fmt.Fprintf(w, "Installation ID: %s\n", id)
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(w, "Installation ID: NOT ASSIGNED")
	default:
		fmt.Fprintf(w, "Installation ID: UNAVAILABLE (%v)\n", err)
	}

	// Try to reach a running bridge
	fmt.Fprintln(w)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	health, err := client.New("http://"+cfg.ListenAddr, 2*time.Second).Health(ctx, "/healthz")
	if err != nil {
		fmt.Fprintln(w, "Bridge: NOT RUNNING")
		return nil
	}

	fmt.Fprintf(w, "Bridge: %s (%s)\n", health.Status, health.Server)
	return nil
}

// Check reports whether the diagnosis server at baseURL holds a snapshot
// for sessionID, printing it when present
func Check(ctx context.Context, cfg *config.Config, baseURL, sessionID string, w io.Writer) error {
	timeout := time.Duration(cfg.SubmitTimeoutSeconds) * time.Second
	result, err := client.New(baseURL, timeout).CheckPhoneData(ctx, sessionID)
	if err != nil {
		return err
	}

	if !result.Available {
		fmt.Fprintf(w, "Session %s: no phone data yet\n", sessionID)
		return nil
	}

	fmt.Fprintf(w, "Session %s: phone data available\n", sessionID)
	if len(result.Data) > 0 {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, result.Data, "", "  "); err != nil {
			return fmt.Errorf("failed to format phone data: %w", err)
		}
		fmt.Fprintln(w, pretty.String())
	}
	return nil
}
