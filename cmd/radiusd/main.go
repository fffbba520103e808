// radiusd is a RADIUS server daemon (RFC 2865/2866/5176) built on the
// internal/radius, internal/server and internal/client packages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/radiusgo/radiusd/internal/config"
	radiusmetrics "github.com/radiusgo/radiusd/internal/metrics"
	"github.com/radiusgo/radiusd/internal/radius"
	"github.com/radiusgo/radiusd/internal/server"
	appversion "github.com/radiusgo/radiusd/internal/version"
)

// shutdownTimeout bounds how long the metrics HTTP server is given to
// drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("radiusd starting",
		slog.String("version", appversion.Version),
		slog.String("bind_addr", cfg.Server.BindAddr),
		slog.String("driver", cfg.Server.Driver),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	dict, err := radius.LoadDictionaryFile(cfg.Server.DictionaryPath)
	if err != nil {
		logger.Error("failed to load dictionary", slog.String("error", err.Error()))
		return 1
	}

	reg := prometheus.NewRegistry()
	collector := radiusmetrics.NewCollector(reg)

	srv, err := buildServer(cfg, dict, collector, logger)
	if err != nil {
		logger.Error("failed to build server", slog.String("error", err.Error()))
		return 1
	}
	defer srv.Close()

	if err := runDaemon(cfg, srv, reg, logger, *configPath, logLevel); err != nil {
		logger.Error("radiusd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("radiusd stopped")
	return 0
}

// buildServer assembles the Server from configuration, wiring three demo
// handlers that build canned reply attributes straight from the loaded
// dictionary. A real deployment substitutes its own handlers against the
// same Handler contract described in internal/server's doc comments.
func buildServer(cfg *config.Config, dict *radius.Dictionary, collector *radiusmetrics.Collector, logger *slog.Logger) (*server.Server, error) {
	hosts := make(server.HostSecrets, len(cfg.Server.AllowedHosts))
	for _, h := range cfg.Server.AllowedHosts {
		secret := cfg.Server.Secret
		if override, ok := cfg.Server.HostSecrets[h]; ok {
			secret = override
		}
		hosts[h] = []byte(secret)
	}

	return server.NewBuilder().
		WithDictionary(dict).
		WithBindAddr(cfg.Server.BindAddr).
		WithHostSecrets(hosts).
		WithLogger(logger).
		WithMetrics(collector).
		AddProtocolPort(radius.MsgAuth, cfg.Server.AuthPort).
		AddProtocolPort(radius.MsgAcct, cfg.Server.AcctPort).
		AddProtocolPort(radius.MsgCoA, cfg.Server.CoAPort).
		AddProtocolHandler(radius.MsgAuth, authHandler).
		AddProtocolHandler(radius.MsgAcct, acctHandler).
		AddProtocolHandler(radius.MsgCoA, coaHandler).
		Build()
}

func authHandler(_ context.Context, req *server.Request) ([]byte, error) {
	pkt, err := radius.ParsePacket(req.Raw)
	if err != nil {
		return nil, err
	}

	ipv4, err := radius.IPv4StringToBytes("192.168.0.1")
	if err != nil {
		return nil, err
	}
	ipv6, err := radius.IPv6StringToBytes("fc66::1/64")
	if err != nil {
		return nil, err
	}

	attrs, err := buildAttrs(req.Dict,
		kv{"Service-Type", radius.IntegerToBytes(2)},
		kv{"Framed-IP-Address", ipv4},
		kv{"Framed-IPv6-Prefix", ipv6},
	)
	if err != nil {
		return nil, err
	}

	return req.Reply(radius.CodeAccessAccept, pkt.Identifier, attrs)
}

func acctHandler(_ context.Context, req *server.Request) ([]byte, error) {
	pkt, err := radius.ParsePacket(req.Raw)
	if err != nil {
		return nil, err
	}

	start, err := req.Dict.ValueByName("Acct-Status-Type", "Start")
	if err != nil {
		return nil, err
	}
	attrs, err := buildAttrs(req.Dict,
		kv{"Acct-Status-Type", radius.IntegerToBytes(start)},
	)
	if err != nil {
		return nil, err
	}

	return req.Reply(radius.CodeAccountingResponse, pkt.Identifier, attrs)
}

func coaHandler(_ context.Context, req *server.Request) ([]byte, error) {
	pkt, err := radius.ParsePacket(req.Raw)
	if err != nil {
		return nil, err
	}

	attrs, err := buildAttrs(req.Dict, kv{"State", []byte("testing")})
	if err != nil {
		return nil, err
	}

	return req.Reply(radius.CodeCoAACK, pkt.Identifier, attrs)
}

type kv struct {
	name  string
	value []byte
}

func buildAttrs(dict *radius.Dictionary, pairs ...kv) ([]*radius.Attribute, error) {
	attrs := make([]*radius.Attribute, 0, len(pairs))
	for _, p := range pairs {
		a, err := radius.CreateAttributeByName(dict, p.name, p.value)
		if err != nil {
			return nil, fmt.Errorf("build attribute %s: %w", p.name, err)
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

// runDaemon starts the UDP event loop (driver selected by cfg.Server.Driver),
// the metrics HTTP server, the systemd watchdog, and the SIGHUP log-level
// reload goroutine, all under a signal-aware errgroup context.
func runDaemon(cfg *config.Config, srv *server.Server, reg *prometheus.Registry, logger *slog.Logger, configPath string, logLevel *slog.LevelVar) error {
	metricsSrv := newMetricsServer(cfg.Metrics, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("radius event loop starting", slog.String("driver", cfg.Server.Driver))
		if cfg.Server.Driver == "sync" {
			return srv.RunSync(gCtx)
		}
		return srv.RunAsync(gCtx)
	})

	g.Go(func() error {
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr), slog.String("path", cfg.Metrics.Path))
		return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	g.Go(func() error {
		return runWatchdog(gCtx, logger)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(gCtx, sigHUP, configPath, logLevel, logger)
		return nil
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, logger, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}
	return nil
}

func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog", slog.String("error", err.Error()))
		return nil
	}
	if interval == 0 {
		return nil
	}

	tick := interval / 2
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				logger.Warn("failed to send watchdog keepalive", slog.String("error", err.Error()))
			}
		}
	}
}

func handleSIGHUP(ctx context.Context, sigHUP <-chan os.Signal, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading log level")
			newCfg, err := loadConfig(configPath)
			if err != nil {
				logger.Error("failed to reload configuration, keeping current settings", slog.String("error", err.Error()))
				continue
			}
			old := logLevel.Level()
			newLevel := config.ParseLogLevel(newCfg.Log.Level)
			logLevel.Set(newLevel)
			logger.Info("configuration reloaded", slog.String("old_log_level", old.String()), slog.String("new_log_level", newLevel.String()))
		}
	}
}

func gracefulShutdown(ctx context.Context, logger *slog.Logger, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
