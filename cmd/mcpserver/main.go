// Command mcpserver is the composition root: it loads configuration,
// connects every storage adapter, wires the tool registry and
// dispatcher, and serves stdio, HTTP, and WebSocket concurrently until
// SIGINT/SIGTERM or stdin EOF, per §4.I/§4.J.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mcpenterprise/server/internal/ai"
	"github.com/mcpenterprise/server/internal/auth"
	"github.com/mcpenterprise/server/internal/cache"
	"github.com/mcpenterprise/server/internal/config"
	"github.com/mcpenterprise/server/internal/firewall"
	"github.com/mcpenterprise/server/internal/logging"
	"github.com/mcpenterprise/server/internal/memory"
	"github.com/mcpenterprise/server/internal/pool"
	"github.com/mcpenterprise/server/internal/pubsub"
	"github.com/mcpenterprise/server/internal/ratelimit"
	"github.com/mcpenterprise/server/internal/registry"
	"github.com/mcpenterprise/server/internal/server"
	"github.com/mcpenterprise/server/internal/stats"
	"github.com/mcpenterprise/server/internal/storage/embedding"
	"github.com/mcpenterprise/server/internal/storage/kv"
	"github.com/mcpenterprise/server/internal/storage/relational"
	"github.com/mcpenterprise/server/internal/storage/vector"
	"github.com/mcpenterprise/server/internal/tools"
	"github.com/mcpenterprise/server/internal/transport"
)

func main() {
	os.Exit(run())
}

// run wires the server and blocks until shutdown, returning the
// process exit code of §6 (0 clean, 1 fatal startup error, 2 unhandled
// panic).
func run() (exitCode int) {
	configPath := flag.String("config", "", "Path to a YAML/JSON/TOML config file (optional)")
	addr := flag.String("addr", "", "Override api.host:port, e.g. 0.0.0.0:8443")
	logLevel := flag.String("log-level", "", "Override logging.level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Path to a rotating log file in addition to stdout")
	devMode := flag.Bool("dev", false, "Development mode: verbose logging, binds to loopback")
	jwtSecret := flag.String("jwt-secret", "", "HS256 secret enabling the JWT bearer authenticator")
	jwtIssuer := flag.String("jwt-issuer", "mcpenterprise", "Required issuer claim for JWT authentication")
	disableStdio := flag.Bool("disable-stdio", false, "Disable the stdio transport (HTTP/WebSocket only)")
	flag.Parse()

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "mcpserver: unhandled panic: %v\n", r)
			exitCode = 2
		}
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcpserver: config: %v\n", err)
		return 1
	}
	applyFlagOverrides(cfg, *addr, *logLevel, *devMode)

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.FilePath = *logFile
	if logCfg.FilePath == "" {
		logCfg.FilePath = cfg.Logging.File
	}
	logger := logging.New(logCfg)
	logging.SetGlobal(logger)

	if *devMode {
		logger.Warn("development mode enabled: verbose logging, relaxed defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relStore, err := relational.New(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("fatal: relational store unreachable", "error", err)
		return 1
	}
	defer relStore.Close()
	if err := relStore.Migrate(ctx); err != nil {
		logger.Error("fatal: schema migration failed", "error", err)
		return 1
	}

	kvStore, err := kv.New(ctx, cfg.KVCache)
	if err != nil {
		logger.Warn("kv cache unreachable, degrading short-tier memory and L2 cache", "error", err)
		kvStore = nil
	} else {
		defer kvStore.Close()
	}

	vectorStore, err := vector.New(ctx, cfg.VectorIndex)
	if err != nil {
		logger.Warn("vector index unreachable, degrading mid-tier memory recall", "error", err)
		vectorStore = nil
	}

	embedder := embedding.New(cfg.EmbeddingModel)

	var cacheL2 cache.L2
	if kvStore != nil {
		cacheL2 = kvStore
	}
	appCache, err := cache.New(cfg.Cache, cacheL2, logger)
	if err != nil {
		logger.Error("fatal: cache construction failed", "error", err)
		return 1
	}

	bus := pubsub.New()
	defer bus.Close()
	busAdapter := server.NewBusAdapter(bus)

	var memKV memory.KV
	if kvStore != nil {
		memKV = kvStore
	}
	var memVector memory.VectorIndex
	if vectorStore != nil {
		memVector = vectorStore
	}
	memStore := memory.New(memKV, memVector, embedder, &memoryRelationalAdapter{store: relStore}, bus)

	fw := firewall.New(&firewallRelationalAdapter{store: relStore}, bus)
	if err := fw.Load(ctx); err != nil {
		logger.Warn("error firewall: failed to preload patterns", "error", err)
	}

	poolResizer := relational.NewPoolResizer(cfg.Database, relStore, logger)
	poolCfg := pool.Config{
		Min:               cfg.Pool.Min,
		Max:               cfg.Pool.Max,
		MinOverflow:       cfg.Pool.MinOverflow,
		MaxOverflow:       cfg.Pool.MaxOverflow,
		SampleInterval:    cfg.Pool.SampleInterval,
		Cooldown:          cfg.Pool.Cooldown,
		HighUtilThreshold: cfg.Pool.HighUtilThreshold,
		LowUtilThreshold:  cfg.Pool.LowUtilThreshold,
		ResizeStepUp:      cfg.Pool.ResizeStepUp,
		ResizeStepDown:    cfg.Pool.ResizeStepDown,
		LeakThreshold:     cfg.Pool.LeakThreshold,
	}.WithDefaults()
	poolController := pool.New(poolCfg, poolResizer, poolResizer, bus, logger)

	reg := registry.New()
	tools.RegisterMemoryTools(reg, memStore)
	tools.RegisterFirewallTools(reg, fw)
	tools.RegisterProjectTools(reg, relStore)
	tools.RegisterCodeTools(reg, relStore, nil) // no in-process source analyzer (Non-goal)
	tools.RegisterQualityTools(reg, relStore)

	var aiIface tools.AIClient
	if cfg.AI.APIKey != "" {
		aiClient, err := ai.New(cfg.AI.APIKey)
		if err != nil {
			logger.Warn("ai-assisted tool group disabled", "error", err)
		} else {
			aiIface = aiClient
		}
	}
	tools.RegisterAITools(reg, aiIface, memStore)

	dispatcher := registry.NewDispatcher(reg, 32, logger)
	collector := stats.New()
	statsDispatcher := server.NewStatsDispatcher(dispatcher, collector)

	srv := server.New(statsDispatcher, server.NewRegistryToolLister(reg), cfg.API.MaxConnections, logger)
	srv.RegisterBackgroundTask(server.SystemStatsTask(bus, "system_stats", collector, srv.Admission()))
	srv.RegisterBackgroundTask(server.PoolControllerTask(poolController))
	srv.Start(ctx)

	deps := map[string]stats.Prober{
		"relational": relStore,
	}
	if kvStore != nil {
		deps["kv"] = kvStore
	}
	if vectorStore != nil {
		deps["vector"] = stats.ProbeFunc(func(ctx context.Context) error {
			ok, err := vectorStore.Ready(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("vector index not ready")
			}
			return nil
		})
	}

	healthHandler := stats.NewHealthHandler(collector, reg, srv.Admission(), deps)
	statsHandler := stats.NewStatsHandler(collector, srv.Admission(), server.NewDispatcherHistory(dispatcher))
	metricsHandler := stats.NewMetricsHandler(collector, srv.Admission())
	infoHandler := stats.NewInfoHandler(collector, reg, srv.Admission())

	var vectorProber stats.VectorProber = &vectorStatsAdapter{memStore: memStore, vectorStore: vectorStore}
	unifiedHandler := stats.NewUnifiedStatsHandler(statsHandler, metricsHandler, &poolStatsAdapter{controller: poolController}, vectorProber)
	tools.RegisterSystemTools(reg, unifiedHandler)

	httpTransport := transport.NewHTTP(srv, cfg.API.CORSEnabled, logger)
	httpTransport.Mount("/health", healthHandler)
	httpTransport.Mount("/stats", statsHandler)
	httpTransport.Mount("/metrics", metricsHandler)
	httpTransport.Mount("/info", infoHandler)
	httpTransport.Mount("/api/v1/stats", unifiedHandler)
	httpTransport.Mount("/api/overview/stats", stats.NewOverviewStatsAlias(unifiedHandler))
	httpTransport.Mount("/api/pool/stats", stats.NewPoolStatsAlias(unifiedHandler))
	httpTransport.Mount("/api/vector/stats", stats.NewVectorStatsAlias(unifiedHandler))

	wsTransport := transport.NewWebSocket(srv, busAdapter, logger)
	httpTransport.Mount("/ws", wsTransport)

	var limiterIface server.RateLimiter
	if cfg.API.RateLimitRPS > 0 {
		limiterIface = ratelimit.New(cfg.API.RateLimitRPS)
	}

	apiKeyAuth := auth.NewAPIKeyAuthenticator(cfg.API.APIKeys)
	var jwtAuth *auth.JWTAuthenticator
	if *jwtSecret != "" {
		jwtAuth = auth.NewJWTAuthenticator([]byte(*jwtSecret), *jwtIssuer)
	}
	allowList := auth.NewIPAllowList(cfg.API.AllowedIPs)
	authMiddleware := auth.NewMiddleware(apiKeyAuth, jwtAuth, allowList, []string{"/health"})

	var handler http.Handler = httpTransport
	handler = authMiddleware.Wrap(handler)
	handler = server.RateLimitMiddleware(limiterIface, handler)

	httpAddr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("http transport listening", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
			return
		}
		httpErrCh <- nil
	}()

	stdioErrCh := make(chan error, 1)
	if !*disableStdio {
		stdioTransport := transport.NewStdio(srv, os.Stdin, os.Stdout, logger)
		go func() {
			logger.Info("stdio transport serving")
			stdioErrCh <- stdioTransport.Serve(ctx)
			stop() // stdin EOF triggers the same graceful shutdown as a signal
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-httpErrCh:
		if err != nil {
			logger.Error("fatal: http transport failed", "error", err)
			return 1
		}
	case err := <-stdioErrCh:
		if err != nil {
			logger.Error("stdio transport error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, 30*time.Second); err != nil {
		logger.Error("graceful shutdown incomplete", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("mcpserver stopped")
	return 0
}

// applyFlagOverrides layers CLI flag values over the loaded config,
// matching the teacher's own precedence of explicit flags above
// everything else.
func applyFlagOverrides(cfg *config.Config, addr, logLevel string, devMode bool) {
	if addr != "" {
		host, port := splitHostPort(addr)
		if host != "" {
			cfg.API.Host = host
		}
		if port > 0 {
			cfg.API.Port = port
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if devMode {
		cfg.API.Host = "127.0.0.1"
		cfg.Logging.Level = "debug"
	}
}

func splitHostPort(addr string) (string, int) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return addr, 0
	}
	host := addr[:idx]
	var port int
	fmt.Sscanf(addr[idx+1:], "%d", &port)
	return host, port
}
