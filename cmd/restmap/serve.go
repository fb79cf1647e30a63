package restmap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restmap/restmap/pkg/config"
	mw "github.com/restmap/restmap/pkg/httputil/middleware"
	"github.com/restmap/restmap/pkg/metrics"
	"github.com/restmap/restmap/pkg/registry"
	"github.com/restmap/restmap/pkg/resource"
	"github.com/restmap/restmap/pkg/rest"
	"github.com/restmap/restmap/pkg/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Reflects the database schema and serves CRUD endpoints for every registered resource`,
	Run:   runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("pg.connString", "c", "", "PostgreSQL connection string")
	f.StringP("server.listenAddr", "l", "", "server listen address")
	f.String("server.baseURL", "", "base URL for API endpoints")
	f.Bool("metrics.enabled", false, "expose Prometheus metrics")
	f.String("metrics.addr", "", "metrics listen address")

	viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	logger := newLogger(logLevel)
	defer logger.Sync()

	if cfg == nil {
		logger.Fatal("configuration not loaded")
	}

	// flag overrides
	if v := viper.GetString("pg.connString"); v != "" {
		cfg.PG.ConnString = v
	}
	if v := viper.GetString("server.listenAddr"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := viper.GetString("server.baseURL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if viper.GetBool("metrics.enabled") {
		cfg.Metrics.Enabled = true
	}
	if v := viper.GetString("metrics.addr"); v != "" {
		cfg.Metrics.Addr = v
	}

	connString := cfg.PG.ConnString
	if connString == "" {
		connString = os.Getenv("RESTMAP_PG_CONN_STRING")
	}
	if connString == "" {
		logger.Fatal("PostgreSQL connection string required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := connect(ctx, connString)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	catalog, err := schema.NewCatalog(pool, logger)
	if err != nil {
		logger.Fatal("failed to create schema catalog", zap.Error(err))
	}
	if err := catalog.Init(ctx); err != nil {
		logger.Fatal("schema reflection failed", zap.Error(err))
	}
	defer catalog.Close()

	go func() {
		for tables := range catalog.Watch() {
			metrics.SchemaReloads.Inc()
			logger.Info("schema catalog updated", zap.Int("tables", len(tables)))
		}
	}()

	reg := registry.New()
	reg.Register(buildResources(cfg, catalog)...)
	if err := reg.Reflect(catalog); err != nil {
		logger.Fatal("resource reflection failed", zap.Error(err))
	}
	logger.Info("resources registered", zap.Int("endpoints", reg.Len()))

	server := rest.NewServer(pool, reg,
		rest.WithLogger(logger),
		rest.WithBaseURL(cfg.Server.BaseURL),
		rest.WithCatalog(catalog),
	)

	server.AddMiddleware(
		mw.RequestID,
		mw.CORSWithOptions(nil),
	)
	if logLevel != "none" {
		server.AddMiddleware(mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}))
	}

	var wg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{Addr: cfg.Metrics.Addr})
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(cfg.Server.ListenAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown error", zap.Error(err))
	}

	cancel()
	wg.Wait()
}

// connect establishes the pool, retrying the initial ping so the server
// survives a database that is still starting.
func connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	ping := func() error { return pool.Ping(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// buildResources returns the configured resources, or one resource per
// reflected table when none are configured.
func buildResources(cfg *config.Config, catalog *schema.Catalog) []*resource.Resource {
	if len(cfg.Resources) > 0 {
		out := make([]*resource.Resource, 0, len(cfg.Resources))
		for _, rc := range cfg.Resources {
			out = append(out, &resource.Resource{
				TableName: rc.Table,
				Schema:    rc.Schema,
				Endpoint:  rc.Endpoint,
				Methods:   rc.Methods,
			})
		}
		return out
	}

	snapshot := catalog.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	out := make([]*resource.Resource, 0, len(keys))
	for _, key := range keys {
		t := snapshot[key]
		out = append(out, &resource.Resource{TableName: t.Name, Schema: t.Schema})
	}
	return out
}

func newLogger(level string) *zap.Logger {
	if level == "none" {
		return zap.NewNop()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
