package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/jsonforge/internal/core/api"
	"github.com/solatis/jsonforge/internal/core/auth"
	"github.com/solatis/jsonforge/internal/core/config"
	"github.com/solatis/jsonforge/internal/core/db"
	"github.com/solatis/jsonforge/internal/core/metrics"
	"github.com/solatis/jsonforge/internal/core/rulesfile"
	"github.com/solatis/jsonforge/internal/core/server"
	"github.com/solatis/jsonforge/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC and HTTP transform services",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("rules", "", "rules file (YAML or JSON)")
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("grpc-port", 50051, "gRPC port (0 disables)")
	serveCmd.Flags().Int("http-port", 8080, "HTTP port (0 disables)")
	serveCmd.Flags().String("db-url", "", "run journal database URL (sqlite://path or postgres://...)")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the redis supplier and redisLookup function")
	serveCmd.Flags().Duration("http-timeout", 0, "timeout for outbound HTTP fetches")
}

type lifecycle interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.Server.GRPCPort == 0 && cfg.Server.HTTPPort == 0 {
		return fmt.Errorf("both gRPC and HTTP listeners are disabled")
	}

	keys, err := config.APIKeys()
	if err != nil {
		return fmt.Errorf("failed to load API keys: %w", err)
	}
	authenticator, err := auth.NewAuthenticator(keys)
	if err != nil {
		return err
	}
	if !authenticator.Enabled() {
		logger.Warn("no API keys configured (set JF_API_KEY), authentication disabled")
	}

	m, err := metrics.New()
	if err != nil {
		return err
	}

	deps, cleanup := collaborators(cfg)
	defer cleanup()

	engine, specs, err := buildEngine(cfg, logger, deps, pipeline.WithObserver(m))
	if err != nil {
		return err
	}
	digest := rulesfile.Digest(specs)

	svcOpts := []api.Option{
		api.WithLogger(logger),
		api.WithMaxDocumentSize(cfg.Transform.MaxDocumentSize),
		api.WithRulesDigest(digest),
		api.WithTimeout(cfg.Server.RequestTimeout),
	}
	routes := server.Routes{Metrics: m.Handler()}
	if cfg.DB.URL != "" {
		database, err := db.Open(ctx, cfg.DB.URL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
		if err := db.MigrateUp(ctx, database); err != nil {
			return err
		}
		journal, err := db.NewJournal(database)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, api.WithJournal(journal))
		routes.Runs = api.NewRunsHandler(journal)
	}

	svc, err := api.NewTransformService(engine, svcOpts...)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	routes.Transform = svc

	var servers []lifecycle
	if cfg.Server.GRPCPort != 0 {
		grpcServer, err := server.NewGRPCServer(cfg.Server, api.NewGRPCHandler(svc), authenticator, logger)
		if err != nil {
			return fmt.Errorf("failed to create gRPC server: %w", err)
		}
		servers = append(servers, grpcServer)
	}
	if cfg.Server.HTTPPort != 0 {
		httpServer, err := server.NewHTTPServer(cfg.Server, server.NewRouter(routes, authenticator, logger), logger)
		if err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}
		servers = append(servers, httpServer)
	}

	logger.Info("starting jsonforge", "version", Version, "rules", len(specs), "rules_digest", digest)
	errChan := make(chan error, len(servers))
	for _, s := range servers {
		go func() { errChan <- s.Start(ctx) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case runErr = <-errChan:
		logger.Error("server stopped", "error", runErr)
	case sig := <-sigChan:
		logger.Info("shutting down gracefully", "signal", sig.String())
	}

	for _, s := range servers {
		if err := s.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
	return runErr
}
