// Command mapeditor serves the topology editor HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-mapeditor/pkg/api"
	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
	"github.com/dd0wney/cluso-mapeditor/pkg/config"
	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/metrics"
	"github.com/dd0wney/cluso-mapeditor/pkg/pubsub"
	"github.com/dd0wney/cluso-mapeditor/pkg/server"
	"github.com/dd0wney/cluso-mapeditor/pkg/session"
	"github.com/dd0wney/cluso-mapeditor/pkg/store"
	servertls "github.com/dd0wney/cluso-mapeditor/pkg/tls"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	addr := flag.String("addr", "", "Listen address, overrides server.addr")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapeditor: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := logging.New(cfg.Log.Level)
	logging.SetDefaultLogger(logger)

	if err := run(cfg, logger, *configPath); err != nil {
		logger.Error("mapeditor exited", logging.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg *config.Config, logger *logging.JSONLogger, configPath string) error {
	ctx := context.Background()

	reg := metrics.NewRegistry()

	backend, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	docs := store.Instrument(backend, reg, logger)
	logger.Info("document store ready", logging.Backend(docs.Backend()))

	events := pubsub.NewPubSub(pubsub.WithBuffer(cfg.Session.EventBuffer), pubsub.WithDropHandler(func(topic string, ev pubsub.Event) {
		reg.RecordEventDropped()
		logger.Warn("event dropped for slow subscriber",
			logging.String("topic", topic),
			logging.String("type", string(ev.Type)))
	}))
	auditLog := audit.NewAuditLogger(cfg.Session.AuditBuffer)

	manager := session.NewManager(docs, session.Deps{
		Logger:  logger.With(logging.Component("session")),
		Metrics: reg,
		Events:  events,
		Audit:   auditLog,
	})

	apiServer, err := api.NewServer(api.Deps{
		Sessions: manager,
		Docs:     docs,
		Events:   events,
		Audit:    auditLog,
		Metrics:  reg,
		Logger:   logger.With(logging.Component("api")),
	}, api.Config{
		Version:         version,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		CORSOrigins:     cfg.Server.CORSOrigins,
		GraphQLMaxDepth: cfg.Server.GraphQLMaxDepth,
		MaxSessions:     cfg.Session.MaxOpen,
	})
	if err != nil {
		_ = docs.Close()
		return err
	}

	httpServer := apiServer.HTTPServer(cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.IdleTimeout)
	if httpServer.TLSConfig, err = servertls.Load(cfg.Server.TLS); err != nil {
		_ = docs.Close()
		return err
	}
	srv := server.NewGracefulServer(httpServer, cfg.Server.ShutdownTimeout, logger)

	// Sessions close first so their subscribers see session_closed before
	// the broker goes away.
	srv.OnShutdown("sessions", func(context.Context) error {
		manager.Shutdown()
		return nil
	})
	srv.OnShutdown("events", func(context.Context) error {
		events.Shutdown()
		return nil
	})
	srv.OnShutdown("store", func(context.Context) error {
		return docs.Close()
	})

	if configPath != "" {
		srv.SetConfigReloadFunc(func() error {
			next, err := config.Load(configPath)
			if err != nil {
				logger.Warn("config reload failed", logging.Path(configPath), logging.Error(err))
				return err
			}
			logger.SetLevel(logging.ParseLevel(next.Log.Level))
			logger.Info("config reloaded", logging.String("log_level", next.Log.Level))
			return nil
		})
	}

	logger.Info("mapeditor starting",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr),
		logging.Bool("tls", httpServer.TLSConfig != nil),
		logging.Backend(docs.Backend()))

	return srv.Run(ctx)
}
