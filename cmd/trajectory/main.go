package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trajectory-builder/internal/assignment"
	"trajectory-builder/internal/config"
	"trajectory-builder/internal/db"
	"trajectory-builder/internal/metrics"
	"trajectory-builder/internal/observability"
	"trajectory-builder/internal/publisher"
	"trajectory-builder/internal/route"
	"trajectory-builder/internal/scene"
	"trajectory-builder/internal/sim"
	"trajectory-builder/internal/timeline"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	log := newLogger(cfg)

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: "trajectory-builder",
	}, log)
	if err != nil {
		log.Fatalf("tracing error: %v", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	sc, err := config.LoadScenario(cfg.ScenarioFile)
	if err != nil {
		log.Fatalf("scenario error: %v", err)
	}
	runID := uuid.NewString()
	log.WithFields(logrus.Fields{
		"scenario":  cfg.ScenarioFile,
		"movements": len(sc.Movements),
		"flights":   len(sc.Flights),
		"nodes":     len(sc.Nodes),
		"runId":     runID,
	}).Info("scenario loaded")

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.SpeedMultiplier, cfg.PublishInterval)
		srv := mcol.Serve(cfg.MetricsAddr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		sqlDB, err = openDatabase(ctx, cfg, log)
		if err != nil {
			log.Fatalf("database error: %v", err)
		}
		defer sqlDB.Close()
		if err := db.EnsureSchema(ctx, sqlDB); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
	}

	registry, elevation := buildRegistry(cfg, sqlDB, log)
	gen := assignment.NewGenerator(registry, log)
	gen.Tolerance = cfg.DistanceTolerance
	gen.Elevation = elevation
	if mcol != nil {
		gen.Metrics = mcol
	}

	var onFailure func()
	if mcol != nil {
		onFailure = mcol.BuildFailures.Inc
	}
	table, err := buildTable(ctx, gen, sc, cfg.BuildWorkers, log, onFailure)
	if err != nil {
		if table == nil {
			log.Fatalf("build aborted: %v", err)
		}
		log.WithError(err).Warn("some movements failed; continuing with the rest")
	}
	if start, end, ok := table.TimeSpan(); ok {
		log.WithFields(logrus.Fields{"rows": table.Len(), "objects": len(table.ObjectIDs()), "start": start, "end": end}).Info("assignments built")
	}

	groups, err := timeline.Decompose(table.Rows(), sc.Timeline.Options())
	if err != nil {
		log.Fatalf("decompose: %v", err)
	}
	if mcol != nil {
		for _, g := range groups {
			mcol.Groups.WithLabelValues(string(g.Action)).Inc()
		}
	}

	if err := writeOutputs(cfg.OutputDir, sc.Nodes, groups, table.Rows()); err != nil {
		log.Fatalf("write outputs: %v", err)
	}
	log.WithField("dir", cfg.OutputDir).Info("scene written")

	if sqlDB != nil {
		if err := db.SaveNodes(ctx, sqlDB, runID, sc.Nodes); err != nil {
			log.Fatalf("save nodes: %v", err)
		}
		if err := db.SaveAssignments(ctx, sqlDB, runID, table.Rows()); err != nil {
			log.Fatalf("save assignments: %v", err)
		}
		log.WithField("rows", table.Len()).Info("assignments stored")
	}

	sink, err := newSink(cfg, wrapPublisherMetrics(mcol), log)
	if err != nil {
		log.Fatalf("sink error: %v", err)
	}
	defer sink.Close()

	for _, g := range groups {
		if err := sink.PublishGroup(ctx, publisher.NewGroupMessage(runID, g)); err != nil {
			log.WithError(err).WithField("key", g.Key).Warn("publish group failed")
		}
	}

	if !cfg.Replay {
		log.Info("done")
		return
	}

	mgr := sim.NewManager(sink, runID, cfg.PublishInterval, cfg.SpeedMultiplier, mcol, log)
	mgr.Start(ctx, groups)
	// Block until every group finished or the context is cancelled
	mgr.Wait(ctx)
	mgr.Stop()
	log.Info("shutdown complete")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("invalid LOG_LEVEL; using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// openDatabase connects to the configured database, or to the latest import of
// NETWORK resolved through the cluster's 'postgres' database.
func openDatabase(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*sql.DB, error) {
	finalDSN := cfg.DatabaseURL
	if cfg.Network != "" {
		rootDSN, err := db.WithDBName(cfg.DatabaseURL, "postgres")
		if err != nil {
			return nil, fmt.Errorf("invalid base DSN: %w", err)
		}
		metaDB, err := db.Open(rootDSN)
		if err != nil {
			return nil, fmt.Errorf("db open (meta): %w", err)
		}
		defer metaDB.Close()
		if err := db.Ping(ctx, metaDB); err != nil {
			return nil, fmt.Errorf("db ping (meta): %w", err)
		}
		name, err := db.ResolveLatestNetworkDBName(ctx, metaDB, cfg.Network)
		if err != nil {
			return nil, fmt.Errorf("resolve network %q: %w", cfg.Network, err)
		}
		if finalDSN, err = db.WithDBName(cfg.DatabaseURL, name); err != nil {
			return nil, fmt.Errorf("compose DSN: %w", err)
		}
		log.WithFields(logrus.Fields{"database": name, "network": cfg.Network}).Info("using road network database")
	}
	sqlDB, err := db.Open(finalDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return sqlDB, nil
}

var providerRouteTypes = []route.RouteType{
	route.Fastest, route.Shortest, route.Pedestrian, route.Cycling, route.Truck, route.Wheelchair,
}

// buildRegistry registers every provider the configuration enables. Pairs a
// provider does not support are skipped.
func buildRegistry(cfg *config.Config, sqlDB *sql.DB, log logrus.FieldLogger) (*route.Registry, route.ElevationSource) {
	reg := route.NewRegistry()
	reg.Register(route.Fastest, route.OSRMOnline, route.NewOSRM(cfg.OSRMURL))

	var elevation route.ElevationSource
	for _, rt := range providerRouteTypes {
		if cfg.ORSAPIKey != "" {
			if ors, err := route.NewORS(cfg.ORSURL, cfg.ORSAPIKey, rt); err == nil {
				reg.Register(rt, route.ORSOnline, ors)
				if elevation == nil {
					elevation = ors
				}
			}
		}
		if cfg.MapQuestAPIKey != "" {
			if mq, err := route.NewMapQuest(cfg.MapQuestURL, cfg.MapQuestAPIKey, rt); err == nil {
				reg.Register(rt, route.MapQuest, mq)
			}
		}
		if sqlDB != nil {
			if pg, err := db.NewPgRouting(sqlDB, rt); err == nil {
				reg.Register(rt, route.PgRouting, pg)
			}
		}
	}

	keys := make([]string, 0, len(reg.Keys()))
	for _, k := range reg.Keys() {
		keys = append(keys, k.String())
	}
	log.WithField("routes", keys).Info("route registry ready")
	return reg, elevation
}

func writeOutputs(dir string, nodes []assignment.Node, groups []timeline.Group, rows []assignment.Assignment) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	write := func(name string, fn func(*os.File) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", name, err)
		}
		return f.Close()
	}
	if err := write("scene.geojson", func(f *os.File) error { return scene.WriteGeoJSON(f, nodes, groups) }); err != nil {
		return err
	}
	return write("assignments.csv", func(f *os.File) error { return scene.WriteCSV(f, rows) })
}

func newSink(cfg *config.Config, m publisher.PublisherMetrics, log logrus.FieldLogger) (publisher.Sink, error) {
	switch cfg.Sink {
	case config.SinkNATS:
		return publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, m, log)
	case config.SinkKafka:
		return publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, m, log)
	case config.SinkNone, "":
		return publisher.Discard{}, nil
	default:
		return nil, errors.New("unknown sink " + cfg.Sink)
	}
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) PublishedInc(sink string)       { p.c.Published.WithLabelValues(sink).Inc() }
func (p *pubMetrics) PublishErrInc(sink string)      { p.c.PublishErrs.WithLabelValues(sink).Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) SetConnected(b bool) {
	if b {
		p.c.SinkConnected.Set(1)
	} else {
		p.c.SinkConnected.Set(0)
	}
}
