package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sink names accepted in SINK.
const (
	SinkNone  = "none"
	SinkNATS  = "nats"
	SinkKafka = "kafka"
)

type Config struct {
	ScenarioFile string
	OutputDir    string

	// DatabaseURL is empty when no database is configured; persistence and
	// pgRouting are then disabled.
	DatabaseURL string
	Network     string

	OSRMURL        string
	ORSURL         string
	ORSAPIKey      string
	MapQuestURL    string
	MapQuestAPIKey string

	DistanceTolerance float64
	BuildWorkers      int

	Sink            string
	NATSURL         string
	LogNATSSubjects bool
	KafkaBrokers    []string
	KafkaTopic      string

	Replay          bool
	PublishInterval time.Duration
	SpeedMultiplier float64

	MetricsAddr    string
	LogLevel       string
	LogFormat      string
	TracingEnabled bool
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		ScenarioFile: getenvDefault("SCENARIO_FILE", "scenario.yaml"),
		OutputDir:    getenvDefault("OUTPUT_DIR", "out"),
		Network:      strings.TrimSpace(os.Getenv("NETWORK")),

		OSRMURL:        os.Getenv("OSRM_URL"),
		ORSURL:         os.Getenv("ORS_URL"),
		ORSAPIKey:      os.Getenv("ORS_API_KEY"),
		MapQuestURL:    os.Getenv("MAPQUEST_URL"),
		MapQuestAPIKey: os.Getenv("MAPQUEST_API_KEY"),

		NATSURL:    getenvDefault("NATS_URL", "nats://127.0.0.1:4222"),
		KafkaTopic: getenvDefault("KAFKA_TOPIC", "trajectory.groups"),

		// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		LogLevel:    strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(getenvDefault("LOG_FORMAT", "text")),

		LogNATSSubjects: parseBool(os.Getenv("LOG_NATS_SUBJECTS")),
		Replay:          parseBool(os.Getenv("REPLAY")),
		TracingEnabled:  parseBool(os.Getenv("TRACING_ENABLED")),
	}

	cfg.DatabaseURL = databaseURL()

	if v := os.Getenv("DISTANCE_TOLERANCE_M"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid DISTANCE_TOLERANCE_M: %q", v)
		}
		cfg.DistanceTolerance = f
	} else {
		cfg.DistanceTolerance = 10
	}

	if v := os.Getenv("BUILD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid BUILD_WORKERS: %q", v)
		}
		cfg.BuildWorkers = n
	} else {
		cfg.BuildWorkers = 4
	}

	cfg.Sink = strings.ToLower(getenvDefault("SINK", SinkNone))
	switch cfg.Sink {
	case SinkNone, SinkNATS, SinkKafka:
	default:
		return nil, fmt.Errorf("invalid SINK: %q (want none, nats or kafka)", cfg.Sink)
	}

	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	if cfg.Sink == SinkKafka && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must be set when SINK=kafka")
	}

	// Publish interval
	if v := os.Getenv("PUBLISH_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid PUBLISH_INTERVAL_MS: %q", v)
		}
		cfg.PublishInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.PublishInterval = time.Second
	}

	// Speed multiplier
	if v := os.Getenv("SPEED_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid SPEED_MULTIPLIER: %q", v)
		}
		cfg.SpeedMultiplier = f
	} else {
		cfg.SpeedMultiplier = 1.0
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q (want text or json)", cfg.LogFormat)
	}

	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds a DSN from PG* vars
// when PGDATABASE or NETWORK is set.
func databaseURL() string {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn
	}
	db := os.Getenv("PGDATABASE")
	// A road network is resolved from the cluster's 'postgres' database.
	if db == "" && os.Getenv("NETWORK") != "" {
		db = "postgres"
	}
	if db == "" {
		return ""
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
