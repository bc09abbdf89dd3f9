// Package config reads all runtime settings from the environment, applies
// defaults, and validates the result. It centralizes server settings, the
// SQLite path, remote endpoint URLs, snapshot scheduling, rate limiting,
// and observability options.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings. The browser
// client is served from a different origin than this service.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security header settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RemoteConfig groups the external service endpoints the gateway talks to.
type RemoteConfig struct {
	GatewayBaseURL string        // work-record store (GET/POST /data)
	AuthTokenURL   string        // anonymous session token exchange
	IIIFBaseURL    string        // digital library IIIF presentation API
	ComputeBaseURL string        // georeferencing compute API
	AuthToken      string        // static bearer token; empty means anonymous
	SubmitTimeout  time.Duration // cap on one georeferencing submission
	RequestTimeout time.Duration // cap on every other outbound call
}

// SnapshotConfig groups checkpointing knobs.
type SnapshotConfig struct {
	AutoEnabled bool          // recurring timer on/off
	Interval    time.Duration // recurring snapshot period
	Settle      time.Duration // debounce window after a mutation
	MaxPerOwner int           // snapshot list cap, oldest evicted
}

// Config is the full runtime configuration of the service.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool
	APIBasePath string

	// Storage
	DBPath string // SQLite path for the local work-state store

	// Remote endpoints
	Remote RemoteConfig

	// Snapshots
	Snapshot SnapshotConfig

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Submission replay
	ReceiptTTL time.Duration // how long a submission receipt satisfies retries

	// Observability
	OTEL OTELConfig
}

// MustLoad is Load for main: invalid configuration aborts the process.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DBPath: getenv("DB_PATH", "galligeo.db"),

		Remote: RemoteConfig{
			GatewayBaseURL: getenv("GATEWAY_BASE_URL", "https://galligeo.ptm.huma-num.fr/api"),
			AuthTokenURL:   getenv("AUTH_TOKEN_URL", "https://galligeo.ptm.huma-num.fr/auth/token"),
			IIIFBaseURL:    getenv("IIIF_BASE_URL", "https://gallica.bnf.fr/iiif/ark:/12148"),
			ComputeBaseURL: getenv("COMPUTE_BASE_URL", "https://galligeo.ptm.huma-num.fr/compute"),
			AuthToken:      getenv("AUTH_TOKEN", ""),
			SubmitTimeout:  getdur("SUBMIT_TIMEOUT", 5*time.Minute),
			RequestTimeout: getdur("REQUEST_TIMEOUT", 20*time.Second),
		},

		Snapshot: SnapshotConfig{
			AutoEnabled: getbool("SNAPSHOT_AUTO", true),
			Interval:    getdur("SNAPSHOT_INTERVAL", 30*time.Second),
			Settle:      getdur("SNAPSHOT_SETTLE", time.Second),
			MaxPerOwner: getint("SNAPSHOT_MAX", 10),
		},

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		ReceiptTTL: getdur("RECEIPT_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "galligeo"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	for name, u := range map[string]string{
		"GATEWAY_BASE_URL": cfg.Remote.GatewayBaseURL,
		"AUTH_TOKEN_URL":   cfg.Remote.AuthTokenURL,
		"IIIF_BASE_URL":    cfg.Remote.IIIFBaseURL,
		"COMPUTE_BASE_URL": cfg.Remote.ComputeBaseURL,
	} {
		if strings.TrimSpace(u) == "" {
			return cfg, errors.New(name + " must not be empty")
		}
	}
	if cfg.Remote.SubmitTimeout <= 0 || cfg.Remote.RequestTimeout <= 0 {
		return cfg, errors.New("remote timeouts must be positive durations")
	}
	if cfg.Snapshot.Interval <= 0 || cfg.Snapshot.Settle <= 0 {
		return cfg, errors.New("snapshot interval and settle must be positive durations")
	}
	if cfg.Snapshot.MaxPerOwner < 1 {
		return cfg, errors.New("SNAPSHOT_MAX must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.ReceiptTTL <= 0 {
		return cfg, errors.New("RECEIPT_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// env parsing helpers

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips any trailing '/'
// (except for the root path).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
