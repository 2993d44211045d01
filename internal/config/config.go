package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-registry/internal/constants"
)

//go:embed matching.yaml
var matchingYAML []byte

type Config struct {
	Store     StoreConfig
	Database  DatabaseConfig
	Extractor ExtractorConfig
	Match     MatchConfig
	Web       WebConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type StoreConfig struct {
	Backend string // file, memory, postgres, sqlite or mariadb (default file)
	Path    string // file backend location, .zst suffix enables compression
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	SQLitePath   string // sqlite database file
	MariaDBDSN   string // MariaDB DSN (e.g., faces:faces@tcp(mariadb:3306)/faces)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type ExtractorConfig struct {
	Backend      string  // http or dlib (default http)
	URL          string  // defaults to http://localhost:8000
	ModelsDir    string  // dlib model files, only used by the dlib backend
	RateLimit    float64 // requests per second
	MaxImageSize int     // longest side in pixels before upload
	Timeout      time.Duration
}

type MatchConfig struct {
	Metric    string  // euclidean or cosine
	Tolerance float64 // 0 means the metric's default from matching.yaml
}

type WebConfig struct {
	Port           int
	Host           string
	APIToken       string   // optional bearer token, empty disables auth
	AllowedOrigins []string // extra CORS origins besides localhost
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// MetricsConfig holds the embedded per-metric defaults.
type MetricsConfig struct {
	Metrics map[string]MetricDefaults `yaml:"metrics"`
}

type MetricDefaults struct {
	Tolerance   float64 `yaml:"tolerance"`
	Description string  `yaml:"description"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Load() *Config {
	var metrics MetricsConfig
	if err := yaml.Unmarshal(matchingYAML, &metrics); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded matching.yaml: " + err.Error())
	}

	return &Config{
		Store: StoreConfig{
			Backend: strings.ToLower(envString("FACE_STORE_BACKEND", "file")),
			Path:    envString("FACE_STORE_PATH", constants.DefaultStorePath),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			SQLitePath:   envString("SQLITE_PATH", constants.DefaultSQLitePath),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Extractor: ExtractorConfig{
			Backend:      strings.ToLower(envString("EXTRACTOR_BACKEND", "http")),
			URL:          os.Getenv("EMBEDDING_URL"),
			ModelsDir:    envString("DLIB_MODELS_DIR", "models"),
			RateLimit:    envFloat("EXTRACTOR_RATE_LIMIT", constants.DefaultExtractorRateLimit),
			MaxImageSize: envInt("EXTRACTOR_MAX_IMAGE_SIZE", constants.MaxImageSize),
			Timeout:      time.Duration(envInt("EXTRACTOR_TIMEOUT_SECONDS", constants.DefaultExtractorTimeoutSeconds)) * time.Second,
		},
		Match: MatchConfig{
			Metric:    strings.ToLower(envString("MATCH_METRIC", constants.DefaultMatchMetric)),
			Tolerance: envFloat("MATCH_TOLERANCE", 0),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", constants.DefaultWebPort),
			Host:           envString("WEB_HOST", constants.DefaultWebHost),
			APIToken:       os.Getenv("WEB_API_TOKEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envString("LOG_LEVEL", "info")),
			Format: strings.ToLower(envString("LOG_FORMAT", "text")),
		},
		Metrics: metrics,
	}
}

// MatchTolerance returns the configured tolerance, falling back to the
// metric's embedded default and finally to the euclidean default.
func (c *Config) MatchTolerance() float64 {
	if c.Match.Tolerance > 0 {
		return c.Match.Tolerance
	}
	if d, ok := c.Metrics.Metrics[c.Match.Metric]; ok && d.Tolerance > 0 {
		return d.Tolerance
	}
	return constants.DefaultEuclideanTolerance
}

// Addr returns the host:port the API listens on.
func (c *WebConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
