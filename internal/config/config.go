// Package config provides configuration management for career-constellation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/goatcheese98/career-constellation/internal/cluster"
	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/internal/duplicates"
	"github.com/goatcheese98/career-constellation/internal/textnorm"
)

const (
	// DefaultWorkerPort is the HTTP port of the server.
	DefaultWorkerPort = 37800
	// DefaultWorkerHost binds the server to loopback.
	DefaultWorkerHost = "127.0.0.1"
	// DefaultEmbeddingProvider is tried before the tf-idf fallback.
	DefaultEmbeddingProvider = "http"
	// DefaultEmbeddingURL is the local embedding service.
	DefaultEmbeddingURL = "http://127.0.0.1:8081"
	// DefaultDBDriver stores generations in a local sqlite file.
	DefaultDBDriver = "sqlite"
	// DefaultMaxJobs caps the rows read from the job table.
	DefaultMaxJobs = 5000
	// DefaultChatRateLimit is chat requests per second.
	DefaultChatRateLimit = 2.0
	// DefaultChatBurst is the chat burst allowance.
	DefaultChatBurst = 5
	// DefaultWatchDebounceMS groups file events before a rebuild.
	DefaultWatchDebounceMS = 500

	dataDirName  = ".career-constellation"
	envPrefix    = "CONSTELLATION_"
	dbFileName   = "constellation.db"
	settingsName = "settings.json"
)

// Embedding providers.
const (
	ProviderHTTP   = "http"
	ProviderGemini = "gemini"
	ProviderTFIDF  = "tfidf"
)

// Config holds all settings. JSON keys match the environment variable names.
type Config struct {
	WorkerHost        string   `json:"CONSTELLATION_WORKER_HOST"`
	DataPath          string   `json:"CONSTELLATION_DATA_PATH"`
	ReportsDir        string   `json:"CONSTELLATION_REPORTS_DIR"`
	CollectionsPath   string   `json:"CONSTELLATION_COLLECTIONS_PATH"`
	DBDriver          string   `json:"CONSTELLATION_DB_DRIVER"`
	DBDSN             string   `json:"CONSTELLATION_DB_DSN"`
	EmbeddingProvider string   `json:"CONSTELLATION_EMBEDDING_PROVIDER"`
	EmbeddingURL      string   `json:"CONSTELLATION_EMBEDDING_URL"`
	EmbeddingModel    string   `json:"CONSTELLATION_EMBEDDING_MODEL"`
	GeminiAPIKey      string   `json:"CONSTELLATION_GEMINI_API_KEY"`
	GeminiModel       string   `json:"CONSTELLATION_GEMINI_MODEL"`
	LabelStopWords    []string `json:"CONSTELLATION_LABEL_STOP_WORDS"`
	WorkerPort        int      `json:"CONSTELLATION_WORKER_PORT"`
	MaxK              int      `json:"CONSTELLATION_MAX_K"`
	Density           int      `json:"CONSTELLATION_DENSITY"`
	MinK              int      `json:"CONSTELLATION_MIN_K"`
	Seed              uint64   `json:"CONSTELLATION_SEED"`
	Restarts          int      `json:"CONSTELLATION_RESTARTS"`
	MaxIter           int      `json:"CONSTELLATION_MAX_ITER"`
	Tolerance         float64  `json:"CONSTELLATION_TOLERANCE"`
	GlobalThreshold   float64  `json:"CONSTELLATION_GLOBAL_THRESHOLD"`
	ClusterThreshold  float64  `json:"CONSTELLATION_CLUSTER_THRESHOLD"`
	DuplicateFloor    float64  `json:"CONSTELLATION_DUPLICATE_FLOOR"`
	MinTextLength     int      `json:"CONSTELLATION_MIN_TEXT_LENGTH"`
	MaxJobs           int      `json:"CONSTELLATION_MAX_JOBS"`
	TopKChunks        int      `json:"CONSTELLATION_TOP_K_CHUNKS"`
	ContextTokens     int      `json:"CONSTELLATION_CONTEXT_TOKENS"`
	ChatRateLimit     float64  `json:"CONSTELLATION_CHAT_RATE_LIMIT"`
	ChatBurst         int      `json:"CONSTELLATION_CHAT_BURST"`
	WatchDebounceMS   int      `json:"CONSTELLATION_WATCH_DEBOUNCE_MS"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// DataDir returns the data directory path.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dataDirName)
}

// DBPath returns the sqlite database path.
func DBPath() string {
	return filepath.Join(DataDir(), dbFileName)
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsName)
}

// Default returns the default configuration.
func Default() *Config {
	pipeline := constellation.DefaultConfig()
	return &Config{
		WorkerHost:        DefaultWorkerHost,
		WorkerPort:        DefaultWorkerPort,
		DataPath:          filepath.Join("data", "jobs.csv"),
		ReportsDir:        "reports",
		CollectionsPath:   filepath.Join("reports", "collections.yaml"),
		DBDriver:          DefaultDBDriver,
		DBDSN:             DBPath(),
		EmbeddingProvider: DefaultEmbeddingProvider,
		EmbeddingURL:      DefaultEmbeddingURL,
		LabelStopWords:    []string{},
		MaxK:              pipeline.MaxK,
		Density:           pipeline.Density,
		MinK:              pipeline.MinK,
		Seed:              pipeline.Cluster.Seed,
		Restarts:          pipeline.Cluster.Restarts,
		MaxIter:           pipeline.Cluster.MaxIter,
		Tolerance:         pipeline.Cluster.Tolerance,
		GlobalThreshold:   duplicates.DefaultGlobalThreshold,
		ClusterThreshold:  duplicates.DefaultClusterThreshold,
		DuplicateFloor:    duplicates.DefaultScanFloor,
		MinTextLength:     textnorm.DefaultMinTextLength,
		MaxJobs:           DefaultMaxJobs,
		TopKChunks:        7,
		ContextTokens:     6000,
		ChatRateLimit:     DefaultChatRateLimit,
		ChatBurst:         DefaultChatBurst,
		WatchDebounceMS:   DefaultWatchDebounceMS,
	}
}

// EnsureDataDir creates the data directory if it does not exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat settings: %w", err)
	}

	cfg := Default()
	// The DSN follows HOME unless set explicitly.
	cfg.DBDSN = ""
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	log.Info().Str("path", path).Msg("Created default settings")
	return nil
}

// EnsureAll creates the data directory and the settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return EnsureSettings()
}

// Load reads settings.json and applies environment overrides. A missing or
// unreadable settings file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	switch {
	case err == nil:
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			log.Warn().Err(err).Str("path", SettingsPath()).Msg("Invalid settings file, using defaults")
			return cfg, nil
		}
		for key, value := range raw {
			if err := cfg.set(key, stringify(value)); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Ignoring invalid setting")
			}
		}
	case !errors.Is(err, os.ErrNotExist):
		log.Warn().Err(err).Msg("Cannot read settings file, using defaults")
	}

	cfg.applyEnv()
	if cfg.DBDSN == "" && cfg.DBDriver == DefaultDBDriver {
		cfg.DBDSN = DBPath()
	}
	return cfg, nil
}

// Get returns the process-wide configuration, loading it once.
func Get() *Config {
	configOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalConfig = cfg
	})
	return globalConfig
}

// GetWorkerPort returns the port from CONSTELLATION_WORKER_PORT when it holds
// a positive integer, else the configured port.
func GetWorkerPort() int {
	if v := os.Getenv(envPrefix + "WORKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	return Get().WorkerPort
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.WorkerHost, c.WorkerPort)
}

// PipelineConfig maps the settings onto the build pipeline parameters.
func (c *Config) PipelineConfig() constellation.Config {
	p := constellation.DefaultConfig()
	p.MaxK = c.MaxK
	p.Density = c.Density
	p.MinK = c.MinK
	p.Cluster = cluster.Config{
		Seed:      c.Seed,
		Restarts:  c.Restarts,
		MaxIter:   c.MaxIter,
		Tolerance: c.Tolerance,
	}
	p.GlobalThreshold = c.GlobalThreshold
	p.ClusterThreshold = c.ClusterThreshold
	p.DuplicateFloor = c.DuplicateFloor
	p.MinTextLength = c.MinTextLength
	p.LabelStopWords = c.LabelStopWords
	return p
}

func (c *Config) applyEnv() {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			if err := c.set(key, v); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Ignoring invalid environment override")
			}
		}
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
}

var keys = []string{
	envPrefix + "WORKER_HOST",
	envPrefix + "WORKER_PORT",
	envPrefix + "DATA_PATH",
	envPrefix + "REPORTS_DIR",
	envPrefix + "COLLECTIONS_PATH",
	envPrefix + "DB_DRIVER",
	envPrefix + "DB_DSN",
	envPrefix + "EMBEDDING_PROVIDER",
	envPrefix + "EMBEDDING_URL",
	envPrefix + "EMBEDDING_MODEL",
	envPrefix + "GEMINI_API_KEY",
	envPrefix + "GEMINI_MODEL",
	envPrefix + "LABEL_STOP_WORDS",
	envPrefix + "MAX_K",
	envPrefix + "DENSITY",
	envPrefix + "MIN_K",
	envPrefix + "SEED",
	envPrefix + "RESTARTS",
	envPrefix + "MAX_ITER",
	envPrefix + "TOLERANCE",
	envPrefix + "GLOBAL_THRESHOLD",
	envPrefix + "CLUSTER_THRESHOLD",
	envPrefix + "DUPLICATE_FLOOR",
	envPrefix + "MIN_TEXT_LENGTH",
	envPrefix + "MAX_JOBS",
	envPrefix + "TOP_K_CHUNKS",
	envPrefix + "CONTEXT_TOKENS",
	envPrefix + "CHAT_RATE_LIMIT",
	envPrefix + "CHAT_BURST",
	envPrefix + "WATCH_DEBOUNCE_MS",
}

// set assigns one setting from its string form. Unknown keys are ignored.
func (c *Config) set(key, v string) error {
	var err error
	switch strings.TrimPrefix(key, envPrefix) {
	case "WORKER_HOST":
		c.WorkerHost = v
	case "WORKER_PORT":
		c.WorkerPort, err = positiveInt(v)
	case "DATA_PATH":
		c.DataPath = v
	case "REPORTS_DIR":
		c.ReportsDir = v
	case "COLLECTIONS_PATH":
		c.CollectionsPath = v
	case "DB_DRIVER":
		c.DBDriver = strings.ToLower(v)
	case "DB_DSN":
		c.DBDSN = v
	case "EMBEDDING_PROVIDER":
		c.EmbeddingProvider = strings.ToLower(v)
	case "EMBEDDING_URL":
		c.EmbeddingURL = v
	case "EMBEDDING_MODEL":
		c.EmbeddingModel = v
	case "GEMINI_API_KEY":
		c.GeminiAPIKey = v
	case "GEMINI_MODEL":
		c.GeminiModel = v
	case "LABEL_STOP_WORDS":
		c.LabelStopWords = splitTrim(v)
	case "MAX_K":
		c.MaxK, err = positiveInt(v)
	case "DENSITY":
		c.Density, err = positiveInt(v)
	case "MIN_K":
		c.MinK, err = positiveInt(v)
	case "SEED":
		c.Seed, err = strconv.ParseUint(v, 10, 64)
	case "RESTARTS":
		c.Restarts, err = positiveInt(v)
	case "MAX_ITER":
		c.MaxIter, err = positiveInt(v)
	case "TOLERANCE":
		c.Tolerance, err = strconv.ParseFloat(v, 64)
	case "GLOBAL_THRESHOLD":
		c.GlobalThreshold, err = unitFloat(v)
	case "CLUSTER_THRESHOLD":
		c.ClusterThreshold, err = unitFloat(v)
	case "DUPLICATE_FLOOR":
		c.DuplicateFloor, err = unitFloat(v)
	case "MIN_TEXT_LENGTH":
		c.MinTextLength, err = strconv.Atoi(v)
	case "MAX_JOBS":
		c.MaxJobs, err = strconv.Atoi(v)
	case "TOP_K_CHUNKS":
		c.TopKChunks, err = positiveInt(v)
	case "CONTEXT_TOKENS":
		c.ContextTokens, err = positiveInt(v)
	case "CHAT_RATE_LIMIT":
		c.ChatRateLimit, err = strconv.ParseFloat(v, 64)
	case "CHAT_BURST":
		c.ChatBurst, err = positiveInt(v)
	case "WATCH_DEBOUNCE_MS":
		c.WatchDebounceMS, err = positiveInt(v)
	}
	return err
}

func positiveInt(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}

func unitFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("%g outside [0, 1]", f)
	}
	return f, nil
}

// stringify renders a decoded JSON value in the form set expects. Arrays
// become comma-separated lists.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, stringify(p))
		}
		return strings.Join(parts, ",")
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// splitTrim splits a comma-separated list, dropping empty entries.
func splitTrim(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
