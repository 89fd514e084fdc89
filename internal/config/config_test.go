package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir string
}

func (s *ConfigSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.T().Setenv("HOME", s.tempDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) writeSettings(body string) {
	dir := filepath.Join(s.tempDir, dataDirName)
	s.Require().NoError(os.MkdirAll(dir, 0750))
	s.Require().NoError(os.WriteFile(filepath.Join(dir, settingsName), []byte(body), 0600))
}

func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
	s.Equal(DefaultWorkerHost, cfg.WorkerHost)
	s.Equal(ProviderHTTP, cfg.EmbeddingProvider)
	s.Equal(15, cfg.MaxK)
	s.Equal(10, cfg.Density)
	s.Equal(uint64(42), cfg.Seed)
	s.Equal(10, cfg.Restarts)
	s.Equal(0.95, cfg.GlobalThreshold)
	s.Equal(0.90, cfg.ClusterThreshold)
	s.Equal(0.80, cfg.DuplicateFloor)
	s.Equal(50, cfg.MinTextLength)
	s.Equal(7, cfg.TopKChunks)
	s.Equal(DBPath(), cfg.DBDSN)
}

func (s *ConfigSuite) TestPaths() {
	s.Contains(DataDir(), dataDirName)
	s.Equal(filepath.Join(DataDir(), "constellation.db"), DBPath())
	s.Equal(filepath.Join(DataDir(), "settings.json"), SettingsPath())
}

func (s *ConfigSuite) TestEnsureDataDir() {
	s.NoError(EnsureDataDir())

	info, err := os.Stat(DataDir())
	s.NoError(err)
	s.True(info.IsDir())
}

func (s *ConfigSuite) TestEnsureSettings() {
	s.Require().NoError(EnsureDataDir())
	s.NoError(EnsureSettings())

	info, err := os.Stat(SettingsPath())
	s.NoError(err)
	s.False(info.IsDir())

	// Existing file is left alone.
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte(`{"CONSTELLATION_MAX_K": 4}`), 0600))
	s.NoError(EnsureSettings())
	cfg, err := Load()
	s.NoError(err)
	s.Equal(4, cfg.MaxK)
}

func (s *ConfigSuite) TestEnsureAll_WritesLoadableDefaults() {
	s.Require().NoError(EnsureAll())

	_, err := os.Stat(DataDir())
	s.NoError(err)

	cfg, err := Load()
	s.Require().NoError(err)
	def := Default()
	s.Equal(def.WorkerPort, cfg.WorkerPort)
	s.Equal(def.MaxK, cfg.MaxK)
	s.Equal(def.GlobalThreshold, cfg.GlobalThreshold)
	s.Equal(DBPath(), cfg.DBDSN)
	s.Empty(cfg.LabelStopWords)
}

func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name          string
		settingsJSON  string
		wantPort      int
		wantMaxK      int
		wantThreshold float64
	}{
		{
			name:          "no settings file",
			wantPort:      DefaultWorkerPort,
			wantMaxK:      15,
			wantThreshold: 0.95,
		},
		{
			name:          "custom port",
			settingsJSON:  `{"CONSTELLATION_WORKER_PORT": 38888}`,
			wantPort:      38888,
			wantMaxK:      15,
			wantThreshold: 0.95,
		},
		{
			name:          "string numbers",
			settingsJSON:  `{"CONSTELLATION_MAX_K": "8", "CONSTELLATION_GLOBAL_THRESHOLD": "0.9"}`,
			wantPort:      DefaultWorkerPort,
			wantMaxK:      8,
			wantThreshold: 0.9,
		},
		{
			name:          "out of range threshold ignored",
			settingsJSON:  `{"CONSTELLATION_GLOBAL_THRESHOLD": 1.5, "CONSTELLATION_MAX_K": 0}`,
			wantPort:      DefaultWorkerPort,
			wantMaxK:      15,
			wantThreshold: 0.95,
		},
		{
			name:          "invalid JSON returns defaults",
			settingsJSON:  `{invalid}`,
			wantPort:      DefaultWorkerPort,
			wantMaxK:      15,
			wantThreshold: 0.95,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.T().Setenv("HOME", s.T().TempDir())
			s.tempDir = os.Getenv("HOME")
			if tt.settingsJSON != "" {
				s.writeSettings(tt.settingsJSON)
			}

			cfg, err := Load()
			s.NoError(err)
			s.Require().NotNil(cfg)
			s.Equal(tt.wantPort, cfg.WorkerPort)
			s.Equal(tt.wantMaxK, cfg.MaxK)
			s.InDelta(tt.wantThreshold, cfg.GlobalThreshold, 1e-9)
		})
	}
}

func (s *ConfigSuite) TestLoad_EnvOverridesSettings() {
	s.writeSettings(`{"CONSTELLATION_EMBEDDING_PROVIDER": "gemini", "CONSTELLATION_SEED": 7}`)
	s.T().Setenv("CONSTELLATION_EMBEDDING_PROVIDER", "TFIDF")
	s.T().Setenv("CONSTELLATION_LABEL_STOP_WORDS", " intern , ,contract ")
	s.T().Setenv("CONSTELLATION_DUPLICATE_FLOOR", "0.7")

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(0.7, cfg.DuplicateFloor)
	s.Equal(ProviderTFIDF, cfg.EmbeddingProvider)
	s.Equal(uint64(7), cfg.Seed)
	s.Equal([]string{"intern", "contract"}, cfg.LabelStopWords)
}

func (s *ConfigSuite) TestLoad_GeminiKeyFallback() {
	s.T().Setenv("CONSTELLATION_GEMINI_API_KEY", "")
	s.T().Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal("from-env", cfg.GeminiAPIKey)
}

func (s *ConfigSuite) TestPipelineConfig() {
	s.writeSettings(`{
		"CONSTELLATION_MAX_K": 6,
		"CONSTELLATION_SEED": 99,
		"CONSTELLATION_RESTARTS": 3,
		"CONSTELLATION_CLUSTER_THRESHOLD": 0.75,
		"CONSTELLATION_DUPLICATE_FLOOR": 0.6,
		"CONSTELLATION_LABEL_STOP_WORDS": ["remote", "hybrid"]
	}`)

	cfg, err := Load()
	s.Require().NoError(err)
	p := cfg.PipelineConfig()
	s.Equal(6, p.MaxK)
	s.Equal(uint64(99), p.Cluster.Seed)
	s.Equal(3, p.Cluster.Restarts)
	s.Equal(0.75, p.ClusterThreshold)
	s.Equal(0.6, p.DuplicateFloor)
	s.Equal(0.6, p.ScanFloor())
	s.Equal([]string{"remote", "hybrid"}, p.LabelStopWords)
	s.Equal(cfg.MinTextLength, p.MinTextLength)
}

func TestAddr(t *testing.T) {
	cfg := &Config{WorkerHost: "0.0.0.0", WorkerPort: 9000}
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
}

// TestGet tests the global config getter.
func TestGet(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Get()
	require.NotNil(t, cfg)
	assert.Greater(t, cfg.WorkerPort, 0)
	assert.Same(t, cfg, Get())
}

func TestGetWorkerPort_WithEnv(t *testing.T) {
	t.Setenv("CONSTELLATION_WORKER_PORT", "45678")
	assert.Equal(t, 45678, GetWorkerPort())

	t.Setenv("CONSTELLATION_WORKER_PORT", "not-a-number")
	assert.Greater(t, GetWorkerPort(), 0)

	t.Setenv("CONSTELLATION_WORKER_PORT", "0")
	assert.Greater(t, GetWorkerPort(), 0)
}

func TestSplitTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: []string{}},
		{name: "single value", input: "intern", expected: []string{"intern"}},
		{name: "multiple values", input: "intern,contract,temp", expected: []string{"intern", "contract", "temp"}},
		{name: "values with spaces", input: " intern , contract ", expected: []string{"intern", "contract"}},
		{name: "empty values filtered", input: "intern,,contract,,", expected: []string{"intern", "contract"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitTrim(tt.input))
		})
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "38888", stringify(float64(38888)))
	assert.Equal(t, "0.85", stringify(0.85))
	assert.Equal(t, "a,b", stringify([]any{"a", "b"}))
	assert.Equal(t, "true", stringify(true))
	assert.Equal(t, "", stringify(nil))
}
