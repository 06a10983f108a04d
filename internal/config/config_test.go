package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, found, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "adverse", cfg.Stress.DefaultScenario)
	assert.Equal(t, 1.0, cfg.Stress.DefaultSensitivity)
	assert.Equal(t, 4, cfg.Stress.CompareWorkers)
	assert.Equal(t, []string{"stdout"}, cfg.Logging.OutputPaths)
}

func TestLoad_ReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  environment: production
server:
  addr: ":9090"
  read_timeout: 3s
stress:
  scenarios_path: /etc/prudentia/scenarios.yaml
  compare_workers: 2
database:
  in_memory: true
logging:
  output_paths: "stdout,/tmp/prudentia.log"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("PRUDENTIA_STRESS_DEFAULT_SENSITIVITY", "1.5")

	cfg, found, err := Load(path)
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/etc/prudentia/scenarios.yaml", cfg.Stress.ScenariosPath)
	assert.Equal(t, 2, cfg.Stress.CompareWorkers)
	assert.Equal(t, 1.5, cfg.Stress.DefaultSensitivity)
	assert.True(t, cfg.Database.InMemory)
	assert.Equal(t, []string{"stdout", "/tmp/prudentia.log"}, cfg.Logging.OutputPaths)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.addr")
	assert.Contains(t, err.Error(), "stress.default_sensitivity")
	assert.Contains(t, err.Error(), "logging.level")
}
