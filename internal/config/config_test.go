package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development", Name: "BookBridge"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{Dir: "/var/lib/bookbridge", DatabasePath: "/var/lib/bookbridge/bookbridge.db"},
		Server: ServerConfig{Port: "8080"},
		Auth: AuthConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 720 * time.Hour,
		},
		Navigation: NavigationConfig{
			RefreshInterval:   30 * time.Second,
			HeartbeatInterval: 15 * time.Second,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Environments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"PRODUCTION", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_LogLevelAndFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "WARN"
	assert.NoError(t, cfg.Validate())

	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Logger.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidate_Port(t *testing.T) {
	for _, port := range []string{"0", "70000", "http", ""} {
		cfg := validConfig()
		cfg.Server.Port = port
		assert.Error(t, cfg.Validate(), "port %q should be rejected", port)
	}
}

func TestValidate_Durations(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.RefreshTokenDuration = time.Minute
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Navigation.RefreshInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	got, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	got, err = expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)

	got, err = expandPath("relative/dir", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestExpandDataPaths_DefaultsDatabaseUnderDataDir(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.Data = DataConfig{Dir: dir}

	require.NoError(t, cfg.expandDataPaths())
	assert.Equal(t, filepath.Join(dir, "bookbridge.db"), cfg.Data.DatabasePath)
	assert.Equal(t, filepath.Join(dir, "watermarks"), cfg.Data.WatermarkPath())
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("BB_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "BB_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "BB_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "BB_TEST_MISSING", "default"))
}

func TestTypedConfigValues(t *testing.T) {
	t.Setenv("BB_BOOL", "Yes")
	t.Setenv("BB_INT", "nope")
	t.Setenv("BB_FLOAT", "0.5")

	assert.True(t, getBoolConfigValue("", "BB_BOOL", false))
	assert.Equal(t, 7, getIntConfigValue("", "BB_INT", 7))
	assert.InDelta(t, 0.5, getFloatConfigValue("", "BB_FLOAT", 1), 1e-9)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nBB_ENV_A=\"quoted\"\n\nBB_ENV_B=plain\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("BB_ENV_B", "preset")
	t.Setenv("BB_ENV_A", "")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "quoted", os.Getenv("BB_ENV_A"))
	assert.Equal(t, "preset", os.Getenv("BB_ENV_B"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT_A_PAIR\n"), 0o600))
	assert.Error(t, loadEnvFile(path))
}
