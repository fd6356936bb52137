package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-seqlog/pkg/logging"
	"github.com/dd0wney/cluso-seqlog/pkg/navigator"
	"github.com/dd0wney/cluso-seqlog/pkg/persistence"
	"github.com/dd0wney/cluso-seqlog/pkg/wal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seqlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDataDir, "")
	t.Setenv(EnvMaxEntrySeek, "")
	t.Setenv(EnvLogLevel, "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, navigator.DefaultMaxEntrySeek, cfg.MaxEntrySeek)
	assert.Equal(t, persistence.BackendFile, cfg.BackendType())
	assert.Equal(t, logging.InfoLevel, cfg.Level())

	compression, err := cfg.CompressionType()
	require.NoError(t, err)
	assert.Equal(t, wal.CompressionNone, compression)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
data_dir: /var/lib/seqlog
max_entry_seek: 64
compression: zstd
sync_on_append: true
log_level: debug
metrics_addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/seqlog", cfg.DataDir)
	assert.Equal(t, 64, cfg.MaxEntrySeek)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.True(t, cfg.SyncOnAppend)
	assert.Equal(t, "file", cfg.Backend, "unset fields take defaults")
	assert.Equal(t, logging.DebugLevel, cfg.Level())
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "data_dir: /from/file\nmax_entry_seek: 8\n")
	t.Setenv(EnvDataDir, "/from/env")
	t.Setenv(EnvMaxEntrySeek, "32")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, 32, cfg.MaxEntrySeek)
	assert.Equal(t, "warn", cfg.LogLevel)

	t.Setenv(EnvMaxEntrySeek, "lots")
	_, err = Load(path)
	assert.ErrorContains(t, err, EnvMaxEntrySeek)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load(writeConfig(t, "data_dir: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestLoad_RejectsNonPositiveSeek(t *testing.T) {
	clearEnv(t)

	for _, body := range []string{"max_entry_seek: -5\n", "max_entry_seek: 0\n"} {
		cfg, err := Load(writeConfig(t, body))
		assert.Nil(t, cfg, body)
		assert.ErrorContains(t, err, "MaxEntrySeek", body)
	}

	t.Setenv(EnvMaxEntrySeek, "-7")
	cfg, err := Load("")
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "MaxEntrySeek")

	t.Setenv(EnvMaxEntrySeek, "0")
	_, err = Load(writeConfig(t, "max_entry_seek: 64\n"))
	assert.ErrorContains(t, err, "MaxEntrySeek")
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, DefaultConfig(), cfg)

	cfg = &Config{MaxEntrySeek: -3}
	cfg.ApplyDefaults()
	assert.Equal(t, -3, cfg.MaxEntrySeek, "negative seek is not replaced")
	assert.ErrorContains(t, cfg.Validate(), "MaxEntrySeek")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown compression", func(c *Config) { c.Compression = "brotli" }, "Compression"},
		{"unknown backend", func(c *Config) { c.Backend = "s3" }, "Backend"},
		{"unknown level", func(c *Config) { c.LogLevel = "trace" }, "LogLevel"},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "DataDir"},
		{"zero seek", func(c *Config) { c.MaxEntrySeek = 0 }, "MaxEntrySeek"},
		{"negative seek", func(c *Config) { c.MaxEntrySeek = -1 }, "MaxEntrySeek"},
		{"huge seek", func(c *Config) { c.MaxEntrySeek = MaxEntrySeekLimit + 1 }, "MaxEntrySeek"},
		{"bad metrics addr", func(c *Config) { c.MetricsAddr = "localhost" }, "MetricsAddr"},
		{"mmap with sync", func(c *Config) {
			c.Backend = "mmap"
			c.SyncOnAppend = true
		}, "read-only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	cfg.Compression = "snappy"
	cfg.MaxEntrySeek = 16

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
