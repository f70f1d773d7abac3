package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestSetup_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Setup(flags(t)))

	assert.Equal(t, "info", viper.GetString("app.log_level"))
	assert.Equal(t, 8080, viper.GetInt("host.port"))
	assert.Equal(t, "sqlite", viper.GetString("db.driver"))
	assert.Equal(t, "local", viper.GetString("storage.type"))
	assert.Equal(t, "gpx_uploads", viper.GetString("storage.local.dir"))
	assert.Equal(t, 20, viper.GetInt("upload.max_size"))
	assert.Equal(t, int64(20<<20), viper.GetInt64("upload.max_size_bytes"))
	assert.Equal(t, 24*time.Hour, viper.GetDuration("session.ttl"))
}

func TestSetup_Repeated(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Setup(flags(t)))
	require.NoError(t, Setup(flags(t)))

	assert.Equal(t, 20, viper.GetInt("upload.max_size"))
	assert.Equal(t, int64(20<<20), viper.GetInt64("upload.max_size_bytes"))
}

func TestSetup_FileEnvAndFlags(t *testing.T) {
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[host]
port = 9000

[upload]
max_size = 5

[storage.local]
dir = "/srv/gpx"
`), 0o644))

	t.Setenv("DB_DSN", "/data/tracks.db")

	require.NoError(t, Setup(flags(t, "--config", path, "--log-level", "debug")))

	assert.Equal(t, 9000, viper.GetInt("host.port"))
	assert.Equal(t, int64(5<<20), viper.GetInt64("upload.max_size_bytes"))
	assert.Equal(t, "/srv/gpx", viper.GetString("storage.local.dir"))
	assert.Equal(t, "/data/tracks.db", viper.GetString("db.dsn"))
	assert.Equal(t, "debug", viper.GetString("app.log_level"))
}

func TestSetup_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"log level":     {"APP_LOG_LEVEL": "loud"},
		"port":          {"HOST_PORT": "0"},
		"driver":        {"DB_DRIVER": "oracle"},
		"storage":       {"STORAGE_TYPE": "ftp"},
		"s3 missing":    {"STORAGE_TYPE": "s3"},
		"minio missing": {"STORAGE_TYPE": "minio", "MINIO_ENDPOINT": "localhost:9000"},
		"session store": {"SESSION_STORE": "memcached"},
		"upload size":   {"UPLOAD_MAX_SIZE": "0"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			for k, val := range env {
				t.Setenv(k, val)
			}

			assert.Error(t, Setup(nil))
		})
	}
}
