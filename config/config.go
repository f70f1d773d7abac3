// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels    = []string{"debug", "info", "warn", "error"}
	validLogFormats   = []string{"console", "json"}
	validDrivers      = []string{"sqlite", "postgres"}
	validStorageTypes = []string{"local", "s3", "minio"}
	validSessionTypes = []string{"memory", "redis"}
)

// Flags registers the command line flags Setup understands on fs
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config.toml file")
	fs.String("log-level", "", "Overrides app.log_level")
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that. A missing config file is fine, defaults and environment
// variables are used instead.
func Setup(fs *pflag.FlagSet) error {
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}

		if f := fs.Lookup("log-level"); f != nil && f.Changed {
			v.Set("app.log_level", f.Value.String())
		}
	}

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")
	v.BindEnv("app.log_format", "APP_LOG_FORMAT")
	v.BindEnv("app.log_file", "APP_LOG_FILE")

	v.BindEnv("host.port", "HOST_PORT")
	v.BindEnv("host.cors_origins", "HOST_CORS_ORIGINS")
	v.BindEnv("host.secure_cookies", "HOST_SECURE_COOKIES")

	v.BindEnv("db.driver", "DB_DRIVER")
	v.BindEnv("db.dsn", "DB_DSN")

	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.local.dir", "STORAGE_LOCAL_DIR")

	v.BindEnv("aws.access_key", "AWS_ACCESS_KEY")
	v.BindEnv("aws.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("aws.region", "AWS_REGION")
	v.BindEnv("aws.bucket", "AWS_BUCKET")
	v.BindEnv("aws.endpoint", "AWS_ENDPOINT")
	v.BindEnv("cloudflare.account_id", "CLOUDFLARE_ACCOUNT_ID")

	v.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("minio.bucket", "MINIO_BUCKET")
	v.BindEnv("minio.use_ssl", "MINIO_USE_SSL")
	v.BindEnv("minio.region", "MINIO_REGION")

	v.BindEnv("upload.max_size", "UPLOAD_MAX_SIZE")
	v.BindEnv("upload.max_files", "UPLOAD_MAX_FILES")

	v.BindEnv("security.rate_limit", "SECURITY_RATE_LIMIT")

	v.BindEnv("session.store", "SESSION_STORE")
	v.BindEnv("session.ttl", "SESSION_TTL")

	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	v.BindEnv("cache.geometry_ttl", "CACHE_GEOMETRY_TTL")
	v.BindEnv("cleanup.schedule", "CLEANUP_SCHEDULE")
	v.BindEnv("cleanup.grace", "CLEANUP_GRACE")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")
	v.SetDefault("app.log_max_size", 50)
	v.SetDefault("app.log_max_backups", 3)
	v.SetDefault("app.log_max_age", 28)

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("host.secure_cookies", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "tracks.db")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.dir", "gpx_uploads")

	v.SetDefault("minio.use_ssl", true)

	v.SetDefault("upload.max_size", 20)
	v.SetDefault("upload.max_files", 20)

	v.SetDefault("security.rate_limit", 20)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", "24h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.geometry_ttl", "10m")
	v.SetDefault("cleanup.schedule", "")
	v.SetDefault("cleanup.grace", "1h")

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if err := validate(); err != nil {
		return err
	}

	// upload.max_size stays in MB so running Setup again gives the same result
	v.Set("upload.max_size_bytes", v.GetInt64("upload.max_size")<<20)
	return nil
}

func validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if !slices.Contains(validLogFormats, v.GetString("app.log_format")) {
		return errors.New("invalid log format provided")
	}

	if v.GetInt("host.port") <= 0 || v.GetInt("host.port") > 65535 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if strings.TrimSpace(v.GetString("db.dsn")) == "" {
		return errors.New("db.dsn can't be empty")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetInt("upload.max_files") <= 0 {
		return errors.New("upload.max_files must be bigger than 0")
	}

	if v.GetInt("security.rate_limit") < 0 {
		return errors.New("security.rate_limit can't be negative")
	}

	if v.GetDuration("cleanup.grace") < 0 {
		return errors.New("cleanup.grace can't be negative")
	}

	switch v.GetString("storage.type") {
	case "local":
		if v.GetString("storage.local.dir") == "" {
			return errors.New("storage.local.dir can't be empty")
		}
	case "s3":
		if v.GetString("aws.access_key") == "" {
			return errors.New("aws access key can't be empty")
		}
		if v.GetString("aws.secret_access_key") == "" {
			return errors.New("aws secret access key can't be empty")
		}
		if v.GetString("aws.bucket") == "" {
			return errors.New("aws bucket can't be empty")
		}
		if v.GetString("aws.region") == "" && v.GetString("cloudflare.account_id") == "" {
			return errors.New("aws region can't be empty")
		}
	case "minio":
		if v.GetString("minio.endpoint") == "" {
			return errors.New("minio endpoint can't be empty")
		}
		if v.GetString("minio.access_key") == "" || v.GetString("minio.secret_key") == "" {
			return errors.New("minio credentials can't be empty")
		}
		if v.GetString("minio.bucket") == "" {
			return errors.New("minio bucket can't be empty")
		}
	}

	if !slices.Contains(validStorageTypes, v.GetString("storage.type")) {
		return errors.New("invalid storage type provided")
	}

	if !slices.Contains(validSessionTypes, v.GetString("session.store")) {
		return errors.New("invalid session store provided")
	}

	if v.GetString("session.store") == "redis" && v.GetString("redis.addr") == "" {
		return errors.New("redis.addr can't be empty")
	}

	return nil
}
