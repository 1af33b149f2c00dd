package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration loaded from environment variables
// and an optional config.yaml.
type Config struct {
	Port           string
	PostgresDSN    string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPassword  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	ImageURLTTL    time.Duration

	LogLevel  string
	LogFormat string

	MaxUploadMB    int64
	AuthRPS        float64
	AuthBurst      int
	CORSOrigins    []string
	TrustedProxies []string
	CookieSecure   bool
}

// Load reads configuration. configFile may be empty, in which case
// config.yaml is looked up in ./config and the working directory.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_db", "blog")
	v.SetDefault("redis_addr", "redis:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("minio_endpoint", "minio:9000")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "post-images")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("image_url_ttl", "1h")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("auth_rps", 1.0)
	v.SetDefault("auth_burst", 5)
	v.SetDefault("cors_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("trusted_proxies", "")
	v.SetDefault("cookie_secure", false)

	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath("config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		Port:           v.GetString("port"),
		PostgresDSN:    v.GetString("postgres_dsn"),
		MongoURI:       v.GetString("mongo_uri"),
		MongoDB:        v.GetString("mongo_db"),
		RedisAddr:      v.GetString("redis_addr"),
		RedisPassword:  v.GetString("redis_password"),
		MinioEndpoint:  v.GetString("minio_endpoint"),
		MinioAccessKey: v.GetString("minio_access_key"),
		MinioSecretKey: v.GetString("minio_secret_key"),
		MinioBucket:    v.GetString("minio_bucket"),
		MinioUseSSL:    v.GetBool("minio_use_ssl"),
		ImageURLTTL:    v.GetDuration("image_url_ttl"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
		MaxUploadMB:    v.GetInt64("max_upload_mb"),
		AuthRPS:        v.GetFloat64("auth_rps"),
		AuthBurst:      v.GetInt("auth_burst"),
		CORSOrigins:    splitList(v.GetString("cors_origins")),
		TrustedProxies: splitList(v.GetString("trusted_proxies")),
		CookieSecure:   v.GetBool("cookie_secure"),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
