package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

type Config struct {
	// Home is the directory holding cluster snapshots for the file backend
	// and the CLI state.
	Home         string
	StoreBackend string

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string

	DatabaseURL string

	// CatalogPath overrides the embedded service catalog.
	CatalogPath string
	BundlesDir  string

	LogLevel          string
	ServiceName       string
	HTTPListenAddr    string
	MetricsListenAddr string

	HTTPTLSCert     string
	HTTPTLSKey      string
	HTTPTLSClientCA string
}

func Load() (*Config, error) {
	home := getEnv("CLUSTERPLAN_HOME", "")
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		home = filepath.Join(dir, ".clusterplan")
	}

	cfg := &Config{
		Home:              home,
		StoreBackend:      getEnv("STORE_BACKEND", BackendFile),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", "clusters/"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		CatalogPath:       getEnv("CATALOG_PATH", ""),
		BundlesDir:        getEnv("BUNDLES_DIR", filepath.Join(home, "bundles")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ServiceName:       getEnv("SERVICE_NAME", "clusterplan"),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8095"),
		MetricsListenAddr: getEnv("METRICS_LISTEN_ADDR", ":9095"),
		HTTPTLSCert:       getEnv("HTTP_TLS_CERT", ""),
		HTTPTLSKey:        getEnv("HTTP_TLS_KEY", ""),
		HTTPTLSClientCA:   getEnv("HTTP_TLS_CLIENT_CA", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected store backend is fully configured.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile:
		if c.Home == "" {
			return fmt.Errorf("CLUSTERPLAN_HOME is required for the file store")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 store")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
