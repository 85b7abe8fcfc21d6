package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CLUSTERPLAN_HOME", "STORE_BACKEND", "S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY",
		"S3_SECRET_KEY", "S3_BUCKET", "S3_PREFIX", "DATABASE_URL", "CATALOG_PATH",
		"BUNDLES_DIR", "LOG_LEVEL", "SERVICE_NAME", "HTTP_LISTEN_ADDR", "METRICS_LISTEN_ADDR",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLUSTERPLAN_HOME", "/var/lib/clusterplan")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/clusterplan", cfg.Home)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, filepath.Join("/var/lib/clusterplan", "bundles"), cfg.BundlesDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8095", cfg.HTTPListenAddr)
	assert.Equal(t, ":9095", cfg.MetricsListenAddr)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "clusters/", cfg.S3Prefix)
	assert.Equal(t, "", cfg.CatalogPath)
}

func TestLoad_HomeFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", "/home/ops")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/ops", ".clusterplan"), cfg.Home)
}

func TestLoad_AllEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLUSTERPLAN_HOME", "/srv/cp")
	t.Setenv("STORE_BACKEND", "s3")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("S3_REGION", "eu-north-1")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")
	t.Setenv("S3_BUCKET", "topologies")
	t.Setenv("S3_PREFIX", "prod/")
	t.Setenv("CATALOG_PATH", "/etc/clusterplan/catalog.yaml")
	t.Setenv("BUNDLES_DIR", "/opt/bundles")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HTTP_LISTEN_ADDR", ":8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendS3, cfg.StoreBackend)
	assert.Equal(t, "http://minio:9000", cfg.S3Endpoint)
	assert.Equal(t, "eu-north-1", cfg.S3Region)
	assert.Equal(t, "ak", cfg.S3AccessKey)
	assert.Equal(t, "sk", cfg.S3SecretKey)
	assert.Equal(t, "topologies", cfg.S3Bucket)
	assert.Equal(t, "prod/", cfg.S3Prefix)
	assert.Equal(t, "/etc/clusterplan/catalog.yaml", cfg.CatalogPath)
	assert.Equal(t, "/opt/bundles", cfg.BundlesDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"file", Config{StoreBackend: BackendFile, Home: "/tmp/cp"}, ""},
		{"s3 without bucket", Config{StoreBackend: BackendS3}, "S3_BUCKET"},
		{"s3", Config{StoreBackend: BackendS3, S3Bucket: "b"}, ""},
		{"postgres without url", Config{StoreBackend: BackendPostgres}, "DATABASE_URL"},
		{"postgres", Config{StoreBackend: BackendPostgres, DatabaseURL: "postgres://localhost/cp"}, ""},
		{"unknown", Config{StoreBackend: "etcd"}, "unknown STORE_BACKEND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
