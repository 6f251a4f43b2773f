package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, "none", cfg.VisionBackend)
	assert.Equal(t, "local", cfg.PhotoBackend)
	assert.Equal(t, int64(10<<20), cfg.PhotoMaxBytes)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("VISION_BACKEND", "claude")
	t.Setenv("CLAUDE_API_KEY", "sk-test123")
	t.Setenv("PHOTO_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "appliance-photos")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("S3_PATH_STYLE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "claude", cfg.VisionBackend)
	assert.Equal(t, "sk-test123", cfg.ClaudeAPIKey)
	assert.Equal(t, "appliance-photos", cfg.S3.Bucket)
	assert.Equal(t, "http://minio:9000", cfg.S3.Endpoint)
	assert.True(t, cfg.S3.PathStyle)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"s3 without bucket", map[string]string{"PHOTO_BACKEND": "s3"}},
		{"unknown photo backend", map[string]string{"PHOTO_BACKEND": "ftp"}},
		{"claude without key", map[string]string{"VISION_BACKEND": "claude"}},
		{"unknown vision backend", map[string]string{"VISION_BACKEND": "magic"}},
		{"bad upload limit", map[string]string{"PHOTO_MAX_BYTES": "0"}},
		{"unparseable bool", map[string]string{"S3_PATH_STYLE": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
