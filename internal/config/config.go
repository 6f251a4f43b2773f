package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":8080"`
	DBPath        string `env:"DB_PATH" envDefault:"/data/applicheck.db"`
	DefaultOrg    string `env:"DEFAULT_ORG" envDefault:"default"`
	VisionBackend string `env:"VISION_BACKEND" envDefault:"none"`
	OllamaHost    string `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OllamaModel   string `env:"OLLAMA_MODEL" envDefault:"llava"`
	ClaudeAPIKey  string `env:"CLAUDE_API_KEY"`
	ClaudeModel   string `env:"CLAUDE_MODEL" envDefault:"claude-sonnet-4-5"`
	PhotoBackend  string `env:"PHOTO_BACKEND" envDefault:"local"`
	PhotoPath     string `env:"PHOTO_LOCAL_PATH" envDefault:"/data/photos"`
	PhotoMaxBytes int64  `env:"PHOTO_MAX_BYTES" envDefault:"10485760"`
	S3            S3Config
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
}

type S3Config struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	PathStyle       bool   `env:"S3_PATH_STYLE" envDefault:"false"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.PhotoBackend {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when PHOTO_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown PHOTO_BACKEND %q", c.PhotoBackend)
	}
	switch c.VisionBackend {
	case "none", "ollama":
	case "claude":
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
		}
	default:
		return fmt.Errorf("unknown VISION_BACKEND %q", c.VisionBackend)
	}
	if c.PhotoMaxBytes <= 0 {
		return fmt.Errorf("PHOTO_MAX_BYTES must be positive")
	}
	return nil
}
