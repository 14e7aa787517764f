package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"inkwell-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Pipeline worker cadence and retry policy
	PipelinePollInterval time.Duration `envconfig:"PIPELINE_POLL_INTERVAL" default:"5s"`
	PipelinePoolSize     int           `envconfig:"PIPELINE_POOL_SIZE" default:"4"`
	PipelineBatchSize    int           `envconfig:"PIPELINE_BATCH_SIZE" default:"8"`
	MaxStageRetries      uint64        `envconfig:"MAX_STAGE_RETRIES" default:"3"`
	StageTimeout         time.Duration `envconfig:"STAGE_TIMEOUT" default:"2m"`

	// Folder embedding recompute cadence
	FolderPollInterval time.Duration `envconfig:"FOLDER_POLL_INTERVAL" default:"30s"`
	FolderBatchSize    int           `envconfig:"FOLDER_BATCH_SIZE" default:"20"`

	// Bootstrap: create initial organization and owner on startup
	InitOrgName   string `envconfig:"INIT_ORG_NAME"`
	InitOwnerUser string `envconfig:"INIT_OWNER_USER"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("INKWELL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
