// Package config loads application configuration from environment
// variables with an optional YAML overlay file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Environments.
const (
	Development = "development"
	Production  = "production"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`
	IsLambda      bool   `yaml:"is_lambda"`

	// Storage configuration
	StoreType       string `yaml:"store_type"`
	AWSRegion       string `yaml:"aws_region"`
	DynamoDBTable   string `yaml:"dynamodb_table"`
	EdgeTargetIndex string `yaml:"edge_target_index"` // GSI1 - incoming edge queries
	EdgeIDIndex     string `yaml:"edge_id_index"`     // GSI2 - direct edge id lookups

	// Graph behavior
	MaxTraversalDepth          int  `yaml:"max_traversal_depth"`
	DefaultRecommendationLimit int  `yaml:"default_recommendation_limit"`
	RejectPrerequisiteCycles   bool `yaml:"reject_prerequisite_cycles"`

	// Logging and observability
	LogLevel      string `yaml:"log_level"`
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`

	// HTTP behavior
	EnableCORS bool `yaml:"enable_cors"`
}

// LoadConfig loads configuration from environment variables, then applies
// the YAML overlay named by CONFIG_FILE when set.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", Development),
		IsLambda:      getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""),

		StoreType:       getEnv("STORE_TYPE", StoreMemory),
		AWSRegion:       getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:   getEnv("TABLE_NAME", "coursegraph"),
		EdgeTargetIndex: getEnv("EDGE_TARGET_INDEX", "EdgeTargetIndex"),
		EdgeIDIndex:     getEnv("EDGE_ID_INDEX", "EdgeIDIndex"),

		MaxTraversalDepth:          getEnvInt("MAX_TRAVERSAL_DEPTH", 10),
		DefaultRecommendationLimit: getEnvInt("DEFAULT_RECOMMENDATION_LIMIT", 5),
		RejectPrerequisiteCycles:   getEnvBool("REJECT_PREREQUISITE_CYCLES", true),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", "localhost:4317"),

		EnableCORS: getEnvBool("ENABLE_CORS", true),
	}

	if path := OverlayPath(); path != "" {
		if err := cfg.applyOverlay(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OverlayPath returns the YAML overlay file path from the environment, or
// empty when no overlay is configured.
func OverlayPath() string {
	return os.Getenv("CONFIG_FILE")
}

// applyOverlay merges a YAML file over the current values. Only keys
// present in the file change.
func (c *Config) applyOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.StoreType {
	case StoreMemory, StoreDynamoDB:
	default:
		return fmt.Errorf("unknown store type %q", c.StoreType)
	}
	if c.StoreType == StoreDynamoDB {
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb store")
		}
		if c.EdgeTargetIndex == "" || c.EdgeIDIndex == "" {
			return fmt.Errorf("EDGE_TARGET_INDEX and EDGE_ID_INDEX are required for the dynamodb store")
		}
	}
	if c.Environment == Production && c.StoreType == StoreMemory {
		return fmt.Errorf("the memory store is not supported in production")
	}
	if c.MaxTraversalDepth <= 0 {
		return fmt.Errorf("MAX_TRAVERSAL_DEPTH must be positive")
	}
	if c.DefaultRecommendationLimit <= 0 {
		return fmt.Errorf("DEFAULT_RECOMMENDATION_LIMIT must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
