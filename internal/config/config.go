package config

import (
	"os"
	"strconv"

	"studyqc/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Ops      OpsConfig
	Study    StudyConfig
	Batch    BatchConfig
}

// DatabaseConfig holds run-history storage settings. Persistence is
// optional: with no DATABASE_URL the service runs file-to-file only.
type DatabaseConfig struct {
	URL     string
	Enabled bool
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// OpsConfig holds the operational sidecar settings (health and pprof)
type OpsConfig struct {
	Port    string
	Enabled bool
}

// StudyConfig holds the default workbook layout for file-based runs
type StudyConfig struct {
	Workbook     string
	DataSheet    string
	ChangeSheet  string
	WarningSheet string
	DictSheet    string
	OutputDir    string
}

// BatchConfig holds multi-study batch settings
type BatchConfig struct {
	Concurrency int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		Ops:      loadOpsConfig(),
		Study:    loadStudyConfig(),
		Batch:    loadBatchConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	url := os.Getenv("DATABASE_URL")
	return DatabaseConfig{
		URL:     url,
		Enabled: url != "",
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadOpsConfig() OpsConfig {
	return OpsConfig{
		Port:    getEnvOrDefault("OPS_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
	}
}

func loadStudyConfig() StudyConfig {
	return StudyConfig{
		Workbook:     getEnvOrDefault("QC_WORKBOOK", ""),
		DataSheet:    getEnvOrDefault("QC_DATA_SHEET", "data"),
		ChangeSheet:  getEnvOrDefault("QC_CHANGE_SHEET", "changes"),
		WarningSheet: getEnvOrDefault("QC_WARNING_SHEET", "warnings"),
		DictSheet:    getEnvOrDefault("QC_DICT_SHEET", "dictionary"),
		OutputDir:    getEnvOrDefault("QC_OUTPUT_DIR", "out"),
	}
}

func loadBatchConfig() BatchConfig {
	return BatchConfig{
		Concurrency: getEnvIntOrDefault("QC_BATCH_CONCURRENCY", 4),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	if config.Batch.Concurrency < 1 {
		return errors.ConfigInvalid("QC_BATCH_CONCURRENCY must be at least 1")
	}
	if config.Study.DataSheet == "" || config.Study.ChangeSheet == "" ||
		config.Study.WarningSheet == "" || config.Study.DictSheet == "" {
		return errors.ConfigInvalid("workbook sheet names must not be empty")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
