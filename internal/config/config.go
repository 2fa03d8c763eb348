package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/simjak/docling/internal/logger"
)

// Config carries the environment-driven settings for the conversion pipeline.
// Flags on individual commands override these values.
type Config struct {
	// OCR stage
	OCREnabled       bool
	OCREngine        string // tesseract, vision, docai
	OCRLanguages     []string
	OCRScale         float64
	OCRTimeout       time.Duration
	ForceFullPageOCR bool

	// Tesseract CLI engine
	TesseractCmd string
	TessdataDir  string

	// Google Cloud engines (vision, docai)
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	timeoutSecs, err := getEnvInt("OCR_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	scale, err := getEnvFloat("OCR_SCALE", 3)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config := &Config{
		OCREnabled:       getEnvBool("OCR_ENABLED", true),
		OCREngine:        getEnv("OCR_ENGINE", "tesseract"),
		OCRLanguages:     splitList(getEnv("OCR_LANGUAGES", "eng")),
		OCRScale:         scale,
		OCRTimeout:       time.Duration(timeoutSecs) * time.Second,
		ForceFullPageOCR: getEnvBool("OCR_FORCE_FULL_PAGE", false),

		TesseractCmd: getEnv("TESSERACT_CMD", "tesseract"),
		TessdataDir:  getEnv("TESSDATA_DIR", ""),

		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.OCREngine {
	case "tesseract", "vision", "docai":
	default:
		return fmt.Errorf("OCR_ENGINE must be one of tesseract, vision, docai (got %q)", c.OCREngine)
	}
	if c.OCRScale <= 0 {
		return fmt.Errorf("OCR_SCALE must be positive (got %v)", c.OCRScale)
	}
	if c.OCRTimeout <= 0 {
		return fmt.Errorf("OCR_TIMEOUT_SECONDS must be positive (got %v)", c.OCRTimeout)
	}
	if c.OCREnabled && c.TesseractCmd == "" && c.OCREngine == "tesseract" {
		return fmt.Errorf("TESSERACT_CMD must not be empty when the tesseract engine is selected")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", key, value)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number (got %q)", key, value)
	}
	return parsed, nil
}

// splitList splits a comma-separated env value into trimmed entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
