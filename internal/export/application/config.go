package application

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"zaehlerwerk/internal/export/interfaces/workbook"
)

// Config defines the export run configuration.
type Config struct {
	SourceBaseDir string   `yaml:"source_base_dir"`
	TargetBaseDir string   `yaml:"target_base_dir"`
	Folders       []string `yaml:"folders"`
	ImageMode     string   `yaml:"image_mode"`
	PruneImages   bool     `yaml:"prune_images"`
	KeepWorkbooks int      `yaml:"keep_workbooks"`
	DatabaseURL   string   `yaml:"database_url"`
	WebhookURL    string   `yaml:"webhook_url"`
	HTTPAddr      string   `yaml:"http_addr"`
	DailyAt       string   `yaml:"daily_at"`
}

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		SourceBaseDir: getenvDefault("SOURCE_BASE_DIR", filepath.FromSlash("var/sync")),
		TargetBaseDir: getenvDefault("TARGET_BASE_DIR", filepath.FromSlash("var/reports")),
		Folders:       splitCSV(os.Getenv("FOLDERS")),
		ImageMode:     getenvDefault("IMAGE_MODE", "copy"),
		PruneImages:   getenvBoolDefault("PRUNE_IMAGES", false),
		KeepWorkbooks: getenvIntDefault("KEEP_WORKBOOKS", workbook.DefaultKeepWorkbooks),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		HTTPAddr:      getenvDefault("HTTP_ADDR", ":8080"),
	}

	if path := os.Getenv("CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DailyAt == "" {
		cfg.DailyAt = os.Getenv("DAILY_AT")
	}
	if cfg.KeepWorkbooks < 1 {
		cfg.KeepWorkbooks = workbook.DefaultKeepWorkbooks
	}
	if cfg.SourceBaseDir == "" {
		return cfg, errors.New("export config: source base dir required")
	}
	if cfg.TargetBaseDir == "" {
		return cfg, errors.New("export config: target base dir required")
	}
	if len(cfg.Folders) == 0 {
		return cfg, errors.New("export config: no folders configured")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
