package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreDriverMongoDB = "mongodb"
	StoreDriverMemory  = "memory"
)

// Operational cost sources.
const (
	CostSourceMongoDB = "mongodb"
	CostSourceSheets  = "sheets"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Store    StoreConfig
	MongoDB  MongoDBConfig
	Sheets   SheetsConfig
	HPP      HPPConfig
	Archive  ArchiveConfig
	Schedule ScheduleConfig
	WhatsApp WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port       string
	CronSecret string
}

// LogConfig holds logger options.
type LogConfig struct {
	Level string
}

// StoreConfig selects the persistence backends.
type StoreConfig struct {
	Driver     string
	CostSource string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to read operational costs
// from Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	CostsRange      string
}

// HPPConfig tunes the snapshot run.
type HPPConfig struct {
	TenantBatchSize int
	BatchDelay      time.Duration
	WarnThreshold   time.Duration
}

// ArchiveConfig tunes the archival run.
type ArchiveConfig struct {
	BatchSize      int
	BatchDelay     time.Duration
	RetentionYears int
}

// ScheduleConfig holds the in-process cron settings.
type ScheduleConfig struct {
	Enabled         bool
	SnapshotCron    string
	ArchiveCron     string
	Timezone        string
	SnapshotTimeout time.Duration
	ArchiveTimeout  time.Duration
}

// WhatsAppConfig contains credentials for run-summary notifications through
// the Meta WhatsApp Cloud API. Notifications are off when any field is empty.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	RecipientID   string
}

// Enabled reports whether notifications can be sent.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != "" && w.RecipientID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	var errs []error
	intVar := func(key string, fallback int) int {
		v, err := getenvInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durationVar := func(key string, fallback time.Duration) time.Duration {
		v, err := getenvDuration(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:       getenvWithDefault("APP_PORT", "8080"),
			CronSecret: os.Getenv("CRON_SECRET"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getenvWithDefault("STORE_DRIVER", StoreDriverMongoDB)),
			CostSource: strings.ToLower(getenvWithDefault("OPERATIONAL_COST_SOURCE", CostSourceMongoDB)),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "hpp"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			CostsRange:      getenvWithDefault("GOOGLE_SHEET_COSTS_RANGE", "OperationalCosts!A:G"),
		},
		HPP: HPPConfig{
			TenantBatchSize: intVar("HPP_TENANT_BATCH_SIZE", 10),
			BatchDelay:      durationVar("HPP_BATCH_DELAY", 100*time.Millisecond),
			WarnThreshold:   durationVar("HPP_WARN_THRESHOLD", 4*time.Minute),
		},
		Archive: ArchiveConfig{
			BatchSize:      intVar("ARCHIVE_BATCH_SIZE", 100),
			BatchDelay:     durationVar("ARCHIVE_BATCH_DELAY", 200*time.Millisecond),
			RetentionYears: intVar("ARCHIVE_RETENTION_YEARS", 1),
		},
		Schedule: ScheduleConfig{
			Enabled:         getenvWithDefault("SCHEDULER_ENABLED", "true") == "true",
			SnapshotCron:    getenvWithDefault("HPP_CRON_SCHEDULE", "0 1 * * *"),
			ArchiveCron:     getenvWithDefault("ARCHIVE_CRON_SCHEDULE", "0 3 1 * *"),
			Timezone:        getenvWithDefault("TIMEZONE", "UTC"),
			SnapshotTimeout: durationVar("HPP_JOB_TIMEOUT", 0),
			ArchiveTimeout:  durationVar("ARCHIVE_JOB_TIMEOUT", 0),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			RecipientID:   os.Getenv("WHATSAPP_REPORT_RECIPIENT"),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Server.CronSecret == "" {
		return errors.New("CRON_SECRET must be provided")
	}

	switch c.Store.Driver {
	case StoreDriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER %q is not supported", c.Store.Driver)
	}

	switch c.Store.CostSource {
	case CostSourceMongoDB:
		if c.Store.Driver != StoreDriverMongoDB {
			return errors.New("OPERATIONAL_COST_SOURCE=mongodb requires STORE_DRIVER=mongodb")
		}
	case CostSourceSheets:
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
	default:
		return fmt.Errorf("OPERATIONAL_COST_SOURCE %q is not supported", c.Store.CostSource)
	}

	if c.HPP.TenantBatchSize <= 0 {
		return errors.New("HPP_TENANT_BATCH_SIZE must be positive")
	}

	if c.Archive.BatchSize <= 0 {
		return errors.New("ARCHIVE_BATCH_SIZE must be positive")
	}

	if c.Archive.RetentionYears <= 0 {
		return errors.New("ARCHIVE_RETENTION_YEARS must be positive")
	}

	if c.Schedule.Enabled {
		if c.Schedule.SnapshotCron == "" {
			return errors.New("HPP_CRON_SCHEDULE must be provided")
		}
		if c.Schedule.ArchiveCron == "" {
			return errors.New("ARCHIVE_CRON_SCHEDULE must be provided")
		}
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Schedule.Timezone, err)
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
