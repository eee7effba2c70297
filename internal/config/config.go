package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"wardrobe/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Rental     RentalConfig     `yaml:"rental"`
	Storage    StorageConfig    `yaml:"storage"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Desk       DeskConfig       `yaml:"desk"`
	Bot        BotConfig        `yaml:"bot"`
}

type BotConfig struct {
	PaginationSize    int `yaml:"pagination_size"`
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

type APIConfig struct {
	Enabled           bool               `yaml:"enabled"`
	HTTP              APIHTTPConfig      `yaml:"http"`
	GRPC              APIGRPCConfig      `yaml:"grpc"`
	Auth              APIAuthConfig      `yaml:"auth"`
	JWT               JWTConfig          `yaml:"jwt"`
	RateLimit         APIRateLimitConfig `yaml:"rate_limit"`
	IdempotencyTTLSec int                `yaml:"idempotency_ttl_seconds"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

// APIAuthConfig guards the API with per-client keys in front of user tokens.
type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type JWTConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	TTLHours int    `yaml:"ttl_hours"`
}

type APIRateLimitConfig struct {
	RPS           float64 `yaml:"rps"`
	Burst         int     `yaml:"burst"`
	PerPrincipal  int     `yaml:"per_principal"`
	WindowSeconds int     `yaml:"window_seconds"`
}

type RentalConfig struct {
	DepositTotal      int64 `yaml:"deposit_total"`
	OverdueGraceHours int   `yaml:"overdue_grace_hours"`
}

type StorageConfig struct {
	Backend        string `yaml:"backend"`
	LocalPath      string `yaml:"local_path"`
	PublicPrefix   string `yaml:"public_prefix"`
	RemoteURL      string `yaml:"remote_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxPhotos      int    `yaml:"max_photos"`
	MaxFileSizeMB  int    `yaml:"max_file_size_mb"`
}

type SchedulerConfig struct {
	OverdueSpec string `yaml:"overdue_spec"`
	BackupSpec  string `yaml:"backup_spec"`
	ReportSpec  string `yaml:"report_spec"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	CredentialsFile     string `yaml:"credentials_file"`
	LedgerSpreadsheetID string `yaml:"ledger_spreadsheet_id"`
}

// DeskConfig lists the arbitration desk: who may settle disputes through the
// bot and which chats receive desk notifications.
type DeskConfig struct {
	Arbitrators   []DeskArbitrator `yaml:"arbitrators"`
	NotifyChatIDs []int64          `yaml:"notify_chat_ids"`
}

type DeskArbitrator struct {
	TelegramID int64 `yaml:"telegram_id"`
	UserID     int64 `yaml:"user_id"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.Enabled && c.API.JWT.Secret == "" {
		return errors.New("api.jwt.secret is required when api is enabled")
	}

	if c.Rental.DepositTotal <= 0 {
		return errors.New("rental.deposit_total must be positive")
	}

	switch c.Storage.Backend {
	case "local":
	case "remote":
		if c.Storage.RemoteURL == "" {
			return errors.New("storage.remote_url is required for remote backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	return ValidateArbitrators(c.Desk.Arbitrators)
}

func ValidateArbitrators(arbitrators []DeskArbitrator) error {
	seen := make(map[int64]bool)
	for _, a := range arbitrators {
		if a.TelegramID == 0 || a.UserID == 0 {
			return fmt.Errorf("arbitrator entry needs telegram_id and user_id: %+v", a)
		}
		if seen[a.TelegramID] {
			return fmt.Errorf("duplicate arbitrator telegram id: %d", a.TelegramID)
		}
		seen[a.TelegramID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.JWT.Issuer == "" {
		c.API.JWT.Issuer = "wardrobe"
	}
	if c.API.JWT.TTLHours == 0 {
		c.API.JWT.TTLHours = 24
	}
	if c.API.RateLimit.PerPrincipal == 0 {
		c.API.RateLimit.PerPrincipal = models.RateLimitRequests
	}
	if c.API.RateLimit.WindowSeconds == 0 {
		c.API.RateLimit.WindowSeconds = models.RateLimitWindow
	}
	if c.API.IdempotencyTTLSec == 0 {
		c.API.IdempotencyTTLSec = models.DefaultIdempotencyTTL
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Rental.DepositTotal == 0 {
		c.Rental.DepositTotal = models.DefaultDepositTotal
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = "local"
	}
	if c.Storage.LocalPath == "" {
		c.Storage.LocalPath = "uploads/returns"
	}
	if c.Storage.PublicPrefix == "" {
		c.Storage.PublicPrefix = models.DefaultPhotoPrefix
	}
	if c.Storage.TimeoutSeconds == 0 {
		c.Storage.TimeoutSeconds = 10
	}
	if c.Storage.MaxPhotos == 0 {
		c.Storage.MaxPhotos = models.MaxPhotosPerUpload
	}
	if c.Storage.MaxFileSizeMB == 0 {
		c.Storage.MaxFileSizeMB = models.MaxPhotoSize >> 20
	}

	if c.Scheduler.OverdueSpec == "" {
		c.Scheduler.OverdueSpec = "0 0 9 * * *"
	}
	if c.Scheduler.BackupSpec == "" {
		c.Scheduler.BackupSpec = "0 30 3 * * *"
	}
	if c.Scheduler.ReportSpec == "" {
		c.Scheduler.ReportSpec = "0 0 7 * * MON"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}

	if c.Bot.PaginationSize == 0 {
		c.Bot.PaginationSize = models.DefaultPaginationSize
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitRequests
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
}
