package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"villastay/internal/models"
	"villastay/internal/pricing"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	RefundPolicyAdmin     = "admin"
	RefundPolicyPublished = "published"
)

type Config struct {
	App           AppConfig          `yaml:"app"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Backup        BackupConfig       `yaml:"backup"`
	Monitoring    MonitoringConfig   `yaml:"monitoring"`
	Logging       LoggingConfig      `yaml:"logging"`
	API           APIConfig          `yaml:"api"`
	Exports       ExportConfig       `yaml:"exports"`
	Pricing       PricingConfig      `yaml:"pricing"`
	Cancellation  CancellationConfig `yaml:"cancellation"`
	Notifications NotificationConfig `yaml:"notifications"`
	Worker        WorkerConfig       `yaml:"worker"`
	Rooms         []models.Room      `yaml:"rooms"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
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

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
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
	Schedule      string `yaml:"schedule"`
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

type PricingConfig struct {
	TaxRatePercent string         `yaml:"tax_rate_percent"`
	Currency       string         `yaml:"currency"`
	RefundPolicy   string         `yaml:"refund_policy"`
	RefundTiers    []pricing.Tier `yaml:"refund_tiers"`
}

type CancellationConfig struct {
	QuoteTTL time.Duration `yaml:"quote_ttl"`
}

type NotificationConfig struct {
	Mailjet  MailjetConfig  `yaml:"mailjet"`
	Telegram TelegramConfig `yaml:"telegram"`
	Sheets   SheetsConfig   `yaml:"sheets"`
}

type MailjetConfig struct {
	APIKeyPublic  string `yaml:"api_key_public"`
	APIKeyPrivate string `yaml:"api_key_private"`
	SenderEmail   string `yaml:"sender_email"`
	SenderName    string `yaml:"sender_name"`
}

func (m MailjetConfig) Configured() bool {
	return m.APIKeyPublic != "" && m.APIKeyPrivate != "" && m.SenderEmail != ""
}

type TelegramConfig struct {
	BotToken       string  `yaml:"bot_token"`
	ManagerChatIDs []int64 `yaml:"manager_chat_ids"`
	Debug          bool    `yaml:"debug"`
}

func (t TelegramConfig) Configured() bool {
	return t.BotToken != "" && len(t.ManagerChatIDs) > 0
}

// SheetsConfig points the booking mirror at a Google spreadsheet.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

func (s SheetsConfig) Configured() bool {
	return s.CredentialsFile != "" && s.SpreadsheetID != ""
}

type WorkerConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
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

	if _, err := c.TaxRate(); err != nil {
		return err
	}

	if _, err := c.RefundPolicy(); err != nil {
		return err
	}

	if c.App.Timezone != "" {
		if _, err := time.LoadLocation(c.App.Timezone); err != nil {
			return fmt.Errorf("invalid app timezone %q: %w", c.App.Timezone, err)
		}
	}

	return ValidateRooms(c.Rooms)
}

func ValidateRooms(rooms []models.Room) error {
	roomIDs := make(map[int64]bool)
	for _, room := range rooms {
		if room.ID == 0 {
			return fmt.Errorf("room '%s' has invalid ID 0", room.Name)
		}
		if roomIDs[room.ID] {
			return fmt.Errorf("duplicate room ID found: %d", room.ID)
		}
		roomIDs[room.ID] = true

		if room.PricePerNight < 0 {
			return fmt.Errorf("room %d: negative price per night", room.ID)
		}
		for _, p := range []*int64{room.MealPriceVeg, room.MealPriceNonVeg, room.MealPriceCombo} {
			if p != nil && *p < 0 {
				return fmt.Errorf("room %d: negative meal price", room.ID)
			}
		}
	}
	return nil
}

// TaxRate parses pricing.tax_rate_percent.
func (c *Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.Pricing.TaxRatePercent))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tax_rate_percent %q: %w", c.Pricing.TaxRatePercent, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("tax_rate_percent must not be negative: %s", rate)
	}
	return rate, nil
}

// RefundPolicy builds the tier table. Explicit refund_tiers win over the
// named preset.
func (c *Config) RefundPolicy() (pricing.Policy, error) {
	if len(c.Pricing.RefundTiers) > 0 {
		p, err := pricing.NewPolicy(c.Pricing.RefundTiers...)
		if err != nil {
			return pricing.Policy{}, fmt.Errorf("refund_tiers: %w", err)
		}
		return p, nil
	}

	switch c.Pricing.RefundPolicy {
	case RefundPolicyAdmin:
		return pricing.NewPolicy(pricing.AdminDialogTiers()...)
	case RefundPolicyPublished:
		return pricing.NewPolicy(pricing.PublishedPolicyTiers()...)
	default:
		return pricing.Policy{}, fmt.Errorf("unknown refund_policy %q", c.Pricing.RefundPolicy)
	}
}

// Location is the calendar used for day arithmetic.
func (c *Config) Location() *time.Location {
	if c.App.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "villastay"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
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
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Notifications.Sheets.SheetName == "" {
		c.Notifications.Sheets.SheetName = "Bookings"
	}

	if strings.TrimSpace(c.Pricing.TaxRatePercent) == "" {
		c.Pricing.TaxRatePercent = "12"
	}
	if c.Pricing.Currency == "" {
		c.Pricing.Currency = "INR"
	}
	if c.Pricing.RefundPolicy == "" {
		c.Pricing.RefundPolicy = RefundPolicyAdmin
	}

	if c.Cancellation.QuoteTTL == 0 {
		c.Cancellation.QuoteTTL = models.DefaultQuoteTTL * time.Second
	}

	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 5
	}
	if c.Worker.BaseDelay == 0 {
		c.Worker.BaseDelay = 2 * time.Second
	}
	if c.Worker.MaxDelay == 0 {
		c.Worker.MaxDelay = time.Minute
	}
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = 10 * time.Second
	}

	for i := range c.Rooms {
		c.Rooms[i].IsActive = true
	}
}
