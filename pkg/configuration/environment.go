package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/outing-approval/pkg/logging"
)

const Production = "production"

const (
	StoreSheets = "sheets"
	StoreXLSX   = "xlsx"
	StoreMemory = "memory"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

var validate = validator.New(validator.WithRequiredStructEnabled())

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type SheetsOptions struct {
	SpreadsheetID       string `env:"SHEETS_SPREADSHEET_ID"`
	ServiceAccountEmail string `env:"SHEETS_SERVICE_ACCOUNT_EMAIL" validate:"omitempty,email"`
	PrivateKey          string `env:"SHEETS_PRIVATE_KEY"`
	SheetName           string `env:"SHEETS_SHEET_NAME" envDefault:"Sheet1" validate:"required"`
	Scope               string `env:"SHEETS_SCOPE" envDefault:"https://www.googleapis.com/auth/spreadsheets" validate:"required"`
	TokenURL            string `env:"SHEETS_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token" validate:"required,url"`
	TokenExchange       bool   `env:"SHEETS_TOKEN_EXCHANGE" envDefault:"true"`
	Endpoint            string `env:"SHEETS_ENDPOINT" validate:"omitempty,url"`
}

// Key returns the private key with escaped newlines restored. Keys pasted into
// a single-line env var usually arrive with literal "\n" sequences.
func (s *SheetsOptions) Key() string {
	return strings.ReplaceAll(s.PrivateKey, `\n`, "\n")
}

type LineOptions struct {
	ChannelAccessToken string `env:"LINE_CHANNEL_ACCESS_TOKEN"`
	ChannelSecret      string `env:"LINE_CHANNEL_SECRET"`
	TargetUserID       string `env:"LINE_TARGET_USER_ID"`
	APIBaseURL         string `env:"LINE_API_BASE_URL" envDefault:"https://api.line.me" validate:"required,url"`
}

type StoreOptions struct {
	Backend  string `env:"STORE_BACKEND" envDefault:"sheets" validate:"oneof=sheets xlsx memory"`
	XLSXPath string `env:"XLSX_PATH" envDefault:"./data/outing.xlsx"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"outing-approval"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"100"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type Configuration struct {
	Sheets        SheetsOptions
	Line          LineOptions
	Store         StoreOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions

	ServerPort       int    `env:"PORT" envDefault:"8080"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath          string `env:"LOG_PATH"`
	// Comma separated; "*" allows any origin.
	CorsAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	// SDK will look for this header in the request, if it's not present, it will generate a random uuidv4
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Consulted after X-Forwarded-For; falls back to request.RemoteAddr
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func (c *Configuration) AllowedOrigins() []string {
	var origins []string
	for _, part := range strings.Split(c.CorsAllowedOrigins, ",") {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func Use() *Configuration {
	return singleton()
}

// Parse builds a configuration from the current process environment without
// touching .env files or creating a logger.
func Parse() (*Configuration, error) {
	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.resolveSocketAddress()
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.resolveSocketAddress()
	return nil
}

func (c *Configuration) resolveSocketAddress() {
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
}

// Validate runs struct-tag validation and the cross-field checks that tags
// cannot express.
func (c *Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if c.Store.Backend == StoreSheets {
		if strings.TrimSpace(c.Sheets.SpreadsheetID) == "" {
			return fmt.Errorf("SHEETS_SPREADSHEET_ID is required when STORE_BACKEND=%s", StoreSheets)
		}
		if strings.TrimSpace(c.Sheets.ServiceAccountEmail) == "" {
			return fmt.Errorf("SHEETS_SERVICE_ACCOUNT_EMAIL is required when STORE_BACKEND=%s", StoreSheets)
		}
	}
	if c.Store.Backend == StoreXLSX && strings.TrimSpace(c.Store.XLSXPath) == "" {
		return fmt.Errorf("XLSX_PATH is required when STORE_BACKEND=%s", StoreXLSX)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
