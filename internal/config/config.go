package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	S3         S3Config
	Log        LogConfig
	Extraction ExtractionConfig
	Evaluator  EvaluatorConfig
	Validation ValidationConfig
	Notify     NotifyConfig
}

// NotifyConfig holds pipeline result notification settings.
type NotifyConfig struct {
	Provider    string   `mapstructure:"provider"`
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	Recipients  []string `mapstructure:"recipients"`
}

// ProviderConfig holds settings for a single model-backed provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// Timeout returns the provider timeout, defaulting to 120s.
func (p *ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(p.TimeoutSecs) * time.Second
}

// ExtractionConfig holds field extraction backend settings with fallback support.
type ExtractionConfig struct {
	Primary          ProviderConfig `mapstructure:"primary"`
	Secondary        ProviderConfig `mapstructure:"secondary"`
	PersistTimeoutMs int            `mapstructure:"persist_timeout_ms"`
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (e *ExtractionConfig) SecondaryConfig() *ProviderConfig {
	if e.Secondary.Provider != "" {
		return &e.Secondary
	}
	return nil
}

// EvaluatorConfig holds specialist evaluator settings.
type EvaluatorConfig struct {
	Backend        ProviderConfig `mapstructure:"backend"`
	CatalogPath    string         `mapstructure:"catalog_path"`
	CallTimeoutMs  int            `mapstructure:"call_timeout_ms"`
	MaxConcurrency int            `mapstructure:"max_concurrency"`
	Default        []string       `mapstructure:"default"`
}

// CallTimeout returns the per-evaluator call timeout.
func (e *EvaluatorConfig) CallTimeout() time.Duration {
	if e.CallTimeoutMs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(e.CallTimeoutMs) * time.Millisecond
}

// ValidationConfig holds the thresholds used by the validator and scorer.
type ValidationConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MatchTolerance      float64 `mapstructure:"match_tolerance"`
	LargeDocumentBytes  int64   `mapstructure:"large_document_bytes"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DBConfig holds record store connection settings.
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the connection string for the configured driver.
func (d *DBConfig) DSN() string {
	if d.Driver == "sqlite3" {
		return d.Path
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// MigrateURL returns the golang-migrate database URL for the configured driver.
func (d *DBConfig) MigrateURL() string {
	if d.Driver == "sqlite3" {
		return "sqlite3://" + d.Path
	}
	return d.DSN()
}

// JWTConfig holds bearer token verification settings. An empty secret disables auth.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	// MaxFileSizeMB bounds documents accepted by the upload endpoint.
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Debug reports whether per-call trace events should be logged.
func (l LogConfig) Debug() bool {
	return strings.EqualFold(l.Level, "debug")
}

// Load reads configuration from environment variables with the INVOICEFLOW_ prefix.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("INVOICEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// DB defaults
	v.SetDefault("db.driver", "pgx")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "invoiceflow")
	v.SetDefault("db.password", "invoiceflow_secret")
	v.SetDefault("db.name", "invoiceflow_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "invoiceflow.db")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "invoiceflow")
	v.SetDefault("jwt.token_ttl", "24h")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "invoiceflow-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)

	// Log defaults
	v.SetDefault("log.level", "debug")

	// Extraction defaults
	v.SetDefault("extraction.primary.provider", "gemini")
	v.SetDefault("extraction.primary.api_key", "")
	v.SetDefault("extraction.primary.default_model", "gemini-2.5-flash")
	v.SetDefault("extraction.primary.max_retries", 2)
	v.SetDefault("extraction.primary.timeout_secs", 120)
	v.SetDefault("extraction.secondary.provider", "")
	v.SetDefault("extraction.secondary.api_key", "")
	v.SetDefault("extraction.secondary.default_model", "")
	v.SetDefault("extraction.secondary.max_retries", 2)
	v.SetDefault("extraction.secondary.timeout_secs", 120)
	v.SetDefault("extraction.persist_timeout_ms", 10000)

	// Evaluator defaults
	v.SetDefault("evaluator.backend.provider", "anthropic")
	v.SetDefault("evaluator.backend.api_key", "")
	v.SetDefault("evaluator.backend.default_model", "claude-sonnet-4-20250514")
	v.SetDefault("evaluator.backend.timeout_secs", 120)
	v.SetDefault("evaluator.catalog_path", "")
	v.SetDefault("evaluator.call_timeout_ms", 60000)
	v.SetDefault("evaluator.max_concurrency", 0)
	v.SetDefault("evaluator.default", "compliance,validation")

	// Validation defaults
	v.SetDefault("validation.confidence_threshold", 0.85)
	v.SetDefault("validation.match_tolerance", 1.0)
	v.SetDefault("validation.large_document_bytes", 500000)

	// Notify defaults
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("notify.region", "us-east-1")
	v.SetDefault("notify.from_address", "noreply@invoiceflow.local")
	v.SetDefault("notify.from_name", "invoiceflow")
	v.SetDefault("notify.recipients", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                        "INVOICEFLOW_SERVER_PORT",
		"server.read_timeout":                "INVOICEFLOW_SERVER_READ_TIMEOUT",
		"server.write_timeout":               "INVOICEFLOW_SERVER_WRITE_TIMEOUT",
		"server.environment":                 "INVOICEFLOW_SERVER_ENVIRONMENT",
		"server.cors_origins":                "INVOICEFLOW_SERVER_CORS_ORIGINS",
		"db.driver":                          "INVOICEFLOW_DB_DRIVER",
		"db.host":                            "INVOICEFLOW_DB_HOST",
		"db.port":                            "INVOICEFLOW_DB_PORT",
		"db.user":                            "INVOICEFLOW_DB_USER",
		"db.password":                        "INVOICEFLOW_DB_PASSWORD",
		"db.name":                            "INVOICEFLOW_DB_NAME",
		"db.sslmode":                         "INVOICEFLOW_DB_SSLMODE",
		"db.path":                            "INVOICEFLOW_DB_PATH",
		"db.max_open":                        "INVOICEFLOW_DB_MAX_OPEN",
		"db.max_idle":                        "INVOICEFLOW_DB_MAX_IDLE",
		"jwt.secret":                         "INVOICEFLOW_JWT_SECRET",
		"jwt.issuer":                         "INVOICEFLOW_JWT_ISSUER",
		"jwt.token_ttl":                      "INVOICEFLOW_JWT_TOKEN_TTL",
		"s3.region":                          "INVOICEFLOW_S3_REGION",
		"s3.bucket":                          "INVOICEFLOW_S3_BUCKET",
		"s3.endpoint":                        "INVOICEFLOW_S3_ENDPOINT",
		"s3.access_key":                      "INVOICEFLOW_S3_ACCESS_KEY",
		"s3.secret_key":                      "INVOICEFLOW_S3_SECRET_KEY",
		"s3.max_file_size_mb":                "INVOICEFLOW_S3_MAX_FILE_SIZE_MB",
		"log.level":                          "INVOICEFLOW_LOG_LEVEL",
		"extraction.primary.provider":        "INVOICEFLOW_EXTRACTION_PRIMARY_PROVIDER",
		"extraction.primary.api_key":         "INVOICEFLOW_EXTRACTION_PRIMARY_API_KEY",
		"extraction.primary.default_model":   "INVOICEFLOW_EXTRACTION_PRIMARY_DEFAULT_MODEL",
		"extraction.primary.max_retries":     "INVOICEFLOW_EXTRACTION_PRIMARY_MAX_RETRIES",
		"extraction.primary.timeout_secs":    "INVOICEFLOW_EXTRACTION_PRIMARY_TIMEOUT_SECS",
		"extraction.secondary.provider":      "INVOICEFLOW_EXTRACTION_SECONDARY_PROVIDER",
		"extraction.secondary.api_key":       "INVOICEFLOW_EXTRACTION_SECONDARY_API_KEY",
		"extraction.secondary.default_model": "INVOICEFLOW_EXTRACTION_SECONDARY_DEFAULT_MODEL",
		"extraction.secondary.max_retries":   "INVOICEFLOW_EXTRACTION_SECONDARY_MAX_RETRIES",
		"extraction.secondary.timeout_secs":  "INVOICEFLOW_EXTRACTION_SECONDARY_TIMEOUT_SECS",
		"extraction.persist_timeout_ms":      "INVOICEFLOW_EXTRACTION_PERSIST_TIMEOUT_MS",
		"evaluator.backend.provider":         "INVOICEFLOW_EVALUATOR_BACKEND_PROVIDER",
		"evaluator.backend.api_key":          "INVOICEFLOW_EVALUATOR_BACKEND_API_KEY",
		"evaluator.backend.default_model":    "INVOICEFLOW_EVALUATOR_BACKEND_DEFAULT_MODEL",
		"evaluator.backend.timeout_secs":     "INVOICEFLOW_EVALUATOR_BACKEND_TIMEOUT_SECS",
		"evaluator.catalog_path":             "INVOICEFLOW_EVALUATOR_CATALOG_PATH",
		"evaluator.call_timeout_ms":          "INVOICEFLOW_EVALUATOR_CALL_TIMEOUT_MS",
		"evaluator.max_concurrency":          "INVOICEFLOW_EVALUATOR_MAX_CONCURRENCY",
		"evaluator.default":                  "INVOICEFLOW_EVALUATOR_DEFAULT",
		"validation.confidence_threshold":    "INVOICEFLOW_VALIDATION_CONFIDENCE_THRESHOLD",
		"validation.match_tolerance":         "INVOICEFLOW_VALIDATION_MATCH_TOLERANCE",
		"validation.large_document_bytes":    "INVOICEFLOW_VALIDATION_LARGE_DOCUMENT_BYTES",
		"notify.provider":                    "INVOICEFLOW_NOTIFY_PROVIDER",
		"notify.region":                      "INVOICEFLOW_NOTIFY_REGION",
		"notify.from_address":                "INVOICEFLOW_NOTIFY_FROM_ADDRESS",
		"notify.from_name":                   "INVOICEFLOW_NOTIFY_FROM_NAME",
		"notify.recipients":                  "INVOICEFLOW_NOTIFY_RECIPIENTS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if INVOICEFLOW_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("INVOICEFLOW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		CORSOrigins:  SplitList(v.GetString("server.cors_origins")),
	}
	cfg.DB = DBConfig{
		Driver:   v.GetString("db.driver"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		Path:     v.GetString("db.path"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:   v.GetString("jwt.secret"),
		Issuer:   v.GetString("jwt.issuer"),
		TokenTTL: v.GetDuration("jwt.token_ttl"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
	}
	cfg.Log = LogConfig{
		Level: v.GetString("log.level"),
	}

	cfg.Extraction = ExtractionConfig{
		Primary:          providerFrom(v, "extraction.primary"),
		Secondary:        providerFrom(v, "extraction.secondary"),
		PersistTimeoutMs: v.GetInt("extraction.persist_timeout_ms"),
	}

	cfg.Evaluator = EvaluatorConfig{
		Backend:        providerFrom(v, "evaluator.backend"),
		CatalogPath:    v.GetString("evaluator.catalog_path"),
		CallTimeoutMs:  v.GetInt("evaluator.call_timeout_ms"),
		MaxConcurrency: v.GetInt("evaluator.max_concurrency"),
		Default:        SplitList(v.GetString("evaluator.default")),
	}

	cfg.Validation = ValidationConfig{
		ConfidenceThreshold: v.GetFloat64("validation.confidence_threshold"),
		MatchTolerance:      v.GetFloat64("validation.match_tolerance"),
		LargeDocumentBytes:  v.GetInt64("validation.large_document_bytes"),
	}

	cfg.Notify = NotifyConfig{
		Provider:    v.GetString("notify.provider"),
		Region:      v.GetString("notify.region"),
		FromAddress: v.GetString("notify.from_address"),
		FromName:    v.GetString("notify.from_name"),
		Recipients:  SplitList(v.GetString("notify.recipients")),
	}

	return cfg, nil
}

func providerFrom(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		MaxRetries:   v.GetInt(prefix + ".max_retries"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
	}
}

// SplitList parses a comma-separated value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
