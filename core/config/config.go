package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	Paths    PathsConfig
	Database DatabaseConfig
	Valkey   ValkeyConfig
	Meta     MetaConfig
	Events   EventsConfig
	Pairing  PairingConfig
	Bot      BotConfig
	Security SecurityConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
}

type PathsConfig struct {
	Storages string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string // File path for SQLite, DB Name for Postgres
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	CacheTTL  time.Duration
}

// MetaConfig covers the WhatsApp Business Platform (Cloud API) side.
type MetaConfig struct {
	GraphBaseURL    string
	GraphVersion    string
	AppSecret       string
	VerifyToken     string
	VerifySignature bool
	HTTPTimeout     time.Duration
}

type EventsConfig struct {
	AMQPURL  string
	Exchange string
	Producer string
}

type PairingConfig struct {
	CodeTTL     time.Duration
	QRRenderURL string
}

// BotConfig points at the external auto-responder that receives inbound
// messages for conversations with the bot enabled.
type BotConfig struct {
	WebhookURL    string
	WebhookSecret string
	HTTPTimeout   time.Duration
}

type SecurityConfig struct {
	SecretKey string
}

// Global provides access to the loaded configuration globally (Migration Helper)
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	debug := false
	if v := getEnv("APP_DEBUG", ""); v == "true" || v == "1" || v == "on" {
		debug = true
	}

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.4.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "sqlite"),
		Name:     getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "crm.db")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
	}

	valkeyCfg := ValkeyConfig{
		Enabled:   getEnvBool("VALKEY_ENABLED", false),
		Address:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		Password:  getEnv("VALKEY_PASSWORD", ""),
		DB:        getEnvInt("VALKEY_DB", 0),
		KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azcrm:"),
		CacheTTL:  time.Duration(getEnvInt("VALKEY_CACHE_TTL_SECONDS", 60)) * time.Second,
	}

	metaCfg := MetaConfig{
		GraphBaseURL:    getEnv("META_GRAPH_BASE_URL", "https://graph.facebook.com"),
		GraphVersion:    getEnv("META_GRAPH_VERSION", "v18.0"),
		AppSecret:       getEnv("META_APP_SECRET", ""),
		VerifyToken:     getEnv("META_VERIFY_TOKEN", ""),
		VerifySignature: getEnvBool("META_VERIFY_SIGNATURE", true),
		HTTPTimeout:     time.Duration(getEnvInt("META_HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
	}

	eventsCfg := EventsConfig{
		AMQPURL:  getEnv("EVENTS_AMQP_URL", ""),
		Exchange: getEnv("EVENTS_EXCHANGE", "crm.events"),
		Producer: getEnv("EVENTS_PRODUCER", "az-crm"),
	}

	pairingCfg := PairingConfig{
		CodeTTL:     time.Duration(getEnvInt("PAIRING_CODE_TTL_SECONDS", 300)) * time.Second,
		QRRenderURL: getEnv("QR_RENDER_URL", "https://api.qrserver.com/v1/create-qr-code/"),
	}

	botCfg := BotConfig{
		WebhookURL:    getEnv("BOT_WEBHOOK_URL", ""),
		WebhookSecret: getEnv("BOT_WEBHOOK_SECRET", "secret"),
		HTTPTimeout:   time.Duration(getEnvInt("BOT_HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
		Valkey:   valkeyCfg,
		Meta:     metaCfg,
		Events:   eventsCfg,
		Pairing:  pairingCfg,
		Bot:      botCfg,
		Security: SecurityConfig{SecretKey: getEnv("APP_SECRET_KEY", "changeme_please_change_me_in_prod_12345")},
	}

	Global = cfg
	return cfg, nil
}
