package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	OTP      OTPConfig
	SMS      SMSConfig
	Alert    AlertConfig
	Health   HealthConfig
	MinIO    MinIOConfig
	SMTP     SMTPConfig
	Schedule ScheduleConfig
}

type AppConfig struct {
	Env      string
	Port     string
	LogLevel string
}

// StoreConfig selects the document store backend ("firestore" or "memory")
type StoreConfig struct {
	Driver string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string // raw service account JSON, takes precedence over the file
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// Enabled reports whether a Redis host was configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type OTPConfig struct {
	Expiry     time.Duration
	RateLimit  int // max OTP requests per phone per RateWindow, 0 disables
	RateWindow time.Duration
}

type SMSConfig struct {
	APIURL          string
	Username        string
	APIKey          string
	SenderName      string
	TransactionType string
	Timeout         time.Duration
	MessageTemplate string // must contain exactly one %s for the code
}

type AlertConfig struct {
	DiscordWebhookURL string
	AdminPhone        string
	FCMTopic          string
	Cooldown          time.Duration // per error kind, 0 sends every alert
	Timeout           time.Duration
}

type HealthConfig struct {
	APIKey           string
	LogRetentionDays int
	IPProbeURL       string
}

// Retention returns the health log retention window
func (h HealthConfig) Retention() time.Duration {
	return time.Duration(h.LogRetentionDays) * 24 * time.Hour
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether log archiving to MinIO was configured
func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != ""
}

// SMTPConfig configures the optional email channel for reports and alerts
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	To       []string
}

type ScheduleConfig struct {
	ReportSpec string
	PurgeSpec  string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnv("APP_PORT", "3000"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "firestore"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			CredentialsJSON: getEnv("FIREBASE_CREDENTIALS", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_SECRET", "your_jwt_secret_key"),
			RefreshSecret: getEnv("REFRESH_TOKEN_SECRET", "your_refresh_token_secret_key"),
			AccessExpiry:  getDuration("JWT_EXPIRY", time.Hour),
			RefreshExpiry: getDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
		},
		OTP: OTPConfig{
			Expiry:     getDuration("OTP_EXPIRY", 5*time.Minute),
			RateLimit:  getInt("OTP_RATE_LIMIT", 5),
			RateWindow: getDuration("OTP_RATE_WINDOW", time.Hour),
		},
		SMS: SMSConfig{
			APIURL:          getEnv("SMS_API_URL", "https://api.mimsms.com/api/SmsSending/SMS"),
			Username:        getEnv("SMS_USERNAME", ""),
			APIKey:          getEnv("SMS_API_KEY", ""),
			SenderName:      getEnv("SMS_SENDER_NAME", ""),
			TransactionType: getEnv("SMS_TRANSACTION_TYPE", "T"),
			Timeout:         getDuration("SMS_TIMEOUT", 15*time.Second),
			MessageTemplate: getEnv("SMS_OTP_MESSAGE", "Your OTP is %s"),
		},
		Alert: AlertConfig{
			DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
			AdminPhone:        getEnv("ADMIN_PHONE", ""),
			FCMTopic:          getEnv("ALERT_FCM_TOPIC", ""),
			Cooldown:          getDuration("ALERT_COOLDOWN", 0),
			Timeout:           getDuration("ALERT_TIMEOUT", 20*time.Second),
		},
		Health: HealthConfig{
			APIKey:           getEnv("HEALTH_API_KEY", ""),
			LogRetentionDays: getInt("LOG_RETENTION_DAYS", 7),
			IPProbeURL:       getEnv("IP_PROBE_URL", "https://api.ipify.org?format=json"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "otp-health-logs"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "1025"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "alerts@otp.local"),
			FromName: getEnv("SMTP_FROM_NAME", "OTP Server"),
			To:       getList("ALERT_EMAIL_TO"),
		},
		Schedule: ScheduleConfig{
			ReportSpec: getEnv("HEALTH_REPORT_CRON", "0 * * * *"),
			PurgeSpec:  getEnv("LOG_PURGE_CRON", "0 2 * * *"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

// getList splits a comma separated variable, dropping empty items
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return n
}
