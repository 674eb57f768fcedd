package config

import (
	"fmt"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credential verification modes.
const (
	VerifyModeNone = "none"
	VerifyModeHMAC = "hmac"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Queue        QueueConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Blob         BlobConfig
	Notification NotificationConfig
	Reminder     ReminderConfig
	Idempotency  IdempotencyConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	PublicBaseURL         string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// QueueConfig describes the ticket creation event stream.
type QueueConfig struct {
	Stream       string
	Group        string
	Consumer     string
	BatchSize    int
	BlockSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines how bearer credentials are decoded.
type AuthConfig struct {
	GroupsClaim string
	AdminGroup  string
	VerifyMode  string
	HMACSecret  string
}

// BlobConfig locates attachment storage.
type BlobConfig struct {
	Dir         string
	URLPrefix   string
	ContentType string
}

// NotificationConfig holds email routing values.
type NotificationConfig struct {
	AdminEmail   string
	EmailFrom    string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
}

// ReminderConfig sets the time of day for the in-process daily trigger.
type ReminderConfig struct {
	At string
}

// IdempotencyConfig controls create idempotency key retention.
type IdempotencyConfig struct {
	TTLHours int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	host, _ := os.Hostname()
	if host == "" {
		host = "worker"
	}

	port := getEnv("APP_PORT", "8080")
	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  port,
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			PublicBaseURL:         strings.TrimRight(getEnv("APP_PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Queue: QueueConfig{
			Stream:       getEnv("QUEUE_STREAM", "tickets:created"),
			Group:        getEnv("QUEUE_GROUP", "notifications"),
			Consumer:     getEnv("QUEUE_CONSUMER", host),
			BatchSize:    getEnvAsInt("QUEUE_BATCH_SIZE", 10),
			BlockSeconds: getEnvAsInt("QUEUE_BLOCK_SECONDS", 5),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			GroupsClaim: getEnv("AUTH_GROUPS_CLAIM", "cognito:groups"),
			AdminGroup:  getEnv("AUTH_ADMIN_GROUP", "ADMIN"),
			VerifyMode:  strings.ToLower(getEnv("AUTH_VERIFY_MODE", VerifyModeNone)),
			HMACSecret:  os.Getenv("AUTH_HMAC_SECRET"),
		},
		Blob: BlobConfig{
			Dir:         getEnv("BLOB_DIR", "data/attachments"),
			URLPrefix:   getEnv("BLOB_URL_PREFIX", "/attachments"),
			ContentType: getEnv("BLOB_CONTENT_TYPE", "image/jpeg"),
		},
		Notification: NotificationConfig{
			AdminEmail:   getEnv("ADMIN_EMAIL", "admin@example.com"),
			EmailFrom:    os.Getenv("NOTIFY_EMAIL_FROM"),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:     os.Getenv("SMTP_USER"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		},
		Reminder: ReminderConfig{
			At: getEnv("REMINDER_TIME", "08:00"),
		},
		Idempotency: IdempotencyConfig{
			TTLHours: getEnvAsInt("IDEMPOTENCY_TTL_HOURS", 24),
		},
	}

	// the original deployment sends from the admin mailbox itself
	if cfg.Notification.EmailFrom == "" {
		cfg.Notification.EmailFrom = cfg.Notification.AdminEmail
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := mail.ParseAddress(c.Notification.AdminEmail); err != nil {
		return fmt.Errorf("invalid ADMIN_EMAIL %q: %w", c.Notification.AdminEmail, err)
	}
	if _, err := mail.ParseAddress(c.Notification.EmailFrom); err != nil {
		return fmt.Errorf("invalid NOTIFY_EMAIL_FROM %q: %w", c.Notification.EmailFrom, err)
	}
	switch c.Auth.VerifyMode {
	case VerifyModeNone:
	case VerifyModeHMAC:
		if c.Auth.HMACSecret == "" {
			return fmt.Errorf("AUTH_HMAC_SECRET required when AUTH_VERIFY_MODE=%s", VerifyModeHMAC)
		}
	default:
		return fmt.Errorf("invalid AUTH_VERIFY_MODE %q", c.Auth.VerifyMode)
	}
	if _, _, err := c.Reminder.Clock(); err != nil {
		return err
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Block returns how long a consumer waits for new stream entries.
func (q QueueConfig) Block() time.Duration {
	if q.BlockSeconds <= 0 {
		return time.Second
	}
	return time.Duration(q.BlockSeconds) * time.Second
}

// Clock parses the HH:MM reminder time.
func (r ReminderConfig) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", r.At)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid REMINDER_TIME %q: %w", r.At, err)
	}
	return t.Hour(), t.Minute(), nil
}

// TTL returns how long idempotency keys are retained.
func (i IdempotencyConfig) TTL() time.Duration {
	if i.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(i.TTLHours) * time.Hour
}

// SMTPAddr returns host:port of the mail relay, or empty when SMTP is not configured.
func (n NotificationConfig) SMTPAddr() string {
	if n.SMTPHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", n.SMTPHost, n.SMTPPort)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
