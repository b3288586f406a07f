package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DeviceStoreBackend string // "memory" or "dynamo"
	DynamoTables       DynamoTables

	AlertStoreBackend string // "memory", "s3" or "redis"
	AlertStoreKey     string
	S3BucketName      string
	RedisURL          string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	AuthEmail        string
	AuthPasswordHash string // bcrypt hash
	AuthRole         string

	ChannelURL            string // upstream event source; empty disables the channel client
	ChannelConnectTimeout time.Duration
	ChannelReconnect      ReconnectConfig

	ReadingsAPIURL string

	SNSRegion         string
	SNSTopicARN       string // empty disables push notifications
	NotifyMinSeverity string

	SMTPHost      string // empty disables e-mail notifications
	SMTPPort      string
	SMTPFrom      string
	SMTPUsername  string
	SMTPPassword  string
	NotifyEmailTo string

	GeneratorInterval time.Duration
	DemoSeed          bool

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Devices string
}

// ReconnectConfig bounds automatic reconnection of the event channel.
// MaxRetries of zero disables it.
type ReconnectConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DeviceStoreBackend: getEnv("DEVICE_STORE_BACKEND", "memory"),
		DynamoTables: DynamoTables{
			Devices: getEnv("DYNAMO_TABLE_DEVICES", "devices"),
		},

		AlertStoreBackend: getEnv("ALERT_STORE_BACKEND", "memory"),
		AlertStoreKey:     getEnv("ALERT_STORE_KEY", "@alerts"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "patient-monitor"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),

		AuthEmail:        getEnv("AUTH_EMAIL", "test@example.com"),
		AuthPasswordHash: getEnv("AUTH_PASSWORD_HASH", ""),
		AuthRole:         getEnv("AUTH_ROLE", "caregiver"),

		ChannelURL:            getEnv("CHANNEL_URL", ""),
		ChannelConnectTimeout: getEnvDuration("CHANNEL_CONNECT_TIMEOUT", 10*time.Second),
		ChannelReconnect: ReconnectConfig{
			MaxRetries: getEnvInt("CHANNEL_RECONNECT_MAX_RETRIES", 0),
			BaseDelay:  getEnvDuration("CHANNEL_RECONNECT_BASE_DELAY", time.Second),
			MaxDelay:   getEnvDuration("CHANNEL_RECONNECT_MAX_DELAY", 5*time.Minute),
		},

		ReadingsAPIURL: getEnv("READINGS_API_URL", "http://localhost:3001/api"),

		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:       getEnv("SNS_TOPIC_ARN", ""),
		NotifyMinSeverity: getEnv("NOTIFY_MIN_SEVERITY", "high"),

		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPFrom:      getEnv("SMTP_FROM", "alerts@patient-monitor.local"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		NotifyEmailTo: getEnv("NOTIFY_EMAIL_TO", ""),

		GeneratorInterval: getEnvDuration("GENERATOR_INTERVAL", 30*time.Second),
		DemoSeed:          getEnvBool("DEMO_SEED", false),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
