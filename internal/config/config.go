package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	RunMigrations   bool
	JWTSecret       string
	JWTTTL          time.Duration
	EncryptionKey   string
	BcryptCost      int
	GoogleAudience  string
	AllowOrigins    []string
	LogLevel        string
	LogstashTCPAddr string

	ActivationTTL      time.Duration
	PasswordResetTTL   time.Duration
	PasswordResetStore string

	NATSURL                string
	NotificationQueue      string
	NotificationConsumer   string
	NotificationMaxDeliver int
	NotificationRetryDelay time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOUseSSL          bool
	MinIOBucketResources string
	MinIOBucketAvatars   string
	MinIOPublicURL       string
	ResourceMaxBytes     int64
	AvatarMaxBytes       int64
	AvatarMaxDimension   int
	FrontendBaseURL      string
	ResetSweepInterval   time.Duration
	LoginRateLimitPerMin int
	LoginRateLimitBurst  int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	return FromEnv()
}

// FromEnv reads the process environment without touching .env files.
func FromEnv() Config {
	redisAddr := getenv("REDIS_ADDR", "")
	resetStore := strings.ToLower(getenv("PASSWORD_RESET_STORE", ""))
	if resetStore == "" {
		resetStore = "postgres"
		if redisAddr != "" {
			resetStore = "redis"
		}
	}

	return Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     must("DATABASE_URL"),
		RunMigrations:   getbool("RUN_MIGRATIONS", true),
		JWTSecret:       must("JWT_SECRET"),
		JWTTTL:          getduration("JWT_TTL", 24*time.Hour),
		EncryptionKey:   getenv("ENCRYPTION_KEY", ""),
		BcryptCost:      getint("BCRYPT_COST", 10),
		GoogleAudience:  getenv("GOOGLE_AUDIENCE", ""),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),

		ActivationTTL:      getduration("ACTIVATION_TTL", 48*time.Hour),
		PasswordResetTTL:   getduration("PASSWORD_RESET_TTL", time.Hour),
		PasswordResetStore: resetStore,

		NATSURL:                must("NATS_URL"),
		NotificationQueue:      getenv("NOTIFICATION_QUEUE", "notifications"),
		NotificationConsumer:   getenv("NOTIFICATION_CONSUMER", "notification-projector"),
		NotificationMaxDeliver: getint("NOTIFICATION_MAX_DELIVER", 5),
		NotificationRetryDelay: getduration("NOTIFICATION_RETRY_DELAY", 10*time.Second),

		RedisAddr:     redisAddr,
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),

		MinIOEndpoint:        must("MINIO_ENDPOINT"),
		MinIOAccessKey:       must("MINIO_ACCESS_KEY"),
		MinIOSecretKey:       must("MINIO_SECRET_KEY"),
		MinIOUseSSL:          getbool("MINIO_USE_SSL", false),
		MinIOBucketResources: getenv("MINIO_BUCKET_RESOURCES", "school-resources"),
		MinIOBucketAvatars:   getenv("MINIO_BUCKET_AVATARS", "school-avatars"),
		MinIOPublicURL:       getenv("MINIO_PUBLIC_URL", ""),
		ResourceMaxBytes:     getint64("RESOURCE_MAX_BYTES", 20*1024*1024),
		AvatarMaxBytes:       getint64("AVATAR_MAX_BYTES", 5*1024*1024),
		AvatarMaxDimension:   getint("AVATAR_MAX_DIMENSION", 512),
		FrontendBaseURL:      strings.TrimRight(getenv("FRONTEND_BASE_URL", "http://localhost:3000"), "/"),
		ResetSweepInterval:   getduration("PASSWORD_RESET_SWEEP_INTERVAL", 15*time.Minute),
		LoginRateLimitPerMin: getint("LOGIN_RATE_LIMIT_PER_MIN", 10),
		LoginRateLimitBurst:  getint("LOGIN_RATE_LIMIT_BURST", 5),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", ""),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPUseTLS:   getbool("SMTP_USE_TLS", false),
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getbool(k string, d bool) bool {
	v, err := strconv.ParseBool(getenv(k, strconv.FormatBool(d)))
	if err != nil {
		return d
	}
	return v
}

func getint(k string, d int) int {
	if v, err := strconv.Atoi(getenv(k, "")); err == nil && v >= 0 {
		return v
	}
	return d
}

func getint64(k string, d int64) int64 {
	if v, err := strconv.ParseInt(getenv(k, ""), 10, 64); err == nil && v > 0 {
		return v
	}
	return d
}

func getduration(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(getenv(k, "")); err == nil && v > 0 {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
