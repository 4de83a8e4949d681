package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Session settings shared by the cookie layer and the server-side store.
	// Built once here so the two never drift apart.
	SessionSecret   string
	SessionTTLHours int
	CookieName      string

	ResetTokenTTLMinutes int

	// Public origin used to build password reset links.
	AppOrigin string

	AdminEmail    string
	AdminPassword string
	AdminName     string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	OtelEndpoint string

	CORSOrigins []string
}

func Load() Config {
	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SessionSecret:   getEnv("SESSION_SECRET", "dev-only-secret"),
		SessionTTLHours: getEnvInt("SESSION_TTL_HOURS", 24),
		CookieName:      getEnv("SESSION_COOKIE_NAME", "sid"),

		ResetTokenTTLMinutes: getEnvInt("RESET_TOKEN_TTL_MINUTES", 10),

		AppOrigin: getEnv("APP_ORIGIN", "http://localhost:8080"),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Store Admin"),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		SMTPFrom: getEnv("SMTP_FROM", "noreply@bookstore.local"),

		OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenTTLMinutes) * time.Minute
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "bookstore")
	pass := getEnv("DB_PASSWORD", "bookstore")
	name := getEnv("DB_NAME", "bookstore")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")

	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
