package configs

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config dibangun sekali di main lalu di-inject ke route/service.
type Config struct {
	Port string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBSSLMode  string

	JWTSecret string

	MidtransServerKey       string
	MidtransUseProd         bool
	MidtransVerifySignature bool

	// Base URL service katalog/inventori (endpoint /api/products)
	BackendURL string

	// Dipakai kalau belum ada satu pun akun admin.
	DefaultStaffID string

	ChatCleanupDelay time.Duration
	ChatSweepSpec    string

	AllowedOrigins []string
}

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Warn("⚠️ Tidak menemukan .env file, menggunakan ENV dari sistem")
		} else {
			log.Info("✅ .env file berhasil dimuat!")
		}
	} else {
		log.Info("🚀 Running in Railway, menggunakan ENV dari sistem")
	}
}

// Load membaca seluruh ENV yang dipakai aplikasi. Panggil setelah LoadEnv.
func Load() *Config {
	cfg := &Config{
		Port: GetEnv("PORT", "5000"),

		DBUser:     GetEnv("DB_USER"),
		DBPassword: GetEnv("DB_PASSWORD"),
		DBHost:     GetEnv("DB_HOST", "localhost"),
		DBPort:     GetEnv("DB_PORT", "5432"),
		DBName:     GetEnv("DB_NAME"),
		DBSSLMode:  GetEnv("DB_SSLMODE", "require"),

		JWTSecret: GetEnv("JWT_SECRET"),

		MidtransServerKey:       GetEnv("MIDTRANS_SERVER_KEY"),
		MidtransUseProd:         GetBool("MIDTRANS_USE_PROD", false),
		MidtransVerifySignature: GetBool("MIDTRANS_VERIFY_SIGNATURE", false),

		BackendURL:     strings.TrimRight(GetEnv("BACKEND_URL", "http://localhost:5000"), "/"),
		DefaultStaffID: GetEnv("DEFAULT_STAFF_ID", "1"),

		ChatCleanupDelay: GetDuration("CHAT_CLEANUP_DELAY", 10*time.Minute),
		ChatSweepSpec:    GetEnv("CHAT_SWEEP_CRON", "@every 30m"),

		AllowedOrigins: splitCSV(GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.JWTSecret == "" {
		log.Error("❌ JWT_SECRET belum diset!")
	}
	if cfg.MidtransServerKey == "" {
		log.Error("❌ MIDTRANS_SERVER_KEY belum diset!")
	}
	return cfg
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.WithField("key", key).Warn("invalid bool env, pakai default")
	}
	return def
}

func GetDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.WithField("key", key).Warn("invalid duration env, pakai default")
	}
	return def
}

func splitCSV(s string) []string {
	out := make([]string, 0, 4)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
