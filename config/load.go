package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the process environment, after filling gaps from a .env file when one exists.
func Load() App {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("reading .env failed", "err", err)
	}
	return App{
		Port:                getenv("APP_PORT", "8080"),
		DatabaseURL:         must("DATABASE_URL"),
		JWTSecret:           getenv("JWT_SECRET", "local_dev_secret"),
		JWTTTL:              time.Duration(getInt("JWT_TTL_HOURS", 24)) * time.Hour,
		Env:                 getenv("APP_ENV", "dev"),
		ClientURL:           getenv("CLIENT_URL", "http://localhost:5173"),
		FinePerDay:          getFloat("FINE_PER_DAY", 1),
		UploadDir:           getenv("UPLOAD_DIR", "./uploads"),
		OverdueScanInterval: getDuration("OVERDUE_SCAN_INTERVAL", time.Hour),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getFloat(k string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func getDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
