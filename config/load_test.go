package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/library")
	t.Setenv("FINE_PER_DAY", "")
	t.Setenv("OVERDUE_SCAN_INTERVAL", "")
	t.Setenv("JWT_TTL_HOURS", "")

	cfg := Load()
	require.Equal(t, "postgres://localhost/library", cfg.DatabaseURL)
	require.Equal(t, 1.0, cfg.FinePerDay)
	require.Equal(t, time.Hour, cfg.OverdueScanInterval)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/library")
	t.Setenv("FINE_PER_DAY", "2.5")
	t.Setenv("OVERDUE_SCAN_INTERVAL", "15m")
	t.Setenv("JWT_TTL_HOURS", "48")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	require.Equal(t, 2.5, cfg.FinePerDay)
	require.Equal(t, 15*time.Minute, cfg.OverdueScanInterval)
	require.Equal(t, 48*time.Hour, cfg.JWTTTL)
	require.True(t, cfg.Production())
}

func TestLoad_MissingDatabasePanics(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	require.Panics(t, func() { Load() })
}
