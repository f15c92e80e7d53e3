package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://localhost/shelfboard_test")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 2*time.Hour, cfg.EditSessionTTL)
	require.Equal(t, "id", cfg.ReportLocale)
	require.False(t, cfg.LayoutRepair)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("EDIT_SESSION_TTL", "0s")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "EDIT_SESSION_TTL")
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("WORKER_CONCURRENCY", "12")
	t.Setenv("LAYOUT_INTEGRITY_CRON", "0 3 * * *")
	t.Setenv("LAYOUT_REPAIR", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 12, cfg.WorkerConcurrency)
	require.Equal(t, "0 3 * * *", cfg.LayoutIntegrityCron)
	require.True(t, cfg.LayoutRepair)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLevel(&Config{LogLevel: "debug"}).String())
	require.Equal(t, "WARN", parseLevel(&Config{LogLevel: "Warning"}).String())
	require.Equal(t, "INFO", parseLevel(nil).String())
}
