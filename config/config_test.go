package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "smcen-registrar", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 4, cfg.Export.Workers)
	assert.Equal(t, []string{
		"SPICER MEMORIAL COLLEGE",
		"Aundh Post, Aundh",
		"Pune 411 067, INDIA",
		"Phone: 25807000, 7001",
	}, cfg.Export.HeaderLines)
	assert.True(t, cfg.Features.IsEnabled(FeatureRegistrationOpen))
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "EXPORT_WORKERS=7\nEXPORT_HEADER_LINES=Test College|1 Main Road, Pune\nHTTP_PORT=9090\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv does not override variables that are already set.
	t.Setenv("HTTP_PORT", "9191")
	t.Cleanup(func() {
		os.Unsetenv("EXPORT_WORKERS")
		os.Unsetenv("EXPORT_HEADER_LINES")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Export.Workers)
	assert.Equal(t, []string{"Test College", "1 Main Road, Pune"}, cfg.Export.HeaderLines)
	assert.Equal(t, 9191, cfg.HTTP.Port)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{
		App:    AppConfig{Environment: EnvProduction},
		HTTP:   HTTPConfig{Port: 0},
		Auth:   AuthConfig{BcryptCost: 10},
		Export: ExportConfig{Workers: 0, Timeout: 0},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "AUTH_JWT_SECRET is required in production")
	assert.Contains(t, msg, "DATABASE_URL is required in production")
	assert.Contains(t, msg, "HTTP_PORT")
	assert.Contains(t, msg, "EXPORT_WORKERS")
	assert.Contains(t, msg, "EXPORT_HEADER_LINES")
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := &Config{
		HTTP:   HTTPConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "short", BcryptCost: 10},
		Export: ExportConfig{Workers: 1, Timeout: 1, HeaderLines: []string{"X"}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_GRADES_OVERRIDES", "false")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureGradeOverrides))
	assert.True(t, ff.IsEnabled(FeatureEnrollmentOpen))
	assert.False(t, ff.IsEnabled("no.such.flag"))

	require.NoError(t, ff.Set(FeatureGradeOverrides, true))
	assert.True(t, ff.IsEnabled(FeatureGradeOverrides))
	assert.ErrorIs(t, ff.Set("no.such.flag", true), ErrFeatureNotFound)

	all := ff.All()
	require.Len(t, all, 5)
	assert.Equal(t, FeatureRecordCache, all[0].Name)
}
