package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:        AppConfig{Name: "keiba-engine", Environment: "development", LogLevel: "info"},
		Validation: ValidationConfig{SkewThreshold: 0.15},
		Evaluation: EvaluationConfig{
			NumClasses:          3,
			PrimaryClass:        0,
			ImbalanceMultiplier: 3.0,
			PrimaryRecallFloor:  0.3,
		},
		Betting: BettingConfig{
			WinClass:        0,
			MinEVThreshold:  0.01,
			Bankroll:        10000,
			SafetyFactor:    0.25,
			PerCandidateCap: 0.10,
			PortfolioCap:    0.50,
		},
		Monitoring: MonitoringConfig{Enabled: true, Port: 9090, Path: "/metrics"},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateRejectsBadEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.App.Environment = "qa"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "development, staging, production")
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.App.LogLevel = "verbose"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debug, info, warn, error")
}

func TestValidateCrossFieldRules(t *testing.T) {
	cfg := validConfig()
	cfg.Betting.WinClass = 3
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "win_class")

	cfg = validConfig()
	cfg.Evaluation.PrimaryClass = 5
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary_class")

	cfg = validConfig()
	cfg.Betting.PerCandidateCap = 0.6
	cfg.Betting.PortfolioCap = 0.5
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "per_candidate_cap")
}

func TestValidateRejectsOutOfRangeNumbers(t *testing.T) {
	cfg := validConfig()
	cfg.Validation.SkewThreshold = 1.5
	assert.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.Betting.SafetyFactor = -0.1
	assert.Error(t, Validate(cfg))
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "keiba-engine", cfg.App.Name)
	assert.Equal(t, 0.15, cfg.Validation.SkewThreshold)
	assert.Equal(t, 3, cfg.Evaluation.NumClasses)
	assert.Equal(t, 0.25, cfg.Betting.SafetyFactor)
	assert.Equal(t, 0.50, cfg.Betting.PortfolioCap)
	assert.Equal(t, 9090, cfg.Monitoring.Port)
	assert.NoError(t, Validate(cfg))
}

func TestLoadWithDefaultsFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  name: test-engine
betting:
  bankroll: 250000
  safety_factor: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadWithDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "test-engine", cfg.App.Name)
	assert.Equal(t, 250000.0, cfg.Betting.Bankroll)
	assert.Equal(t, 0.5, cfg.Betting.SafetyFactor)
	// Untouched keys keep their defaults
	assert.Equal(t, 0.10, cfg.Betting.PerCandidateCap)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_KEIBA_BANKROLL", "55000")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
betting:
  bankroll: ${TEST_KEIBA_BANKROLL}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadWithDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, 55000.0, cfg.Betting.Bankroll)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestEnvironmentHelpers(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.App.Environment = "production"
	assert.True(t, cfg.IsProduction())

	assert.Equal(t, ":9090", cfg.MetricsAddress())
}
