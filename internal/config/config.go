// Package config provides configuration management for the keiba engine.
package config

import "fmt"

// Config represents the complete engine configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Validation ValidationConfig `mapstructure:"validation" validate:"required"`
	Evaluation EvaluationConfig `mapstructure:"evaluation" validate:"required"`
	Betting    BettingConfig    `mapstructure:"betting" validate:"required"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ValidationConfig tunes fold integrity checking
type ValidationConfig struct {
	SkewThreshold float64 `mapstructure:"skew_threshold" validate:"required,gt=0,lte=1"`
}

// EvaluationConfig tunes class metrics computation and assessment
type EvaluationConfig struct {
	NumClasses          int     `mapstructure:"num_classes" validate:"required,gt=1"`
	PrimaryClass        int     `mapstructure:"primary_class" validate:"gte=0"`
	ImbalanceMultiplier float64 `mapstructure:"imbalance_multiplier" validate:"required,gt=1"`
	PrimaryRecallFloor  float64 `mapstructure:"primary_recall_floor" validate:"required,gt=0,lt=1"`
}

// BettingConfig tunes precondition screening and stake allocation
type BettingConfig struct {
	WinClass        int     `mapstructure:"win_class" validate:"gte=0"`
	MinEVThreshold  float64 `mapstructure:"min_ev_threshold" validate:"required,gt=0,lt=1"`
	Bankroll        float64 `mapstructure:"bankroll" validate:"required,gt=0"`
	SafetyFactor    float64 `mapstructure:"safety_factor" validate:"required,gt=0,lte=1"`
	PerCandidateCap float64 `mapstructure:"per_candidate_cap" validate:"required,gt=0,lte=1"`
	PortfolioCap    float64 `mapstructure:"portfolio_cap" validate:"required,gt=0,lte=1"`
}

// MonitoringConfig represents metrics endpoint configuration
type MonitoringConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the engine is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the engine is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// MetricsAddress returns the listen address for the metrics endpoint
func (c *Config) MetricsAddress() string {
	return fmt.Sprintf(":%d", c.Monitoring.Port)
}
