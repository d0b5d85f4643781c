package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ykato27/keiba-engine/internal/config"
	"github.com/ykato27/keiba-engine/internal/health"
	"github.com/ykato27/keiba-engine/internal/logger"
	"github.com/ykato27/keiba-engine/internal/metrics"
	"github.com/ykato27/keiba-engine/internal/models"
	"github.com/ykato27/keiba-engine/internal/report"
	"github.com/ykato27/keiba-engine/internal/validation"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	inputFile  string
	jsonOutput bool
	csvOutput  string

	appLogger *logrus.Logger
	cfg       *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Path to fold-set JSON file (required)")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON instead of a table")
	rootCmd.Flags().StringVar(&csvOutput, "csv", "", "Also export the per-fold report to this CSV path")
	_ = rootCmd.MarkFlagRequired("input")
}

var rootCmd = &cobra.Command{
	Use:   "validate-folds",
	Short: "Check temporal cross-validation folds for data leakage",
	Long: `Validates every fold of a walk-forward split: temporal separation between
train and test partitions, sample disjointness, class coverage and class
distribution skew. Exits non-zero when any fold carries a fatal violation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadWithDefaults(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		appLogger = logger.NewLogger(cfg.App.LogLevel)
		metrics.InitRegistry()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	if cfg.Monitoring.Enabled {
		ops := health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Port:        cfg.Monitoring.Port,
			MetricsPath: cfg.Monitoring.Path,
			Logger:      appLogger,
		})
		if err := ops.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start ops server: %w", err)
		}
		ops.SetReady(true)
		defer ops.Shutdown()
	}

	folds, err := loadFolds(inputFile)
	if err != nil {
		return err
	}

	checker := validation.NewChecker(cfg.Validation.SkewThreshold, appLogger)
	result := checker.ValidateAll(folds)

	audit := logger.NewAuditLogger(appLogger)
	for _, verdict := range result.Verdicts {
		audit.LogFoldVerdict(verdict.FoldIndex, verdict.Valid, verdict.Errors, verdict.Warnings)
	}

	if jsonOutput {
		fmt.Println(result.ToJSON())
	} else {
		report.WriteValidationReport(os.Stdout, result)
	}

	if csvOutput != "" {
		if err := report.ExportValidationCSV(result, csvOutput); err != nil {
			return fmt.Errorf("failed to export CSV: %w", err)
		}
	}

	if !result.AllValid {
		os.Exit(1)
	}
	return nil
}

func loadFolds(path string) ([]models.TemporalFold, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fold file: %w", err)
	}
	var folds []models.TemporalFold
	if err := json.Unmarshal(data, &folds); err != nil {
		return nil, fmt.Errorf("failed to parse fold file: %w", err)
	}
	if len(folds) == 0 {
		return nil, fmt.Errorf("fold file %s contains no folds", path)
	}
	return folds, nil
}
