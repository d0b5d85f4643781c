package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ykato27/keiba-engine/internal/betting"
	"github.com/ykato27/keiba-engine/internal/config"
	"github.com/ykato27/keiba-engine/internal/evaluation"
	"github.com/ykato27/keiba-engine/internal/health"
	"github.com/ykato27/keiba-engine/internal/logger"
	"github.com/ykato27/keiba-engine/internal/metrics"
	"github.com/ykato27/keiba-engine/internal/models"
	"github.com/ykato27/keiba-engine/internal/report"
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
	bankroll   float64
	jsonOutput bool
	csvOutput  string
	evaluate   bool

	appLogger *logrus.Logger
	cfg       *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Path to race-card JSON file (required)")
	rootCmd.Flags().Float64Var(&bankroll, "bankroll", 0, "Override the configured bankroll")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the plan as JSON instead of a table")
	rootCmd.Flags().StringVar(&csvOutput, "csv", "", "Also export the stake plan to this CSV path")
	rootCmd.Flags().BoolVar(&evaluate, "evaluate", false, "Also compute class metrics (requires observed classes)")
	_ = rootCmd.MarkFlagRequired("input")
}

var rootCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Screen predictions and produce a Kelly stake plan",
	Long: `Reads a race card of model predictions with market prices, rejects
candidates failing the Kelly preconditions, and sizes stakes for the rest with
fractional Kelly under per-candidate and portfolio caps.`,
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

// rawRecord is the wire shape of one race-card entry
type rawRecord struct {
	EventID       uuid.UUID `json:"event_id"`
	CandidateID   uuid.UUID `json:"candidate_id"`
	CandidateName string    `json:"candidate_name"`
	Probabilities []float64 `json:"probabilities"`
	MarketPrice   float64   `json:"market_price"`
	ObservedClass *int      `json:"observed_class,omitempty"`
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

	records, malformed, err := loadRaceCard(inputFile)
	if err != nil {
		return err
	}

	audit := logger.NewAuditLogger(appLogger)
	for _, m := range malformed {
		metrics.RecordRejection(string(models.ReasonInvalidVector))
		audit.LogCandidateDisposition(m.candidateID, "rejected", m.err.Error(), 0)
	}
	if len(records) == 0 {
		return fmt.Errorf("race card %s contains no well-formed records", inputFile)
	}

	validator := betting.NewValidator(cfg.Betting.WinClass, cfg.Betting.MinEVThreshold, appLogger)
	accepted, rejected := validator.FilterPositiveEV(records)
	if len(accepted) == 0 {
		summary := validator.PortfolioSummary(accepted)
		fmt.Println(summary.Status)
		audit.LogBatchSummary("race_card", len(records), 0, len(rejected)+len(malformed), false)
		return fmt.Errorf("%w in %s", models.ErrNoAcceptedRecords, inputFile)
	}
	for _, r := range rejected {
		ev := betting.ExpectedValue(r.Record.WinProbability(cfg.Betting.WinClass), r.Record.MarketPrice)
		audit.LogCandidateDisposition(r.Record.CandidateID.String(), "rejected", r.Detail, ev)
	}

	allocCfg := betting.AllocationConfig{
		Bankroll:        cfg.Betting.Bankroll,
		SafetyFactor:    cfg.Betting.SafetyFactor,
		PerCandidateCap: cfg.Betting.PerCandidateCap,
		PortfolioCap:    cfg.Betting.PortfolioCap,
	}
	if bankroll > 0 {
		allocCfg.Bankroll = bankroll
	}

	allocator := betting.NewAllocator(cfg.Betting.WinClass, appLogger)
	plan, err := allocator.Allocate(accepted, allocCfg)
	if err != nil {
		return fmt.Errorf("allocation failed: %w", err)
	}
	for _, entry := range plan.Entries {
		audit.LogAllocation(entry.CandidateID.String(), entry.RecommendedStake,
			entry.KellyFraction, entry.SafeFraction, entry.Flags)
	}
	audit.LogBatchSummary("race_card", len(records), len(accepted), len(rejected)+len(malformed), false)

	summary := validator.SummaryWithStakes(accepted, plan)
	summary.Status = validator.ClassifyPortfolio(len(records)+len(malformed), len(accepted))

	if jsonOutput {
		fmt.Println(plan.ToJSON())
	} else {
		report.WriteAllocationPlan(os.Stdout, plan, summary)
	}

	if csvOutput != "" {
		if err := report.ExportPlanCSV(plan, csvOutput); err != nil {
			return fmt.Errorf("failed to export CSV: %w", err)
		}
	}

	if evaluate {
		return runEvaluation(records)
	}
	return nil
}

func runEvaluation(records []models.PredictionRecord) error {
	analyzer := evaluation.NewAnalyzer(cfg.Evaluation.NumClasses, appLogger)
	classMetrics, err := analyzer.Compute(records)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if jsonOutput {
		fmt.Println(classMetrics.ToJSON())
	} else {
		report.WriteClassMetrics(os.Stdout, classMetrics, map[int]string{0: "win", 1: "place", 2: "other"})
		assessment := evaluation.StrengthsWeaknesses(classMetrics, evaluation.AssessmentConfig{
			ImbalanceMultiplier: cfg.Evaluation.ImbalanceMultiplier,
			PrimaryClass:        cfg.Evaluation.PrimaryClass,
			PrimaryRecallFloor:  cfg.Evaluation.PrimaryRecallFloor,
		})
		for _, s := range assessment.Strengths {
			fmt.Printf("strength: %s\n", s)
		}
		for _, w := range assessment.Weaknesses {
			fmt.Printf("weakness: %s\n", w)
		}
	}
	return nil
}

type malformedRecord struct {
	candidateID string
	err         error
}

func loadRaceCard(path string) ([]models.PredictionRecord, []malformedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read race card: %w", err)
	}
	var raws []rawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, nil, fmt.Errorf("failed to parse race card: %w", err)
	}

	records := make([]models.PredictionRecord, 0, len(raws))
	malformed := []malformedRecord{}
	for _, raw := range raws {
		record, err := models.NewPredictionRecord(raw.EventID, raw.CandidateID, raw.CandidateName,
			raw.Probabilities, raw.MarketPrice, cfg.Evaluation.NumClasses)
		if err != nil {
			malformed = append(malformed, malformedRecord{candidateID: raw.CandidateID.String(), err: err})
			continue
		}
		if raw.ObservedClass != nil {
			record = record.WithObservedClass(*raw.ObservedClass)
		}
		records = append(records, record)
	}
	return records, malformed, nil
}
