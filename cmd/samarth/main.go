package main

import (
	"context"
	"os"

	"samarth-go/internal/config"
	"samarth-go/internal/ingest"
	"samarth-go/internal/llm"
	"samarth-go/internal/metrics"
	"samarth-go/internal/models"
	"samarth-go/internal/service"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg        *config.Config
	configFile string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "samarth",
	Short: "Answer questions over rainfall, crop and spice datasets",
	Long:  "Parses free-text agricultural questions, checks them against the loaded datasets, suggests answerable rewrites and computes cited results.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c
		if dataDir != "" {
			cfg.Data.Dir = dataDir
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// loadEngine reads the datasets and wires the core over them
func loadEngine(ctx context.Context) (*service.Engine, error) {
	reg, err := ingest.Load(ctx, cfg.Data.Dir, ingest.Options{
		Manifest:     cfg.Data.Manifest,
		DefaultState: cfg.Data.DefaultState,
	})
	if err != nil {
		return nil, eris.Wrap(err, "load datasets")
	}
	if len(reg.Datasets()) == 0 {
		return nil, eris.Errorf("no datasets found in %s", cfg.Data.Dir)
	}

	for _, kind := range []models.DatasetKind{models.KindRainfall, models.KindCrop, models.KindSpice} {
		metrics.DatasetsLoaded.WithLabelValues(string(kind)).Set(float64(len(reg.ByKind(kind))))
	}

	engine := service.NewEngine(reg, cfg.Policy, clockwork.NewRealClock())
	if cfg.Answer.Enabled {
		engine.Answerer = llm.NewService(llm.Config{
			BaseURL: cfg.Answer.BaseURL,
			Model:   cfg.Answer.Model,
			Timeout: cfg.Answer.Timeout,
		})
		zap.L().Info("answer rendering enabled", zap.String("model", cfg.Answer.Model))
	}
	return engine, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "dataset directory (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
