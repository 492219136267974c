package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonefit/internal/config"
	"github.com/sells-group/zonefit/internal/metric"
	"github.com/sells-group/zonefit/internal/scorer"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "zonefit",
	Short: "Score ZIP code areas against housing and lifestyle preferences",
	Long:  "Matches census demographics of ZIP code tabulation areas against a preferences file and ranks the areas by a weighted desirability score.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newScorer builds a Scorer over the configured metric settings.
func newScorer(c *config.Config) (*scorer.Scorer, error) {
	calc, err := metric.New(c.Metrics)
	if err != nil {
		return nil, err
	}
	return scorer.NewScorer(calc), nil
}
