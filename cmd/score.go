package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/internal/export"
	"github.com/sells-group/zonefit/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rank zones by how well they match a preferences file",
	Long: `Score every zone in a zone file against a preferences file.

Each preference names a dimension with an importance between 0 and 1.
Numeric dimensions take a value, category dimensions take a target (see
"zonefit dimensions"). Dimensions a zone has no data for are left out of
that zone's weighted average.

Examples:
  # Rank zones and print a table
  score --zones zones.json --prefs prefs.yaml

  # Export the top 20 to a spreadsheet
  score --zones zones.json --prefs prefs.yaml --limit 20 --format xlsx --output top.xlsx

  # Only mark zones scoring 70% or better as passed
  score --zones zones.json --prefs prefs.yaml --min-score 0.7 --format csv`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("zones", "", "zone file (.json, .yaml)")
	f.String("prefs", "", "preferences file (.json, .yaml)")
	f.String("format", "table", "output format: table, csv, xlsx or json")
	f.String("output", "", "output file path (default: stdout)")
	f.Float64("min-score", -1, "minimum score to pass, 0 to 1 (default from config)")
	f.Int("limit", 0, "maximum number of results (0=use config default)")
	f.Int("concurrency", 0, "zones scored in parallel (0=use config default)")
	_ = scoreCmd.MarkFlagRequired("zones")
	_ = scoreCmd.MarkFlagRequired("prefs")

	rootCmd.AddCommand(scoreCmd)
}

type scoreOptions struct {
	ZonesPath  string
	PrefsPath  string
	Format     export.Format
	OutputPath string
	Filters    scorer.ScoreFilters
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("score"); err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}

	opts := scoreOptions{Format: f}
	opts.ZonesPath, _ = cmd.Flags().GetString("zones")
	opts.PrefsPath, _ = cmd.Flags().GetString("prefs")
	opts.OutputPath, _ = cmd.Flags().GetString("output")
	opts.Filters = scorer.ScoreFilters{
		MinScore:    cfg.Score.MinScore,
		Limit:       cfg.Score.Limit,
		Concurrency: cfg.Score.Concurrency,
	}
	if v, _ := cmd.Flags().GetFloat64("min-score"); v >= 0 {
		opts.Filters.MinScore = v
	}
	if v, _ := cmd.Flags().GetInt("limit"); v > 0 {
		opts.Filters.Limit = v
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		opts.Filters.Concurrency = v
	}

	s, err := newScorer(cfg)
	if err != nil {
		return err
	}
	return scoreFiles(ctx, s, opts, os.Stdout)
}

// scoreFiles loads zones and preferences, scores them and writes the
// results to opts.OutputPath, or stdout when unset.
func scoreFiles(ctx context.Context, s *scorer.Scorer, opts scoreOptions, stdout io.Writer) error {
	if opts.Filters.MinScore < 0 || opts.Filters.MinScore > 1 {
		return eris.Errorf("score: --min-score must be between 0 and 1 (got %v)", opts.Filters.MinScore)
	}
	if opts.Format == export.FormatXLSX && opts.OutputPath == "" {
		return eris.New("score: --output is required for xlsx")
	}

	records, err := census.LoadRecords(opts.ZonesPath)
	if err != nil {
		return eris.Wrap(err, "score: load zones")
	}
	prefs, err := scorer.LoadPreferences(opts.PrefsPath)
	if err != nil {
		return eris.Wrap(err, "score: load preferences")
	}

	log := zap.L().With(zap.String("command", "score"))
	log.Info("scoring zones",
		zap.Int("zones", len(records)),
		zap.Int("dimensions", len(prefs)),
		zap.Float64("min_score", opts.Filters.MinScore),
		zap.Int("limit", opts.Filters.Limit),
	)

	results, err := s.ScoreAll(ctx, records, prefs, opts.Filters)
	if err != nil {
		return eris.Wrap(err, "score: score zones")
	}

	w := stdout
	if opts.OutputPath != "" {
		out, err := os.Create(opts.OutputPath)
		if err != nil {
			return eris.Wrapf(err, "score: create output file %s", opts.OutputPath)
		}
		defer out.Close() //nolint:errcheck
		w = out
	}

	if err := export.Write(w, opts.Format, results); err != nil {
		return err
	}

	// Keep machine-readable stdout clean.
	if opts.Format == export.FormatTable || opts.OutputPath != "" {
		return export.WriteSummary(stdout, results)
	}
	return nil
}
