package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/zonefit/internal/scorer"
)

var dimensionsCmd = &cobra.Command{
	Use:   "dimensions",
	Short: "List preference dimensions and recognized targets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newScorer(cfg)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return writeDimensions(os.Stdout, scorer.Catalog(s.Calculator()), asJSON)
	},
}

func init() {
	dimensionsCmd.Flags().Bool("json", false, "print as JSON")
	rootCmd.AddCommand(dimensionsCmd)
}

func writeDimensions(w io.Writer, infos []scorer.DimensionInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(infos), "dimensions: encode")
	}

	for _, info := range infos {
		line := fmt.Sprintf("%-22s %-10s", info.Name, info.Kind)
		if len(info.Targets) > 0 {
			line += " " + strings.Join(info.Targets, " | ")
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return eris.Wrap(err, "dimensions: write")
		}
	}
	return nil
}
