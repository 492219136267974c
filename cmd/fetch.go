package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/internal/config"
	"github.com/sells-group/zonefit/internal/resilience"
	"github.com/sells-group/zonefit/pkg/acs"
	"github.com/sells-group/zonefit/pkg/walkscore"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Build a zone file from the Census ACS API",
	Long: `Fetch ACS 5-year estimates for ZIP code tabulation areas and write them
as a zone file that "zonefit score" can read.

Zones are selected with --zips, or with --city (and optionally --state)
against a Census ZCTA-to-place relationship file (--places). The places
file also fills in each zone's city and state.

A Census Gazetteer ZCTA file (--gazetteer) adds each zone's reference point
and population density. With --walkscore, zones with a reference point also
get Walk Score, Transit Score and Bike Score (requires WALKSCORE_KEY).

The default ACS tables carry no rent breakdown, so rent_per_bd is
unavailable for fetched zones unless census.tables_path names a tables file
that maps the rent columns.

Examples:
  fetch --zips 94103,94110 --output zones.json
  fetch --city "San Francisco" --state CA --places tab20_zcta520_place20_natl.txt --output zones.json
  fetch --zips 94103 --gazetteer 2020_Gaz_zcta_national.txt --walkscore --output zones.json`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.String("zips", "", "comma-separated ZIP codes")
	f.String("city", "", "select every ZIP whose major place is this city (requires --places)")
	f.String("state", "", "two-letter state code narrowing --city")
	f.String("places", "", "Census ZCTA-to-place relationship file for city and state")
	f.String("gazetteer", "", "Census Gazetteer ZCTA file for coordinates and land area")
	f.Bool("walkscore", false, "add Walk Score, Transit Score and Bike Score")
	f.String("output", "", "output file path (default: stdout)")
	f.Int("concurrency", 4, "zones fetched in parallel")

	rootCmd.AddCommand(fetchCmd)
}

// zoneFetcher fetches one zone; satisfied by *acs.Client.
type zoneFetcher interface {
	Fetch(ctx context.Context, zip string) (*census.Record, error)
}

// scoreFetcher fetches walk scores; satisfied by *walkscore.Client.
type scoreFetcher interface {
	Score(ctx context.Context, lat, lng float64) (*walkscore.Score, error)
}

type fetchOptions struct {
	Zips        []string
	Places      acs.Places
	Gazetteer   acs.Gazetteer
	WalkScore   scoreFetcher
	Concurrency int
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	withWalk, _ := cmd.Flags().GetBool("walkscore")
	if err := cfg.Validate("fetch"); err != nil {
		return err
	}
	if withWalk {
		if err := cfg.Validate("fetch-walkscore"); err != nil {
			return err
		}
	}

	zipsFlag, _ := cmd.Flags().GetString("zips")
	city, _ := cmd.Flags().GetString("city")
	state, _ := cmd.Flags().GetString("state")
	placesPath, _ := cmd.Flags().GetString("places")
	gazPath, _ := cmd.Flags().GetString("gazetteer")
	outputPath, _ := cmd.Flags().GetString("output")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	opts := fetchOptions{Concurrency: concurrency}
	if placesPath != "" {
		p, err := acs.LoadPlaces(placesPath)
		if err != nil {
			return err
		}
		opts.Places = p
	}

	zips, err := selectZips(splitAndTrim(zipsFlag), city, state, opts.Places)
	if err != nil {
		return err
	}
	opts.Zips = zips

	if gazPath != "" {
		g, err := acs.LoadGazetteer(gazPath)
		if err != nil {
			return err
		}
		opts.Gazetteer = g
	}

	client, err := newACSClient(cfg)
	if err != nil {
		return err
	}
	if withWalk {
		opts.WalkScore = newWalkScoreClient(cfg)
	}

	records, err := fetchRecords(ctx, client, opts)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "fetch: create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	return census.WriteRecords(w, records)
}

func newACSClient(c *config.Config) (*acs.Client, error) {
	retry := resilience.FromConfig(c.Retry)
	opts := []acs.Option{
		acs.WithBaseURL(c.Census.BaseURL),
		acs.WithYear(c.Census.Year),
		acs.WithDataset(c.Census.Dataset),
		acs.WithRateLimit(c.Census.RateLimit),
		acs.WithRetry(retry),
	}
	if c.Census.TablesPath != "" {
		t, err := acs.LoadTables(c.Census.TablesPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, acs.WithTables(t))
	}
	return acs.NewClient(c.Census.Key, opts...), nil
}

func newWalkScoreClient(c *config.Config) *walkscore.Client {
	return walkscore.NewClient(c.WalkScore.Key,
		walkscore.WithBaseURL(c.WalkScore.BaseURL),
		walkscore.WithRateLimit(c.WalkScore.RateLimit),
		walkscore.WithRetry(resilience.FromConfig(c.Retry)),
	)
}

// fetchRecords fetches every zip concurrently and returns the records in
// input order. Unknown ZCTAs are skipped with a warning; any other failure
// aborts the run. Walk Score failures only drop the scores.
func fetchRecords(ctx context.Context, client zoneFetcher, opts fetchOptions) ([]census.Record, error) {
	log := zap.L().With(zap.String("command", "fetch"))
	start := time.Now()

	fetched := make([]*census.Record, len(opts.Zips))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, zip := range opts.Zips {
		i, zip := i, zip
		g.Go(func() error {
			rec, err := client.Fetch(gctx, zip)
			if err != nil {
				if eris.Is(err, acs.ErrUnknownZone) {
					log.Warn("skipping unknown zone", zap.String("zipcode", zip))
					return nil
				}
				return eris.Wrapf(err, "fetch: zone %s", zip)
			}

			if opts.Places != nil && !opts.Places.Apply(rec) {
				log.Debug("zone has no place", zap.String("zipcode", zip))
			}

			if opts.Gazetteer != nil && !opts.Gazetteer.Apply(rec) {
				log.Warn("zone missing from gazetteer", zap.String("zipcode", zip))
			}

			if opts.WalkScore != nil {
				if rec.Lat == nil || rec.Lng == nil {
					log.Warn("no reference point for walk score", zap.String("zipcode", zip))
				} else if s, err := opts.WalkScore.Score(gctx, *rec.Lat, *rec.Lng); err != nil {
					log.Warn("walk score failed", zap.String("zipcode", zip), zap.Error(err))
				} else {
					s.Apply(rec)
				}
			}

			fetched[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]census.Record, 0, len(fetched))
	for _, rec := range fetched {
		if rec != nil {
			records = append(records, *rec)
		}
	}

	log.Info("fetch complete",
		zap.Int("requested", len(opts.Zips)),
		zap.Int("fetched", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}

// selectZips merges explicit zips with the zips of city, keeping the first
// occurrence of each.
func selectZips(zips []string, city, state string, places acs.Places) ([]string, error) {
	city, state = strings.TrimSpace(city), strings.TrimSpace(state)
	if city == "" && state != "" {
		return nil, eris.New("fetch: --state requires --city")
	}
	if city != "" {
		if places == nil {
			return nil, eris.New("fetch: --city requires --places")
		}
		matched := places.Zips(city, state)
		if len(matched) == 0 {
			return nil, eris.Errorf("fetch: no zones found for %s", strings.TrimSuffix(city+", "+state, ", "))
		}
		zips = append(zips, matched...)
	}
	if len(zips) == 0 {
		return nil, eris.New("fetch: --zips or --city is required")
	}

	seen := make(map[string]struct{}, len(zips))
	out := make([]string, 0, len(zips))
	for _, z := range zips {
		if _, ok := seen[z]; ok {
			continue
		}
		seen[z] = struct{}{}
		out = append(out, z)
	}
	return out, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
