package scorer

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/internal/desirability"
	"github.com/sells-group/zonefit/internal/metric"
)

// ZoneScore holds the scoring result for a single zone.
type ZoneScore struct {
	Zipcode string  `json:"zipcode"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Score   float64 `json:"score"`
	// Scored is false when no preferred dimension had data for the zone.
	Scored bool `json:"scored"`
	Passed bool `json:"passed"`

	// Components holds the match value per preferred dimension; nil marks
	// an unavailable dimension.
	Components  map[desirability.Dimension]*float64 `json:"components"`
	Unavailable []desirability.Dimension            `json:"unavailable,omitempty"`
	// Pending lists Walk Score dimensions that kept only a raw importance.
	Pending []desirability.Dimension `json:"pending,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// ScoreFilters controls bulk scoring.
type ScoreFilters struct {
	MinScore    float64 `json:"min_score,omitempty"`
	Limit       int     `json:"limit,omitempty"`
	Concurrency int     `json:"concurrency,omitempty"`
}

// Scorer matches zones against preferences.
type Scorer struct {
	calc *metric.Calculator
}

// NewScorer creates a Scorer. A nil calc uses metric.Default().
func NewScorer(calc *metric.Calculator) *Scorer {
	if calc == nil {
		calc = metric.Default()
	}
	return &Scorer{calc: calc}
}

// Calculator returns the metric calculator backing s.
func (s *Scorer) Calculator() *metric.Calculator { return s.calc }

// ScoreOne scores a single zone. Preferences are assumed valid; use
// Preferences.Validate first.
func (s *Scorer) ScoreOne(zone census.Zone, prefs Preferences) (ZoneScore, error) {
	result := ZoneScore{
		Zipcode:    zone.Zipcode,
		City:       zone.MajorCity,
		State:      zone.State,
		Components: make(map[desirability.Dimension]*float64, len(prefs)),
	}

	b := desirability.NewBuilder()
	for _, d := range prefs.Dimensions() {
		pref := prefs[d]
		v, ok := s.match(zone, d, pref)
		if !ok {
			result.Components[d] = nil
			result.Unavailable = append(result.Unavailable, d)
			if d.Scored() {
				b.Importance(d, pref.Importance)
				result.Pending = append(result.Pending, d)
			}
			continue
		}
		value := v
		result.Components[d] = &value
		b.Factor(d, v, pref.Importance)
	}

	profile, err := b.Build()
	if err != nil {
		return result, eris.Wrapf(err, "scorer: build profile for %s", zone.Zipcode)
	}

	result.Score, result.Scored = profile.Score()
	return result, nil
}

// ScoreAll validates prefs, scores every record concurrently and ranks the
// results. A zone that fails to score is kept, unscored, with its error.
func (s *Scorer) ScoreAll(ctx context.Context, records []census.Record, prefs Preferences, filters ScoreFilters) ([]ZoneScore, error) {
	if err := prefs.Validate(s.calc); err != nil {
		return nil, err
	}

	results := make([]ZoneScore, len(records))

	g, gctx := errgroup.WithContext(ctx)
	if filters.Concurrency > 0 {
		g.SetLimit(filters.Concurrency)
	}

	for i := range records {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			zone := records[i].Zone()
			zs, err := s.ScoreOne(zone, prefs)
			if err != nil {
				zap.L().Warn("scorer: zone failed to score",
					zap.String("zipcode", zone.Zipcode),
					zap.Error(err),
				)
				zs.Scored = false
				zs.Score = 0
				zs.Error = err.Error()
			}
			results[i] = zs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scorer: score zones")
	}

	for i := range results {
		results[i].Passed = results[i].Scored && results[i].Score >= filters.MinScore
	}

	sortByScore(results)

	if filters.Limit > 0 && len(results) > filters.Limit {
		results = results[:filters.Limit]
	}

	zap.L().Info("scorer: bulk scoring complete",
		zap.Int("zones_scored", len(records)),
		zap.Int("zones_passed", countPassed(results)),
	)

	return results, nil
}

func (s *Scorer) match(z census.Zone, d desirability.Dimension, p Preference) (float64, bool) {
	var want float64
	if p.Value != nil {
		want = *p.Value
	}

	switch d {
	case desirability.Income:
		return s.calc.Income(z.MedianHouseholdIncome, want)
	case desirability.RentPerBedroom:
		return s.calc.RentPerBedroom(z.Rent, want)
	case desirability.HomeValue:
		return s.calc.HomeValue(z.MedianHomeValue, want)
	case desirability.Transit:
		return walkScore(z.TransitScore)
	case desirability.Walking:
		return walkScore(z.WalkScore)
	case desirability.Biking:
		return walkScore(z.BikeScore)
	case desirability.CommuteMode:
		return s.calc.TransportMode(z.TransportMode, p.Target)
	case desirability.CommuteTime:
		return s.calc.CommuteTime(z.CommuteTime, want)
	case desirability.PopulationDensity:
		return s.calc.PopulationDensity(z.PopulationDensity, want)
	case desirability.HousingAvailability:
		return s.calc.HousingAvailability(z.HousingUnits, z.OccupiedHousingUnits, want)
	case desirability.Age:
		return s.calc.Age(z.Age, want)
	case desirability.SexRatio:
		return s.calc.SexRatio(z.Gender, want)
	case desirability.RacialDiversity:
		return s.calc.Diversity(z.Race, want)
	case desirability.PredominantRace:
		return s.calc.PredominantRace(z.Race, p.Target)
	case desirability.EducationLevel:
		return s.calc.Education(z.Education, p.Target)
	case desirability.UnemploymentRate:
		return s.calc.Unemployment(z.Employment, want)
	case desirability.FamilyRatio:
		return s.calc.FamilyRatio(z.Households, want)
	default:
		return 0, false
	}
}

// walkScore converts a 0–100 Walk Score to a match value.
func walkScore(score *float64) (float64, bool) {
	if score == nil || *score < 0 {
		return 0, false
	}
	return *score / 100, true
}

// sortByScore ranks scored zones first, highest score first. Ties keep
// zipcode order so output is stable.
func sortByScore(scores []ZoneScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Scored != b.Scored {
			return a.Scored
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Zipcode < b.Zipcode
	})
}

func countPassed(scores []ZoneScore) int {
	n := 0
	for i := range scores {
		if scores[i].Passed {
			n++
		}
	}
	return n
}
