package metric

import (
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/internal/config"
)

// Calculator computes per-dimension match percentages against an immutable
// MetricsConfig. It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	cfg            config.MetricsConfig
	transportModes map[string]struct{}
	education      map[string]struct{}
	races          map[string]struct{}
}

// New resolves cfg against the defaults, validates it and returns a
// Calculator that owns a private copy.
func New(cfg config.MetricsConfig) (*Calculator, error) {
	cfg = cloneConfig(Resolve(cfg))
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Calculator{
		cfg:            cfg,
		transportModes: keywordSet(cfg.TransportModes),
		education:      keywordSet(cfg.EducationLevels),
		races:          keywordSet(cfg.RaceCategories),
	}, nil
}

// Default returns a Calculator over DefaultConfig.
func Default() *Calculator {
	c, err := New(DefaultConfig())
	if err != nil {
		panic(err) // DefaultConfig is always valid.
	}
	return c
}

// Config returns a copy of the resolved configuration.
func (c *Calculator) Config() config.MetricsConfig {
	return cloneConfig(c.cfg)
}

// TransportModes returns the recognized transport-mode keywords.
func (c *Calculator) TransportModes() []string { return slices.Clone(c.cfg.TransportModes) }

// EducationLevels returns the recognized education levels, lowest first.
func (c *Calculator) EducationLevels() []string { return slices.Clone(c.cfg.EducationLevels) }

// RaceCategories returns the recognized race categories.
func (c *Calculator) RaceCategories() []string { return slices.Clone(c.cfg.RaceCategories) }

// TransportMode returns the share of commuters using mode.
func (c *Calculator) TransportMode(d census.Distribution, mode string) (float64, bool) {
	return categoryShare(d, mode, c.transportModes)
}

// Education returns the share of the 25+ population whose highest
// attainment is level.
func (c *Calculator) Education(d census.Distribution, level string) (float64, bool) {
	return categoryShare(d, level, c.education)
}

// PredominantRace returns the population share of race.
func (c *Calculator) PredominantRace(d census.Distribution, race string) (float64, bool) {
	return categoryShare(d, race, c.races)
}

// Age returns the share of residents in the same age bracket as age. The
// match is exact-bracket, not cumulative. The bracket is looked up by its
// index label first, then by position for unlabeled series.
func (c *Calculator) Age(d census.Distribution, age float64) (float64, bool) {
	if d == nil {
		return 0, false
	}
	b := Bracket(age, c.cfg.AgeBracket.Interval, c.cfg.AgeBracket.Max)
	count, ok := d.Count(string(census.IndexLabel(b)))
	if !ok {
		if labeledByIndex(d) {
			return 0, false
		}
		if count, ok = d.At(b); !ok {
			return 0, false
		}
	}
	total := d.Total()
	if total <= 0 {
		return 0, false
	}
	return count / total, true
}

// CommuteTime returns the share of workers whose commute falls in the
// desired bracket or a shorter one.
func (c *Calculator) CommuteTime(d census.Distribution, minutes float64) (float64, bool) {
	if d == nil {
		return 0, false
	}
	total := d.Total()
	if total <= 0 {
		return 0, false
	}
	b := Bracket(minutes, c.cfg.CommuteBracket.Interval, c.cfg.CommuteBracket.Max)
	return d.CumulativeTo(b) / total, true
}

// RentPerBedroom returns the share of rental units priced at or below the
// desired per-bedroom rent. Each unit-size table is bracketed at
// rent × assumed bedrooms; counts are scaled by rent and rounded before the
// tables are pooled.
func (c *Calculator) RentPerBedroom(t census.RentTables, rent float64) (float64, bool) {
	units := []struct {
		d        census.Distribution
		bedrooms float64
	}{
		{t.Studio, c.cfg.RentBedrooms.Studio},
		{t.OneBed, c.cfg.RentBedrooms.OneBed},
		{t.TwoBed, c.cfg.RentBedrooms.TwoBed},
		{t.ThreePlus, c.cfg.RentBedrooms.ThreePlus},
	}

	var desired, total float64
	present := false
	for _, u := range units {
		if u.d == nil {
			continue
		}
		present = true
		b := Bracket(rent*u.bedrooms, c.cfg.RentBracket.Interval, c.cfg.RentBracket.Max)
		desired += math.Round(u.d.CumulativeTo(b) * rent)
		total += math.Round(u.d.Total() * rent)
	}

	if !present || total <= 0 {
		return 0, false
	}
	return desired / total, true
}

// HousingAvailability compares the vacancy rate 1 − occupied/units with the
// desired rate.
func (c *Calculator) HousingAvailability(units, occupied *float64, desired float64) (float64, bool) {
	if units == nil || occupied == nil || *units <= 0 || *occupied < 0 || *occupied > *units {
		return 0, false
	}
	actual := 1 - (*occupied)/(*units)
	return Closeness(actual, desired), true
}

// SexRatio compares males per female with the desired ratio.
func (c *Calculator) SexRatio(d census.Distribution, desired float64) (float64, bool) {
	male, ok := d.Count(c.cfg.MaleLabel)
	if !ok {
		return 0, false
	}
	female, ok := d.Count(c.cfg.FemaleLabel)
	if !ok || female <= 0 {
		return 0, false
	}
	return Closeness(male/female, desired), true
}

// Diversity compares the share held by the largest race category with the
// desired share. It measures how dominant the largest group is, not an
// entropy-style diversity index.
func (c *Calculator) Diversity(d census.Distribution, desired float64) (float64, bool) {
	shares := d.Shares()
	if len(shares) == 0 {
		return 0, false
	}
	return Closeness(floats.Max(shares), desired), true
}

// Unemployment compares the no-earnings share with the desired rate.
func (c *Calculator) Unemployment(d census.Distribution, desired float64) (float64, bool) {
	none, ok := d.Count(c.cfg.NoEarningsLabel)
	if !ok {
		return 0, false
	}
	total := d.Total()
	if total <= 0 {
		return 0, false
	}
	return Closeness(none/total, desired), true
}

// FamilyRatio compares family households per single household with the
// desired ratio. Every family and single label must be present.
func (c *Calculator) FamilyRatio(d census.Distribution, desired float64) (float64, bool) {
	family, ok := d.SumOf(c.cfg.FamilyLabels...)
	if !ok {
		return 0, false
	}
	single, ok := d.SumOf(c.cfg.SingleLabels...)
	if !ok || single <= 0 {
		return 0, false
	}
	return Closeness(family/single, desired), true
}

// Income compares the median household income with the desired income.
func (c *Calculator) Income(median *float64, desired float64) (float64, bool) {
	return scalarCloseness(median, desired)
}

// HomeValue compares the median home value with the desired value.
func (c *Calculator) HomeValue(median *float64, desired float64) (float64, bool) {
	return scalarCloseness(median, desired)
}

// PopulationDensity compares people per square mile with the desired density.
func (c *Calculator) PopulationDensity(density *float64, desired float64) (float64, bool) {
	return scalarCloseness(density, desired)
}

// labeledByIndex reports whether any entry carries a bracket index label.
func labeledByIndex(d census.Distribution) bool {
	for _, e := range d {
		if _, err := strconv.Atoi(e.Label); err == nil {
			return true
		}
	}
	return false
}

func categoryShare(d census.Distribution, keyword string, known map[string]struct{}) (float64, bool) {
	if _, ok := known[keyword]; !ok {
		return 0, false
	}
	count, ok := d.Count(keyword)
	if !ok {
		return 0, false
	}
	total := d.Total()
	if total <= 0 {
		return 0, false
	}
	return count / total, true
}

func scalarCloseness(actual *float64, desired float64) (float64, bool) {
	if actual == nil || *actual < 0 {
		return 0, false
	}
	return Closeness(*actual, desired), true
}

func keywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		set[k] = struct{}{}
	}
	return set
}

func cloneConfig(c config.MetricsConfig) config.MetricsConfig {
	c.TransportModes = slices.Clone(c.TransportModes)
	c.EducationLevels = slices.Clone(c.EducationLevels)
	c.RaceCategories = slices.Clone(c.RaceCategories)
	c.FamilyLabels = slices.Clone(c.FamilyLabels)
	c.SingleLabels = slices.Clone(c.SingleLabels)
	return c
}
