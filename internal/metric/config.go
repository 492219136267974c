// Package metric turns raw census distributions into match percentages: how
// close a zone's statistic is to what the user wants. Every method returns
// (value, ok); ok=false means the dimension cannot be evaluated for the zone.
package metric

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonefit/internal/config"
)

// Transport modes recognized in means-of-transportation tables.
const (
	ModeCar           = "Car, Truck, Or Van"
	ModePublicTransit = "Public Transportation"
	ModeTaxicab       = "Taxicab"
	ModeMotorcycle    = "Motorcycle"
	ModeActive        = "Bicycle, Walked, Or Other Means"
)

// DefaultConfig returns the keyword sets and bracket parameters of the
// census tables zonefit reads.
func DefaultConfig() config.MetricsConfig {
	return config.MetricsConfig{
		TransportModes: []string{
			ModeCar, ModePublicTransit, ModeTaxicab, ModeMotorcycle, ModeActive,
		},
		// Ordered lowest to highest.
		EducationLevels: []string{
			"Less Than High School Diploma",
			"High School Graduate",
			"Associate's Degree",
			"Bachelor's Degree",
			"Master's Degree",
			"Professional School Degree",
			"Doctorate Degree",
		},
		RaceCategories: []string{
			"White",
			"Black Or African American",
			"American Indian Or Alaskan Native",
			"Asian",
			"Native Hawaiian & Other Pacific Islander",
			"Other Race",
			"Two Or More Races",
		},

		AgeBracket:     config.BracketConfig{Interval: 5, Max: 17},
		CommuteBracket: config.BracketConfig{Interval: 10, Max: 7},
		RentBracket:    config.BracketConfig{Interval: 200, Max: 5},
		// Rent tables are reported per unit; studios count as half a bedroom
		// and 3+ bedroom units as three and a half.
		RentBedrooms: config.RentBedroomsConfig{Studio: 0.5, OneBed: 1, TwoBed: 2, ThreePlus: 3.5},

		MaleLabel:       "Male",
		FemaleLabel:     "Female",
		NoEarningsLabel: "No Earnings",
		FamilyLabels:    []string{"Husband Wife Family Households", "Single Guardian"},
		SingleLabels:    []string{"Singles", "Singles With Roommate"},
	}
}

// Resolve fills every zero field of c from DefaultConfig.
func Resolve(c config.MetricsConfig) config.MetricsConfig {
	d := DefaultConfig()

	if len(c.TransportModes) == 0 {
		c.TransportModes = d.TransportModes
	}
	if len(c.EducationLevels) == 0 {
		c.EducationLevels = d.EducationLevels
	}
	if len(c.RaceCategories) == 0 {
		c.RaceCategories = d.RaceCategories
	}
	if c.AgeBracket == (config.BracketConfig{}) {
		c.AgeBracket = d.AgeBracket
	}
	if c.CommuteBracket == (config.BracketConfig{}) {
		c.CommuteBracket = d.CommuteBracket
	}
	if c.RentBracket == (config.BracketConfig{}) {
		c.RentBracket = d.RentBracket
	}
	if c.RentBedrooms == (config.RentBedroomsConfig{}) {
		c.RentBedrooms = d.RentBedrooms
	}
	if c.MaleLabel == "" {
		c.MaleLabel = d.MaleLabel
	}
	if c.FemaleLabel == "" {
		c.FemaleLabel = d.FemaleLabel
	}
	if c.NoEarningsLabel == "" {
		c.NoEarningsLabel = d.NoEarningsLabel
	}
	if len(c.FamilyLabels) == 0 {
		c.FamilyLabels = d.FamilyLabels
	}
	if len(c.SingleLabels) == 0 {
		c.SingleLabels = d.SingleLabels
	}
	return c
}

// ValidateConfig checks that a MetricsConfig is internally consistent.
func ValidateConfig(c config.MetricsConfig) error {
	var errs []string

	brackets := map[string]config.BracketConfig{
		"age_bracket":     c.AgeBracket,
		"commute_bracket": c.CommuteBracket,
		"rent_bracket":    c.RentBracket,
	}
	for name, b := range brackets {
		if b.Interval <= 0 {
			errs = append(errs, fmt.Sprintf("%s.interval must be > 0", name))
		}
		if b.Max < 0 {
			errs = append(errs, fmt.Sprintf("%s.max must be >= 0", name))
		}
	}

	bedrooms := map[string]float64{
		"studio":     c.RentBedrooms.Studio,
		"one_bed":    c.RentBedrooms.OneBed,
		"two_bed":    c.RentBedrooms.TwoBed,
		"three_plus": c.RentBedrooms.ThreePlus,
	}
	for name, n := range bedrooms {
		if n <= 0 {
			errs = append(errs, fmt.Sprintf("rent_bedrooms.%s must be > 0", name))
		}
	}

	keywords := map[string][]string{
		"transport_modes":  c.TransportModes,
		"education_levels": c.EducationLevels,
		"race_categories":  c.RaceCategories,
		"family_labels":    c.FamilyLabels,
		"single_labels":    c.SingleLabels,
	}
	for name, kws := range keywords {
		if len(kws) == 0 {
			errs = append(errs, fmt.Sprintf("%s must not be empty", name))
		}
	}
	if c.MaleLabel == "" || c.FemaleLabel == "" {
		errs = append(errs, "male_label and female_label are required")
	}
	if c.NoEarningsLabel == "" {
		errs = append(errs, "no_earnings_label is required")
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return eris.Errorf("metric: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
