package desirability

import (
	"github.com/rotisserie/eris"
)

// Dimension identifies one preference dimension.
type Dimension string

// Preference dimensions.
const (
	Income              Dimension = "income"
	RentPerBedroom      Dimension = "rent_per_bd"
	HomeValue           Dimension = "home_value"
	Transit             Dimension = "transit"
	Walking             Dimension = "walking"
	Biking              Dimension = "biking"
	CommuteMode         Dimension = "commute_mode"
	CommuteTime         Dimension = "commute_time"
	PopulationDensity   Dimension = "population_density"
	HousingAvailability Dimension = "housing_availability"
	Age                 Dimension = "age"
	SexRatio            Dimension = "sex_ratio"
	RacialDiversity     Dimension = "racial_diversity"
	PredominantRace     Dimension = "predominant_race"
	EducationLevel      Dimension = "education_level"
	UnemploymentRate    Dimension = "unemployment_rate"
	FamilyRatio         Dimension = "family_ratio"
)

var dimensions = []Dimension{
	Income, RentPerBedroom, HomeValue,
	Transit, Walking, Biking,
	CommuteMode, CommuteTime,
	PopulationDensity, HousingAvailability,
	Age, SexRatio, RacialDiversity, PredominantRace,
	EducationLevel, UnemploymentRate, FamilyRatio,
}

// Dimensions returns every dimension in display order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if !d.Valid() {
		return "", eris.Errorf("desirability: unknown dimension %q", s)
	}
	return d, nil
}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	for _, known := range dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// Categorical reports whether d is matched against a category keyword rather
// than a numeric target.
func (d Dimension) Categorical() bool {
	switch d {
	case CommuteMode, EducationLevel, PredominantRace:
		return true
	default:
		return false
	}
}

// Scored reports whether d's value comes from an external score (Walk Score)
// rather than census tables.
func (d Dimension) Scored() bool {
	switch d {
	case Transit, Walking, Biking:
		return true
	default:
		return false
	}
}
