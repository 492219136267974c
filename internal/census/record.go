package census

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Series keys used by census exports.
const (
	SeriesData  = "Data"
	SeriesTotal = "Total"
)

// Label is a category label. Bracketed tables label their points with the
// bracket index as a number, so Label accepts both strings and numbers.
type Label string

// UnmarshalJSON accepts a JSON string or number.
func (l *Label) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return eris.Wrap(err, "census: decode label")
		}
		*l = Label(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return eris.Wrap(err, "census: decode numeric label")
	}
	*l = Label(n.String())
	return nil
}

// UnmarshalYAML takes the scalar text regardless of its resolved tag.
func (l *Label) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return eris.Errorf("census: label must be a scalar (line %d)", node.Line)
	}
	*l = Label(node.Value)
	return nil
}

// IndexLabel returns the label used for bracket i.
func IndexLabel(i int) Label {
	return Label(strconv.Itoa(i))
}

// Point is one (category, count) pair in a series.
type Point struct {
	X Label   `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Series is a named list of points, e.g. the "Male", "Female" and "Total"
// series of an age table.
type Series struct {
	Key    string  `json:"key" yaml:"key"`
	Values []Point `json:"values" yaml:"values"`
}

// Column is a tabulated census field.
type Column []Series

// Series returns the named series as a Distribution, or nil when the column
// or series is absent.
func (c Column) Series(key string) Distribution {
	for _, s := range c {
		if s.Key != key {
			continue
		}
		d := make(Distribution, len(s.Values))
		for i, p := range s.Values {
			d[i] = Entry{Label: string(p.X), Count: p.Y}
		}
		return d
	}
	return nil
}

// DataColumn wraps a distribution as a single-series column under key.
func DataColumn(key string, d Distribution) Column {
	if d == nil {
		return nil
	}
	s := Series{Key: key, Values: make([]Point, len(d))}
	for i, e := range d {
		s.Values[i] = Point{X: Label(e.Label), Y: e.Count}
	}
	return Column{s}
}

// Record is one zone as stored in a zone file.
type Record struct {
	Zipcode   string   `json:"zipcode" yaml:"zipcode"`
	MajorCity string   `json:"major_city,omitempty" yaml:"major_city,omitempty"`
	State     string   `json:"state,omitempty" yaml:"state,omitempty"`
	Lat       *float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty" yaml:"lng,omitempty"`

	Population            *float64 `json:"population,omitempty" yaml:"population,omitempty"`
	PopulationDensity     *float64 `json:"population_density,omitempty" yaml:"population_density,omitempty"`
	MedianHouseholdIncome *float64 `json:"median_household_income,omitempty" yaml:"median_household_income,omitempty"`
	MedianHomeValue       *float64 `json:"median_home_value,omitempty" yaml:"median_home_value,omitempty"`
	HousingUnits          *float64 `json:"housing_units,omitempty" yaml:"housing_units,omitempty"`
	OccupiedHousingUnits  *float64 `json:"occupied_housing_units,omitempty" yaml:"occupied_housing_units,omitempty"`

	PopulationByAge       Column `json:"population_by_age,omitempty" yaml:"population_by_age,omitempty"`
	PopulationByGender    Column `json:"population_by_gender,omitempty" yaml:"population_by_gender,omitempty"`
	PopulationByRace      Column `json:"population_by_race,omitempty" yaml:"population_by_race,omitempty"`
	MeansOfTransportation Column `json:"means_of_transportation_to_work_for_workers_16_and_over,omitempty" yaml:"means_of_transportation_to_work_for_workers_16_and_over,omitempty"`
	TravelTimeToWork      Column `json:"travel_time_to_work_in_minutes,omitempty" yaml:"travel_time_to_work_in_minutes,omitempty"`
	RentStudio            Column `json:"monthly_rent_including_utilities_studio_apt,omitempty" yaml:"monthly_rent_including_utilities_studio_apt,omitempty"`
	Rent1Bedroom          Column `json:"monthly_rent_including_utilities_1_b,omitempty" yaml:"monthly_rent_including_utilities_1_b,omitempty"`
	Rent2Bedroom          Column `json:"monthly_rent_including_utilities_2_b,omitempty" yaml:"monthly_rent_including_utilities_2_b,omitempty"`
	Rent3PlusBedroom      Column `json:"monthly_rent_including_utilities_3plus_b,omitempty" yaml:"monthly_rent_including_utilities_3plus_b,omitempty"`
	EmploymentStatus      Column `json:"employment_status,omitempty" yaml:"employment_status,omitempty"`
	EducationalAttainment Column `json:"educational_attainment_for_population_25_and_over,omitempty" yaml:"educational_attainment_for_population_25_and_over,omitempty"`
	HouseholdTypes        Column `json:"households_types,omitempty" yaml:"households_types,omitempty"`

	WalkScore    *float64 `json:"walk_score,omitempty" yaml:"walk_score,omitempty"`
	TransitScore *float64 `json:"transit_score,omitempty" yaml:"transit_score,omitempty"`
	BikeScore    *float64 `json:"bike_score,omitempty" yaml:"bike_score,omitempty"`
}

// RentTables holds the per-unit-size rent distributions.
type RentTables struct {
	Studio    Distribution
	OneBed    Distribution
	TwoBed    Distribution
	ThreePlus Distribution
}

// Zone is the resolved, read-only view of a Record the metrics consume.
type Zone struct {
	Zipcode   string
	MajorCity string
	State     string
	Lat       *float64
	Lng       *float64

	PopulationDensity     *float64
	MedianHouseholdIncome *float64
	MedianHomeValue       *float64
	HousingUnits          *float64
	OccupiedHousingUnits  *float64

	Age           Distribution
	Gender        Distribution
	Race          Distribution
	TransportMode Distribution
	CommuteTime   Distribution
	Rent          RentTables
	Employment    Distribution
	Education     Distribution
	Households    Distribution

	WalkScore    *float64
	TransitScore *float64
	BikeScore    *float64
}

// Zone resolves the record's columns into distributions. Age is read from
// the "Total" series, every other column from "Data".
func (r Record) Zone() Zone {
	return Zone{
		Zipcode:   r.Zipcode,
		MajorCity: r.MajorCity,
		State:     r.State,
		Lat:       r.Lat,
		Lng:       r.Lng,

		PopulationDensity:     r.PopulationDensity,
		MedianHouseholdIncome: r.MedianHouseholdIncome,
		MedianHomeValue:       r.MedianHomeValue,
		HousingUnits:          r.HousingUnits,
		OccupiedHousingUnits:  r.OccupiedHousingUnits,

		Age:           r.PopulationByAge.Series(SeriesTotal),
		Gender:        r.PopulationByGender.Series(SeriesData),
		Race:          r.PopulationByRace.Series(SeriesData),
		TransportMode: r.MeansOfTransportation.Series(SeriesData),
		CommuteTime:   r.TravelTimeToWork.Series(SeriesData),
		Rent: RentTables{
			Studio:    r.RentStudio.Series(SeriesData),
			OneBed:    r.Rent1Bedroom.Series(SeriesData),
			TwoBed:    r.Rent2Bedroom.Series(SeriesData),
			ThreePlus: r.Rent3PlusBedroom.Series(SeriesData),
		},
		Employment: r.EmploymentStatus.Series(SeriesData),
		Education:  r.EducationalAttainment.Series(SeriesData),
		Households: r.HouseholdTypes.Series(SeriesData),

		WalkScore:    r.WalkScore,
		TransitScore: r.TransitScore,
		BikeScore:    r.BikeScore,
	}
}
