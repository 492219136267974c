package acs

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/zonefit/internal/census"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// Bin is one labeled entry of a column; its count is the sum of Vars.
type Bin struct {
	Label string   `yaml:"label,omitempty"`
	Vars  []string `yaml:"vars"`
}

// Table maps one record column onto ACS variables. Bins without a label
// are labeled by position.
type Table struct {
	Series string `yaml:"series,omitempty"`
	Bins   []Bin  `yaml:"bins"`
}

// Tables maps record fields onto ACS variables.
type Tables struct {
	Scalars map[string][]string `yaml:"scalars"`
	Columns map[string]Table    `yaml:"columns"`
}

// DefaultTables returns the built-in ACS 5-year definitions.
func DefaultTables() *Tables {
	t, err := ParseTables(defaultTablesYAML)
	if err != nil {
		panic(err) // embedded definitions are always valid
	}
	return t
}

// LoadTables reads table definitions from a YAML file.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "acs: read tables %s", path)
	}
	t, err := ParseTables(data)
	if err != nil {
		return nil, eris.Wrapf(err, "acs: load tables %s", path)
	}
	return t, nil
}

// ParseTables decodes and validates table definitions.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "acs: decode tables")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that every field is known and every bin names variables.
func (t *Tables) Validate() error {
	var errs []string
	for _, name := range sortedKeys(t.Scalars) {
		if _, ok := scalarFields[name]; !ok {
			errs = append(errs, "unknown scalar field "+name)
		}
		if len(t.Scalars[name]) == 0 {
			errs = append(errs, "scalar "+name+" has no variables")
		}
	}
	for _, name := range sortedKeys(t.Columns) {
		if _, ok := columnFields[name]; !ok {
			errs = append(errs, "unknown column field "+name)
		}
		tbl := t.Columns[name]
		if len(tbl.Bins) == 0 {
			errs = append(errs, "column "+name+" has no bins")
		}
		for i, b := range tbl.Bins {
			if len(b.Vars) == 0 {
				errs = append(errs, "column "+name+" bin "+string(census.IndexLabel(i))+" has no variables")
			}
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("acs: invalid tables: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Variables returns every ACS variable the tables reference, sorted and
// without duplicates.
func (t *Tables) Variables() []string {
	seen := make(map[string]struct{})
	for _, vars := range t.Scalars {
		for _, v := range vars {
			seen[v] = struct{}{}
		}
	}
	for _, tbl := range t.Columns {
		for _, b := range tbl.Bins {
			for _, v := range b.Vars {
				seen[v] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// Build assembles a record from fetched variable values. A scalar or column
// with any missing variable is left unset, as are unknown fields.
func (t *Tables) Build(zip string, values map[string]float64) census.Record {
	rec := census.Record{Zipcode: zip}

	for name, vars := range t.Scalars {
		field, known := scalarFields[name]
		sum, ok := sumVars(values, vars)
		if !known || !ok {
			continue
		}
		*field(&rec) = &sum
	}

	for name, tbl := range t.Columns {
		field, known := columnFields[name]
		if !known {
			continue
		}
		d := make(census.Distribution, 0, len(tbl.Bins))
		complete := true
		for i, b := range tbl.Bins {
			sum, ok := sumVars(values, b.Vars)
			if !ok {
				complete = false
				break
			}
			label := b.Label
			if label == "" {
				label = string(census.IndexLabel(i))
			}
			d = append(d, census.Entry{Label: label, Count: sum})
		}
		if !complete {
			continue
		}
		series := tbl.Series
		if series == "" {
			series = census.SeriesData
		}
		*field(&rec) = census.DataColumn(series, d)
	}

	return rec
}

func sumVars(values map[string]float64, vars []string) (float64, bool) {
	var sum float64
	for _, v := range vars {
		n, ok := values[v]
		if !ok {
			return 0, false
		}
		sum += n
	}
	return sum, true
}

var scalarFields = map[string]func(*census.Record) **float64{
	"population":              func(r *census.Record) **float64 { return &r.Population },
	"population_density":      func(r *census.Record) **float64 { return &r.PopulationDensity },
	"median_household_income": func(r *census.Record) **float64 { return &r.MedianHouseholdIncome },
	"median_home_value":       func(r *census.Record) **float64 { return &r.MedianHomeValue },
	"housing_units":           func(r *census.Record) **float64 { return &r.HousingUnits },
	"occupied_housing_units":  func(r *census.Record) **float64 { return &r.OccupiedHousingUnits },
}

var columnFields = map[string]func(*census.Record) *census.Column{
	"population_by_age":    func(r *census.Record) *census.Column { return &r.PopulationByAge },
	"population_by_gender": func(r *census.Record) *census.Column { return &r.PopulationByGender },
	"population_by_race":   func(r *census.Record) *census.Column { return &r.PopulationByRace },
	"means_of_transportation_to_work_for_workers_16_and_over": func(r *census.Record) *census.Column {
		return &r.MeansOfTransportation
	},
	"travel_time_to_work_in_minutes":              func(r *census.Record) *census.Column { return &r.TravelTimeToWork },
	"monthly_rent_including_utilities_studio_apt": func(r *census.Record) *census.Column { return &r.RentStudio },
	"monthly_rent_including_utilities_1_b":        func(r *census.Record) *census.Column { return &r.Rent1Bedroom },
	"monthly_rent_including_utilities_2_b":        func(r *census.Record) *census.Column { return &r.Rent2Bedroom },
	"monthly_rent_including_utilities_3plus_b":    func(r *census.Record) *census.Column { return &r.Rent3PlusBedroom },
	"employment_status":                           func(r *census.Record) *census.Column { return &r.EmploymentStatus },
	"educational_attainment_for_population_25_and_over": func(r *census.Record) *census.Column {
		return &r.EducationalAttainment
	},
	"households_types": func(r *census.Record) *census.Column { return &r.HouseholdTypes },
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
