package acs

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonefit/internal/census"
)

// Place is a ZCTA's entry in the Census Gazetteer file.
type Place struct {
	Zipcode    string
	Lat        float64
	Lng        float64
	LandSqMile float64
}

// Gazetteer indexes Gazetteer places by ZIP code.
type Gazetteer map[string]Place

// LoadGazetteer reads a ZCTA Gazetteer file (tab-separated, with header).
func LoadGazetteer(path string) (Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "acs: open gazetteer %s", path)
	}
	defer f.Close() //nolint:errcheck

	g, err := ReadGazetteer(f)
	if err != nil {
		return nil, eris.Wrapf(err, "acs: read gazetteer %s", path)
	}
	return g, nil
}

// ReadGazetteer parses Gazetteer rows. Only GEOID, ALAND_SQMI, INTPTLAT and
// INTPTLONG are used.
func ReadGazetteer(r io.Reader) (Gazetteer, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "acs: read gazetteer header")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"GEOID", "ALAND_SQMI", "INTPTLAT", "INTPTLONG"} {
		if _, ok := col[name]; !ok {
			return nil, eris.Errorf("acs: gazetteer missing column %s", name)
		}
	}

	g := make(Gazetteer)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "acs: gazetteer line %d", line)
		}

		field := func(name string) string {
			i := col[name]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		p := Place{Zipcode: field("GEOID")}
		if p.Zipcode == "" {
			continue
		}
		if p.Lat, err = strconv.ParseFloat(field("INTPTLAT"), 64); err != nil {
			return nil, eris.Wrapf(err, "acs: gazetteer line %d latitude", line)
		}
		if p.Lng, err = strconv.ParseFloat(field("INTPTLONG"), 64); err != nil {
			return nil, eris.Wrapf(err, "acs: gazetteer line %d longitude", line)
		}
		if p.LandSqMile, err = strconv.ParseFloat(field("ALAND_SQMI"), 64); err != nil {
			return nil, eris.Wrapf(err, "acs: gazetteer line %d land area", line)
		}
		g[p.Zipcode] = p
	}
	return g, nil
}

// Apply sets the record's reference point and, when population is known and
// land area is positive, its population density per square mile. It
// reports whether the ZIP was found.
func (g Gazetteer) Apply(rec *census.Record) bool {
	p, ok := g[rec.Zipcode]
	if !ok {
		return false
	}
	lat, lng := p.Lat, p.Lng
	rec.Lat, rec.Lng = &lat, &lng
	if rec.Population != nil && p.LandSqMile > 0 {
		density := *rec.Population / p.LandSqMile
		rec.PopulationDensity = &density
	}
	return true
}
