package acs

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonefit/internal/census"
)

// ZonePlace is the place a ZCTA belongs to: the place covering the largest
// share of its land area in the ZCTA-to-place relationship file.
type ZonePlace struct {
	Zipcode  string
	City     string
	State    string
	LandPart float64
}

// Places indexes each ZCTA's major place by ZIP code.
type Places map[string]ZonePlace

// placeSuffixes are the legal/statistical area descriptions the Census
// appends to place names ("San Francisco city", "Paradise CDP").
var placeSuffixes = []string{
	" city and borough", " consolidated government", " metropolitan government",
	" unified government", " urban county", " municipality", " comunidad",
	" zona urbana", " borough", " village", " city", " town", " CDP",
}

// stateFIPS maps state FIPS codes to USPS abbreviations.
var stateFIPS = map[string]string{
	"01": "AL", "02": "AK", "04": "AZ", "05": "AR", "06": "CA", "08": "CO",
	"09": "CT", "10": "DE", "11": "DC", "12": "FL", "13": "GA", "15": "HI",
	"16": "ID", "17": "IL", "18": "IN", "19": "IA", "20": "KS", "21": "KY",
	"22": "LA", "23": "ME", "24": "MD", "25": "MA", "26": "MI", "27": "MN",
	"28": "MS", "29": "MO", "30": "MT", "31": "NE", "32": "NV", "33": "NH",
	"34": "NJ", "35": "NM", "36": "NY", "37": "NC", "38": "ND", "39": "OH",
	"40": "OK", "41": "OR", "42": "PA", "44": "RI", "45": "SC", "46": "SD",
	"47": "TN", "48": "TX", "49": "UT", "50": "VT", "51": "VA", "53": "WA",
	"54": "WV", "55": "WI", "56": "WY", "72": "PR",
}

// LoadPlaces reads a Census ZCTA-to-place relationship file
// (pipe-delimited, with header).
func LoadPlaces(path string) (Places, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "acs: open places %s", path)
	}
	defer f.Close() //nolint:errcheck

	p, err := ReadPlaces(f)
	if err != nil {
		return nil, eris.Wrapf(err, "acs: read places %s", path)
	}
	return p, nil
}

// ReadPlaces parses relationship rows. Columns are matched by prefix so
// both vintage suffixes (GEOID_ZCTA5_20, GEOID_PLACE_20, ...) are accepted.
// Rows with no place (ZCTA parts outside any incorporated place or CDP) are
// skipped.
func ReadPlaces(r io.Reader) (Places, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "acs: read places header")
	}
	col := make(map[string]int, 4)
	for _, name := range []string{"GEOID_ZCTA5", "GEOID_PLACE", "NAMELSAD_PLACE", "AREALAND_PART"} {
		for i, h := range header {
			h = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
			if h == name || strings.HasPrefix(h, name+"_") {
				col[name] = i
				break
			}
		}
		if _, ok := col[name]; !ok {
			return nil, eris.Errorf("acs: places missing column %s", name)
		}
	}

	p := make(Places)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "acs: places line %d", line)
		}

		field := func(name string) string {
			i := col[name]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		zip, geoid, name := field("GEOID_ZCTA5"), field("GEOID_PLACE"), field("NAMELSAD_PLACE")
		if zip == "" || geoid == "" || name == "" {
			continue
		}
		land, err := strconv.ParseFloat(field("AREALAND_PART"), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "acs: places line %d land area", line)
		}

		if cur, ok := p[zip]; ok && cur.LandPart >= land {
			continue
		}
		p[zip] = ZonePlace{
			Zipcode:  zip,
			City:     placeName(name),
			State:    stateFIPS[geoid[:min(2, len(geoid))]],
			LandPart: land,
		}
	}
	return p, nil
}

// Zips returns the ZIP codes whose major place is city, sorted. Matching
// ignores case. An empty state matches every state.
func (p Places) Zips(city, state string) []string {
	city, state = strings.TrimSpace(city), strings.TrimSpace(state)
	var out []string
	for zip, zp := range p {
		if !strings.EqualFold(zp.City, city) {
			continue
		}
		if state != "" && !strings.EqualFold(zp.State, state) {
			continue
		}
		out = append(out, zip)
	}
	sort.Strings(out)
	return out
}

// Apply sets the record's city and state. It reports whether the ZIP was
// found.
func (p Places) Apply(rec *census.Record) bool {
	zp, ok := p[rec.Zipcode]
	if !ok {
		return false
	}
	rec.MajorCity = zp.City
	rec.State = zp.State
	return true
}

func placeName(namelsad string) string {
	name := strings.TrimSuffix(namelsad, " (balance)")
	for _, suffix := range placeSuffixes {
		if trimmed, ok := strings.CutSuffix(name, suffix); ok && trimmed != "" {
			return trimmed
		}
	}
	return name
}
