package acs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

// censusHandler answers like the ACS API: a header row of the requested
// variables plus the geography, then one data row. Variables in overrides
// get that cell; all others get "10".
func censusHandler(t *testing.T, calls *atomic.Int32, overrides map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/2022/acs/acs5", r.URL.Path)
		assert.Equal(t, "zip code tabulation area:94103", r.URL.Query().Get("for"))

		vars := strings.Split(r.URL.Query().Get("get"), ",")
		assert.LessOrEqual(t, len(vars), maxVarsPerRequest)

		header := append(append([]any{}, toAny(vars)...), "zip code tabulation area")
		row := make([]any, 0, len(header))
		for _, v := range vars {
			if o, ok := overrides[v]; ok {
				row = append(row, o)
				continue
			}
			row = append(row, "10")
		}
		row = append(row, "94103")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([][]any{header, row})
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func TestFetch_BuildsRecord(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(censusHandler(t, &calls, map[string]any{
		"B19013_001E": "85000",
		"B25002_001E": 1000,
		"B25002_002E": "900",
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	rec, err := c.Fetch(context.Background(), "94103")
	require.NoError(t, err)

	vars := DefaultTables().Variables()
	wantCalls := (len(vars) + maxVarsPerRequest - 1) / maxVarsPerRequest
	assert.Equal(t, int32(wantCalls), calls.Load())

	assert.Equal(t, "94103", rec.Zipcode)
	require.NotNil(t, rec.MedianHouseholdIncome)
	assert.Equal(t, 85000.0, *rec.MedianHouseholdIncome)
	require.NotNil(t, rec.HousingUnits)
	assert.Equal(t, 1000.0, *rec.HousingUnits)

	z := rec.Zone()
	assert.Len(t, z.Age, 18)
	// Bin 4 sums six variables.
	n, ok := z.Age.At(4)
	require.True(t, ok)
	assert.Equal(t, 60.0, n)

	male, ok := z.Gender.Count("Male")
	require.True(t, ok)
	assert.Equal(t, 10.0, male)

	noEarnings, ok := z.Employment.Count("No Earnings")
	require.True(t, ok)
	assert.Equal(t, 20.0, noEarnings)

	assert.Len(t, z.CommuteTime, 8)
	assert.Nil(t, z.Rent.OneBed)
}

func TestFetch_NegativeSentinelDropsField(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(censusHandler(t, &calls, map[string]any{
		"B19013_001E": "-666666666",
		"B02001_003E": nil,
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	rec, err := c.Fetch(context.Background(), "94103")
	require.NoError(t, err)

	assert.Nil(t, rec.MedianHouseholdIncome)
	assert.Nil(t, rec.PopulationByRace)
	assert.NotNil(t, rec.PopulationByGender)
}

func TestFetch_UnknownZone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	_, err := c.Fetch(context.Background(), "00000")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownZone))
}

func TestFetch_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	ok := censusHandler(t, &calls, nil)
	var failed atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !failed.Swap(true) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		ok(w, r)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	rec, err := c.Fetch(context.Background(), "94103")
	require.NoError(t, err)
	assert.NotNil(t, rec.Population)
}

func TestFetch_PermanentStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	_, err := c.Fetch(context.Background(), "94103")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_CustomTablesAndYear(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2019/acs/acs5", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "B01003_001E", r.URL.Query().Get("get"))
		_, _ = w.Write([]byte(`[["B01003_001E","zip code tabulation area"],["4321","94103"]]`))
	}))
	defer srv.Close()

	tables, err := ParseTables([]byte("scalars:\n  population: [B01003_001E]\n"))
	require.NoError(t, err)

	c := NewClient("secret", WithBaseURL(srv.URL), WithYear(2019), WithTables(tables), WithRetry(fastRetry()))
	rec, err := c.Fetch(context.Background(), "94103")
	require.NoError(t, err)
	require.NotNil(t, rec.Population)
	assert.Equal(t, 4321.0, *rec.Population)
}

func TestFetch_EmptyZip(t *testing.T) {
	c := NewClient("")
	_, err := c.Fetch(context.Background(), " ")
	require.Error(t, err)
}

func TestParseTables_Invalid(t *testing.T) {
	_, err := ParseTables([]byte(`
scalars:
  elevation: [B00000_001E]
columns:
  population_by_race:
    bins:
      - label: White
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scalar field elevation")
	assert.Contains(t, err.Error(), "has no variables")
}

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables()
	require.NoError(t, tables.Validate())
	assert.Contains(t, tables.Columns, "households_types")
	assert.Equal(t, census.SeriesTotal, tables.Columns["population_by_age"].Series)
	assert.NotContains(t, tables.Columns, "monthly_rent_including_utilities_1_b")

	vars := tables.Variables()
	assert.IsIncreasing(t, vars)
}

func TestReadGazetteer(t *testing.T) {
	data := "GEOID\tALAND\tAWATER\tALAND_SQMI\tAWATER_SQMI\tINTPTLAT\tINTPTLONG                                                                                                               \n" +
		"94103\t3710000\t0\t1.432\t0\t37.772596\t-122.411212\n" +
		"94110\t6070000\t0\t2.344\t0\t37.750249\t-122.415154\n"

	g, err := ReadGazetteer(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, g, 2)
	assert.InDelta(t, 37.772596, g["94103"].Lat, 1e-6)

	pop := 28716.0
	rec := census.Record{Zipcode: "94103", Population: &pop}
	require.True(t, g.Apply(&rec))
	require.NotNil(t, rec.Lng)
	assert.InDelta(t, -122.411212, *rec.Lng, 1e-6)
	require.NotNil(t, rec.PopulationDensity)
	assert.InDelta(t, pop/1.432, *rec.PopulationDensity, 1e-6)

	assert.False(t, g.Apply(&census.Record{Zipcode: "10001"}))
}

func TestReadGazetteer_MissingColumn(t *testing.T) {
	_, err := ReadGazetteer(strings.NewReader("GEOID\tINTPTLAT\n94103\t37.7\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestTables_OptInRentColumn(t *testing.T) {
	tables, err := ParseTables([]byte(`
columns:
  monthly_rent_including_utilities_1_b:
    bins:
      - vars: [B25068_012E]
      - vars: [B25068_013E, B25068_014E]
`))
	require.NoError(t, err)

	rec := tables.Build("94103", map[string]float64{
		"B25068_012E": 40,
		"B25068_013E": 25,
		"B25068_014E": 35,
	})
	rent := rec.Zone().Rent.OneBed
	require.Len(t, rent, 2)
	assert.Equal(t, 40.0, rent[0].Count)
	assert.Equal(t, 60.0, rent[1].Count)
}
