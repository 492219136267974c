package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/pkg/acs"
	"github.com/sells-group/zonefit/pkg/walkscore"
)

type fakeZones struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeZones) Fetch(_ context.Context, zip string) (*census.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, zip)
	f.mu.Unlock()
	if err, ok := f.fail[zip]; ok {
		return nil, err
	}
	pop := 1000.0
	return &census.Record{Zipcode: zip, Population: &pop}, nil
}

type fakeScores struct {
	err error
}

func (f *fakeScores) Score(_ context.Context, _, _ float64) (*walkscore.Score, error) {
	if f.err != nil {
		return nil, f.err
	}
	transit := 60.0
	return &walkscore.Score{Walk: 88, Transit: &transit}, nil
}

func TestFetchRecords_KeepsOrderAndSkipsUnknown(t *testing.T) {
	zones := &fakeZones{fail: map[string]error{
		"00000": eris.Wrap(acs.ErrUnknownZone, "zcta 00000"),
	}}

	got, err := fetchRecords(context.Background(), zones, fetchOptions{
		Zips:        []string{"94110", "00000", "94103", "10001"},
		Concurrency: 2,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "94110", got[0].Zipcode)
	assert.Equal(t, "94103", got[1].Zipcode)
	assert.Equal(t, "10001", got[2].Zipcode)
}

func TestFetchRecords_FailureAborts(t *testing.T) {
	zones := &fakeZones{fail: map[string]error{"94103": errors.New("boom")}}

	_, err := fetchRecords(context.Background(), zones, fetchOptions{Zips: []string{"94103"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch: zone 94103")
}

func TestFetchRecords_GazetteerAndWalkScore(t *testing.T) {
	gaz := acs.Gazetteer{"94103": {Zipcode: "94103", Lat: 37.77, Lng: -122.41, LandSqMile: 2}}

	got, err := fetchRecords(context.Background(), &fakeZones{}, fetchOptions{
		Zips:      []string{"94103", "94110"},
		Gazetteer: gaz,
		WalkScore: &fakeScores{},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].Lat)
	require.NotNil(t, got[0].PopulationDensity)
	assert.Equal(t, 500.0, *got[0].PopulationDensity)
	require.NotNil(t, got[0].WalkScore)
	assert.Equal(t, 88.0, *got[0].WalkScore)
	assert.Nil(t, got[0].BikeScore)

	// No reference point, so no walk score.
	assert.Nil(t, got[1].Lat)
	assert.Nil(t, got[1].WalkScore)
}

func TestFetchRecords_WalkScoreFailureKeepsZone(t *testing.T) {
	gaz := acs.Gazetteer{"94103": {Zipcode: "94103", Lat: 37.77, Lng: -122.41}}

	got, err := fetchRecords(context.Background(), &fakeZones{}, fetchOptions{
		Zips:      []string{"94103"},
		Gazetteer: gaz,
		WalkScore: &fakeScores{err: errors.New("quota")},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].WalkScore)
}

func TestSelectZips(t *testing.T) {
	places := acs.Places{
		"94103": {Zipcode: "94103", City: "San Francisco", State: "CA"},
		"94110": {Zipcode: "94110", City: "San Francisco", State: "CA"},
		"94014": {Zipcode: "94014", City: "Daly City", State: "CA"},
	}

	tests := []struct {
		name    string
		zips    []string
		city    string
		state   string
		places  acs.Places
		want    []string
		wantErr string
	}{
		{"zips only", []string{"10001"}, "", "", nil, []string{"10001"}, ""},
		{"city", nil, "San Francisco", "CA", places, []string{"94103", "94110"}, ""},
		{"city merged with zips", []string{"94110", "94014"}, "san francisco", "", places, []string{"94110", "94014", "94103"}, ""},
		{"city without places", nil, "San Francisco", "CA", nil, nil, "requires --places"},
		{"state without city", nil, "", "CA", places, nil, "--state requires --city"},
		{"unknown city", nil, "Oakland", "CA", places, nil, "no zones found for Oakland, CA"},
		{"nothing selected", nil, "", "", places, nil, "--zips or --city is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectZips(tt.zips, tt.city, tt.state, tt.places)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchRecords_PlacesFillCityAndState(t *testing.T) {
	places := acs.Places{"94103": {Zipcode: "94103", City: "San Francisco", State: "CA"}}

	got, err := fetchRecords(context.Background(), &fakeZones{}, fetchOptions{
		Zips:   []string{"94103", "10001"},
		Places: places,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "San Francisco", got[0].MajorCity)
	assert.Equal(t, "CA", got[0].State)
	assert.Empty(t, got[1].MajorCity)

	zone := got[0].Zone()
	assert.Equal(t, "San Francisco", zone.MajorCity)
}
