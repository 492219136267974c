package desirability

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactor(t *testing.T) {
	f, err := NewFactor(0.5, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 0.5, f.Value())
	assert.Equal(t, 0.8, f.Importance())
	assert.InDelta(t, 0.4, f.Score(), 1e-9)
}

func TestNewFactor_OutOfRange(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		importance float64
		wantField  string
	}{
		{"value above one", 1.5, 0.5, "value"},
		{"value below zero", -0.1, 0.5, "value"},
		{"importance above one", 0.5, 1.1, "importance"},
		{"importance below zero", 0.5, -1, "importance"},
		{"nan value", math.NaN(), 0.5, "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFactor(tt.value, tt.importance)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrOutOfRange))
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestNewFactor_Bounds(t *testing.T) {
	for _, v := range []float64{0, 1} {
		_, err := NewFactor(v, v)
		assert.NoError(t, err)
	}
}

func TestDimensions(t *testing.T) {
	dims := Dimensions()
	assert.Len(t, dims, 17)
	assert.Equal(t, Income, dims[0])

	dims[0] = "mutated"
	assert.Equal(t, Income, Dimensions()[0])
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension("commute_time")
	require.NoError(t, err)
	assert.Equal(t, CommuteTime, d)

	_, err = ParseDimension("weather")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dimension")
}

func TestDimensionKinds(t *testing.T) {
	assert.True(t, CommuteMode.Categorical())
	assert.True(t, EducationLevel.Categorical())
	assert.False(t, Age.Categorical())
	assert.True(t, Walking.Scored())
	assert.False(t, Income.Scored())
}

func TestProfile_WeightedAverage(t *testing.T) {
	p, err := NewBuilder().
		Factor(Age, 0.5, 1).
		Factor(CommuteTime, 1, 0.5).
		Build()
	require.NoError(t, err)

	got, ok := p.Score()
	require.True(t, ok)
	// (0.5*1 + 1*0.5) / (1 + 0.5)
	assert.InDelta(t, 1.0/1.5, got, 1e-9)
}

func TestProfile_AbsentDimensionsDoNotDeflate(t *testing.T) {
	one, err := NewBuilder().Factor(Age, 0.8, 0.6).Build()
	require.NoError(t, err)

	withPending, err := NewBuilder().
		Factor(Age, 0.8, 0.6).
		Importance(Transit, 1).
		Importance(Walking, 0.7).
		Build()
	require.NoError(t, err)

	a, ok := one.Score()
	require.True(t, ok)
	b, ok := withPending.Score()
	require.True(t, ok)
	assert.InDelta(t, 0.8, a, 1e-9)
	assert.Equal(t, a, b)
	assert.Equal(t, []Dimension{Transit, Walking}, withPending.Pending())
}

func TestProfile_NoFactors(t *testing.T) {
	p, err := NewBuilder().Importance(Biking, 0.4).Build()
	require.NoError(t, err)

	_, ok := p.Score()
	assert.False(t, ok)

	w, ok := p.Importance(Biking)
	require.True(t, ok)
	assert.Equal(t, 0.4, w)
}

func TestProfile_ZeroImportances(t *testing.T) {
	p, err := NewBuilder().Factor(Age, 0.9, 0).Build()
	require.NoError(t, err)

	_, ok := p.Score()
	assert.False(t, ok)
}

func TestBuilder_FactorReplacesPendingImportance(t *testing.T) {
	p, err := NewBuilder().
		Importance(Transit, 0.9).
		Factor(Transit, 0.5, 0.9).
		Importance(Transit, 0.1).
		Build()
	require.NoError(t, err)

	f, ok := p.Factor(Transit)
	require.True(t, ok)
	assert.Equal(t, 0.9, f.Importance())
	_, ok = p.Importance(Transit)
	assert.False(t, ok)
	assert.Equal(t, []Dimension{Transit}, p.Dimensions())
}

func TestBuilder_KeepsFirstError(t *testing.T) {
	_, err := NewBuilder().
		Factor(Age, 1.5, 1).
		Factor("weather", 0.5, 0.5).
		Build()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrOutOfRange))
	assert.Contains(t, err.Error(), "factor age")
}

func TestBuilder_InvalidImportance(t *testing.T) {
	_, err := NewBuilder().Importance(Walking, 1.2).Build()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrOutOfRange))
}

func TestBuilder_UnknownDimension(t *testing.T) {
	_, err := NewBuilder().Importance("weather", 0.2).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dimension")
}

func TestProfile_ScoreBounded(t *testing.T) {
	b := NewBuilder()
	values := []float64{0, 0.25, 1, 0.75, 0.1}
	for i, d := range Dimensions()[:len(values)] {
		b.Factor(d, values[i], float64(i+1)/10)
	}
	p, err := b.Build()
	require.NoError(t, err)

	got, ok := p.Score()
	require.True(t, ok)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}
