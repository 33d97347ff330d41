package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDataset() Dataset {
	return Dataset{
		ID: "line-7",
		Runs: []Run{
			{Year: 2015, Anomalies: []Anomaly{{ID: "b1", RunYear: 2015, Distance: 10, EventType: EventMetalLoss}}},
			{Year: 2007, Anomalies: []Anomaly{{ID: "a1", RunYear: 2007, Distance: 9, EventType: EventMetalLoss, DepthPct: Float(12)}}},
		},
	}
}

func TestDatasetValidate(t *testing.T) {
	require.NoError(t, validDataset().Validate())

	t.Run("duplicate year", func(t *testing.T) {
		d := validDataset()
		d.Runs[1].Year = 2015
		d.Runs[1].Anomalies[0].RunYear = 2015
		err := d.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedInput))
	})

	t.Run("depth out of range", func(t *testing.T) {
		d := validDataset()
		d.Runs[1].Anomalies[0].DepthPct = Float(140)
		assert.ErrorIs(t, d.Validate(), ErrMalformedInput)
	})

	t.Run("single run", func(t *testing.T) {
		d := validDataset()
		d.Runs = d.Runs[:1]
		assert.ErrorIs(t, d.Validate(), ErrMalformedInput)
	})

	t.Run("duplicate id", func(t *testing.T) {
		d := validDataset()
		d.Runs[0].Anomalies = append(d.Runs[0].Anomalies, d.Runs[0].Anomalies[0])
		assert.ErrorIs(t, d.Validate(), ErrMalformedInput)
	})
}

func TestSortedRuns(t *testing.T) {
	runs := validDataset().SortedRuns()
	require.Len(t, runs, 2)
	assert.Equal(t, 2007, runs[0].Year)
	assert.Equal(t, 2015, runs[1].Year)
}

func TestRunPairKey(t *testing.T) {
	p := RunPair{Earlier: 2015, Later: 2022}
	assert.Equal(t, "2015-2022", p.Key())
	assert.Equal(t, 7.0, p.Years())

	parsed, err := ParseRunPair("2015-2022")
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	_, err = ParseRunPair("2022-2015")
	assert.Error(t, err)
	_, err = ParseRunPair("latest")
	assert.Error(t, err)
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, EventMetalLoss, NormalizeEventType("  metal   loss "))
	assert.True(t, IsAnomalyType("cluster"))
	assert.False(t, IsAnomalyType("Girth Weld"))
	assert.True(t, TypesCompatible(EventMetalLoss, EventCluster))
	assert.True(t, TypesCompatible(EventSeamWeldDent, EventDent))
	assert.False(t, TypesCompatible(EventMetalLoss, EventDent))
}

func TestNormalizeSurface(t *testing.T) {
	assert.Equal(t, SurfaceInternal, NormalizeSurface("ID"))
	assert.Equal(t, SurfaceExternal, NormalizeSurface("external"))
	assert.Equal(t, SurfaceUnknown, NormalizeSurface(""))
}
