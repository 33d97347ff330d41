package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeParams(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.InDelta(t, 1.0, p.Matching.Weights.Sum(), 1e-9)
}

func TestLoadEmptyPath(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeParams(t, `
alignment:
  min_anchors: 1600
matching:
  high_confidence: 0.9
`)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1600, p.Alignment.MinAnchors)
	assert.Equal(t, 0.9, p.Matching.HighConfidence)
	assert.Equal(t, 3.0, p.Matching.DistanceToleranceFt)
	assert.Equal(t, 80.0, p.Growth.RepairThreshold)
}

func TestLoadScoringWeights(t *testing.T) {
	path := writeParams(t, `
integrity:
  urgency_weights:
    depth: 0.5
    growth: 0.25
    life: 0.25
  segment_weights:
    density: 10
    depth: 50
    growth: 25
    critical: 15
forecast:
  critical_depth: 80
  high_depth: 60
  medium_depth: 40
`)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, UrgencyWeights{Depth: 0.5, Growth: 0.25, Life: 0.25}, p.Integrity.UrgencyWeights)
	assert.Equal(t, 50.0, p.Integrity.SegmentWeights.Depth)
	assert.Equal(t, 5.0, p.Integrity.SegmentCountScale)
	assert.Equal(t, 4, p.Integrity.HighClusterMembers)
	assert.Equal(t, 60.0, p.Forecast.HighDepth)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"medium above high":  "matching:\n  medium_confidence: 0.95\n",
		"zero tolerance":     "matching:\n  distance_tolerance_ft: 0\n",
		"narrow overlap":     "matching:\n  window_overlap_ft: 1\n",
		"one anchor":         "alignment:\n  min_anchors: 1\n",
		"bands out of order": "forecast:\n  high_depth: 75\n",
		"medium cluster":     "integrity:\n  medium_cluster_depth: 65\n",
		"zero count scale":   "integrity:\n  segment_count_scale: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeParams(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestShippedParamsFile(t *testing.T) {
	p, err := Load(filepath.Join("..", "..", "config", "params.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1600, p.Alignment.MinAnchors)
}
