package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/corrosight/internal/models"
)

const payload = `{
  "id": "line-7",
  "runs": [
    {"year": 2015, "girth_welds": [{"joint_number": 10, "distance_ft": 0}],
     "anomalies": [{"id": "a", "distance_ft": 12.5, "event_type": "metal  loss", "surface": "EXT", "depth_pct": 20}]},
    {"year": 2022, "girth_welds": [{"joint_number": 10, "distance_ft": 1.5}], "anomalies": []}
  ]
}`

func TestFetchDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("ETag", `"v42"`)
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	ds, version, err := FetchDataset(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `"v42"`, version)
	assert.Equal(t, "line-7", ds.ID)
	require.Len(t, ds.Runs, 2)

	a := ds.Runs[0].Anomalies[0]
	assert.Equal(t, 2015, a.RunYear)
	assert.Equal(t, models.EventMetalLoss, a.EventType)
	assert.Equal(t, models.SurfaceExternal, a.Surface)
	assert.Equal(t, 2022, ds.Runs[1].GirthWelds[0].RunYear)
	require.NoError(t, ds.Validate())
}

func TestFetchDatasetDigestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	src := Source{Client: srv.Client(), URL: srv.URL}
	v1, err := src.Version(context.Background())
	require.NoError(t, err)
	v2, err := src.Version(context.Background())
	require.NoError(t, err)
	assert.Len(t, v1, 64)
	assert.Equal(t, v1, v2)
}

func TestFetchDatasetErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			_, _ = w.Write([]byte("{"))
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, _, err := FetchDataset(context.Background(), srv.Client(), srv.URL)
	assert.ErrorContains(t, err, "unexpected status")

	_, err = Source{Client: srv.Client(), URL: srv.URL + "/broken"}.Load(context.Background())
	assert.ErrorContains(t, err, "decode payload")
}
