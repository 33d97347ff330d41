// Package feed fetches a normalized dataset published as JSON over HTTP.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/02loveslollipop/corrosight/internal/models"
)

// FetchDataset retrieves and decodes the dataset at url. The returned version
// is the ETag when the server sends one, otherwise a digest of the body.
func FetchDataset(ctx context.Context, client *http.Client, url string) (models.Dataset, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Dataset{}, "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return models.Dataset{}, "", fmt.Errorf("request dataset feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Dataset{}, "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Dataset{}, "", fmt.Errorf("read dataset feed: %w", err)
	}

	var ds models.Dataset
	if err := json.Unmarshal(body, &ds); err != nil {
		return models.Dataset{}, "", fmt.Errorf("decode payload: %w", err)
	}
	normalize(&ds)

	version := resp.Header.Get("ETag")
	if version == "" {
		sum := sha256.Sum256(body)
		version = hex.EncodeToString(sum[:])
	}
	return ds, version, nil
}

// normalize fills the run year of nested records from their run and maps
// vendor spellings onto the canonical event and surface names.
func normalize(ds *models.Dataset) {
	for i := range ds.Runs {
		run := &ds.Runs[i]
		for j := range run.Anomalies {
			a := &run.Anomalies[j]
			if a.RunYear == 0 {
				a.RunYear = run.Year
			}
			a.EventType = models.NormalizeEventType(a.EventType)
			if a.Surface != "" {
				a.Surface = models.NormalizeSurface(string(a.Surface))
			}
		}
		for j := range run.GirthWelds {
			if run.GirthWelds[j].RunYear == 0 {
				run.GirthWelds[j].RunYear = run.Year
			}
		}
	}
}

// Source loads the dataset from a feed URL.
type Source struct {
	Client *http.Client
	URL    string
}

// Load implements pipeline.Source.
func (s Source) Load(ctx context.Context) (models.Dataset, error) {
	ds, _, err := FetchDataset(ctx, s.client(), s.URL)
	return ds, err
}

// Version returns the current feed revision.
func (s Source) Version(ctx context.Context) (string, error) {
	_, v, err := FetchDataset(ctx, s.client(), s.URL)
	return v, err
}

func (s Source) client() *http.Client {
	if s.Client == nil {
		return http.DefaultClient
	}
	return s.Client
}
