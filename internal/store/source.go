package store

import (
	"context"

	"github.com/02loveslollipop/corrosight/internal/models"
)

// DatasetSource loads one dataset, or the latest one when DatasetID is empty.
type DatasetSource struct {
	Store     *Store
	DatasetID string
}

// Load implements pipeline.Source.
func (d DatasetSource) Load(ctx context.Context) (models.Dataset, error) {
	id, err := d.resolve(ctx)
	if err != nil {
		return models.Dataset{}, err
	}
	return d.Store.LoadDataset(ctx, id)
}

// Version identifies the dataset revision an execution would read, so the
// scheduler can skip unchanged data.
func (d DatasetSource) Version(ctx context.Context) (string, error) {
	if d.DatasetID == "" {
		id, updated, err := d.Store.LatestDataset(ctx)
		if err != nil {
			return "", err
		}
		return id + "@" + updated.UTC().Format("2006-01-02T15:04:05.000000Z07:00"), nil
	}
	updated, err := d.Store.DatasetVersion(ctx, d.DatasetID)
	if err != nil {
		return "", err
	}
	return d.DatasetID + "@" + updated.UTC().Format("2006-01-02T15:04:05.000000Z07:00"), nil
}

func (d DatasetSource) resolve(ctx context.Context) (string, error) {
	if d.DatasetID != "" {
		return d.DatasetID, nil
	}
	id, _, err := d.Store.LatestDataset(ctx)
	return id, err
}
