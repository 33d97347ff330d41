package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/02loveslollipop/corrosight/internal/models"
)

const latestDatasetSQL = `
    SELECT id, updated_at
    FROM corrosight.datasets
    ORDER BY updated_at DESC, id
    LIMIT 1
`

const datasetVersionSQL = `
    SELECT updated_at
    FROM corrosight.datasets
    WHERE id = $1
`

// LatestDataset returns the most recently updated dataset id and its version.
func (s *Store) LatestDataset(ctx context.Context) (string, time.Time, error) {
	var id string
	var updated time.Time
	if err := s.pool.QueryRow(ctx, latestDatasetSQL).Scan(&id, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, fmt.Errorf("latest dataset: %w", ErrNotFound)
		}
		return "", time.Time{}, err
	}
	return id, updated, nil
}

// DatasetVersion returns the update timestamp of a dataset.
func (s *Store) DatasetVersion(ctx context.Context, id string) (time.Time, error) {
	var updated time.Time
	if err := s.pool.QueryRow(ctx, datasetVersionSQL, id).Scan(&updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, fmt.Errorf("dataset %s: %w", id, ErrNotFound)
		}
		return time.Time{}, err
	}
	return updated, nil
}

const runsSQL = `
    SELECT year, vendor
    FROM corrosight.runs
    WHERE dataset_id = $1
    ORDER BY year
`

const girthWeldsSQL = `
    SELECT run_year, joint_number, distance_ft
    FROM corrosight.girth_welds
    WHERE dataset_id = $1
    ORDER BY run_year, seq
`

const anomaliesSQL = `
    SELECT run_year, id, joint_number, distance_ft, clock_hours, depth_pct, length_in, width_in,
           event_type, surface, wall_thickness_in, comments
    FROM corrosight.anomalies
    WHERE dataset_id = $1
    ORDER BY run_year, distance_ft, id
`

const repairZonesSQL = `
    SELECT run_year, start_ft, end_ft, kind
    FROM corrosight.repair_zones
    WHERE dataset_id = $1
    ORDER BY run_year, start_ft
`

// LoadDataset reads every run of a dataset with its welds, anomalies and
// repair zones.
func (s *Store) LoadDataset(ctx context.Context, id string) (models.Dataset, error) {
	runs, err := s.loadRuns(ctx, id)
	if err != nil {
		return models.Dataset{}, err
	}
	if len(runs) == 0 {
		return models.Dataset{}, fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}

	welds, err := s.loadGirthWelds(ctx, id)
	if err != nil {
		return models.Dataset{}, err
	}
	anomalies, err := s.loadAnomalies(ctx, id)
	if err != nil {
		return models.Dataset{}, err
	}
	repairs, err := s.loadRepairZones(ctx, id)
	if err != nil {
		return models.Dataset{}, err
	}
	return assemble(id, runs, welds, anomalies, repairs), nil
}

func (s *Store) loadRuns(ctx context.Context, id string) ([]models.Run, error) {
	rows, err := s.pool.Query(ctx, runsSQL, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]models.Run, 0)
	for rows.Next() {
		var run models.Run
		var vendor *string
		if err := rows.Scan(&run.Year, &vendor); err != nil {
			return nil, err
		}
		if vendor != nil {
			run.Vendor = *vendor
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) loadGirthWelds(ctx context.Context, id string) ([]models.GirthWeld, error) {
	rows, err := s.pool.Query(ctx, girthWeldsSQL, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	welds := make([]models.GirthWeld, 0)
	for rows.Next() {
		var gw models.GirthWeld
		if err := rows.Scan(&gw.RunYear, &gw.JointNumber, &gw.Distance); err != nil {
			return nil, err
		}
		welds = append(welds, gw)
	}
	return welds, rows.Err()
}

func (s *Store) loadAnomalies(ctx context.Context, id string) ([]models.Anomaly, error) {
	rows, err := s.pool.Query(ctx, anomaliesSQL, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	anomalies := make([]models.Anomaly, 0)
	for rows.Next() {
		var a models.Anomaly
		var surface, comments *string
		if err := rows.Scan(
			&a.RunYear,
			&a.ID,
			&a.JointNumber,
			&a.Distance,
			&a.ClockHours,
			&a.DepthPct,
			&a.LengthIn,
			&a.WidthIn,
			&a.EventType,
			&surface,
			&a.WallThicknessIn,
			&comments,
		); err != nil {
			return nil, err
		}
		if surface != nil {
			a.Surface = models.NormalizeSurface(*surface)
		}
		if comments != nil {
			a.Comments = *comments
		}
		a.EventType = models.NormalizeEventType(a.EventType)
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}

func (s *Store) loadRepairZones(ctx context.Context, id string) ([]yearZone, error) {
	rows, err := s.pool.Query(ctx, repairZonesSQL, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	zones := make([]yearZone, 0)
	for rows.Next() {
		var z yearZone
		var kind *string
		if err := rows.Scan(&z.year, &z.zone.Start, &z.zone.End, &kind); err != nil {
			return nil, err
		}
		if kind != nil {
			z.zone.Kind = *kind
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

type yearZone struct {
	year int
	zone models.RepairZone
}

// assemble distributes flat rows into their runs. Rows for a year with no
// run row get a run of their own so validation can report them.
func assemble(id string, runs []models.Run, welds []models.GirthWeld, anomalies []models.Anomaly, repairs []yearZone) models.Dataset {
	byYear := make(map[int]*models.Run, len(runs))
	out := make([]*models.Run, 0, len(runs))
	runFor := func(year int) *models.Run {
		if r, ok := byYear[year]; ok {
			return r
		}
		r := &models.Run{Year: year}
		byYear[year] = r
		out = append(out, r)
		return r
	}

	for _, r := range runs {
		run := runFor(r.Year)
		run.Vendor = r.Vendor
	}
	for _, gw := range welds {
		run := runFor(gw.RunYear)
		run.GirthWelds = append(run.GirthWelds, gw)
	}
	for _, a := range anomalies {
		run := runFor(a.RunYear)
		run.Anomalies = append(run.Anomalies, a)
	}
	for _, z := range repairs {
		run := runFor(z.year)
		run.RepairZones = append(run.RepairZones, z.zone)
	}

	ds := models.Dataset{ID: id, Runs: make([]models.Run, len(out))}
	for i, r := range out {
		ds.Runs[i] = *r
	}
	sort.SliceStable(ds.Runs, func(i, j int) bool { return ds.Runs[i].Year < ds.Runs[j].Year })
	return ds
}
