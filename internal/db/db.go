// Package db provides the sqlite persistence layer for decoded insole
// samples and Center-of-Pressure observations.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gaitworks/plantar.report/internal/gait"
	"github.com/gaitworks/plantar.report/internal/insole"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the sqlite database at path and runs
// all pending schema migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Observation is one persisted row of the decode pipeline: the sample's
// derived CoP plus summary pressure figures. The raw 18 point values are
// stored as a JSON array for offline analysis.
type Observation struct {
	ID            int64     `json:"id"`
	FootSide      string    `json:"foot_side"`
	CoPX          float64   `json:"cop_x"`
	CoPY          float64   `json:"cop_y"`
	TotalPressure int64     `json:"total_pressure"`
	MaxPressure   int64     `json:"max_pressure"`
	Points        []uint16  `json:"points"`
	CapturedAt    time.Time `json:"captured_at"`
}

// RecordObservation persists one validated sample and its CoP.
func (db *DB) RecordObservation(sample insole.PressureSample, cop gait.CenterOfPressure) error {
	var total, max int64
	for _, p := range sample.Points {
		total += int64(p)
		if int64(p) > max {
			max = int64(p)
		}
	}

	points, err := json.Marshal(sample.Points[:])
	if err != nil {
		return fmt.Errorf("failed to marshal points: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO cop_observations (
			foot_side, cop_x, cop_y, total_pressure, max_pressure, points, captured_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sample.Side.String(), cop.X, cop.Y, total, max, string(points),
		sample.CapturedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record observation: %w", err)
	}
	return nil
}

// Observations returns the most recent observations, newest first.
func (db *DB) Observations(limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.Query(
		`SELECT id, foot_side, cop_x, cop_y, total_pressure, max_pressure, points, captured_at
		 FROM cop_observations
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var observations []Observation
	for rows.Next() {
		var (
			o        Observation
			points   string
			captured string
		)
		if err := rows.Scan(&o.ID, &o.FootSide, &o.CoPX, &o.CoPY,
			&o.TotalPressure, &o.MaxPressure, &points, &captured); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		if err := json.Unmarshal([]byte(points), &o.Points); err != nil {
			return nil, fmt.Errorf("failed to unmarshal points: %w", err)
		}
		if o.CapturedAt, err = time.Parse(time.RFC3339Nano, captured); err != nil {
			return nil, fmt.Errorf("failed to parse captured_at: %w", err)
		}
		observations = append(observations, o)
	}

	return observations, rows.Err()
}

// DailyRollup summarises observations per calendar day.
type DailyRollup struct {
	Day          string  `json:"day"`
	Count        int64   `json:"count"`
	AvgCoPX      float64 `json:"avg_cop_x"`
	AvgCoPY      float64 `json:"avg_cop_y"`
	MaxPressure  int64   `json:"max_pressure"`
	AvgTotalLoad float64 `json:"avg_total_load"`
}

// ObservationRollup aggregates the last N days of observations by day.
func (db *DB) ObservationRollup(days int) ([]DailyRollup, error) {
	if days < 1 {
		days = 1
	}

	rows, err := db.Query(
		`SELECT substr(captured_at, 1, 10) AS day,
		        COUNT(*),
		        AVG(cop_x),
		        AVG(cop_y),
		        MAX(max_pressure),
		        AVG(total_pressure)
		 FROM cop_observations
		 WHERE captured_at >= datetime('now', ?)
		 GROUP BY day
		 ORDER BY day DESC`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("failed to query rollup: %w", err)
	}
	defer rows.Close()

	var rollups []DailyRollup
	for rows.Next() {
		var r DailyRollup
		if err := rows.Scan(&r.Day, &r.Count, &r.AvgCoPX, &r.AvgCoPY,
			&r.MaxPressure, &r.AvgTotalLoad); err != nil {
			return nil, fmt.Errorf("failed to scan rollup: %w", err)
		}
		rollups = append(rollups, r)
	}

	return rollups, rows.Err()
}
