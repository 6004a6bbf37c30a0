package proximity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proxwake/proxwake/internal/geofence"
)

// stateRowID pins the single proximity-state row; the engine tracks exactly
// one region per device.
const stateRowID = 1

// PostgresRepository is a PostgreSQL implementation of Repository. State
// lives in a single row so it survives process restarts; every write is an
// upsert committed before the call returns.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL proximity repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Schema returns the DDL for the proximity state table.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS proximity_state (
			id          INT PRIMARY KEY,
			is_inside   BOOLEAN NOT NULL DEFAULT FALSE,
			alarm_fired BOOLEAN NOT NULL DEFAULT FALSE,
			region      JSONB,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
}

// IsInside implements Repository.
func (r *PostgresRepository) IsInside(ctx context.Context) (bool, error) {
	var inside bool
	err := r.pool.QueryRow(ctx,
		`SELECT is_inside FROM proximity_state WHERE id = $1`, stateRowID,
	).Scan(&inside)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read is_inside: %w", err)
	}
	return inside, nil
}

// SetInside implements Repository.
func (r *PostgresRepository) SetInside(ctx context.Context, inside bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO proximity_state (id, is_inside, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET is_inside = $2, updated_at = NOW()
	`, stateRowID, inside)
	if err != nil {
		return fmt.Errorf("write is_inside: %w", err)
	}
	return nil
}

// AlarmFired implements Repository.
func (r *PostgresRepository) AlarmFired(ctx context.Context) (bool, error) {
	var fired bool
	err := r.pool.QueryRow(ctx,
		`SELECT alarm_fired FROM proximity_state WHERE id = $1`, stateRowID,
	).Scan(&fired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read alarm_fired: %w", err)
	}
	return fired, nil
}

// SetAlarmFired implements Repository.
func (r *PostgresRepository) SetAlarmFired(ctx context.Context, fired bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO proximity_state (id, alarm_fired, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET alarm_fired = $2, updated_at = NOW()
	`, stateRowID, fired)
	if err != nil {
		return fmt.Errorf("write alarm_fired: %w", err)
	}
	return nil
}

// Region implements Repository.
func (r *PostgresRepository) Region(ctx context.Context) (*geofence.Region, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT region FROM proximity_state WHERE id = $1`, stateRowID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read region: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var region geofence.Region
	if err := json.Unmarshal(data, &region); err != nil {
		return nil, fmt.Errorf("decode region: %w", err)
	}
	return &region, nil
}

// SetRegion implements Repository.
func (r *PostgresRepository) SetRegion(ctx context.Context, region *geofence.Region) error {
	var data []byte
	if region != nil {
		var err error
		data, err = json.Marshal(region)
		if err != nil {
			return fmt.Errorf("encode region: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO proximity_state (id, region, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET region = $2, updated_at = NOW()
	`, stateRowID, data)
	if err != nil {
		return fmt.Errorf("write region: %w", err)
	}
	return nil
}

// Reset implements Repository.
func (r *PostgresRepository) Reset(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO proximity_state (id, is_inside, alarm_fired, updated_at)
		VALUES ($1, FALSE, FALSE, NOW())
		ON CONFLICT (id) DO UPDATE SET is_inside = FALSE, alarm_fired = FALSE, updated_at = NOW()
	`, stateRowID)
	if err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	return nil
}
