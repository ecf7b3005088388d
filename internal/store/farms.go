package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harvestguard/fieldsync/internal/types"
)

const farmColumns = `id, user_id, name, size, plant_type, mobile_id, last_synced, sync_status, created_at, updated_at`

func scanFarm(sc scanner) (*types.Farm, error) {
	var f types.Farm
	var mobileID sql.NullInt64
	var lastSynced sql.NullString
	var syncStatus, createdAt, updatedAt string

	err := sc.Scan(&f.ID, &f.UserID, &f.Name, &f.Size, &f.PlantType,
		&mobileID, &lastSynced, &syncStatus, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	f.MobileID = int64Ptr(mobileID)
	f.LastSynced = parseTimePtr(lastSynced)
	f.SyncStatus = types.SyncStatus(syncStatus)
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

func farmByIDForUser(ctx context.Context, q dbtx, id, userID int64) (*types.Farm, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+farmColumns+` FROM farms WHERE id = ? AND user_id = ?
	`, id, userID)

	f, err := scanFarm(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan farm: %w", err)
	}
	return f, nil
}

func farmByMobileID(ctx context.Context, q dbtx, mobileID int64) (*types.Farm, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+farmColumns+` FROM farms WHERE mobile_id = ?
	`, mobileID)

	f, err := scanFarm(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan farm: %w", err)
	}
	return f, nil
}

func insertFarm(ctx context.Context, q dbtx, f *types.Farm) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = f.CreatedAt
	}
	if f.SyncStatus == "" {
		f.SyncStatus = types.SyncPending
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO farms (user_id, name, size, plant_type, mobile_id, last_synced, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.UserID, f.Name, f.Size, f.PlantType, f.MobileID,
		fmtTimePtr(f.LastSynced), f.SyncStatus, fmtTime(f.CreatedAt), fmtTime(f.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert farm: %w", err)
	}

	f.ID, err = result.LastInsertId()
	return err
}

func updateFarm(ctx context.Context, q dbtx, f *types.Farm) error {
	result, err := q.ExecContext(ctx, `
		UPDATE farms
		SET user_id = ?, name = ?, size = ?, plant_type = ?, mobile_id = ?,
		    last_synced = ?, sync_status = ?, updated_at = ?
		WHERE id = ?
	`, f.UserID, f.Name, f.Size, f.PlantType, f.MobileID,
		fmtTimePtr(f.LastSynced), f.SyncStatus, fmtTime(f.UpdatedAt), f.ID)
	if err != nil {
		return fmt.Errorf("update farm: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func queryFarms(ctx context.Context, q dbtx, query string, args ...any) ([]types.Farm, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query farms: %w", err)
	}
	defer rows.Close()

	farms := make([]types.Farm, 0)
	for rows.Next() {
		f, err := scanFarm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan farm: %w", err)
		}
		farms = append(farms, *f)
	}
	return farms, rows.Err()
}

// FarmsForUser returns every farm owned by the user, newest first.
func (s *SQLiteStore) FarmsForUser(ctx context.Context, userID int64) ([]types.Farm, error) {
	return queryFarms(ctx, s.db, `
		SELECT `+farmColumns+` FROM farms WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
}

// FarmsModifiedSince returns the user's farms modified after the watermark,
// or all of them when since is nil.
func (s *SQLiteStore) FarmsModifiedSince(ctx context.Context, userID int64, since *time.Time) ([]types.Farm, error) {
	if since == nil {
		return s.FarmsForUser(ctx, userID)
	}
	return queryFarms(ctx, s.db, `
		SELECT `+farmColumns+` FROM farms WHERE user_id = ? AND updated_at > ? ORDER BY updated_at ASC
	`, userID, fmtTime(*since))
}

// FarmByIDForUser returns the farm only if it is owned by the user.
func (s *SQLiteStore) FarmByIDForUser(ctx context.Context, id, userID int64) (*types.Farm, error) {
	return farmByIDForUser(ctx, s.db, id, userID)
}

// CreateFarm persists a farm created through direct CRUD.
func (s *SQLiteStore) CreateFarm(ctx context.Context, f *types.Farm) error {
	return insertFarm(ctx, s.db, f)
}

// UpdateFarm persists field changes to an existing farm.
func (s *SQLiteStore) UpdateFarm(ctx context.Context, f *types.Farm) error {
	f.UpdatedAt = time.Now().UTC()
	return updateFarm(ctx, s.db, f)
}

// DeleteFarmForUser removes a farm owned by the user, cascading to its
// dependent rows.
func (s *SQLiteStore) DeleteFarmForUser(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM farms WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete farm: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
