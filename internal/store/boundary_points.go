package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harvestguard/fieldsync/internal/types"
)

const boundaryPointColumns = `id, farm_id, latitude, longitude, captured_at, description, photo_uri, mobile_id, last_synced, sync_status, created_at, updated_at`

func scanBoundaryPoint(sc scanner) (*types.BoundaryPoint, error) {
	var p types.BoundaryPoint
	var capturedAt, description, photoURI, lastSynced sql.NullString
	var mobileID sql.NullInt64
	var syncStatus, createdAt, updatedAt string

	err := sc.Scan(&p.ID, &p.FarmID, &p.Latitude, &p.Longitude,
		&capturedAt, &description, &photoURI, &mobileID,
		&lastSynced, &syncStatus, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.CapturedAt = parseTimePtr(capturedAt)
	p.Description = strPtr(description)
	p.PhotoURI = strPtr(photoURI)
	p.MobileID = int64Ptr(mobileID)
	p.LastSynced = parseTimePtr(lastSynced)
	p.SyncStatus = types.SyncStatus(syncStatus)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func boundaryPointByMobileID(ctx context.Context, q dbtx, mobileID int64) (*types.BoundaryPoint, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+boundaryPointColumns+` FROM boundary_points WHERE mobile_id = ?
	`, mobileID)

	p, err := scanBoundaryPoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan boundary point: %w", err)
	}
	return p, nil
}

func insertBoundaryPoint(ctx context.Context, q dbtx, p *types.BoundaryPoint) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.SyncStatus == "" {
		p.SyncStatus = types.SyncPending
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO boundary_points (farm_id, latitude, longitude, captured_at, description, photo_uri, mobile_id, last_synced, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.FarmID, p.Latitude, p.Longitude, fmtTimePtr(p.CapturedAt), p.Description, p.PhotoURI,
		p.MobileID, fmtTimePtr(p.LastSynced), p.SyncStatus, fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert boundary point: %w", err)
	}

	p.ID, err = result.LastInsertId()
	return err
}

func updateBoundaryPoint(ctx context.Context, q dbtx, p *types.BoundaryPoint) error {
	result, err := q.ExecContext(ctx, `
		UPDATE boundary_points
		SET farm_id = ?, latitude = ?, longitude = ?, captured_at = ?, description = ?,
		    photo_uri = ?, mobile_id = ?, last_synced = ?, sync_status = ?, updated_at = ?
		WHERE id = ?
	`, p.FarmID, p.Latitude, p.Longitude, fmtTimePtr(p.CapturedAt), p.Description,
		p.PhotoURI, p.MobileID, fmtTimePtr(p.LastSynced), p.SyncStatus, fmtTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("update boundary point: %w", err)
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

func queryBoundaryPoints(ctx context.Context, q dbtx, query string, args ...any) ([]types.BoundaryPoint, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query boundary points: %w", err)
	}
	defer rows.Close()

	points := make([]types.BoundaryPoint, 0)
	for rows.Next() {
		p, err := scanBoundaryPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan boundary point: %w", err)
		}
		points = append(points, *p)
	}
	return points, rows.Err()
}

const boundaryPointOwnerJoin = `
	SELECT bp.id, bp.farm_id, bp.latitude, bp.longitude, bp.captured_at, bp.description,
	       bp.photo_uri, bp.mobile_id, bp.last_synced, bp.sync_status, bp.created_at, bp.updated_at
	FROM boundary_points bp
	JOIN farms f ON f.id = bp.farm_id
	WHERE f.user_id = ?`

// BoundaryPointsForUser returns every boundary point on the user's farms.
func (s *SQLiteStore) BoundaryPointsForUser(ctx context.Context, userID int64) ([]types.BoundaryPoint, error) {
	return queryBoundaryPoints(ctx, s.db, boundaryPointOwnerJoin+` ORDER BY bp.id ASC`, userID)
}

// BoundaryPointsModifiedSince returns the user's boundary points modified
// after the watermark, or all of them when since is nil.
func (s *SQLiteStore) BoundaryPointsModifiedSince(ctx context.Context, userID int64, since *time.Time) ([]types.BoundaryPoint, error) {
	if since == nil {
		return s.BoundaryPointsForUser(ctx, userID)
	}
	return queryBoundaryPoints(ctx, s.db,
		boundaryPointOwnerJoin+` AND bp.updated_at > ? ORDER BY bp.updated_at ASC`,
		userID, fmtTime(*since))
}

// BoundaryPointByIDForUser returns the boundary point only if its farm is
// owned by the user.
func (s *SQLiteStore) BoundaryPointByIDForUser(ctx context.Context, id, userID int64) (*types.BoundaryPoint, error) {
	row := s.db.QueryRowContext(ctx, boundaryPointOwnerJoin+` AND bp.id = ?`, userID, id)

	p, err := scanBoundaryPoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan boundary point: %w", err)
	}
	return p, nil
}

// CreateBoundaryPoint persists a boundary point created through direct CRUD.
func (s *SQLiteStore) CreateBoundaryPoint(ctx context.Context, p *types.BoundaryPoint) error {
	return insertBoundaryPoint(ctx, s.db, p)
}

// UpdateBoundaryPoint persists field changes to an existing boundary point.
func (s *SQLiteStore) UpdateBoundaryPoint(ctx context.Context, p *types.BoundaryPoint) error {
	p.UpdatedAt = time.Now().UTC()
	return updateBoundaryPoint(ctx, s.db, p)
}

// DeleteBoundaryPointForUser removes a boundary point on a farm owned by
// the user.
func (s *SQLiteStore) DeleteBoundaryPointForUser(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM boundary_points
		WHERE id = ? AND farm_id IN (SELECT id FROM farms WHERE user_id = ?)
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete boundary point: %w", err)
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
