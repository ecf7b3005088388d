package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harvestguard/fieldsync/internal/types"
)

const observationPointColumns = `id, farm_id, latitude, longitude, observation_status, name, segment, inspection_suggestion_id, confidence_level, target_entity, mobile_id, last_synced, sync_status, created_at, updated_at`

func scanObservationPoint(sc scanner) (*types.ObservationPoint, error) {
	var p types.ObservationPoint
	var name, confidenceLevel, targetEntity, lastSynced sql.NullString
	var suggestionID, mobileID sql.NullInt64
	var syncStatus, createdAt, updatedAt string

	err := sc.Scan(&p.ID, &p.FarmID, &p.Latitude, &p.Longitude, &p.ObservationStatus,
		&name, &p.Segment, &suggestionID, &confidenceLevel, &targetEntity,
		&mobileID, &lastSynced, &syncStatus, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Name = strPtr(name)
	p.InspectionSuggestionID = int64Ptr(suggestionID)
	p.ConfidenceLevel = strPtr(confidenceLevel)
	p.TargetEntity = strPtr(targetEntity)
	p.MobileID = int64Ptr(mobileID)
	p.LastSynced = parseTimePtr(lastSynced)
	p.SyncStatus = types.SyncStatus(syncStatus)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func observationPointByMobileID(ctx context.Context, q dbtx, mobileID int64) (*types.ObservationPoint, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+observationPointColumns+` FROM observation_points WHERE mobile_id = ?
	`, mobileID)

	p, err := scanObservationPoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan observation point: %w", err)
	}
	return p, nil
}

func insertObservationPoint(ctx context.Context, q dbtx, p *types.ObservationPoint) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.ObservationStatus == "" {
		p.ObservationStatus = "Nil"
	}
	if p.SyncStatus == "" {
		p.SyncStatus = types.SyncPending
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO observation_points (farm_id, latitude, longitude, observation_status, name, segment, inspection_suggestion_id, confidence_level, target_entity, mobile_id, last_synced, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.FarmID, p.Latitude, p.Longitude, p.ObservationStatus, p.Name, p.Segment,
		p.InspectionSuggestionID, p.ConfidenceLevel, p.TargetEntity, p.MobileID,
		fmtTimePtr(p.LastSynced), p.SyncStatus, fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert observation point: %w", err)
	}

	p.ID, err = result.LastInsertId()
	return err
}

func updateObservationPoint(ctx context.Context, q dbtx, p *types.ObservationPoint) error {
	result, err := q.ExecContext(ctx, `
		UPDATE observation_points
		SET farm_id = ?, latitude = ?, longitude = ?, observation_status = ?, name = ?,
		    segment = ?, inspection_suggestion_id = ?, confidence_level = ?, target_entity = ?,
		    mobile_id = ?, last_synced = ?, sync_status = ?, updated_at = ?
		WHERE id = ?
	`, p.FarmID, p.Latitude, p.Longitude, p.ObservationStatus, p.Name, p.Segment,
		p.InspectionSuggestionID, p.ConfidenceLevel, p.TargetEntity, p.MobileID,
		fmtTimePtr(p.LastSynced), p.SyncStatus, fmtTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("update observation point: %w", err)
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

func queryObservationPoints(ctx context.Context, q dbtx, query string, args ...any) ([]types.ObservationPoint, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observation points: %w", err)
	}
	defer rows.Close()

	points := make([]types.ObservationPoint, 0)
	for rows.Next() {
		p, err := scanObservationPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation point: %w", err)
		}
		points = append(points, *p)
	}
	return points, rows.Err()
}

const observationPointOwnerJoin = `
	SELECT op.id, op.farm_id, op.latitude, op.longitude, op.observation_status, op.name,
	       op.segment, op.inspection_suggestion_id, op.confidence_level, op.target_entity,
	       op.mobile_id, op.last_synced, op.sync_status, op.created_at, op.updated_at
	FROM observation_points op
	JOIN farms f ON f.id = op.farm_id
	WHERE f.user_id = ?`

// ObservationPointsForUser returns every observation point on the user's farms.
func (s *SQLiteStore) ObservationPointsForUser(ctx context.Context, userID int64) ([]types.ObservationPoint, error) {
	return queryObservationPoints(ctx, s.db, observationPointOwnerJoin+` ORDER BY op.id ASC`, userID)
}

// ObservationPointsModifiedSince returns the user's observation points
// modified after the watermark, or all of them when since is nil.
func (s *SQLiteStore) ObservationPointsModifiedSince(ctx context.Context, userID int64, since *time.Time) ([]types.ObservationPoint, error) {
	if since == nil {
		return s.ObservationPointsForUser(ctx, userID)
	}
	return queryObservationPoints(ctx, s.db,
		observationPointOwnerJoin+` AND op.updated_at > ? ORDER BY op.updated_at ASC`,
		userID, fmtTime(*since))
}

// ObservationPointsForFarm returns every observation point on one farm.
func (s *SQLiteStore) ObservationPointsForFarm(ctx context.Context, farmID int64) ([]types.ObservationPoint, error) {
	return queryObservationPoints(ctx, s.db, `
		SELECT `+observationPointColumns+` FROM observation_points WHERE farm_id = ? ORDER BY id ASC
	`, farmID)
}

// ObservationPointByIDForUser returns the observation point only if its farm
// is owned by the user.
func (s *SQLiteStore) ObservationPointByIDForUser(ctx context.Context, id, userID int64) (*types.ObservationPoint, error) {
	row := s.db.QueryRowContext(ctx, observationPointOwnerJoin+` AND op.id = ?`, userID, id)

	p, err := scanObservationPoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan observation point: %w", err)
	}
	return p, nil
}

// CreateObservationPoint persists an observation point created through
// direct CRUD.
func (s *SQLiteStore) CreateObservationPoint(ctx context.Context, p *types.ObservationPoint) error {
	return insertObservationPoint(ctx, s.db, p)
}

// UpdateObservationPoint persists field changes to an existing observation
// point.
func (s *SQLiteStore) UpdateObservationPoint(ctx context.Context, p *types.ObservationPoint) error {
	p.UpdatedAt = time.Now().UTC()
	return updateObservationPoint(ctx, s.db, p)
}

// DeleteObservationPointForUser removes an observation point on a farm owned
// by the user.
func (s *SQLiteStore) DeleteObservationPointForUser(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM observation_points
		WHERE id = ? AND farm_id IN (SELECT id FROM farms WHERE user_id = ?)
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete observation point: %w", err)
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
