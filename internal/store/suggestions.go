package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harvestguard/fieldsync/internal/types"
)

const suggestionColumns = `id, farm_id, user_id, target_entity, confidence_level, area_size, density_of_plant, mobile_id, last_synced, sync_status, created_at, updated_at`

func scanSuggestion(sc scanner) (*types.InspectionSuggestion, error) {
	var sg types.InspectionSuggestion
	var mobileID sql.NullInt64
	var lastSynced sql.NullString
	var syncStatus, createdAt, updatedAt string

	err := sc.Scan(&sg.ID, &sg.FarmID, &sg.UserID, &sg.TargetEntity, &sg.ConfidenceLevel,
		&sg.AreaSize, &sg.DensityOfPlant, &mobileID, &lastSynced, &syncStatus,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	sg.MobileID = int64Ptr(mobileID)
	sg.LastSynced = parseTimePtr(lastSynced)
	sg.SyncStatus = types.SyncStatus(syncStatus)
	sg.CreatedAt = parseTime(createdAt)
	sg.UpdatedAt = parseTime(updatedAt)
	return &sg, nil
}

func suggestionByMobileID(ctx context.Context, q dbtx, mobileID int64) (*types.InspectionSuggestion, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+suggestionColumns+` FROM inspection_suggestions WHERE mobile_id = ?
	`, mobileID)

	sg, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan suggestion: %w", err)
	}
	return sg, nil
}

// suggestionByIDForUser matches a suggestion whose farm belongs to the user.
// This is the ownership check applied when an observation point references a
// suggestion.
func suggestionByIDForUser(ctx context.Context, q dbtx, id, userID int64) (*types.InspectionSuggestion, error) {
	row := q.QueryRowContext(ctx, `
		SELECT s.id, s.farm_id, s.user_id, s.target_entity, s.confidence_level, s.area_size,
		       s.density_of_plant, s.mobile_id, s.last_synced, s.sync_status, s.created_at, s.updated_at
		FROM inspection_suggestions s
		JOIN farms f ON f.id = s.farm_id
		WHERE s.id = ? AND f.user_id = ?
	`, id, userID)

	sg, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan suggestion: %w", err)
	}
	return sg, nil
}

func insertSuggestion(ctx context.Context, q dbtx, sg *types.InspectionSuggestion) error {
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now().UTC()
	}
	if sg.UpdatedAt.IsZero() {
		sg.UpdatedAt = sg.CreatedAt
	}
	if sg.SyncStatus == "" {
		sg.SyncStatus = types.SyncPending
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO inspection_suggestions (farm_id, user_id, target_entity, confidence_level, area_size, density_of_plant, mobile_id, last_synced, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sg.FarmID, sg.UserID, sg.TargetEntity, sg.ConfidenceLevel, sg.AreaSize, sg.DensityOfPlant,
		sg.MobileID, fmtTimePtr(sg.LastSynced), sg.SyncStatus, fmtTime(sg.CreatedAt), fmtTime(sg.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}

	sg.ID, err = result.LastInsertId()
	return err
}

func updateSuggestion(ctx context.Context, q dbtx, sg *types.InspectionSuggestion) error {
	result, err := q.ExecContext(ctx, `
		UPDATE inspection_suggestions
		SET farm_id = ?, target_entity = ?, confidence_level = ?, area_size = ?,
		    density_of_plant = ?, mobile_id = ?, last_synced = ?, sync_status = ?, updated_at = ?
		WHERE id = ?
	`, sg.FarmID, sg.TargetEntity, sg.ConfidenceLevel, sg.AreaSize, sg.DensityOfPlant,
		sg.MobileID, fmtTimePtr(sg.LastSynced), sg.SyncStatus, fmtTime(sg.UpdatedAt), sg.ID)
	if err != nil {
		return fmt.Errorf("update suggestion: %w", err)
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

func querySuggestions(ctx context.Context, q dbtx, query string, args ...any) ([]types.InspectionSuggestion, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := make([]types.InspectionSuggestion, 0)
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		suggestions = append(suggestions, *sg)
	}
	return suggestions, rows.Err()
}

// SuggestionsForUser returns every inspection suggestion created by the user.
func (s *SQLiteStore) SuggestionsForUser(ctx context.Context, userID int64) ([]types.InspectionSuggestion, error) {
	return querySuggestions(ctx, s.db, `
		SELECT `+suggestionColumns+` FROM inspection_suggestions WHERE user_id = ? ORDER BY id ASC
	`, userID)
}

// SuggestionsModifiedSince returns the user's suggestions modified after the
// watermark, or all of them when since is nil.
func (s *SQLiteStore) SuggestionsModifiedSince(ctx context.Context, userID int64, since *time.Time) ([]types.InspectionSuggestion, error) {
	if since == nil {
		return s.SuggestionsForUser(ctx, userID)
	}
	return querySuggestions(ctx, s.db, `
		SELECT `+suggestionColumns+` FROM inspection_suggestions
		WHERE user_id = ? AND updated_at > ? ORDER BY updated_at ASC
	`, userID, fmtTime(*since))
}

// SuggestionByIDForUser returns the suggestion only if its farm is owned by
// the user.
func (s *SQLiteStore) SuggestionByIDForUser(ctx context.Context, id, userID int64) (*types.InspectionSuggestion, error) {
	return suggestionByIDForUser(ctx, s.db, id, userID)
}

// CreateSuggestion persists a suggestion created through direct CRUD.
func (s *SQLiteStore) CreateSuggestion(ctx context.Context, sg *types.InspectionSuggestion) error {
	return insertSuggestion(ctx, s.db, sg)
}

// UpdateSuggestion persists field changes to an existing suggestion.
func (s *SQLiteStore) UpdateSuggestion(ctx context.Context, sg *types.InspectionSuggestion) error {
	sg.UpdatedAt = time.Now().UTC()
	return updateSuggestion(ctx, s.db, sg)
}

// DeleteSuggestionForUser removes a suggestion created by the user.
func (s *SQLiteStore) DeleteSuggestionForUser(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM inspection_suggestions WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete suggestion: %w", err)
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
