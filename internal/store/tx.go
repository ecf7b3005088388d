package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harvestguard/fieldsync/internal/types"
)

// TxRepo is the transaction-scoped repository handed to the reconcile
// package. Every write issued through it is staged on one *sql.Tx and
// commits or rolls back as a unit; per-record isolation inside the batch
// uses SQLite savepoints.
type TxRepo struct {
	tx *sql.Tx
}

// Commit commits the batch transaction.
func (r *TxRepo) Commit() error {
	return r.tx.Commit()
}

// Rollback aborts the batch transaction. Safe to call after Commit.
func (r *TxRepo) Rollback() error {
	return r.tx.Rollback()
}

// Savepoint opens a named savepoint. The name must be a plain identifier.
func (r *TxRepo) Savepoint(ctx context.Context, name string) error {
	if _, err := r.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	return nil
}

// ReleaseSavepoint discards a savepoint, keeping its effects in the
// enclosing transaction.
func (r *TxRepo) ReleaseSavepoint(ctx context.Context, name string) error {
	if _, err := r.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}

// RollbackSavepoint undoes every write since the savepoint was opened. The
// savepoint stays open and must still be released.
func (r *TxRepo) RollbackSavepoint(ctx context.Context, name string) error {
	if _, err := r.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return fmt.Errorf("rollback to savepoint %s: %w", name, err)
	}
	return nil
}

// --- Farm access ---

func (r *TxRepo) FarmByIDForUser(ctx context.Context, id, userID int64) (*types.Farm, error) {
	return farmByIDForUser(ctx, r.tx, id, userID)
}

func (r *TxRepo) FarmByMobileID(ctx context.Context, mobileID int64) (*types.Farm, error) {
	return farmByMobileID(ctx, r.tx, mobileID)
}

func (r *TxRepo) CreateFarm(ctx context.Context, f *types.Farm) error {
	return insertFarm(ctx, r.tx, f)
}

func (r *TxRepo) UpdateFarm(ctx context.Context, f *types.Farm) error {
	return updateFarm(ctx, r.tx, f)
}

// --- Boundary point access ---

func (r *TxRepo) BoundaryPointByMobileID(ctx context.Context, mobileID int64) (*types.BoundaryPoint, error) {
	return boundaryPointByMobileID(ctx, r.tx, mobileID)
}

func (r *TxRepo) CreateBoundaryPoint(ctx context.Context, p *types.BoundaryPoint) error {
	return insertBoundaryPoint(ctx, r.tx, p)
}

func (r *TxRepo) UpdateBoundaryPoint(ctx context.Context, p *types.BoundaryPoint) error {
	return updateBoundaryPoint(ctx, r.tx, p)
}

// --- Observation point access ---

func (r *TxRepo) ObservationPointByMobileID(ctx context.Context, mobileID int64) (*types.ObservationPoint, error) {
	return observationPointByMobileID(ctx, r.tx, mobileID)
}

func (r *TxRepo) CreateObservationPoint(ctx context.Context, p *types.ObservationPoint) error {
	return insertObservationPoint(ctx, r.tx, p)
}

func (r *TxRepo) UpdateObservationPoint(ctx context.Context, p *types.ObservationPoint) error {
	return updateObservationPoint(ctx, r.tx, p)
}

// --- Inspection suggestion access ---

func (r *TxRepo) SuggestionByMobileID(ctx context.Context, mobileID int64) (*types.InspectionSuggestion, error) {
	return suggestionByMobileID(ctx, r.tx, mobileID)
}

func (r *TxRepo) SuggestionByIDForUser(ctx context.Context, id, userID int64) (*types.InspectionSuggestion, error) {
	return suggestionByIDForUser(ctx, r.tx, id, userID)
}

func (r *TxRepo) CreateSuggestion(ctx context.Context, sg *types.InspectionSuggestion) error {
	return insertSuggestion(ctx, r.tx, sg)
}

func (r *TxRepo) UpdateSuggestion(ctx context.Context, sg *types.InspectionSuggestion) error {
	return updateSuggestion(ctx, r.tx, sg)
}

// RepointObservations fans a suggestion's classification out to every
// observation point on its farm in one bulk write.
func (r *TxRepo) RepointObservations(ctx context.Context, sg *types.InspectionSuggestion, now time.Time) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE observation_points
		SET inspection_suggestion_id = ?, target_entity = ?, confidence_level = ?,
		    last_synced = ?, sync_status = ?, updated_at = ?
		WHERE farm_id = ?
	`, sg.ID, sg.TargetEntity, sg.ConfidenceLevel,
		fmtTime(now), types.SyncSynced, fmtTime(now), sg.FarmID)
	if err != nil {
		return fmt.Errorf("repoint observations: %w", err)
	}
	return nil
}
