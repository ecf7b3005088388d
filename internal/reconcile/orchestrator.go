package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/harvestguard/fieldsync/internal/store"
)

// Orchestrator runs reconciliation batches against the store. One batch is
// one transaction; each record runs under its own savepoint so a failed
// record rolls back alone while the rest of the batch commits.
type Orchestrator struct {
	store  *store.SQLiteStore
	logger *slog.Logger
	now    func() time.Time
}

func NewOrchestrator(st *store.SQLiteStore, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{store: st, logger: logger, now: time.Now}
}

type syncFunc func(ctx context.Context, repo Repo, userID int64, raw json.RawMessage, now time.Time) (RecordResult, error)

func kindSyncFunc(kind Kind) (syncFunc, error) {
	switch kind {
	case KindFarms:
		return syncFarmRecord, nil
	case KindBoundaryPoints:
		return syncBoundaryPointRecord, nil
	case KindObservationPoints:
		return syncObservationPointRecord, nil
	case KindInspectionSuggestions:
		return syncSuggestionRecord, nil
	}
	return nil, fmt.Errorf("reconcile: unknown kind %q", kind)
}

// SyncKind reconciles a single-kind batch in its own transaction.
func (o *Orchestrator) SyncKind(ctx context.Context, userID int64, kind Kind, records []json.RawMessage) (*KindOutcome, error) {
	repo, err := o.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer repo.Rollback()

	now := o.now().UTC()
	outcome, err := o.syncKind(ctx, repo, userID, kind, records, now)
	if err != nil {
		return nil, err
	}
	if err := repo.Commit(); err != nil {
		return nil, err
	}
	return outcome, nil
}

// SyncAll reconciles a combined batch in one transaction, processing kinds
// in the fixed order so intra-batch parent references resolve. Absent kinds
// are skipped and omitted from the results map.
func (o *Orchestrator) SyncAll(ctx context.Context, userID int64, batch Batch) (*BatchOutcome, error) {
	repo, err := o.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer repo.Rollback()

	now := o.now().UTC()
	out := &BatchOutcome{
		Status:    "success",
		Timestamp: now,
		Results:   make(map[Kind]*KindOutcome),
	}
	for _, kind := range KindOrder {
		records := batch.records(kind)
		if records == nil {
			continue
		}
		outcome, err := o.syncKind(ctx, repo, userID, kind, records, now)
		if err != nil {
			return nil, err
		}
		out.Results[kind] = outcome
	}
	if err := repo.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) syncKind(ctx context.Context, repo Repo, userID int64, kind Kind, records []json.RawMessage, now time.Time) (*KindOutcome, error) {
	fn, err := kindSyncFunc(kind)
	if err != nil {
		return nil, err
	}

	outcome := &KindOutcome{Status: "success", Results: make([]RecordResult, 0, len(records))}
	for i, raw := range records {
		sp := fmt.Sprintf("sp_%d", i)
		if err := repo.Savepoint(ctx, sp); err != nil {
			return nil, err
		}
		res, err := fn(ctx, repo, userID, raw, now)
		if err != nil {
			msg, ok := asRecordError(err)
			if !ok {
				return nil, err
			}
			if err := repo.RollbackSavepoint(ctx, sp); err != nil {
				return nil, err
			}
			outcome.Failed++
			outcome.Results = append(outcome.Results, RecordResult{
				MobileID: rawMobileID(raw),
				Status:   StatusFailed,
				Message:  msg,
			})
			o.logger.WarnContext(ctx, "record rejected",
				"component", "reconcile",
				"kind", string(kind),
				"user_id", userID,
				"reason", msg)
			continue
		}
		if err := repo.ReleaseSavepoint(ctx, sp); err != nil {
			return nil, err
		}
		switch res.Status {
		case StatusCreated:
			outcome.Created++
		case StatusUpdated:
			outcome.Updated++
		}
		outcome.Results = append(outcome.Results, res)
	}
	o.logger.InfoContext(ctx, "kind reconciled",
		"component", "reconcile",
		"kind", string(kind),
		"user_id", userID,
		"created", outcome.Created,
		"updated", outcome.Updated,
		"failed", outcome.Failed)
	return outcome, nil
}

// rawMobileID best-effort extracts the client id from a record that failed
// before or during decoding, so failure results still name the record.
func rawMobileID(raw json.RawMessage) *int64 {
	var probe struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	return probe.ID
}
