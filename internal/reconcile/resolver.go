package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/harvestguard/fieldsync/internal/store"
	"github.com/harvestguard/fieldsync/internal/types"
)

// resolveFarmRef maps a client-supplied farm reference onto a server farm
// the user owns. The reference is tried as a server ID first, then as a
// mobile ID, so records can point at farms created earlier in the same
// batch under either identity.
func resolveFarmRef(ctx context.Context, repo Repo, userID, ref int64) (*types.Farm, error) {
	farm, err := repo.FarmByIDForUser(ctx, ref, userID)
	if err == nil {
		return farm, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	farm, err = repo.FarmByMobileID(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errFarmRef(ref)
		}
		return nil, err
	}
	if farm.UserID != userID {
		return nil, errFarmRef(ref)
	}
	return farm, nil
}

// resolveSuggestionRef maps an optional suggestion reference onto a server
// suggestion. A dangling or foreign reference resolves to nil rather than
// failing the record; the link is advisory.
func resolveSuggestionRef(ctx context.Context, repo Repo, userID int64, ref *int64) (*int64, error) {
	if ref == nil {
		return nil, nil
	}
	sg, err := repo.SuggestionByIDForUser(ctx, *ref, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sg, err = repo.SuggestionByMobileID(ctx, *ref)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, nil
				}
				return nil, err
			}
			if sg.UserID != userID {
				return nil, nil
			}
			return &sg.ID, nil
		}
		return nil, err
	}
	return &sg.ID, nil
}

// recordError marks a failure scoped to a single record. The orchestrator
// rolls back only that record's savepoint and keeps processing the batch.
type recordError struct {
	msg string
}

func (e *recordError) Error() string { return e.msg }

func errFarmRef(ref int64) error {
	return &recordError{msg: fmt.Sprintf("Farm with ID %d not found or does not belong to user", ref)}
}

func recordFailure(format string, args ...any) error {
	return &recordError{msg: fmt.Sprintf(format, args...)}
}

// asRecordError reports whether err should fail only the current record.
// Constraint violations from the store count as per-record conflicts.
func asRecordError(err error) (string, bool) {
	var re *recordError
	if errors.As(err, &re) {
		return re.msg, true
	}
	if store.IsConflict(err) {
		return err.Error(), true
	}
	return "", false
}
