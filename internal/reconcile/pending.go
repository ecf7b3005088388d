package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/harvestguard/fieldsync/internal/store"
)

// PendingSince returns the user's records of one kind modified strictly
// after the watermark. A nil watermark returns everything the user owns.
func PendingSince(ctx context.Context, st *store.SQLiteStore, userID int64, kind Kind, since *time.Time) (any, error) {
	switch kind {
	case KindFarms:
		return st.FarmsModifiedSince(ctx, userID, since)
	case KindBoundaryPoints:
		return st.BoundaryPointsModifiedSince(ctx, userID, since)
	case KindObservationPoints:
		return st.ObservationPointsModifiedSince(ctx, userID, since)
	case KindInspectionSuggestions:
		return st.SuggestionsModifiedSince(ctx, userID, since)
	}
	return nil, fmt.Errorf("reconcile: unknown kind %q", kind)
}
