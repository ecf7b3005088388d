package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/harvestguard/fieldsync/internal/store"
	"github.com/harvestguard/fieldsync/internal/types"
)

// decodeStrict rejects unknown keys so malformed records fail individually
// instead of silently dropping fields.
func decodeStrict(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return recordFailure("invalid record: %v", err)
	}
	return nil
}

// syncFarmRecord reconciles one farm record: matched by mobile ID, created
// when unknown, updated in place when already present and owned.
func syncFarmRecord(ctx context.Context, repo Repo, userID int64, raw json.RawMessage, now time.Time) (RecordResult, error) {
	var rec farmRecord
	if err := decodeStrict(raw, &rec); err != nil {
		return RecordResult{}, err
	}
	if rec.ID == nil {
		return RecordResult{}, recordFailure("missing id")
	}
	mobileID := *rec.ID

	existing, err := repo.FarmByMobileID(ctx, mobileID)
	switch {
	case err == nil:
		if existing.UserID != userID {
			return RecordResult{}, errFarmRef(mobileID)
		}
		applyFarm(existing, rec)
		stamp(&existing.LastSynced, &existing.SyncStatus, &existing.UpdatedAt, now)
		if err := repo.UpdateFarm(ctx, existing); err != nil {
			return RecordResult{}, err
		}
		return RecordResult{MobileID: &mobileID, ServerID: existing.ID, Status: StatusUpdated}, nil
	case errors.Is(err, store.ErrNotFound):
		farm := &types.Farm{UserID: userID, MobileID: &mobileID}
		applyFarm(farm, rec)
		stamp(&farm.LastSynced, &farm.SyncStatus, &farm.UpdatedAt, now)
		if err := repo.CreateFarm(ctx, farm); err != nil {
			return RecordResult{}, err
		}
		return RecordResult{MobileID: &mobileID, ServerID: farm.ID, Status: StatusCreated}, nil
	default:
		return RecordResult{}, err
	}
}

func applyFarm(f *types.Farm, rec farmRecord) {
	if rec.Name != nil {
		f.Name = *rec.Name
	}
	if rec.Size != nil {
		f.Size = *rec.Size
	}
	if rec.PlantType != nil {
		f.PlantType = *rec.PlantType
	}
}

func syncBoundaryPointRecord(ctx context.Context, repo Repo, userID int64, raw json.RawMessage, now time.Time) (RecordResult, error) {
	var rec boundaryPointRecord
	if err := decodeStrict(raw, &rec); err != nil {
		return RecordResult{}, err
	}
	if rec.ID == nil {
		return RecordResult{}, recordFailure("missing id")
	}
	mobileID := *rec.ID

	existing, err := repo.BoundaryPointByMobileID(ctx, mobileID)
	switch {
	case err == nil:
		owner, err := repo.FarmByIDForUser(ctx, existing.FarmID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return RecordResult{}, errFarmRef(existing.FarmID)
			}
			return RecordResult{}, err
		}
		if rec.FarmID != nil && *rec.FarmID != owner.ID {
			farm, err := resolveFarmRef(ctx, repo, userID, *rec.FarmID)
			if err != nil {
				return RecordResult{}, err
			}
			existing.FarmID = farm.ID
		}
		if err := applyBoundaryPoint(existing, rec); err != nil {
			return RecordResult{}, err
		}
		stamp(&existing.LastSynced, &existing.SyncStatus, &existing.UpdatedAt, now)
		if err := repo.UpdateBoundaryPoint(ctx, existing); err != nil {
			return RecordResult{}, err
		}
		return RecordResult{MobileID: &mobileID, ServerID: existing.ID, Status: StatusUpdated}, nil
	case errors.Is(err, store.ErrNotFound):
		if rec.FarmID == nil {
			return RecordResult{}, recordFailure("missing farm_id")
		}
		farm, err := resolveFarmRef(ctx, repo, userID, *rec.FarmID)
		if err != nil {
			return RecordResult{}, err
		}
		point := &types.BoundaryPoint{FarmID: farm.ID, MobileID: &mobileID}
		if err := applyBoundaryPoint(point, rec); err != nil {
			return RecordResult{}, err
		}
		stamp(&point.LastSynced, &point.SyncStatus, &point.UpdatedAt, now)
		if err := repo.CreateBoundaryPoint(ctx, point); err != nil {
			return RecordResult{}, err
		}
		return RecordResult{MobileID: &mobileID, ServerID: point.ID, Status: StatusCreated}, nil
	default:
		return RecordResult{}, err
	}
}

func applyBoundaryPoint(p *types.BoundaryPoint, rec boundaryPointRecord) error {
	if rec.Latitude != nil {
		p.Latitude = *rec.Latitude
	}
	if rec.Longitude != nil {
		p.Longitude = *rec.Longitude
	}
	if rec.Timestamp != nil {
		ts, err := time.Parse(time.RFC3339Nano, *rec.Timestamp)
		if err != nil {
			return recordFailure("invalid timestamp: %v", err)
		}
		p.CapturedAt = &ts
	}
	if rec.Description != nil {
		p.Description = rec.Description
	}
	if rec.PhotoURI != nil {
		p.PhotoURI = rec.PhotoURI
	}
	return nil
}

func syncObservationPointRecord(ctx context.Context, repo Repo, userID int64, raw json.RawMessage, now time.Time) (RecordResult, error) {
	var rec observationPointRecord
	if err := decodeStrict(raw, &rec); err != nil {
		return RecordResult{}, err
	}
	if rec.ID == nil {
		return RecordResult{}, recordFailure("missing id")
	}
	mobileID := *rec.ID

	existing, err := repo.ObservationPointByMobileID(ctx, mobileID)
	switch {
	case err == nil:
		if _, err := repo.FarmByIDForUser(ctx, existing.FarmID, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return RecordResult{}, errFarmRef(existing.FarmID)
			}
			return RecordResult{}, err
		}
		if rec.FarmID != nil && *rec.FarmID != existing.FarmID {
			farm, err := resolveFarmRef(ctx, repo, userID, *rec.FarmID)
			if err != nil {
				return RecordResult{}, err
			}
			existing.FarmID = farm.ID
		}
		if err := applyObservationPoint(ctx, repo, userID, existing, rec); err != nil {
			return RecordResult{}, err
		}
		stamp(&existing.LastSynced, &existing.SyncStatus, &existing.UpdatedAt, now)
		if err := repo.UpdateObservationPoint(ctx, existing); err != nil {
			return RecordResult{}, err
		}
		return RecordResult{MobileID: &mobileID, ServerID: existing.ID, Status: StatusUpdated}, nil
	case errors.Is(err, store.ErrNotFound):
		if rec.FarmID == nil {
			return RecordResult{}, recordFailure("missing farm_id")
		}
		farm, err := resolveFarmRef(ctx, repo, userID, *rec.FarmID)
		if err != nil {
			return RecordResult{}, err
		}
		point := &types.ObservationPoint{FarmID: farm.ID, MobileID: &mobileID, ObservationStatus: "Nil"}
		if err := applyObservationPoint(ctx, repo, userID, point, rec); err != nil {
			return RecordResult{}, err
		}
		stamp(&point.LastSynced, &point.SyncStatus, &point.UpdatedAt, now)
		if err := repo.CreateObservationPoint(ctx, point); err != nil {
			return RecordResult{}, err
		}
		return RecordResult{MobileID: &mobileID, ServerID: point.ID, Status: StatusCreated}, nil
	default:
		return RecordResult{}, err
	}
}

func applyObservationPoint(ctx context.Context, repo Repo, userID int64, p *types.ObservationPoint, rec observationPointRecord) error {
	if rec.Latitude != nil {
		p.Latitude = *rec.Latitude
	}
	if rec.Longitude != nil {
		p.Longitude = *rec.Longitude
	}
	if rec.ObservationStatus != nil {
		p.ObservationStatus = *rec.ObservationStatus
	}
	if rec.Name != nil {
		p.Name = rec.Name
	}
	if rec.Segment != nil {
		p.Segment = *rec.Segment
	}
	if rec.InspectionSuggestionID != nil {
		ref, err := resolveSuggestionRef(ctx, repo, userID, rec.InspectionSuggestionID)
		if err != nil {
			return err
		}
		p.InspectionSuggestionID = ref
	}
	if rec.ConfidenceLevel != nil {
		p.ConfidenceLevel = rec.ConfidenceLevel
	}
	if rec.TargetEntity != nil {
		p.TargetEntity = rec.TargetEntity
	}
	return nil
}

func syncSuggestionRecord(ctx context.Context, repo Repo, userID int64, raw json.RawMessage, now time.Time) (RecordResult, error) {
	var rec suggestionRecord
	if err := decodeStrict(raw, &rec); err != nil {
		return RecordResult{}, err
	}
	if rec.ID == nil {
		return RecordResult{}, recordFailure("missing id")
	}
	mobileID := *rec.ID

	existing, err := repo.SuggestionByMobileID(ctx, mobileID)
	switch {
	case err == nil:
		if existing.UserID != userID {
			return RecordResult{}, errFarmRef(existing.FarmID)
		}
		if rec.FarmID != nil && *rec.FarmID != existing.FarmID {
			farm, err := resolveFarmRef(ctx, repo, userID, *rec.FarmID)
			if err != nil {
				return RecordResult{}, err
			}
			existing.FarmID = farm.ID
		}
		applySuggestion(existing, rec)
		stamp(&existing.LastSynced, &existing.SyncStatus, &existing.UpdatedAt, now)
		if err := repo.UpdateSuggestion(ctx, existing); err != nil {
			return RecordResult{}, err
		}
		if err := repo.RepointObservations(ctx, existing, now); err != nil {
			return RecordResult{}, err
		}
		return RecordResult{MobileID: &mobileID, ServerID: existing.ID, Status: StatusUpdated}, nil
	case errors.Is(err, store.ErrNotFound):
		if rec.FarmID == nil {
			return RecordResult{}, recordFailure("missing property_location")
		}
		farm, err := resolveFarmRef(ctx, repo, userID, *rec.FarmID)
		if err != nil {
			return RecordResult{}, err
		}
		sg := &types.InspectionSuggestion{FarmID: farm.ID, UserID: userID, MobileID: &mobileID}
		applySuggestion(sg, rec)
		stamp(&sg.LastSynced, &sg.SyncStatus, &sg.UpdatedAt, now)
		if err := repo.CreateSuggestion(ctx, sg); err != nil {
			return RecordResult{}, err
		}
		if err := repo.RepointObservations(ctx, sg, now); err != nil {
			return RecordResult{}, err
		}
		return RecordResult{MobileID: &mobileID, ServerID: sg.ID, Status: StatusCreated}, nil
	default:
		return RecordResult{}, err
	}
}

func applySuggestion(sg *types.InspectionSuggestion, rec suggestionRecord) {
	if rec.TargetEntity != nil {
		sg.TargetEntity = *rec.TargetEntity
	}
	if rec.ConfidenceLevel != nil {
		sg.ConfidenceLevel = *rec.ConfidenceLevel
	}
	if rec.AreaSize != nil {
		sg.AreaSize = *rec.AreaSize
	}
	if rec.DensityOfPlant != nil {
		sg.DensityOfPlant = *rec.DensityOfPlant
	}
}

// stamp marks a record synced as of now. updated_at moves too so watermark
// queries pick the record up.
func stamp(lastSynced **time.Time, status *types.SyncStatus, updatedAt *time.Time, now time.Time) {
	t := now
	*lastSynced = &t
	*status = types.SyncSynced
	*updatedAt = now
}
