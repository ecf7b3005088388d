package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harvestguard/fieldsync/internal/types"
)

func TestTxRepo_CommitPersists(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "alma")

	repo, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	f := &types.Farm{UserID: u.ID, Name: "Tx Plot"}
	if err := repo.CreateFarm(ctx, f); err != nil {
		t.Fatal(err)
	}
	if err := repo.Commit(); err != nil {
		t.Fatal(err)
	}

	if _, err := db.FarmByIDForUser(ctx, f.ID, u.ID); err != nil {
		t.Errorf("committed farm not readable: %v", err)
	}
}

func TestTxRepo_RollbackDiscards(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "alma")

	repo, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	f := &types.Farm{UserID: u.ID, Name: "Doomed Plot"}
	if err := repo.CreateFarm(ctx, f); err != nil {
		t.Fatal(err)
	}
	if err := repo.Rollback(); err != nil {
		t.Fatal(err)
	}

	if _, err := db.FarmByIDForUser(ctx, f.ID, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("rolled back farm readable, err = %v", err)
	}
}

func TestTxRepo_SavepointIsolatesRecord(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "alma")

	repo, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Rollback()

	kept := &types.Farm{UserID: u.ID, Name: "Kept"}
	if err := repo.Savepoint(ctx, "sp_0"); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateFarm(ctx, kept); err != nil {
		t.Fatal(err)
	}
	if err := repo.ReleaseSavepoint(ctx, "sp_0"); err != nil {
		t.Fatal(err)
	}

	dropped := &types.Farm{UserID: u.ID, Name: "Dropped"}
	if err := repo.Savepoint(ctx, "sp_1"); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateFarm(ctx, dropped); err != nil {
		t.Fatal(err)
	}
	if err := repo.RollbackSavepoint(ctx, "sp_1"); err != nil {
		t.Fatal(err)
	}
	if err := repo.ReleaseSavepoint(ctx, "sp_1"); err != nil {
		t.Fatal(err)
	}

	if err := repo.Commit(); err != nil {
		t.Fatal(err)
	}

	if _, err := db.FarmByIDForUser(ctx, kept.ID, u.ID); err != nil {
		t.Errorf("kept farm lost: %v", err)
	}
	if _, err := db.FarmByIDForUser(ctx, dropped.ID, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("savepoint rollback leaked farm, err = %v", err)
	}
}

func TestTxRepo_RepointObservations(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "alma")
	farm := newTestFarm(t, db, u.ID, "North Plot")
	other := newTestFarm(t, db, u.ID, "South Plot")

	for i := 0; i < 3; i++ {
		op := &types.ObservationPoint{FarmID: farm.ID, Latitude: float64(i), Longitude: float64(i)}
		if err := db.CreateObservationPoint(ctx, op); err != nil {
			t.Fatal(err)
		}
	}
	untouched := &types.ObservationPoint{FarmID: other.ID, Latitude: 9, Longitude: 9}
	if err := db.CreateObservationPoint(ctx, untouched); err != nil {
		t.Fatal(err)
	}

	repo, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sg := &types.InspectionSuggestion{
		FarmID:          farm.ID,
		UserID:          u.ID,
		TargetEntity:    "Coffee Rust",
		ConfidenceLevel: "High",
	}
	if err := repo.CreateSuggestion(ctx, sg); err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	if err := repo.RepointObservations(ctx, sg, now); err != nil {
		t.Fatal(err)
	}
	if err := repo.Commit(); err != nil {
		t.Fatal(err)
	}

	points, err := db.ObservationPointsForFarm(ctx, farm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	for _, p := range points {
		if p.InspectionSuggestionID == nil || *p.InspectionSuggestionID != sg.ID {
			t.Errorf("point %d not repointed to suggestion %d", p.ID, sg.ID)
		}
		if p.TargetEntity == nil || *p.TargetEntity != "Coffee Rust" {
			t.Errorf("point %d target_entity not propagated", p.ID)
		}
		if p.ConfidenceLevel == nil || *p.ConfidenceLevel != "High" {
			t.Errorf("point %d confidence_level not propagated", p.ID)
		}
		if p.SyncStatus != types.SyncSynced {
			t.Errorf("point %d sync_status = %q, want synced", p.ID, p.SyncStatus)
		}
	}

	// The other farm's point is untouched
	got, err := db.ObservationPointByIDForUser(ctx, untouched.ID, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.InspectionSuggestionID != nil {
		t.Error("cascade crossed farm boundary")
	}
}
