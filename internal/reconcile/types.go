// Package reconcile implements the bulk reconciliation engine: identity
// resolution across the client and server ID spaces, per-record
// create-or-update decisions, cross-entity cascades, and batch orchestration
// inside a single transaction.
package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/harvestguard/fieldsync/internal/types"
)

// Kind identifies one syncable entity kind. Values double as the JSON keys
// of the combined sync payload.
type Kind string

const (
	KindFarms                 Kind = "farms"
	KindBoundaryPoints        Kind = "boundary_points"
	KindObservationPoints     Kind = "observation_points"
	KindInspectionSuggestions Kind = "inspection_suggestions"
)

// KindOrder is the fixed processing order for combined batches. Farms come
// first so records of later kinds can reference farms created in the same
// batch.
var KindOrder = []Kind{
	KindFarms,
	KindBoundaryPoints,
	KindObservationPoints,
	KindInspectionSuggestions,
}

// Record outcome statuses.
const (
	StatusCreated = "created"
	StatusUpdated = "updated"
	StatusFailed  = "failed"
)

// RecordResult is the per-record outcome reported back to the client.
type RecordResult struct {
	MobileID *int64 `json:"mobile_id"`
	ServerID int64  `json:"server_id,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// KindOutcome aggregates one kind's batch pass.
type KindOutcome struct {
	Status  string         `json:"status"`
	Created int            `json:"created"`
	Updated int            `json:"updated"`
	Failed  int            `json:"failed"`
	Results []RecordResult `json:"results"`
}

// MarshalJSON ensures an empty results list marshals as [] not null.
func (o KindOutcome) MarshalJSON() ([]byte, error) {
	if o.Results == nil {
		o.Results = []RecordResult{}
	}
	type Alias KindOutcome
	return json.Marshal(Alias(o))
}

// Batch is the combined multi-kind sync payload. A nil list means the kind
// was absent from the request; an empty list is processed (to an empty
// outcome) like any other.
type Batch struct {
	Farms                 []json.RawMessage `json:"farms"`
	BoundaryPoints        []json.RawMessage `json:"boundary_points"`
	ObservationPoints     []json.RawMessage `json:"observation_points"`
	InspectionSuggestions []json.RawMessage `json:"inspection_suggestions"`
}

func (b Batch) records(kind Kind) []json.RawMessage {
	switch kind {
	case KindFarms:
		return b.Farms
	case KindBoundaryPoints:
		return b.BoundaryPoints
	case KindObservationPoints:
		return b.ObservationPoints
	case KindInspectionSuggestions:
		return b.InspectionSuggestions
	}
	return nil
}

// BatchOutcome is the combined sync response.
type BatchOutcome struct {
	Status    string                `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
	Results   map[Kind]*KindOutcome `json:"results"`
}

// Repo is the transaction-scoped repository the engine writes through. All
// mutations issued on it are staged on one transaction owned by the
// orchestrator; savepoints isolate individual records within the batch.
type Repo interface {
	Savepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	RollbackSavepoint(ctx context.Context, name string) error

	FarmByIDForUser(ctx context.Context, id, userID int64) (*types.Farm, error)
	FarmByMobileID(ctx context.Context, mobileID int64) (*types.Farm, error)
	CreateFarm(ctx context.Context, f *types.Farm) error
	UpdateFarm(ctx context.Context, f *types.Farm) error

	BoundaryPointByMobileID(ctx context.Context, mobileID int64) (*types.BoundaryPoint, error)
	CreateBoundaryPoint(ctx context.Context, p *types.BoundaryPoint) error
	UpdateBoundaryPoint(ctx context.Context, p *types.BoundaryPoint) error

	ObservationPointByMobileID(ctx context.Context, mobileID int64) (*types.ObservationPoint, error)
	CreateObservationPoint(ctx context.Context, p *types.ObservationPoint) error
	UpdateObservationPoint(ctx context.Context, p *types.ObservationPoint) error

	SuggestionByMobileID(ctx context.Context, mobileID int64) (*types.InspectionSuggestion, error)
	SuggestionByIDForUser(ctx context.Context, id, userID int64) (*types.InspectionSuggestion, error)
	CreateSuggestion(ctx context.Context, sg *types.InspectionSuggestion) error
	UpdateSuggestion(ctx context.Context, sg *types.InspectionSuggestion) error

	RepointObservations(ctx context.Context, sg *types.InspectionSuggestion, now time.Time) error
}

// farmRecord is the allow-listed update structure for farms. Pointer fields
// distinguish absent keys from zero values.
type farmRecord struct {
	ID        *int64   `json:"id"`
	Name      *string  `json:"name"`
	Size      *float64 `json:"size"`
	PlantType *string  `json:"plant_type"`
}

type boundaryPointRecord struct {
	ID          *int64   `json:"id"`
	FarmID      *int64   `json:"farm_id"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Timestamp   *string  `json:"timestamp"`
	Description *string  `json:"description"`
	PhotoURI    *string  `json:"photo_uri"`
}

type observationPointRecord struct {
	ID                     *int64   `json:"id"`
	FarmID                 *int64   `json:"farm_id"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	ObservationStatus      *string  `json:"observation_status"`
	Name                   *string  `json:"name"`
	Segment                *int     `json:"segment"`
	InspectionSuggestionID *int64   `json:"inspection_suggestion_id"`
	ConfidenceLevel        *string  `json:"confidence_level"`
	TargetEntity           *string  `json:"target_entity"`
}

type suggestionRecord struct {
	ID              *int64   `json:"id"`
	FarmID          *int64   `json:"property_location"`
	TargetEntity    *string  `json:"target_entity"`
	ConfidenceLevel *string  `json:"confidence_level"`
	AreaSize        *float64 `json:"area_size"`
	DensityOfPlant  *int     `json:"density_of_plant"`
}
