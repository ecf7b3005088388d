package types

import "time"

// SyncStatus tracks whether a record's server state reflects its last known
// client submission.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// User is an authenticated account. The password hash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"-"`
}

// AuthToken is an opaque per-user API token, DRF-style.
type AuthToken struct {
	Key       string    `json:"token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"-"`
}

// Farm is the root of the ownership hierarchy. Every other syncable entity
// derives its authorization transitively through its farm reference.
type Farm struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Name       string     `json:"name"`
	Size       float64    `json:"size"`
	PlantType  string     `json:"plant_type"`
	MobileID   *int64     `json:"mobile_id"`
	LastSynced *time.Time `json:"last_synced"`
	SyncStatus SyncStatus `json:"sync_status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// BoundaryPoint is one vertex of a farm's captured boundary polygon.
type BoundaryPoint struct {
	ID          int64      `json:"id"`
	FarmID      int64      `json:"farm_id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	CapturedAt  *time.Time `json:"timestamp"`
	Description *string    `json:"description"`
	PhotoURI    *string    `json:"photo_uri"`
	MobileID    *int64     `json:"mobile_id"`
	LastSynced  *time.Time `json:"last_synced"`
	SyncStatus  SyncStatus `json:"sync_status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ObservationPoint is a geolocated inspection marker on a farm. Its
// target_entity and confidence_level mirror the referenced inspection
// suggestion as of the last cascade.
type ObservationPoint struct {
	ID                     int64      `json:"id"`
	FarmID                 int64      `json:"farm_id"`
	Latitude               float64    `json:"latitude"`
	Longitude              float64    `json:"longitude"`
	ObservationStatus      string     `json:"observation_status"`
	Name                   *string    `json:"name"`
	Segment                int        `json:"segment"`
	InspectionSuggestionID *int64     `json:"inspection_suggestion_id"`
	ConfidenceLevel        *string    `json:"confidence_level"`
	TargetEntity           *string    `json:"target_entity"`
	MobileID               *int64     `json:"mobile_id"`
	LastSynced             *time.Time `json:"last_synced"`
	SyncStatus             SyncStatus `json:"sync_status"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// InspectionSuggestion is a classification proposal for a farm, created by
// one user. The wire name for the farm reference is property_location.
type InspectionSuggestion struct {
	ID              int64      `json:"id"`
	FarmID          int64      `json:"property_location"`
	UserID          int64      `json:"user"`
	TargetEntity    string     `json:"target_entity"`
	ConfidenceLevel string     `json:"confidence_level"`
	AreaSize        float64    `json:"area_size"`
	DensityOfPlant  int        `json:"density_of_plant"`
	MobileID        *int64     `json:"mobile_id"`
	LastSynced      *time.Time `json:"last_synced"`
	SyncStatus      SyncStatus `json:"sync_status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UserProfile extends a user account with contact details. Exactly one
// profile exists per user; it is created with the account and destroyed
// only with it.
type UserProfile struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	FirstName      *string    `json:"first_name"`
	LastName       *string    `json:"last_name"`
	PhoneNumber    *string    `json:"phone_number"`
	ProfilePicture *string    `json:"profile_picture"`
	Bio            *string    `json:"bio"`
	Company        *string    `json:"company"`
	JobTitle       *string    `json:"job_title"`
	Address        *string    `json:"address"`
	LastSynced     *time.Time `json:"last_synced"`
	SyncStatus     SyncStatus `json:"sync_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ProfileRepresentation is the profile response shape with the owning user
// embedded, matching the mobile client's expectations.
type ProfileRepresentation struct {
	UserProfile
	User *User `json:"user,omitempty"`
}

// HealthResponse is the unauthenticated health check body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Users   int64  `json:"users"`
	Farms   int64  `json:"farms"`
}
