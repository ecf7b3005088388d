package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harvestguard/fieldsync/internal/types"
)

const profileColumns = `id, user_id, first_name, last_name, phone_number, profile_picture, bio, company, job_title, address, last_synced, sync_status, created_at, updated_at`

func scanProfile(sc scanner) (*types.UserProfile, error) {
	var p types.UserProfile
	var firstName, lastName, phoneNumber, profilePicture sql.NullString
	var bio, company, jobTitle, address, lastSynced sql.NullString
	var syncStatus, createdAt, updatedAt string

	err := sc.Scan(&p.ID, &p.UserID, &firstName, &lastName, &phoneNumber, &profilePicture,
		&bio, &company, &jobTitle, &address, &lastSynced, &syncStatus, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.FirstName = strPtr(firstName)
	p.LastName = strPtr(lastName)
	p.PhoneNumber = strPtr(phoneNumber)
	p.ProfilePicture = strPtr(profilePicture)
	p.Bio = strPtr(bio)
	p.Company = strPtr(company)
	p.JobTitle = strPtr(jobTitle)
	p.Address = strPtr(address)
	p.LastSynced = parseTimePtr(lastSynced)
	p.SyncStatus = types.SyncStatus(syncStatus)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// ProfileByUserID returns the user's profile. Every user has one, created
// at registration.
func (s *SQLiteStore) ProfileByUserID(ctx context.Context, userID int64) (*types.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM user_profiles WHERE user_id = ?
	`, userID)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return p, nil
}

// UpdateProfile writes the profile's mutable fields and sync metadata.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, p *types.UserProfile) error {
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE user_profiles
		SET first_name = ?, last_name = ?, phone_number = ?, profile_picture = ?,
		    bio = ?, company = ?, job_title = ?, address = ?,
		    last_synced = ?, sync_status = ?, updated_at = ?
		WHERE user_id = ?
	`, p.FirstName, p.LastName, p.PhoneNumber, p.ProfilePicture,
		p.Bio, p.Company, p.JobTitle, p.Address,
		fmtTimePtr(p.LastSynced), p.SyncStatus, fmtTime(p.UpdatedAt), p.UserID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
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

// StampProfileSynced marks the profile as synced at the given instant and
// returns the refreshed row.
func (s *SQLiteStore) StampProfileSynced(ctx context.Context, userID int64, now time.Time) (*types.UserProfile, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_profiles
		SET last_synced = ?, sync_status = ?, updated_at = ?
		WHERE user_id = ?
	`, fmtTime(now), types.SyncSynced, fmtTime(now), userID)
	if err != nil {
		return nil, fmt.Errorf("stamp profile: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	return s.ProfileByUserID(ctx, userID)
}
