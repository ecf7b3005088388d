package api

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/harvestguard/fieldsync/internal/types"
	"github.com/harvestguard/fieldsync/internal/validation"
)

// maxPictureBytes bounds profile picture uploads.
const maxPictureBytes = 10 << 20

// GetProfile handles GET /api/profile/.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())
	profile, err := h.store.ProfileByUserID(r.Context(), user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ProfileRepresentation{UserProfile: *profile, User: user})
}

type updateProfileRequest struct {
	Email          *string `json:"email"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	PhoneNumber    *string `json:"phone_number"`
	Bio            *string `json:"bio"`
	Company        *string `json:"company"`
	JobTitle       *string `json:"job_title"`
	Address        *string `json:"address"`
}

// UpdateProfile handles PUT /api/profile/update_profile/. Identity fields
// land on the user row, the rest on the profile. Absent fields are left
// untouched.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())
	var req updateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile, err := h.store.ProfileByUserID(r.Context(), user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	identityChanged := false
	if req.Email != nil {
		user.Email = *req.Email
		identityChanged = true
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
		profile.FirstName = req.FirstName
		identityChanged = true
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
		profile.LastName = req.LastName
		identityChanged = true
	}
	if identityChanged {
		if err := h.store.UpdateUserIdentity(r.Context(), user); err != nil {
			MapStoreError(w, r, err)
			return
		}
	}

	if req.PhoneNumber != nil {
		profile.PhoneNumber = req.PhoneNumber
	}
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.Company != nil {
		profile.Company = req.Company
	}
	if req.JobTitle != nil {
		profile.JobTitle = req.JobTitle
	}
	if req.Address != nil {
		profile.Address = req.Address
	}
	if err := h.store.UpdateProfile(r.Context(), profile); err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.ProfileRepresentation{UserProfile: *profile, User: user})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword handles POST /api/profile/change_password/.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())
	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("old_password", req.OldPassword))
	c.Add(validation.ValidateRequired("new_password", req.NewPassword))
	c.Add(validation.ValidateMinLength("new_password", req.NewPassword, 8))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		WriteProblem(w, r, http.StatusForbidden, "Old password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if err := h.store.UpdatePasswordHash(r.Context(), user.ID, string(hash)); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// UploadPicture handles POST /api/profile/upload_picture/. The image is
// stored under the media root with a generated name and the profile records
// its relative path.
func (h *Handler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())

	if err := r.ParseMultipartForm(maxPictureBytes); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("profile_picture")
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Missing profile_picture file")
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	relPath := filepath.Join("profile_pictures", uuid.NewString()+ext)
	absPath := filepath.Join(h.mediaRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	dst, err := os.Create(absPath)
	if err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, io.LimitReader(file, maxPictureBytes)); err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	profile, err := h.store.ProfileByUserID(r.Context(), user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	profile.ProfilePicture = &relPath
	if err := h.store.UpdateProfile(r.Context(), profile); err != nil {
		MapStoreError(w, r, err)
		return
	}

	slog.Info("profile picture stored", "component", "api", "user_id", user.ID, "path", relPath)
	writeJSON(w, http.StatusOK, types.ProfileRepresentation{UserProfile: *profile, User: user})
}

// SyncProfile handles GET /api/profile/sync/, stamping the profile synced
// and returning the refreshed representation.
func (h *Handler) SyncProfile(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())
	profile, err := h.store.StampProfileSynced(r.Context(), user.ID, time.Now().UTC())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ProfileRepresentation{UserProfile: *profile, User: user})
}
