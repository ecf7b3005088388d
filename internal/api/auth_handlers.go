package api

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/harvestguard/fieldsync/internal/store"
	"github.com/harvestguard/fieldsync/internal/types"
	"github.com/harvestguard/fieldsync/internal/validation"
)

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type authResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Register handles POST /api/auth/register/. A profile row is created
// alongside the user so profile endpoints never 404 for a valid account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("username", req.Username))
	c.Add(validation.ValidateMaxLength("username", req.Username, 150))
	c.Add(validation.ValidateRequired("password", req.Password))
	c.Add(validation.ValidateMinLength("password", req.Password, 8))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user := &types.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if store.IsConflict(err) {
			WriteProblem(w, r, http.StatusConflict, "Username already taken")
			return
		}
		MapStoreError(w, r, err)
		return
	}

	token, err := h.store.CreateToken(r.Context(), user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	slog.Info("user registered", "component", "api", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{
		Token:    token.Key,
		UserID:   user.ID,
		Username: user.Username,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login/.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.store.UserByUsername(r.Context(), req.Username)
	if err != nil {
		// Same response for unknown user and wrong password.
		WriteProblem(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		WriteProblem(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.store.CreateToken(r.Context(), user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token:    token.Key,
		UserID:   user.ID,
		Username: user.Username,
	})
}

// Logout handles POST /api/auth/logout/, revoking the presented token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	key := extractTokenKey(r)
	if err := h.store.DeleteToken(r.Context(), key); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
