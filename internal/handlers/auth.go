package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/auth"
	"github.com/Shahid-khan015/FarmTrack/internal/db"
	"github.com/Shahid-khan015/FarmTrack/internal/middleware"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if !decodeJSON(w, r, &loginReq) {
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		middleware.WriteDetail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		middleware.WriteDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.IsActive {
		middleware.WriteDetail(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		middleware.WriteDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("User logged in")
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// Register handles user registration. The role defaults to operator.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if !decodeJSON(w, r, &registerReq) {
		return
	}

	if err := h.authService.ValidateUsername(registerReq.Username); err != nil {
		middleware.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		middleware.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if registerReq.FullName == "" {
		middleware.WriteDetail(w, http.StatusBadRequest, "Full name is required")
		return
	}

	if registerReq.Role == "" {
		registerReq.Role = models.RoleOperator
	}
	if !models.IsValidRole(registerReq.Role) {
		middleware.WriteDetail(w, http.StatusBadRequest, "Invalid role")
		return
	}

	if registerReq.Phone != nil && *registerReq.Phone == "" {
		registerReq.Phone = nil
	}

	_, err := h.userCollection.FindUserByUsername(r.Context(), registerReq.Username)
	if err == nil {
		middleware.WriteDetail(w, http.StatusConflict, "Username already exists")
		return
	}
	if !errors.Is(err, db.ErrNotFound) {
		writeError(w, r, err)
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     registerReq.Username,
		PasswordHash: passwordHash,
		FullName:     registerReq.FullName,
		Role:         registerReq.Role,
		Phone:        registerReq.Phone,
		IsActive:     true,
		CreatedAt:    time.Now().Truncate(time.Microsecond),
	}

	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			middleware.WriteDetail(w, http.StatusConflict, "User with given username or phone already exists")
			return
		}
		writeError(w, r, err)
		return
	}

	token, err := h.authService.GenerateToken(&user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	writeJSON(w, http.StatusCreated, models.LoginResponse{Token: token, User: user})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			middleware.WriteDetail(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
