package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/warefront/api/internal/apperr"
	"github.com/warefront/api/internal/auth"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/enum"
	"github.com/warefront/api/internal/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the DB methods the auth handler needs.
type UserStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetActiveRoleAssignment(ctx context.Context, userID uuid.UUID) (database.RoleAssignment, error)
}

type AuthHandler struct {
	store     UserStore
	jwtSecret string
	log       *zap.Logger
}

func NewAuthHandler(store UserStore, jwtSecret string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, log: log}
}

var errBadCredentials = apperr.Validation("invalid email or password")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	UserID        uuid.UUID `json:"userId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	BaseRole      string    `json:"baseRole"`
	EffectiveRole string    `json:"effectiveRole"`
}

type loginResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         userResponse `json:"user"`
}

// Login authenticates by email and password. The effective role is the most
// recent role assignment when one exists, otherwise the base role.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, errBadCredentials)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, errBadCredentials)
			return
		}
		h.log.Error("get user by email", zap.Error(err))
		writeError(w, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, errBadCredentials)
		return
	}

	effectiveRole := user.BaseRole
	if ra, err := h.store.GetActiveRoleAssignment(r.Context(), user.ID); err == nil {
		effectiveRole = ra.Role
	} else if !errors.Is(err, pgx.ErrNoRows) {
		h.log.Error("get role assignment", zap.Error(err))
		writeError(w, err)
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user.ID, user.BaseRole, effectiveRole)
	if err != nil {
		h.log.Error("generate token", zap.Error(err))
		writeError(w, err)
		return
	}
	refresh, err := auth.GenerateRefreshToken(h.jwtSecret, user.ID)
	if err != nil {
		h.log.Error("generate refresh token", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:        token,
		RefreshToken: refresh,
		User: userResponse{
			UserID:        user.ID,
			Name:          user.Name,
			Email:         user.Email,
			Role:          effectiveRole,
			BaseRole:      user.BaseRole,
			EffectiveRole: effectiveRole,
		},
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	BaseRole string `json:"baseRole"`
}

// Register creates a warehouse user. Admin-only; there is no self-signup.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Name == "" {
		writeError(w, apperr.Validation("email and name are required"))
		return
	}
	if len(req.Password) < 8 {
		writeError(w, apperr.Validation("password must be at least 8 characters"))
		return
	}
	switch req.BaseRole {
	case enum.RoleAdmin, enum.RoleSupervisor, enum.RolePicker, enum.RolePacker, enum.RoleQA:
	default:
		writeError(w, apperr.Validation("unknown role"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		writeError(w, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		BaseRole:     req.BaseRole,
	})
	if err != nil {
		writeError(w, apperr.Conflict("email already registered"))
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		UserID:        user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.BaseRole,
		BaseRole:      user.BaseRole,
		EffectiveRole: user.BaseRole,
	})
}

// Me returns the authenticated user's current identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	user, err := h.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, apperr.NotFound("user not found"))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		UserID:        user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          claims.EffectiveRole,
		BaseRole:      user.BaseRole,
		EffectiveRole: claims.EffectiveRole,
	})
}
