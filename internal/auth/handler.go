package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tharuncoder676/CWS/internal/models"
	"github.com/tharuncoder676/CWS/internal/store"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// DefaultEmailPattern accepts institutional addresses of the form
// 123456789.simats@saveetha.com.
const DefaultEmailPattern = `(?i)^\d{9}\.simats@saveetha\.com$`

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.ProfileRequest) (*models.User, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users    UserStore
	sessions Sessions
	email    *regexp.Regexp
	log      *zap.Logger
	now      func() time.Time
}

// NewHandler builds the auth handlers. A nil emailPattern accepts any address.
func NewHandler(users UserStore, sessions Sessions, emailPattern *regexp.Regexp, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{users: users, sessions: sessions, email: emailPattern, log: log, now: time.Now}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) profile(u *models.User) models.Profile {
	year := u.Year
	if year == "" {
		year = models.AcademicYear(u.StudentID, h.now())
	}
	return models.Profile{User: u, ProfileComplete: u.ProfileComplete(), AcademicYear: year}
}

// Register creates a new user. The student id is taken from the email.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if h.email != nil && !h.email.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, "use your institutional email, e.g. 123456789.simats@saveetha.com")
		return
	}
	if len(req.Password) < MinPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), &models.User{
		Username:   strings.TrimSpace(req.Username),
		Email:      req.Email,
		Password:   string(hashed),
		StudentID:  models.StudentIDFromEmail(req.Email),
		Year:       req.Year,
		Department: req.Department,
	})
	if err != nil {
		h.log.Info("register rejected", zap.String("email", req.Email), zap.Error(err))
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}
	h.log.Info("user registered", zap.String("user_id", user.ID))
	writeJSON(w, http.StatusCreated, h.profile(user))
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil || user == nil {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.log.Error("login lookup", zap.Error(err))
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.log.Error("create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session creation failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	})
	writeJSON(w, http.StatusOK, h.profile(user))
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.log.Warn("delete session", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the currently authenticated user and profile status.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, h.profile(user))
}

// UpdateProfile saves the name, year and department of the current user.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req models.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	switch {
	case req.Username == "":
		writeError(w, http.StatusBadRequest, "please enter your full name")
		return
	case req.Department == "":
		writeError(w, http.StatusBadRequest, "please select your department")
		return
	case req.Year == "":
		writeError(w, http.StatusBadRequest, "please select your year of study")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("update profile", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save profile")
		return
	}
	writeJSON(w, http.StatusOK, h.profile(user))
}
