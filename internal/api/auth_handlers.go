package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/cheongeum/cheongeum-server/internal/auth"
	"github.com/cheongeum/cheongeum-server/internal/schema"
	"github.com/cheongeum/cheongeum-server/internal/store"
)

// HandleRegister creates a local account and starts a session.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req schema.RegisterRequest
	if err := parseAndValidate(r, &req); err != nil {
		writeHTTPError(w, err)
		return
	}
	if !h.requireStore(w) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.serverError(w, r, err, "hash password failed")
		return
	}

	userID, err := h.deps.Store.CreateUser(r.Context(), store.NewUser{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			WriteError(w, http.StatusConflict, CodeEmailExists, "Email already exists")
			return
		}
		h.serverError(w, r, err, "create user failed")
		return
	}

	if err := h.startSession(w, userID); err != nil {
		h.serverError(w, r, err, "issue session failed")
		return
	}
	WriteJSON(w, http.StatusCreated, schema.UserIDResponse{UserID: userID})
}

// HandleLogin verifies credentials and starts a session.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req schema.LoginRequest
	if err := parseAndValidate(r, &req); err != nil {
		writeHTTPError(w, err)
		return
	}
	if !h.requireStore(w) {
		return
	}

	user, err := h.deps.Store.UserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(w, r, err, "lookup user failed")
		return
	}
	if user == nil || user.PasswordHash == nil || !auth.VerifyPassword(req.Password, *user.PasswordHash) {
		WriteError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		h.serverError(w, r, err, "issue session failed")
		return
	}
	WriteJSON(w, http.StatusOK, schema.UserIDResponse{UserID: user.ID})
}

// HandleMe returns the logged-in user.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	if !h.requireStore(w) {
		return
	}

	user, err := h.deps.Store.UserByID(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Login required")
		return
	}
	if err != nil {
		h.serverError(w, r, err, "lookup user failed")
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// HandleLogout clears the session cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	WriteJSON(w, http.StatusOK, map[string]any{})
}

func (h *Handler) startSession(w http.ResponseWriter, userID int64) error {
	token, exp, err := h.deps.Tokens.Issue(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
