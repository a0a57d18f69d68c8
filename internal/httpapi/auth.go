package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"garden-monitor/internal/model"
	"garden-monitor/internal/storage"
)

const bcryptCost = 10

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if msg := validateRegistration(req); msg != "" {
		authFail(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		log.Printf("api: password hash error: %v", err)
		authFail(w, http.StatusInternalServerError, "could not register")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := s.store.CreateUser(ctx, model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
	})
	if errors.Is(err, storage.ErrDuplicateEmail) {
		authFail(w, http.StatusBadRequest, "email already registered")
		return
	}
	if err != nil {
		log.Printf("api: create user failed: %v", err)
		authFail(w, http.StatusInternalServerError, "could not register")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, storage.ErrNotFound) {
		authFail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		log.Printf("api: user lookup failed: %v", err)
		authFail(w, http.StatusInternalServerError, "could not log in")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		authFail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// validateRegistration returns the first policy violation, or "".
// Password policy: at least 8 characters, one uppercase letter, one digit.
func validateRegistration(req registerRequest) string {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "invalid email"
	}
	if utf8.RuneCountInString(req.Password) < 8 {
		return "password must be at least 8 characters"
	}
	var hasUpper, hasDigit bool
	for _, r := range req.Password {
		hasUpper = hasUpper || unicode.IsUpper(r)
		hasDigit = hasDigit || unicode.IsDigit(r)
	}
	if !hasUpper {
		return "password needs at least one uppercase letter"
	}
	if !hasDigit {
		return "password needs at least one digit"
	}
	name := strings.TrimSpace(req.FullName)
	if utf8.RuneCountInString(name) < 2 || utf8.RuneCountInString(name) > 50 {
		return "full name must be between 2 and 50 characters"
	}
	return ""
}

func authFail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}
