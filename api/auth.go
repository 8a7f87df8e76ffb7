package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/jobtrack/internal/tracker"
	"github.com/garnizeh/jobtrack/pkg/models"
)

type AuthHandler struct {
	svc           *tracker.Service
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(svc *tracker.Service, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type signupRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	u, err := h.svc.Register(r.Context(), req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.respondWithToken(w, u)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	u, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.respondWithToken(w, u)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, u *models.User) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  u.ID,
		"username": u.Username,
		"exp":      time.Now().Add(h.tokenDuration).Unix(),
	})
	tokenStr, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, authResponse{Token: tokenStr}, http.StatusOK)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"message":"signed out"}`)
}
