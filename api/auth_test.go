package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/jobtrack/api"
	"github.com/garnizeh/jobtrack/internal/tracker"
	"github.com/garnizeh/jobtrack/pkg/models"
	"github.com/garnizeh/jobtrack/pkg/repository/mock"
)

func TestAuthHandlers(t *testing.T) {
	secret := "testsecret"
	tokenDur := 1 * time.Hour

	storeUser := func(m *mock.Mocks, name, pw string) {
		hash, _ := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		m.Users.Stored = append(m.Users.Stored, models.User{ID: 2, Username: name, PasswordHash: string(hash)})
	}

	tests := []struct {
		name       string
		path       string
		body       any
		prepare    func(m *mock.Mocks)
		wantStatus int
		checkBody  func(t *testing.T, body []byte)
	}{
		{
			name:       "Signup_InvalidRequest",
			path:       "/signup",
			body:       "not a json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_MissingFields_Username",
			path:       "/signup",
			body:       map[string]string{"password": "s3cret", "confirm_password": "s3cret"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_MissingFields_Password",
			path:       "/signup",
			body:       map[string]string{"username": "alice"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_PasswordMismatch",
			path:       "/signup",
			body:       map[string]string{"username": "alice", "password": "s3cret", "confirm_password": "other"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_Success",
			path:       "/signup",
			body:       map[string]string{"username": "alice", "password": "s3cret", "confirm_password": "s3cret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Signup_DuplicateUsername",
			path:       "/signup",
			body:       map[string]string{"username": "dup", "password": "pw", "confirm_password": "pw"},
			prepare:    func(m *mock.Mocks) { storeUser(m, "dup", "pw") },
			wantStatus: http.StatusConflict,
		},
		{
			name:       "Signup_StorageError",
			path:       "/signup",
			body:       map[string]string{"username": "bob", "password": "pw", "confirm_password": "pw"},
			prepare:    func(m *mock.Mocks) { m.Users.CreateErr = fmt.Errorf("disk full") },
			wantStatus: http.StatusInternalServerError,
			checkBody: func(t *testing.T, b []byte) {
				if bytes.Contains(b, []byte("disk full")) {
					t.Fatalf("internal error leaked: %s", string(b))
				}
			},
		},
		{
			name:       "Signin_InvalidRequest",
			path:       "/signin",
			body:       "not a json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signin_MissingFields_Password",
			path:       "/signin",
			body:       map[string]string{"username": "missing"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signin_MissingUser",
			path:       "/signin",
			body:       map[string]string{"username": "missing", "password": "nop"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Signin_Success",
			path:       "/signin",
			body:       map[string]string{"username": "bob", "password": "hunter2"},
			prepare:    func(m *mock.Mocks) { storeUser(m, "bob", "hunter2") },
			wantStatus: http.StatusOK,
		},
		{
			name:       "Signin_WrongPassword",
			path:       "/signin",
			body:       map[string]string{"username": "carol", "password": "wrongpw"},
			prepare:    func(m *mock.Mocks) { storeUser(m, "carol", "rightpw") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Signout_OK",
			path:       "/signout",
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, b []byte) {
				if !bytes.Contains(b, []byte("signed out")) {
					t.Fatalf("unexpected body: %s", string(b))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := mock.NewMocks()
			if tt.prepare != nil {
				tt.prepare(mocks)
			}
			svc := tracker.New(mocks.Users, mocks.Apps, nil, tracker.DefaultSettings(), nil)
			handler := api.NewAuthHandler(svc, secret, tokenDur)

			var bodyReader io.Reader
			if tt.body != nil {
				b, _ := json.Marshal(tt.body)
				bodyReader = bytes.NewReader(b)
			}
			req := httptest.NewRequest(http.MethodPost, tt.path, bodyReader)
			w := httptest.NewRecorder()

			switch tt.path {
			case "/signup":
				handler.Signup(w, req)
			case "/signin":
				handler.Signin(w, req)
			case "/signout":
				handler.Signout(w, req)
			default:
				t.Fatalf("unknown path %s", tt.path)
			}

			res := w.Result()
			defer res.Body.Close()
			data, _ := io.ReadAll(res.Body)
			if res.StatusCode != tt.wantStatus {
				t.Fatalf("%s: expected status %d got %d body=%s", tt.name, tt.wantStatus, res.StatusCode, string(data))
			}
			if tt.checkBody != nil {
				tt.checkBody(t, data)
			}
			// If token present, validate claims for user_id and exp
			if tt.wantStatus == http.StatusOK && (tt.path == "/signup" || tt.path == "/signin") {
				var ar struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(data, &ar); err != nil || ar.Token == "" {
					t.Fatalf("expected token in body, got %s", string(data))
				}
				tok, err := jwt.Parse(ar.Token, func(token *jwt.Token) (any, error) { return []byte(secret), nil })
				if err != nil {
					t.Fatalf("parse token: %v", err)
				}
				claims, ok := tok.Claims.(jwt.MapClaims)
				if !ok {
					t.Fatalf("unexpected claims type %T", tok.Claims)
				}
				if id, ok := claims["user_id"].(float64); !ok || id <= 0 {
					t.Fatalf("missing user_id claim: %v", claims)
				}
				if _, ok := claims["username"].(string); !ok {
					t.Fatalf("missing username claim")
				}
				if expF, ok := claims["exp"].(float64); !ok || int64(expF) < time.Now().Unix() {
					t.Fatalf("invalid exp claim")
				}
			}
		})
	}
}
