package api

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ctxKey string

const (
	CtxUserID    ctxKey = "user_id"
	CtxUsername  ctxKey = "username"
	CtxRequestID ctxKey = "request_id"
)

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// UserID returns the authenticated user id placed in ctx by the JWT middleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(CtxUserID).(int64)
	return id, ok && id > 0
}

// RequestID returns the id assigned by LoggingMiddleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(CtxRequestID).(string)
	return id
}

// LoggingMiddleware tags each request with an id, echoed in X-Request-ID,
// and logs it.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		r = r.WithContext(context.WithValue(r.Context(), CtxRequestID, reqID))

		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.String("request_id", reqID),
		)
		next.ServeHTTP(w, r)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err), slog.String("request_id", RequestID(r.Context())))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func JWTAuthMiddlewareWithSecret(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			var tokenString string
			if _, err := fmt.Sscanf(authHeader, "Bearer %s", &tokenString); err != nil {
				logger.Debug("failed to parse Authorization header", slog.Any("err", err))
			}

			if tokenString == "" {
				http.Error(w, "Invalid Authorization header", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}

				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			// every protected call acts on behalf of one user
			var userID int64
			switch id := claims["user_id"].(type) {
			case float64:
				userID = int64(id)
			case int64:
				userID = id
			case int:
				userID = int64(id)
			}
			if userID <= 0 {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CtxUserID, userID)
			if name, ok := claims["username"].(string); ok {
				ctx = context.WithValue(ctx, CtxUsername, name)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
