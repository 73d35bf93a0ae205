package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ctxKey struct{}

// Claims содержимое токена, выдаваемого сервером
type Claims struct {
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// CreateUser добавляет пользователя с bcrypt-хешем пароля
func (s *Server) CreateUser(username, fullName, password, role string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	u := &User{Username: username, FullName: fullName, PasswordHash: string(hash), Role: role}
	if err := s.db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// IssueToken подписывает HS256-токен для пользователя
func (s *Server) IssueToken(u User) (string, error) {
	now := s.now()
	claims := Claims{
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) loginHandler(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		var u User
		err := s.db.Where("username = ? AND role = ?", req.Username, role).First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusUnauthorized, "Login yoki parol noto'g'ri")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "Login yoki parol noto'g'ri")
			return
		}

		token, err := s.IssueToken(u)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "token error")
			return
		}
		if role == RoleStudent {
			writeJSON(w, http.StatusOK, map[string]string{"student_access_token": token})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
			func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return s.secret, nil
			},
			jwt.WithTimeFunc(s.now),
		)
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) *Claims {
	c, _ := r.Context().Value(ctxKey{}).(*Claims)
	return c
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := claimsFrom(r)
			if c == nil || c.Role != role {
				writeError(w, http.StatusForbidden, "Forbidden resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
