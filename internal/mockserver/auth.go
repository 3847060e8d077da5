package mockserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const userKey ctxKey = iota

type claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(u domain.User) (string, error) {
	now := s.now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}).SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Server) authRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing token")
			return
		}
		c, err := s.parseToken(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		s.mu.Lock()
		var user *domain.User
		for _, a := range s.accounts {
			if a.user.ID == c.Subject {
				u := a.user
				user = &u
				break
			}
		}
		s.mu.Unlock()
		if user == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := userFromContext(r.Context()); u == nil || u.Role != domain.RoleAdmin {
			respondError(w, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

// POST /api/auth/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(5 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "expected multipart form")
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")
	if username == "" || email == "" || password == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "Username, email and password are required")
		return
	}

	if file, _, err := r.FormFile("avatar"); err == nil {
		_, _ = io.Copy(io.Discard, file)
		file.Close()
	} else if !errors.Is(err, http.ErrMissingFile) {
		respondError(w, http.StatusBadRequest, "invalid_avatar", "could not read avatar")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		respondError(w, http.StatusConflict, "email_taken", "Email already registered")
		return
	}
	u := domain.User{ID: s.nextID("u-"), Username: username, Email: email, Role: domain.RoleCustomer}
	s.addAccount(u, password)
	respondJSON(w, http.StatusCreated, u)
}

// POST /api/auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.signIn(w, r, false)
}

// POST /api/auth/admin-login
func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	s.signIn(w, r, true)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request, admin bool) {
	var creds domain.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	s.mu.Lock()
	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(creds.Email))]
	s.mu.Unlock()
	if !ok || a.password != creds.Password {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "Invalid credentials")
		return
	}
	if admin && a.user.Role != domain.RoleAdmin {
		respondError(w, http.StatusForbidden, "forbidden", "Admin access required")
		return
	}

	token, err := s.issueToken(a.user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not issue token")
		return
	}
	u := a.user
	respondJSON(w, http.StatusOK, domain.AuthResult{Token: token, User: &u})
}
