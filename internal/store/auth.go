package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthSource is the part of the backend that issues identities.
type AuthSource interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.User, error)
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
	AdminLogin(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
}

// Identity is what other stores need to know about the session.
type Identity interface {
	Token() string
	User() *domain.User
}

// Auth holds the current token and user. A user without a token is never trusted.
type Auth struct {
	mu        sync.RWMutex
	token     string
	user      *domain.User
	remote    AuthSource
	persist   *Persister
	onSignOut []func()
	now       func() time.Time
	log       *zap.Logger
}

func NewAuth(remote AuthSource, persist *Persister, log *zap.Logger) *Auth {
	a := &Auth{
		remote:  remote,
		persist: persist,
		now:     time.Now,
		log:     log.Named("auth"),
	}
	persist.register(a)
	return a
}

// Hydrate restores the persisted session. A user without a token, a token without a
// user, or a JWT whose exp is in the past all leave the session anonymous.
func (a *Auth) Hydrate(token string, user *domain.User) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token, a.user = "", nil
	switch {
	case token == "" && user != nil:
		a.log.Info("discarding cached user without token", zap.String("user_id", user.ID))
	case token != "" && user == nil:
		a.log.Info("discarding token without user")
	case token != "" && a.expired(token):
		a.log.Info("discarding expired token", zap.String("user_id", user.ID))
	case token != "":
		u := *user
		a.token, a.user = token, &u
	}
}

// expired reports whether token is a JWT past its exp claim. Opaque tokens never expire here.
func (a *Auth) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(a.now())
}

// Register creates an account. It does not sign in.
func (a *Auth) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	if strings.TrimSpace(reg.Username) == "" || strings.TrimSpace(reg.Email) == "" ||
		reg.Password == "" || reg.ConfirmPassword == "" {
		return nil, domain.Validationf("please fill in all required fields")
	}
	if reg.Password != reg.ConfirmPassword {
		return nil, domain.Validationf("passwords do not match")
	}
	return a.remote.Register(ctx, reg)
}

func (a *Auth) Login(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	return a.signIn(ctx, creds, a.remote.Login, false)
}

// AdminLogin signs in through the admin endpoint and requires the admin role.
func (a *Auth) AdminLogin(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	return a.signIn(ctx, creds, a.remote.AdminLogin, true)
}

type loginFunc func(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)

func (a *Auth) signIn(ctx context.Context, creds domain.Credentials, login loginFunc, admin bool) (*domain.User, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return nil, domain.Validationf("email and password are required")
	}

	res, err := login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	if admin && res.User.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: account %s is not an admin", domain.ErrUnauthenticated, res.User.ID)
	}

	u := *res.User
	a.mu.Lock()
	var prevID string
	if a.user != nil {
		prevID = a.user.ID
	}
	a.token, a.user = res.Token, &u
	hooks := append([]func(){}, a.onSignOut...)
	a.mu.Unlock()
	a.log.Info("signed in", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))

	// per-identity state of whoever was here before must not carry over
	if prevID != u.ID {
		for _, fn := range hooks {
			fn()
		}
	}

	if err := a.persist.flushToken(ctx, res.Token); err != nil {
		return a.User(), err
	}
	return a.User(), a.persist.Flush(ctx)
}

// OnSignOut registers fn to run when the session is cleared or switches to another
// user, before the change is persisted.
func (a *Auth) OnSignOut(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSignOut = append(a.onSignOut, fn)
}

// Logout clears the session unconditionally; calling it while anonymous is fine.
func (a *Auth) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.token, a.user = "", nil
	hooks := append([]func(){}, a.onSignOut...)
	a.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	if err := a.persist.flushToken(ctx, ""); err != nil {
		return err
	}
	return a.persist.Flush(ctx)
}

func (a *Auth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// User returns a copy of the signed-in user, or nil when anonymous.
func (a *Auth) User() *domain.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *Auth) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token != "" && a.user != nil
}

func (a *Auth) IsAdmin() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token != "" && a.user != nil && a.user.Role == domain.RoleAdmin
}

func (a *Auth) contribute(snap *domain.Snapshot) {
	snap.User = a.User()
}
