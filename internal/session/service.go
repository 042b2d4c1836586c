package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/logging"
)

// TokenStore is the credential slot the service writes on login and logout.
type TokenStore interface {
	Get() (string, bool)
	Set(string) error
	Clear() error
}

// User is the account as reported by the backend.
type User struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email,omitempty"`
	Nickname          string `json:"nickname,omitempty"`
	AvatarURL         string `json:"avatar_url,omitempty"`
	Points            int64  `json:"points,omitempty"`
	TotalPointsEarned int64  `json:"total_points_earned,omitempty"`
	TotalPointsSpent  int64  `json:"total_points_spent,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// DisplayName prefers the nickname.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Nickname) != "" {
		return u.Nickname
	}
	return u.Username
}

// Credentials are what login sends.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration extends Credentials with optional profile fields.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Service runs the account operations. It is the only writer of the
// credential besides the gateway's 401 handling.
type Service struct {
	api    gateway.Doer
	tokens TokenStore

	mu   sync.RWMutex
	user *User
}

// NewService wires the service to the gateway and the credential store.
func NewService(api gateway.Doer, tokens TokenStore) *Service {
	return &Service{api: api, tokens: tokens}
}

// Authenticated reports whether a credential is present.
func (s *Service) Authenticated() bool {
	return CanEnter(s.tokens).Allow
}

// CurrentUser returns the last known user, if any.
func (s *Service) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Register creates an account and signs in with the returned credential.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Nickname = strings.TrimSpace(reg.Nickname)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := checkCredentials(reg.Username, reg.Password); err != nil {
		return User{}, err
	}
	var resp authResponse
	if err := s.api.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/register", JSON: reg}, &resp); err != nil {
		return User{}, fmt.Errorf("register: %w", err)
	}
	return s.accept(ctx, resp)
}

// Login exchanges credentials for a bearer token and stores it.
func (s *Service) Login(ctx context.Context, creds Credentials) (User, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := checkCredentials(creds.Username, creds.Password); err != nil {
		return User{}, err
	}
	var resp authResponse
	if err := s.api.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/login", JSON: creds}, &resp); err != nil {
		return User{}, fmt.Errorf("login: %w", err)
	}
	return s.accept(ctx, resp)
}

// Logout clears the credential and the cached user.
func (s *Service) Logout(ctx context.Context) error {
	s.setUser(nil)
	if err := s.tokens.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	logging.FromContext(ctx).Info("logged out")
	return nil
}

// Profile fetches the signed-in user's profile.
func (s *Service) Profile(ctx context.Context) (User, error) {
	var user User
	if err := s.api.Do(ctx, gateway.Request{Path: "/auth/profile"}, &user); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			s.setUser(nil)
		}
		return User{}, fmt.Errorf("profile: %w", err)
	}
	s.setUser(&user)
	return user, nil
}

// Restore revalidates a stored credential at process start. A 401 has
// already cleared the credential in the gateway; any other failure keeps it
// so an offline start does not sign the user out. The returned bool reports
// whether a session is active afterwards.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	if !s.Authenticated() {
		return false, nil
	}
	if _, err := s.Profile(ctx); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return false, nil
		}
		logging.FromContext(ctx).Warn("profile restore failed, keeping credential", "error", err)
		return s.Authenticated(), err
	}
	return true, nil
}

func (s *Service) accept(ctx context.Context, resp authResponse) (User, error) {
	token := strings.TrimSpace(resp.AccessToken)
	if token == "" {
		return User{}, &gateway.Error{Kind: gateway.KindServer, Detail: "response carried no access token"}
	}
	if err := s.tokens.Set(token); err != nil {
		return User{}, fmt.Errorf("store credential: %w", err)
	}
	user := resp.User
	s.setUser(&user)
	logging.FromContext(ctx).Info("signed in", "user", user.Username)
	return user, nil
}

func (s *Service) setUser(u *User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func checkCredentials(username, password string) error {
	if username == "" {
		return gateway.Validation("username is required")
	}
	if password == "" {
		return gateway.Validation("password is required")
	}
	return nil
}
