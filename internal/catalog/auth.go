package catalog

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/houhousishu/houhou/internal/failover"
	"github.com/houhousishu/houhou/internal/remote"
	"github.com/houhousishu/houhou/internal/storage"
)

// LocalAuthenticator checks credentials when the remote backend is
// unreachable. It is a demonstration path, not a real identity provider.
type LocalAuthenticator interface {
	Verify(email, password string) (User, error)
}

// DemoAuthenticator accepts exactly one configured credential pair.
type DemoAuthenticator struct {
	Email    string
	Password string
	Name     string
}

// Verify returns the demo user when email and password match, otherwise
// ErrInvalidCredentials.
func (d DemoAuthenticator) Verify(email, password string) (User, error) {
	if d.Email == "" || d.Password == "" {
		return User{}, ErrInvalidCredentials
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(d.Email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(d.Password)) == 1
	if !emailOK || !passOK {
		return User{}, ErrInvalidCredentials
	}
	name := d.Name
	if name == "" {
		name = "厚厚管理員 (本地模式)"
	}
	return User{
		Email:  email,
		Name:   name,
		Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(email),
	}, nil
}

// NoLocalAuth rejects every credential; use it to disable offline login.
type NoLocalAuth struct{}

func (NoLocalAuth) Verify(string, string) (User, error) {
	return User{}, ErrInvalidCredentials
}

// Auth manages the single persisted session.
type Auth struct {
	store  LocalStore
	remote RemoteCaller
	router *failover.Router
	local  LocalAuthenticator
	logger *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	User        User   `json:"user"`
}

// Login authenticates against the active backend and persists the session
// locally so later lookups never need the network. A rejected login from
// the remote is returned as is and does not fall back.
func (a *Auth) Login(ctx context.Context, email, password string) (Session, error) {
	return failover.Do(ctx, a.router,
		func(ctx context.Context) remote.Outcome {
			return a.remote.Call(ctx, http.MethodPost, "/login", loginRequest{Email: email, Password: password})
		},
		func(out remote.Outcome) (Session, error) {
			var resp loginResponse
			if err := out.Decode(&resp); err != nil {
				return Session{}, fmt.Errorf("reading login response: %w", err)
			}
			token := resp.AccessToken
			if token == "" {
				token = resp.Token
			}
			return a.persist(ctx, newSession(resp.User, token))
		},
		func(ctx context.Context) (Session, error) {
			user, err := a.local.Verify(email, password)
			if err != nil {
				if errors.Is(err, ErrInvalidCredentials) {
					return Session{}, invalidCredentials()
				}
				return Session{}, err
			}
			a.logger.Info("signed in with local credentials", "email", email)
			return a.persist(ctx, newSession(user, ""))
		},
	)
}

func (a *Auth) persist(ctx context.Context, s Session) (Session, error) {
	if err := a.store.Put(ctx, storage.Auth, SessionID, s); err != nil {
		return Session{}, fmt.Errorf("saving session: %w", err)
	}
	return s, nil
}

// Session returns the persisted session, or nil when nobody is signed in.
func (a *Auth) Session(ctx context.Context) (*Session, error) {
	raw, err := a.store.Get(ctx, storage.Auth, SessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &s, nil
}

// Logout removes the session and resets routing to try the remote again,
// whichever backend issued the session.
func (a *Auth) Logout(ctx context.Context) error {
	defer a.router.Reset()
	if err := a.store.Remove(ctx, storage.Auth, SessionID); err != nil {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

// SessionTokens exposes the stored session token to the remote client.
type SessionTokens struct {
	Store LocalStore
}

func (t SessionTokens) Token(ctx context.Context) (string, bool, error) {
	raw, err := t.Store.Get(ctx, storage.Auth, SessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, fmt.Errorf("decoding session: %w", err)
	}
	return s.Token, s.Token != "", nil
}
