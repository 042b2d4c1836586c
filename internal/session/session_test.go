package session

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/tokenstore"
)

type recordingNav struct{ routes []Route }

func (n *recordingNav) Navigate(r Route) { n.routes = append(n.routes, r) }

func newHarness(t *testing.T, handler http.Handler) (*Service, *tokenstore.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newHarnessAt(t, server.URL+"/api")
}

func newHarnessAt(t *testing.T, base string) (*Service, *tokenstore.Store) {
	t.Helper()
	tokens, err := tokenstore.Open(filepath.Join(t.TempDir(), "credential.toml"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	client, err := gateway.New(base, tokens, gateway.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("gateway.New returned error: %v", err)
	}
	return NewService(client, tokens), tokens
}

func TestCanEnter(t *testing.T) {
	tokens, err := tokenstore.Open(filepath.Join(t.TempDir(), "c.toml"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if d := CanEnter(tokens); d.Allow || d.Redirect != RouteLogin {
		t.Fatalf("CanEnter without credential = %+v, want deny to login", d)
	}
	if err := tokens.Set("abc"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if d := CanEnter(tokens); !d.Allow || d.Redirect != "" {
		t.Fatalf("CanEnter with credential = %+v, want allow", d)
	}
	if d := CanEnter(nil); d.Allow {
		t.Fatalf("CanEnter(nil) allowed entry")
	}
}

func TestGuard_OnlyProtectedRoutesAreChecked(t *testing.T) {
	tokens, err := tokenstore.Open(filepath.Join(t.TempDir(), "c.toml"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	nav := &recordingNav{}
	g := Guard{Tokens: tokens, Nav: nav}

	if !g.Enter(RouteLogin) || !g.Enter(RouteRegister) {
		t.Fatalf("public routes denied")
	}
	for _, r := range []Route{RouteUpload, RouteAnalysis, RouteReport, RouteHistory, RouteProfile} {
		if g.Enter(r) {
			t.Fatalf("Enter(%s) allowed without credential", r)
		}
	}
	if len(nav.routes) != 5 {
		t.Fatalf("navigations = %v, want 5 redirects", nav.routes)
	}
	for _, r := range nav.routes {
		if r != RouteLogin {
			t.Fatalf("redirect = %s, want login", r)
		}
	}
	if _, ok := tokens.Get(); ok {
		t.Fatalf("guard created a credential")
	}
}

// Login, then a protected call carries the stored token.
func TestLoginThenProtectedCallCarriesBearer(t *testing.T) {
	var profileAuth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login sent Authorization header")
		}
		var creds Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Username != "lin" || creds.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"用户名或密码错误"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","user":{"id":"u1","username":"lin","nickname":"Lin"}}`))
	})
	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		profileAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"u1","username":"lin","points":12,"created_at":"2025-01-01T00:00:00Z"}`))
	})
	svc, tokens := newHarness(t, mux)
	ctx := context.Background()

	user, err := svc.Login(ctx, Credentials{Username: " lin ", Password: "pw"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.DisplayName() != "Lin" {
		t.Fatalf("DisplayName = %q, want Lin", user.DisplayName())
	}
	if tok, ok := tokens.Get(); !ok || tok != "tok-1" {
		t.Fatalf("credential = %q,%v, want tok-1", tok, ok)
	}

	profile, err := svc.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if profile.Points != 12 {
		t.Fatalf("Points = %d, want 12", profile.Points)
	}
	if got, _ := profileAuth.Load().(string); got != "Bearer tok-1" {
		t.Fatalf("profile Authorization = %q, want Bearer tok-1", got)
	}
}

// A 401 on a protected call clears the credential and the next guard check
// redirects to login.
func TestUnauthorizedInvalidatesSessionForGuard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	})
	svc, tokens := newHarness(t, mux)
	if err := tokens.Set("expired"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	nav := &recordingNav{}
	g := Guard{Tokens: tokens, Nav: nav}
	if !g.Enter(RouteReport) {
		t.Fatalf("guard denied with credential present")
	}

	_, err := svc.Profile(context.Background())
	if !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("Profile error = %v, want ErrUnauthorized", err)
	}
	if svc.Authenticated() {
		t.Fatalf("still authenticated after 401")
	}
	if g.Enter(RouteReport) {
		t.Fatalf("guard allowed entry after 401")
	}
	if len(nav.routes) != 1 || nav.routes[0] != RouteLogin {
		t.Fatalf("navigations = %v, want [login]", nav.routes)
	}
}

func TestLogin_LocalValidation(t *testing.T) {
	var hits atomic.Int32
	svc, _ := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	_, err := svc.Login(context.Background(), Credentials{Username: "  ", Password: "x"})
	if !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("Login error = %v, want ErrValidation", err)
	}
	_, err = svc.Register(context.Background(), Registration{Username: "a"})
	if !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("Register error = %v, want ErrValidation", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("server hit %d times, want 0", hits.Load())
	}
}

func TestRegister_StoresCredential(t *testing.T) {
	svc, tokens := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/register" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var reg Registration
		_ = json.NewDecoder(r.Body).Decode(&reg)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "new-tok",
			"token_type":   "bearer",
			"user":         map[string]any{"id": "u9", "username": reg.Username, "nickname": reg.Nickname},
		})
	}))
	user, err := svc.Register(context.Background(), Registration{Username: "zhao", Password: "pw", Nickname: "Z"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID != "u9" || user.Nickname != "Z" {
		t.Fatalf("user = %+v", user)
	}
	if tok, _ := tokens.Get(); tok != "new-tok" {
		t.Fatalf("credential = %q, want new-tok", tok)
	}
	if cur, ok := svc.CurrentUser(); !ok || cur.ID != "u9" {
		t.Fatalf("CurrentUser = %+v,%v", cur, ok)
	}
}

func TestLogin_MissingTokenIsServerError(t *testing.T) {
	svc, tokens := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	_, err := svc.Login(context.Background(), Credentials{Username: "a", Password: "b"})
	if !errors.Is(err, gateway.ErrServer) {
		t.Fatalf("Login error = %v, want ErrServer", err)
	}
	if _, ok := tokens.Get(); ok {
		t.Fatalf("credential stored without token")
	}
}

func TestLogout(t *testing.T) {
	svc, tokens := newHarness(t, http.NotFoundHandler())
	if err := tokens.Set("t"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if svc.Authenticated() {
		t.Fatalf("authenticated after logout")
	}
}

func TestRestore(t *testing.T) {
	t.Run("no credential", func(t *testing.T) {
		svc, _ := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request %s", r.URL.Path)
		}))
		ok, err := svc.Restore(context.Background())
		if ok || err != nil {
			t.Fatalf("Restore = %v,%v, want false,nil", ok, err)
		}
	})

	t.Run("valid credential", func(t *testing.T) {
		svc, tokens := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"u1","username":"lin"}`))
		}))
		_ = tokens.Set("t")
		ok, err := svc.Restore(context.Background())
		if !ok || err != nil {
			t.Fatalf("Restore = %v,%v, want true,nil", ok, err)
		}
		if u, _ := svc.CurrentUser(); u.Username != "lin" {
			t.Fatalf("CurrentUser = %+v", u)
		}
	})

	t.Run("expired credential", func(t *testing.T) {
		svc, tokens := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		_ = tokens.Set("t")
		ok, err := svc.Restore(context.Background())
		if ok || err != nil {
			t.Fatalf("Restore = %v,%v, want false,nil", ok, err)
		}
		if _, present := tokens.Get(); present {
			t.Fatalf("credential survived 401")
		}
	})

	t.Run("offline keeps credential", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("Listen: %v", err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		svc, tokens := newHarnessAt(t, "http://"+addr+"/api")
		_ = tokens.Set("t")
		ok, err := svc.Restore(context.Background())
		if !ok || !errors.Is(err, gateway.ErrNetwork) {
			t.Fatalf("Restore = %v,%v, want true,ErrNetwork", ok, err)
		}
		if _, present := tokens.Get(); !present {
			t.Fatalf("credential cleared by network failure")
		}
	})
}
