package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/crypto/bcrypt"

	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/store"
	"github.com/vovakirdan/hashchat-engine/internal/store/memory"
)

type sessionFixture struct {
	st      *memory.Store
	clock   *clock.Mock
	opts    Options
	applied []core.Theme
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	dir, err := NewDirectory(bcrypt.MinCost, DefaultCredentials...)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	f := &sessionFixture{st: memory.New(), clock: mock}
	f.opts = Options{
		Directory:  dir,
		Tokens:     TokenConfig{Secret: []byte("test-secret"), Issuer: "hashchat", TTL: time.Hour},
		BcryptCost: bcrypt.MinCost,
		Clock:      mock,
		ApplyTheme: func(th core.Theme) { f.applied = append(f.applied, th) },
	}
	return f
}

func (f *sessionFixture) open() *SessionStore {
	return NewSessionStore(context.Background(), f.st, f.opts, nil)
}

func TestLoginPersistsSessionAndRehydrates(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	s := f.open()

	if s.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %v", s.State())
	}

	id, err := s.Login(ctx, "abhimanyu@hashchat.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if id.ID != "1" || id.DisplayName != "Abhimanyu" || id.AvatarRef != "/avatars/1.png" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if s.Token() == "" {
		t.Fatalf("expected a token")
	}

	reopened := f.open()
	got := reopened.Identity()
	if got == nil || *got != *id {
		t.Fatalf("expected rehydrated identity %+v, got %+v", id, got)
	}
	if reopened.Token() != s.Token() {
		t.Fatalf("expected same token after rehydration")
	}
	if _, err := reopened.Authorize(s.Token()); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
}

func TestLoginTokensAreDistinct(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	s := f.open()

	if _, err := s.Login(ctx, "demo@hashchat.com", "demo123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	first := s.Token()
	if _, err := s.Login(ctx, "demo@hashchat.com", "demo123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.Token() == first {
		t.Fatalf("expected a fresh token per login")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "harsh@hashchat.com", password: "nope"},
		{name: "unknown email", email: "nobody@hashchat.com", password: "password123"},
		{name: "case differs", email: "Harsh@hashchat.com", password: "password123"},
		{name: "empty", email: "", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			s := f.open()
			_, err := s.Login(context.Background(), tt.email, tt.password)
			if !errors.Is(err, core.ErrInvalidCredentials) {
				t.Fatalf("expected invalid credentials, got %v", err)
			}
			if s.Identity() != nil || s.Token() != "" {
				t.Fatalf("failed login must not change state")
			}
			if _, err := f.st.Get(context.Background(), store.KeySessionUser); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("failed login must not persist, got %v", err)
			}
		})
	}
}

func TestLoginAcceptsEveryDirectoryAccount(t *testing.T) {
	tests := []struct {
		email    string
		password string
		id       string
		name     string
	}{
		{email: "abhimanyu@hashchat.com", password: "password123", id: "1", name: "Abhimanyu"},
		{email: "harsh@hashchat.com", password: "password123", id: "2", name: "Harsh"},
		{email: "demo@hashchat.com", password: "demo123", id: "3", name: "Demo User"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			s := newSessionFixture(t).open()
			id, err := s.Login(context.Background(), tt.email, tt.password)
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if id.ID != tt.id || id.DisplayName != tt.name || id.Email != tt.email {
				t.Fatalf("unexpected identity: %+v", id)
			}
			if s.State() != StateAuthenticated {
				t.Fatalf("expected authenticated, got %v", s.State())
			}
		})
	}
}

func TestFailedLoginKeepsExistingSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	s := f.open()

	before, err := s.Login(ctx, "demo@hashchat.com", "demo123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	token := s.Token()
	storedUser, err := f.st.Get(ctx, store.KeySessionUser)
	if err != nil {
		t.Fatalf("Get user: %v", err)
	}
	storedToken, err := f.st.Get(ctx, store.KeySessionToken)
	if err != nil {
		t.Fatalf("Get token: %v", err)
	}

	for _, password := range []string{"wrong", ""} {
		if _, err := s.Login(ctx, "harsh@hashchat.com", password); !errors.Is(err, core.ErrInvalidCredentials) {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
	}

	if s.Identity() != before || s.Token() != token {
		t.Fatalf("failed login replaced the session: %+v", s.Identity())
	}
	if _, err := s.Authorize(token); err != nil {
		t.Fatalf("Authorize after failed login: %v", err)
	}
	if got, _ := f.st.Get(ctx, store.KeySessionUser); string(got) != string(storedUser) {
		t.Fatalf("stored user changed: %s", got)
	}
	if got, _ := f.st.Get(ctx, store.KeySessionToken); string(got) != string(storedToken) {
		t.Fatalf("stored token changed: %s", got)
	}
}

func TestSignupAndVerify(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	s := f.open()

	if err := s.Signup(ctx, "Neha", "neha@example.com", "secret"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if s.State() != StatePendingVerification {
		t.Fatalf("expected pending verification, got %v", s.State())
	}
	pending, ok := s.Pending()
	if !ok || pending.PasswordHash == "secret" || ComparePassword(pending.PasswordHash, "secret") != nil {
		t.Fatalf("pending registration should hold a bcrypt hash: %+v", pending)
	}

	if _, err := s.VerifyOTP(ctx, "12"); !errors.Is(err, core.ErrOTPFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if _, err := s.VerifyOTP(ctx, "0000"); !errors.Is(err, core.ErrInvalidOTP) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if s.State() != StatePendingVerification {
		t.Fatalf("pending registration must survive a bad code")
	}
	if err := s.ResendOTP(); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}

	id, err := s.VerifyOTP(ctx, DefaultOTPCode)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if !strings.HasPrefix(id.ID, "user_") || id.DisplayName != "Neha" || id.Email != "neha@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if _, ok := s.Pending(); ok {
		t.Fatalf("pending registration should be cleared")
	}
	if s.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %v", s.State())
	}
}

func TestSignupValidation(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	s := f.open()

	if err := s.Signup(ctx, "Dup", "harsh@hashchat.com", "x"); !errors.Is(err, core.ErrEmailRegistered) {
		t.Fatalf("expected email registered, got %v", err)
	}
	if err := s.Signup(ctx, "  ", "a@b.c", "x"); !core.IsKind(err, core.KindValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if s.State() != StateAnonymous {
		t.Fatalf("rejected signup must not leave a pending registration")
	}
}

func TestVerifyWithoutPending(t *testing.T) {
	f := newSessionFixture(t)
	s := f.open()
	if _, err := s.VerifyOTP(context.Background(), "1234"); !errors.Is(err, core.ErrNoPending) {
		t.Fatalf("expected no pending, got %v", err)
	}
	if err := s.ResendOTP(); !errors.Is(err, core.ErrNoPending) {
		t.Fatalf("expected no pending on resend, got %v", err)
	}
}

func TestAbandonSignup(t *testing.T) {
	f := newSessionFixture(t)
	s := f.open()
	if err := s.Signup(context.Background(), "Neha", "neha@example.com", "secret"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	s.AbandonSignup()
	if s.State() != StateAnonymous {
		t.Fatalf("expected anonymous after abandon, got %v", s.State())
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	s := f.open()

	name := "Nobody"
	got, err := s.UpdateProfile(ctx, core.ProfileUpdate{DisplayName: &name})
	if err != nil || got != nil {
		t.Fatalf("update without session should be a no-op, got %+v %v", got, err)
	}

	before, err := s.Login(ctx, "abhimanyu@hashchat.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	bio := "  hello  "
	name = "Abhi"
	after, err := s.UpdateProfile(ctx, core.ProfileUpdate{DisplayName: &name, Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if after == before {
		t.Fatalf("update must install a new identity value")
	}
	if before.DisplayName != "Abhimanyu" {
		t.Fatalf("previous identity was mutated: %+v", before)
	}
	if after.DisplayName != "Abhi" || after.Bio != "hello" || after.AvatarRef != before.AvatarRef {
		t.Fatalf("unexpected merged identity: %+v", after)
	}

	empty := " "
	if _, err := s.UpdateProfile(ctx, core.ProfileUpdate{DisplayName: &empty}); !core.IsKind(err, core.KindValidation) {
		t.Fatalf("expected validation failure for empty name, got %v", err)
	}

	reopened := f.open()
	if id := reopened.Identity(); id == nil || id.DisplayName != "Abhi" {
		t.Fatalf("expected persisted profile, got %+v", id)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	s := f.open()

	if _, err := s.Login(ctx, "harsh@hashchat.com", "password123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	token := s.Token()
	for i := 0; i < 2; i++ {
		if err := s.Logout(ctx); err != nil {
			t.Fatalf("Logout #%d: %v", i+1, err)
		}
	}
	if s.Identity() != nil || s.Token() != "" {
		t.Fatalf("expected cleared session")
	}
	if _, err := s.Authorize(token); !core.IsKind(err, core.KindAuth) {
		t.Fatalf("old token must be rejected, got %v", err)
	}
	if reopened := f.open(); reopened.Identity() != nil {
		t.Fatalf("logout must clear stored session")
	}
}

func TestThemeToggleSurvivesLogout(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	s := f.open()

	if s.Theme() != core.ThemeLight {
		t.Fatalf("expected light default, got %v", s.Theme())
	}
	if _, err := s.Login(ctx, "demo@hashchat.com", "demo123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	th, err := s.ToggleTheme(ctx)
	if err != nil || th != core.ThemeDark {
		t.Fatalf("expected dark, got %v %v", th, err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	reopened := f.open()
	if reopened.Theme() != core.ThemeDark {
		t.Fatalf("expected dark after reopen, got %v", reopened.Theme())
	}
	want := []core.Theme{core.ThemeLight, core.ThemeDark, core.ThemeDark}
	if len(f.applied) != len(want) {
		t.Fatalf("expected applied themes %v, got %v", want, f.applied)
	}
	for i := range want {
		if f.applied[i] != want[i] {
			t.Fatalf("expected applied themes %v, got %v", want, f.applied)
		}
	}
}

func TestRehydrateRejectsStaleSession(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *sessionFixture)
	}{
		{
			name: "expired token",
			setup: func(t *testing.T, f *sessionFixture) {
				if _, err := f.open().Login(context.Background(), "demo@hashchat.com", "demo123"); err != nil {
					t.Fatalf("Login: %v", err)
				}
				f.clock.Add(2 * time.Hour)
			},
		},
		{
			name: "token for another user",
			setup: func(t *testing.T, f *sessionFixture) {
				ctx := context.Background()
				if _, err := f.open().Login(ctx, "demo@hashchat.com", "demo123"); err != nil {
					t.Fatalf("Login: %v", err)
				}
				if err := store.SaveJSON(ctx, f.st, store.KeySessionUser, core.Identity{ID: "2", DisplayName: "Harsh"}); err != nil {
					t.Fatalf("SaveJSON: %v", err)
				}
			},
		},
		{
			name: "identity without token",
			setup: func(t *testing.T, f *sessionFixture) {
				if err := store.SaveJSON(context.Background(), f.st, store.KeySessionUser, core.Identity{ID: "1"}); err != nil {
					t.Fatalf("SaveJSON: %v", err)
				}
			},
		},
		{
			name: "corrupt identity",
			setup: func(t *testing.T, f *sessionFixture) {
				ctx := context.Background()
				if _, err := f.open().Login(ctx, "demo@hashchat.com", "demo123"); err != nil {
					t.Fatalf("Login: %v", err)
				}
				if err := f.st.Put(ctx, store.KeySessionUser, []byte("{not json")); err != nil {
					t.Fatalf("Put: %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			tt.setup(t, f)

			s := f.open()
			if s.Identity() != nil || s.Token() != "" {
				t.Fatalf("expected anonymous session")
			}
			if _, err := f.st.Get(context.Background(), store.KeySessionToken); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected stale token to be cleared, got %v", err)
			}
		})
	}
}
