package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/store"
)

// State is the session dimension of the authentication state machine.
type State int

const (
	StateAnonymous State = iota
	StatePendingVerification
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StatePendingVerification:
		return "pending_verification"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// DefaultOTPCode is the fixed verification code accepted by VerifyOTP.
const DefaultOTPCode = "1234"

// PendingRegistration holds signup data until the verification code is confirmed.
type PendingRegistration struct {
	DisplayName  string
	Email        string
	PasswordHash string
}

// Options configures a SessionStore.
type Options struct {
	Directory  *Directory
	Tokens     TokenConfig
	OTPCode    string
	BcryptCost int
	Clock      clock.Clock
	// ApplyTheme is invoked whenever the theme is loaded or toggled.
	ApplyTheme func(core.Theme)
}

// SessionStore owns the authenticated identity, its token, the theme
// preference and the pending registration.
type SessionStore struct {
	mu sync.Mutex

	st         store.Store
	dir        *Directory
	tokens     TokenConfig
	otpCode    string
	bcryptCost int
	clock      clock.Clock
	applyTheme func(core.Theme)
	log        *zerolog.Logger

	identity *core.Identity
	token    string
	theme    core.Theme
	pending  *PendingRegistration
}

// NewSessionStore builds a store and rehydrates the session from st.
func NewSessionStore(ctx context.Context, st store.Store, opts Options, logger *zerolog.Logger) *SessionStore {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.OTPCode == "" {
		opts.OTPCode = DefaultOTPCode
	}
	if opts.Directory == nil {
		opts.Directory = &Directory{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &SessionStore{
		st:         st,
		dir:        opts.Directory,
		tokens:     opts.Tokens,
		otpCode:    opts.OTPCode,
		bcryptCost: opts.BcryptCost,
		clock:      opts.Clock,
		applyTheme: opts.ApplyTheme,
		log:        logger,
		theme:      core.ThemeLight,
	}
	s.rehydrate(ctx)
	return s
}

// rehydrate restores identity, token and theme. Anything missing, corrupt or
// no longer valid degrades to an anonymous session.
func (s *SessionStore) rehydrate(ctx context.Context) {
	var theme core.Theme
	if store.LoadJSON(ctx, s.st, store.KeyTheme, &theme, s.log) && (theme == core.ThemeLight || theme == core.ThemeDark) {
		s.theme = theme
	}
	if s.applyTheme != nil {
		s.applyTheme(s.theme)
	}

	var identity core.Identity
	var token string
	hasIdentity := store.LoadJSON(ctx, s.st, store.KeySessionUser, &identity, s.log)
	hasToken := store.LoadJSON(ctx, s.st, store.KeySessionToken, &token, s.log)
	if !hasIdentity && !hasToken {
		return
	}
	if !hasIdentity || !hasToken || identity.ID == "" || token == "" {
		s.log.Warn().Msg("stored session is incomplete, starting anonymous")
		s.clearStored(ctx)
		return
	}

	claims, err := ValidateToken(&s.tokens, token, s.clock.Now())
	if err != nil || claims.Subject != identity.ID {
		s.log.Warn().Err(err).Str("user_id", identity.ID).Msg("stored session token rejected, starting anonymous")
		s.clearStored(ctx)
		return
	}

	s.identity = &identity
	s.token = token
	s.log.Debug().Str("user_id", identity.ID).Msg("session restored")
}

// Login authenticates against the fixed directory and starts a session.
func (s *SessionStore) Login(ctx context.Context, email, password string) (*core.Identity, error) {
	cred, ok := s.dir.Authenticate(email, password)
	if !ok {
		s.log.Info().Str("email", email).Msg("login rejected")
		return nil, core.ErrInvalidCredentials
	}

	identity := &core.Identity{
		ID:          cred.ID,
		DisplayName: cred.DisplayName,
		Email:       cred.Email,
		AvatarRef:   "/avatars/" + cred.ID + ".png",
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.startSession(ctx, identity); err != nil {
		return nil, err
	}
	s.pending = nil
	s.log.Info().Str("user_id", identity.ID).Str("email", identity.Email).Msg("logged in")
	return identity, nil
}

// Signup stores a pending registration. A nil error means verification is
// now required; no session is created yet.
func (s *SessionStore) Signup(_ context.Context, displayName, email, password string) error {
	displayName = strings.TrimSpace(displayName)
	email = strings.TrimSpace(email)
	if displayName == "" || email == "" || password == "" {
		return core.Fail(core.KindValidation, "name, email and password are required")
	}
	if s.dir.Has(email) {
		s.log.Info().Str("email", email).Msg("signup rejected, email registered")
		return core.ErrEmailRegistered
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pending = &PendingRegistration{DisplayName: displayName, Email: email, PasswordHash: hash}
	s.mu.Unlock()

	s.log.Info().Str("email", email).Msg("verification code sent")
	return nil
}

// ResendOTP re-signals that verification is required. The code is fixed, so
// nothing else changes.
func (s *SessionStore) ResendOTP() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return core.ErrNoPending
	}
	s.log.Info().Str("email", s.pending.Email).Msg("verification code resent")
	return nil
}

// AbandonSignup drops the pending registration, if any.
func (s *SessionStore) AbandonSignup() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// VerifyOTP turns the pending registration into an authenticated session.
// On any failure the pending registration is kept so the user can retry.
func (s *SessionStore) VerifyOTP(ctx context.Context, code string) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil, core.ErrNoPending
	}
	if !isOTPFormat(code) {
		return nil, core.ErrOTPFormat
	}
	if code != s.otpCode {
		s.log.Info().Str("email", s.pending.Email).Msg("verification code rejected")
		return nil, core.ErrInvalidOTP
	}

	identity := &core.Identity{
		ID:          "user_" + uuid.NewString(),
		DisplayName: s.pending.DisplayName,
		Email:       s.pending.Email,
	}
	if err := s.startSession(ctx, identity); err != nil {
		return nil, err
	}
	s.pending = nil
	s.log.Info().Str("user_id", identity.ID).Str("email", identity.Email).Msg("account verified")
	return identity, nil
}

func isOTPFormat(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// startSession mints a token and persists the session. Caller holds s.mu.
// In-memory state is only replaced once both keys are written.
func (s *SessionStore) startSession(ctx context.Context, identity *core.Identity) error {
	token, err := GenerateToken(&s.tokens, identity.ID, identity.DisplayName, s.clock.Now())
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	if err := store.SaveJSON(ctx, s.st, store.KeySessionUser, identity); err != nil {
		return err
	}
	if err := store.SaveJSON(ctx, s.st, store.KeySessionToken, token); err != nil {
		return err
	}
	s.identity = identity
	s.token = token
	return nil
}

// UpdateProfile merges upd into the current identity and persists it. The
// result is always a new value; the previous *core.Identity is never mutated.
// Without a session it returns (nil, nil).
func (s *SessionStore) UpdateProfile(ctx context.Context, upd core.ProfileUpdate) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return nil, nil
	}

	updated := *s.identity
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" {
			return nil, core.Fail(core.KindValidation, "please enter your name")
		}
		updated.DisplayName = name
	}
	if upd.Bio != nil {
		updated.Bio = strings.TrimSpace(*upd.Bio)
	}
	if upd.AvatarRef != nil {
		updated.AvatarRef = *upd.AvatarRef
	}

	if err := store.SaveJSON(ctx, s.st, store.KeySessionUser, &updated); err != nil {
		return nil, err
	}
	s.identity = &updated
	s.log.Info().Str("user_id", updated.ID).Msg("profile updated")
	return s.identity, nil
}

// Logout clears the session from memory and storage. It is idempotent.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.token = ""
	if err := s.clearStored(ctx); err != nil {
		return err
	}
	s.log.Info().Msg("logged out")
	return nil
}

func (s *SessionStore) clearStored(ctx context.Context) error {
	if err := s.st.Delete(ctx, store.KeySessionUser); err != nil {
		return fmt.Errorf("delete session user: %w", err)
	}
	if err := s.st.Delete(ctx, store.KeySessionToken); err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}
	return nil
}

// ToggleTheme flips light/dark, persists and applies the new theme. The
// preference is independent of the session and survives logout.
func (s *SessionStore) ToggleTheme(ctx context.Context) (core.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.theme.Toggled()
	if err := store.SaveJSON(ctx, s.st, store.KeyTheme, next); err != nil {
		return s.theme, err
	}
	s.theme = next
	if s.applyTheme != nil {
		s.applyTheme(next)
	}
	s.log.Info().Str("theme", string(next)).Msg("theme switched")
	return next, nil
}

// Identity returns the current identity or nil. The value must be treated as
// read-only; updates always install a new value.
func (s *SessionStore) Identity() *core.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Token returns the current bearer token, empty when anonymous.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Theme returns the stored theme preference.
func (s *SessionStore) Theme() core.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Pending returns a copy of the pending registration.
func (s *SessionStore) Pending() (PendingRegistration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return PendingRegistration{}, false
	}
	return *s.pending, true
}

// State reports where the session is in the authentication state machine.
// An authenticated session wins over a pending registration.
func (s *SessionStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.identity != nil:
		return StateAuthenticated
	case s.pending != nil:
		return StatePendingVerification
	default:
		return StateAnonymous
	}
}

// Authorize checks that token is the current session token and still valid.
func (s *SessionStore) Authorize(token string) (*core.Identity, error) {
	s.mu.Lock()
	identity, current := s.identity, s.token
	s.mu.Unlock()

	if identity == nil || token == "" || token != current {
		return nil, core.Fail(core.KindAuth, "invalid token")
	}
	if _, err := ValidateToken(&s.tokens, token, s.clock.Now()); err != nil {
		return nil, core.Fail(core.KindAuth, "invalid token")
	}
	return identity, nil
}
