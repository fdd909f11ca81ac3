package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/calbec/lessonmarket/internal/identity"
	"github.com/calbec/lessonmarket/internal/model"
)

// ErrServiceUnreachable distinguishes connectivity failures from
// provider-rejected calls. Handlers map it to 503 with a "check your
// connection" style message.
var ErrServiceUnreachable = errors.New("authentication service unreachable")

// ValidationError is a bad-input failure caught before any network call.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// ValidateCredentials applies the local email/password checks shared by
// sign-in and sign-up. Failing input costs zero network calls.
func ValidateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return &ValidationError{Detail: "Please enter a valid email address"}
	}
	if len(password) < 8 {
		return &ValidationError{Detail: "Password must be at least 8 characters"}
	}
	return nil
}

type State int

const (
	StateSignedOut State = iota
	StateAuthenticating
	StateSignedIn
)

// Provider is the identity-provider surface the facade relays to.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password, redirectTo string) (*model.SignupResult, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPassword(ctx context.Context, email, redirectTo string) error
	AuthorizeURL(provider, redirectTo string) string
}

// Reconciler resolves an identity to its profile row.
type Reconciler interface {
	Reconcile(ctx context.Context, ident model.Identity) (*model.Profile, error)
}

// Facade is the single auth call surface. All session mutation goes
// through the Store; navigation reacts to Store transitions, never to
// facade call sites.
type Facade struct {
	provider   Provider
	store      *Store
	reconciler Reconciler
	baseURL    string
	logger     *slog.Logger

	mu             sync.Mutex
	authenticating bool
	profile        *model.Profile
}

func NewFacade(provider Provider, store *Store, reconciler Reconciler, baseURL string, logger *slog.Logger) *Facade {
	return &Facade{
		provider:   provider,
		store:      store,
		reconciler: reconciler,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// SignIn performs the password grant. On success the Store observes the
// new session and the profile is reconciled best-effort: a reconciliation
// failure is logged and swallowed, never blocking login. Provider errors
// surface verbatim; nothing is retried.
func (f *Facade) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	f.setAuthenticating(true)
	defer f.setAuthenticating(false)

	sess, err := f.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrUnreachable) {
			return nil, fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
		}
		return nil, err
	}

	gen := f.store.Set(sess)
	f.reconcileProfile(ctx, sess.User, gen)
	return sess, nil
}

// SignUp validates locally, then relays registration to the provider.
// When the provider auto-confirms and returns a session, the Store and
// profile are updated as for SignIn; otherwise no local state changes.
func (f *Facade) SignUp(ctx context.Context, email, password string) (*model.SignupResult, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	res, err := f.provider.SignUp(ctx, email, password, f.baseURL+"/auth/confirm")
	if err != nil {
		if errors.Is(err, identity.ErrUnreachable) {
			return nil, fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
		}
		return nil, err
	}

	if res.Session != nil {
		gen := f.store.Set(res.Session)
		f.reconcileProfile(ctx, res.User, gen)
	}
	return res, nil
}

// SignOut calls the provider, then clears local session and profile
// unconditionally: after the user asked to leave, local state must not
// stick in a signed-in shape even if the provider call failed.
func (f *Facade) SignOut(ctx context.Context) error {
	var token string
	if sess := f.store.Current(); sess != nil {
		token = sess.AccessToken
	}

	err := f.provider.SignOut(ctx, token)

	f.store.Clear()
	f.mu.Lock()
	f.profile = nil
	f.mu.Unlock()

	if err != nil {
		return fmt.Errorf("provider sign-out: %w", err)
	}
	return nil
}

// ResetPassword relays the reset request. Provider rejections surface
// as-is; a connectivity failure maps to ErrServiceUnreachable like the
// other facade calls.
func (f *Facade) ResetPassword(ctx context.Context, email string) error {
	err := f.provider.ResetPassword(ctx, email, f.baseURL+"/auth/reset-password")
	if errors.Is(err, identity.ErrUnreachable) {
		return fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
	}
	return err
}

// SignInWithGoogle returns the provider-hosted OAuth entry point. Local
// state changes only when the callback completes via CompleteOAuth.
func (f *Facade) SignInWithGoogle() string {
	return f.provider.AuthorizeURL("google", f.baseURL+"/auth/callback")
}

// CompleteOAuth installs a session obtained from the OAuth code exchange
// and reconciles the profile, mirroring the password sign-in path.
func (f *Facade) CompleteOAuth(ctx context.Context, sess *model.Session) {
	gen := f.store.Set(sess)
	f.reconcileProfile(ctx, sess.User, gen)
}

// State reports the current position in the
// signed_out/authenticating/signed_in machine.
func (f *Facade) State() State {
	f.mu.Lock()
	authenticating := f.authenticating
	f.mu.Unlock()

	if authenticating {
		return StateAuthenticating
	}
	if f.store.Current() != nil {
		return StateSignedIn
	}
	return StateSignedOut
}

// Profile returns the reconciled profile, or nil when reconciliation
// failed or no one is signed in.
func (f *Facade) Profile() *model.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile
}

// Session returns the current session, or nil.
func (f *Facade) Session() *model.Session {
	return f.store.Current()
}

// reconcileProfile publishes the reconciled row only while the session
// that triggered it is still current; a result keyed to a superseded
// generation is discarded.
func (f *Facade) reconcileProfile(ctx context.Context, ident model.Identity, gen uint64) {
	prof, err := f.reconciler.Reconcile(ctx, ident)
	if err != nil {
		f.logger.Error("profile reconciliation failed", "user_id", ident.ID, "error", err)
		prof = nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store.Generation() != gen {
		return
	}
	f.profile = prof
}

func (f *Facade) setAuthenticating(v bool) {
	f.mu.Lock()
	f.authenticating = v
	f.mu.Unlock()
}
