package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/jrsteele09/go-charger-client/store"
	"github.com/jrsteele09/go-charger-client/token"
	"github.com/jrsteele09/go-charger-client/users"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrRefreshExpiring   = errors.New("refresh credential expired or about to expire")
	ErrRenewalRejected   = errors.New("renewal rejected by the authentication service")
	ErrShortLivedRenewal = errors.New("renewed credential expires within the refresh interval")
)

const (
	reasonRefreshExpiring  = "refresh_expiring"
	reasonRenewalRejected  = "renewal_rejected"
	reasonTransientFailure = "transient_failure"
	reasonMissingAccess    = "missing_access"
)

// Renewer exchanges a refresh credential for a new access credential.
// Errors wrapping errors.ErrTransient are retried, anything else is a rejection.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (accessToken string, err error)
}

// Credentials is what sign-in hands to the manager
type Credentials struct {
	AccessToken  string
	RefreshToken string
	User         *users.User
}

// Timings are the constants of the refresh policy
type Timings struct {
	RefreshInterval time.Duration // period of the background check
	AccessMargin    time.Duration // renew once access expires within this
	RefreshMargin   time.Duration // log out once refresh expires within this
	RenewTimeout    time.Duration // bound on a single renewal attempt
}

func DefaultTimings() Timings {
	return Timings{
		RefreshInterval: 30 * time.Second,
		AccessMargin:    120 * time.Second,
		RefreshMargin:   10 * time.Second,
		RenewTimeout:    15 * time.Second,
	}
}

// Manager owns the credentials in the store: it decides the phase, renews the
// access credential ahead of expiry and clears the session when it cannot.
type Manager struct {
	store             store.Store
	renewer           Renewer
	timings           Timings
	retry             RetryPolicy
	metrics           *Metrics
	dispatcher        Dispatcher
	logger            zerolog.Logger
	logoutOnTransient bool
	tracer            trace.Tracer
	nowFunc           func() time.Time

	mu             sync.Mutex // serializes store writes and guards the fields below
	generation     uint64
	identity       users.User
	identityLoaded bool

	phaseMu   sync.Mutex
	lastPhase Phase

	renewals singleflight.Group
	nudge    chan struct{}
}

type Option func(*Manager)

func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithTimings(t Timings) Option {
	return func(m *Manager) {
		m.timings = t
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(m *Manager) {
		m.retry = p
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func WithDispatcher(d Dispatcher) Option {
	return func(m *Manager) {
		m.dispatcher = d
	}
}

// WithLogoutOnTransientFailure clears the session when renewal keeps failing
// transiently instead of keeping it for the next check
func WithLogoutOnTransientFailure(logout bool) Option {
	return func(m *Manager) {
		m.logoutOnTransient = logout
	}
}

func New(s store.Store, renewer Renewer, options ...Option) *Manager {
	m := &Manager{
		store:    s,
		renewer:  renewer,
		timings:  DefaultTimings(),
		retry:    DefaultRetryPolicy(),
		logger:   zerolog.Nop(),
		tracer:   otel.Tracer("session"),
		identity: users.Anonymous(),
		nudge:    make(chan struct{}, 1),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	if m.dispatcher == nil {
		m.dispatcher = NewDispatcher(m.logger)
	}

	m.lastPhase = m.EvaluatePhase(context.Background())
	m.metrics.setPhase(m.lastPhase)
	return m
}

func (m *Manager) Timings() Timings {
	return m.timings
}

// IsValid reports whether raw stays valid for at least margin from now
func (m *Manager) IsValid(raw string, margin time.Duration) bool {
	return token.IsValid(raw, margin, m.nowFunc())
}

// CheckValid is IsValid with the reason a credential is not valid
func (m *Manager) CheckValid(raw string, margin time.Duration) error {
	return token.Check(raw, margin, m.nowFunc())
}

// EvaluatePhase derives the phase from the stored credentials. Read errors count as absent.
func (m *Manager) EvaluatePhase(ctx context.Context) Phase {
	access := m.read(ctx, store.KeyAccessToken)
	refresh := m.read(ctx, store.KeyRefreshToken)

	window := 2 * m.timings.RefreshInterval
	switch {
	case m.IsValid(access, window) && m.IsValid(refresh, window):
		return PhaseLoggedIn
	case access == "":
		return PhaseLoggedOut
	case m.IsValid(refresh, m.timings.RefreshMargin):
		return PhaseLoading
	default:
		return PhaseLoggedOut
	}
}

func (m *Manager) read(ctx context.Context, key string) string {
	v, err := m.store.Get(ctx, key)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			m.logger.Warn().Err(err).Str("key", key).Msg("credential store read failed")
		}
		return ""
	}
	return v
}

// StoreCredentials persists each credential that is valid for at least one refresh
// interval and drops the others. A non nil User replaces the identity.
func (m *Manager) StoreCredentials(ctx context.Context, creds Credentials) error {
	err := m.storeCredentials(ctx, creds)
	m.publishPhase(ctx)
	return err
}

func (m *Manager) storeCredentials(ctx context.Context, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.CheckValid(creds.AccessToken, m.timings.RefreshInterval); err != nil {
		m.logger.Debug().Err(err).Msg("access credential not stored")
	} else if err := m.store.Set(ctx, store.KeyAccessToken, creds.AccessToken); err != nil {
		return fmt.Errorf("[session StoreCredentials] access: %w", err)
	}

	if err := m.CheckValid(creds.RefreshToken, m.timings.RefreshInterval); err != nil {
		m.logger.Debug().Err(err).Msg("refresh credential not stored")
	} else {
		if err := m.store.Set(ctx, store.KeyRefreshToken, creds.RefreshToken); err != nil {
			return fmt.Errorf("[session StoreCredentials] refresh: %w", err)
		}
		m.generation++
	}

	if creds.User != nil {
		m.identity = *creds.User
		m.identityLoaded = true
		raw, err := users.Marshal(*creds.User)
		if err != nil {
			return fmt.Errorf("[session StoreCredentials] %w", err)
		}
		if err := m.store.Set(ctx, store.KeyUser, raw); err != nil {
			return fmt.Errorf("[session StoreCredentials] user: %w", err)
		}
	}
	return nil
}

// RefreshIfNeeded runs one check of the refresh policy
func (m *Manager) RefreshIfNeeded(ctx context.Context) (Outcome, error) {
	outcome, err := m.refreshIfNeeded(ctx)
	m.metrics.observeCheck(outcome)
	m.publishPhase(ctx)
	return outcome, err
}

func (m *Manager) refreshIfNeeded(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	refresh := m.read(ctx, store.KeyRefreshToken)
	if m.EvaluatePhase(ctx) == PhaseLoggedOut {
		return m.clearStale(ctx, gen, refresh)
	}

	if err := m.CheckValid(refresh, m.timings.RefreshMargin); err != nil {
		if !m.forceLogout(ctx, gen, reasonRefreshExpiring) {
			return OutcomeDiscarded, nil
		}
		return OutcomeLoggedOut, fmt.Errorf("%w: %v", ErrRefreshExpiring, err)
	}

	if m.IsValid(m.read(ctx, store.KeyAccessToken), m.timings.AccessMargin) {
		return OutcomeValid, nil
	}

	return m.renew(ctx, refresh)
}

// clearStale removes credentials left behind by a session that can no longer be resumed
func (m *Manager) clearStale(ctx context.Context, gen uint64, refresh string) (Outcome, error) {
	if refresh == "" && m.read(ctx, store.KeyAccessToken) == "" {
		return OutcomeIdle, nil
	}
	expired := m.CheckValid(refresh, m.timings.RefreshMargin)
	reason := reasonMissingAccess
	if expired != nil {
		reason = reasonRefreshExpiring
	}
	if !m.forceLogout(ctx, gen, reason) {
		return OutcomeDiscarded, nil
	}
	if expired != nil {
		return OutcomeLoggedOut, fmt.Errorf("%w: %v", ErrRefreshExpiring, expired)
	}
	return OutcomeLoggedOut, nil
}

type renewResult struct {
	outcome Outcome
	err     error
}

// renew shares one in-flight renewal between concurrent callers holding the same refresh credential.
// The shared call is detached from the caller that started it; each caller stops waiting when its own ctx ends.
func (m *Manager) renew(ctx context.Context, refresh string) (Outcome, error) {
	shared := context.WithoutCancel(ctx)
	ch := m.renewals.DoChan(refresh, func() (any, error) {
		return m.renewOnce(shared, refresh), nil
	})

	select {
	case <-ctx.Done():
		m.logger.Debug().Err(ctx.Err()).Msg("stopped waiting for renewal")
		return OutcomeDeferred, ctx.Err()
	case r := <-ch:
		res := r.Val.(renewResult)
		return res.outcome, res.err
	}
}

func (m *Manager) renewOnce(ctx context.Context, refresh string) renewResult {
	ctx, span := m.tracer.Start(ctx, "session.renew")
	defer span.End()

	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	var access string
	err := m.retry.do(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, m.timings.RenewTimeout)
		defer cancel()
		var err error
		access, err = m.renewer.Renew(attemptCtx, refresh)
		return err
	}, func(err error) bool {
		return ctx.Err() == nil && isTransient(err)
	}, func(attempt int, err error) {
		m.metrics.observeRetry()
		span.AddEvent("retry.attempt", trace.WithAttributes(attribute.Int("attempt", attempt)))
		m.logger.Debug().Err(err).Int("attempt", attempt+1).Msg("renewal failed, retrying")
	})

	res := m.applyRenewal(ctx, gen, refresh, access, err)
	span.SetAttributes(attribute.String("outcome", res.outcome.String()))
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
	}
	return res
}

func (m *Manager) applyRenewal(ctx context.Context, gen uint64, refresh, access string, renewErr error) renewResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen || m.read(ctx, store.KeyRefreshToken) != refresh {
		m.metrics.observeRenewal("discarded")
		m.logger.Debug().Msg("session changed during renewal, result dropped")
		return renewResult{outcome: OutcomeDiscarded}
	}

	switch {
	case renewErr == nil:
		if err := m.CheckValid(access, m.timings.RefreshInterval); err != nil {
			m.metrics.observeRenewal("short_lived")
			m.logger.Warn().Err(err).Msg("renewed access credential not stored")
			return renewResult{outcome: OutcomeDeferred, err: fmt.Errorf("%w: %v", ErrShortLivedRenewal, err)}
		}
		if err := m.store.Set(ctx, store.KeyAccessToken, access); err != nil {
			m.metrics.observeRenewal("store_error")
			return renewResult{outcome: OutcomeDeferred, err: fmt.Errorf("[session renew] %w", err)}
		}
		m.metrics.observeRenewal("renewed")
		m.logger.Info().Msg("access credential renewed")
		return renewResult{outcome: OutcomeRenewed}

	case isTransient(renewErr) && !m.logoutOnTransient:
		m.metrics.observeRenewal("deferred")
		m.logger.Warn().Err(renewErr).Msg("renewal failed transiently, keeping session")
		return renewResult{outcome: OutcomeDeferred, err: apperrors.Wrapf(renewErr, "renewal deferred")}

	case isTransient(renewErr):
		m.metrics.observeRenewal("failed")
		m.logoutLocked(ctx)
		m.metrics.observeForcedLogout(reasonTransientFailure)
		m.logger.Warn().Err(renewErr).Msg("renewal failed, logging out")
		return renewResult{outcome: OutcomeLoggedOut, err: apperrors.Wrapf(renewErr, "renewal failed")}

	default:
		m.metrics.observeRenewal("rejected")
		m.logoutLocked(ctx)
		m.metrics.observeForcedLogout(reasonRenewalRejected)
		m.logger.Warn().Err(renewErr).Msg("renewal rejected, logging out")
		return renewResult{outcome: OutcomeLoggedOut, err: fmt.Errorf("%w: %v", ErrRenewalRejected, renewErr)}
	}
}

func isTransient(err error) bool {
	return apperrors.Is(err, apperrors.ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// forceLogout clears the session unless it was replaced since gen was read
func (m *Manager) forceLogout(ctx context.Context, gen uint64, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen {
		m.logger.Debug().Str("reason", reason).Msg("session replaced, forced logout skipped")
		return false
	}
	m.logoutLocked(ctx)
	m.metrics.observeForcedLogout(reason)
	m.logger.Info().Str("reason", reason).Msg("session cleared")
	return true
}

// Logout removes all credentials and resets the identity. Calling it twice is fine.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	err := m.logoutLocked(ctx)
	m.mu.Unlock()

	m.publishPhase(ctx)
	return err
}

func (m *Manager) logoutLocked(ctx context.Context) error {
	m.generation++
	m.identity = users.Anonymous()
	m.identityLoaded = true

	var errs []error
	for _, key := range []string{store.KeyAccessToken, store.KeyRefreshToken, store.KeyUser} {
		if err := m.store.Remove(ctx, key); err != nil {
			m.logger.Err(err).Str("key", key).Msg("failed to remove credential")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Identity is the user of the current session, anonymous when there is none
func (m *Manager) Identity() users.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.identityLoaded {
		m.identityLoaded = true
		if raw := m.read(context.Background(), store.KeyUser); raw != "" {
			u, err := users.Unmarshal(raw)
			if err != nil {
				m.logger.Warn().Err(err).Msg("ignoring stored identity")
			} else {
				m.identity = u
			}
		}
	}
	return m.identity
}

// AccessToken returns the stored access credential as is, expired or not
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	access := m.read(ctx, store.KeyAccessToken)
	if access == "" {
		return "", apperrors.ErrNotAuthenticated
	}
	return access, nil
}

// Token makes the manager an oauth2.TokenSource for authorized HTTP clients
func (m *Manager) Token() (*oauth2.Token, error) {
	access, err := m.AccessToken(context.Background())
	if err != nil {
		return nil, err
	}
	t := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if exp, err := token.Expiry(access); err == nil {
		t.Expiry = exp
	}
	return t, nil
}

func (m *Manager) Subscribe(handler PhaseHandler) func() {
	return m.dispatcher.Subscribe(handler)
}

func (m *Manager) publishPhase(ctx context.Context) {
	m.phaseMu.Lock()
	phase := m.EvaluatePhase(ctx)
	from := m.lastPhase
	m.lastPhase = phase
	m.phaseMu.Unlock()

	m.metrics.setPhase(phase)

	if from == phase {
		return
	}
	m.logger.Debug().Str("from", from.String()).Str("to", phase.String()).Msg("phase changed")
	m.dispatcher.Publish(ctx, PhaseChange{From: from, To: phase, At: m.nowFunc()})
}
