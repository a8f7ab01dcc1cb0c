// Package webapp implements the Mini-App client bootstrap handshake: load the
// host bridge, obtain the signed identity payload, exchange it for a session
// credential and redeem that credential for a live session.
package webapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"snaparena/internal/auth"
	"snaparena/internal/model"
)

// Handshake errors.
var (
	ErrNoHost             = errors.New("no host environment detected")
	ErrNoIdentity         = errors.New("host provided no identity payload")
	ErrLoginRejected      = errors.New("login rejected by backend")
	ErrBackendUnavailable = errors.New("login backend unavailable")
	ErrRedemptionFailed   = errors.New("credential redemption failed")
)

// State is the handshake's position in its lifecycle.
type State int

// Handshake states, in progression order. Failed is terminal until the user
// retries.
const (
	StateIdle State = iota
	StateScriptLoading
	StateWebAppReady
	StateIdentityAvailable
	StateLoginInFlight
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScriptLoading:
		return "script_loading"
	case StateWebAppReady:
		return "webapp_ready"
	case StateIdentityAvailable:
		return "identity_available"
	case StateLoginInFlight:
		return "login_in_flight"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HostEnvironment is the Mini-App host the handshake talks to.
type HostEnvironment interface {
	// LoadBridge fetches and initializes the host bridge. The handshake
	// memoizes a successful load, so implementations are not required to be
	// idempotent themselves.
	LoadBridge(ctx context.Context) error
	// Identity returns the signed identity payload plus the raw init-data
	// string the host supplied, or ErrNoIdentity when none is present.
	Identity(ctx context.Context) (*auth.LoginPayload, string, error)
}

// SessionRedeemer exchanges a minted credential for a live session with the
// identity provider.
type SessionRedeemer interface {
	Redeem(ctx context.Context, token string) error
}

// RedeemerFunc adapts a function to the SessionRedeemer interface.
type RedeemerFunc func(ctx context.Context, token string) error

// Redeem implements SessionRedeemer.
func (f RedeemerFunc) Redeem(ctx context.Context, token string) error { return f(ctx, token) }

// Session is the outcome of a successful handshake.
type Session struct {
	Token   string
	Profile *model.UserProfile
}

// Config configures a Handshake.
type Config struct {
	Host        HostEnvironment
	LoginURL    string
	FallbackURL string // bot deep link offered after a failure
	Redeemer    SessionRedeemer
	HTTPClient  *http.Client
}

// Handshake drives the bootstrap sequence. It is safe for concurrent use;
// concurrent Run calls share a single bridge load.
type Handshake struct {
	host        HostEnvironment
	loginURL    string
	fallbackURL string
	redeemer    SessionRedeemer
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker

	mu          sync.Mutex
	state       State
	bridgeReady bool
	bridgeWait  chan struct{}
}

// New creates a Handshake in the Idle state.
func New(cfg Config) *Handshake {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	redeemer := cfg.Redeemer
	if redeemer == nil {
		redeemer = RedeemerFunc(func(ctx context.Context, token string) error {
			if token == "" {
				return ErrRedemptionFailed
			}
			return nil
		})
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "snaparena-login",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Handshake{
		host:        cfg.Host,
		loginURL:    cfg.LoginURL,
		fallbackURL: cfg.FallbackURL,
		redeemer:    redeemer,
		httpClient:  httpClient,
		breaker:     breaker,
		state:       StateIdle,
	}
}

// State returns the current handshake state.
func (h *Handshake) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// FallbackURL returns the manual login affordance to show after a failure.
func (h *Handshake) FallbackURL() string {
	return h.fallbackURL
}

func (h *Handshake) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// fail moves to Failed and returns err. The caller decides whether to retry;
// the handshake never retries on its own.
func (h *Handshake) fail(err error) error {
	h.setState(StateFailed)
	return err
}

// Run executes the handshake once. After a failure it may be invoked again as
// a user-initiated retry; each invocation starts from the bridge (a
// previously loaded bridge is reused).
func (h *Handshake) Run(ctx context.Context) (*Session, error) {
	if h.host == nil {
		h.setState(StateIdle)
		return nil, ErrNoHost
	}

	h.setState(StateScriptLoading)
	if err := h.ensureBridge(ctx); err != nil {
		return nil, h.fail(fmt.Errorf("failed to load host bridge: %w", err))
	}
	h.setState(StateWebAppReady)

	payload, _, err := h.host.Identity(ctx)
	if err != nil {
		return nil, h.fail(err)
	}
	if payload == nil {
		return nil, h.fail(ErrNoIdentity)
	}
	h.setState(StateIdentityAvailable)

	h.setState(StateLoginInFlight)
	session, err := h.login(ctx, payload)
	if err != nil {
		return nil, h.fail(err)
	}

	if err := h.redeemer.Redeem(ctx, session.Token); err != nil {
		return nil, h.fail(fmt.Errorf("%w: %v", ErrRedemptionFailed, err))
	}

	h.setState(StateAuthenticated)
	return session, nil
}

// ensureBridge runs the host bridge load exactly once across all Run calls.
// A failed load is not memoized, so a retry attempts the load again.
func (h *Handshake) ensureBridge(ctx context.Context) error {
	for {
		h.mu.Lock()
		if h.bridgeReady {
			h.mu.Unlock()
			return nil
		}
		if wait := h.bridgeWait; wait != nil {
			h.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		wait := make(chan struct{})
		h.bridgeWait = wait
		h.mu.Unlock()

		err := h.host.LoadBridge(ctx)

		h.mu.Lock()
		if err == nil {
			h.bridgeReady = true
		}
		h.bridgeWait = nil
		h.mu.Unlock()
		close(wait)
		return err
	}
}

// login posts the payload to the backend through the circuit breaker and
// decodes the credential.
func (h *Handshake) login(ctx context.Context, payload *auth.LoginPayload) (*Session, error) {
	result, err := h.breaker.Execute(func() (any, error) {
		return h.doLogin(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrBackendUnavailable)
		}
		return nil, err
	}
	return result.(*Session), nil
}

func (h *Handshake) doLogin(ctx context.Context, payload *auth.LoginPayload) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.loginURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		// a rejected signature can never succeed on replay; do not retry
		io.Copy(io.Discard, resp.Body)
		return nil, ErrLoginRejected
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	var decoded struct {
		Token   string             `json:"token"`
		Profile *model.UserProfile `json:"profile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	if decoded.Token == "" {
		return nil, ErrLoginRejected
	}

	return &Session{Token: decoded.Token, Profile: decoded.Profile}, nil
}
