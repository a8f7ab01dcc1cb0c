package webapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaparena/internal/auth"
)

type fakeHost struct {
	loadCalls   atomic.Int32
	loadErr     error
	payload     *auth.LoginPayload
	rawData     string
	identityErr error
}

func (f *fakeHost) LoadBridge(ctx context.Context) error {
	f.loadCalls.Add(1)
	return f.loadErr
}

func (f *fakeHost) Identity(ctx context.Context) (*auth.LoginPayload, string, error) {
	if f.identityErr != nil {
		return nil, "", f.identityErr
	}
	return f.payload, f.rawData, nil
}

func testPayload() *auth.LoginPayload {
	return &auth.LoginPayload{ID: 42, FirstName: "Bo", AuthDate: time.Now().Unix(), Hash: "aabb"}
}

func loginBackend(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandshake_HappyPath(t *testing.T) {
	backend := loginBackend(t, http.StatusOK,
		`{"token":"session-token","profile":{"telegramId":42,"firstName":"Bo","balance":1000}}`)

	host := &fakeHost{payload: testPayload(), rawData: "id=42"}
	h := New(Config{Host: host, LoginURL: backend.URL})

	session, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-token", session.Token)
	assert.Equal(t, int64(42), session.Profile.TelegramID)
	assert.Equal(t, StateAuthenticated, h.State())
}

func TestHandshake_NoHostStaysIdle(t *testing.T) {
	h := New(Config{LoginURL: "http://localhost:0"})

	_, err := h.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoHost)
	assert.Equal(t, StateIdle, h.State())
}

func TestHandshake_BridgeLoadFailure(t *testing.T) {
	host := &fakeHost{loadErr: errors.New("script fetch timed out"), payload: testPayload()}
	h := New(Config{Host: host, LoginURL: "http://localhost:0"})

	_, err := h.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, h.State())
}

func TestHandshake_NoIdentityFails(t *testing.T) {
	host := &fakeHost{}
	h := New(Config{Host: host, LoginURL: "http://localhost:0", FallbackURL: "https://t.me/snaparena_bot"})

	_, err := h.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.Equal(t, StateFailed, h.State())
	assert.Equal(t, "https://t.me/snaparena_bot", h.FallbackURL())
}

func TestHandshake_RejectedLogin(t *testing.T) {
	backend := loginBackend(t, http.StatusUnauthorized, `{"error":"authentication failed"}`)
	host := &fakeHost{payload: testPayload()}
	h := New(Config{Host: host, LoginURL: backend.URL})

	_, err := h.Run(context.Background())
	assert.ErrorIs(t, err, ErrLoginRejected)
	assert.Equal(t, StateFailed, h.State())
}

func TestHandshake_BackendOutage(t *testing.T) {
	backend := loginBackend(t, http.StatusServiceUnavailable, `{"error":"retry later"}`)
	host := &fakeHost{payload: testPayload()}
	h := New(Config{Host: host, LoginURL: backend.URL})

	_, err := h.Run(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, StateFailed, h.State())
}

func TestHandshake_RedemptionFailureNeverAuthenticated(t *testing.T) {
	backend := loginBackend(t, http.StatusOK, `{"token":"session-token"}`)
	host := &fakeHost{payload: testPayload()}
	h := New(Config{
		Host:     host,
		LoginURL: backend.URL,
		Redeemer: RedeemerFunc(func(ctx context.Context, token string) error {
			return errors.New("identity provider rejected token")
		}),
	})

	_, err := h.Run(context.Background())
	assert.ErrorIs(t, err, ErrRedemptionFailed)
	assert.Equal(t, StateFailed, h.State())
}

func TestHandshake_BridgeLoadMemoized(t *testing.T) {
	backend := loginBackend(t, http.StatusOK, `{"token":"session-token"}`)
	host := &fakeHost{payload: testPayload()}
	h := New(Config{Host: host, LoginURL: backend.URL})

	_, err := h.Run(context.Background())
	require.NoError(t, err)
	_, err = h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), host.loadCalls.Load(), "bridge loads once across runs")
}

func TestHandshake_ConcurrentRunsShareOneBridgeLoad(t *testing.T) {
	backend := loginBackend(t, http.StatusOK, `{"token":"session-token"}`)
	host := &fakeHost{payload: testPayload()}
	h := New(Config{Host: host, LoginURL: backend.URL})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.Run(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), host.loadCalls.Load())
	assert.Equal(t, StateAuthenticated, h.State())
}

func TestHandshake_UserInitiatedRetryAfterFailure(t *testing.T) {
	host := &fakeHost{loadErr: errors.New("first load fails"), payload: testPayload()}
	backend := loginBackend(t, http.StatusOK, `{"token":"session-token"}`)
	h := New(Config{Host: host, LoginURL: backend.URL})

	_, err := h.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, StateFailed, h.State())

	// a failed load is not memoized; the user's retry loads again
	host.loadErr = nil
	session, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-token", session.Token)
	assert.Equal(t, StateAuthenticated, h.State())
	assert.Equal(t, int32(2), host.loadCalls.Load())
}
