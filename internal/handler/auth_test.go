package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaparena/internal/auth"
	"snaparena/internal/model"
	"snaparena/internal/service"
)

type stubLoginService struct {
	result *service.LoginResult
	err    error
	gotID  int64
}

func (s *stubLoginService) Login(ctx context.Context, p *auth.LoginPayload) (*service.LoginResult, error) {
	s.gotID = p.ID
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func okLoginResult() *service.LoginResult {
	return &service.LoginResult{
		Token: "session-token",
		Profile: &model.UserProfile{
			TelegramID: 42,
			FirstName:  "Bo",
			Balance:    1000,
		},
		Created: true,
	}
}

func newLoginRouter(svc LoginService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(svc)
	router := gin.New()
	router.POST("/api/auth/telegram", h.HandleLogin)
	router.GET("/api/auth/telegram", h.HandleLoginQuery)
	return router
}

func postLogin(t *testing.T, router *gin.Engine, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/telegram", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_LoginSuccess(t *testing.T) {
	svc := &stubLoginService{result: okLoginResult()}
	router := newLoginRouter(svc)

	w := postLogin(t, router, auth.LoginPayload{
		ID: 42, FirstName: "Bo", AuthDate: time.Now().Unix(), Hash: "aabb",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(42), svc.gotID)

	var resp struct {
		Token   string `json:"token"`
		Created bool   `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "session-token", resp.Token)
	assert.True(t, resp.Created)
}

func TestAuthHandler_LoginQueryVariant(t *testing.T) {
	svc := &stubLoginService{result: okLoginResult()}
	router := newLoginRouter(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/api/auth/telegram?id=42&first_name=Bo&auth_date=1700000000&hash=aabb", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(42), svc.gotID)
}

func TestAuthHandler_RejectedLoginIs401WithNoToken(t *testing.T) {
	router := newLoginRouter(&stubLoginService{err: service.ErrInvalidLogin})

	w := postLogin(t, router, auth.LoginPayload{
		ID: 42, FirstName: "Bo", AuthDate: time.Now().Unix(), Hash: "ffff",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "token")
}

func TestAuthHandler_StoreOutageIs503(t *testing.T) {
	router := newLoginRouter(&stubLoginService{err: errors.New("failed to upsert profile: connection refused")})

	w := postLogin(t, router, auth.LoginPayload{
		ID: 42, FirstName: "Bo", AuthDate: time.Now().Unix(), Hash: "aabb",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthHandler_IssuanceFailureIs500(t *testing.T) {
	router := newLoginRouter(&stubLoginService{err: service.ErrCredentialIssuance})

	w := postLogin(t, router, auth.LoginPayload{
		ID: 42, FirstName: "Bo", AuthDate: time.Now().Unix(), Hash: "aabb",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandler_MalformedBodyIs400(t *testing.T) {
	router := newLoginRouter(&stubLoginService{result: okLoginResult()})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/telegram", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_MalformedQueryIs400(t *testing.T) {
	router := newLoginRouter(&stubLoginService{result: okLoginResult()})

	// no hash at all must be rejected, not crash
	req := httptest.NewRequest(http.MethodGet, "/api/auth/telegram?id=42&first_name=Bo&auth_date=1700000000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
