package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/Domenick1991/flightbook/internal/service/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSession() *identity.Session {
	return &identity.Session{
		Token: "signed.jwt.token",
		User: domain.User{
			ID: "u1", Name: "Ana", Email: "ana@example.com", Role: domain.RoleUser,
			PasswordHash: "$2a$10$secret",
			CreatedAt:    time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestAuthHandler_register(t *testing.T) {
	mockService := &MockIdentityUseCase{}
	handler := NewAuthHandler(mockService, zap.NewNop())

	c, w := newTestContext("POST", "/auth/register", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "secret1",
	})
	mockService.On("Register", c.Request.Context(), identity.RegisterInput{
		Name: "Ana", Email: "ana@example.com", Password: "secret1",
	}).Return(testSession(), nil)

	handler.register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "signed.jwt.token", resp.Token)
	assert.Equal(t, "user", resp.User.Role)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestAuthHandler_register_EmailInUse(t *testing.T) {
	mockService := &MockIdentityUseCase{}
	handler := NewAuthHandler(mockService, zap.NewNop())

	input := identity.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"}
	c, w := newTestContext("POST", "/auth/register", map[string]string{
		"name": input.Name, "email": input.Email, "password": input.Password,
	})
	mockService.On("Register", c.Request.Context(), input).Return(nil, domain.ErrEmailInUse)

	handler.register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_login(t *testing.T) {
	testCases := []struct {
		name       string
		password   string
		session    *identity.Session
		err        error
		wantStatus int
	}{
		{name: "ok", password: "secret1", session: testSession(), wantStatus: http.StatusOK},
		{name: "wrong password", password: "nope", err: domain.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &MockIdentityUseCase{}
			handler := NewAuthHandler(mockService, zap.NewNop())

			c, w := newTestContext("POST", "/auth/login", map[string]string{"email": "ana@example.com", "password": tc.password})
			if tc.session != nil {
				mockService.On("Authenticate", c.Request.Context(), "ana@example.com", tc.password).Return(tc.session, nil)
			} else {
				mockService.On("Authenticate", c.Request.Context(), "ana@example.com", tc.password).Return(nil, tc.err)
			}

			handler.login(c)

			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestAuthHandler_login_MalformedBody(t *testing.T) {
	mockService := &MockIdentityUseCase{}
	handler := NewAuthHandler(mockService, zap.NewNop())

	c, w := newTestContext("POST", "/auth/login", "not an object")

	handler.login(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
