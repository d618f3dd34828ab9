package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]User
}

func (m *memUsers) CreateUser(ctx context.Context, email, hash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return User{}, ErrUserExists
	}
	u := User{ID: uuid.New(), Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	m.users[email] = u
	return u, nil
}

func (m *memUsers) UserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func TestSignupAndLogin(t *testing.T) {
	svc := NewService(&memUsers{users: map[string]User{}})
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Email: "founder@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	resp, err := svc.Signup(ctx, SignupRequest{Email: " Founder@Example.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "founder@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token)

	_, err = svc.Signup(ctx, SignupRequest{Email: "founder@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrUserExists)

	login, err := svc.Login(ctx, LoginRequest{Email: "FOUNDER@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
	assert.Empty(t, login.User.PasswordHash)

	_, err = svc.Login(ctx, LoginRequest{Email: "founder@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func runMiddleware(t *testing.T, header string) (*httptest.ResponseRecorder, uuid.UUID, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got uuid.UUID
	err := Middleware(func(c echo.Context) error {
		id, err := GetUserIDFromContext(c)
		got = id
		return err
	})(c)
	return rec, got, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	return he.Code
}

func TestMiddleware(t *testing.T) {
	id := uuid.New()
	token, err := GenerateToken(id)
	require.NoError(t, err)

	_, got, err := runMiddleware(t, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, _, err = runMiddleware(t, "")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, _, err = runMiddleware(t, "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, _, err = runMiddleware(t, "Bearer "+token+"x")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestMiddlewareRejectsTokensWithoutExpiry(t *testing.T) {
	secret, err := jwtSecretFromEnv()
	require.NoError(t, err)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString()}).SignedString(secret)
	require.NoError(t, err)

	_, _, err = runMiddleware(t, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestGetUserIDFromContextMissing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := GetUserIDFromContext(c)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer   abc.def ", "abc.def", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer a b", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.header)
		}
	}
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	secret, err := jwtSecretFromEnv()
	require.NoError(t, err)
	claims := jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(time.Hour).Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
