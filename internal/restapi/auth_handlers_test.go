package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpAndSignIn(t *testing.T) {
	api := createTestApi(t)
	server := serveAPI(t, api)
	creds := map[string]string{"email": "ange@example.bi", "password": testPassword}

	resp, model := callAPI(t, server, http.MethodPost, "/api/auth/sign-up?key=TEST", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, http.StatusCreated, model.Code)
	sess := entryOf(t, model)["session"].(map[string]any)
	assert.NotEmpty(t, sess["access_token"])
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))

	t.Run("duplicate sign-up", func(t *testing.T) {
		resp, _ := callAPI(t, server, http.MethodPost, "/api/auth/sign-up?key=TEST", "", creds)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("sign-in", func(t *testing.T) {
		resp, model := callAPI(t, server, http.MethodPost, "/api/auth/sign-in?key=TEST", "", creds)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		sess := entryOf(t, model)["session"].(map[string]any)
		user := sess["user"].(map[string]any)
		assert.Equal(t, "ange@example.bi", user["email"])
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, model := callAPI(t, server, http.MethodPost, "/api/auth/sign-in?key=TEST", "",
			map[string]string{"email": "ange@example.bi", "password": "nope-nope"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "invalid email or password", model.Text)
	})
}

func TestSignUpValidation(t *testing.T) {
	api := createTestApi(t)
	server := serveAPI(t, api)

	tests := []struct {
		name string
		body any
	}{
		{"missing fields", map[string]string{}},
		{"weak password", map[string]string{"email": "a@example.bi", "password": "123"}},
		{"unknown field", map[string]string{"email": "a@example.bi", "password": testPassword, "role": "admin"}},
		{"not json", []byte("email=a@example.bi")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := callAPI(t, server, http.MethodPost, "/api/auth/sign-up?key=TEST", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestMeHandler(t *testing.T) {
	api := createTestApi(t)
	server := serveAPI(t, api)
	userToken := signUp(t, api, "user@example.bi", false)
	adminToken := signUp(t, api, "admin@example.bi", true)

	t.Run("signed out", func(t *testing.T) {
		resp, _ := callAPI(t, server, http.MethodGet, "/api/auth/me?key=TEST", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bad token", func(t *testing.T) {
		resp, _ := callAPI(t, server, http.MethodGet, "/api/auth/me?key=TEST", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("regular user", func(t *testing.T) {
		resp, model := callAPI(t, server, http.MethodGet, "/api/auth/me?key=TEST", userToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		entry := entryOf(t, model)
		assert.Equal(t, false, entry["is_admin"])
		assert.Equal(t, "user@example.bi", entry["user"].(map[string]any)["email"])
	})

	t.Run("admin", func(t *testing.T) {
		_, model := callAPI(t, server, http.MethodGet, "/api/auth/me?key=TEST", adminToken, nil)
		assert.Equal(t, true, entryOf(t, model)["is_admin"])
	})
}

func TestSignOutHandler(t *testing.T) {
	api := createTestApi(t)
	server := serveAPI(t, api)
	token := signUp(t, api, "user@example.bi", false)

	resp, _ := callAPI(t, server, http.MethodPost, "/api/auth/sign-out?key=TEST", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, model := callAPI(t, server, http.MethodPost, "/api/auth/sign-out?key=TEST", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", model.Text)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", tt.header)
		got, err := bearerToken(r)
		assert.Equal(t, tt.want, got, tt.header)
		assert.Equal(t, tt.ok, err == nil, tt.header)
	}
}
