package supabase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trajet.transportbi.org/internal/clock"
	"trajet.transportbi.org/internal/session"
)

func authBackend(t *testing.T) (*fakeBackend, *Auth, *session.MemoryStore, *clock.MockClock) {
	t.Helper()
	fb, c := newFakeBackend(t, func(w http.ResponseWriter, r recordedRequest) {
		switch {
		case r.Path == "/auth/v1/token" && r.Query.Get("grant_type") == "password":
			if r.Body["password"] != "secret123" {
				writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600,"user":{"id":"u1","email":"admin@trajet.bi"}}`)
		case r.Path == "/auth/v1/token" && r.Query.Get("grant_type") == "refresh_token":
			if r.Body["refresh_token"] != "rt-1" {
				writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"access_token":"at-2","refresh_token":"rt-2","expires_in":3600,"user":{"id":"u1","email":"admin@trajet.bi"}}`)
		case r.Path == "/auth/v1/signup":
			if r.Body["email"] == "admin@trajet.bi" {
				writeJSON(w, http.StatusUnprocessableEntity, `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"id":"u2","email":"new@trajet.bi"}`)
		case r.Path == "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		case r.Path == "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer at-1" {
				writeJSON(w, http.StatusUnauthorized, `{"code":401,"msg":"invalid JWT"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"id":"u1","email":"admin@trajet.bi"}`)
		default:
			writeJSON(w, http.StatusNotFound, `{}`)
		}
	})
	store := &session.MemoryStore{}
	clk := clock.NewMockClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	return fb, NewAuth(c, store, clk), store, clk
}

func TestSignInPersistsAndPublishes(t *testing.T) {
	_, auth, store, clk := authBackend(t)
	var events []session.EventKind
	unsubscribe := auth.Subscribe(func(ev session.AuthEvent) { events = append(events, ev.Kind) })
	defer unsubscribe()

	s, err := auth.SignIn(context.Background(), "admin@trajet.bi", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "at-1", s.AccessToken)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, clk.Now().Add(time.Hour), s.ExpiresAt)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "at-1", saved.AccessToken)
	assert.Equal(t, []session.EventKind{session.EventSignedIn}, events)
}

func TestSignInWrongPassword(t *testing.T) {
	_, auth, store, _ := authBackend(t)

	_, err := auth.SignIn(context.Background(), "admin@trajet.bi", "nope")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)

	saved, _ := store.Load()
	assert.Nil(t, saved)
}

func TestSignUp(t *testing.T) {
	_, auth, _, _ := authBackend(t)

	s, err := auth.SignUp(context.Background(), "new@trajet.bi", "secret123")
	require.NoError(t, err)
	assert.Nil(t, s, "confirmation pending")

	_, err = auth.SignUp(context.Background(), "admin@trajet.bi", "secret123")
	assert.ErrorIs(t, err, session.ErrUserExists)
}

func TestCurrentSessionRefreshesExpiredToken(t *testing.T) {
	_, auth, store, clk := authBackend(t)
	_, err := auth.SignIn(context.Background(), "admin@trajet.bi", "secret123")
	require.NoError(t, err)

	s, err := auth.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-1", s.AccessToken)

	clk.Advance(2 * time.Hour)
	s, err = auth.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "at-2", s.AccessToken)

	saved, _ := store.Load()
	assert.Equal(t, "rt-2", saved.RefreshToken)
}

func TestCurrentSessionDropsUnrefreshableSession(t *testing.T) {
	_, auth, store, clk := authBackend(t)
	require.NoError(t, store.Save(&session.Session{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		ExpiresAt:    clk.Now().Add(-time.Minute),
	}))

	s, err := auth.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)

	saved, _ := store.Load()
	assert.Nil(t, saved)
}

func TestSignOutClearsStore(t *testing.T) {
	fb, auth, store, _ := authBackend(t)
	_, err := auth.SignIn(context.Background(), "admin@trajet.bi", "secret123")
	require.NoError(t, err)

	var got *session.AuthEvent
	unsubscribe := auth.Subscribe(func(ev session.AuthEvent) { got = &ev })
	defer unsubscribe()

	require.NoError(t, auth.SignOut(context.Background()))
	assert.Equal(t, "Bearer at-1", fb.Last().Header.Get("Authorization"))

	saved, _ := store.Load()
	assert.Nil(t, saved)
	require.NotNil(t, got)
	assert.Equal(t, session.EventSignedOut, got.Kind)
	assert.Nil(t, got.Session)
}

func TestSignOutBackendFailureStillClears(t *testing.T) {
	_, c := newFakeBackend(t, func(w http.ResponseWriter, r recordedRequest) {
		writeJSON(w, http.StatusInternalServerError, `{"msg":"boom"}`)
	})
	store := &session.MemoryStore{}
	require.NoError(t, store.Save(&session.Session{AccessToken: "at"}))
	auth := NewAuth(c, store, nil)

	err := auth.SignOut(context.Background())
	assert.Error(t, err)

	saved, _ := store.Load()
	assert.Nil(t, saved)
}

func TestUserForToken(t *testing.T) {
	_, auth, _, _ := authBackend(t)

	u, err := auth.UserForToken(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, session.User{ID: "u1", Email: "admin@trajet.bi"}, u)

	_, err = auth.UserForToken(context.Background(), "forged")
	assert.ErrorIs(t, err, session.ErrInvalidToken)

	_, err = auth.UserForToken(context.Background(), "")
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestAuthDrivesSessionContext(t *testing.T) {
	_, auth, _, _ := authBackend(t)
	sc := session.New(auth, nil, nil)
	require.NoError(t, sc.Start(context.Background()))
	defer sc.Close()

	require.NoError(t, sc.SignIn(context.Background(), "admin@trajet.bi", "secret123"))
	assert.Equal(t, "admin@trajet.bi", sc.User().Email)

	require.NoError(t, sc.SignOut(context.Background()))
	assert.Nil(t, sc.User())
}
