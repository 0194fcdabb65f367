package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkorchagin/quicknotes/internal/common"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

		if creds.Password != "correct" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid username or password"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id":      "u-" + creds.UserName,
			"access_token": "tok-" + creds.UserName,
		})
	})
	mux.HandleFunc("POST /api/register", func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

		if creds.UserName == "taken" {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "username already taken"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id":      "u-" + creds.UserName,
			"access_token": "tok-" + creds.UserName,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestManager_SubscribeReplaysCurrentIdentity(t *testing.T) {
	srv := newAuthServer(t)
	m := NewManager(srv.URL)

	var replayed []*Identity
	m.Subscribe(func(id *Identity) { replayed = append(replayed, id) })

	// Before any sign-in the replay is nil.
	require.Len(t, replayed, 1)
	require.Nil(t, replayed[0])

	require.NoError(t, m.Login(context.Background(), "alice", "correct"))

	// A late subscriber sees the signed-in identity immediately.
	var late *Identity
	m.Subscribe(func(id *Identity) { late = id })
	require.NotNil(t, late)
	require.Equal(t, "u-alice", late.UserID)
}

func TestManager_LoginEmitsIdentity(t *testing.T) {
	srv := newAuthServer(t)
	m := NewManager(srv.URL)

	var events []*Identity
	m.Subscribe(func(id *Identity) { events = append(events, id) })

	require.NoError(t, m.Login(context.Background(), "alice", "correct"))
	require.Len(t, events, 2)
	require.Equal(t, "u-alice", events[1].UserID)
	require.Equal(t, "alice", events[1].UserName)
	require.Equal(t, "tok-alice", events[1].AccessToken)

	m.SignOut()
	require.Len(t, events, 3)
	require.Nil(t, events[2])
	require.Nil(t, m.Current())
}

func TestManager_BadCredentials(t *testing.T) {
	srv := newAuthServer(t)
	m := NewManager(srv.URL)

	err := m.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, common.ErrUnauthorized)
	require.Nil(t, m.Current())
}

func TestManager_RegisterConflict(t *testing.T) {
	srv := newAuthServer(t)
	m := NewManager(srv.URL)

	err := m.Register(context.Background(), "taken", "pw")
	require.ErrorIs(t, err, common.ErrUserExists)

	require.NoError(t, m.Register(context.Background(), "bob", "pw"))
	require.Equal(t, "u-bob", m.Current().UserID)
}

func TestManager_UnsubscribeStopsEvents(t *testing.T) {
	srv := newAuthServer(t)
	m := NewManager(srv.URL)

	calls := 0
	unsubscribe := m.Subscribe(func(*Identity) { calls++ })
	require.Equal(t, 1, calls)

	unsubscribe()
	require.NoError(t, m.Login(context.Background(), "alice", "correct"))
	require.Equal(t, 1, calls)
}
