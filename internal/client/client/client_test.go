package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherchat/internal/api"
	"cipherchat/internal/common"
)

func TestHTTPClient_LoginStoresTokensAndProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/login", r.URL.Path)

		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.UserName)

		_ = json.NewEncoder(w).Encode(api.TokenResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Profile:      &api.Profile{ID: "u1", UserName: "alice"},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	profile, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, "u1", c.UserID())
	assert.Equal(t, "access-1", c.accessToken)
	assert.Equal(t, "refresh-1", c.refreshToken)
}

func TestHTTPClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(common.AccessTokenHeaderName)
		_ = json.NewEncoder(w).Encode([]*api.Profile{})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	c.accessToken = "tok"

	_, err := c.SearchProfiles(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestHTTPClient_RefreshesOnceOn401AndRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/refresh":
			var req api.RefreshRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "refresh-old", req.RefreshToken)
			_ = json.NewEncoder(w).Encode(api.TokenResponse{
				AccessToken:  "access-new",
				RefreshToken: "refresh-new",
			})
		case "/api/direct-messages/unread-count":
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "token expired"})
				return
			}
			assert.Equal(t, "Bearer access-new", r.Header.Get(common.AccessTokenHeaderName))
			_ = json.NewEncoder(w).Encode(api.UnreadCountResponse{Count: 7})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	c.accessToken = "access-expired"
	c.refreshToken = "refresh-old"

	count, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Equal(t, "refresh-new", c.refreshToken)
	assert.EqualValues(t, 2, calls)
}

func TestHTTPClient_401WithoutRefreshTokenIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.UnreadCount(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestHTTPClient_404MapsToNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.GetProfile(context.Background(), "ghost")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestHTTPClient_ConnectionFailureIsUnavailable(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1")
	_, err := c.UnreadCount(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestHTTPClient_WebsocketURL(t *testing.T) {
	c := NewHTTPClient("http://chat.example.com:8080")
	c.accessToken = "tok"

	u, err := c.WebsocketURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://chat.example.com:8080/ws?access_token=tok", u)

	c = NewHTTPClient("https://chat.example.com")
	c.accessToken = "tok"
	u, err = c.WebsocketURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://chat.example.com/ws?access_token=tok", u)
}

func TestHTTPClient_SendDirectMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/direct-messages", r.URL.Path)

		var req api.SendDirectMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.DirectMessage{
			ID:               "m1",
			RecipientID:      req.RecipientID,
			EncryptedContent: req.EncryptedContent,
			IV:               req.IV,
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	msg, err := c.SendDirectMessage(context.Background(), &api.SendDirectMessageRequest{
		RecipientID:      "u2",
		EncryptedContent: "ct|wk",
		IV:               "iv",
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "u2", msg.RecipientID)
}
