// Package client talks to the cipherchat backend: a JSON REST surface for
// commands and queries, and a websocket stream for realtime change events.
// Access tokens are attached to every request and refreshed transparently
// when the server reports expiry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"cipherchat/internal/api"
	"cipherchat/internal/common"
)

type HTTPClient struct {
	baseURL      string
	http         *http.Client
	accessToken  string
	refreshToken string
	userID       string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// UserID returns the authenticated user's ID, empty until Login succeeds.
func (c *HTTPClient) UserID() string {
	return c.userID
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+c.accessToken)
	}
	return req, nil
}

// do sends the request and decodes the response into out (when out is
// non-nil). On a 401 with a refresh token available, it refreshes the token
// pair once and retries the original request.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.refreshToken != "" && path != "/api/refresh" {
		_ = resp.Body.Close()

		if err := c.Refresh(ctx); err != nil {
			return err
		}

		req, err = c.newRequest(ctx, method, path, body)
		if err != nil {
			return err
		}
		resp, err = c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) mapError(resp *http.Response) error {
	var er api.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&er)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if er.Error != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, er.Error)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return ErrUnavailable
	default:
		if er.Error != "" {
			return fmt.Errorf("server error: %s", er.Error)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}
}

func (c *HTTPClient) Register(ctx context.Context, userName, displayName, password, publicKey string) (*api.Profile, error) {
	req := api.RegisterRequest{
		UserName:    userName,
		DisplayName: displayName,
		Password:    password,
		PublicKey:   publicKey,
	}
	var profile api.Profile
	if err := c.do(ctx, http.MethodPost, "/api/register", req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *HTTPClient) Login(ctx context.Context, userName, password string) (*api.Profile, error) {
	req := api.LoginRequest{UserName: userName, Password: password}

	var resp api.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", req, &resp); err != nil {
		return nil, err
	}

	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	if resp.Profile != nil {
		c.userID = resp.Profile.ID
	}
	return resp.Profile, nil
}

func (c *HTTPClient) Refresh(ctx context.Context) error {
	req := api.RefreshRequest{RefreshToken: c.refreshToken}

	var resp api.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/refresh", req, &resp); err != nil {
		return err
	}

	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	return nil
}

func (c *HTTPClient) GetProfile(ctx context.Context, userID string) (*api.Profile, error) {
	var profile api.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/"+url.PathEscape(userID), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *HTTPClient) SearchProfiles(ctx context.Context, query string) ([]*api.Profile, error) {
	var profiles []*api.Profile
	path := "/api/profiles/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *HTTPClient) UpdatePublicKey(ctx context.Context, publicKey string) error {
	req := struct {
		PublicKey string `json:"public_key"`
	}{PublicKey: publicKey}
	return c.do(ctx, http.MethodPut, "/api/profiles/me/public-key", req, nil)
}

func (c *HTTPClient) ListDirectMessages(ctx context.Context, peerID string) ([]*api.DirectMessage, error) {
	var messages []*api.DirectMessage
	path := "/api/direct-messages?peer=" + url.QueryEscape(peerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *HTTPClient) SendDirectMessage(ctx context.Context, req *api.SendDirectMessageRequest) (*api.DirectMessage, error) {
	var msg api.DirectMessage
	if err := c.do(ctx, http.MethodPost, "/api/direct-messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *HTTPClient) MarkRead(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodPost, "/api/direct-messages/"+url.PathEscape(messageID)+"/read", nil, nil)
}

func (c *HTTPClient) UnreadCount(ctx context.Context) (int, error) {
	var resp api.UnreadCountResponse
	if err := c.do(ctx, http.MethodGet, "/api/direct-messages/unread-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *HTTPClient) CreateGroup(ctx context.Context, req *api.CreateGroupRequest) (*api.ChatGroup, error) {
	var group api.ChatGroup
	if err := c.do(ctx, http.MethodPost, "/api/groups", req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *HTTPClient) ListGroups(ctx context.Context) ([]*api.ChatGroup, error) {
	var groups []*api.ChatGroup
	if err := c.do(ctx, http.MethodGet, "/api/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *HTTPClient) GetMembership(ctx context.Context, groupID string) (*api.GroupMember, error) {
	var member api.GroupMember
	path := "/api/groups/" + url.PathEscape(groupID) + "/membership"
	if err := c.do(ctx, http.MethodGet, path, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *HTTPClient) ListMembers(ctx context.Context, groupID string) ([]*api.GroupMember, error) {
	var members []*api.GroupMember
	path := "/api/groups/" + url.PathEscape(groupID) + "/members"
	if err := c.do(ctx, http.MethodGet, path, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *HTTPClient) AddMember(ctx context.Context, groupID string, req *api.AddMemberRequest) (*api.GroupMember, error) {
	var member api.GroupMember
	path := "/api/groups/" + url.PathEscape(groupID) + "/members"
	if err := c.do(ctx, http.MethodPost, path, req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *HTTPClient) RemoveMember(ctx context.Context, groupID, userID string) error {
	path := "/api/groups/" + url.PathEscape(groupID) + "/members/" + url.PathEscape(userID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) ListGroupMessages(ctx context.Context, groupID string) ([]*api.GroupMessage, error) {
	var messages []*api.GroupMessage
	path := "/api/groups/" + url.PathEscape(groupID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *HTTPClient) SendGroupMessage(ctx context.Context, groupID string, req *api.SendGroupMessageRequest) (*api.GroupMessage, error) {
	var msg api.GroupMessage
	path := "/api/groups/" + url.PathEscape(groupID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *HTTPClient) PresignPut(ctx context.Context) (*api.PresignPutResponse, error) {
	var resp api.PresignPutResponse
	if err := c.do(ctx, http.MethodPost, "/api/files/presign-put", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) PresignGet(ctx context.Context, storageKey string) (string, error) {
	var resp api.PresignGetResponse
	path := "/api/files/presign-get?key=" + url.QueryEscape(storageKey)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// WebsocketURL builds the realtime endpoint URL, carrying the current access
// token as a query parameter since browser-style websocket dials cannot set
// headers reliably.
func (c *HTTPClient) WebsocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", errors.New("unsupported scheme: " + u.Scheme)
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("access_token", c.accessToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
