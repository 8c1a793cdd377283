// Package httpapi implements the platform client over the platform's HTTP
// API. Every failure leaving this package is a *domain.PlatformError: the
// closed taxonomy is produced here, at the boundary, so nothing above it ever
// inspects status codes.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
	"github.com/hashicorp/go-retryablehttp"
)

type Client struct {
	baseURL string
	http    *http.Client
	clock   ports.Clock
}

var _ ports.PlatformClient = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

func WithClock(clock ports.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func NewClient(baseURL string, opts ...Option) *Client {
	retrying := retryablehttp.NewClient()
	retrying.RetryMax = 2
	retrying.Logger = nil

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    retrying.StandardClient(),
		clock:   ports.SystemClock{},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

type sessionBlob struct {
	Token string `json:"token"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) Login(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	body, err := json.Marshal(loginRequest{Username: creds.Username, Password: creds.Password})
	if err != nil {
		return domain.Session{}, domain.NewPlatformError(domain.KindAuthFailed, "encode login request", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/login", "", bytes.NewReader(body))
	if err != nil {
		return domain.Session{}, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusOK:
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return domain.Session{}, domain.NewPlatformError(domain.KindTransientNetwork, "read login response", err)
		}
		var blob sessionBlob
		if err := json.Unmarshal(payload, &blob); err != nil || blob.Token == "" {
			return domain.Session{}, domain.NewPlatformError(domain.KindAuthFailed, "malformed login response", err)
		}
		return domain.Session{
			AccountID:      domain.AccountID(creds.Username),
			Blob:           payload,
			LastVerifiedAt: c.clock.Now().UTC(),
		}, nil
	case resp.StatusCode == http.StatusForbidden && errorCode(resp) == "challenge_required":
		return domain.Session{}, domain.NewPlatformError(domain.KindAuthChallenge, "platform requires verification", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Session{}, domain.NewPlatformError(domain.KindAuthFailed, fmt.Sprintf("login rejected (%d)", resp.StatusCode), nil)
	case resp.StatusCode >= 500:
		return domain.Session{}, domain.NewPlatformError(domain.KindTransientNetwork, fmt.Sprintf("platform unavailable (%d)", resp.StatusCode), nil)
	default:
		return domain.Session{}, domain.NewPlatformError(domain.KindAuthFailed, fmt.Sprintf("unexpected login status %d", resp.StatusCode), nil)
	}
}

func (c *Client) ResolveUserID(ctx context.Context, session domain.Session, username string) (string, error) {
	token, err := tokenOf(session)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodGet, "/v1/users/by-name/"+url.PathEscape(username), token, nil)
	if err != nil {
		return "", err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.ID == "" {
			return "", domain.NewPlatformError(domain.KindPlatformRejected, "malformed lookup response", err)
		}
		return payload.ID, nil
	case http.StatusNotFound:
		return "", domain.NewPlatformError(domain.KindTargetNotFound, fmt.Sprintf("user %q not found", username), nil)
	default:
		return "", c.classify(resp, "resolve user id")
	}
}

func (c *Client) Follow(ctx context.Context, session domain.Session, userID string) error {
	return c.relationship(ctx, session, userID, "follow")
}

func (c *Client) Unfollow(ctx context.Context, session domain.Session, userID string) error {
	return c.relationship(ctx, session, userID, "unfollow")
}

func (c *Client) relationship(ctx context.Context, session domain.Session, userID, verb string) error {
	token, err := tokenOf(session)
	if err != nil {
		return err
	}

	path := "/v1/relationships/" + url.PathEscape(userID) + "/" + verb
	resp, err := c.do(ctx, http.MethodPost, path, token, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return c.classify(resp, verb)
}

// classify maps a non-success authenticated response onto the taxonomy.
func (c *Client) classify(resp *http.Response, op string) error {
	code := errorCode(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized, code == "login_required":
		return domain.NewPlatformError(domain.KindSessionInvalidated, op+": login required", nil)
	case resp.StatusCode >= 500:
		return domain.NewPlatformError(domain.KindTransientNetwork, fmt.Sprintf("%s: platform unavailable (%d)", op, resp.StatusCode), nil)
	default:
		detail := fmt.Sprintf("%s: rejected (%d)", op, resp.StatusCode)
		if code != "" {
			detail = fmt.Sprintf("%s: %s (%d)", op, code, resp.StatusCode)
		}
		return domain.NewPlatformError(domain.KindPlatformRejected, detail, nil)
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, domain.NewPlatformError(domain.KindTransientNetwork, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewPlatformError(domain.KindTransientNetwork, "", err)
	}

	return resp, nil
}

func tokenOf(session domain.Session) (string, error) {
	var blob sessionBlob
	if err := json.Unmarshal(session.Blob, &blob); err != nil || blob.Token == "" {
		return "", domain.NewPlatformError(domain.KindSessionInvalidated, "session blob is unusable", err)
	}

	return blob.Token, nil
}

func errorCode(resp *http.Response) string {
	var payload apiError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Error
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
