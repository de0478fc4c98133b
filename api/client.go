package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	classauth "github.com/campusware/classauth"
)

// Config carries the client settings.
type Config struct {
	// BaseURL is the backend root, e.g. "https://portal.example.edu/api".
	BaseURL string
	// Timeout bounds each request when the caller's context carries no
	// deadline. Defaults to 15s.
	Timeout time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// HTTPClient overrides the transport; nil uses a dedicated client.
	HTTPClient *http.Client
}

// Client calls the backend auth endpoints. It is stateless apart from its
// configuration and safe for concurrent use. It satisfies
// [classauth.Backend].
type Client struct {
	baseURL    string
	http       *http.Client
	userAgent  string
	instanceID string
}

const defaultTimeout = 15 * time.Second

var _ classauth.Backend = (*Client)(nil)

// New creates a Client. The per-process instance ID sent with every request
// lets the backend correlate one portal client across requests.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("api: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "classauth-client"
	}

	return &Client{
		baseURL:    base,
		http:       httpClient,
		userAgent:  userAgent,
		instanceID: uuid.NewString(),
	}, nil
}

// Login submits the user ID / password pair. The JSON login endpoint is the
// single supported contract; the historical form-encoded token endpoint is
// intentionally not used as a fallback.
func (c *Client) Login(ctx context.Context, creds classauth.Credentials) (*classauth.LoginResult, error) {
	var res classauth.LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response missing access token", classauth.ErrBackendUnavailable)
	}
	return &res, nil
}

// Register creates an account. It never logs the new user in.
func (c *Client) Register(ctx context.Context, reg classauth.Registration) (*classauth.User, error) {
	var usr classauth.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", reg, &usr); err != nil {
		return nil, err
	}
	return &usr, nil
}

// Me returns the user record the token belongs to. A 401 maps to
// [classauth.ErrSessionExpired].
func (c *Client) Me(ctx context.Context, token string) (*classauth.User, error) {
	var usr classauth.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &usr); err != nil {
		return nil, err
	}
	return &usr, nil
}

// VerifyToken asks the backend whether the token is still valid without
// fetching the user record.
func (c *Client) VerifyToken(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/verify-token", token, nil, nil)
}

// ChangePassword rotates the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, token string, change classauth.PasswordChange) error {
	return c.do(ctx, http.MethodPost, "/auth/change-password", token, change, nil)
}

// ListUsers pages through user records. Admin only on the backend side.
func (c *Client) ListUsers(ctx context.Context, token string, skip, limit int) ([]classauth.User, error) {
	path := fmt.Sprintf("/auth/users?skip=%d&limit=%d", skip, limit)
	var users []classauth.User
	if err := c.do(ctx, http.MethodGet, path, token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser fetches one user record by numeric ID.
func (c *Client) GetUser(ctx context.Context, token string, id int) (*classauth.User, error) {
	var usr classauth.User
	if err := c.do(ctx, http.MethodGet, "/auth/users/"+strconv.Itoa(id), token, nil, &usr); err != nil {
		return nil, err
	}
	return &usr, nil
}

// UpdateUser applies a partial update to a user record.
func (c *Client) UpdateUser(ctx context.Context, token string, id int, update classauth.UserUpdate) (*classauth.User, error) {
	var usr classauth.User
	if err := c.do(ctx, http.MethodPut, "/auth/users/"+strconv.Itoa(id), token, update, &usr); err != nil {
		return nil, err
	}
	return &usr, nil
}

// DeleteUser removes a user record. Admin only on the backend side.
func (c *Client) DeleteUser(ctx context.Context, token string, id int) error {
	return c.do(ctx, http.MethodDelete, "/auth/users/"+strconv.Itoa(id), token, nil, nil)
}

// Roles lists the roles the backend accepts for registration.
func (c *Client) Roles(ctx context.Context, token string) ([]classauth.RoleInfo, error) {
	var roles []classauth.RoleInfo
	if err := c.do(ctx, http.MethodGet, "/auth/roles", token, nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// Logout notifies the backend that the token is retired. Backends without a
// logout endpoint answer 404; that is treated as success since logout is
// local-first by contract.
func (c *Client) Logout(ctx context.Context, token string) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
	if errors.Is(err, classauth.ErrUserNotFound) {
		return nil
	}
	return err
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Client-Instance", c.instanceID)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", classauth.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", classauth.ErrBackendUnavailable, err)
		}
		return nil
	}

	return c.mapError(path, resp)
}

// mapError translates HTTP status codes into the kit's sentinel errors so
// callers branch with errors.Is instead of status comparisons.
func (c *Client) mapError(path string, resp *http.Response) error {
	detail := readDetail(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if strings.HasSuffix(path, "/auth/login") {
			return wrapDetail(classauth.ErrInvalidCredentials, detail)
		}
		return wrapDetail(classauth.ErrSessionExpired, detail)
	case resp.StatusCode == http.StatusForbidden:
		return wrapDetail(classauth.ErrForbidden, detail)
	case resp.StatusCode == http.StatusNotFound:
		return wrapDetail(classauth.ErrUserNotFound, detail)
	case resp.StatusCode == http.StatusConflict:
		return wrapDetail(classauth.ErrAccountExists, detail)
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return wrapDetail(classauth.ErrInvalidInput, detail)
	default:
		return wrapDetail(classauth.ErrBackendUnavailable,
			fmt.Sprintf("status %d: %s", resp.StatusCode, detail))
	}
}

func readDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Detail != "" {
		return eb.Detail
	}
	return strings.TrimSpace(string(data))
}

func wrapDetail(sentinel error, detail string) error {
	if detail == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, detail)
}
