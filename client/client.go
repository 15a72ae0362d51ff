package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a gradnet server. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. A cookie jar is
// attached if the provided client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a Client for the given base URL (e.g. "https://api.gradnet.example").
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("client: base URL is required")
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}

	return c, nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gradnet: %s (%s, http %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("gradnet: http %d", e.Status)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return asAPIError(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

func asAPIError(err error, target **APIError) bool {
	for err != nil {
		if e, ok := err.(*APIError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ---- operations ----

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`

	CollegeName    *string `json:"college_name,omitempty"`
	Course         *string `json:"course,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Enrollment     *string `json:"enrollment,omitempty"`
	YearOfJoining  *int    `json:"year_of_joining,omitempty"`
	YearOfPassing  *int    `json:"year_of_passing,omitempty"`
}

// ProfileUpdate is a partial profile change; nil fields stay unchanged.
type ProfileUpdate struct {
	Name           *string `json:"name,omitempty"`
	CollegeName    *string `json:"college_name,omitempty"`
	Course         *string `json:"course,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Enrollment     *string `json:"enrollment,omitempty"`
	YearOfJoining  *int    `json:"year_of_joining,omitempty"`
	YearOfPassing  *int    `json:"year_of_passing,omitempty"`
}

// User is the public principal shape returned by the API.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	CollegeName    *string `json:"college_name,omitempty"`
	Course         *string `json:"course,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Enrollment     *string `json:"enrollment,omitempty"`
	YearOfJoining  *int    `json:"year_of_joining,omitempty"`
	YearOfPassing  *int    `json:"year_of_passing,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type userEnvelope struct {
	User User `json:"user"`
}

// Register creates an account and stores the issued cookies in the jar.
func (c *Client) Register(ctx context.Context, in RegisterInput) (User, error) {
	var out userEnvelope
	err := c.call(ctx, http.MethodPost, "/auth/register", in, &out)
	return out.User, err
}

// Login authenticates and stores the issued cookies in the jar.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	body := map[string]string{"email": email, "password": password}
	var out userEnvelope
	err := c.call(ctx, http.MethodPost, "/auth/login", body, &out)
	return out.User, err
}

// Logout ends the session. The server clears its stored refresh state and
// expires both cookies.
//
// The refresh cookie is path-scoped to the refresh endpoint and never rides
// on the logout request itself, so the jar-held value is sent in the body;
// the server then clears the stored state even when the access cookie has
// already expired.
func (c *Client) Logout(ctx context.Context) error {
	var body any
	if v := c.jarRefreshValue(); v != "" {
		body = map[string]string{"refresh_token": v}
	}
	return c.call(ctx, http.MethodPost, "/auth/logout", body, nil)
}

// jarRefreshValue reads the refresh cookie the jar would present at the
// refresh endpoint. Empty when the jar holds no live refresh cookie.
func (c *Client) jarRefreshValue() string {
	if c.http.Jar == nil {
		return ""
	}
	u, err := url.Parse(c.baseURL + "/auth/refresh")
	if err != nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == "refreshToken" {
			return ck.Value
		}
	}
	return ""
}

// Refresh forces a rotation. Normally not needed; the client refreshes
// automatically when a request returns 401.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refresh(ctx)
}

// Me returns the authenticated user's record.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out userEnvelope
	err := c.call(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out.User, err
}

// UpdateProfile applies a partial profile update.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (User, error) {
	var out userEnvelope
	err := c.call(ctx, http.MethodPut, "/auth/profile", in, &out)
	return out.User, err
}

// Profile is one directory listing entry.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	CollegeName    *string `json:"college_name,omitempty"`
	Course         *string `json:"course,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	YearOfJoining  *int    `json:"year_of_joining,omitempty"`
	YearOfPassing  *int    `json:"year_of_passing,omitempty"`
}

// SearchOptions filter a directory listing.
type SearchOptions struct {
	Query         string
	Course        string
	YearOfPassing *int
	Limit         int
	Offset        int
}

// SearchProfiles lists directory profiles.
func (c *Client) SearchProfiles(ctx context.Context, opts SearchOptions) ([]Profile, error) {
	q := url.Values{}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Course != "" {
		q.Set("course", opts.Course)
	}
	if opts.YearOfPassing != nil {
		q.Set("year_of_passing", strconv.Itoa(*opts.YearOfPassing))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/directory/profiles"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Profiles []Profile `json:"profiles"`
	}
	err := c.call(ctx, http.MethodGet, path, nil, &out)
	return out.Profiles, err
}

// GetProfile loads one directory profile.
func (c *Client) GetProfile(ctx context.Context, id string) (Profile, error) {
	var out struct {
		Profile Profile `json:"profile"`
	}
	err := c.call(ctx, http.MethodGet, "/directory/profiles/"+url.PathEscape(id), nil, &out)
	return out.Profile, err
}

// ---- transport ----

// call performs one API request with the single refresh-and-replay retry.
//
// The body is marshaled up front so the replay sends identical bytes. The
// refresh endpoint itself is never retried, and a replayed request is never
// replayed again, so the worst case is exactly two attempts plus one refresh.
func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && refreshEligible(path) {
		origErr := drainError(resp)

		if err := c.refresh(ctx); err != nil {
			// Refresh failed: surface the original 401, not the refresh error.
			return origErr
		}

		resp, err = c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}

	return decodeResponse(resp, out)
}

// refreshEligible excludes the endpoints where a 401 means bad credentials
// rather than a stale access token.
func refreshEligible(path string) bool {
	switch {
	case strings.HasPrefix(path, "/auth/login"),
		strings.HasPrefix(path, "/auth/register"),
		strings.HasPrefix(path, "/auth/refresh"):
		return false
	default:
		return true
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var rd *bytes.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}

	var req *http.Request
	var err error
	if rd != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

func (c *Client) refresh(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

func decodeResponse(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFrom(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func drainError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	return apiErrorFrom(resp)
}

func apiErrorFrom(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
