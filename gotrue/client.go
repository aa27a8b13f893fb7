package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	authui "github.com/goliatone/go-authui"
	"golang.org/x/oauth2"
)

const (
	authPrefix       = "/auth/v1"
	verificationRPC  = "/rest/v1/rpc/check_user_verification"
	defaultUserAgent = "go-authui"
)

// Config holds the identity provider connection settings.
type Config struct {
	// URL is the project base URL, e.g. https://xyz.supabase.co
	URL string
	// APIKey is the anon key sent with every request.
	APIKey string
	// ServiceKey, when set, is used for the verification RPC.
	ServiceKey string

	HTTPClient *http.Client
}

// Client talks to a GoTrue compatible auth server and implements
// authui.Provider.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
}

var _ authui.Provider = (*Client)(nil)

// New creates a new client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("gotrue: missing url")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("gotrue: invalid url: %w", err)
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gotrue: missing api key")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config:     cfg,
		baseURL:    base,
		httpClient: client,
	}, nil
}

// SignInWithPassword implements authui.SessionProvider.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*authui.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}

	var session authui.Session
	if err := c.do(ctx, "sign_in", http.MethodPost, authPrefix+"/token?grant_type=password", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignUp implements authui.SessionProvider. The server answers with either
// a bare user or a session when confirmation is disabled.
func (c *Client) SignUp(ctx context.Context, req authui.SignUpRequest) (*authui.User, error) {
	body := map[string]any{
		"email":    req.Email,
		"password": req.Password,
	}
	if len(req.Data) > 0 {
		body["data"] = req.Data
	}

	var resp signupResponse
	if err := c.do(ctx, "sign_up", http.MethodPost, withRedirect(authPrefix+"/signup", req.EmailRedirectTo), "", body, &resp); err != nil {
		return nil, err
	}
	return resp.user(), nil
}

// SignOut implements authui.SessionProvider.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, "sign_out", http.MethodPost, authPrefix+"/logout", accessToken, nil, nil)
}

// GetUser implements authui.SessionProvider.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*authui.User, error) {
	var user authui.User
	if err := c.do(ctx, "get_user", http.MethodGet, authPrefix+"/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetSession implements authui.SessionProvider with the refresh token grant.
func (c *Client) GetSession(ctx context.Context, refreshToken string) (*authui.Session, error) {
	body := map[string]any{"refresh_token": refreshToken}

	var session authui.Session
	if err := c.do(ctx, "get_session", http.MethodPost, authPrefix+"/token?grant_type=refresh_token", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ResetPasswordForEmail implements authui.SessionProvider.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	body := map[string]any{"email": email}
	return c.do(ctx, "recover", http.MethodPost, withRedirect(authPrefix+"/recover", redirectTo), "", body, nil)
}

// UpdateUser implements authui.SessionProvider.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, update authui.UserUpdate) (*authui.User, error) {
	body := map[string]any{}
	if update.Password != "" {
		body["password"] = update.Password
	}
	if len(update.Data) > 0 {
		body["data"] = update.Data
	}

	var user authui.User
	if err := c.do(ctx, "update_user", http.MethodPut, authPrefix+"/user", accessToken, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExchangeCodeForSession implements authui.CallbackProvider.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*authui.Session, error) {
	body := map[string]any{
		"auth_code":     code,
		"code_verifier": codeVerifier,
	}

	var session authui.Session
	if err := c.do(ctx, "exchange_code", http.MethodPost, authPrefix+"/token?grant_type=pkce", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// AuthorizeURL implements authui.OAuthProvider.
func (c *Client) AuthorizeURL(req authui.OAuthRequest) (string, error) {
	if req.Provider == "" {
		return "", &authui.ProviderError{Operation: "authorize", Code: "missing_provider", Message: "missing oauth provider"}
	}

	params := url.Values{"provider": {req.Provider}}
	if req.RedirectTo != "" {
		params.Set("redirect_to", req.RedirectTo)
	}
	if req.Scopes != "" {
		params.Set("scopes", req.Scopes)
	}
	if req.CodeChallenge != "" {
		params.Set("code_challenge", req.CodeChallenge)
		params.Set("code_challenge_method", "s256")
	}

	return c.baseURL + authPrefix + "/authorize?" + params.Encode(), nil
}

// IsEmailVerified implements authui.VerificationLookup through the
// check_user_verification database function.
func (c *Client) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	body := map[string]any{"user_email": email}

	var rows []struct {
		IsVerified bool `json:"is_verified"`
	}
	if err := c.do(ctx, "check_verification", http.MethodPost, verificationRPC, c.config.ServiceKey, body, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0 && rows[0].IsVerified, nil
}

// NewPKCE returns a verifier and its S256 challenge.
func NewPKCE() (verifier, challenge string) {
	verifier = oauth2.GenerateVerifier()
	return verifier, oauth2.S256ChallengeFromVerifier(verifier)
}

func (c *Client) do(ctx context.Context, operation, method, path, bearer string, in, out any) error {
	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return providerError(operation, 0, "invalid_request", "failed to encode request", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return providerError(operation, 0, "invalid_request", "failed to build request", err)
	}
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.config.APIKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providerError(operation, 0, "transport", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return providerError(operation, resp.StatusCode, "transport", "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, message := parseError(body)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return providerError(operation, resp.StatusCode, code, message, nil)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return providerError(operation, resp.StatusCode, "invalid_response", "failed to decode response", err)
	}
	return nil
}

func withRedirect(path, redirectTo string) string {
	if redirectTo == "" {
		return path
	}
	return path + "?redirect_to=" + url.QueryEscape(redirectTo)
}

// signupResponse is a user, or a session wrapping one.
type signupResponse struct {
	authui.User
	SessionUser *authui.User `json:"user,omitempty"`
}

func (r signupResponse) user() *authui.User {
	if r.SessionUser != nil && r.SessionUser.ID != "" {
		return r.SessionUser
	}
	u := r.User
	return &u
}
