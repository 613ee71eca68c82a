// Package registry implements the sopdrop registry REST client and the
// version resolution on top of it.
//
// The client is a thin wrapper over the fixed server contract: it attaches
// the bearer token, maps response statuses onto the typed error set
// (AuthError, NotFoundError, NetworkError, ServerError), and never retries
// on its own.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIVersion selects the API prefix below /api/.
const DefaultAPIVersion = "v1"

const (
	defaultUserAgent = "sopdrop-cli"
	defaultTimeout   = 30 * time.Second
)

// HTTPDoer is the transport the client speaks through. *http.Client
// satisfies it; tests substitute their own.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one sopdrop registry.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      HTTPDoer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

// WithAPIVersion overrides the API prefix, e.g. "v2".
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(c.baseURL, "/"+DefaultAPIVersion) + "/" + version
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// New creates a client for the given server. The token may be empty;
// auth-required calls then fail with an AuthError before any request is
// made.
func New(serverURL, token string, opts ...Option) *Client {
	client := &Client{
		baseURL:   strings.TrimRight(serverURL, "/") + "/api/" + DefaultAPIVersion,
		token:     token,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Search queries the registry for assets matching the query. The returned
// order is the server's ranking order.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]Asset, error) {
	values := url.Values{}
	values.Set("q", query)
	if opts.Context != "" {
		values.Set("context", opts.Context)
	}
	if len(opts.Tags) > 0 {
		values.Set("tags", strings.Join(opts.Tags, ","))
	}
	if opts.Limit > 0 {
		values.Set("limit", strconv.Itoa(opts.Limit))
	}

	resp, err := c.get(ctx, "assets?"+values.Encode(), false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp, fmt.Sprintf("search %q", query))
	}

	var result struct {
		Assets []Asset `json:"assets"`
		Total  int     `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response failed: %w", err)
	}
	return result.Assets, nil
}

// Info fetches the asset document for a slug (owner/name).
func (c *Client) Info(ctx context.Context, slug string) (*Asset, error) {
	resp, err := c.get(ctx, "assets/"+slug, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp, fmt.Sprintf("asset %q", slug))
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("decoding asset %q failed: %w", slug, err)
	}
	return &asset, nil
}

// Versions lists the published versions of an asset, newest first as
// reported by the server.
func (c *Client) Versions(ctx context.Context, slug string) ([]Version, error) {
	resp, err := c.get(ctx, "assets/"+slug+"/versions", false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp, fmt.Sprintf("asset %q", slug))
	}

	var result struct {
		Versions []Version `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding versions of %q failed: %w", slug, err)
	}
	return result.Versions, nil
}

// Download fetches one version's payload. A JSON content type marks a node
// package; anything else is raw HDA bytes.
func (c *Client) Download(ctx context.Context, slug, version string) (*Payload, error) {
	resp, err := c.get(ctx, "assets/"+slug+"/download/"+version, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp, fmt.Sprintf("asset %q version %q", slug, version))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: resp.Request.URL.String(), Err: err}
	}

	slog.DebugContext(ctx, "downloaded asset payload",
		slog.String("slug", slug),
		slog.String("version", version),
		slog.Int("bytes", len(data)))

	return &Payload{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// TeamAssets lists the assets shared with the given team. Requires auth.
func (c *Client) TeamAssets(ctx context.Context, teamSlug string) ([]Asset, error) {
	resp, err := c.get(ctx, "teams/"+teamSlug+"/assets", true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp, fmt.Sprintf("team %q", teamSlug))
	}

	var result struct {
		Assets []Asset `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding team assets of %q failed: %w", teamSlug, err)
	}
	return result.Assets, nil
}

// Publish uploads a node asset. Requires auth.
func (c *Client) Publish(ctx context.Context, req *PublishRequest) (*Asset, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding publish request failed: %w", err)
	}

	resp, err := c.post(ctx, "assets", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.errorFromResponse(resp, fmt.Sprintf("asset %q", req.Name))
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("decoding publish response failed: %w", err)
	}
	return &asset, nil
}

// PublishHDA uploads an HDA file together with its metadata as a multipart
// request. Requires auth.
func (c *Client) PublishHDA(ctx context.Context, req *PublishRequest, filename string, file io.Reader) (*Asset, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	meta, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding publish metadata failed: %w", err)
	}
	if err := writer.WriteField("metadata", string(meta)); err != nil {
		return nil, fmt.Errorf("writing metadata part failed: %w", err)
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating file part failed: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("writing file part failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body failed: %w", err)
	}

	resp, err := c.post(ctx, "assets/hda", writer.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.errorFromResponse(resp, fmt.Sprintf("asset %q", req.Name))
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("decoding publish response failed: %w", err)
	}
	return &asset, nil
}

// Whoami verifies the token and returns the account behind it. Requires
// auth.
func (c *Client) Whoami(ctx context.Context) (*User, error) {
	resp, err := c.get(ctx, "me", true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp, "account")
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decoding account response failed: %w", err)
	}
	return &user, nil
}

func (c *Client) get(ctx context.Context, path string, authRequired bool) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, "", nil, authRequired)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, contentType, body, true)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, authRequired bool) (*http.Response, error) {
	if authRequired && c.token == "" {
		return nil, &AuthError{Message: "no token configured, run 'sopdrop login' first"}
	}

	target := c.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s failed: %w", target, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	return resp, nil
}

// errorFromResponse translates a non-2xx response into the typed error set.
// The resource label names what was being asked for, e.g. `asset "a/b"`.
func (c *Client) errorFromResponse(resp *http.Response, resource string) error {
	message := decodeErrorMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message == "" {
			message = "registry rejected the token, run 'sopdrop login' to refresh it"
		}
		return &AuthError{Message: message}
	case http.StatusNotFound:
		return &NotFoundError{Resource: resource}
	default:
		return &ServerError{StatusCode: resp.StatusCode, Message: message}
	}
}

// decodeErrorMessage extracts the "error" field from a JSON error body.
// Bodies that are not JSON are ignored.
func decodeErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 1<<16))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Error
}
