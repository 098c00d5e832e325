// Package aura is a small client for the Neo4j Aura console API. It covers
// the instance lifecycle needed to spin up a GDS-enabled AuraDS instance for
// the walkthroughs: authenticate with tenant credentials, create an instance,
// poll it until it is running, and delete it again.
package aura

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

	"go.uber.org/zap"
)

// DefaultBaseURL is the production Aura console API endpoint.
const DefaultBaseURL = "https://api.neo4j.io"

// tokenExpirySkew is how close to expiry a token may get before it is
// refreshed.
const tokenExpirySkew = 60 * time.Second

// InstanceDetails is the summary form returned by instance listings.
type InstanceDetails struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TenantID      string `json:"tenant_id"`
	CloudProvider string `json:"cloud_provider"`
}

// InstanceSpecificDetails extends InstanceDetails with the fields returned
// when a single instance is fetched.
type InstanceSpecificDetails struct {
	InstanceDetails
	Status        string `json:"status"`
	ConnectionURL string `json:"connection_url"`
	Memory        string `json:"memory"`
}

// InstanceCreateDetails is returned from instance creation and carries the
// one-time generated credentials.
type InstanceCreateDetails struct {
	InstanceDetails
	Username      string `json:"username"`
	Password      string `json:"password"`
	ConnectionURL string `json:"connection_url"`
}

// CreateRequest describes the instance to create. Zero-valued fields fall
// back to the defaults the walkthroughs use.
type CreateRequest struct {
	Name          string
	Memory        string // default "8GB"
	Version       string // default "5"
	Region        string // default "europe-west1"
	Type          string // default "professional-ds"
	CloudProvider string // default "gcp"
}

func (r CreateRequest) withDefaults() CreateRequest {
	if r.Memory == "" {
		r.Memory = "8GB"
	}
	if r.Version == "" {
		r.Version = "5"
	}
	if r.Region == "" {
		r.Region = "europe-west1"
	}
	if r.Type == "" {
		r.Type = "professional-ds"
	}
	if r.CloudProvider == "" {
		r.CloudProvider = "gcp"
	}
	return r
}

//---

// Client talks to the Aura console API on behalf of one tenant. It manages
// the OAuth token transparently, refreshing it shortly before expiry.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          *zap.Logger

	token        string
	tokenExpires time.Time
	tenantID     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the console API endpoint, e.g. for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient overrides the HTTP client used for all requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger attaches a zap logger. Without it the client is silent.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.log = logger.Named("aura") }
}

// NewClient creates an Aura console client for the given API credentials.
func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	client := &Client{
		baseURL:      DefaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   http.DefaultClient,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CreateInstance creates a new Aura instance and returns its details,
// including the generated credential pair. The tenant is resolved from the
// API credentials; exactly one tenant is expected.
func (c *Client) CreateInstance(ctx context.Context, req CreateRequest) (*InstanceCreateDetails, error) {
	tenantID, err := c.getTenantID(ctx)
	if err != nil {
		return nil, err
	}
	req = req.withDefaults()
	body := map[string]interface{}{
		"name":           req.Name,
		"memory":         req.Memory,
		"version":        req.Version,
		"region":         req.Region,
		"type":           req.Type,
		"tenant_id":      tenantID,
		"cloud_provider": req.CloudProvider,
	}

	var details InstanceCreateDetails
	if err := c.doJSON(ctx, http.MethodPost, "/v1/instances", body, &details); err != nil {
		return nil, fmt.Errorf("could not create instance '%s': %w", req.Name, err)
	}
	c.log.Info("created instance", zap.String("id", details.ID), zap.String("name", details.Name))
	return &details, nil
}

// ListInstances returns all instances visible to the tenant.
func (c *Client) ListInstances(ctx context.Context) ([]InstanceDetails, error) {
	var instances []InstanceDetails
	if err := c.doJSON(ctx, http.MethodGet, "/v1/instances", nil, &instances); err != nil {
		return nil, fmt.Errorf("could not list instances: %w", err)
	}
	return instances, nil
}

// GetInstance fetches one instance by id. A missing instance returns
// (nil, nil), mirroring the 404 the console API responds with.
func (c *Client) GetInstance(ctx context.Context, instanceID string) (*InstanceSpecificDetails, error) {
	var details InstanceSpecificDetails
	err := c.doJSON(ctx, http.MethodGet, "/v1/instances/"+url.PathEscape(instanceID), nil, &details)
	if err != nil {
		var status *statusError
		if errors.As(err, &status) && status.code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("could not fetch instance '%s': %w", instanceID, err)
	}
	return &details, nil
}

// DeleteInstance requests deletion of an instance and returns its last
// observed details.
func (c *Client) DeleteInstance(ctx context.Context, instanceID string) (*InstanceSpecificDetails, error) {
	var details InstanceSpecificDetails
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/instances/"+url.PathEscape(instanceID), nil, &details); err != nil {
		return nil, fmt.Errorf("could not delete instance '%s': %w", instanceID, err)
	}
	c.log.Info("deleting instance", zap.String("id", instanceID))
	return &details, nil
}

// WithInstance runs fn against a freshly created instance and guarantees the
// instance is deleted again afterwards: the deletion request is issued on
// every path, also when the wait or fn fails, and survives cancellation of
// the surrounding context. A deletion failure is joined onto the returned
// error.
//
// Parameters:
//   - req: The instance to create; zero-valued fields get the defaults.
//   - pollInterval: How often to poll while waiting for RUNNING.
//   - fn: The work to run once the instance is up. Its details carry the
//     one-time generated credentials.
func (c *Client) WithInstance(ctx context.Context, req CreateRequest, pollInterval time.Duration, fn func(details *InstanceCreateDetails) error) (err error) {
	details, err := c.CreateInstance(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		if _, deleteErr := c.DeleteInstance(context.WithoutCancel(ctx), details.ID); deleteErr != nil {
			err = errors.Join(err, fmt.Errorf("could not delete instance '%s': %w", details.ID, deleteErr))
		}
	}()

	running, err := c.WaitUntilRunning(ctx, details.ID, pollInterval)
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("instance '%s' never reached RUNNING", details.ID)
	}
	return fn(details)
}

// WaitUntilRunning polls an instance until it reports RUNNING. It returns
// false without error when the instance disappears or enters DELETING, and
// an error when the context is cancelled first.
func (c *Client) WaitUntilRunning(ctx context.Context, instanceID string, pollInterval time.Duration) (bool, error) {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		instance, err := c.GetInstance(ctx, instanceID)
		if err != nil {
			return false, err
		}
		if instance == nil || instance.Status == "DELETING" {
			return false, nil
		}
		if instance.Status == "RUNNING" {
			return true, nil
		}
		c.log.Debug("instance not running yet",
			zap.String("id", instanceID), zap.String("status", instance.Status))

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

//---

// getTenantID resolves the tenant the API credentials belong to. The console
// API returns one tenant per credential pair; anything else is an error.
func (c *Client) getTenantID(ctx context.Context) (string, error) {
	if c.tenantID != "" {
		return c.tenantID, nil
	}
	var tenants []struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tenants", nil, &tenants); err != nil {
		return "", fmt.Errorf("could not resolve tenant: %w", err)
	}
	if len(tenants) != 1 {
		return "", fmt.Errorf("expected exactly 1 tenant but found %d", len(tenants))
	}
	c.tenantID = tenants[0].ID
	return c.tenantID, nil
}

// doJSON performs one authenticated request and decodes the "data" envelope
// of the response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		payload, _ := io.ReadAll(response.Body)
		return &statusError{code: response.StatusCode, body: string(payload)}
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return json.Unmarshal(envelope.Data, out)
}

// accessToken returns a valid OAuth token, fetching a fresh one when the
// cached token is missing or within the expiry skew.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.token != "" && time.Until(c.tokenExpires) > tokenExpirySkew {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	request.SetBasicAuth(c.clientID, c.clientSecret)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debug("refreshing oauth token")
	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(response.Body)
		return "", &statusError{code: response.StatusCode, body: string(payload)}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(response.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("could not decode token response: %w", err)
	}

	c.token = token.AccessToken
	c.tokenExpires = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return c.token, nil
}

//---

// statusError is an HTTP error response from the console API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("aura API returned status %d: %s", e.code, e.body)
}
