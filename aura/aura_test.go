package aura

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// consoleStub fakes the Aura console API endpoints the client touches.
type consoleStub struct {
	t *testing.T

	tokenRequests  atomic.Int64
	instanceStatus atomic.Value // string
	deleted        atomic.Bool
}

func newConsoleStub(t *testing.T) (*consoleStub, *httptest.Server) {
	stub := &consoleStub{t: t}
	stub.instanceStatus.Store("CREATING")
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	return stub, server
}

func (s *consoleStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/oauth/token":
		s.tokenRequests.Add(1)
		user, pass, ok := r.BasicAuth()
		require.True(s.t, ok)
		assert.Equal(s.t, "client-id", user)
		assert.Equal(s.t, "client-secret", pass)
		s.writeJSON(w, map[string]interface{}{
			"access_token": "token-123",
			"expires_in":   3600,
			"token_type":   "bearer",
		})

	case r.URL.Path == "/v1/tenants":
		s.requireAuth(r)
		s.writeJSON(w, map[string]interface{}{
			"data": []map[string]string{{"id": "tenant-1"}},
		})

	case r.URL.Path == "/v1/instances" && r.Method == http.MethodPost:
		s.requireAuth(r)
		var body map[string]interface{}
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(s.t, "tenant-1", body["tenant_id"])
		assert.Equal(s.t, "professional-ds", body["type"])
		assert.Equal(s.t, "8GB", body["memory"])
		s.writeJSON(w, map[string]interface{}{
			"data": map[string]string{
				"id":             "inst-1",
				"name":           body["name"].(string),
				"tenant_id":      "tenant-1",
				"cloud_provider": "gcp",
				"username":       "neo4j",
				"password":       "generated-pass",
				"connection_url": "neo4j+s://inst-1.databases.neo4j.io",
			},
		})

	case r.URL.Path == "/v1/instances/inst-1" && r.Method == http.MethodGet:
		s.requireAuth(r)
		if s.deleted.Load() {
			http.NotFound(w, r)
			return
		}
		s.writeJSON(w, map[string]interface{}{
			"data": map[string]string{
				"id":             "inst-1",
				"name":           "walkthrough",
				"tenant_id":      "tenant-1",
				"cloud_provider": "gcp",
				"status":         s.instanceStatus.Load().(string),
				"connection_url": "neo4j+s://inst-1.databases.neo4j.io",
				"memory":         "8GB",
			},
		})

	case r.URL.Path == "/v1/instances/inst-1" && r.Method == http.MethodDelete:
		s.requireAuth(r)
		s.deleted.Store(true)
		s.writeJSON(w, map[string]interface{}{
			"data": map[string]string{
				"id":        "inst-1",
				"name":      "walkthrough",
				"tenant_id": "tenant-1",
				"status":    "DELETING",
				"memory":    "8GB",
			},
		})

	default:
		http.NotFound(w, r)
	}
}

func (s *consoleStub) requireAuth(r *http.Request) {
	assert.Equal(s.t, "Bearer token-123", r.Header.Get("Authorization"))
}

func (s *consoleStub) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(s.t, json.NewEncoder(w).Encode(payload))
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient("client-id", "client-secret", WithBaseURL(server.URL))
}

func TestCreateInstance(t *testing.T) {
	_, server := newConsoleStub(t)
	client := newTestClient(server)

	details, err := client.CreateInstance(context.Background(), CreateRequest{Name: "walkthrough"})

	require.NoError(t, err)
	assert.Equal(t, "inst-1", details.ID)
	assert.Equal(t, "walkthrough", details.Name)
	assert.Equal(t, "neo4j", details.Username)
	assert.Equal(t, "generated-pass", details.Password)
	assert.Equal(t, "neo4j+s://inst-1.databases.neo4j.io", details.ConnectionURL)
}

func TestTokenIsReusedAcrossRequests(t *testing.T) {
	stub, server := newConsoleStub(t)
	client := newTestClient(server)
	ctx := context.Background()

	_, err := client.CreateInstance(ctx, CreateRequest{Name: "walkthrough"})
	require.NoError(t, err)
	_, err = client.GetInstance(ctx, "inst-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), stub.tokenRequests.Load())
}

func TestGetInstanceMissingReturnsNil(t *testing.T) {
	stub, server := newConsoleStub(t)
	stub.deleted.Store(true)
	client := newTestClient(server)

	details, err := client.GetInstance(context.Background(), "inst-1")

	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestWaitUntilRunning(t *testing.T) {
	stub, server := newConsoleStub(t)
	client := newTestClient(server)

	// Flip the instance to RUNNING shortly after the wait begins.
	go func() {
		time.Sleep(30 * time.Millisecond)
		stub.instanceStatus.Store("RUNNING")
	}()

	running, err := client.WaitUntilRunning(context.Background(), "inst-1", 10*time.Millisecond)

	require.NoError(t, err)
	assert.True(t, running)
}

func TestWaitUntilRunningStopsOnDeletingInstance(t *testing.T) {
	stub, server := newConsoleStub(t)
	stub.instanceStatus.Store("DELETING")
	client := newTestClient(server)

	running, err := client.WaitUntilRunning(context.Background(), "inst-1", 10*time.Millisecond)

	require.NoError(t, err)
	assert.False(t, running)
}

func TestWaitUntilRunningHonorsContext(t *testing.T) {
	_, server := newConsoleStub(t)
	client := newTestClient(server)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.WaitUntilRunning(ctx, "inst-1", 10*time.Millisecond)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithInstanceRunsBodyAndDeletes(t *testing.T) {
	stub, server := newConsoleStub(t)
	stub.instanceStatus.Store("RUNNING")
	client := newTestClient(server)

	var seen *InstanceCreateDetails
	err := client.WithInstance(context.Background(), CreateRequest{Name: "walkthrough"}, 10*time.Millisecond,
		func(details *InstanceCreateDetails) error {
			seen = details
			return nil
		})

	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "inst-1", seen.ID)
	assert.Equal(t, "generated-pass", seen.Password)
	assert.True(t, stub.deleted.Load())
}

func TestWithInstanceDeletesWhenBodyFails(t *testing.T) {
	stub, server := newConsoleStub(t)
	stub.instanceStatus.Store("RUNNING")
	client := newTestClient(server)

	bodyErr := errors.New("connection refused")
	err := client.WithInstance(context.Background(), CreateRequest{Name: "walkthrough"}, 10*time.Millisecond,
		func(*InstanceCreateDetails) error { return bodyErr })

	assert.ErrorIs(t, err, bodyErr)
	assert.True(t, stub.deleted.Load())
}

func TestWithInstanceDeletesWhenWaitFails(t *testing.T) {
	// The instance never leaves CREATING; the context expires during the
	// wait. The deletion request must still go out, on a context that
	// outlives the expired one.
	stub, server := newConsoleStub(t)
	client := newTestClient(server)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	bodyRan := false
	err := client.WithInstance(ctx, CreateRequest{Name: "walkthrough"}, 10*time.Millisecond,
		func(*InstanceCreateDetails) error {
			bodyRan = true
			return nil
		})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, bodyRan)
	assert.True(t, stub.deleted.Load())
}

func TestDeleteInstance(t *testing.T) {
	stub, server := newConsoleStub(t)
	client := newTestClient(server)

	details, err := client.DeleteInstance(context.Background(), "inst-1")

	require.NoError(t, err)
	assert.Equal(t, "DELETING", details.Status)
	assert.True(t, stub.deleted.Load())
}
