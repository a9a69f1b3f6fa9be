package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mholtzmann/qualys-api-client/internal/testutil"
	"github.com/mholtzmann/qualys-api-client/pkg/auth"
	"github.com/mholtzmann/qualys-api-client/pkg/cache"
	"github.com/mholtzmann/qualys-api-client/pkg/client"
	"github.com/mholtzmann/qualys-api-client/pkg/paginate"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// TestFullRequestFlow tests the complete flow: dispatch → rate limit update →
// cache store → cache hit on the second call.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockQualys()
	defer mock.Close()
	mock.SetResponse("/pm/v3/patches", testutil.MockResponse{
		StatusCode: 200,
		Headers: map[string]string{
			"Content-Type":          "application/json",
			"X-RateLimit-Limit":     "300",
			"X-RateLimit-Remaining": "299",
		},
		Body: testutil.JSONPage(1, 2),
	})

	platform := auth.Override("test", mock.URL(), mock.URL())
	creds, err := auth.NewToken(context.Background(), "apiuser", "secret", platform)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	qualysClient, err := client.New(client.Config{
		Credentials: creds,
		Cache:       cache.NewManager(redisClient, time.Minute),
	})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}

	ctx := context.Background()
	call := client.CallOptions{Params: map[string]string{"pageNumber": "0"}}

	resp, err := qualysClient.Call(ctx, "pm", "patch_list", call)
	if err != nil {
		t.Fatalf("first Call() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	state := creds.Limits().State()
	if state.Limit != 300 || state.Remaining != 299 {
		t.Errorf("rate limit state = %d/%d, want 300/299", state.Remaining, state.Limit)
	}

	endpointCalls := len(mock.RequestsTo("/pm/v3/patches"))

	// Second identical GET is served from Redis without touching the mock.
	resp2, err := qualysClient.Call(ctx, "pm", "patch_list", call)
	if err != nil {
		t.Fatalf("second Call() error = %v", err)
	}
	if string(resp2.Body) != string(resp.Body) {
		t.Errorf("cached body differs from the original")
	}
	if got := len(mock.RequestsTo("/pm/v3/patches")); got != endpointCalls {
		t.Errorf("requests = %d, want %d (cache hit)", got, endpointCalls)
	}
}

// TestShardedPullEndToEnd runs a sharded listing against the mock with the
// cache enabled: chunk pages land in one collection with no duplicates.
func TestShardedPullEndToEnd(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockQualys()
	defer mock.Close()
	mock.SetHandler("/api/2.0/fo/asset/host/", func(w http.ResponseWriter, r *http.Request) {
		ids, err := paginate.ParseIDSet(r.URL.Query().Get("ids"))
		if err != nil || len(ids) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, testutil.XMLPage(int(ids[0]), int(ids[len(ids)-1]), 0))
	})

	platform := auth.Override("test", mock.URL(), mock.URL())
	qualysClient, err := client.New(client.Config{
		Credentials: auth.NewBasic("apiuser", "secret", platform),
		Cache:       cache.NewManager(redisClient, time.Minute),
	})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}

	engine := paginate.New(qualysClient)
	out, err := engine.FetchSharded(context.Background(), "vmdr", "host_list", paginate.ShardOptions{
		IDs:       "1-600",
		ChunkSize: 200,
		Threads:   3,
		Pagination: paginate.Options{
			Call: client.CallOptions{Params: map[string]string{"action": "list"}},
		},
	})
	if err != nil {
		t.Fatalf("FetchSharded() error = %v", err)
	}
	if out.Len() != 600 {
		t.Errorf("records = %d, want 600 unique", out.Len())
	}
}
