package server

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/observability"
)

// recordingServerHooks captures request/response events for assertions.
type recordingServerHooks struct {
	mu        sync.Mutex
	requests  []string
	responses []int
}

func (h *recordingServerHooks) OnRequest(_ context.Context, method, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, method+" "+path)
}

func (h *recordingServerHooks) OnResponse(_ context.Context, _, _ string, statusCode int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, statusCode)
}

func TestObserveMiddlewareReportsHooks(t *testing.T) {
	hooks := &recordingServerHooks{}
	observability.SetServerHooks(hooks)
	defer observability.Reset()

	s := newTestServer(t, nil)
	do(t, s, http.MethodGet, "/healthz", "")
	do(t, s, http.MethodGet, "/api/v1/best/2x2/towerbloxx", "")

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.requests) != 2 || hooks.requests[0] != "GET /healthz" {
		t.Errorf("requests = %v", hooks.requests)
	}
	if len(hooks.responses) != 2 || hooks.responses[0] != http.StatusOK {
		t.Errorf("responses = %v", hooks.responses)
	}
	if hooks.responses[1] != http.StatusServiceUnavailable {
		t.Errorf("second response = %d, want 503 for /best without a store", hooks.responses[1])
	}
}
