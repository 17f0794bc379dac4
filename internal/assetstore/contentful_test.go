package assetstore

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/uploader/internal/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestClient(t *testing.T, handler http.Handler) (*ContentfulClient, *ratelimit.Bus) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	bus := ratelimit.NewBus()
	client := NewContentfulClient(Options{
		APIBaseURL:    srv.URL,
		UploadBaseURL: srv.URL,
		RetryCount:    2,
	}, bus, testLogger())
	return client, bus
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestContentfulClient_Connect(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path == "/spaces/space/environments/master" {
			writeJSON(w, map[string]any{"sys": map[string]any{"id": "master"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	require.NoError(t, client.Connect(context.Background(), "space", "master", "tok"))
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestContentfulClient_ConnectRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.Connect(context.Background(), "space", "master", "bad")
	assert.Error(t, err)
}

// handleMethod registers handler for path and method on mux. Equivalent to the
// Go 1.22+ "METHOD /path" ServeMux pattern, but works on Go 1.21.
func handleMethod(mux *http.ServeMux, method, path string, handler http.HandlerFunc) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	})
}

func TestContentfulClient_UploadFlow(t *testing.T) {
	var polls atomic.Int64

	mux := http.NewServeMux()
	handleMethod(mux, "GET", "/spaces/space/environments/master", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"sys": map[string]any{"id": "master"}})
	})
	handleMethod(mux, "POST", "/spaces/space/uploads", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("contents"), body)
		writeJSON(w, map[string]any{"sys": map[string]any{"id": "up1"}})
	})
	handleMethod(mux, "POST", "/spaces/space/environments/master/assets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"sys": map[string]any{"id": "as1", "version": 1}})
	})
	handleMethod(mux, "PUT", "/spaces/space/environments/master/assets/as1/files/en-US/process", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.Header.Get("X-Contentful-Version"))
		w.WriteHeader(http.StatusNoContent)
	})
	handleMethod(mux, "GET", "/spaces/space/environments/master/assets/as1", func(w http.ResponseWriter, r *http.Request) {
		// First poll: still processing. Second poll: file URL present.
		if polls.Add(1) == 1 {
			writeJSON(w, map[string]any{"sys": map[string]any{"id": "as1", "version": 2}})
			return
		}
		writeJSON(w, map[string]any{
			"sys":    map[string]any{"id": "as1", "version": 2},
			"fields": map[string]any{"file": map[string]any{"en-US": map[string]any{"url": "//cdn.example.com/a.png"}}},
		})
	})
	handleMethod(mux, "PUT", "/spaces/space/environments/master/assets/as1/published", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"sys":    map[string]any{"id": "as1", "version": 3},
			"fields": map[string]any{"file": map[string]any{"en-US": map[string]any{"url": "//cdn.example.com/a.png"}}},
		})
	})

	client, bus := newTestClient(t, mux)
	ctx := context.Background()
	require.NoError(t, client.Connect(ctx, "space", "master", "tok"))

	var progress []int
	asset, err := client.CreateAsset(ctx, []byte("contents"), "a.png", "image/png", func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "as1", asset.ID)
	assert.Equal(t, []int{0, 100}, progress)

	asset, err = client.ProcessAsset(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, "//cdn.example.com/a.png", asset.URL)
	assert.GreaterOrEqual(t, polls.Load(), int64(2))

	asset, err = client.PublishAsset(ctx, asset)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/a.png", client.AssetPublicURL(asset))
	assert.Equal(t,
		"https://app.contentful.com/spaces/space/environments/master/assets/as1",
		client.AssetConsoleURL(asset, "space", "master"))

	assert.Zero(t, bus.Count(), "no throttling happened")
}

func TestContentfulClient_Observes429PerResponse(t *testing.T) {
	var hits atomic.Int64
	client, bus := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Throttle the first two attempts; the client retries internally and
		// succeeds on the third without surfacing the 429s to the caller.
		if hits.Add(1) <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, map[string]any{"sys": map[string]any{"id": "master"}})
	}))

	require.NoError(t, client.Connect(context.Background(), "space", "master", "tok"))
	assert.Equal(t, int64(2), bus.Count(), "one event per 429 response, no double counting")
}

func TestContentfulClient_TransportErrorNotCountedAsThrottle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	bus := ratelimit.NewBus()
	client := NewContentfulClient(Options{
		APIBaseURL:    srv.URL,
		UploadBaseURL: srv.URL,
		RetryCount:    1,
	}, bus, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := client.Connect(ctx, "space", "master", "tok")
	assert.Error(t, err)
	assert.Zero(t, bus.Count(), "a refused connection is not a rate-limit event")
}

func TestTagID(t *testing.T) {
	assert.Equal(t, "bulk-uploads", tagID("Bulk Uploads"))
	assert.Equal(t, "v2-assets", tagID("  V2 Assets  "))
}
