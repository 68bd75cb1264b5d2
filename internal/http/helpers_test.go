package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/shell-cache/internal/domain/dto"
	"github.com/guttosm/shell-cache/internal/network"
	"github.com/guttosm/shell-cache/internal/repository"
	"github.com/guttosm/shell-cache/internal/service"
	"github.com/guttosm/shell-cache/internal/testutil"
)

type testServer struct {
	origin       *testutil.Origin
	storage      repository.CacheStorage
	registration *service.Registration
	health       *HealthHandler
	cfg          RouterConfig
	router       *gin.Engine
}

func defaultOptions() service.Options {
	return service.Options{
		Prefix:      "app-",
		Version:     "v1",
		Manifest:    []string{"/", "/app.js"},
		SkipWaiting: true,
		Claim:       true,
	}
}

// newTestServer wires a router in front of a scripted origin that serves
// the default manifest. No generation is installed yet.
func newTestServer(t *testing.T, opts service.Options, cfg RouterConfig) *testServer {
	t.Helper()
	return newTestServerWithStorage(t, repository.NewMemoryStorage(), opts, cfg)
}

func newTestServerWithStorage(t *testing.T, storage repository.CacheStorage, opts service.Options, cfg RouterConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	origin := testutil.NewOrigin(t)
	origin.Set("/", "<html>shell v1</html>")
	origin.Set("/app.js", "console.log('v1')")

	u, err := network.ParseOrigin(origin.URL)
	require.NoError(t, err)

	registration := service.NewRegistration(storage, network.NewHTTPFetcher(u, origin.Client()), u, opts)

	health := NewHealthHandler()
	health.RegisterChecker("storage", NewStorageChecker(storage))

	router := NewRouter(NewProxyHandler(registration, nil), NewAdminHandler(registration), health, cfg)

	t.Cleanup(func() {
		_ = registration.Wait(context.Background())
	})

	return &testServer{
		origin:       origin,
		storage:      storage,
		registration: registration,
		health:       health,
		cfg:          cfg,
		router:       router,
	}
}

// forward rebuilds the router so absolute-form requests for hosts may be
// forwarded.
func (s *testServer) forward(hosts ...string) {
	s.router = NewRouter(NewProxyHandler(s.registration, hosts), NewAdminHandler(s.registration), s.health, s.cfg)
}

func (s *testServer) start(t *testing.T) {
	t.Helper()
	require.NoError(t, s.registration.Start(context.Background()))
}

func (s *testServer) wait(t *testing.T) {
	t.Helper()
	require.NoError(t, s.registration.Wait(context.Background()))
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data field of a success envelope into out.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) entryCount(t *testing.T, store string) int {
	t.Helper()
	ids, err := s.registration.StoreEntries(context.Background(), store)
	require.NoError(t, err)
	return len(ids)
}
