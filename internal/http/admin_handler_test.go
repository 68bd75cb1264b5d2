package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/shell-cache/internal/domain/dto"
	"github.com/guttosm/shell-cache/internal/domain/model"
)

func boolPtr(b bool) *bool { return &b }

func TestAdminHandler_StatusWithoutGeneration(t *testing.T) {
	s := newTestServer(t, defaultOptions(), DefaultRouterConfig())

	w := s.do(t, http.MethodGet, "/_cache/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.StatusResponse
	decodeData(t, w, &resp)
	assert.Equal(t, s.origin.URL, resp.Origin)
	assert.Equal(t, "memory", resp.Backend)
	assert.Nil(t, resp.Active)
	assert.Nil(t, resp.Waiting)
}

func TestAdminHandler_DeployLifecycle(t *testing.T) {
	s := newTestServer(t, defaultOptions(), DefaultRouterConfig())
	s.start(t)

	s.origin.Set("/app.js", "console.log('v2')")
	s.origin.Set("/style.css", "body{}")

	w := s.do(t, http.MethodPost, "/_cache/deploy", dto.DeployRequest{
		Version:     "v2",
		Manifest:    []string{"/", "/app.js", "/style.css"},
		SkipWaiting: boolPtr(false),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var deployed dto.DeployResponse
	decodeData(t, w, &deployed)
	assert.False(t, deployed.Activated)
	assert.Equal(t, "app-v2", deployed.Generation.StoreName)
	assert.Equal(t, model.StateInstalled, deployed.Generation.State)
	assert.Equal(t, 3, deployed.Generation.Entries)

	w = s.do(t, http.MethodGet, "/_cache/status", nil)
	var status dto.StatusResponse
	decodeData(t, w, &status)
	require.NotNil(t, status.Active)
	require.NotNil(t, status.Waiting)
	assert.Equal(t, "v1", status.Active.Version)
	assert.Equal(t, "v2", status.Waiting.Version)

	w = s.do(t, http.MethodGet, "/app.js", nil)
	assert.Equal(t, "console.log('v1')", w.Body.String())

	w = s.do(t, http.MethodPost, "/_cache/promote", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var promoted dto.DeployResponse
	decodeData(t, w, &promoted)
	assert.True(t, promoted.Activated)
	assert.Equal(t, model.StateActivated, promoted.Generation.State)
	assert.Empty(t, promoted.Warning)

	s.wait(t)

	w = s.do(t, http.MethodGet, "/_cache/stores", nil)
	var stores dto.StoresResponse
	decodeData(t, w, &stores)
	assert.Equal(t, []string{"app-v2"}, stores.Stores)

	w = s.do(t, http.MethodGet, "/app.js", nil)
	assert.Equal(t, "hit", w.Header().Get(CacheHeader))
	assert.Equal(t, "console.log('v2')", w.Body.String())
}

func TestAdminHandler_DeployErrors(t *testing.T) {
	tests := []struct {
		name         string
		body         interface{}
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "missing version",
			body:         map[string]interface{}{"manifest": []string{"/"}},
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeInvalidRequest,
		},
		{
			name:         "blank manifest entry",
			body:         dto.DeployRequest{Version: "v2", Manifest: []string{""}},
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeInvalidRequest,
		},
		{
			name:         "unsafe version",
			body:         dto.DeployRequest{Version: "../v2"},
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeInvalidRequest,
		},
		{
			name:         "manifest entry missing on origin",
			body:         dto.DeployRequest{Version: "v2", Manifest: []string{"/", "/gone.js"}},
			expectedCode: http.StatusBadGateway,
			expectedErr:  dto.ErrCodeInstallFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, defaultOptions(), DefaultRouterConfig())
			s.start(t)

			w := s.do(t, http.MethodPost, "/_cache/deploy", tt.body)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.expectedErr, decodeError(t, w).Error)

			w = s.do(t, http.MethodGet, "/_cache/stores", nil)
			var stores dto.StoresResponse
			decodeData(t, w, &stores)
			assert.Equal(t, []string{"app-v1"}, stores.Stores)
		})
	}
}

func TestAdminHandler_PromoteWithoutWaiting(t *testing.T) {
	s := newTestServer(t, defaultOptions(), DefaultRouterConfig())

	w := s.do(t, http.MethodPost, "/_cache/promote", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeConflict, decodeError(t, w).Error)
}

func TestAdminHandler_LocalizedErrors(t *testing.T) {
	s := newTestServer(t, defaultOptions(), DefaultRouterConfig())

	tests := []struct {
		name     string
		language string
		want     string
	}{
		{"default", "", "No generation is waiting"},
		{"dutch", "nl-NL", "Er wacht geen generatie"},
		{"portuguese", "pt-BR,en;q=0.5", "Nenhuma geração aguardando"},
		{"unsupported", "fr", "No generation is waiting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/_cache/promote", nil)
			if tt.language != "" {
				req.Header.Set("Accept-Language", tt.language)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Equal(t, tt.want, decodeError(t, w).Message)
		})
	}
}

func TestAdminHandler_StoreEntries(t *testing.T) {
	s := newTestServer(t, defaultOptions(), DefaultRouterConfig())
	s.start(t)

	w := s.do(t, http.MethodGet, "/_cache/stores/app-v1/entries", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.EntriesResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "app-v1", resp.Store)
	assert.Equal(t, []dto.EntryResponse{
		{Method: http.MethodGet, URL: s.origin.URL + "/"},
		{Method: http.MethodGet, URL: s.origin.URL + "/app.js"},
	}, resp.Entries)

	w = s.do(t, http.MethodGet, "/_cache/stores/app-v9/entries", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	names, err := s.registration.Stores(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"app-v1"}, names)
}

func TestAdminHandler_DeleteEntry(t *testing.T) {
	tests := []struct {
		name         string
		start        bool
		query        string
		expectedCode int
		deleted      bool
	}{
		{name: "missing url", start: true, query: "", expectedCode: http.StatusBadRequest},
		{name: "no active generation", start: false, query: "/app.js", expectedCode: http.StatusConflict},
		{name: "relative url", start: true, query: "/app.js", expectedCode: http.StatusOK, deleted: true},
		{name: "unknown url", start: true, query: "/nope.js", expectedCode: http.StatusOK, deleted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, defaultOptions(), DefaultRouterConfig())
			if tt.start {
				s.start(t)
			}

			target := "/_cache/entries"
			if tt.query != "" {
				target += "?url=" + url.QueryEscape(tt.query)
			}
			w := s.do(t, http.MethodDelete, target, nil)
			require.Equal(t, tt.expectedCode, w.Code, w.Body.String())

			if tt.expectedCode != http.StatusOK {
				return
			}
			var resp dto.DeleteEntryResponse
			decodeData(t, w, &resp)
			assert.Equal(t, tt.query, resp.URL)
			assert.Equal(t, tt.deleted, resp.Deleted)
		})
	}
}

func TestAdminHandler_APIKey(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.APIKeys = map[string]bool{"secret": true}
	s := newTestServer(t, defaultOptions(), cfg)

	w := s.do(t, http.MethodGet, "/_cache/status", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/_cache/status?api_key=secret", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/app.js", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
