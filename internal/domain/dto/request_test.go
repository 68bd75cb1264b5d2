package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/shell-cache/internal/domain/model"
)

func TestNewGenerationResponse(t *testing.T) {
	gen := model.Generation{Version: "v2", StoreName: "app-v2", SkipWaiting: true}
	resp := NewGenerationResponse(gen, model.StateActivated, 3)

	assert.Equal(t, "v2", resp.Version)
	assert.Equal(t, "app-v2", resp.StoreName)
	assert.Equal(t, model.StateActivated, resp.State)
	assert.Equal(t, 3, resp.Entries)
	assert.Equal(t, []string{}, resp.Manifest)
	assert.Equal(t, []string{}, resp.ExcludeHosts)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"manifest":[]`)
}

func TestNewEntriesResponse(t *testing.T) {
	resp := NewEntriesResponse("app-v1", []model.RequestIdentity{
		{Method: "GET", URL: "https://trip.example.com/"},
	})
	assert.Equal(t, "app-v1", resp.Store)
	assert.Equal(t, []EntryResponse{{Method: "GET", URL: "https://trip.example.com/"}}, resp.Entries)

	empty := NewEntriesResponse("app-v1", nil)
	assert.NotNil(t, empty.Entries)
}

func TestDeployRequest_Decode(t *testing.T) {
	var req DeployRequest
	require.NoError(t, json.Unmarshal([]byte(`{"version":"v3","manifest":["/"],"claim":false}`), &req))

	assert.Equal(t, "v3", req.Version)
	assert.Equal(t, []string{"/"}, req.Manifest)
	assert.Nil(t, req.ExcludeHosts)
	assert.Nil(t, req.SkipWaiting)
	require.NotNil(t, req.Claim)
	assert.False(t, *req.Claim)
}

func TestDeployRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     DeployRequest
		wantErr bool
		version string
	}{
		{name: "trims version", req: DeployRequest{Version: " v2 "}, version: "v2"},
		{name: "blank version", req: DeployRequest{Version: "  "}, wantErr: true},
		{name: "empty manifest entry", req: DeployRequest{Version: "v2", Manifest: []string{"/", " "}}, wantErr: true},
		{name: "empty manifest allowed", req: DeployRequest{Version: "v2", Manifest: []string{}}, version: "v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDeploy)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.version, tt.req.Version)
		})
	}
}
