package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

func TestExtractDefinitionID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid", "procrag://definitions/Defs_1/whitelists", "Defs_1"},
		{"wrong scheme", "other://definitions/Defs_1/whitelists", ""},
		{"missing suffix", "procrag://definitions/Defs_1", ""},
		{"nested path", "procrag://definitions/a/b/whitelists", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDefinitionID(tt.uri))
		})
	}
}

func TestExtractWhitelistID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid", "procrag://whitelists/wl-lane-1", "wl-lane-1"},
		{"wrong prefix", "procrag://definitions/wl-lane-1", ""},
		{"nested path", "procrag://whitelists/a/b", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractWhitelistID(tt.uri))
		})
	}
}

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
}

func TestServer_handleDefinitionsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil process service returns empty list", func(t *testing.T) {
		s := newTestServer(t, &Ports{})

		result, err := s.handleDefinitionsResource(ctx, makeReadResourceRequest("procrag://definitions"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("lists definitions", func(t *testing.T) {
		proc := &mockProcessService{defs: []domain.Definition{{
			ID:        "Defs_1",
			Name:      "dienstreise.bpmn",
			Processes: []domain.ProcessRef{{ID: "P1", Name: "Dienstreise"}},
		}}}
		s := newTestServer(t, &Ports{Process: proc})

		result, err := s.handleDefinitionsResource(ctx, makeReadResourceRequest("procrag://definitions"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var got []domain.Definition
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "Dienstreise", got[0].Processes[0].Name)
	})

	t.Run("wraps list failure", func(t *testing.T) {
		s := newTestServer(t, &Ports{Process: &mockProcessService{err: errors.New("database is locked")}})

		_, err := s.handleDefinitionsResource(ctx, makeReadResourceRequest("procrag://definitions"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing definitions")
	})
}

func TestServer_handleWhitelistResource(t *testing.T) {
	ctx := context.Background()
	wl := &mockWhitelistService{whitelists: map[string]domain.Whitelist{
		"wl-1": {ID: "wl-1", Name: "Verwaltung", ProcessID: "P1", Principals: []string{"admin"}},
	}}

	t.Run("returns whitelist", func(t *testing.T) {
		s := newTestServer(t, &Ports{Whitelist: wl})

		result, err := s.handleWhitelistResource(ctx, makeReadResourceRequest("procrag://whitelists/wl-1"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"process_id": "P1"`)
		assert.Contains(t, result.Contents[0].Text, "admin")
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		s := newTestServer(t, &Ports{Whitelist: wl})

		_, err := s.handleWhitelistResource(ctx, makeReadResourceRequest("procrag://whitelists/nope"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting whitelist")
	})

	t.Run("invalid uri", func(t *testing.T) {
		s := newTestServer(t, &Ports{Whitelist: wl})

		_, err := s.handleWhitelistResource(ctx, makeReadResourceRequest("procrag://other"))

		require.Error(t, err)
	})

	t.Run("nil whitelist service", func(t *testing.T) {
		s := newTestServer(t, &Ports{})

		_, err := s.handleWhitelistResource(ctx, makeReadResourceRequest("procrag://whitelists/wl-1"))

		require.Error(t, err)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		s := newTestServer(t, &Ports{Whitelist: &mockWhitelistService{err: errors.New("disk I/O error")}})

		_, err := s.handleWhitelistResource(ctx, makeReadResourceRequest("procrag://whitelists/wl-1"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting whitelist")
	})
}

func TestServer_handleDefinitionWhitelistsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists whitelists", func(t *testing.T) {
		wl := &mockWhitelistService{whitelists: map[string]domain.Whitelist{
			"wl-1": {ID: "wl-1", ProcessID: "P1"},
		}}
		s := newTestServer(t, &Ports{Whitelist: wl})

		result, err := s.handleDefinitionWhitelistsResource(ctx,
			makeReadResourceRequest("procrag://definitions/Defs_1/whitelists"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, "wl-1")
	})

	t.Run("empty definition", func(t *testing.T) {
		s := newTestServer(t, &Ports{Whitelist: &mockWhitelistService{}})

		result, err := s.handleDefinitionWhitelistsResource(ctx,
			makeReadResourceRequest("procrag://definitions/Defs_1/whitelists"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("invalid uri", func(t *testing.T) {
		s := newTestServer(t, &Ports{Whitelist: &mockWhitelistService{}})

		_, err := s.handleDefinitionWhitelistsResource(ctx,
			makeReadResourceRequest("procrag://definitions/Defs_1"))

		require.Error(t, err)
	})
}
