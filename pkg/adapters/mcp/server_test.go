package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_SetAndGet(t *testing.T) {
	eng := bindery.New()
	s := NewServer(eng, nil)
	ctx := context.Background()

	var calls []any
	eng.SetContext("page", "user.name", "ada")
	eng.ObserveFunc("page", "user.name", "ui", func(v, _ any) { calls = append(calls, v) })

	resp, err := s.handleSetContext(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"owner": "page", "path": "user", "value": `{"name":"grace","age":36}`,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "grace", "age": 36}, resp.Value)
	assert.Equal(t, []any{"grace"}, calls)

	resp, err = s.handleGetContext(ctx, mcp.CallToolRequest{}, map[string]interface{}{"owner": "page", "path": "user.name"})
	require.NoError(t, err)
	assert.Equal(t, "grace", resp.Value)

	resp, err = s.handleGetContext(ctx, mcp.CallToolRequest{}, map[string]interface{}{"owner": "page"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user": map[string]any{"name": "grace", "age": 36}}, resp.Value)
}

func TestServer_Errors(t *testing.T) {
	s := NewServer(bindery.New(), nil)
	ctx := context.Background()

	_, err := s.handleGetContext(ctx, mcp.CallToolRequest{}, map[string]interface{}{"owner": "ghost"})
	assert.ErrorIs(t, err, domain.ErrContextNotFound)

	_, err = s.handleSetContext(ctx, mcp.CallToolRequest{}, map[string]interface{}{"owner": "page", "path": "a..b", "value": "1"})
	assert.Error(t, err)

	_, err = s.handleSetContext(ctx, mcp.CallToolRequest{}, map[string]interface{}{"owner": "page", "path": "a", "value": "{"})
	assert.Error(t, err)

	_, err = s.handleInspect(ctx, mcp.CallToolRequest{}, map[string]interface{}{"owner": "ghost"})
	assert.ErrorIs(t, err, domain.ErrContextNotFound)
}

func TestServer_ListInspectDispose(t *testing.T) {
	eng := bindery.New()
	s := NewServer(eng, nil)
	ctx := context.Background()

	eng.SetContext("page", "a", 1)
	eng.ObserveFunc("page", "a", "ui", func(_, _ any) {})

	owners, err := s.handleListContexts(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"page"}, owners.Owners)

	stats, err := s.handleInspect(ctx, mcp.CallToolRequest{}, map[string]interface{}{"owner": "page"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Listeners)

	text, err := s.contextsJSON()
	require.NoError(t, err)
	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	assert.Equal(t, "active", decoded["page"]["state"])

	disposed, err := s.handleDispose(ctx, mcp.CallToolRequest{}, map[string]interface{}{"owner": "ui"})
	require.NoError(t, err)
	assert.Equal(t, 1, disposed.Removed)
}
