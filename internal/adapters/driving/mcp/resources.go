package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for procrag resources.
	uriScheme = "procrag://"

	jsonMIME = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "definitions",
		Name:        "definitions",
		Description: "Imported process definitions with their processes",
		MIMEType:    jsonMIME,
	}, s.handleDefinitionsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "definitions/{definitionId}/whitelists",
		Name:        "definition-whitelists",
		Description: "Whitelists of every process in a definition",
		MIMEType:    jsonMIME,
	}, s.handleDefinitionWhitelistsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "whitelists/{whitelistId}",
		Name:        "whitelist",
		Description: "A single role-scoped whitelist",
		MIMEType:    jsonMIME,
	}, s.handleWhitelistResource)
}

func (s *Server) handleDefinitionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Process == nil {
		return jsonResult(req.Params.URI, []domain.Definition{})
	}

	defs, err := s.ports.Process.Definitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing definitions: %w", err)
	}
	if defs == nil {
		defs = []domain.Definition{}
	}
	return jsonResult(req.Params.URI, defs)
}

func (s *Server) handleDefinitionWhitelistsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Whitelist == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	defID := extractDefinitionID(req.Params.URI)
	if defID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	wls, err := s.ports.Whitelist.ListForDefinition(ctx, defID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("listing whitelists: %w", err)
	}
	if wls == nil {
		wls = []domain.Whitelist{}
	}
	return jsonResult(req.Params.URI, wls)
}

func (s *Server) handleWhitelistResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Whitelist == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id := extractWhitelistID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	wl, err := s.ports.Whitelist.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting whitelist: %w", err)
	}
	return jsonResult(req.Params.URI, wl)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: jsonMIME,
			Text:     string(data),
		}},
	}, nil
}

// extractDefinitionID extracts the id from procrag://definitions/{definitionId}/whitelists.
func extractDefinitionID(uri string) string {
	const prefix = uriScheme + "definitions/"
	const suffix = "/whitelists"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractWhitelistID extracts the id from procrag://whitelists/{whitelistId}.
func extractWhitelistID(uri string) string {
	const prefix = uriScheme + "whitelists/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
