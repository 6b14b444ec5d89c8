// Package domains serves domain name suggestions and product plan
// recommendations as tools, paired with the widget templates that render
// them. It implements both the tool and resource server interfaces of the
// parent package.
package domains

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"

	"github.com/domainscope/domains-mcp"
)

// Server answers tool and resource requests from the shared catalog. The
// zero value is not usable; construct with NewServer.
type Server struct {
	catalog *Catalog
	search  *searchClient
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSearchClient overrides the upstream search configuration. Zero values
// keep the defaults.
func WithSearchClient(baseURL string, httpClient *http.Client, rng *rand.Rand) Option {
	return func(s *Server) {
		s.search = newSearchClient(baseURL, httpClient, rng)
	}
}

// WithLogger sets the logger used for request-level logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server backed by catalog.
func NewServer(catalog *Catalog, options ...Option) Server {
	s := Server{
		catalog: catalog,
	}
	for _, opt := range options {
		opt(&s)
	}
	if s.search == nil {
		s.search = newSearchClient("", nil, nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ListTools implements mcp.ToolServer.
func (s Server) ListTools(context.Context, mcp.ListToolsParams) (mcp.ListToolsResult, error) {
	return mcp.ListToolsResult{Tools: s.catalog.Tools()}, nil
}

// CallTool implements mcp.ToolServer. Arguments are validated before the tool
// name is resolved, so malformed calls never reach a backend.
func (s Server) CallTool(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	args, err := decodeSearchArgs(params.Arguments)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	entry, err := s.catalog.Entry(params.Name)
	if err != nil {
		return mcp.CallToolResult{}, err
	}

	toolInvocations.WithLabelValues(entry.ID).Inc()
	s.logger.Info("Tool call", slog.String("tool", entry.ID), slog.String("keywords", args.Keywords))

	if entry.role == roleProducts {
		category := args.Category
		if category == "" {
			category = defaultProductCategory
		}
		result := recommendProducts(category)
		summary := fmt.Sprintf("%s Found %d recommended plans for %s products",
			entry.ResponseSummary, result.TotalResults, result.Category)
		return toolResult(entry, summary, result), nil
	}

	var result SearchResult
	if entry.role == roleDomainSearchCheapest {
		result = s.search.SearchCheapest(ctx, args.Keywords)
	} else {
		result = s.search.Search(ctx, args.Keywords)
	}
	summary := fmt.Sprintf("%s Found %d domains for %q",
		entry.ResponseSummary, result.TotalResults, args.Keywords)
	return toolResult(entry, summary, result), nil
}

// ListResources implements mcp.ResourceServer.
func (s Server) ListResources(context.Context, mcp.ListResourcesParams) (mcp.ListResourcesResult, error) {
	return mcp.ListResourcesResult{Resources: s.catalog.Resources()}, nil
}

// ReadResource implements mcp.ResourceServer.
func (s Server) ReadResource(_ context.Context, params mcp.ReadResourceParams) (mcp.ReadResourceResult, error) {
	entry, err := s.catalog.EntryByURI(params.URI)
	if err != nil {
		return mcp.ReadResourceResult{}, err
	}
	return mcp.ReadResourceResult{
		Contents: []mcp.ResourceContents{
			{
				URI:      entry.ResourceURI,
				MimeType: widgetMimeType,
				Text:     entry.Body,
				Meta:     entry.meta(),
			},
		},
	}, nil
}

// ListResourceTemplates implements mcp.ResourceServer.
func (s Server) ListResourceTemplates(context.Context, mcp.ListResourceTemplatesParams) (mcp.ListResourceTemplatesResult, error) {
	return mcp.ListResourceTemplatesResult{Templates: s.catalog.ResourceTemplates()}, nil
}

// toolResult packages a tool outcome with the entry's UI metadata so the
// client can bind the payload to the right widget.
func toolResult(entry *CatalogEntry, summary string, payload any) mcp.CallToolResult {
	return mcp.CallToolResult{
		Content: []mcp.Content{
			{Type: mcp.ContentTypeText, Text: summary},
		},
		StructuredContent: payload,
		Meta:              entry.meta(),
	}
}
