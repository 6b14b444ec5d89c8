package domains

import (
	"fmt"
	"strings"

	"github.com/domainscope/domains-mcp"
)

// entryRole selects the backend action a catalog entry dispatches to.
type entryRole int

const (
	roleDomainSearch entryRole = iota
	roleDomainSearchCheapest
	roleProducts
)

// widgetMimeType is the mime type the client renderer expects for widget
// template bodies.
const widgetMimeType = "text/html+skybridge"

// CatalogEntry is the static record binding a tool to its renderable widget
// template, together with display metadata. Entries are immutable once the
// catalog is built.
type CatalogEntry struct {
	// ID is the unique tool name and map key.
	ID string
	// Title is the display name.
	Title string
	// ResourceURI identifies the associated widget template. It is not
	// guaranteed to be unique across entries; two tools may render through
	// the same template.
	ResourceURI string
	// InvokingText and InvokedText are the progress strings shown while and
	// after the tool executes.
	InvokingText string
	InvokedText  string
	// ResponseSummary is prefixed to the computed result summary.
	ResponseSummary string
	// Body is the widget template markup, loaded once at startup.
	Body string

	role entryRole
	// asset is the base name of the widget bundle on disk.
	asset string
}

// Catalog is the process-wide tool and resource registry, built once at
// startup from the fixed entry list. All lookups are read-only after
// construction.
type Catalog struct {
	entries []*CatalogEntry
	byID    map[string]*CatalogEntry
	byURI   map[string]*CatalogEntry
}

// catalogEntries is the fixed, hand-authored entry list. Order is significant
// only for display.
var catalogEntries = []CatalogEntry{
	{
		ID:              "cheap-search-domains",
		Title:           "Search Cheap Domain Names",
		ResourceURI:     "ui://widget/domain-list-fullscreen.html",
		InvokingText:    "Searching for domain names",
		InvokedText:     "Found cheap domain options for your business idea",
		ResponseSummary: "Here are some cheap domain options for your business!",
		role:            roleDomainSearchCheapest,
		asset:           "domains-list-fullscreen",
	},
	{
		ID:           "generic-search-domains",
		Title:        "Search Domain Names (List View)",
		ResourceURI:  "ui://widget/domains-list-fullscreen.html",
		InvokingText: "Searching for available domain names",
		InvokedText:  "Found domain options for your business idea",
		ResponseSummary: "Here are available domains in a detailed list view. " +
			"You can expand to see all results and cross-sell options!",
		role:  roleDomainSearch,
		asset: "domains-list-fullscreen",
	},
	{
		ID:              "list-all-products",
		Title:           "List All Products",
		ResourceURI:     "ui://widget/products-list.html",
		InvokingText:    "Finding all products",
		InvokedText:     "Found products for your business",
		ResponseSummary: "Here are some great products for your business!",
		role:            roleProducts,
		asset:           "products-list",
	},
	{
		ID:              "recommend-products",
		Title:           "Recommend Product Plans",
		ResourceURI:     "ui://widget/products-recommend.html",
		InvokingText:    "Finding recommended product plans",
		InvokedText:     "Found recommended plans for your business",
		ResponseSummary: "Here are recommended product plans for your business!",
		role:            roleProducts,
		asset:           "products-recommend",
	},
}

// NewCatalog builds the catalog, loading every entry's widget template body
// from assetsDir. It fails when any body cannot be loaded; a half-initialized
// catalog must not be served.
func NewCatalog(assetsDir string) (*Catalog, error) {
	c := &Catalog{
		byID:  make(map[string]*CatalogEntry),
		byURI: make(map[string]*CatalogEntry),
	}

	for _, e := range catalogEntries {
		entry := e

		body, err := loadWidgetBody(assetsDir, entry.asset)
		if err != nil {
			return nil, fmt.Errorf("failed to load widget body for %q: %w", entry.ID, err)
		}
		entry.Body = body

		if _, ok := c.byID[entry.ID]; ok {
			return nil, fmt.Errorf("duplicate catalog entry id %q", entry.ID)
		}

		c.entries = append(c.entries, &entry)
		c.byID[entry.ID] = &entry
		// Template URIs may be shared; the first entry wins for lookups.
		if _, ok := c.byURI[entry.ResourceURI]; !ok {
			c.byURI[entry.ResourceURI] = &entry
		}
	}

	return c, nil
}

// Entry looks up a catalog entry by tool id.
func (c *Catalog) Entry(id string) (*CatalogEntry, error) {
	entry, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mcp.ErrToolNotFound, id)
	}
	return entry, nil
}

// EntryByURI looks up a catalog entry by its template URI.
func (c *Catalog) EntryByURI(uri string) (*CatalogEntry, error) {
	entry, ok := c.byURI[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mcp.ErrResourceNotFound, uri)
	}
	return entry, nil
}

// Tools returns the tool descriptor projection of every catalog entry.
func (c *Catalog) Tools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(c.entries))
	for _, entry := range c.entries {
		tools = append(tools, mcp.Tool{
			Name:        entry.ID,
			Description: entry.description(),
			InputSchema: toolInputSchema,
			Title:       entry.Title,
			Annotations: &mcp.ToolAnnotations{
				DestructiveHint: false,
				OpenWorldHint:   false,
				ReadOnlyHint:    true,
			},
			Meta: entry.meta(),
		})
	}
	return tools
}

// Resources returns the resource descriptor projection of every catalog entry.
func (c *Catalog) Resources() []mcp.Resource {
	resources := make([]mcp.Resource, 0, len(c.entries))
	for _, entry := range c.entries {
		resources = append(resources, mcp.Resource{
			URI:         entry.ResourceURI,
			Name:        entry.Title,
			Description: fmt.Sprintf("%s widget markup", entry.Title),
			MimeType:    widgetMimeType,
			Meta:        entry.meta(),
		})
	}
	return resources
}

// ResourceTemplates returns the template descriptor projection for clients
// that request templates rather than concrete resources.
func (c *Catalog) ResourceTemplates() []mcp.ResourceTemplate {
	templates := make([]mcp.ResourceTemplate, 0, len(c.entries))
	for _, entry := range c.entries {
		templates = append(templates, mcp.ResourceTemplate{
			URITemplate: entry.ResourceURI,
			Name:        entry.Title,
			Description: fmt.Sprintf("%s widget markup", entry.Title),
			MimeType:    widgetMimeType,
			Meta:        entry.meta(),
		})
	}
	return templates
}

// description picks the tool description by keyword-matching on the entry id.
func (e *CatalogEntry) description() string {
	switch {
	case strings.Contains(e.ID, "domains"):
		return "Search for domain names based on user's business idea or request. " +
			"Pass the user's exact words in the 'keywords' parameter to preserve context."
	case strings.Contains(e.ID, "products"):
		return "Find and recommend products and services based on user's business needs. " +
			"Pass the user's exact words in the 'keywords' and 'category' parameter to preserve context."
	default:
		return "Search for services based on user's business idea or request. " +
			"Pass the user's exact words in the 'keywords' parameter to preserve context."
	}
}

// meta is the UI-binding metadata attached to every descriptor derived from
// this entry. The keys are consumed by the client renderer, never interpreted
// here.
func (e *CatalogEntry) meta() mcp.Meta {
	return mcp.Meta{
		"openai/outputTemplate":          e.ResourceURI,
		"openai/toolInvocation/invoking": e.InvokingText,
		"openai/toolInvocation/invoked":  e.InvokedText,
		"openai/widgetAccessible":        true,
		"openai/resultCanProduceWidget":  true,
	}
}
