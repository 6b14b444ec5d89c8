package domains

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainscope/domains-mcp"
)

// writeTestAssets populates a temp dir with the widget bundles the catalog
// expects and returns its path.
func writeTestAssets(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for name, body := range map[string]string{
		"domains-list-fullscreen.html": "<html>domains list</html>",
		"products-list.html":           "<html>products list</html>",
		"products-recommend.html":      "<html>products recommend</html>",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestNewCatalog(t *testing.T) {
	catalog, err := NewCatalog(writeTestAssets(t))
	require.NoError(t, err)

	tools := catalog.Tools()
	require.Len(t, tools, 4)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"cheap-search-domains",
		"generic-search-domains",
		"list-all-products",
		"recommend-products",
	}, names)

	for _, tool := range tools {
		assert.NotEmpty(t, tool.Title, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotEmpty(t, tool.InputSchema, tool.Name)

		require.NotNil(t, tool.Annotations, tool.Name)
		assert.True(t, tool.Annotations.ReadOnlyHint, tool.Name)
		assert.False(t, tool.Annotations.DestructiveHint, tool.Name)
		assert.False(t, tool.Annotations.OpenWorldHint, tool.Name)

		for _, key := range []string{
			"openai/outputTemplate",
			"openai/toolInvocation/invoking",
			"openai/toolInvocation/invoked",
			"openai/widgetAccessible",
			"openai/resultCanProduceWidget",
		} {
			assert.Contains(t, tool.Meta, key, tool.Name)
		}
	}
}

func TestCatalogDescriptionsByID(t *testing.T) {
	catalog, err := NewCatalog(writeTestAssets(t))
	require.NoError(t, err)

	for _, tool := range catalog.Tools() {
		switch {
		case strings.Contains(tool.Name, "domains"):
			assert.Contains(t, tool.Description, "domain names", tool.Name)
		case strings.Contains(tool.Name, "products"):
			assert.Contains(t, tool.Description, "products and services", tool.Name)
		}
	}
}

func TestCatalogLookups(t *testing.T) {
	catalog, err := NewCatalog(writeTestAssets(t))
	require.NoError(t, err)

	entry, err := catalog.Entry("recommend-products")
	require.NoError(t, err)
	assert.Equal(t, "ui://widget/products-recommend.html", entry.ResourceURI)
	assert.Equal(t, "<html>products recommend</html>", entry.Body)

	_, err = catalog.Entry("no-such-tool")
	assert.ErrorIs(t, err, mcp.ErrToolNotFound)

	byURI, err := catalog.EntryByURI("ui://widget/products-recommend.html")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, byURI.ID)

	_, err = catalog.EntryByURI("ui://widget/no-such-widget.html")
	assert.ErrorIs(t, err, mcp.ErrResourceNotFound)
}

func TestCatalogResources(t *testing.T) {
	catalog, err := NewCatalog(writeTestAssets(t))
	require.NoError(t, err)

	resources := catalog.Resources()
	require.Len(t, resources, 4)
	for _, res := range resources {
		assert.Equal(t, "text/html+skybridge", res.MimeType, res.URI)
		assert.NotEmpty(t, res.Name, res.URI)
		assert.Contains(t, res.Meta, "openai/outputTemplate", res.URI)
	}

	templates := catalog.ResourceTemplates()
	require.Len(t, templates, 4)
	for _, tpl := range templates {
		assert.Equal(t, "text/html+skybridge", tpl.MimeType, tpl.URITemplate)
	}
}

func TestNewCatalogMissingAsset(t *testing.T) {
	dir := writeTestAssets(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "products-list.html")))

	_, err := NewCatalog(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list-all-products")
}

func TestLoadWidgetBodyVersionedFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "products-list-20240101.html"), []byte("old build"), 0o600))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "products-list-20240301.html"), []byte("new build"), 0o600))

	body, err := loadWidgetBody(dir, "products-list")
	require.NoError(t, err)
	assert.Equal(t, "new build", body)
}

func TestLoadWidgetBodyPrefersExactName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "products-list.html"), []byte("exact"), 0o600))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "products-list-20240301.html"), []byte("versioned"), 0o600))

	body, err := loadWidgetBody(dir, "products-list")
	require.NoError(t, err)
	assert.Equal(t, "exact", body)
}

func TestLoadWidgetBodyNoMatch(t *testing.T) {
	_, err := loadWidgetBody(t.TempDir(), "products-list")
	require.Error(t, err)
}
