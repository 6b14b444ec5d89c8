package domains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendProductsKnownCategories(t *testing.T) {
	for _, category := range []string{"email", "website", "ssl-security"} {
		result := recommendProducts(category)

		assert.Equal(t, category, result.Category)
		require.NotEmpty(t, result.Products, category)
		assert.Equal(t, len(result.Products), result.TotalResults, category)

		for _, product := range result.Products {
			assert.Equal(t, category, product.Category, product.ID)
			assert.NotEmpty(t, product.Name, product.ID)
			assert.NotEmpty(t, product.Price, product.ID)
		}
	}
}

func TestRecommendProductsUnknownCategoryFallsBack(t *testing.T) {
	fallback := recommendProducts("unknown-category")
	email := recommendProducts("email")

	// The default product list is served, but the requested category is still
	// echoed back.
	assert.Equal(t, "unknown-category", fallback.Category)
	assert.Equal(t, email.Products, fallback.Products)
	assert.Equal(t, email.TotalResults, fallback.TotalResults)
}

func TestProductCatalogContents(t *testing.T) {
	email := recommendProducts("email")
	require.Len(t, email.Products, 3)
	assert.Equal(t, "email-essentials", email.Products[0].ID)
	assert.Equal(t, "$1.99", email.Products[0].Price)
	assert.Equal(t, "MOST POPULAR", email.Products[2].Badge)

	website := recommendProducts("website")
	require.Len(t, website.Products, 3)
	assert.Equal(t, "RECOMMENDED", website.Products[1].Badge)

	ssl := recommendProducts("ssl-security")
	require.Len(t, ssl.Products, 3)
	assert.Equal(t, "ssl-san-multi-domain", ssl.Products[2].ID)
	assert.Equal(t, "/yr", ssl.Products[2].Period)
}
