package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/eco-buddy/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sampleProduct() models.Product {
	return models.Product{
		ProductContext: models.ProductContext{
			Name:                    "Bamboo Toothbrush (Pack of 4)",
			Price:                   "₹299",
			Currency:                "₹",
			Description:             "Biodegradable handle with charcoal bristles.",
			URL:                     "https://www.amazon.in/dp/B07XYZ1234",
			ASIN:                    "B07XYZ1234",
			Rating:                  "4.3 out of 5 stars",
			ReviewCount:             "1,024 ratings",
			SustainabilityFeatures:  []string{"Compact by design", "Plastic-free packaging"},
			SustainabilityCertified: true,
		},
		PriceValue:  299,
		RatingValue: 4.3,
	}
}

func TestSaveAndGetProduct(t *testing.T) {
	conn := openTestDB(t)
	p := sampleProduct()

	n, err := SaveProducts(context.Background(), conn, []models.Product{p})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := GetProduct(conn, p.URL)
	require.NoError(t, err)
	assert.Equal(t, p.ProductContext, got.ProductContext)
	assert.Equal(t, 299.0, got.PriceValue)
	assert.Equal(t, 4.3, got.RatingValue)
	assert.False(t, got.FirstScrapedAt.IsZero())

	_, err = GetProduct(conn, "https://www.amazon.in/dp/UNKNOWN000")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestEmbeddingLifecycle(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	p := sampleProduct()

	_, err := SaveProducts(ctx, conn, []models.Product{p})
	require.NoError(t, err)

	pending, err := GetUnembeddedProducts(conn)
	require.NoError(t, err)
	require.Contains(t, pending, p.URL)
	assert.Contains(t, pending[p.URL], "Product Name: Bamboo Toothbrush")
	assert.Contains(t, pending[p.URL], "Plastic-free packaging")

	require.NoError(t, UpdateEmbedding(conn, p.URL, []byte{1, 2, 3, 4}))

	pending, err = GetUnembeddedProducts(conn)
	require.NoError(t, err)
	assert.Empty(t, pending)

	vectors, err := GetProductVectors(conn)
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, vectors[0].Vector)
	assert.Equal(t, p.Name, vectors[0].Name)

	// A price change keeps the embedding.
	p.Price = "₹279"
	_, err = SaveProducts(ctx, conn, []models.Product{p})
	require.NoError(t, err)
	pending, err = GetUnembeddedProducts(conn)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// A new description invalidates it.
	p.Description = "Now with a travel case."
	_, err = SaveProducts(ctx, conn, []models.Product{p})
	require.NoError(t, err)
	pending, err = GetUnembeddedProducts(conn)
	require.NoError(t, err)
	assert.Contains(t, pending, p.URL)

	items, err := ListProducts(conn)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "₹279", items[0].Price)
}

func TestSearchHistory(t *testing.T) {
	conn := openTestDB(t)

	_, err := GetCachedQuery(conn, "reusable bottle")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	require.NoError(t, SaveCachedQuery(conn, "reusable bottle", []byte{9}))
	require.NoError(t, SaveCachedQuery(conn, "reusable bottle", []byte{7}), "duplicates are ignored")
	require.NoError(t, SaveCachedQuery(conn, "organic cotton", []byte{8}))

	blob, err := GetCachedQuery(conn, "reusable bottle")
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, blob)

	entries, err := ListSearchHistory(conn)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	n, err := ClearSearchHistory(conn, "organic cotton")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = ClearAllSearchHistory(conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
