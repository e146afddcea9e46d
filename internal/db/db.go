package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import for side-effects only
	"github.com/rotisserie/eris"

	"mspro-labs/eco-buddy/internal/models"
)

// Connect opens a connection to the SQLite database and ensures the schema exists.
// It automatically applies recommended settings for concurrency (WAL mode).
func Connect(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, eris.Wrap(err, "db: create data directory")
		}
	}

	// Use robust connection settings to prevent "database locked" errors
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "db: open database")
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		return nil, eris.Wrap(err, "db: ping database")
	}

	if err = createSchema(db); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "db: ensure schema")
	}

	return db, nil
}

// createSchema is private as it's only called by Connect.
func createSchema(db *sql.DB) error {
	productTable := `
	CREATE TABLE IF NOT EXISTS product (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  url TEXT UNIQUE NOT NULL,
	  asin TEXT,
	  name TEXT,
	  price TEXT,
	  price_value REAL,
	  currency TEXT,
	  description TEXT,
	  rating TEXT,
	  rating_value REAL,
	  review_count TEXT,
	  sustainability_features TEXT,
	  sustainability_certified INTEGER DEFAULT 0,
	  first_scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  last_scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  description_embedding BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_product_url ON product(url);
	CREATE INDEX IF NOT EXISTS idx_product_asin ON product(asin);
	`
	if _, err := db.Exec(productTable); err != nil {
		return err
	}

	// Query embedding cache, shared by the CLI search and the query endpoint.
	historyTable := `
	CREATE TABLE IF NOT EXISTS search_history (
		query_text TEXT PRIMARY KEY,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(historyTable); err != nil {
		return err
	}

	return nil
}

// SaveProducts performs a batch UPSERT keyed by URL. Embeddings are reset
// when the description text changes so the embedder picks them up again.
func SaveProducts(ctx context.Context, db *sql.DB, items []models.Product) (int64, error) {
	upsertSQL := `
	INSERT INTO product (
	  url, asin, name, price, price_value, currency, description, rating, rating_value,
	  review_count, sustainability_features, sustainability_certified, last_scraped_at
	) VALUES (
	  ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP
	) ON CONFLICT(url) DO UPDATE SET
	  asin = excluded.asin,
	  name = excluded.name,
	  price = excluded.price,
	  price_value = excluded.price_value,
	  currency = excluded.currency,
	  description_embedding = CASE
	    WHEN product.description IS excluded.description AND product.name IS excluded.name
	    THEN product.description_embedding ELSE NULL END,
	  description = excluded.description,
	  rating = excluded.rating,
	  rating_value = excluded.rating_value,
	  review_count = excluded.review_count,
	  sustainability_features = excluded.sustainability_features,
	  sustainability_certified = excluded.sustainability_certified,
	  last_scraped_at = CURRENT_TIMESTAMP;
	`

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "db: begin")
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		tx.Rollback()
		return 0, eris.Wrap(err, "db: prepare upsert")
	}
	defer stmt.Close()

	var totalAffected int64 = 0
	for _, item := range items {
		features, err := json.Marshal(item.SustainabilityFeatures)
		if err != nil {
			tx.Rollback()
			return 0, eris.Wrap(err, "db: encode features")
		}
		res, err := stmt.ExecContext(ctx,
			item.URL,
			nullString(item.ASIN),
			nullString(item.Name),
			nullString(item.Price),
			sql.NullFloat64{Float64: item.PriceValue, Valid: item.PriceValue > 0},
			nullString(item.Currency),
			nullString(item.Description),
			nullString(item.Rating),
			sql.NullFloat64{Float64: item.RatingValue, Valid: item.RatingValue > 0},
			nullString(item.ReviewCount),
			string(features),
			item.SustainabilityCertified,
		)
		if err != nil {
			tx.Rollback()
			return 0, eris.Wrapf(err, "db: upsert %s", item.URL)
		}
		rows, _ := res.RowsAffected()
		totalAffected += rows
	}

	if err = tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "db: commit")
	}

	return totalAffected, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const productColumns = `url, asin, name, price, price_value, currency, description, rating,
	rating_value, review_count, sustainability_features, sustainability_certified,
	first_scraped_at, last_scraped_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner, extra ...any) (models.Product, error) {
	var (
		p                                 models.Product
		asin, name, price, currency, desc sql.NullString
		rating, reviewCount, features     sql.NullString
		priceValue, ratingValue           sql.NullFloat64
	)
	dest := []any{&p.URL, &asin, &name, &price, &priceValue, &currency, &desc, &rating,
		&ratingValue, &reviewCount, &features, &p.SustainabilityCertified,
		&p.FirstScrapedAt, &p.LastScrapedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return p, err
	}
	p.ASIN, p.Name, p.Price, p.Currency = asin.String, name.String, price.String, currency.String
	p.Description, p.Rating, p.ReviewCount = desc.String, rating.String, reviewCount.String
	p.PriceValue, p.RatingValue = priceValue.Float64, ratingValue.Float64
	if features.Valid && features.String != "" {
		_ = json.Unmarshal([]byte(features.String), &p.SustainabilityFeatures)
	}
	return p, nil
}

// GetProduct returns the stored product for a URL.
func GetProduct(db *sql.DB, url string) (models.Product, error) {
	row := db.QueryRow(`SELECT `+productColumns+` FROM product WHERE url = ?`, url)
	return scanProduct(row)
}

// ListProducts returns every stored product, newest first.
func ListProducts(db *sql.DB) ([]models.Product, error) {
	rows, err := db.Query(`SELECT ` + productColumns + ` FROM product ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Product
	for rows.Next() {
		if p, err := scanProduct(rows); err == nil {
			items = append(items, p)
		}
	}
	return items, rows.Err()
}

// --- Embedding & Search Helpers ---

// GetUnembeddedProducts returns a map of URL -> text to embed for products missing embeddings.
func GetUnembeddedProducts(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT ` + productColumns + ` FROM product WHERE description_embedding IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[string]string)
	for rows.Next() {
		if p, err := scanProduct(rows); err == nil {
			results[p.URL] = EmbeddingText(p)
		}
	}
	return results, rows.Err()
}

// EmbeddingText combines the descriptive fields of a product for a richer embedding.
func EmbeddingText(p models.Product) string {
	text := fmt.Sprintf("Product Name: %s\nDescription: %s", p.Name, p.Description)
	if len(p.SustainabilityFeatures) > 0 {
		text += "\nSustainability: "
		for i, f := range p.SustainabilityFeatures {
			if i > 0 {
				text += "; "
			}
			text += f
		}
	}
	return text
}

// UpdateEmbedding saves the generated vector blob for a specific product URL.
func UpdateEmbedding(db *sql.DB, url string, embedding []byte) error {
	_, err := db.Exec("UPDATE product SET description_embedding = ? WHERE url = ?", embedding, url)
	return err
}

// ProductVector pairs a stored product with its embedding.
type ProductVector struct {
	models.Product
	Vector []byte
}

// GetProductVectors returns all products that have embeddings.
func GetProductVectors(db *sql.DB) ([]ProductVector, error) {
	rows, err := db.Query(`SELECT ` + productColumns + `, description_embedding FROM product WHERE description_embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ProductVector
	for rows.Next() {
		var pv ProductVector
		p, err := scanProduct(rows, &pv.Vector)
		if err != nil {
			continue
		}
		pv.Product = p
		results = append(results, pv)
	}
	return results, rows.Err()
}

// GetCachedQuery tries to find a previously searched query vector.
func GetCachedQuery(db *sql.DB, text string) ([]byte, error) {
	var blob []byte
	err := db.QueryRow("SELECT embedding FROM search_history WHERE query_text = ?", text).Scan(&blob)
	return blob, err
}

// SaveCachedQuery saves a new query and its vector to the history table.
func SaveCachedQuery(db *sql.DB, text string, blob []byte) error {
	_, err := db.Exec("INSERT OR IGNORE INTO search_history (query_text, embedding) VALUES (?, ?)", text, blob)
	return err
}

// --- History Management for search ---

type HistoryEntry struct {
	QueryText string
	CreatedAt time.Time
}

// ListSearchHistory returns all cached queries, newest first.
func ListSearchHistory(db *sql.DB) ([]HistoryEntry, error) {
	rows, err := db.Query("SELECT query_text, created_at FROM search_history ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.QueryText, &e.CreatedAt); err == nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// ClearSearchHistory removes a specific query from the cache.
func ClearSearchHistory(db *sql.DB, queryText string) (int64, error) {
	res, err := db.Exec("DELETE FROM search_history WHERE query_text = ?", queryText)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearAllSearchHistory wipes the entire cache.
func ClearAllSearchHistory(db *sql.DB) (int64, error) {
	res, err := db.Exec("DELETE FROM search_history")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
