// Package assistant answers shopping questions about the product a user is
// looking at, grounded in products the store has seen before.
package assistant

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"mspro-labs/eco-buddy/internal/config"
	"mspro-labs/eco-buddy/internal/db"
	"mspro-labs/eco-buddy/internal/models"
	"mspro-labs/eco-buddy/internal/scraper"
	"mspro-labs/eco-buddy/internal/searcher"
	"mspro-labs/eco-buddy/internal/vendors"
)

// DefaultMinScore is the cosine similarity a stored product needs to count as related.
const DefaultMinScore = 0.6

// ErrEmptyQuery is returned for blank questions.
var ErrEmptyQuery = eris.New("assistant: query is empty")

// Embedder produces vectors for queries and products.
type Embedder interface {
	EmbedString(ctx context.Context, text string) ([]byte, []float32, error)
}

// Generator produces an answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request is a question with the page it was asked on.
type Request = models.QueryRequest

// Option configures a Service.
type Option func(*Service)

// WithFetcher lets the service load pages whose context arrives without a name.
func WithFetcher(f scraper.Fetcher, sel config.Selectors) Option {
	return func(s *Service) {
		s.fetcher = f
		s.selectors = sel
	}
}

// WithCatalog sets the city and categories the answer may point to.
func WithCatalog(c *vendors.Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithMinScore overrides DefaultMinScore.
func WithMinScore(score float32) Option {
	return func(s *Service) {
		s.minScore = score
	}
}

// Service runs the query pipeline.
type Service struct {
	db        *sql.DB
	emb       Embedder
	gen       Generator
	fetcher   scraper.Fetcher
	selectors config.Selectors
	catalog   *vendors.Catalog
	minScore  float32
}

// New creates a Service.
func New(database *sql.DB, emb Embedder, gen Generator, opts ...Option) *Service {
	s := &Service{
		db:        database,
		emb:       emb,
		gen:       gen,
		selectors: config.DefaultSelectors(),
		catalog:   vendors.Default(),
		minScore:  DefaultMinScore,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer embeds the question, finds related stored products, remembers the
// current page when nothing related is known, and asks the model.
func (s *Service) Answer(ctx context.Context, req Request) (string, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return "", ErrEmptyQuery
	}

	results, err := searcher.Perform(ctx, s.db, s.emb, q)
	if err != nil {
		return "", eris.Wrap(err, "assistant: search products")
	}

	var related []models.Product
	for _, r := range results {
		if r.Score >= s.minScore && r.Item.URL != req.Context.URL {
			related = append(related, r.Item.Product)
		}
	}

	pageCtx := req.Context
	if len(related) == 0 && pageCtx.URL != "" {
		pageCtx = s.remember(ctx, pageCtx)
	}

	zap.L().Debug("answering query",
		zap.String("query", q),
		zap.Int("related", len(related)),
		zap.String("page", pageCtx.URL),
	)

	answer, err := s.gen.Generate(ctx, BuildPrompt(q, pageCtx, related, s.catalog))
	if err != nil {
		return "", eris.Wrap(err, "assistant: generate answer")
	}
	return answer, nil
}

// remember stores the page so later questions can find it. Failures are
// logged; the question is still answered from what the caller sent.
func (s *Service) remember(ctx context.Context, pc models.ProductContext) models.ProductContext {
	if pc.Name == "" && s.fetcher != nil {
		fetched, err := scraper.Run(ctx, s.fetcher, pc.URL, s.selectors)
		if err != nil {
			zap.L().Warn("could not fetch page", zap.String("url", pc.URL), zap.Error(err))
		} else {
			pc = fetched
		}
	}
	if pc.IsEmpty() {
		return pc
	}

	product := scraper.ToProduct(pc)
	if _, err := db.SaveProducts(ctx, s.db, []models.Product{product}); err != nil {
		zap.L().Warn("could not store product", zap.String("url", pc.URL), zap.Error(err))
		return pc
	}

	blob, _, err := s.emb.EmbedString(ctx, db.EmbeddingText(product))
	if err != nil {
		zap.L().Warn("could not embed product", zap.String("url", pc.URL), zap.Error(err))
		return pc
	}
	if err := db.UpdateEmbedding(s.db, pc.URL, blob); err != nil {
		zap.L().Warn("could not save embedding", zap.String("url", pc.URL), zap.Error(err))
	}
	return pc
}
