package embedder

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mspro-labs/eco-buddy/internal/db"
)

// Embedder turns text into a stored vector blob.
type Embedder interface {
	EmbedString(ctx context.Context, text string) ([]byte, []float32, error)
}

// Options tunes a Run.
type Options struct {
	// RequestsPerMinute caps embedding calls. Zero disables the limit.
	RequestsPerMinute int
	// Progress receives a progress bar; nil hides it.
	Progress io.Writer
}

// Run finds all products missing embeddings and processes them.
// It returns how many were embedded.
func Run(ctx context.Context, database *sql.DB, emb Embedder, opts Options) (int, error) {
	targets, err := db.GetUnembeddedProducts(database)
	if err != nil {
		return 0, eris.Wrap(err, "embedder: list pending products")
	}

	if len(targets) == 0 {
		zap.L().Info("all products are already embedded")
		return 0, nil
	}
	zap.L().Info("embedding products", zap.Int("pending", len(targets)))

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(targets),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("embedding"),
			progressbar.OptionShowCount(),
		)
	}

	count := 0
	for url, textToEmbed := range targets {
		if err := limiter.Wait(ctx); err != nil {
			return count, eris.Wrap(err, "embedder: rate limit wait")
		}

		blob, _, err := emb.EmbedString(ctx, textToEmbed)
		if err != nil {
			zap.L().Warn("embedding failed", zap.String("url", url), zap.Error(err))
			continue
		}

		if err := db.UpdateEmbedding(database, url, blob); err != nil {
			zap.L().Warn("saving embedding failed", zap.String("url", url), zap.Error(err))
			continue
		}

		count++
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}
	zap.L().Info("embedding complete", zap.Int("embedded", count))
	return count, nil
}
