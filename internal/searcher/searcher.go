package searcher

import (
	"context"
	"database/sql"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"mspro-labs/eco-buddy/internal/ai"
	"mspro-labs/eco-buddy/internal/db"
)

// TopK is the number of matches a search returns.
const TopK = 5

// Embedder produces query vectors.
type Embedder interface {
	EmbedString(ctx context.Context, text string) ([]byte, []float32, error)
}

// Result holds a single search match.
type Result struct {
	Item  db.ProductVector
	Score float32
}

// Perform executes a semantic search over stored products.
func Perform(ctx context.Context, database *sql.DB, emb Embedder, queryText string) ([]Result, error) {
	queryVector, err := QueryVector(ctx, database, emb, queryText)
	if err != nil {
		return nil, err
	}

	products, err := db.GetProductVectors(database)
	if err != nil {
		return nil, eris.Wrap(err, "searcher: load products")
	}

	var results []Result
	for _, p := range products {
		floats, err := ai.BytesToFloats(p.Vector)
		if err != nil {
			continue
		}
		results = append(results, Result{Item: p, Score: ai.CosineSimilarity(queryVector, floats)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > TopK {
		results = results[:TopK]
	}
	return results, nil
}

// QueryVector handles the cache-aside logic for query embeddings.
func QueryVector(ctx context.Context, database *sql.DB, emb Embedder, text string) ([]float32, error) {
	if blob, err := db.GetCachedQuery(database, text); err == nil {
		return ai.BytesToFloats(blob)
	}

	zap.L().Debug("query cache miss", zap.String("query", text))
	blob, floats, err := emb.EmbedString(ctx, text)
	if err != nil {
		return nil, eris.Wrap(err, "searcher: embed query")
	}

	// A failed cache write should not fail the search.
	if err := db.SaveCachedQuery(database, text, blob); err != nil {
		zap.L().Warn("failed to cache query", zap.Error(err))
	}
	return floats, nil
}
