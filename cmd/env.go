package cmd

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	"mspro-labs/eco-buddy/internal/ai"
	"mspro-labs/eco-buddy/internal/config"
	"mspro-labs/eco-buddy/internal/db"
	"mspro-labs/eco-buddy/internal/scraper"
	"mspro-labs/eco-buddy/internal/vendors"
)

func openStore() (*sql.DB, error) {
	database, err := db.Connect(cfg.Store.DBPath)
	if err != nil {
		return nil, eris.Wrap(err, "open product store")
	}
	return database, nil
}

func newAIClient(ctx context.Context) (*ai.Client, error) {
	return ai.NewClient(ctx, cfg.Gemini)
}

func loadSelectors() (config.Selectors, error) {
	sel, err := config.LoadSelectors(cfg.Scraper.SelectorsPath)
	if err != nil {
		return sel, eris.Wrap(err, "load selectors")
	}
	return sel, nil
}

func newFetcher(sel config.Selectors) *scraper.BrowserFetcher {
	return scraper.NewBrowserFetcher(sel, time.Duration(cfg.Scraper.TimeoutSecs)*time.Second)
}

// loadCatalog returns the configured catalog, or the built-in one.
func loadCatalog() (*vendors.Catalog, error) {
	if cfg.Vendors.CatalogPath == "" {
		return vendors.Default(), nil
	}
	c, err := vendors.Load(cfg.Vendors.CatalogPath)
	if err != nil {
		return nil, eris.Wrap(err, "load vendor catalog")
	}
	return c, nil
}
