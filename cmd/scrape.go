package cmd

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mspro-labs/eco-buddy/internal/db"
	"mspro-labs/eco-buddy/internal/embedder"
	"mspro-labs/eco-buddy/internal/models"
	"mspro-labs/eco-buddy/internal/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>...",
	Short: "Scrape product pages and auto-run embed",
	Long:  `Opens each product page in a headless browser, reads its product context, upserts it into the local store, and embeds new or changed products.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(ctx context.Context, urls []string) error {
	sel, err := loadSelectors()
	if err != nil {
		return err
	}
	database, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	fetcher := newFetcher(sel)
	var items []models.Product
	for _, u := range urls {
		if !scraper.IsRetailHost(u, cfg.Scraper.RetailHost) {
			pterm.Warning.Printfln("Skipping %s: not a %s page", u, cfg.Scraper.RetailHost)
			continue
		}
		spinner, _ := pterm.DefaultSpinner.Start("Scraping " + u)
		pc, err := scraper.Run(ctx, fetcher, u, sel)
		if err != nil {
			spinner.Fail(err.Error())
			continue
		}
		spinner.Success(orUnknown(pc.Name))
		items = append(items, scraper.ToProduct(pc))
	}

	if len(items) == 0 {
		pterm.Info.Println("No items to save.")
		return nil
	}

	count, err := db.SaveProducts(ctx, database, items)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Upserted %d products.", count)
	printProducts(items)

	// A missing API key should not fail the scrape.
	aiClient, err := newAIClient(ctx)
	if err != nil {
		pterm.Warning.Printfln("Skipping auto-embedding: %v", err)
		return nil
	}
	defer aiClient.Close()

	if _, err := embedder.Run(ctx, database, aiClient, embedder.Options{
		RequestsPerMinute: cfg.Embed.RequestsPerMinute,
		Progress:          os.Stderr,
	}); err != nil {
		zap.L().Warn("auto-embedding failed", zap.Error(err))
	}
	return nil
}

func printProducts(items []models.Product) {
	rows := pterm.TableData{{"Name", "ASIN", "Price", "Rating", "Sustainability"}}
	for _, p := range items {
		sustainability := "-"
		if p.SustainabilityCertified {
			sustainability = pterm.Sprintf("%d features", len(p.SustainabilityFeatures))
		}
		rows = append(rows, []string{
			truncate(orUnknown(p.Name), 50),
			p.ASIN,
			p.Currency + p.Price,
			p.Rating,
			sustainability,
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func orUnknown(s string) string {
	if s == "" {
		return "(untitled)"
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}
