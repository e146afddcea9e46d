package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"mspro-labs/eco-buddy/internal/db"
	"mspro-labs/eco-buddy/internal/searcher"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over scraped products",
	Long: `Uses AI to find stored products that match the meaning of your query.
Examples:
  eco-buddy search "plastic-free bathroom essentials"
  eco-buddy search "durable reusable bottle"

History commands:
  eco-buddy search history
  eco-buddy search clear "query string"
  eco-buddy search clear all`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleSearch(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func handleSearch(ctx context.Context, args []string) error {
	database, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	switch strings.ToLower(args[0]) {
	case "history":
		return printHistory(database)
	case "clear":
		if len(args) < 2 {
			return eris.New(`usage: eco-buddy search clear "query text" (or 'all')`)
		}
		target := strings.TrimSpace(strings.Join(args[1:], " "))
		var affected int64
		if strings.EqualFold(target, "all") {
			affected, err = db.ClearAllSearchHistory(database)
		} else {
			affected, err = db.ClearSearchHistory(database, target)
		}
		if err != nil {
			return eris.Wrap(err, "clear history")
		}
		pterm.Success.Printfln("Removed %d entry(s) from cache.", affected)
		return nil
	}

	return performSearch(ctx, database, strings.Join(args, " "))
}

func printHistory(database *sql.DB) error {
	entries, err := db.ListSearchHistory(database)
	if err != nil {
		return eris.Wrap(err, "list history")
	}
	pterm.DefaultSection.Println("Search History (Cached Queries)")
	if len(entries) == 0 {
		pterm.Info.Println("No history found.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("[%s] %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.QueryText)
	}
	return nil
}

func performSearch(ctx context.Context, database *sql.DB, queryText string) error {
	aiClient, err := newAIClient(ctx)
	if err != nil {
		return err
	}
	defer aiClient.Close()

	results, err := searcher.Perform(ctx, database, aiClient, queryText)
	if err != nil {
		return err
	}

	pterm.DefaultSection.Printfln("Top matches for: %q", queryText)
	if len(results) == 0 {
		pterm.Info.Println("No embedded products yet. Run `eco-buddy scrape` first.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("#%d [%.1f%% match] %s (%s%s)\n", i+1, r.Score*100, orUnknown(r.Item.Name), r.Item.Currency, r.Item.Price)
		if r.Item.Description != "" {
			fmt.Printf("   %s\n", truncate(r.Item.Description, 150))
		}
		fmt.Printf("   %s\n\n", r.Item.URL)
	}
	return nil
}
