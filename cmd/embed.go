package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"mspro-labs/eco-buddy/internal/embedder"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate AI embeddings for new products",
	Long:  `Finds products in the database that are missing semantic vectors and generates them using the Gemini API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		aiClient, err := newAIClient(ctx)
		if err != nil {
			return err
		}
		defer aiClient.Close()

		n, err := embedder.Run(ctx, database, aiClient, embedder.Options{
			RequestsPerMinute: cfg.Embed.RequestsPerMinute,
			Progress:          os.Stderr,
		})
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Embedded %d products.", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)
}
