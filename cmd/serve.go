package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mspro-labs/eco-buddy/internal/api"
	"mspro-labs/eco-buddy/internal/assistant"
	"mspro-labs/eco-buddy/internal/overpass"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the query and vendor API server",
	Long: `Serves POST /query for the chat widget, the vendor endpoints and map pages,
the nearby-shop search, and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServer(ctx context.Context) error {
	database, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	sel, err := loadSelectors()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	fetcher := newFetcher(sel)

	deps := api.Deps{
		Catalog:       catalog,
		Fetcher:       fetcher,
		Selectors:     sel,
		DefaultRadius: cfg.Overpass.DefaultRadius,
		PublicURL:     cfg.Server.PublicURL,
		Nearby: overpass.NewClient(
			overpass.WithBaseURL(cfg.Overpass.BaseURL),
			overpass.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Overpass.TimeoutSecs) * time.Second}),
		),
	}

	// The AI client stays alive as long as the server is running.
	aiClient, err := newAIClient(ctx)
	if err != nil {
		zap.L().Warn("queries disabled: could not initialize AI", zap.Error(err))
	} else {
		defer aiClient.Close()
		deps.Assistant = assistant.New(database, aiClient, aiClient,
			assistant.WithFetcher(fetcher, sel),
			assistant.WithCatalog(catalog),
		)
	}

	serverCfg := cfg.Server
	if servePort != 0 {
		serverCfg.Port = servePort
	}
	server := api.NewServer(serverCfg, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", serverCfg.Port))
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
