package cmd

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"mspro-labs/eco-buddy/internal/client"
	"mspro-labs/eco-buddy/internal/overpass"
	"mspro-labs/eco-buddy/internal/vendors"
)

var (
	vendorsOpen   bool
	vendorsNearby bool
	nearbyLat     float64
	nearbyLon     float64
	nearbyRadius  int
	nearbyQuery   string
)

var vendorsCmd = &cobra.Command{
	Use:   "vendors [category]",
	Short: "List local eco-friendly vendors",
	Long: `Lists the catalog vendors for a product category with their distance from
the city center. Unknown categories fall back to general vendors.

With --nearby, searches OpenStreetMap for shops around a point instead.`,
	Example: `  eco-buddy vendors beauty
  eco-buddy vendors kitchen --open
  eco-buddy vendors --nearby --lat 17.385 --lon 78.4867 --query "water bottle"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if vendorsNearby {
			return runNearby(cmd.Context())
		}
		category := vendors.GeneralCategory
		if len(args) == 1 {
			category = args[0]
		}
		return runVendors(category)
	},
}

func init() {
	vendorsCmd.Flags().BoolVar(&vendorsOpen, "open", false, "open the vendor map served by the query server")
	vendorsCmd.Flags().BoolVar(&vendorsNearby, "nearby", false, "search OpenStreetMap around --lat/--lon")
	vendorsCmd.Flags().Float64Var(&nearbyLat, "lat", vendors.CityCenter.Lat, "latitude for --nearby")
	vendorsCmd.Flags().Float64Var(&nearbyLon, "lon", vendors.CityCenter.Lng, "longitude for --nearby")
	vendorsCmd.Flags().IntVar(&nearbyRadius, "radius", 0, "radius in meters for --nearby (default from config)")
	vendorsCmd.Flags().StringVar(&nearbyQuery, "query", "", "what you are shopping for, narrows --nearby shop types")
	rootCmd.AddCommand(vendorsCmd)
}

func runVendors(category string) error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	_, resolved := catalog.Lookup(category)
	if resolved != strings.ToLower(strings.TrimSpace(category)) {
		pterm.Info.Printfln("No %q vendors, showing %s.", category, resolved)
	}

	rows := pterm.TableData{{"Vendor", "Distance", "Address", "Description"}}
	for _, card := range vendors.NewRenderer(catalog).Cards(category) {
		rows = append(rows, []string{card.Name, card.DistanceKm + " km", card.Address, truncate(card.Description, 60)})
	}
	pterm.DefaultSection.Printfln("Eco-friendly %s vendors in %s", resolved, catalog.City)
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return eris.Wrap(err, "render vendor table")
	}

	if vendorsOpen {
		mapURL := client.New(cfg.Client.BaseURL).MapURL(category)
		pterm.Info.Printfln("Opening %s", mapURL)
		if err := browser.OpenURL(mapURL); err != nil {
			return eris.Wrap(err, "open vendor map")
		}
	}
	return nil
}

func runNearby(ctx context.Context) error {
	radius := nearbyRadius
	if radius <= 0 {
		radius = cfg.Overpass.DefaultRadius
	}
	oc := overpass.NewClient(
		overpass.WithBaseURL(cfg.Overpass.BaseURL),
		overpass.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Overpass.TimeoutSecs) * time.Second}),
	)

	spinner, _ := pterm.DefaultSpinner.Start("Searching nearby shops...")
	res, err := oc.Search(ctx, overpass.SearchParams{Lat: nearbyLat, Lon: nearbyLon, Radius: radius, Query: nearbyQuery})
	if err != nil {
		spinner.Fail("Search failed")
		return err
	}
	spinner.Success(pterm.Sprintf("Found %d shops", res.Count))

	if res.Count == 0 {
		return nil
	}
	rows := pterm.TableData{{"Name", "Shop", "Distance"}}
	for _, v := range res.Vendors {
		dist := "-"
		if v.DistanceKm != nil {
			dist = vendors.FormatKm(*v.DistanceKm) + " km"
		}
		rows = append(rows, []string{v.Name, v.Shop, dist})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
