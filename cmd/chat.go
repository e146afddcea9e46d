package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"mspro-labs/eco-buddy/internal/client"
	"mspro-labs/eco-buddy/internal/models"
	"mspro-labs/eco-buddy/internal/vendors"
	"mspro-labs/eco-buddy/internal/widget"
)

var (
	chatPage   string
	chatHTML   string
	chatServer string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the shopping assistant about a product page",
	Long: `Opens the assistant for one product page and sends your questions to a
running eco-buddy server together with the product context.

Special commands:
  /quit, /exit    - Exit the chat session
  /map [category] - Open the vendor map (defaults to the last suggested category)
  /vendors [cat]  - List vendors for a category
  /min, /open     - Minimize or reopen the panel
  /clear          - Clear the terminal
  /help           - Show available commands`,
	Example: `  eco-buddy chat --page https://www.amazon.in/dp/B0EXAMPLE
  eco-buddy chat --page https://www.amazon.in/dp/B0EXAMPLE --html saved.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatPage, "page", "", "product page URL (required)")
	chatCmd.Flags().StringVar(&chatHTML, "html", "", "saved page HTML to read the product from instead of loading the page")
	chatCmd.Flags().StringVar(&chatServer, "server", "", "query server base URL (default from config)")
	_ = chatCmd.MarkFlagRequired("page")
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context) error {
	base := chatServer
	if base == "" {
		base = cfg.Client.BaseURL
	}
	c := client.New(base)

	var html string
	if chatHTML != "" {
		b, err := os.ReadFile(chatHTML)
		if err != nil {
			return eris.Wrap(err, "read page html")
		}
		html = string(b)
	}

	view := widget.NewTerminalView(os.Stdout, c.MapURL)
	ctrl := widget.New(view, c, pageContext(c, chatPage, html), cfg.Scraper.RetailHost)
	ctrl.Open()
	if err := ctrl.Attach(chatPage); err != nil {
		pterm.Error.Printfln("Cannot open the assistant here: %v", err)
		return nil
	}
	pterm.Info.Printfln("Server: %s", c.BaseURL())
	pterm.Info.Println("Type your message and press Enter. Use /help for commands, /quit to exit.")
	pterm.Println()

	var lastCategory string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		pterm.Print(pterm.Cyan("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if exit := handleChatCommand(ctx, ctrl, c, input, lastCategory); exit {
				pterm.Info.Println("Goodbye!")
				return nil
			}
			continue
		}

		// Ctrl-C cancels the pending send only.
		sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		msg, err := ctrl.Send(sendCtx, input)
		stop()
		if err != nil {
			pterm.Error.Printfln("Error: %v", err)
			continue
		}
		if msg != nil && msg.Intent != nil {
			lastCategory = msg.Intent.Category
		}
	}
	return scanner.Err()
}

func handleChatCommand(ctx context.Context, ctrl *widget.Controller, c *client.Client, input, lastCategory string) bool {
	parts := strings.Fields(input)
	switch strings.ToLower(parts[0]) {
	case "/quit", "/exit", "/q":
		return true
	case "/map":
		category := lastCategory
		if len(parts) > 1 {
			category = strings.Join(parts[1:], " ")
		}
		if category == "" {
			pterm.Warning.Println("No category yet. Try /map <category>.")
			return false
		}
		if err := ctrl.OpenVendorMap(category); err != nil {
			pterm.Error.Println(err.Error())
		}
	case "/vendors":
		category := lastCategory
		if len(parts) > 1 {
			category = strings.Join(parts[1:], " ")
		}
		if category == "" {
			category = vendors.GeneralCategory
		}
		res, err := c.Vendors(ctx, category)
		if err != nil {
			pterm.Error.Printfln("Vendor lookup failed: %v", err)
			return false
		}
		pterm.Info.Printfln("%d %s vendors:", len(res.Vendors), res.Category)
		for _, v := range res.Vendors {
			pterm.Printfln("  %s (%.1f)", v.Name, v.Rating)
		}
	case "/min":
		ctrl.Minimize()
	case "/open":
		ctrl.Open()
	case "/clear":
		fmt.Print("\033[H\033[2J")
	case "/help":
		pterm.Println("/quit, /exit      Exit the chat session")
		pterm.Println("/map [category]   Open the vendor map")
		pterm.Println("/vendors [cat]    List vendors for a category")
		pterm.Println("/min, /open       Minimize or reopen the panel")
		pterm.Println("/clear            Clear the terminal")
	default:
		pterm.Warning.Printfln("Unknown command %s. Type /help.", parts[0])
	}
	return false
}

// pageContext reads the product once through the server and reuses it for
// every message. A failed read is retried on the next send.
func pageContext(c *client.Client, pageURL, html string) widget.ContextSource {
	var (
		mu     sync.Mutex
		cached *models.ProductContext
	)
	return widget.ContextFunc(func(ctx context.Context) (models.ProductContext, error) {
		mu.Lock()
		defer mu.Unlock()
		if cached != nil {
			return *cached, nil
		}
		pc, err := c.ProductInfo(ctx, pageURL, html)
		if err != nil {
			return models.ProductContext{}, err
		}
		cached = &pc
		return pc, nil
	})
}
