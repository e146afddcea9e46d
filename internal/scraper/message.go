package scraper

import (
	"context"

	"github.com/rotisserie/eris"

	"mspro-labs/eco-buddy/internal/config"
	"mspro-labs/eco-buddy/internal/models"
)

var (
	// ErrUnknownAction is returned for messages this handler does not serve.
	ErrUnknownAction = eris.New("scraper: unknown action")
	// ErrNoPage is returned when a message carries neither HTML nor a URL.
	ErrNoPage = eris.New("scraper: message has no page")
)

// HandleMessage serves a message. Inline HTML is preferred; otherwise the
// page is fetched.
func HandleMessage(ctx context.Context, msg models.Message, f Fetcher, sel config.Selectors) (*models.MessageResponse, error) {
	if msg.Action != models.ActionGetProductInfo {
		return nil, ErrUnknownAction
	}

	var (
		pc  models.ProductContext
		err error
	)
	switch {
	case msg.HTML != "":
		pc, err = ExtractHTML(msg.HTML, msg.URL, sel)
	case msg.URL != "" && f != nil:
		pc, err = Run(ctx, f, msg.URL, sel)
	default:
		return nil, ErrNoPage
	}
	if err != nil {
		return nil, err
	}

	return &models.MessageResponse{ProductInfo: pc}, nil
}
