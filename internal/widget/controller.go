// Package widget holds the chat widget state and its send cycle, independent
// of how the widget is drawn.
package widget

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"mspro-labs/eco-buddy/internal/models"
	"mspro-labs/eco-buddy/internal/reply"
	"mspro-labs/eco-buddy/internal/scraper"
)

const (
	WelcomeMessage  = "Hello! I'm your EcoSmart Shopping Assistant. How can I help you find eco-friendly products today?"
	ApologyMessage  = "Sorry, I encountered an error. Please try again."
	ThinkingMessage = "Thinking..."
)

// ErrUnsupportedPage is returned when the widget is used outside a retail page.
var ErrUnsupportedPage = eris.New("widget: page is not a supported retail page")

// Role tells who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	ID      string
	Role    Role
	Text    string
	Intent  *reply.Intent
	Pending bool
}

// View draws the widget.
type View interface {
	ShowPanel(open bool)
	AddMessage(m Message)
	ReplaceMessage(id string, m Message)
	MoveTo(o Offset)
	OpenMap(category string) error
}

// API is the query server as the widget uses it.
type API interface {
	Query(ctx context.Context, query string, pc models.ProductContext) (string, error)
	TestVendors(ctx context.Context, category string) (*models.TestVendorsResponse, error)
}

// ContextSource supplies the product context at send time.
type ContextSource interface {
	ProductContext(ctx context.Context) (models.ProductContext, error)
}

// ContextFunc adapts a function to ContextSource.
type ContextFunc func(ctx context.Context) (models.ProductContext, error)

func (f ContextFunc) ProductContext(ctx context.Context) (models.ProductContext, error) {
	return f(ctx)
}

// StaticContext always returns the same context.
func StaticContext(pc models.ProductContext) ContextSource {
	return ContextFunc(func(context.Context) (models.ProductContext, error) { return pc, nil })
}

// Controller is one widget instance on one page.
type Controller struct {
	// sendMu is held for a whole send cycle so sends never overlap.
	sendMu sync.Mutex

	mu         sync.Mutex
	view       View
	api        API
	source     ContextSource
	retailHost string
	pageURL    string
	attached   bool
	open       bool
	drag       dragState
	transcript []Message
}

// New creates a controller. A nil source sends the page URL only.
func New(view View, client API, source ContextSource, retailHost string) *Controller {
	return &Controller{view: view, api: client, source: source, retailHost: retailHost}
}

// Attach binds the widget to a page and greets the user. Pages outside the
// retail host are refused.
func (c *Controller) Attach(pageURL string) error {
	if !scraper.IsRetailHost(pageURL, c.retailHost) {
		return ErrUnsupportedPage
	}

	c.mu.Lock()
	if c.attached {
		c.mu.Unlock()
		return nil
	}
	c.attached = true
	c.pageURL = pageURL
	c.mu.Unlock()

	c.add(Message{Role: RoleAssistant, Text: WelcomeMessage})
	return nil
}

// Open shows the chat panel.
func (c *Controller) Open() {
	c.setOpen(true)
}

// Minimize collapses the panel back to the toggle button.
func (c *Controller) Minimize() {
	c.setOpen(false)
}

func (c *Controller) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
	c.view.ShowPanel(open)
}

// IsOpen reports whether the panel is shown.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Transcript returns a copy of the messages so far.
func (c *Controller) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Send runs one question through the query API. Blank input is ignored and
// returns nil. On failure the placeholder becomes the apology, which is
// returned together with the error.
func (c *Controller) Send(ctx context.Context, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	c.mu.Lock()
	attached, pageURL := c.attached, c.pageURL
	c.mu.Unlock()
	if !attached {
		return nil, ErrUnsupportedPage
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.add(Message{Role: RoleUser, Text: text})
	placeholder := c.add(Message{Role: RoleAssistant, Text: ThinkingMessage, Pending: true})

	pc := c.productContext(ctx, pageURL)

	answer, err := c.api.Query(ctx, text, pc)
	if err != nil {
		zap.L().Error("chat query failed", zap.Error(err))
		msg := c.replace(placeholder, Message{Role: RoleAssistant, Text: ApologyMessage})
		return &msg, err
	}

	rendered := reply.Render(answer)
	msg := c.replace(placeholder, Message{Role: RoleAssistant, Text: rendered.Text, Intent: rendered.Intent})

	if rendered.Intent != nil {
		c.probeVendors(ctx, rendered.Intent.Category)
	}
	return &msg, nil
}

// OpenVendorMap shows the vendors of a category.
func (c *Controller) OpenVendorMap(category string) error {
	if err := c.view.OpenMap(category); err != nil {
		return eris.Wrapf(err, "widget: open map for %s", category)
	}
	return nil
}

func (c *Controller) productContext(ctx context.Context, pageURL string) models.ProductContext {
	if c.source == nil {
		return models.ProductContext{URL: pageURL}
	}
	pc, err := c.source.ProductContext(ctx)
	if err != nil {
		zap.L().Warn("could not read product context", zap.Error(err))
		return models.ProductContext{URL: pageURL}
	}
	if pc.URL == "" {
		pc.URL = pageURL
	}
	return pc
}

// probeVendors checks the vendor lookup for a category. The result is only logged.
func (c *Controller) probeVendors(ctx context.Context, category string) {
	res, err := c.api.TestVendors(ctx, category)
	if err != nil {
		zap.L().Warn("vendor probe failed", zap.String("category", category), zap.Error(err))
		return
	}
	zap.L().Debug("vendor probe",
		zap.String("category", res.Category),
		zap.String("resolved", res.Resolved),
		zap.Int("count", res.Count),
	)
}

func (c *Controller) add(m Message) string {
	m.ID = uuid.NewString()
	c.mu.Lock()
	c.transcript = append(c.transcript, m)
	c.mu.Unlock()
	c.view.AddMessage(m)
	return m.ID
}

func (c *Controller) replace(id string, m Message) Message {
	m.ID = id
	c.mu.Lock()
	for i := range c.transcript {
		if c.transcript[i].ID == id {
			c.transcript[i] = m
			break
		}
	}
	c.mu.Unlock()
	c.view.ReplaceMessage(id, m)
	return m
}
