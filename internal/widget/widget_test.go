package widget

import (
	"bytes"
	"context"
	"errors"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/eco-buddy/internal/models"
	"mspro-labs/eco-buddy/internal/reply"
)

const productURL = "https://www.amazon.in/Bamboo-Toothbrush/dp/B07XYZ1234"

type event struct {
	kind string
	msg  Message
}

type recordingView struct {
	mu     sync.Mutex
	events []event
	panel  []bool
	moves  []Offset
	maps   []string
}

func (v *recordingView) ShowPanel(open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panel = append(v.panel, open)
}

func (v *recordingView) AddMessage(m Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, event{"add", m})
}

func (v *recordingView) ReplaceMessage(_ string, m Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, event{"replace", m})
}

func (v *recordingView) MoveTo(o Offset) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.moves = append(v.moves, o)
}

func (v *recordingView) OpenMap(category string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.maps = append(v.maps, category)
	return nil
}

type fakeAPI struct {
	mu      sync.Mutex
	answer  string
	err     error
	queries []string
	ctxs    []models.ProductContext
	probes  []string
	// inFlight detects overlapping queries.
	inFlight int
	overlap  bool
	delay    time.Duration
}

func (f *fakeAPI) Query(_ context.Context, q string, pc models.ProductContext) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.queries = append(f.queries, q)
	f.ctxs = append(f.ctxs, pc)
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	return f.answer, f.err
}

func (f *fakeAPI) TestVendors(_ context.Context, category string) (*models.TestVendorsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = append(f.probes, category)
	return &models.TestVendorsResponse{Category: category, Resolved: category, Count: 2}, nil
}

func newAttached(t *testing.T, fa *fakeAPI, src ContextSource) (*Controller, *recordingView) {
	t.Helper()
	view := &recordingView{}
	c := New(view, fa, src, "amazon")
	require.NoError(t, c.Attach(productURL))
	return c, view
}

func TestAttach(t *testing.T) {
	view := &recordingView{}
	c := New(view, &fakeAPI{}, nil, "amazon")

	assert.True(t, errors.Is(c.Attach("https://www.flipkart.com/item/123"), ErrUnsupportedPage))
	assert.Empty(t, c.Transcript())

	require.NoError(t, c.Attach(productURL))
	require.NoError(t, c.Attach(productURL), "attaching twice keeps one greeting")
	tr := c.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, WelcomeMessage, tr[0].Text)
	assert.Equal(t, RoleAssistant, tr[0].Role)
}

func TestSendBeforeAttach(t *testing.T) {
	c := New(&recordingView{}, &fakeAPI{}, nil, "amazon")
	_, err := c.Send(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrUnsupportedPage))
}

func TestOpenMinimize(t *testing.T) {
	c, view := newAttached(t, &fakeAPI{}, nil)
	assert.False(t, c.IsOpen())
	c.Open()
	assert.True(t, c.IsOpen())
	c.Minimize()
	assert.False(t, c.IsOpen())
	assert.Equal(t, []bool{true, false}, view.panel)
}

func TestSendSuccess(t *testing.T) {
	fa := &fakeAPI{answer: "It uses <b>bamboo</b>, which regrows quickly."}
	pc := models.ProductContext{Name: "Bamboo Toothbrush", ASIN: "B07XYZ1234"}
	c, view := newAttached(t, fa, StaticContext(pc))

	msg, err := c.Send(context.Background(), "  Is this eco-friendly?  ")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, fa.answer, msg.Text)
	assert.Nil(t, msg.Intent)

	assert.Equal(t, []string{"Is this eco-friendly?"}, fa.queries)
	assert.Equal(t, "Bamboo Toothbrush", fa.ctxs[0].Name)
	assert.Equal(t, productURL, fa.ctxs[0].URL, "the page URL fills an empty context URL")
	assert.Empty(t, fa.probes)

	// welcome, user, placeholder, answer
	require.Len(t, view.events, 4)
	assert.Equal(t, "Is this eco-friendly?", view.events[1].msg.Text)
	assert.Equal(t, ThinkingMessage, view.events[2].msg.Text)
	assert.True(t, view.events[2].msg.Pending)
	assert.Equal(t, "replace", view.events[3].kind)
	assert.Equal(t, view.events[2].msg.ID, view.events[3].msg.ID)

	tr := c.Transcript()
	require.Len(t, tr, 3, "the placeholder is replaced, not appended")
	assert.Equal(t, fa.answer, tr[2].Text)
}

func TestSendEmptyInput(t *testing.T) {
	fa := &fakeAPI{answer: "x"}
	c, view := newAttached(t, fa, nil)

	msg, err := c.Send(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Nil(t, msg)
	assert.Empty(t, fa.queries)
	assert.Len(t, view.events, 1)
}

func TestSendFailureShowsApology(t *testing.T) {
	fa := &fakeAPI{err: errors.New("connection refused")}
	c, _ := newAttached(t, fa, nil)

	msg, err := c.Send(context.Background(), "hello")
	require.Error(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, ApologyMessage, msg.Text)

	tr := c.Transcript()
	assert.Equal(t, ApologyMessage, tr[len(tr)-1].Text)
	for _, m := range tr {
		assert.NotEqual(t, ThinkingMessage, m.Text)
	}
}

func TestSendVendorIntent(t *testing.T) {
	fa := &fakeAPI{answer: "Try a refill store. Find local vendors for Soap products in Hyderabad"}
	c, view := newAttached(t, fa, nil)

	msg, err := c.Send(context.Background(), "Where can I buy this locally?")
	require.NoError(t, err)
	require.NotNil(t, msg.Intent)
	assert.Equal(t, "soap", msg.Intent.Category)
	assert.Equal(t, "Try a refill store.", msg.Text)
	assert.Equal(t, []string{"soap"}, fa.probes)

	require.NoError(t, c.OpenVendorMap(msg.Intent.Category))
	assert.Equal(t, []string{"soap"}, view.maps)
}

func TestSendContextSourceError(t *testing.T) {
	fa := &fakeAPI{answer: "ok"}
	src := ContextFunc(func(context.Context) (models.ProductContext, error) {
		return models.ProductContext{}, errors.New("page gone")
	})
	c, _ := newAttached(t, fa, src)

	_, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, models.ProductContext{URL: productURL}, fa.ctxs[0])
}

func TestSendsAreSerialized(t *testing.T) {
	fa := &fakeAPI{answer: "ok", delay: 20 * time.Millisecond}
	c, _ := newAttached(t, fa, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Send(context.Background(), "question")
		}()
	}
	wg.Wait()

	assert.False(t, fa.overlap)
	assert.Len(t, fa.queries, 4)
	assert.Len(t, c.Transcript(), 1+4*2)
}

func TestDrag(t *testing.T) {
	c, view := newAttached(t, &fakeAPI{}, nil)

	// Not on the header: nothing moves.
	c.PointerDown(100, 100, false)
	c.PointerMove(150, 160)
	assert.Equal(t, Offset{}, c.Offset())
	c.PointerUp()

	c.PointerDown(100, 100, true)
	assert.True(t, c.Dragging())
	c.PointerMove(130, 90)
	assert.Equal(t, Offset{X: 30, Y: -10}, c.Offset())
	c.PointerUp()
	assert.False(t, c.Dragging())

	// A second drag continues from the current offset.
	c.PointerDown(200, 200, true)
	c.PointerMove(210, 205)
	assert.Equal(t, Offset{X: 40, Y: -5}, c.Offset())
	c.PointerUp()

	c.PointerMove(500, 500)
	assert.Equal(t, Offset{X: 40, Y: -5}, c.Offset())
	assert.Equal(t, []Offset{{X: 30, Y: -10}, {X: 40, Y: -5}}, view.moves)
}

func TestTerminalView(t *testing.T) {
	var out bytes.Buffer
	var opened []string
	v := NewTerminalView(&out, func(category string) string { return "http://127.0.0.1:8000/map/" + category })
	v.openURL = func(u string) error {
		opened = append(opened, u)
		return nil
	}

	v.AddMessage(Message{Role: RoleUser, Text: "hello"})
	v.AddMessage(Message{
		Role:   RoleAssistant,
		Text:   "<p>Choose <b>glass</b>.</p>",
		Intent: &reply.Intent{Category: "home"},
	})
	require.NoError(t, v.OpenMap("home"))

	text := out.String()
	assert.Contains(t, text, "hello")
	assert.Contains(t, text, "Choose glass.")
	assert.False(t, strings.Contains(text, "<b>"))
	assert.Contains(t, text, "/map")
	assert.Equal(t, []string{"http://127.0.0.1:8000/map/home"}, opened)
}

func TestControllerDoesNotImportServer(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "controller.go", nil, parser.ImportsOnly)
	require.NoError(t, err)
	for _, imp := range f.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		assert.NotEqual(t, "mspro-labs/eco-buddy/internal/api", path)
	}
}
