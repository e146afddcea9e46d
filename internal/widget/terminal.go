package widget

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"mspro-labs/eco-buddy/internal/reply"
)

// TerminalView draws the widget as a line-oriented terminal chat.
type TerminalView struct {
	out    io.Writer
	mapURL func(category string) string
	// openURL is swapped in tests.
	openURL func(url string) error

	mu      sync.Mutex
	spinner *pterm.SpinnerPrinter
}

// NewTerminalView writes to out and opens maps at mapURL(category).
func NewTerminalView(out io.Writer, mapURL func(category string) string) *TerminalView {
	return &TerminalView{out: out, mapURL: mapURL, openURL: browser.OpenURL}
}

func (v *TerminalView) ShowPanel(open bool) {
	if open {
		pterm.DefaultHeader.WithWriter(v.out).
			WithBackgroundStyle(pterm.NewStyle(pterm.BgGreen)).
			WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
			Println("EcoSmart Shopping Assistant")
		return
	}
	pterm.Info.WithWriter(v.out).Println("Chat minimized.")
}

func (v *TerminalView) AddMessage(m Message) {
	if m.Pending {
		v.startSpinner(m.Text)
		return
	}
	v.print(m)
}

func (v *TerminalView) ReplaceMessage(_ string, m Message) {
	v.stopSpinner()
	v.print(m)
}

// MoveTo has nothing to move in a terminal.
func (v *TerminalView) MoveTo(o Offset) {
	zap.L().Debug("panel moved", zap.Float64("x", o.X), zap.Float64("y", o.Y))
}

func (v *TerminalView) OpenMap(category string) error {
	u := v.mapURL(category)
	pterm.Info.WithWriter(v.out).Printfln("Opening vendor map: %s", u)
	return v.openURL(u)
}

func (v *TerminalView) print(m Message) {
	switch m.Role {
	case RoleUser:
		fmt.Fprintln(v.out, pterm.Cyan("You: ")+m.Text)
	default:
		fmt.Fprintln(v.out)
		fmt.Fprintln(v.out, pterm.Green("Assistant: ")+reply.PlainText(m.Text))
		if m.Intent != nil {
			pterm.Success.WithWriter(v.out).Printfln("Local %s vendors are available. Type /map to see them.", m.Intent.Category)
		}
		fmt.Fprintln(v.out)
	}
}

func (v *TerminalView) startSpinner(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sp, err := pterm.DefaultSpinner.WithWriter(v.out).WithRemoveWhenDone(true).Start(text)
	if err != nil {
		fmt.Fprintln(v.out, text)
		return
	}
	v.spinner = sp
}

func (v *TerminalView) stopSpinner() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.spinner != nil {
		_ = v.spinner.Stop()
		v.spinner = nil
	}
}
