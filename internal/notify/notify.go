// Package notify presents exchange failures to a human.
//
// The exchange client only knows the narrow Notifier contract; Console
// is the terminal implementation used by the CLI.  It draws the
// message in a rounded box so it stands out from log output.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Notifier receives a short failure message and a stage-specific title.
type Notifier interface {
	Notify(message, title string)
}

// Func adapts a plain function to Notifier.
type Func func(message, title string)

// Notify calls f.
func (f Func) Notify(message, title string) { f(message, title) }

// Console renders notifications to a writer, typically stderr.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	box   lipgloss.Style
	title lipgloss.Style
}

// NewConsole returns a Console writing to w.  Colours follow what w
// supports, so a pipe or buffer gets plain text.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		out: w,
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(0, 1),
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

// Notify draws one boxed notification.
func (c *Console) Notify(message, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body := lipgloss.JoinVertical(lipgloss.Left, c.title.Render(title), message)
	fmt.Fprintln(c.out, c.box.Render(body))
}
