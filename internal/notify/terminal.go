package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/models"
)

// TerminalChannel prints alerts to a terminal, colored by event type.
type TerminalChannel struct {
	out  io.Writer
	bell bool
	mu   sync.Mutex
}

// NewTerminalChannel creates a terminal channel writing to out, or stdout
// when out is nil.
func NewTerminalChannel(out io.Writer, bell bool) *TerminalChannel {
	if out == nil {
		out = os.Stdout
	}
	return &TerminalChannel{out: out, bell: bell}
}

// Name returns the channel name.
func (t *TerminalChannel) Name() string { return "terminal" }

// IsEnabled always reports true.
func (t *TerminalChannel) IsEnabled() bool { return true }

// Send prints the message.
func (t *TerminalChannel) Send(_ context.Context, m Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bell {
		fmt.Fprint(t.out, "\a")
	}
	_, err := fmt.Fprintln(t.out, FormatTerminal(m))
	return err
}

// FormatTerminal renders a message as one or two terminal lines.
func FormatTerminal(m Message) string {
	c := eventColor(m.Alert.EventType)
	line := fmt.Sprintf("%s %s",
		c.Sprintf("[%s] %s", m.Timestamp.Format("15:04:05"), m.Title),
		clock.FormatDate(m.Alert.EventDate))
	if m.Body != "" {
		line += "\n    → " + m.Body
	}
	return line
}

func eventColor(t models.EventType) *color.Color {
	switch t {
	case models.EventDividend:
		return color.New(color.FgGreen, color.Bold)
	case models.EventBalanceSheet:
		return color.New(color.FgCyan, color.Bold)
	case models.EventShareholderMeeting:
		return color.New(color.FgYellow, color.Bold)
	case models.EventCapitalIncrease, models.EventCorporateAction:
		return color.New(color.FgMagenta, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}
