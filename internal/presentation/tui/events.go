package tui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/bindery/internal/script"
	"github.com/muesli/termenv"
)

// EventPrinter writes replay events, one per line.
type EventPrinter struct {
	out     io.Writer
	profile termenv.Profile
}

// NewEventPrinter creates a printer coloring its output with profile.
// termenv.Ascii disables colors.
func NewEventPrinter(out io.Writer, profile termenv.Profile) *EventPrinter {
	return &EventPrinter{out: out, profile: profile}
}

func (p *EventPrinter) paint(s, color string) termenv.Style {
	return termenv.String(s).Foreground(p.profile.Color(color))
}

// Print writes e.
func (p *EventPrinter) Print(e script.Event) {
	step := p.paint(fmt.Sprintf("[%02d]", e.Step), "#6b7280")
	switch e.Kind {
	case script.EventValue:
		fmt.Fprintf(p.out, "%s %s %s: %s -> %s\n", step,
			p.paint(e.Watch, "#818cf8"), e.Path,
			p.paint(compact(e.OldValue), "#fb7185"),
			p.paint(compact(e.NewValue), "#34d399"))
	case script.EventArray:
		removed := "[]"
		if len(e.Removed) > 0 {
			removed = compact(e.Removed)
		}
		fmt.Fprintf(p.out, "%s %s %s: %s at %d, removed %s, added %d\n", step,
			p.paint(e.Watch, "#818cf8"), e.Path,
			p.paint(string(e.Op), "#fbbf24"), e.Index, removed, e.Added)
	case script.EventUnwatch:
		fmt.Fprintf(p.out, "%s %s %s\n", step, p.paint("unwatch", "#fbbf24"), e.Watch)
	case script.EventDispose:
		fmt.Fprintf(p.out, "%s %s %s: %d registrations\n", step, p.paint("dispose", "#fbbf24"), e.Path, e.Count)
	}
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
