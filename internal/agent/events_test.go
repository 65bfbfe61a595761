package agent

import (
	"github.com/nyzhi-com/nyzhi/internal/event"
)

// eventOf builds a distinguishable event for broadcaster tests.
func eventOf(i int) event.Event {
	return event.Event{Type: event.TextDelta, Text: string(rune('0' + i))}
}
