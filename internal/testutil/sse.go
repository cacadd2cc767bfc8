package testutil

import (
	"bufio"
	"strings"
	"testing"
)

// SSEEvent represents a parsed Server-Sent Event.
type SSEEvent struct {
	Type string // event field
	Data string // data field (joined if multi-line)
}

// ParseSSEEvents parses a raw SSE response body into events.
// Events without an explicit event field get the default type "message"
// per the SSE wire format.
func ParseSSEEvents(t *testing.T, body string) []SSEEvent {
	t.Helper()

	var events []SSEEvent
	var current SSEEvent
	var dataLines []string

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			// Blank line terminates an event.
			if len(dataLines) > 0 || current.Type != "" {
				current.Data = strings.Join(dataLines, "\n")
				if current.Type == "" {
					current.Type = "message"
				}
				events = append(events, current)
			}
			current = SSEEvent{}
			dataLines = nil
		case strings.HasPrefix(line, "event:"):
			current.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case strings.HasPrefix(line, ":"):
			// Comment line, ignore.
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning SSE body: %v", err)
	}

	// Flush a trailing event with no final blank line.
	if len(dataLines) > 0 || current.Type != "" {
		current.Data = strings.Join(dataLines, "\n")
		if current.Type == "" {
			current.Type = "message"
		}
		events = append(events, current)
	}

	return events
}

// FindEvent returns the first event of the given type, or nil.
func FindEvent(events []SSEEvent, eventType string) *SSEEvent {
	for i := range events {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

// FindAllEvents returns every event of the given type, in order.
func FindAllEvents(events []SSEEvent, eventType string) []SSEEvent {
	var found []SSEEvent
	for _, ev := range events {
		if ev.Type == eventType {
			found = append(found, ev)
		}
	}
	return found
}
