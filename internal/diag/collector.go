package diag

import (
	"fmt"
	"strings"
	"sync"
)

// Severity classifies a diagnostic event.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityLog     Severity = "log"
)

// Source identifies where a diagnostic event came from.
type Source string

const (
	SourceConsole   Source = "console"
	SourceException Source = "exception"
)

// Event is one recorded console message or uncaught page exception.
// Events are append-only: once recorded they are never mutated or removed.
type Event struct {
	Seq      int      `json:"seq"`
	Severity Severity `json:"severity"`
	Source   Source   `json:"source"`
	Message  string   `json:"message"`
	Filtered bool     `json:"filtered,omitempty"`
}

// DefaultIgnoreRules covers known-benign noise: the favicon 404 Chrome logs
// for pages that don't ship one.
var DefaultIgnoreRules = []string{
	"favicon.ico",
	"404 (Not Found)",
}

// Collector accumulates an ordered log of diagnostic events observed from a
// page. It is the only part of a run fed from the browser's own event
// goroutine, so all access is mutex-guarded. Matching against ignore rules
// happens at record time; matched events stay in the log, tagged Filtered,
// and are excluded only from the blocking view.
type Collector struct {
	mu     sync.Mutex
	events []Event
	rules  []string
}

// NewCollector builds a collector with the given ignore rules. Rules are
// plain case-sensitive substrings.
func NewCollector(rules []string) *Collector {
	return &Collector{rules: rules}
}

// Record appends one event. It never fails; a malformed message is the
// caller's best-effort string and is recorded as-is.
func (c *Collector) Record(sev Severity, src Source, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Event{
		Seq:      len(c.events),
		Severity: sev,
		Source:   src,
		Message:  message,
		Filtered: c.matches(message),
	})
}

func (c *Collector) matches(message string) bool {
	for _, rule := range c.rules {
		if strings.Contains(message, rule) {
			return true
		}
	}
	return false
}

// Events returns the full ordered log, filtered entries included.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Blocking returns error-severity, unfiltered events — the view that decides
// the verdict and stops the input loop.
func (c *Collector) Blocking() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Severity == SeverityError && !ev.Filtered {
			out = append(out, ev)
		}
	}
	return out
}

// HasBlocking reports whether any blocking error has been recorded.
func (c *Collector) HasBlocking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range c.events {
		if ev.Severity == SeverityError && !ev.Filtered {
			return true
		}
	}
	return false
}

// Warnings returns warning-severity events in order.
func (c *Collector) Warnings() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Severity == SeverityWarning {
			out = append(out, ev)
		}
	}
	return out
}

// Coerce renders an arbitrary console argument as a string for recording.
// CDP hands us raw JSON values; anything unparseable still produces output.
func Coerce(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return strings.Trim(string(s), `"`)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
