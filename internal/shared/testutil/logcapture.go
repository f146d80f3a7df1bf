package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured log entry with its attributes flattened into a
// map. Group-valued attributes appear under dotted keys.
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recordStore collects records across a handler tree. WithAttrs and
// WithGroup return child handlers that share the same store, so a test can
// hold the root handler and still see records logged through derived
// loggers.
type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
	t       *testing.T
}

// CaptureHandler is a slog.Handler that records every log line so tests can
// assert on messages and attributes.
type CaptureHandler struct {
	store  *recordStore
	groups []string
	bound  map[string]any
}

// NewCaptureHandler creates a capture handler. When t is non-nil, captured
// records are echoed through t.Logf so they show up on test failure.
func NewCaptureHandler(t *testing.T) *CaptureHandler {
	return &CaptureHandler{
		store: &recordStore{t: t},
		bound: make(map[string]any),
	}
}

// NewTestLogger creates a logger backed by a capture handler.
func NewTestLogger(t *testing.T) (*slog.Logger, *CaptureHandler) {
	handler := NewCaptureHandler(t)
	return slog.New(handler), handler
}

// Enabled implements slog.Handler. Every level is captured.
func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.bound))
	for k, v := range h.bound {
		attrs[k] = v
	}
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, prefix, a)
		return true
	})

	rec := LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	}

	h.store.mu.Lock()
	h.store.records = append(h.store.records, rec)
	t := h.store.t
	h.store.mu.Unlock()

	if t != nil {
		t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler. The bound attributes are qualified by
// the groups open at bind time and recorded on every subsequent line.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := h.clone()
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		flatten(child.bound, prefix, a)
	}
	return child
}

// WithGroup implements slog.Handler.
func (h *CaptureHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	child := h.clone()
	child.groups = append(child.groups, name)
	return child
}

func (h *CaptureHandler) clone() *CaptureHandler {
	bound := make(map[string]any, len(h.bound))
	for k, v := range h.bound {
		bound[k] = v
	}
	groups := make([]string, len(h.groups), len(h.groups)+1)
	copy(groups, h.groups)
	return &CaptureHandler{store: h.store, groups: groups, bound: bound}
}

// flatten writes an attribute into dst, expanding group values into dotted
// keys and resolving LogValuers.
func flatten(dst map[string]any, prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	value := a.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		for _, g := range value.Group() {
			flatten(dst, key, g)
		}
		return
	}
	dst[key] = value.Any()
}

// GetRecords returns a copy of all captured records.
func (h *CaptureHandler) GetRecords() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	records := make([]LogRecord, len(h.store.records))
	copy(records, h.store.records)
	return records
}

// GetRecordsByLevel returns the captured records at exactly the given level.
func (h *CaptureHandler) GetRecordsByLevel(level slog.Level) []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	var filtered []LogRecord
	for _, r := range h.store.records {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ContainsMessage reports whether any captured record's message contains the
// given substring.
func (h *CaptureHandler) ContainsMessage(message string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	for _, r := range h.store.records {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any captured record carries the attribute.
func (h *CaptureHandler) ContainsAttr(key string, value any) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	for _, r := range h.store.records {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// AssertNoErrors fails the test if any error-level records were captured.
func AssertNoErrors(t *testing.T, h *CaptureHandler) {
	t.Helper()

	errs := h.GetRecordsByLevel(slog.LevelError)
	if len(errs) == 0 {
		return
	}
	t.Errorf("unexpected error logs:")
	for _, r := range errs {
		t.Errorf("  - %s: %v", r.Message, r.Attrs)
	}
}
