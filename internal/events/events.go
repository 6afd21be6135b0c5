// Package events carries structured warning and error events from the cache
// core to whatever observability backend the process wires in.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Sink receives degrade warnings (bad geometry, missing source) and failures
// (processing, storage) together with their contextual fields.
type Sink interface {
	Warn(event string, fields ...zap.Field)
	Error(event string, fields ...zap.Field)
	// With returns a Sink that attaches the given fields to every event.
	With(fields ...zap.Field) Sink
}

type zapSink struct {
	log *zap.Logger
}

// NewZapSink wraps a zap logger as an event sink.
func NewZapSink(log *zap.Logger) Sink {
	return &zapSink{log: log}
}

func (s *zapSink) Warn(event string, fields ...zap.Field) {
	s.log.Warn(event, fields...)
}

func (s *zapSink) Error(event string, fields ...zap.Field) {
	s.log.Error(event, fields...)
}

func (s *zapSink) With(fields ...zap.Field) Sink {
	return &zapSink{log: s.log.With(fields...)}
}

// Event is a single recorded event, kept by Capture for test assertions.
type Event struct {
	Level  string
	Name   string
	Fields []zap.Field
}

// Capture is a Sink that records events in memory.
type Capture struct {
	mu     sync.Mutex
	events []Event
}

// NewCapture returns an empty capturing sink.
func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) Warn(event string, fields ...zap.Field) {
	c.record("warn", event, fields)
}

func (c *Capture) Error(event string, fields ...zap.Field) {
	c.record("error", event, fields)
}

func (c *Capture) With(fields ...zap.Field) Sink {
	return c
}

func (c *Capture) record(level, name string, fields []zap.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Event{Level: level, Name: name, Fields: fields})
}

// Events returns a copy of everything recorded so far.
func (c *Capture) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Names returns the recorded event names in order.
func (c *Capture) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.events))
	for i, e := range c.events {
		names[i] = e.Name
	}
	return names
}
