package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/statement-splitter/internal/logger"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
)

// Emitter is the write side of an event stream. It owns the ordering rules:
// nothing is sent after a terminal event or after the context is done.
type Emitter struct {
	ctx context.Context
	ch  chan Event

	mu     sync.Mutex
	closed bool
	ended  bool
}

// NewEmitter creates an emitter whose channel holds up to buffer events.
func NewEmitter(ctx context.Context, buffer int) *Emitter {
	return &Emitter{ctx: ctx, ch: make(chan Event, buffer)}
}

// Events is the read side, closed once the producer is done.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Emit sends ev, blocking until the reader takes it or the context ends.
// It reports whether the event was delivered.
func (e *Emitter) Emit(ev Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.ended || e.ctx.Err() != nil {
		return false
	}

	select {
	case e.ch <- ev:
		if ev.Type.Terminal() {
			e.ended = true
		}
		return true
	case <-e.ctx.Done():
		return false
	}
}

// Close closes the channel. Further emits are dropped.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}

// Produce runs doc through proc and reports every milestone on em, then
// closes it. A failure becomes a single error event; after cancellation
// nothing more is emitted.
func Produce(ctx context.Context, em *Emitter, proc pipeline.Processor, doc *pipeline.Document) {
	log := logger.FromContext(ctx)
	defer em.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Panic while processing statement")
			em.Emit(Event{Type: EventError, Message: Diagnostic(fmt.Errorf("panic: %v", r))})
		}
	}()

	if !em.Emit(Event{Type: EventInit, Preview: Preview(doc)}) {
		return
	}

	acct, err := proc.Process(ctx, doc, func(text string) {
		em.Emit(Event{Type: EventStatus, Text: text})
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Info().Msg("Client went away, dropping stream")
			return
		}
		em.Emit(Event{Type: EventError, Message: Diagnostic(err)})
		return
	}

	payload, err := NewAccountPayload(acct)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build account payload")
		em.Emit(Event{Type: EventError, Message: Diagnostic(err)})
		return
	}

	em.Emit(Event{Type: EventChunk, Accounts: []AccountPayload{payload}})
}

// Diagnostic turns a pipeline error into a short message fit for clients.
func Diagnostic(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrUnsupportedInput):
		return "Unsupported file type. Upload a PDF, image or text statement."
	case errors.Is(err, pipeline.ErrConversion):
		return "Could not read the document. The file may be damaged or unreadable."
	case errors.Is(err, pipeline.ErrExtraction):
		return "Could not extract transactions from the image."
	case errors.Is(err, context.DeadlineExceeded):
		return "Processing timed out."
	default:
		return "Processing failed."
	}
}
