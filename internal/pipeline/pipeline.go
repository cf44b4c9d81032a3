// Package pipeline owns the edit history of one portrait and serializes edit
// requests against it. It guarantees at most one edit in flight, appends
// history entries in acceptance order, and translates service failures into
// a stable user-facing taxonomy.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/styloglo/styloglo/internal/imageio"
)

// Editor is the external edit operation: current portrait plus instruction
// in, new portrait out.
type Editor interface {
	Edit(ctx context.Context, img imageio.Image, instruction string) (imageio.Image, error)
}

// Rejection sentinels. Neither produces a user-visible error state.
var (
	// ErrEditInFlight rejects an edit, undo, or reset while another edit is
	// outstanding. Requests are dropped, never queued.
	ErrEditInFlight = errors.New("an edit is already in flight")
)

// Pipeline applies edit instructions to the current portrait sequentially.
// It is safe for concurrent use; concurrent Apply calls beyond the first are
// rejected rather than queued.
type Pipeline struct {
	editor Editor

	mu       sync.Mutex
	history  *History
	inFlight bool
	lastErr  *Classification
}

// New creates a pipeline rooted at the original capture.
func New(editor Editor, original imageio.Image) *Pipeline {
	return &Pipeline{
		editor:  editor,
		history: NewHistory(original),
	}
}

// State is a read-only snapshot of the pipeline for rendering.
type State struct {
	HistoryLen int
	Busy       bool
	LastError  *Classification
}

// Snapshot returns the pipeline's current state.
func (p *Pipeline) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errCopy *Classification
	if p.lastErr != nil {
		c := *p.lastErr
		errCopy = &c
	}
	return State{
		HistoryLen: p.history.Len(),
		Busy:       p.inFlight,
		LastError:  errCopy,
	}
}

// Tip returns the current portrait state.
func (p *Pipeline) Tip() imageio.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.Tip()
}

// Entries returns a copy of the full history, original first.
func (p *Pipeline) Entries() []imageio.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := make([]imageio.Image, p.history.Len())
	for i := range entries {
		entries[i] = p.history.At(i)
	}
	return entries
}

// Apply runs one edit instruction against the current tip.
//
// An instruction that is empty after trimming is a silent no-op. If another
// edit is in flight the call returns ErrEditInFlight without queueing. On
// success the result is appended to the history and any prior error is
// cleared. On failure the error is classified and retained for display; the
// history is never mutated on failure.
//
// onComplete, when non-nil, fires after the edit settles — success or
// failure — so the session can clear a consumed auto-prompt exactly once.
func (p *Pipeline) Apply(ctx context.Context, instruction string, onComplete func()) error {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil
	}

	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		log.Debug().Str("instruction", instruction).Msg("Edit rejected: another edit is in flight")
		return ErrEditInFlight
	}
	p.inFlight = true
	tip := p.history.Tip()
	p.mu.Unlock()

	if onComplete != nil {
		defer onComplete()
	}

	result, err := p.editor.Edit(ctx, tip, instruction)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false

	if err != nil {
		c := Classify(err)
		p.lastErr = &c
		log.Error().
			Err(err).
			Str("kind", string(c.Kind)).
			Str("instruction", instruction).
			Msg("Edit failed")
		return err
	}

	p.history.Append(result)
	p.lastErr = nil
	log.Info().
		Int("history_len", p.history.Len()).
		Str("instruction", instruction).
		Msg("Edit applied")
	return nil
}

// Undo removes the most recent edit. Undoing past the original is a no-op;
// undoing while an edit is in flight is rejected.
func (p *Pipeline) Undo() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight {
		return ErrEditInFlight
	}
	if p.history.Undo() {
		log.Debug().Int("history_len", p.history.Len()).Msg("Edit undone")
	}
	return nil
}

// Reset truncates the history back to the original capture and clears any
// displayed error. Rejected while an edit is in flight.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight {
		return ErrEditInFlight
	}
	p.history.Reset()
	p.lastErr = nil
	log.Debug().Msg("Edit history reset to original")
	return nil
}
