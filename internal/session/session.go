// Package session owns the application's top-level state: which mode the app
// is in, the captured portrait, the derived style profile, and the pending
// auto-trigger instruction. All mutation happens through the transition
// methods here; collaborators read state through immutable snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/styloglo/styloglo/internal/imageio"
	"github.com/styloglo/styloglo/internal/pipeline"
	"github.com/styloglo/styloglo/internal/stylist"
)

// Mode is the top-level application mode. Exactly one is active at a time.
type Mode string

const (
	ModeLoggedOut Mode = "logged_out"
	ModeHome      Mode = "home"
	ModeAnalyzing Mode = "analyzing"
	ModeDashboard Mode = "dashboard"
	ModeSettings  Mode = "settings"
)

// AnalysisFailureMessage is the only analysis error ever shown to the user;
// raw service detail never surfaces on this path.
const AnalysisFailureMessage = "We couldn't analyze the image. Please try a different photo."

// Analyzer is the external face-analysis operation.
type Analyzer interface {
	Analyze(ctx context.Context, img imageio.Image) (*stylist.StyleProfile, error)
}

// Transition rejections.
var (
	ErrInvalidTransition = errors.New("transition not allowed from current mode")
	ErrDiscardRequired   = errors.New("capturing a new portrait discards the current edit history; confirm the discard")
	ErrNoPipeline        = errors.New("no active edit pipeline")
)

// Manager is the single state container for one app run. It is safe for
// concurrent use; asynchronous settlements (analysis results) are guarded by
// a per-capture generation so stale results cannot corrupt newer state.
type Manager struct {
	analyzer Analyzer
	editor   pipeline.Editor

	// scanFloor is the minimum visible duration of the Analyzing mode on the
	// success path.
	scanFloor time.Duration

	mu         sync.Mutex
	mode       Mode
	captured   imageio.Image
	profile    *stylist.StyleProfile
	lastError  string
	autoPrompt string
	generation uuid.UUID
	pipe       *pipeline.Pipeline
}

// New creates a Manager in the LoggedOut mode.
func New(analyzer Analyzer, editor pipeline.Editor, scanFloor time.Duration) *Manager {
	return &Manager{
		analyzer:  analyzer,
		editor:    editor,
		scanFloor: scanFloor,
		mode:      ModeLoggedOut,
	}
}

// Snapshot is a read-only view of the session for rendering. Profile points
// at the immutable profile value; everything else is copied.
type Snapshot struct {
	Mode       Mode
	HasImage   bool
	Profile    *stylist.StyleProfile
	LastError  string
	AutoPrompt string

	// Edit state, zero-valued outside the dashboard.
	HistoryLen int
	EditBusy   bool
	EditError  *pipeline.Classification
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Mode:       m.mode,
		HasImage:   !m.captured.IsZero(),
		Profile:    m.profile,
		LastError:  m.lastError,
		AutoPrompt: m.autoPrompt,
	}
	if m.pipe != nil {
		st := m.pipe.Snapshot()
		s.HistoryLen = st.HistoryLen
		s.EditBusy = st.Busy
		s.EditError = st.LastError
	}
	return s
}

// Login moves LoggedOut -> Home. Credential validation happens outside the
// core; the transition itself carries no further contract.
func (m *Manager) Login() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != ModeLoggedOut {
		return fmt.Errorf("%w: login from %s", ErrInvalidTransition, m.mode)
	}
	m.mode = ModeHome
	m.lastError = ""
	log.Info().Msg("Logged in")
	return nil
}

// Logout clears the entire session, as if the app restarted.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = ModeLoggedOut
	m.captured = imageio.Image{}
	m.profile = nil
	m.lastError = ""
	m.autoPrompt = ""
	m.pipe = nil
	// Rotate the generation so any in-flight settlement is dropped.
	m.generation = uuid.Nil
	log.Info().Msg("Logged out, session cleared")
}

// GoTo handles the side-effect-free navigation pair: Dashboard <-> Settings.
func (m *Manager) GoTo(target Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok := (m.mode == ModeDashboard && target == ModeSettings) ||
		(m.mode == ModeSettings && target == ModeDashboard)
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.mode, target)
	}
	m.mode = target
	m.lastError = ""
	log.Debug().Str("mode", string(target)).Msg("Mode changed")
	return nil
}

// Tip returns the pipeline's current portrait, or the captured image while
// no pipeline exists yet.
func (m *Manager) Tip() (imageio.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pipe != nil {
		return m.pipe.Tip(), nil
	}
	if m.captured.IsZero() {
		return imageio.Image{}, fmt.Errorf("no portrait captured")
	}
	return m.captured, nil
}

// HistoryEntries returns a copy of the edit history, original first.
func (m *Manager) HistoryEntries() ([]imageio.Image, error) {
	m.mu.Lock()
	pipe := m.pipe
	m.mu.Unlock()
	if pipe == nil {
		return nil, ErrNoPipeline
	}
	return pipe.Entries(), nil
}

// ApplyEdit runs a user-typed instruction through the pipeline. Only valid
// on the dashboard. Empty instructions are silently absorbed; a collision
// with an in-flight edit returns pipeline.ErrEditInFlight.
func (m *Manager) ApplyEdit(ctx context.Context, instruction string) error {
	m.mu.Lock()
	if m.mode != ModeDashboard {
		m.mu.Unlock()
		return fmt.Errorf("%w: edit from %s", ErrInvalidTransition, m.mode)
	}
	pipe := m.pipe
	m.mu.Unlock()
	if pipe == nil {
		return ErrNoPipeline
	}
	return pipe.Apply(ctx, instruction, nil)
}

// RequestAutoEdit queues a recommendation-triggered instruction and applies
// it exactly once. The pending prompt is cleared by the edit-complete
// notification — success or failure — never re-applied, and dropped
// entirely when an edit is already in flight.
func (m *Manager) RequestAutoEdit(ctx context.Context, category pipeline.Category, item string) error {
	instruction, err := pipeline.BuildStylePrompt(category, item)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.mode != ModeDashboard {
		m.mu.Unlock()
		return fmt.Errorf("%w: auto edit from %s", ErrInvalidTransition, m.mode)
	}
	pipe := m.pipe
	if pipe == nil {
		m.mu.Unlock()
		return ErrNoPipeline
	}
	m.autoPrompt = instruction
	gen := m.generation
	m.mu.Unlock()

	log.Info().Str("category", string(category)).Str("item", item).Msg("Auto edit requested")

	// The clear is guarded by the capture generation, like analysis
	// settlements: a completion from a pre-logout pipeline must not touch a
	// prompt queued after the session restarted.
	clearPrompt := func() {
		m.mu.Lock()
		if m.generation == gen {
			m.autoPrompt = ""
		}
		m.mu.Unlock()
	}

	err = pipe.Apply(ctx, instruction, clearPrompt)
	if errors.Is(err, pipeline.ErrEditInFlight) {
		// Rejected, not queued: the prompt is consumed regardless.
		clearPrompt()
	}
	return err
}

// Undo removes the latest edit; a no-op at the original.
func (m *Manager) Undo() error {
	m.mu.Lock()
	pipe := m.pipe
	m.mu.Unlock()
	if pipe == nil {
		return ErrNoPipeline
	}
	return pipe.Undo()
}

// Reset truncates the edit history back to the original capture.
func (m *Manager) Reset() error {
	m.mu.Lock()
	pipe := m.pipe
	m.mu.Unlock()
	if pipe == nil {
		return ErrNoPipeline
	}
	return pipe.Reset()
}
