package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/styloglo/styloglo/internal/imageio"
	"github.com/styloglo/styloglo/internal/pipeline"
)

// SubmitImage accepts a captured portrait and moves the session into the
// Analyzing mode, kicking off the asynchronous analysis.
//
// Allowed from Home, and from Dashboard only with discardCurrent set:
// capturing over an active dashboard throws away the current edit history,
// so the caller must acknowledge the discard. The whole flow then restarts
// as a fresh Home -> Analyzing transition. No other mode carries a capture
// surface.
func (m *Manager) SubmitImage(img imageio.Image, discardCurrent bool) error {
	if img.IsZero() {
		return fmt.Errorf("empty portrait payload")
	}

	m.mu.Lock()
	switch m.mode {
	case ModeHome:
		// Normal capture path.
	case ModeDashboard:
		if !discardCurrent {
			m.mu.Unlock()
			return ErrDiscardRequired
		}
		log.Info().Msg("Re-capture from dashboard: discarding current edit history")
	default:
		mode := m.mode
		m.mu.Unlock()
		return fmt.Errorf("%w: capture from %s", ErrInvalidTransition, mode)
	}

	gen := uuid.New()
	m.generation = gen
	m.captured = img
	m.profile = nil
	m.lastError = ""
	m.autoPrompt = ""
	m.pipe = nil
	m.mode = ModeAnalyzing
	m.mu.Unlock()

	meta := imageio.ExtractCaptureMetadata(img)
	log.Info().
		Str("generation", gen.String()).
		Int("image_bytes", len(img.Data)).
		Str("image_mime", img.MIME).
		Str("camera", meta.CameraMake+" "+meta.CameraModel).
		Msg("Portrait captured, analysis started")

	go m.runAnalysis(gen, img)
	return nil
}

// runAnalysis performs the analysis join: the service call and the
// minimum-duration floor timer run concurrently, and the success transition
// fires only once both have settled. A failure short-circuits the timer and
// transitions immediately — the floor smooths the scanning animation, not
// error reporting.
func (m *Manager) runAnalysis(gen uuid.UUID, img imageio.Image) {
	floor := time.After(m.scanFloor)

	profile, err := m.analyzer.Analyze(context.Background(), img)
	if err == nil {
		<-floor
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Stale-result guard: the session may have been restarted or logged out
	// while the call was in flight.
	if m.generation != gen || m.mode != ModeAnalyzing {
		log.Warn().
			Str("generation", gen.String()).
			Str("mode", string(m.mode)).
			Msg("Dropping stale analysis settlement")
		return
	}

	if err != nil {
		log.Error().Err(err).Msg("Analysis failed")
		m.mode = ModeHome
		m.lastError = AnalysisFailureMessage
		return
	}

	m.profile = profile
	m.pipe = pipeline.New(m.editor, img)
	m.mode = ModeDashboard
	m.lastError = ""
	log.Info().
		Str("face_shape", profile.FaceShape).
		Str("gender", profile.Gender).
		Msg("Analysis complete, dashboard ready")
}
