package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/styloglo/styloglo/internal/imageio"
	"github.com/styloglo/styloglo/internal/pipeline"
	"github.com/styloglo/styloglo/internal/stylist"
)

func portrait(b byte) imageio.Image {
	return imageio.Image{Data: []byte{b}, MIME: "image/jpeg"}
}

// fakeAnalyzer implements Analyzer with controllable latency and failures.
type fakeAnalyzer struct {
	mu      sync.Mutex
	err     error
	latency time.Duration
	release chan struct{}
	calls   int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, img imageio.Image) (*stylist.StyleProfile, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	latency := f.latency
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if latency > 0 {
		time.Sleep(latency)
	}
	if err != nil {
		return nil, err
	}
	return &stylist.StyleProfile{
		FaceShape: "Oval",
		SkinTone:  "Medium",
		Gender:    stylist.GenderFemale,
		Undertone: stylist.UndertoneWarm,
		Recommendations: stylist.Recommendations{
			Hair:   []string{"Bob"},
			Colors: []string{"Cream"},
		},
	}, nil
}

// fakeEditor implements pipeline.Editor.
type fakeEditor struct {
	mu      sync.Mutex
	err     error
	release chan struct{}
	calls   int
}

func (f *fakeEditor) Edit(ctx context.Context, img imageio.Image, instruction string) (imageio.Image, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	err := f.err
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return imageio.Image{}, err
	}
	return imageio.Image{Data: []byte{0xE0 + byte(n)}, MIME: "image/png"}, nil
}

const testFloor = 150 * time.Millisecond

func newTestManager(analyzer *fakeAnalyzer, editor *fakeEditor) *Manager {
	if analyzer == nil {
		analyzer = &fakeAnalyzer{}
	}
	if editor == nil {
		editor = &fakeEditor{}
	}
	return New(analyzer, editor, testFloor)
}

// loginAndCapture drives the manager into the Dashboard mode.
func loginAndCapture(t *testing.T, m *Manager) {
	t.Helper()
	if err := m.Login(); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.SubmitImage(portrait(1), false); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForMode(t, m, ModeDashboard)
}

func waitForMode(t *testing.T, m *Manager, want Mode) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.Snapshot().Mode == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("mode never reached %s (currently %s)", want, m.Snapshot().Mode)
}

func TestInitialModeIsLoggedOut(t *testing.T) {
	m := newTestManager(nil, nil)
	if got := m.Snapshot().Mode; got != ModeLoggedOut {
		t.Errorf("expected logged_out, got %s", got)
	}
}

func TestLoginTransition(t *testing.T) {
	m := newTestManager(nil, nil)
	if err := m.Login(); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := m.Snapshot().Mode; got != ModeHome {
		t.Errorf("expected home, got %s", got)
	}
	// Double login is invalid.
	if err := m.Login(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSubmitImageRequiresHome(t *testing.T) {
	m := newTestManager(nil, nil)
	if err := m.SubmitImage(portrait(1), false); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from logged_out, got %v", err)
	}
}

func TestAnalysisSuccessRespectsFloor(t *testing.T) {
	// Service answers almost immediately; the dashboard transition must
	// still wait out the floor.
	m := newTestManager(&fakeAnalyzer{latency: 5 * time.Millisecond}, nil)
	if err := m.Login(); err != nil {
		t.Fatalf("login: %v", err)
	}

	start := time.Now()
	if err := m.SubmitImage(portrait(1), false); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := m.Snapshot().Mode; got != ModeAnalyzing {
		t.Fatalf("expected analyzing right after submit, got %s", got)
	}

	waitForMode(t, m, ModeDashboard)
	if elapsed := time.Since(start); elapsed < testFloor {
		t.Errorf("dashboard reached after %v, before the %v floor", elapsed, testFloor)
	}

	snap := m.Snapshot()
	if snap.Profile == nil || snap.Profile.FaceShape != "Oval" {
		t.Errorf("expected profile stored, got %+v", snap.Profile)
	}
	if snap.HistoryLen != 1 {
		t.Errorf("expected fresh history of length 1, got %d", snap.HistoryLen)
	}
	if snap.LastError != "" {
		t.Errorf("expected no error, got %q", snap.LastError)
	}
}

func TestAnalysisFailureShortCircuitsFloor(t *testing.T) {
	m := newTestManager(&fakeAnalyzer{err: errors.New("INVALID_ARGUMENT: raw internal detail")}, nil)
	if err := m.Login(); err != nil {
		t.Fatalf("login: %v", err)
	}

	start := time.Now()
	if err := m.SubmitImage(portrait(1), false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitForMode(t, m, ModeHome)
	if elapsed := time.Since(start); elapsed >= testFloor {
		t.Errorf("failure transition took %v, should not wait for the %v floor", elapsed, testFloor)
	}

	snap := m.Snapshot()
	if snap.LastError != AnalysisFailureMessage {
		t.Errorf("expected generic failure message, got %q", snap.LastError)
	}
	if snap.Profile != nil {
		t.Error("expected no profile after failure")
	}
}

func TestStaleAnalysisDroppedAfterLogout(t *testing.T) {
	release := make(chan struct{})
	analyzer := &fakeAnalyzer{release: release}
	m := newTestManager(analyzer, nil)
	if err := m.Login(); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.SubmitImage(portrait(1), false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	m.Logout()
	close(release)

	// Give the stale settlement time to (incorrectly) apply.
	time.Sleep(testFloor + 100*time.Millisecond)

	snap := m.Snapshot()
	if snap.Mode != ModeLoggedOut {
		t.Errorf("stale settlement mutated mode to %s", snap.Mode)
	}
	if snap.Profile != nil || snap.HasImage {
		t.Error("stale settlement mutated session data")
	}
}

func TestDelayedAnalysisStillSettles(t *testing.T) {
	// A slow settlement with no interleaving session change is not stale
	// and must land normally.
	release := make(chan struct{})
	analyzer := &fakeAnalyzer{release: release}
	m := newTestManager(analyzer, nil)
	if err := m.Login(); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.SubmitImage(portrait(1), false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	waitForMode(t, m, ModeDashboard)

	if snap := m.Snapshot(); snap.HistoryLen != 1 {
		t.Errorf("expected single fresh history, got %d", snap.HistoryLen)
	}
}

func TestRecaptureFromDashboardRequiresDiscard(t *testing.T) {
	m := newTestManager(nil, nil)
	loginAndCapture(t, m)

	if err := m.SubmitImage(portrait(2), false); !errors.Is(err, ErrDiscardRequired) {
		t.Fatalf("expected ErrDiscardRequired, got %v", err)
	}
	// State untouched by the rejected capture.
	if got := m.Snapshot().Mode; got != ModeDashboard {
		t.Fatalf("expected dashboard after rejected capture, got %s", got)
	}

	if err := m.SubmitImage(portrait(2), true); err != nil {
		t.Fatalf("acknowledged recapture: %v", err)
	}
	waitForMode(t, m, ModeDashboard)
	if snap := m.Snapshot(); snap.HistoryLen != 1 {
		t.Errorf("expected fresh history after recapture, got %d", snap.HistoryLen)
	}
}

func TestRecaptureFromSettingsRejected(t *testing.T) {
	m := newTestManager(nil, nil)
	loginAndCapture(t, m)

	if err := m.GoTo(ModeSettings); err != nil {
		t.Fatalf("to settings: %v", err)
	}
	// No capture surface exists on settings, acknowledged or not.
	if err := m.SubmitImage(portrait(2), true); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from settings, got %v", err)
	}
	if got := m.Snapshot().Mode; got != ModeSettings {
		t.Errorf("expected settings after rejected capture, got %s", got)
	}
}

func TestGoToSettingsAndBack(t *testing.T) {
	m := newTestManager(nil, nil)
	loginAndCapture(t, m)

	if err := m.GoTo(ModeSettings); err != nil {
		t.Fatalf("to settings: %v", err)
	}
	if err := m.GoTo(ModeDashboard); err != nil {
		t.Fatalf("back to dashboard: %v", err)
	}
	if err := m.GoTo(ModeHome); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for dashboard -> home, got %v", err)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	m := newTestManager(nil, nil)
	loginAndCapture(t, m)

	m.Logout()
	snap := m.Snapshot()
	if snap.Mode != ModeLoggedOut || snap.HasImage || snap.Profile != nil ||
		snap.LastError != "" || snap.HistoryLen != 0 {
		t.Errorf("expected fully cleared session, got %+v", snap)
	}
}

func TestEndToEndEditFlow(t *testing.T) {
	editor := &fakeEditor{}
	m := newTestManager(nil, editor)
	loginAndCapture(t, m)

	if err := m.ApplyEdit(context.Background(), "Bob haircut"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	snap := m.Snapshot()
	if snap.HistoryLen != 2 {
		t.Fatalf("expected history length 2, got %d", snap.HistoryLen)
	}
	tip, err := m.Tip()
	if err != nil {
		t.Fatalf("tip: %v", err)
	}
	if tip.Data[0] == 1 {
		t.Error("expected tip to be the edited image, not the original")
	}

	if err := m.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	snap = m.Snapshot()
	if snap.HistoryLen != 1 {
		t.Errorf("expected history length 1 after undo, got %d", snap.HistoryLen)
	}
	tip, _ = m.Tip()
	if tip.Data[0] != 1 {
		t.Error("expected tip back at the original after undo")
	}
}

func TestApplyEditOnlyOnDashboard(t *testing.T) {
	m := newTestManager(nil, nil)
	if err := m.ApplyEdit(context.Background(), "x"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAutoEditAppliedOnce(t *testing.T) {
	editor := &fakeEditor{}
	m := newTestManager(nil, editor)
	loginAndCapture(t, m)

	if err := m.RequestAutoEdit(context.Background(), pipeline.CategoryHair, "Bob"); err != nil {
		t.Fatalf("auto edit: %v", err)
	}

	snap := m.Snapshot()
	if snap.AutoPrompt != "" {
		t.Errorf("expected auto prompt consumed, still pending: %q", snap.AutoPrompt)
	}
	if snap.HistoryLen != 2 {
		t.Errorf("expected one applied edit, history length %d", snap.HistoryLen)
	}

	editor.mu.Lock()
	calls := editor.calls
	editor.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected exactly one edit call, got %d", calls)
	}
}

func TestAutoEditConsumedOnFailure(t *testing.T) {
	editor := &fakeEditor{err: errors.New("RESOURCE_EXHAUSTED")}
	m := newTestManager(nil, editor)
	loginAndCapture(t, m)

	if err := m.RequestAutoEdit(context.Background(), pipeline.CategoryHair, "Bob"); err == nil {
		t.Fatal("expected edit failure")
	}

	snap := m.Snapshot()
	if snap.AutoPrompt != "" {
		t.Errorf("failed auto edit must still be consumed, pending: %q", snap.AutoPrompt)
	}
	if snap.HistoryLen != 1 {
		t.Errorf("expected untouched history, got %d", snap.HistoryLen)
	}
	if snap.EditError == nil || snap.EditError.Kind != pipeline.KindQuotaExhausted {
		t.Errorf("expected quota classification surfaced, got %+v", snap.EditError)
	}
}

func TestAutoEditRejectedWhileBusy(t *testing.T) {
	release := make(chan struct{})
	editor := &fakeEditor{release: release}
	m := newTestManager(nil, editor)
	loginAndCapture(t, m)

	done := make(chan error, 1)
	go func() { done <- m.ApplyEdit(context.Background(), "slow edit") }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !m.Snapshot().EditBusy {
		time.Sleep(time.Millisecond)
	}

	err := m.RequestAutoEdit(context.Background(), pipeline.CategoryHair, "Bob")
	if !errors.Is(err, pipeline.ErrEditInFlight) {
		t.Errorf("expected ErrEditInFlight, got %v", err)
	}
	if snap := m.Snapshot(); snap.AutoPrompt != "" {
		t.Errorf("rejected auto prompt must not linger, pending: %q", snap.AutoPrompt)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first edit failed: %v", err)
	}
	if snap := m.Snapshot(); snap.HistoryLen != 2 {
		t.Errorf("expected exactly one appended edit, got history %d", snap.HistoryLen)
	}
}

// A completion from a pipeline detached by logout must not clear a prompt
// queued after the session restarted.
func TestStaleEditCompletionLeavesNewAutoPrompt(t *testing.T) {
	firstRelease := make(chan struct{})
	editor := &fakeEditor{release: firstRelease}
	m := newTestManager(nil, editor)
	loginAndCapture(t, m)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- m.RequestAutoEdit(context.Background(), pipeline.CategoryHair, "Bob")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !m.Snapshot().EditBusy {
		time.Sleep(time.Millisecond)
	}

	m.Logout()
	loginAndCapture(t, m)

	// Queue a fresh auto edit against the new pipeline, also held open.
	secondRelease := make(chan struct{})
	editor.mu.Lock()
	editor.release = secondRelease
	editor.mu.Unlock()

	secondDone := make(chan error, 1)
	go func() {
		secondDone <- m.RequestAutoEdit(context.Background(), pipeline.CategoryHair, "Pixie cut")
	}()

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && m.Snapshot().AutoPrompt == "" {
		time.Sleep(time.Millisecond)
	}
	if m.Snapshot().AutoPrompt == "" {
		t.Fatal("second auto prompt never queued")
	}

	// Let the detached first edit settle; its completion is stale.
	close(firstRelease)
	if err := <-firstDone; err != nil {
		t.Fatalf("first edit: %v", err)
	}
	if snap := m.Snapshot(); snap.AutoPrompt == "" {
		t.Error("stale completion cleared the new pending prompt")
	}

	close(secondRelease)
	if err := <-secondDone; err != nil {
		t.Fatalf("second edit: %v", err)
	}
	if snap := m.Snapshot(); snap.AutoPrompt != "" {
		t.Errorf("current completion should clear the prompt, still pending: %q", snap.AutoPrompt)
	}
	if snap := m.Snapshot(); snap.HistoryLen != 2 {
		t.Errorf("expected one applied edit on the new pipeline, history %d", snap.HistoryLen)
	}
}

func TestEditFailureClassificationSurfaced(t *testing.T) {
	editor := &fakeEditor{err: errors.New("API returned status 500: RESOURCE_EXHAUSTED quota exceeded")}
	m := newTestManager(nil, editor)
	loginAndCapture(t, m)

	if err := m.ApplyEdit(context.Background(), "anything"); err == nil {
		t.Fatal("expected failure")
	}

	snap := m.Snapshot()
	if snap.EditError == nil {
		t.Fatal("expected classified edit error in snapshot")
	}
	if snap.EditError.Kind != pipeline.KindQuotaExhausted {
		t.Errorf("expected quota_exhausted, got %s", snap.EditError.Kind)
	}
	if snap.HistoryLen != 1 {
		t.Errorf("expected unchanged history, got %d", snap.HistoryLen)
	}
}
