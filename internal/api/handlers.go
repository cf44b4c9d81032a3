package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/styloglo/styloglo/internal/imageio"
	"github.com/styloglo/styloglo/internal/pipeline"
	"github.com/styloglo/styloglo/internal/session"
	"github.com/styloglo/styloglo/internal/stylist"
)

// sessionView is the wire form of a session snapshot.
type sessionView struct {
	Mode       string                   `json:"mode"`
	HasImage   bool                     `json:"hasImage"`
	Profile    *stylist.StyleProfile    `json:"profile,omitempty"`
	LastError  string                   `json:"lastError,omitempty"`
	AutoPrompt string                   `json:"autoPrompt,omitempty"`
	HistoryLen int                      `json:"historyLen"`
	EditBusy   bool                     `json:"editBusy"`
	EditError  *pipeline.Classification `json:"editError,omitempty"`
}

func viewOf(snap session.Snapshot) sessionView {
	return sessionView{
		Mode:       string(snap.Mode),
		HasImage:   snap.HasImage,
		Profile:    snap.Profile,
		LastError:  snap.LastError,
		AutoPrompt: snap.AutoPrompt,
		HistoryLen: snap.HistoryLen,
		EditBusy:   snap.EditBusy,
		EditError:  snap.EditError,
	}
}

// GET /api/session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s.sessions.Snapshot()))
}

// POST /api/login
//
// Credentials are not verified against anything — the session is local and
// single-user — but the fields must be present, matching the form contract.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httpError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := s.sessions.Login(); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s.sessions.Snapshot()))
}

// POST /api/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.sessions.Logout()
	respondJSON(w, http.StatusOK, viewOf(s.sessions.Snapshot()))
}

// POST /api/session/image
//
// Body: {"image": "<data URL or base64>", "discardCurrent": bool}. Capturing
// over an active dashboard requires discardCurrent; without it the request
// is rejected with a 409 so the client can confirm with the user.
func (s *Server) handleSubmitImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Image          string `json:"image"`
		DiscardCurrent bool   `json:"discardCurrent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Image == "" {
		httpError(w, http.StatusBadRequest, "image is required")
		return
	}

	img, err := imageio.FromDataURL(req.Image)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	img = imageio.Normalize(img, imageio.MaxPortraitDimension)

	if err := s.sessions.SubmitImage(img, req.DiscardCurrent); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, viewOf(s.sessions.Snapshot()))
}

// POST /api/session/mode
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.sessions.GoTo(session.Mode(req.Mode)); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s.sessions.Snapshot()))
}

// POST /api/edit
//
// Runs a free-form instruction through the pipeline. An in-flight edit
// rejects with 409; a service failure returns 502 with the classified,
// user-facing message.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Instruction string `json:"instruction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.finishEdit(w, s.sessions.ApplyEdit(r.Context(), req.Instruction))
}

// POST /api/edit/style
//
// Body: {"category": "hair", "item": "Bob haircut"}. The recommendation
// chip path: the instruction is built server-side from the category's
// prompt template.
func (s *Server) handleStyleEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Category string `json:"category"`
		Item     string `json:"item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Item == "" {
		httpError(w, http.StatusBadRequest, "item is required")
		return
	}

	err := s.sessions.RequestAutoEdit(r.Context(), pipeline.Category(req.Category), req.Item)
	s.finishEdit(w, err)
}

// finishEdit translates an edit outcome into a response. Rejection sentinels
// are checked before the snapshot classification: a busy collision must come
// back as a 409, never as a stale classification retained from an earlier
// failed edit. Only a genuine service failure answers 502 with the remedy
// text, so the client can render it without a second snapshot fetch.
func (s *Server) finishEdit(w http.ResponseWriter, err error) {
	if err == nil {
		respondJSON(w, http.StatusOK, viewOf(s.sessions.Snapshot()))
		return
	}
	if isStateConflict(err) {
		respondSessionError(w, err)
		return
	}

	snap := s.sessions.Snapshot()
	if snap.EditError != nil {
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": snap.EditError.Message,
			"kind":  snap.EditError.Kind,
		})
		return
	}
	respondSessionError(w, err)
}

// POST /api/edit/undo
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.sessions.Undo(); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s.sessions.Snapshot()))
}

// POST /api/edit/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.sessions.Reset(); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s.sessions.Snapshot()))
}

// GET /api/image/current
func (s *Server) handleCurrentImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	img, err := s.sessions.Tip()
	if err != nil {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img.Data)
}

// GET /api/plan
//
// Streams the weekly plan as NDJSON, one day per line, in plan order. The
// plan is generated fresh on every request; a fetch failure surfaces as a
// trailing {"error": ...} line since the stream may already be underway.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap := s.sessions.Snapshot()
	if snap.Profile == nil {
		httpError(w, http.StatusConflict, "no style profile available; analyze a portrait first")
		return
	}

	plan := s.planner.WeeklyPlan(r.Context(), snap.Profile)

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	for {
		day, ok := plan.Next()
		if !ok {
			break
		}
		if err := enc.Encode(day); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if err := plan.Err(); err != nil {
		log.Error().Err(err).Msg("Weekly plan stream failed")
		enc.Encode(map[string]string{"error": "Failed to generate the weekly plan. Please try again."})
	}
}
