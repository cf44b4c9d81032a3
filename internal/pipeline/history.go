package pipeline

import "github.com/styloglo/styloglo/internal/imageio"

// History is the ordered, append-only sequence of portrait states for one
// dashboard session. Index 0 is the original capture and is never removed;
// the tip is always the last entry. There is no redo: undo is destructive
// truncation.
//
// History is not safe for concurrent use on its own; the Pipeline serializes
// access to it.
type History struct {
	entries []imageio.Image
}

// NewHistory creates a history rooted at the original capture.
func NewHistory(original imageio.Image) *History {
	return &History{entries: []imageio.Image{original}}
}

// Len returns the number of entries, always >= 1.
func (h *History) Len() int {
	return len(h.entries)
}

// Tip returns the current portrait state.
func (h *History) Tip() imageio.Image {
	return h.entries[len(h.entries)-1]
}

// Original returns the first capture.
func (h *History) Original() imageio.Image {
	return h.entries[0]
}

// At returns the entry at index i.
func (h *History) At(i int) imageio.Image {
	return h.entries[i]
}

// Append records a successful edit result as the new tip.
func (h *History) Append(img imageio.Image) {
	h.entries = append(h.entries, img)
}

// Undo removes the last entry. It reports false, leaving the history
// untouched, when only the original remains.
func (h *History) Undo() bool {
	if len(h.entries) <= 1 {
		return false
	}
	h.entries[len(h.entries)-1] = imageio.Image{} // drop the payload reference
	h.entries = h.entries[:len(h.entries)-1]
	return true
}

// Reset truncates the history back to the original capture.
func (h *History) Reset() {
	for i := 1; i < len(h.entries); i++ {
		h.entries[i] = imageio.Image{}
	}
	h.entries = h.entries[:1]
}
