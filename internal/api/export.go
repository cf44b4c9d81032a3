package api

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE
// 6.3.7). Registered in init() with zstd level 12 (SpeedBestCompression in
// klauspost/compress).
const zipMethodZstd uint16 = 93

func init() {
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})
}

// GET /api/history/export
//
// Streams the full edit history as a zstd-compressed ZIP: the original
// capture first, then every surviving edit in acceptance order.
func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries, err := s.sessions.HistoryEntries()
	if err != nil {
		respondSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="styloglo-history.zip"`)

	zipWriter := zip.NewWriter(w)
	now := time.Now()

	for i, img := range entries {
		name := fmt.Sprintf("portrait-%02d%s", i, img.Ext())
		if i == 0 {
			name = "original" + img.Ext()
		}

		header := &zip.FileHeader{
			Name:     name,
			Method:   zipMethodZstd,
			Modified: now,
		}
		entry, err := zipWriter.CreateHeader(header)
		if err != nil {
			log.Error().Err(err).Str("entry", name).Msg("Failed to create ZIP entry")
			return
		}
		if _, err := entry.Write(img.Data); err != nil {
			log.Error().Err(err).Str("entry", name).Msg("Failed to write ZIP entry")
			return
		}
	}

	if err := zipWriter.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to finalize history ZIP")
		return
	}

	log.Info().Int("entries", len(entries)).Msg("Edit history exported")
}
