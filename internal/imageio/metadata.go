package imageio

import (
	"bytes"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// CaptureMetadata holds EXIF fields extracted from an uploaded portrait.
// Extraction is best-effort: browser canvas captures usually strip EXIF, so
// absence of metadata is the common case.
type CaptureMetadata struct {
	CameraMake  string
	CameraModel string
	DateTaken   time.Time
	HasDate     bool
}

// ExtractCaptureMetadata reads EXIF metadata from the portrait bytes. It
// never fails the upload path; on any decode problem it returns an empty
// CaptureMetadata.
func ExtractCaptureMetadata(img Image) CaptureMetadata {
	exif, err := imagemeta.Decode(bytes.NewReader(img.Data))
	if err != nil {
		log.Debug().Err(err).Msg("No EXIF metadata in portrait")
		return CaptureMetadata{}
	}

	meta := CaptureMetadata{
		CameraMake:  strings.TrimSpace(exif.Make),
		CameraModel: strings.TrimSpace(exif.Model),
	}
	if dt := exif.DateTimeOriginal(); !dt.IsZero() {
		meta.DateTaken = dt
		meta.HasDate = true
	}

	log.Debug().
		Str("camera_make", meta.CameraMake).
		Str("camera_model", meta.CameraModel).
		Bool("has_date", meta.HasDate).
		Msg("Extracted portrait EXIF metadata")

	return meta
}
