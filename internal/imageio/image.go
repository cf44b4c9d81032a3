// Package imageio handles portrait payloads: decoding browser data URLs,
// MIME sniffing, and normalizing oversized captures before they are sent to
// the model.
package imageio

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// MaxPortraitDimension is the ceiling for either side of an uploaded
// portrait. Camera captures routinely exceed 4000px; the model gains nothing
// past this and upload latency suffers.
const MaxPortraitDimension = 1536

// Image is an opaque portrait payload as it moves through the session and
// edit history.
type Image struct {
	Data []byte
	MIME string
}

// IsZero reports whether the image carries no payload.
func (img Image) IsZero() bool {
	return len(img.Data) == 0
}

// DataURL encodes the image as a base64 data URL for browser consumption.
func (img Image) DataURL() string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// FromDataURL decodes a browser data URL ("data:image/jpeg;base64,...") into
// an Image. Raw base64 without the data: prefix is accepted too, with the
// MIME type sniffed from the decoded bytes.
func FromDataURL(s string) (Image, error) {
	payload := s
	mime := ""

	if strings.HasPrefix(s, "data:") {
		rest := s[len("data:"):]
		semi := strings.Index(rest, ";base64,")
		if semi == -1 {
			return Image{}, fmt.Errorf("unsupported data URL encoding")
		}
		mime = rest[:semi]
		payload = rest[semi+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("empty image payload")
	}

	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("unsupported content type %q", mime)
	}

	return Image{Data: data, MIME: mime}, nil
}

// Normalize downscales a portrait so neither side exceeds maxDimension,
// re-encoding as JPEG. Images already within bounds are returned unchanged,
// as are formats the standard decoders cannot read (the model accepts them
// as-is).
func Normalize(img Image, maxDimension int) Image {
	decoded, format, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		log.Debug().Err(err).Str("mime", img.MIME).Msg("Portrait not decodable, passing through")
		return img
	}

	bounds := decoded.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDimension && h <= maxDimension {
		return img
	}

	scale := float64(maxDimension) / float64(w)
	if h > w {
		scale = float64(maxDimension) / float64(h)
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), decoded, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		log.Warn().Err(err).Msg("Failed to re-encode normalized portrait, keeping original")
		return img
	}

	log.Debug().
		Str("format", format).
		Int("original_width", w).Int("original_height", h).
		Int("width", newW).Int("height", newH).
		Int("original_bytes", len(img.Data)).Int("bytes", buf.Len()).
		Msg("Portrait normalized")

	return Image{Data: buf.Bytes(), MIME: "image/jpeg"}
}

// Ext returns a file extension for the image's MIME type, used when naming
// exported history entries.
func (img Image) Ext() string {
	switch img.MIME {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
