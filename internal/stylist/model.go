package stylist

import "os"

// Gemini Model IDs
//
// | Model Name               | API Model ID               | Use Case                   |
// |--------------------------|----------------------------|----------------------------|
// | Gemini 3 Flash (Preview) | gemini-3-flash-preview     | Profile analysis, planning |
// | Gemini 2.5 Flash         | gemini-2.5-flash           | Stable fallback            |
// | Gemini 3 Pro Image       | gemini-3-pro-image-preview | Style edits (image output) |
const (
	// ModelGemini3FlashPreview is best for speed + intelligence.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"

	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"
)

// DefaultModelName is the default model for analysis and plan generation.
// Can be overridden via STYLOGLO_MODEL.
const DefaultModelName = ModelGemini3FlashPreview

// DefaultImageModelName is the default model for image-out style edits.
// Can be overridden via STYLOGLO_IMAGE_MODEL.
const DefaultImageModelName = ModelGemini3ProImage

// GetModelName returns the analysis/planning model, resolved from the
// STYLOGLO_MODEL environment variable with a compiled default.
func GetModelName() string {
	if env := os.Getenv("STYLOGLO_MODEL"); env != "" {
		return env
	}
	return DefaultModelName
}

// GetImageModelName returns the image-edit model, resolved from the
// STYLOGLO_IMAGE_MODEL environment variable with a compiled default.
func GetImageModelName() string {
	if env := os.Getenv("STYLOGLO_IMAGE_MODEL"); env != "" {
		return env
	}
	return DefaultImageModelName
}
