// Package stylist is the Gemini-backed implementation of the three external
// operations the styling core consumes: portrait analysis, instruction-driven
// image edits, and weekly plan generation.
package stylist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/styloglo/styloglo/internal/assets"
	"github.com/styloglo/styloglo/internal/imageio"
	"github.com/styloglo/styloglo/internal/jsonutil"
	"github.com/styloglo/styloglo/internal/metrics"
)

// Client wraps the Gemini SDK client with the styling operations.
type Client struct {
	genai      *genai.Client
	model      string
	imageModel string
}

// New creates a Gemini-backed stylist client. Empty model names fall back to
// the environment-resolved defaults.
func New(ctx context.Context, apiKey, model, imageModel string) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = GetModelName()
	}
	if imageModel == "" {
		imageModel = GetImageModelName()
	}

	return &Client{genai: gc, model: model, imageModel: imageModel}, nil
}

// Validate verifies the API key with a minimal generation call.
func (c *Client) Validate(ctx context.Context) error {
	log.Debug().Msg("Validating API key with Gemini API")

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text("hi"), nil)
	if err != nil {
		return fmt.Errorf("API key validation failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return fmt.Errorf("API key validation returned empty response")
	}

	log.Info().Msg("API key validated successfully")
	return nil
}

// Analyze sends a portrait to Gemini and parses the structured style profile
// from its response. The returned profile is normalized: gender-conditional
// recommendation lists are made consistent with the classified gender.
func (c *Client) Analyze(ctx context.Context, img imageio.Image) (*StyleProfile, error) {
	start := time.Now()
	log.Info().
		Str("model", c.model).
		Int("image_bytes", len(img.Data)).
		Str("image_mime", img.MIME).
		Msg("Sending portrait to Gemini for style analysis")

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: assets.AnalysisSystemPrompt}},
		},
		ResponseMIMEType: "application/json",
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: img.MIME, Data: img.Data}},
			{Text: "Analyze this portrait and produce the style profile."},
		},
	}}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, config)
	elapsed := time.Since(start)
	emitCallMetrics("analyze", elapsed, resp, err)

	if err != nil {
		log.Error().Err(err).Msg("Failed to analyze portrait")
		return nil, fmt.Errorf("failed to analyze portrait: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("received empty response from Gemini API")
	}

	profile, err := jsonutil.Parse[StyleProfile](resp.Text())
	if err != nil {
		return nil, fmt.Errorf("failed to parse style profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	profile.Normalize()

	log.Info().
		Str("face_shape", profile.FaceShape).
		Str("gender", profile.Gender).
		Str("undertone", profile.Undertone).
		Dur("duration", elapsed).
		Msg("Style analysis complete")

	return &profile, nil
}

// Edit applies a natural-language style instruction to the portrait and
// returns the edited image. The system instruction pins facial identity,
// pose, and background.
func (c *Client) Edit(ctx context.Context, img imageio.Image, instruction string) (imageio.Image, error) {
	start := time.Now()
	log.Info().
		Str("model", c.imageModel).
		Int("image_bytes", len(img.Data)).
		Str("instruction", instruction).
		Msg("Sending portrait to Gemini for style edit")

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: assets.EditSystemPrompt}},
		},
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: img.MIME, Data: img.Data}},
			{Text: instruction},
		},
	}}

	resp, err := c.genai.Models.GenerateContent(ctx, c.imageModel, contents, config)
	elapsed := time.Since(start)
	emitCallMetrics("edit", elapsed, resp, err)

	if err != nil {
		log.Error().Err(err).Msg("Failed to apply style edit")
		return imageio.Image{}, fmt.Errorf("failed to apply style edit: %w", err)
	}

	edited, text := extractImage(resp)
	if edited.IsZero() {
		preview := text
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return imageio.Image{}, fmt.Errorf("no image returned in response (text: %s)", preview)
	}

	log.Info().
		Int("output_bytes", len(edited.Data)).
		Str("output_mime", edited.MIME).
		Dur("duration", elapsed).
		Msg("Style edit complete")

	return edited, nil
}

// extractImage pulls the first inline image and any accompanying text out of
// a generation response.
func extractImage(resp *genai.GenerateContentResponse) (imageio.Image, string) {
	var img imageio.Image
	var text string
	if resp == nil {
		return img, text
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && img.IsZero() {
				img = imageio.Image{Data: part.InlineData.Data, MIME: part.InlineData.MIMEType}
			}
			if part.Text != "" {
				text += part.Text
			}
		}
	}
	return img, text
}

// emitCallMetrics records latency, call counts, and token usage for one
// Gemini API call.
func emitCallMetrics(operation string, elapsed time.Duration, resp *genai.GenerateContentResponse, err error) {
	m := metrics.New("StyloGlo").
		Dimension("Operation", operation).
		Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()
}
