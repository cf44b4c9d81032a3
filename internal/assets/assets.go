// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time, keeping prompt wording reviewable outside Go source.
package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// AnalysisSystemPrompt instructs the model to return a structured style
// profile for a single portrait.
//
//go:embed prompts/analysis-system.txt
var AnalysisSystemPrompt string

// EditSystemPrompt constrains style edits to preserve facial identity, pose,
// and background.
//
//go:embed prompts/edit-system.txt
var EditSystemPrompt string

//go:embed prompts/weekly-plan.txt
var weeklyPlanTemplateText string

// weeklyPlanTemplate is parsed once at startup; a malformed embedded template
// is a programming error.
var weeklyPlanTemplate = template.Must(
	template.New("weekly-plan").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(weeklyPlanTemplateText),
)

// RenderWeeklyPlanPrompt fills the weekly-plan template with profile data.
// The data value must expose the fields the template references (FaceShape,
// SkinTone, Undertone, Gender, Recommendations.Colors).
func RenderWeeklyPlanPrompt(data any) (string, error) {
	var buf bytes.Buffer
	if err := weeklyPlanTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render weekly plan prompt: %w", err)
	}
	return buf.String(), nil
}
