package stylist

import "fmt"

// Gender classification values returned by the analysis call.
const (
	GenderMale        = "Male"
	GenderFemale      = "Female"
	GenderUnspecified = "Unspecified"
)

// Undertone values returned by the analysis call.
const (
	UndertoneWarm    = "Warm"
	UndertoneCool    = "Cool"
	UndertoneNeutral = "Neutral"
)

// Recommendations holds the named recommendation lists of a style profile.
// The beard group is populated only for Male profiles; the makeup group
// (makeup, earrings, eyebrows, eyelashes) only for Female profiles.
type Recommendations struct {
	Hair       []string `json:"hair"`
	Colors     []string `json:"colors"`
	Sunglasses []string `json:"sunglasses"`
	Tattoos    []string `json:"tattoos"`
	Stickers   []string `json:"stickers,omitempty"`

	Beard []string `json:"beard,omitempty"`

	Makeup    []string `json:"makeup,omitempty"`
	Earrings  []string `json:"earrings,omitempty"`
	Eyebrows  []string `json:"eyebrows,omitempty"`
	Eyelashes []string `json:"eyelashes,omitempty"`
}

// StyleProfile is the structured result of analyzing one portrait. It is
// immutable once produced; re-analysis replaces it wholesale.
type StyleProfile struct {
	FaceShape       string          `json:"faceShape"`
	SkinTone        string          `json:"skinTone"`
	Gender          string          `json:"gender"`
	Undertone       string          `json:"undertone"`
	Recommendations Recommendations `json:"recommendations"`

	// Error carries the model's refusal ("no face detected") when analysis
	// could not produce a profile.
	Error string `json:"error,omitempty"`
}

// Normalize enforces the gender-conditional list invariant: beard and makeup
// recommendations are never both populated. Lists inconsistent with the
// classified gender are dropped.
func (p *StyleProfile) Normalize() {
	switch p.Gender {
	case GenderMale:
		p.Recommendations.Makeup = nil
		p.Recommendations.Earrings = nil
		p.Recommendations.Eyebrows = nil
		p.Recommendations.Eyelashes = nil
	case GenderFemale:
		p.Recommendations.Beard = nil
	default:
		p.Gender = GenderUnspecified
		p.Recommendations.Beard = nil
		p.Recommendations.Makeup = nil
		p.Recommendations.Earrings = nil
		p.Recommendations.Eyebrows = nil
		p.Recommendations.Eyelashes = nil
	}
}

// Validate reports whether the profile is usable by the dashboard.
func (p *StyleProfile) Validate() error {
	if p.Error != "" {
		return fmt.Errorf("analysis refused: %s", p.Error)
	}
	if p.FaceShape == "" || p.SkinTone == "" {
		return fmt.Errorf("analysis returned incomplete profile")
	}
	if len(p.Recommendations.Hair) == 0 && len(p.Recommendations.Colors) == 0 {
		return fmt.Errorf("analysis returned no recommendations")
	}
	return nil
}
