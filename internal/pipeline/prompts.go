package pipeline

import "fmt"

// Category identifies a recommendation group on the dashboard. Selecting an
// item from a category produces a fixed, identity-preserving edit
// instruction.
type Category string

const (
	CategoryHair      Category = "hair"
	CategoryBeard     Category = "beard"
	CategoryColor     Category = "color"
	CategoryAccessory Category = "accessory"
	CategoryMakeup    Category = "makeup"
	CategoryTattoo    Category = "tattoo"
	CategoryEyebrows  Category = "eyebrows"
	CategoryEyelashes Category = "eyelashes"
)

// stylePrompts maps each category to its instruction template. Every template
// pins the parts of the portrait the edit must not touch.
var stylePrompts = map[Category]string{
	CategoryHair:      "Change the person's hairstyle to %s, keep the face and facial features exactly the same, photorealistic, high quality",
	CategoryBeard:     "Add a %s style beard to the person, naturally blended with skin, keep facial features same, photorealistic",
	CategoryColor:     "Change the person's clothing to be %s color/style, keep the face and body pose exactly the same, photorealistic",
	CategoryAccessory: "Add %s to the person, naturally integrated, keep the face and hairstyle unchanged, photorealistic",
	CategoryMakeup:    "Apply %s makeup to the person's face, natural blend, keep identity same, photorealistic",
	CategoryTattoo:    "Add a realistic tattoo of %s, naturally blended with skin, photorealistic",
	CategoryEyebrows:  "Change the person's eyebrows to be %s shape, keep other facial features exactly the same, photorealistic",
	CategoryEyelashes: "Enhance the person's eyelashes to be %s, photorealistic, detailed eyes",
}

// BuildStylePrompt renders the edit instruction for a chosen item in a
// category. This mapping is pure and stateless; it is the only contract the
// pipeline exposes to the recommendation UI.
func BuildStylePrompt(category Category, item string) (string, error) {
	tmpl, ok := stylePrompts[category]
	if !ok {
		return "", fmt.Errorf("unknown style category %q", category)
	}
	return fmt.Sprintf(tmpl, item), nil
}
