// Package styles maps trending topics to finished image-generation prompts.
//
// A Table is an immutable set of style presets. Tables are assembled with a
// TableBuilder at startup (built-in presets, programmatic registrations and an
// optional YAML file) and then shared read-only by every Builder.
package styles

// Key identifies a style preset.
type Key string

// Placeholder is replaced by the topic in every template.
const Placeholder = "{trend}"

// DefaultKey is the preset used when no style is requested.
const DefaultKey Key = "vaporwave"

// QualitySuffix is appended to every prompt.
const QualitySuffix = ", high quality, vector art, print ready, centered composition"

// Preset is one entry of the style table.
type Preset struct {
	Key         Key    `yaml:"key"`
	Description string `yaml:"description"`
	Template    string `yaml:"template"`
}

// DefaultPresets returns the built-in presets in display order.
func DefaultPresets() []Preset {
	return []Preset{
		{
			Key:         "vaporwave",
			Description: "Retro 80s neon aesthetic",
			Template:    "A retro vaporwave t-shirt vector design featuring the text '{trend}' in bold typography, vibrant neon pink and cyan colors, black background, high contrast, 80s aesthetic",
		},
		{
			Key:         "minimalist",
			Description: "Clean, simple typography",
			Template:    "A minimalist t-shirt design with the text '{trend}' in clean sans-serif typography, black text on white background, simple and elegant",
		},
		{
			Key:         "graffiti",
			Description: "Street art spray paint",
			Template:    "A graffiti street art style t-shirt design featuring the text '{trend}' in bold spray paint letters, urban aesthetic, colorful drips, black background",
		},
		{
			Key:         "vintage",
			Description: "Distressed retro look",
			Template:    "A vintage distressed t-shirt design with the text '{trend}' in retro typography, worn texture, cream and brown tones, classic americana style",
		},
		{
			Key:         "neon",
			Description: "Cyberpunk glow effect",
			Template:    "A neon glow t-shirt design featuring the text '{trend}' in bright glowing letters, cyberpunk style, dark background, electric colors",
		},
		{
			Key:         "cartoon",
			Description: "Fun, playful bubbles",
			Template:    "A fun cartoon style t-shirt design with the text '{trend}' in playful bubble letters, bright colors, cute aesthetic, white background",
		},
		{
			Key:         "gothic",
			Description: "Dark ornate lettering",
			Template:    "A gothic dark aesthetic t-shirt design featuring the text '{trend}' in ornate blackletter typography, dark colors, mysterious vibe",
		},
		{
			Key:         "sports",
			Description: "Athletic team style",
			Template:    "A bold sports team style t-shirt design with the text '{trend}' in athletic block letters, dynamic angles, team jersey aesthetic",
		},
	}
}
