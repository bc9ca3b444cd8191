// Package preset holds the immutable registry mapping user-facing
// feature identifiers to provider targets and default parameters.
package preset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/genbridge/genbridge/internal/extract"
	"github.com/genbridge/genbridge/internal/provider"
)

// InputKind names the kind of input file a preset consumes.
type InputKind string

// Supported input kinds.
const (
	InputNone  InputKind = "none"
	InputImage InputKind = "image"
	InputAudio InputKind = "audio"
)

// ErrNotFound is returned when resolving an unknown preset slug.
var ErrNotFound = errors.New("preset not found")

// Preset is the static descriptor of one feature: dispatch shape,
// provider target, default parameters and input expectations.
type Preset struct {
	Slug           string
	Title          string
	Shape          provider.Shape
	Target         string
	Implementation string
	InputKind      InputKind

	// InputCount is the number of input files the preset requires
	// (0, 1 or 2).
	InputCount int

	// InputField is the parameter the provider reads file references
	// from: the multipart field for function dispatch, the URL
	// parameter for network dispatch.
	InputField string

	// InputFieldList marks InputField as carrying a list of URLs
	// rather than a single value.
	InputFieldList bool

	// PromptField, when set, is the parameter the user's prompt text is
	// written to. A non-empty default for the same parameter acts as a
	// master prompt the user text is appended to.
	PromptField string

	// Params are the default provider parameters.
	Params map[string]any

	// OutputClasses, when non-empty, restricts result URL candidates to
	// the given extension classes.
	OutputClasses []extract.Class
}

// registry is the static preset table. It is configuration-as-code:
// presets change with deployments, not at runtime.
var registry = map[string]Preset{
	"analyze-call": {
		Slug:           "analyze-call",
		Title:          "Call analysis",
		Shape:          provider.ShapeFunction,
		Target:         "analyze-call",
		Implementation: "claude",
		InputKind:      InputAudio,
		InputCount:     1,
		InputField:     "audio",
		PromptField:    "script",
		Params: map[string]any{
			"model": "claude-3-7-sonnet-20250219",
		},
	},

	"outpainting": {
		Slug:           "outpainting",
		Title:          "Outpaint / Reframe",
		Shape:          provider.ShapeFunction,
		Target:         "outpainting",
		Implementation: "outpainting-v1",
		InputKind:      InputImage,
		InputCount:     1,
		InputField:     "image",
		PromptField:    "prompt",
		Params: map[string]any{
			"prompt": "outpaint image",
		},
	},

	"seedvr": {
		Slug:       "seedvr",
		Title:      "Upscale (SeedVR x4)",
		Shape:      provider.ShapeNetwork,
		Target:     "seedvr",
		InputKind:  InputImage,
		InputCount: 1,
		InputField: "image_url",
		Params: map[string]any{
			"upscale_factor": 4,
		},
	},

	"image-2-svg": {
		Slug:       "image-2-svg",
		Title:      "Image to SVG",
		Shape:      provider.ShapeNetwork,
		Target:     "image-2-svg",
		InputKind:  InputImage,
		InputCount: 1,
		InputField: "image_url",
		Params:     map[string]any{},
	},

	"3d-trellis": {
		Slug:       "3d-trellis",
		Title:      "3D (Trellis, fast)",
		Shape:      provider.ShapeNetwork,
		Target:     "trellis",
		InputKind:  InputImage,
		InputCount: 1,
		InputField: "image_url",
		Params:     map[string]any{},
	},

	"3d-hunyuan": {
		Slug:       "3d-hunyuan",
		Title:      "3D (Hunyuan, balanced)",
		Shape:      provider.ShapeNetwork,
		Target:     "hunyuan-3d-multi-view",
		InputKind:  InputImage,
		InputCount: 1,
		InputField: "image_url",
		Params:     map[string]any{},
	},

	"3d-rodin": {
		Slug:       "3d-rodin",
		Title:      "3D (Rodin, quality)",
		Shape:      provider.ShapeNetwork,
		Target:     "rodin",
		InputKind:  InputImage,
		InputCount: 1,
		InputField: "image_url",
		Params:     map[string]any{},
	},

	"image-mix": {
		Slug:           "image-mix",
		Title:          "Image mix (two references)",
		Shape:          provider.ShapeNetwork,
		Target:         "image-mix",
		InputKind:      InputImage,
		InputCount:     2,
		InputField:     "image_urls",
		InputFieldList: true,
		PromptField:    "prompt",
		Params:         map[string]any{},
	},

	"music": {
		Slug:        "music",
		Title:       "Music generation",
		Shape:       provider.ShapeNetwork,
		Target:      "suno",
		InputKind:   InputNone,
		PromptField: "prompt",
		Params: map[string]any{
			"make_instrumental": false,
		},
		OutputClasses: []extract.Class{extract.ClassAudio},
	},

	"chat": {
		Slug:        "chat",
		Title:       "Chat completion",
		Shape:       provider.ShapeNetwork,
		Target:      "grok",
		InputKind:   InputNone,
		PromptField: "prompt",
		Params:      map[string]any{},
	},
}

// Resolve looks up a preset by slug. The slug is normalized
// (trimmed, lowercased) before lookup.
func Resolve(slug string) (Preset, error) {
	normalized := strings.ToLower(strings.TrimSpace(slug))

	p, ok := registry[normalized]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	return p, nil
}

// Slugs returns the registered preset slugs.
func Slugs() []string {
	out := make([]string, 0, len(registry))
	for slug := range registry {
		out = append(out, slug)
	}
	return out
}
