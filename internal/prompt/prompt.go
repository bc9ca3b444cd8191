// Package prompt decodes the side-channel metadata embedded in task
// input text and merges allow-listed overrides onto preset defaults.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the prompt from the side-channel JSON object.
const Delimiter = "\n---\n"

// ErrInvalidMetadata is returned when the text after the delimiter is
// not a JSON object.
var ErrInvalidMetadata = errors.New("invalid side-channel metadata")

// allowedOverrides is the fixed allow-list of metadata keys that may be
// forwarded to the provider. Unlisted keys are silently dropped so a
// task can never inject arbitrary provider parameters.
var allowedOverrides = map[string]struct{}{
	"aspect_ratio":        {},
	"image_size":          {},
	"quality":             {},
	"resolution":          {},
	"image_count":         {},
	"output_format":       {},
	"disable_translation": {},
	"title":               {},
	"tags":                {},
	"messages":            {},
}

// inputFilesKey carries file references for multi-image presets. It is
// consumed by the executor and never forwarded as a provider parameter.
const inputFilesKey = "input_files"

// Metadata is the decoded side-channel object.
type Metadata map[string]any

// Decode splits task input text into (prompt, metadata). When the
// delimiter is absent the whole text is the prompt and metadata is
// empty. Malformed JSON after the delimiter is an error.
func Decode(input string) (string, Metadata, error) {
	before, after, found := strings.Cut(input, Delimiter)
	promptText := strings.TrimSpace(before)

	if !found {
		return promptText, Metadata{}, nil
	}

	raw := strings.TrimSpace(after)
	if raw == "" {
		return promptText, Metadata{}, nil
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	return promptText, meta, nil
}

// InputFiles returns the file references listed in the metadata, in
// order. Non-string entries are skipped.
func (m Metadata) InputFiles() []string {
	list, ok := m[inputFilesKey].([]any)
	if !ok {
		return nil
	}

	var refs []string
	for _, item := range list {
		if ref, ok := item.(string); ok && ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Merge overlays the allow-listed subset of the metadata onto the
// preset defaults and returns a fresh parameter map. Neither input is
// mutated.
func Merge(defaults map[string]any, meta Metadata) map[string]any {
	params := make(map[string]any, len(defaults)+len(meta))
	for k, v := range defaults {
		params[k] = v
	}

	for k, v := range meta {
		if _, allowed := allowedOverrides[k]; allowed {
			params[k] = v
		}
	}

	return params
}
