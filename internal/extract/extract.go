// Package extract locates the usable output inside a schema-loose
// provider response. Extraction is deliberately best-effort: known
// response shapes are tried first, then a generic deep search.
package extract

import (
	"sort"
	"strings"
)

// Class ranks result URLs by the kind of file their extension suggests.
// Lower values are preferred.
type Class int

// Extension classes, ordered by preference.
const (
	ClassAudio Class = iota
	ClassVideo
	ClassImage
	ClassArchive
	ClassText
	ClassUnknown
)

// classExtensions maps each class to the extensions it covers.
// Order within a class reflects the original priority list.
var classExtensions = map[Class][]string{
	ClassAudio:   {".mp3", ".wav"},
	ClassVideo:   {".mp4", ".mov", ".webm"},
	ClassImage:   {".png", ".jpg", ".jpeg", ".webp", ".gif"},
	ClassArchive: {".zip"},
	ClassText:    {".json", ".txt"},
}

// wellKnownTextFields are flat payload fields checked before the deep
// search, in order.
var wellKnownTextFields = []string{"text", "output_text", "content", "message"}

// controlWords are strings that look like status flags rather than
// generated text and must never be returned as a result.
var controlWords = map[string]struct{}{
	"stop":            {},
	"assistant":       {},
	"user":            {},
	"chat.completion": {},
	"completed":       {},
	"success":         {},
	"failed":          {},
	"queued":          {},
	"processing":      {},
}

// Options narrows URL extraction. An empty Classes slice allows every
// class.
type Options struct {
	// Classes restricts URL candidates to the given extension classes,
	// e.g. only ClassAudio for a music preset so an embedded cover
	// image is never chosen as the result.
	Classes []Class
}

// Best maps an arbitrary nested response structure to a best-guess
// (text, url) pair. Either may be empty.
func Best(payload any, opts Options) (text string, url string) {
	text = bestText(payload)
	url = BestURL(CollectURLs(payload), opts)
	return text, url
}

// bestText resolves the result text:
// chat-completion shape first, then well-known flat fields, then a
// depth-first search for the first meaningful string.
func bestText(payload any) string {
	root, _ := payload.(map[string]any)

	if root != nil {
		if s := chatCompletionContent(root); s != "" {
			return s
		}

		for _, field := range wellKnownTextFields {
			if s, ok := root[field].(string); ok && IsMeaningfulText(s) {
				return strings.TrimSpace(s)
			}
		}
	}

	return findTextDeep(payload)
}

// chatCompletionContent returns choices[0].message.content when the
// payload carries a chat-completion-style shape.
func chatCompletionContent(root map[string]any) string {
	choices, ok := root["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}

	first, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}

	message, ok := first["message"].(map[string]any)
	if !ok {
		return ""
	}

	content, ok := message["content"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		return ""
	}

	return strings.TrimSpace(content)
}

// CollectURLs gathers every http(s)-prefixed string anywhere in the
// structure, depth-first, deduplicated preserving first-seen order.
func CollectURLs(v any) []string {
	var urls []string

	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case string:
			if isHTTPURL(val) {
				urls = append(urls, val)
			}
		case map[string]any:
			for _, key := range sortedKeys(val) {
				walk(val[key])
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(v)

	seen := make(map[string]struct{}, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// BestURL ranks candidates by (extension-class rank, penalty) ascending
// and returns the lowest-scoring one, or "" when no candidate remains.
// URLs whose path suggests an input or preview asset are penalized so
// the user's own upload or a thumbnail is never mistaken for the
// deliverable.
func BestURL(urls []string, opts Options) string {
	candidates := urls
	if len(opts.Classes) > 0 {
		allowed := make(map[Class]struct{}, len(opts.Classes))
		for _, c := range opts.Classes {
			allowed[c] = struct{}{}
		}

		candidates = nil
		for _, u := range urls {
			if _, ok := allowed[classOf(u)]; ok {
				candidates = append(candidates, u)
			}
		}
	}

	if len(candidates) == 0 {
		return ""
	}

	best := candidates[0]
	bestRank, bestPenalty := score(best)
	for _, u := range candidates[1:] {
		rank, penalty := score(u)
		if rank < bestRank || (rank == bestRank && penalty < bestPenalty) {
			best, bestRank, bestPenalty = u, rank, penalty
		}
	}
	return best
}

// score returns the extension rank and the input/preview penalty for
// a URL. Lower is better on both axes.
func score(u string) (rank int, penalty int) {
	low := strings.ToLower(u)

	if strings.Contains(low, "input_files") {
		penalty += 5
	}
	if strings.Contains(low, "uploads") {
		penalty += 2
	}
	if strings.Contains(low, "cover") {
		penalty += 3
	}

	rank = 999
	pos := 0
	for _, class := range []Class{ClassAudio, ClassVideo, ClassImage, ClassArchive, ClassText} {
		for _, ext := range classExtensions[class] {
			if strings.Contains(low, ext) {
				return pos, penalty
			}
			pos++
		}
	}
	return rank, penalty
}

// classOf returns the extension class of a URL, or ClassUnknown.
func classOf(u string) Class {
	low := strings.ToLower(u)
	for _, class := range []Class{ClassAudio, ClassVideo, ClassImage, ClassArchive, ClassText} {
		for _, ext := range classExtensions[class] {
			if strings.Contains(low, ext) {
				return class
			}
		}
	}
	return ClassUnknown
}

// IsMeaningfulText reports whether s looks like generated text rather
// than a control flag. Empty strings, known control words and very
// short alphabetic tokens are rejected.
func IsMeaningfulText(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}

	if _, bad := controlWords[strings.ToLower(t)]; bad {
		return false
	}

	if len(t) <= 4 && isAlpha(t) {
		return false
	}

	return true
}

// findTextDeep searches depth-first for the first meaningful string.
// Known text keys are preferred at each map level before recursing.
func findTextDeep(v any) string {
	switch val := v.(type) {
	case map[string]any:
		for _, key := range []string{"content", "text", "output_text", "message"} {
			if s, ok := val[key].(string); ok && IsMeaningfulText(s) {
				return strings.TrimSpace(s)
			}
		}
		for _, key := range sortedKeys(val) {
			if t := findTextDeep(val[key]); t != "" {
				return t
			}
		}
	case []any:
		for _, item := range val {
			if t := findTextDeep(item); t != "" {
				return t
			}
		}
	case string:
		if isHTTPURL(val) {
			return ""
		}
		if IsMeaningfulText(val) {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// sortedKeys gives map traversal a stable order so extraction is
// deterministic regardless of key ordering.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
