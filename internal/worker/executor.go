package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/genbridge/genbridge/internal/artifact"
	"github.com/genbridge/genbridge/internal/domain"
	"github.com/genbridge/genbridge/internal/extract"
	"github.com/genbridge/genbridge/internal/files"
	"github.com/genbridge/genbridge/internal/platform/logger"
	"github.com/genbridge/genbridge/internal/preset"
	"github.com/genbridge/genbridge/internal/prompt"
	"github.com/genbridge/genbridge/internal/provider"
	"github.com/genbridge/genbridge/internal/store"
)

// errNotClaimed signals that the task was not in the queued state when
// the executor tried to claim it. The loop skips such tasks without
// recording a failure.
var errNotClaimed = errors.New("task no longer queued")

// resultExtensions are the extensions preserved when deriving an
// artifact key from a result URL. Anything else falls back to .bin.
var resultExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {},
	".svg": {}, ".mp3": {}, ".wav": {}, ".mp4": {}, ".mov": {},
	".webm": {}, ".glb": {}, ".obj": {}, ".zip": {}, ".txt": {},
	".json": {},
}

// ProviderClient is the slice of the provider API the executor drives.
type ProviderClient interface {
	Submit(ctx context.Context, req provider.Request) (int64, error)
	Poll(ctx context.Context, requestID int64) (provider.Result, error)
	Download(ctx context.Context, url string, deadline time.Duration) ([]byte, error)
}

// Config holds the executor limits.
type Config struct {
	// MaxInputFiles caps how many input files a single task may carry.
	MaxInputFiles int

	// MaxInputFileSizeMiB caps the size of each fetched input file.
	MaxInputFileSizeMiB int

	// DownloadDeadline bounds the result file download.
	DownloadDeadline time.Duration

	// PublicBaseURL is the externally reachable prefix under which
	// staged artifacts are served to the provider.
	PublicBaseURL string
}

// Executor drives one task end to end: claim, dispatch, poll, extract,
// persist, finalize. Every failure path resolves to a failed task with
// a human-readable error message; the caller records it.
type Executor struct {
	cfg       Config
	tasks     store.TaskStore
	provider  ProviderClient
	artifacts artifact.Store
	fetcher   files.Fetcher
}

// NewExecutor wires an executor from its collaborators.
func NewExecutor(
	cfg Config,
	tasks store.TaskStore,
	providerClient ProviderClient,
	artifacts artifact.Store,
	fetcher files.Fetcher,
) *Executor {
	return &Executor{
		cfg:       cfg,
		tasks:     tasks,
		provider:  providerClient,
		artifacts: artifacts,
		fetcher:   fetcher,
	}
}

// input is one fetched input file.
type input struct {
	name string
	data []byte
}

// Execute runs a single task to a terminal outcome. A nil return means
// the task was marked success; any error means the caller must mark it
// failed with the error text. The claim happens before any validation
// so the status sequence stays strictly queued, processing, terminal.
func (e *Executor) Execute(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	claimed, err := e.tasks.ClaimTask(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("failed to claim task: %w", err)
	}
	if !claimed {
		return errNotClaimed
	}

	p, err := preset.Resolve(task.PresetSlug)
	if err != nil {
		return fmt.Errorf("%w: unknown preset %q", ErrValidation, task.PresetSlug)
	}

	promptText, meta, err := prompt.Decode(task.InputText)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	params := prompt.Merge(p.Params, meta)
	applyPrompt(params, p, promptText)

	inputs, err := e.resolveInputs(ctx, task, p, meta)
	if err != nil {
		return err
	}

	req := provider.Request{
		Shape:          p.Shape,
		Target:         p.Target,
		Implementation: p.Implementation,
		Params:         params,
	}

	switch {
	case p.Shape == provider.ShapeFunction && len(inputs) > 0:
		for _, in := range inputs {
			req.Files = append(req.Files, provider.File{
				Field: p.InputField,
				Name:  in.name,
				Data:  in.data,
				MIME:  mimeFor(in.name),
			})
		}
	case p.Shape == provider.ShapeNetwork && len(inputs) > 0:
		if err := e.stageInputs(ctx, task, p, inputs, params); err != nil {
			return err
		}
	}

	requestID, err := e.provider.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to submit task to provider: %w", err)
	}
	log.Info("task submitted", "request_id", requestID, "target", p.Target)

	res, err := e.provider.Poll(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to poll provider request %d: %w", requestID, err)
	}

	if res.TimedOut {
		return fmt.Errorf("%w: %s", ErrTimeout, res.Message)
	}
	if res.Status != provider.StatusSuccess {
		return fmt.Errorf("%w: %s", ErrProviderFailed, providerMessage(res))
	}

	resultText, resultURL := extract.Best(res.Payload, extract.Options{Classes: p.OutputClasses})

	var resultKey string
	if resultURL != "" {
		data, err := e.provider.Download(ctx, resultURL, e.cfg.DownloadDeadline)
		if err != nil {
			return fmt.Errorf("failed to download result: %w", err)
		}

		resultKey = artifactKey("results", task.ID, p.Slug, urlExt(resultURL), 0)
		if err := e.artifacts.Write(ctx, resultKey, data); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrStorage, resultKey, err)
		}
	}

	if resultText == "" && resultKey == "" {
		log.Warn("provider payload carried no recognizable deliverable", "request_id", requestID)
	}

	if err := e.tasks.MarkSuccess(ctx, task.ID, resultKey, resultText); err != nil {
		return fmt.Errorf("failed to record task success: %w", err)
	}

	log.Info("task completed",
		"request_id", requestID,
		"result_key", resultKey,
		"has_text", resultText != "")

	return nil
}

// resolveInputs gathers and validates the task's input files. File
// references in metadata take precedence over the task-level reference.
func (e *Executor) resolveInputs(ctx context.Context, task *domain.Task, p preset.Preset, meta prompt.Metadata) ([]input, error) {
	refs := meta.InputFiles()
	if len(refs) == 0 && task.InputFileRef != "" {
		refs = []string{task.InputFileRef}
	}

	if len(refs) > e.cfg.MaxInputFiles {
		return nil, fmt.Errorf("%w: got %d input files, at most %d allowed",
			ErrValidation, len(refs), e.cfg.MaxInputFiles)
	}
	if len(refs) != p.InputCount {
		return nil, fmt.Errorf("%w: preset %q requires %d input file(s), got %d",
			ErrValidation, p.Slug, p.InputCount, len(refs))
	}

	maxBytes := int64(e.cfg.MaxInputFileSizeMiB) * 1024 * 1024

	inputs := make([]input, 0, len(refs))
	for i, ref := range refs {
		name, data, err := e.fetcher.Fetch(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: input file %d: %v", ErrValidation, i+1, err)
		}
		if int64(len(data)) > maxBytes {
			return nil, fmt.Errorf("%w: input file %q exceeds %d MiB",
				ErrValidation, name, e.cfg.MaxInputFileSizeMiB)
		}
		inputs = append(inputs, input{name: name, data: data})
	}

	return inputs, nil
}

// stageInputs persists input files under staging keys and substitutes
// their public URLs into the provider parameters. Network dispatch
// never carries raw bytes; the provider fetches by URL.
func (e *Executor) stageInputs(ctx context.Context, task *domain.Task, p preset.Preset, inputs []input, params map[string]any) error {
	urls := make([]string, 0, len(inputs))

	for i, in := range inputs {
		key := artifactKey("uploads", task.ID, p.Slug, inputExt(in.name), i)
		if err := e.artifacts.Write(ctx, key, in.data); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrStorage, key, err)
		}
		urls = append(urls, e.publicURL(key))
	}

	if p.InputFieldList {
		params[p.InputField] = urls
	} else {
		params[p.InputField] = urls[0]
	}

	return nil
}

func (e *Executor) publicURL(key string) string {
	return strings.TrimRight(e.cfg.PublicBaseURL, "/") + "/files/" + key
}

// applyPrompt writes the user's prompt text into the preset's prompt
// parameter. A non-empty default in the same slot acts as a master
// prompt the user text is appended to.
func applyPrompt(params map[string]any, p preset.Preset, promptText string) {
	if p.PromptField == "" || promptText == "" {
		return
	}

	if base, ok := params[p.PromptField].(string); ok && base != "" {
		params[p.PromptField] = base + "\nUser request: " + promptText
		return
	}
	params[p.PromptField] = promptText
}

// artifactKey builds the deterministic storage key for a task artifact.
// Keys are stable across re-processing so overwrites are harmless.
func artifactKey(prefix string, taskID int64, slug, ext string, index int) string {
	suffix := ""
	if index > 0 {
		suffix = fmt.Sprintf("_%d", index+1)
	}
	return fmt.Sprintf("%s/task_%d_%s%s%s", prefix, taskID, slug, suffix, ext)
}

// urlExt returns the recognized extension of a result URL, .bin when
// the extension is missing or unknown.
func urlExt(url string) string {
	clean := url
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}

	ext := strings.ToLower(filepath.Ext(clean))
	if _, ok := resultExtensions[ext]; ok {
		return ext
	}
	return ".bin"
}

// inputExt keeps the uploaded file's own extension for staging keys.
func inputExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ".bin"
	}
	return ext
}

// mimeFor guesses a content type from the filename for multipart parts.
func mimeFor(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}

// providerMessage renders a terminal provider failure for the task's
// error message: the explicit message when present, otherwise a bounded
// dump of the payload.
func providerMessage(res provider.Result) string {
	if res.Message != "" {
		return res.Message
	}

	raw, err := json.Marshal(res.Payload)
	if err != nil || len(raw) == 0 {
		return "provider returned status " + res.Status
	}

	msg := string(raw)
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return msg
}
