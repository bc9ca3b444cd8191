package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// TelegramFetcher fetches input files from the Telegram Bot API by
// file_id: getFile resolves the file path, then the file endpoint
// serves the bytes.
type TelegramFetcher struct {
	token   string
	apiBase string
	http    *http.Client
}

// TelegramOption customizes a TelegramFetcher.
type TelegramOption func(*TelegramFetcher)

// WithAPIBase overrides the Bot API base URL. Used in tests.
func WithAPIBase(base string) TelegramOption {
	return func(f *TelegramFetcher) {
		f.apiBase = strings.TrimRight(base, "/")
	}
}

// NewTelegramFetcher creates a fetcher using the given bot token.
func NewTelegramFetcher(token string, opts ...TelegramOption) *TelegramFetcher {
	f := &TelegramFetcher{
		token:   token,
		apiBase: defaultTelegramAPIBase,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves a Telegram file_id to (filename, bytes).
func (f *TelegramFetcher) Fetch(ctx context.Context, ref string) (string, []byte, error) {
	getFileURL := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", f.apiBase, f.token, url.QueryEscape(ref))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getFileURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: getFile: %v", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: getFile returned HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	var parsed struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", nil, fmt.Errorf("%w: decoding getFile response: %v", ErrFetchFailed, err)
	}

	if !parsed.OK || parsed.Result.FilePath == "" {
		return "", nil, fmt.Errorf("%w: getFile rejected file_id", ErrFetchFailed)
	}

	filePath := parsed.Result.FilePath
	parts := strings.Split(filePath, "/")
	filename := parts[len(parts)-1]

	downloadURL := fmt.Sprintf("%s/file/bot%s/%s", f.apiBase, f.token, filePath)

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	dlResp, err := f.http.Do(dlReq)
	if err != nil {
		return "", nil, fmt.Errorf("%w: download: %v", ErrFetchFailed, err)
	}
	defer func() { _ = dlResp.Body.Close() }()

	if dlResp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: download returned HTTP %d", ErrFetchFailed, dlResp.StatusCode)
	}

	data, err := io.ReadAll(dlResp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: reading download body: %v", ErrFetchFailed, err)
	}

	return filename, data, nil
}
