package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWithMetadata(t *testing.T) {
	text, meta, err := Decode("draw a cat\n---\n{\"aspect_ratio\":\"1:1\"}")
	require.NoError(t, err)

	assert.Equal(t, "draw a cat", text)
	assert.Equal(t, Metadata{"aspect_ratio": "1:1"}, meta)
}

func TestDecodeWithoutDelimiter(t *testing.T) {
	text, meta, err := Decode("draw a cat")
	require.NoError(t, err)

	assert.Equal(t, "draw a cat", text)
	assert.Empty(t, meta)
}

func TestDecodeEmptyMetadataSection(t *testing.T) {
	text, meta, err := Decode("draw a cat\n---\n   ")
	require.NoError(t, err)

	assert.Equal(t, "draw a cat", text)
	assert.Empty(t, meta)
}

func TestDecodeMalformedMetadata(t *testing.T) {
	_, _, err := Decode("draw a cat\n---\n{not json")
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestDecodeInputFiles(t *testing.T) {
	_, meta, err := Decode("mix these\n---\n{\"input_files\":[\"ref-1\",\"ref-2\"]}")
	require.NoError(t, err)

	assert.Equal(t, []string{"ref-1", "ref-2"}, meta.InputFiles())
}

func TestInputFilesAbsent(t *testing.T) {
	assert.Nil(t, Metadata{}.InputFiles())
	assert.Nil(t, Metadata{"input_files": "not-a-list"}.InputFiles())
}

func TestMergeAppliesAllowListedKeysOnly(t *testing.T) {
	defaults := map[string]any{"upscale_factor": 4}
	meta := Metadata{
		"quality":        "high",
		"upscale_factor": 16,         // not allow-listed, must not override
		"callback_url":   "https://evil", // injection attempt, dropped
	}

	params := Merge(defaults, meta)

	assert.Equal(t, 4, params["upscale_factor"])
	assert.Equal(t, "high", params["quality"])
	assert.NotContains(t, params, "callback_url")
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	defaults := map[string]any{"quality": "standard"}
	meta := Metadata{"quality": "high"}

	params := Merge(defaults, meta)

	assert.Equal(t, "high", params["quality"])
	assert.Equal(t, "standard", defaults["quality"])
}

func TestMergeNeverForwardsInputFiles(t *testing.T) {
	params := Merge(nil, Metadata{"input_files": []any{"ref-1"}})
	assert.NotContains(t, params, "input_files")
}
