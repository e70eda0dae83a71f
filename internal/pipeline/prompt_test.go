package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt("bullet", "Quarterly revenue grew 12%.")

	require.NoError(t, err)
	assert.Contains(t, prompt, `in "bullet" format`)
	assert.Contains(t, prompt, "Quarterly revenue grew 12%.")
	assert.Contains(t, prompt, "short    -> 5-7 concise lines")
	assert.Contains(t, prompt, "insights -> insights and implications")
}

func TestBuildPromptDefaultsToDetailed(t *testing.T) {
	prompt, err := BuildPrompt("", "some content")

	require.NoError(t, err)
	assert.Contains(t, prompt, `in "detailed" format`)
}
