package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repurposer/internal/config"
)

func TestSplitBlocks(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace", " \n\n \n", nil},
		{"single", "Video 1\nHook", []string{"Video 1\nHook"}},
		{"two", "Video 1\n\nVideo 2", []string{"Video 1", "Video 2"}},
		{"crlf and extra gaps", "A\r\n\r\n\r\nB\n  \nC  ", []string{"A", "B", "C"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitBlocks(tc.in))
		})
	}
}

func TestRepurposePrompt_EmbedsInput(t *testing.T) {
	p := RepurposePrompt("how to brew coffee")
	assert.Contains(t, p, "Video 1")
	assert.Contains(t, p, "User input: how to brew coffee")
}

func TestNewGenerationService_WithoutKeyIsDisabled(t *testing.T) {
	g, err := NewGenerationService(context.Background(), config.GenerationConfig{Model: "gemini-1.5-flash"})
	require.NoError(t, err)
	defer g.Close()

	_, err = g.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
