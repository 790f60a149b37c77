package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"repurposer/internal/config"
	"repurposer/internal/metrics"
)

// GenerationService sends a prompt to the text model. Any failure, including
// an empty answer, is reported as ErrUpstreamUnavailable.
type GenerationService interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}

type geminiGenerationService struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *logrus.Entry
}

// NewGenerationService builds a Gemini client. Without an API key it returns a
// service whose every call fails, so the rest of the API still starts.
func NewGenerationService(ctx context.Context, cfg config.GenerationConfig) (GenerationService, error) {
	log := logrus.WithField("component", "generation")
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("[generation] GEMINI_API_KEY not set, generation disabled")
		return disabledGenerationService{}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &geminiGenerationService{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

func (s *geminiGenerationService) Complete(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.complete(ctx, prompt)
	if err != nil {
		metrics.RecordGeneration("error", time.Since(start))
		s.log.WithError(err).WithField("model", s.model).Warn("[generation][complete] failed")
		return "", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	metrics.RecordGeneration("ok", time.Since(start))
	return text, nil
}

func (s *geminiGenerationService) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.GenerativeModel(s.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("empty response")
	}
	return out, nil
}

func (s *geminiGenerationService) Close() error {
	return s.client.Close()
}

type disabledGenerationService struct{}

func (disabledGenerationService) Complete(context.Context, string) (string, error) {
	metrics.RecordGeneration("disabled", 0)
	return "", fmt.Errorf("%w: API key missing", ErrUpstreamUnavailable)
}

func (disabledGenerationService) Close() error { return nil }

var blankLines = regexp.MustCompile(`(\r\n|\r|\n)[ \t]*(\r\n|\r|\n)+`)

// SplitBlocks splits model output on blank lines and drops empty blocks.
func SplitBlocks(content string) []string {
	var out []string
	for _, part := range blankLines.Split(content, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RepurposePrompt wraps user input (an idea or a video URL) in the
// short-form content instructions.
func RepurposePrompt(input string) string {
	return `You are an expert short-form content strategist.

Turn the input below into exactly 4 short videos. If it is an idea, expand it into a
long-form outline first and pick the 4 strongest angles. If it is a YouTube URL, treat
it as a long video and pick its 4 most valuable moments.

Write one section per video, titled Video 1 to Video 4, separated by a blank line.
Each section lists: Duration (e.g. 00:30 to 00:45), Best Part / Hook, Caption (one
line), Description (platform-ready with a CTA) and Tips (2 to 4 editing or posting tips).
No text outside the 4 sections. When the content behind a URL is unknown, state the
assumption in one short line inside each section.

User input: ` + input
}
