package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// GenerateRequest carries what the gateway needs besides the input text.
type GenerateRequest struct {
	Token    string
	Email    string
	ClientIP string
	Text     string
}

type RepurposeService interface {
	// Generate returns the model output split into blocks.
	Generate(ctx context.Context, req GenerateRequest) ([]string, error)
}

type repurposeService struct {
	gateway   *AccessGateway
	generator GenerationService
	log       *logrus.Entry
}

func NewRepurposeService(gateway *AccessGateway, generator GenerationService) RepurposeService {
	return &repurposeService{
		gateway:   gateway,
		generator: generator,
		log:       logrus.WithField("component", "repurpose"),
	}
}

// Generate authorizes the caller and charges the free-tier quota before the
// input is checked. No store lock is held during the model call.
func (s *repurposeService) Generate(ctx context.Context, req GenerateRequest) ([]string, error) {
	ref, err := s.gateway.CheckGenerationQuota(req.Token, req.Email, req.ClientIP)
	if err != nil {
		return nil, err
	}

	input := strings.TrimSpace(req.Text)
	if input == "" {
		return nil, invalid("text", "Input text is required.")
	}

	log := s.log.WithFields(logrus.Fields{"email": ref.Email, "plan": ref.Plan, "client_ip": req.ClientIP})
	content, err := s.generator.Complete(ctx, RepurposePrompt(input))
	if err != nil {
		log.WithError(err).Warn("[generate] upstream failed")
		return nil, classify(err)
	}
	blocks := SplitBlocks(content)
	if len(blocks) == 0 {
		log.Warn("[generate] no content returned")
		return nil, ErrUpstreamUnavailable
	}
	log.WithField("blocks", len(blocks)).Info("[generate] ok")
	return blocks, nil
}
