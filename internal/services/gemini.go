package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const providerGemini = "gemini"

type GeminiService struct {
	client    *genai.Client
	modelName string
	slots     callSlots
	logger    *zap.Logger
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int, logger *zap.Logger) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
		slots:     newCallSlots(concurrentReqs),
		logger:    logger.Named("gemini"),
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// Complete runs one generation. A caller-supplied key gets a short-lived
// client so the server default is never mutated.
func (s *GeminiService) Complete(ctx context.Context, prompt, apiKey string) (string, error) {
	if err := s.slots.acquire(ctx); err != nil {
		return "", err
	}
	defer s.slots.release()

	client := s.client
	if apiKey != "" {
		c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return "", &UpstreamError{Provider: providerGemini, Err: err}
		}
		defer c.Close()
		client = c
	}

	model := client.GenerativeModel(s.modelName)
	model.SetTemperature(0)

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	observeCall(providerGemini, start, err)
	if err != nil {
		return "", &UpstreamError{Provider: providerGemini, Err: err}
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.logger.Warn("Gemini stopped early",
				zap.Int("candidate", i),
				zap.String("finish_reason", cand.FinishReason.String()))
		}
	}

	return extractText(resp), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
