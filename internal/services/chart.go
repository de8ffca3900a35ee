package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ChartService is the server side of the two outbound calls: chart type
// classification and chart data generation.
type ChartService struct {
	llm    Completer
	logger *zap.Logger
}

func NewChartService(llm Completer, logger *zap.Logger) *ChartService {
	return &ChartService{llm: llm, logger: logger}
}

// ClassifyChartType returns the model's label with surrounding whitespace
// removed. It does not check the label; callers own that decision.
func (s *ChartService) ClassifyChartType(ctx context.Context, inputData, apiKey string) (string, error) {
	if strings.TrimSpace(inputData) == "" {
		return "", &ValidationError{Fields: map[string]string{"inputData": "Input is required"}}
	}

	text, err := s.llm.Complete(ctx, BuildChartTypePrompt(inputData), apiKey)
	if err != nil {
		return "", err
	}

	label := strings.TrimSpace(text)
	s.logger.Debug("chart type classified", zap.String("label", label), zap.Bool("custom_key", apiKey != ""))
	return label, nil
}

// GenerateChartData returns the model's reply to prompt with any markdown
// fence removed. The reply is not parsed here.
func (s *ChartService) GenerateChartData(ctx context.Context, prompt, apiKey string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &ValidationError{Fields: map[string]string{"prompt": "Prompt is required"}}
	}

	text, err := s.llm.Complete(ctx, prompt, apiKey)
	if err != nil {
		return "", err
	}
	return stripCodeFence(text), nil
}
