package services

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const providerOpenAI = "openai"

type OpenAIService struct {
	client openai.Client
	model  openai.ChatModel
	slots  callSlots
	logger *zap.Logger
}

func NewOpenAIService(apiKey, model string, concurrentReqs int, logger *zap.Logger) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ChatModel(model),
		slots:  newCallSlots(concurrentReqs),
		logger: logger.Named("openai"),
	}
}

// Complete sends prompt as a single user message. A caller-supplied key
// overrides the client's key for this request only.
func (s *OpenAIService) Complete(ctx context.Context, prompt, apiKey string) (string, error) {
	if err := s.slots.acquire(ctx); err != nil {
		return "", err
	}
	defer s.slots.release()

	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	start := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}, opts...)
	observeCall(providerOpenAI, start, err)
	if err != nil {
		return "", &UpstreamError{Provider: providerOpenAI, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Provider: providerOpenAI, Err: errors.New("no choices")}
	}

	if reason := resp.Choices[0].FinishReason; reason != "stop" {
		s.logger.Warn("OpenAI stopped early", zap.String("finish_reason", string(reason)))
	}
	return resp.Choices[0].Message.Content, nil
}
