package openai

import (
	"context"
	"strings"

	oai "github.com/openai/openai-go"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

// Generator implements minutes.TextGenerator with chat completions.
type Generator struct {
	log         *logger.Logger
	client      oai.Client
	model       string
	temperature float64
}

func NewGenerator(log *logger.Logger, cfg Config) *Generator {
	if log == nil {
		log = logger.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Generator{
		log:         log.With("service", "openai.Generator"),
		client:      newSDKClient(cfg),
		model:       cfg.ChatModel,
		temperature: cfg.Temperature,
	}
}

func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: oai.ChatModel(g.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
	}
	if g.temperature > 0 {
		params.Temperature = oai.Float(g.temperature)
	}
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapAPIError("openai chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.ErrCapabilityEmptyResult
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	g.log.Debug("generation complete", "model", g.model, "chars", len(out), "finish_reason", resp.Choices[0].FinishReason)
	if out == "" {
		return "", domain.ErrCapabilityEmptyResult
	}
	return out, nil
}
