package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkGenerator adapts an eino chat model (Ark) to the text-generation provider
// interface so it can sit behind the same chain as the OpenAI-compatible
// candidates.
type ArkGenerator struct {
	id        string
	chatModel model.ChatModel
}

// NewArkGenerator wraps an eino chat model as a chain candidate.
func NewArkGenerator(id string, chatModel model.ChatModel) *ArkGenerator {
	return &ArkGenerator{id: id, chatModel: chatModel}
}

func (a *ArkGenerator) ID() string { return a.id }

func (a *ArkGenerator) Call(ctx context.Context, input GenInput) (GenOutput, error) {
	messages := make([]*schema.Message, 0, len(input.Messages)+1)
	if input.System != "" {
		messages = append(messages, schema.SystemMessage(input.System))
	}
	for _, m := range input.Messages {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, schema.AssistantMessage(m.Content, nil))
		case RoleSystem:
			messages = append(messages, schema.SystemMessage(m.Content))
		default:
			messages = append(messages, schema.UserMessage(m.Content))
		}
	}

	resp, err := a.chatModel.Generate(ctx, messages)
	if err != nil {
		return GenOutput{}, err
	}
	if resp == nil || resp.Content == "" {
		return GenOutput{}, fmt.Errorf("%w: empty generation", ErrMalformed)
	}
	return GenOutput{Text: resp.Content}, nil
}
