package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"yodabot/internal/config"
	"yodabot/internal/models"
)

const claudeMaxTokens = 4096

// Model is the completion provider backed by an eino chat model. It converts
// stored turns to the wire schema, declares tools when asked to, and hands
// back the assistant turn including any tool calls.
type Model struct {
	chatModel model.ToolCallingChatModel
	provider  string
}

// NewModel builds the chat model for the configured provider.
func NewModel(ctx context.Context, provider string, cfg config.ProviderConfig) (*Model, error) {
	var chatModel model.ToolCallingChatModel
	var err error

	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
		})
	case "gemini":
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: cfg.APIKey,
		})
		if cerr != nil {
			return nil, fmt.Errorf("gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  cfg.Model,
		})
	case "claude":
		var baseURL *string
		if cfg.BaseURL != "" {
			baseURL = &cfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   baseURL,
			MaxTokens: claudeMaxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return &Model{chatModel: chatModel, provider: provider}, nil
}

// Complete runs one completion over the full ordered history.
func (m *Model) Complete(ctx context.Context, turns []models.Turn, tools []*schema.ToolInfo) (*models.Turn, error) {
	target := m.chatModel
	if len(tools) > 0 {
		bound, err := m.chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
		target = bound
	}
	resp, err := target.Generate(ctx, toSchema(turns))
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", m.provider, err)
	}
	return fromSchema(resp), nil
}

func toSchema(turns []models.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		msg := &schema.Message{Content: t.Content}
		switch t.Role {
		case models.RoleSystem:
			msg.Role = schema.System
		case models.RoleAssistant:
			msg.Role = schema.Assistant
		case models.RoleTool:
			msg.Role = schema.Tool
			msg.ToolCallID = t.ToolCallID
			msg.Name = t.ToolName
		default:
			msg.Role = schema.User
		}
		for _, p := range t.Parts {
			switch p.Type {
			case models.PartImage:
				msg.MultiContent = append(msg.MultiContent, schema.ChatMessagePart{
					Type:     schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{URL: p.ImageURL},
				})
			default:
				msg.MultiContent = append(msg.MultiContent, schema.ChatMessagePart{
					Type: schema.ChatMessagePartTypeText,
					Text: p.Text,
				})
			}
		}
		for _, tc := range t.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
				ID: tc.ID,
				Function: schema.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		messages = append(messages, msg)
	}
	return messages
}

func fromSchema(msg *schema.Message) *models.Turn {
	turn := &models.Turn{Role: models.RoleAssistant, Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return turn
}
