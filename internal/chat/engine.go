package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/schema"

	"yodabot/internal/models"
)

// Fallback is substituted when the model returns an empty assistant message,
// so an empty turn is never persisted.
const Fallback = "Sorry, I didn't understand what you meant."

// Completer produces the next assistant turn for a history. When tools is
// non-empty they are offered to the model on that call.
type Completer interface {
	Complete(ctx context.Context, turns []models.Turn, tools []*schema.ToolInfo) (*models.Turn, error)
}

var imageContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// Engine turns a user utterance into the next assistant reply for a live
// session. Search sessions get at most one round of tool use: a first
// completion with the tool declared, the tool execution, and a second
// completion that folds the observation back in.
type Engine struct {
	controller *Controller
	completer  Completer
	tools      *Registry
}

func NewEngine(controller *Controller, completer Completer, tools *Registry) *Engine {
	return &Engine{controller: controller, completer: completer, tools: tools}
}

// Reply appends the user's message to the session of the given kind, asks the
// model for the next turn and persists the extended history. Nothing is
// persisted unless the model call succeeds, so a failed attempt leaves the
// history at the last successful turn. An empty reply with a nil error means
// the session expired mid-flight and the turn was quietly abandoned.
func (e *Engine) Reply(ctx context.Context, id models.Identity, kind models.Kind, text string, attachments []models.Attachment) (string, error) {
	session, err := e.controller.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrNoSession
	}
	if session.Kind != kind {
		return "", ErrWrongKind
	}

	// Get already drops expired rows, but the session can still lapse
	// between that read and here. Bail out before spending a model call.
	if session.Expired(time.Now().UTC()) {
		if err := e.controller.Stop(ctx, id); err != nil && !errors.Is(err, ErrSessionAbsent) {
			log.Printf("stop lapsed chat session user=%d channel=%d: %v", id.UserID, id.ChannelID, err)
		}
		return "", nil
	}

	turns := append(session.Turns, userTurn(text, attachments))

	var reply *models.Turn
	switch session.Kind {
	case models.KindSearch:
		reply, turns, err = e.searchReply(ctx, turns)
	default:
		reply, err = e.completer.Complete(ctx, turns, nil)
	}
	if err != nil {
		return "", fmt.Errorf("chat reply: %w", err)
	}

	content := reply.Content
	if content == "" {
		content = Fallback
	}
	turns = append(turns, models.Turn{Role: models.RoleAssistant, Content: content})

	session.Turns = turns
	if err := e.controller.Save(ctx, id, session); err != nil {
		return "", err
	}
	return content, nil
}

// searchReply runs the tool-augmented flow. Only the first tool call of a
// response is honored; the model is declared a single tool.
func (e *Engine) searchReply(ctx context.Context, turns []models.Turn) (*models.Turn, []models.Turn, error) {
	first, err := e.completer.Complete(ctx, turns, e.tools.Declarations())
	if err != nil {
		return nil, turns, err
	}
	if len(first.ToolCalls) == 0 {
		return first, turns, nil
	}

	call := first.ToolCalls[0]
	handler, ok := e.tools.Lookup(call.Name)
	if !ok {
		return nil, turns, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	observation, err := handler(ctx, call.Arguments)
	if err != nil {
		return nil, turns, fmt.Errorf("run %s: %w", call.Name, err)
	}

	turns = append(turns, *first)
	turns = append(turns, models.Turn{
		Role:       models.RoleTool,
		Content:    observation,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	})

	second, err := e.completer.Complete(ctx, turns, nil)
	if err != nil {
		return nil, turns, err
	}
	return second, turns, nil
}

// Ask runs a throwaway conversation: fresh session, one reply, teardown.
func (e *Engine) Ask(ctx context.Context, id models.Identity, kind models.Kind, role, text string) (string, error) {
	if err := e.controller.New(ctx, id, kind, role); err != nil {
		return "", err
	}
	answer, err := e.Reply(ctx, id, kind, text, nil)
	if stopErr := e.controller.Stop(ctx, id); stopErr != nil && !errors.Is(stopErr, ErrSessionAbsent) && err == nil {
		err = stopErr
	}
	return answer, err
}

func userTurn(text string, attachments []models.Attachment) models.Turn {
	parts := []models.Part{{Type: models.PartText, Text: text}}
	attached := false
	for _, a := range attachments {
		if imageContentTypes[a.ContentType] {
			parts = append(parts, models.Part{Type: models.PartImage, ImageURL: a.URL})
			attached = true
		}
	}
	if !attached {
		return models.Turn{Role: models.RoleUser, Content: text}
	}
	return models.Turn{Role: models.RoleUser, Parts: parts}
}
