package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"

	"yodabot/internal/models"
)

// scriptedCompleter replays canned turns and records what it was asked.
type scriptedCompleter struct {
	responses []*models.Turn
	err       error
	calls     int
	toolsSeen [][]*schema.ToolInfo
}

func (s *scriptedCompleter) Complete(_ context.Context, _ []models.Turn, tools []*schema.ToolInfo) (*models.Turn, error) {
	s.toolsSeen = append(s.toolsSeen, tools)
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.responses) {
		return nil, errors.New("no scripted response left")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

type fakeSearcher struct {
	observation string
	terms       []string
}

func (f *fakeSearcher) Search(_ context.Context, term string) (string, error) {
	f.terms = append(f.terms, term)
	return f.observation, nil
}

func newTestEngine(t *testing.T, completer Completer, searcher Searcher) (*Engine, *Controller, *Store) {
	t.Helper()
	store := newTestStore(t)
	controller := NewController(store, "YodaBot")
	if searcher == nil {
		searcher = &fakeSearcher{observation: `{"answer":"none"}`}
	}
	return NewEngine(controller, completer, NewSearchRegistry(searcher)), controller, store
}

func TestReplyPlain(t *testing.T) {
	completer := &scriptedCompleter{responses: []*models.Turn{
		{Role: models.RoleAssistant, Content: "hi there"},
	}}
	engine, controller, store := newTestEngine(t, completer, nil)
	ctx := context.Background()
	id := testIdentity()

	if err := controller.New(ctx, id, models.KindPlain, "assistant"); err != nil {
		t.Fatalf("new: %v", err)
	}
	answer, err := engine.Reply(ctx, id, models.KindPlain, "hello", nil)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if answer != "hi there" {
		t.Fatalf("answer = %q, want %q", answer, "hi there")
	}

	session, err := store.Get(ctx, id.UserID, id.ChannelID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(session.Turns) != 3 {
		t.Fatalf("stored %d turns, want 3: %#v", len(session.Turns), session.Turns)
	}
	roles := []models.Role{models.RoleSystem, models.RoleUser, models.RoleAssistant}
	for i, want := range roles {
		if session.Turns[i].Role != want {
			t.Fatalf("turn %d role = %q, want %q", i, session.Turns[i].Role, want)
		}
	}
	if session.Turns[1].Content != "hello" {
		t.Fatalf("user turn content = %q", session.Turns[1].Content)
	}
	if got := completer.toolsSeen[0]; len(got) != 0 {
		t.Fatalf("plain reply declared %d tools", len(got))
	}
}

func TestReplyWithoutSession(t *testing.T) {
	engine, _, _ := newTestEngine(t, &scriptedCompleter{}, nil)

	_, err := engine.Reply(context.Background(), testIdentity(), models.KindPlain, "hello", nil)
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("reply without session = %v, want ErrNoSession", err)
	}
}

func TestReplyWrongKindLeavesHistoryAlone(t *testing.T) {
	engine, controller, store := newTestEngine(t, &scriptedCompleter{}, nil)
	ctx := context.Background()
	id := testIdentity()

	if err := controller.New(ctx, id, models.KindPlain, "assistant"); err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err := engine.Reply(ctx, id, models.KindSearch, "hello", nil)
	if !errors.Is(err, ErrWrongKind) {
		t.Fatalf("cross-kind reply = %v, want ErrWrongKind", err)
	}

	session, err := store.Get(ctx, id.UserID, id.ChannelID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(session.Turns) != 1 {
		t.Fatalf("history mutated by rejected reply: %#v", session.Turns)
	}
}

func TestReplyEmptyContentFallback(t *testing.T) {
	completer := &scriptedCompleter{responses: []*models.Turn{
		{Role: models.RoleAssistant, Content: ""},
	}}
	engine, controller, store := newTestEngine(t, completer, nil)
	ctx := context.Background()
	id := testIdentity()

	if err := controller.New(ctx, id, models.KindPlain, "assistant"); err != nil {
		t.Fatalf("new: %v", err)
	}
	answer, err := engine.Reply(ctx, id, models.KindPlain, "hello", nil)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if answer != Fallback {
		t.Fatalf("answer = %q, want fallback", answer)
	}

	session, _ := store.Get(ctx, id.UserID, id.ChannelID)
	last := session.Turns[len(session.Turns)-1]
	if last.Content != Fallback {
		t.Fatalf("persisted assistant turn = %q, want fallback", last.Content)
	}
}

func TestReplyToolRoundTrip(t *testing.T) {
	completer := &scriptedCompleter{responses: []*models.Turn{
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{{
				ID:        "call_1",
				Name:      SearchToolName,
				Arguments: `{"term":"current president"}`,
			}},
		},
		{Role: models.RoleAssistant, Content: "the answer"},
	}}
	searcher := &fakeSearcher{observation: `{"answer":"searched"}`}
	engine, controller, store := newTestEngine(t, completer, searcher)
	ctx := context.Background()
	id := testIdentity()

	if err := controller.New(ctx, id, models.KindSearch, ""); err != nil {
		t.Fatalf("new: %v", err)
	}
	answer, err := engine.Reply(ctx, id, models.KindSearch, "who is the president?", nil)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if answer != "the answer" {
		t.Fatalf("answer = %q, want second completion's content", answer)
	}
	if len(searcher.terms) != 1 || searcher.terms[0] != "current president" {
		t.Fatalf("search terms = %#v", searcher.terms)
	}

	session, err := store.Get(ctx, id.UserID, id.ChannelID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	roles := []models.Role{
		models.RoleSystem,
		models.RoleUser,
		models.RoleAssistant, // carries the tool call
		models.RoleTool,
		models.RoleAssistant,
	}
	if len(session.Turns) != len(roles) {
		t.Fatalf("stored %d turns, want %d: %#v", len(session.Turns), len(roles), session.Turns)
	}
	for i, want := range roles {
		if session.Turns[i].Role != want {
			t.Fatalf("turn %d role = %q, want %q", i, session.Turns[i].Role, want)
		}
	}
	toolTurn := session.Turns[3]
	if toolTurn.ToolCallID != "call_1" || toolTurn.ToolName != SearchToolName {
		t.Fatalf("tool turn not linked to its call: %#v", toolTurn)
	}
	if toolTurn.Content != searcher.observation {
		t.Fatalf("tool turn content = %q", toolTurn.Content)
	}

	if len(completer.toolsSeen) != 2 {
		t.Fatalf("completer called %d times, want 2", len(completer.toolsSeen))
	}
	if len(completer.toolsSeen[0]) != 1 || completer.toolsSeen[0][0].Name != SearchToolName {
		t.Fatalf("first call tools = %#v", completer.toolsSeen[0])
	}
	if len(completer.toolsSeen[1]) != 0 {
		t.Fatalf("second call still declared tools")
	}
}

func TestReplySearchWithoutToolCall(t *testing.T) {
	completer := &scriptedCompleter{responses: []*models.Turn{
		{Role: models.RoleAssistant, Content: "no search needed"},
	}}
	engine, controller, store := newTestEngine(t, completer, nil)
	ctx := context.Background()
	id := testIdentity()

	if err := controller.New(ctx, id, models.KindSearch, ""); err != nil {
		t.Fatalf("new: %v", err)
	}
	answer, err := engine.Reply(ctx, id, models.KindSearch, "hello", nil)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if answer != "no search needed" {
		t.Fatalf("answer = %q", answer)
	}

	session, _ := store.Get(ctx, id.UserID, id.ChannelID)
	if len(session.Turns) != 3 {
		t.Fatalf("stored %d turns, want 3", len(session.Turns))
	}
}

func TestReplyUnknownTool(t *testing.T) {
	completer := &scriptedCompleter{responses: []*models.Turn{
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{{
				ID:        "call_1",
				Name:      "delete_everything",
				Arguments: `{}`,
			}},
		},
	}}
	engine, controller, store := newTestEngine(t, completer, nil)
	ctx := context.Background()
	id := testIdentity()

	if err := controller.New(ctx, id, models.KindSearch, ""); err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err := engine.Reply(ctx, id, models.KindSearch, "hello", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("unknown tool = %v, want ErrUnknownTool", err)
	}

	session, _ := store.Get(ctx, id.UserID, id.ChannelID)
	if len(session.Turns) != 1 {
		t.Fatalf("failed reply persisted turns: %#v", session.Turns)
	}
}

func TestReplyFailurePersistsNothing(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("provider down")}
	engine, controller, store := newTestEngine(t, completer, nil)
	ctx := context.Background()
	id := testIdentity()

	if err := controller.New(ctx, id, models.KindPlain, "assistant"); err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := engine.Reply(ctx, id, models.KindPlain, "hello", nil); err == nil {
		t.Fatalf("expected provider error to propagate")
	}

	// No orphan user turn: the history stays at the last successful turn.
	session, _ := store.Get(ctx, id.UserID, id.ChannelID)
	if len(session.Turns) != 1 {
		t.Fatalf("failed reply left %d turns, want 1", len(session.Turns))
	}
}

func TestReplyFiltersAttachments(t *testing.T) {
	completer := &scriptedCompleter{responses: []*models.Turn{
		{Role: models.RoleAssistant, Content: "nice picture"},
	}}
	engine, controller, store := newTestEngine(t, completer, nil)
	ctx := context.Background()
	id := testIdentity()

	if err := controller.New(ctx, id, models.KindPlain, "assistant"); err != nil {
		t.Fatalf("new: %v", err)
	}
	attachments := []models.Attachment{
		{URL: "https://cdn.example/cat.png", ContentType: "image/png"},
		{URL: "https://cdn.example/doc.pdf", ContentType: "application/pdf"},
	}
	if _, err := engine.Reply(ctx, id, models.KindPlain, "look at this", attachments); err != nil {
		t.Fatalf("reply: %v", err)
	}

	session, _ := store.Get(ctx, id.UserID, id.ChannelID)
	user := session.Turns[1]
	if len(user.Parts) != 2 {
		t.Fatalf("user turn parts = %#v, want text + image", user.Parts)
	}
	if user.Parts[0].Type != models.PartText || user.Parts[0].Text != "look at this" {
		t.Fatalf("text part wrong: %#v", user.Parts[0])
	}
	if user.Parts[1].Type != models.PartImage || user.Parts[1].ImageURL != "https://cdn.example/cat.png" {
		t.Fatalf("image part wrong: %#v", user.Parts[1])
	}
}

func TestAskTearsDownSession(t *testing.T) {
	completer := &scriptedCompleter{responses: []*models.Turn{
		{Role: models.RoleAssistant, Content: "42"},
	}}
	engine, controller, _ := newTestEngine(t, completer, nil)
	ctx := context.Background()
	id := testIdentity()

	answer, err := engine.Ask(ctx, id, models.KindPlain, "assistant", "meaning of life?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "42" {
		t.Fatalf("answer = %q", answer)
	}

	exists, err := controller.Exists(ctx, id)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("one-shot session survived")
	}
}
