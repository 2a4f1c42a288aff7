package models

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a turn in a chat history.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Kind selects the chat variant. Plain sessions talk straight to the model;
// search sessions may call the web-search tool mid-completion. The two must
// never be mixed on one stored session.
type Kind string

const (
	KindPlain  Kind = "plain"
	KindSearch Kind = "search"
)

// ParseKind maps a request string onto a Kind. Empty input means plain.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(KindPlain):
		return KindPlain, nil
	case string(KindSearch):
		return KindSearch, nil
	}
	return "", fmt.Errorf("unknown chat kind: %q", s)
}

// PartType tags one piece of a multimodal turn.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is one piece of a multimodal user turn.
type Part struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// ToolCall is a model-issued request to run a registered tool. Arguments is
// the raw JSON object as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Turn is one message in a session history. Content carries plain text; Parts
// is set instead for multimodal user turns. A turn is never edited once it has
// been appended to a session.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	Parts      []Part     `json:"parts,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ChatSession is one conversation keyed by (user, channel), with a sliding
// expiry refreshed on every successful turn.
type ChatSession struct {
	UserID    int64     `json:"user_id"`
	ChannelID int64     `json:"channel_id"`
	Turns     []Turn    `json:"turns"`
	ExpiresAt time.Time `json:"expires_at"`
	Kind      Kind      `json:"kind"`
}

// Expired reports whether the sliding TTL has lapsed.
func (s *ChatSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Attachment is a file the user attached to a message. Only image content
// types make it into the prompt.
type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Identity names the party a conversation belongs to. The gateway shell fills
// it in from whatever invocation surface the user came through, so nothing
// below the API layer cares which one that was.
type Identity struct {
	UserID      int64  `json:"user_id"`
	ChannelID   int64  `json:"channel_id"`
	GuildID     int64  `json:"guild_id"`
	Username    string `json:"username"`
	GuildName   string `json:"guild_name"`
	ChannelName string `json:"channel_name"`
}
