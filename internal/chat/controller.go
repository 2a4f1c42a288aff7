package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"yodabot/internal/models"
)

// Controller enforces session lifecycle rules on top of Store: seeded
// creation, lazy expiry on read, kind isolation and explicit teardown.
type Controller struct {
	store   *Store
	botName string
}

// NewController builds a controller. botName goes into the personalization
// line of every seeded session.
func NewController(store *Store, botName string) *Controller {
	return &Controller{store: store, botName: botName}
}

// New resets any existing session for the identity and seeds a fresh one of
// the given kind. The first stored turn is always the system persona.
func (c *Controller) New(ctx context.Context, id models.Identity, kind models.Kind, role string) error {
	if err := c.Stop(ctx, id); err != nil && !errors.Is(err, ErrSessionAbsent) {
		return err
	}
	turns := c.seedTurns(id, kind, role)
	return c.store.Upsert(ctx, id.UserID, id.ChannelID, turns, kind)
}

func (c *Controller) seedTurns(id models.Identity, kind models.Kind, role string) []models.Turn {
	var system string
	if kind == models.KindSearch {
		system = searchPersona
	} else {
		if role == "" {
			role = "assistant"
		}
		system = Persona(role)
	}
	personalize := fmt.Sprintf(
		"Your name is %s and you are chatting with a person with the username %s with the user id %d in the server %s with the server id %d in the channel %s with the channel id %d.",
		c.botName, id.Username, id.UserID, id.GuildName, id.GuildID, id.ChannelName, id.ChannelID,
	)
	return []models.Turn{{Role: models.RoleSystem, Content: system + "\n\n" + personalize}}
}

// Get returns the live session for the identity, nil when absent. Expired
// rows are best-effort deleted and reported absent, so a second Get on the
// same identity answers the same way.
func (c *Controller) Get(ctx context.Context, id models.Identity) (*models.ChatSession, error) {
	session, err := c.store.Get(ctx, id.UserID, id.ChannelID)
	if err != nil || session == nil {
		return nil, err
	}
	if session.Expired(time.Now().UTC()) {
		if err := c.store.Delete(ctx, id.UserID, id.ChannelID); err != nil {
			log.Printf("drop expired chat session user=%d channel=%d: %v", id.UserID, id.ChannelID, err)
		}
		return nil, nil
	}
	return session, nil
}

// Exists reports whether the identity has a live session.
func (c *Controller) Exists(ctx context.Context, id models.Identity) (bool, error) {
	session, err := c.Get(ctx, id)
	return session != nil, err
}

// CheckKind verifies the stored session matches the requested variant.
func (c *Controller) CheckKind(ctx context.Context, id models.Identity, kind models.Kind) error {
	session, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrNoSession
	}
	if session.Kind != kind {
		return ErrWrongKind
	}
	return nil
}

// Stop deletes the session. ErrSessionAbsent tells the caller it was already
// gone; whether that is fatal is the caller's policy.
func (c *Controller) Stop(ctx context.Context, id models.Identity) error {
	session, err := c.store.Get(ctx, id.UserID, id.ChannelID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionAbsent
	}
	return c.store.Delete(ctx, id.UserID, id.ChannelID)
}

// Save persists an updated history, sliding the TTL. The stored kind never
// changes after creation.
func (c *Controller) Save(ctx context.Context, id models.Identity, session *models.ChatSession) error {
	return c.store.Upsert(ctx, id.UserID, id.ChannelID, session.Turns, session.Kind)
}
