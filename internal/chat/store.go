package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"yodabot/internal/models"
)

// SessionTTL is the sliding expiry window, refreshed on every successful turn.
const SessionTTL = 3 * time.Minute

// DefaultSweepInterval is how often the background sweeper drops expired rows.
const DefaultSweepInterval = time.Minute

// Store persists one session per (user, channel) in the chat table. Expiry is
// the caller's business; the store only reads and writes rows.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore builds a store over an opened database. The driver name selects
// the conflict clause used for upserts.
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: strings.ToLower(driver)}
}

// Get fetches the stored session, nil when absent.
func (s *Store) Get(ctx context.Context, userID, channelID int64) (*models.ChatSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT messages, ttl, kind FROM chat WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	)
	var (
		raw  []byte
		ttl  time.Time
		kind string
	)
	if err := row.Scan(&raw, &ttl, &kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session: %w", err)
	}
	var turns []models.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode chat history: %w", err)
	}
	return &models.ChatSession{
		UserID:    userID,
		ChannelID: channelID,
		Turns:     turns,
		ExpiresAt: ttl.UTC(),
		Kind:      models.Kind(kind),
	}, nil
}

// Upsert writes the history in one atomic insert-or-update and slides the TTL
// to now + SessionTTL. The kind of an existing row is left alone; two
// concurrent writers for the same key race last-writer-wins, which is why
// replies go through the gate.
func (s *Store) Upsert(ctx context.Context, userID, channelID int64, turns []models.Turn, kind models.Kind) error {
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}
	ttl := time.Now().UTC().Add(SessionTTL)

	var stmt string
	switch s.driver {
	case "mysql":
		stmt = `INSERT INTO chat (user_id, channel_id, messages, ttl, kind)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE messages = VALUES(messages), ttl = VALUES(ttl)`
	default:
		stmt = `INSERT INTO chat (user_id, channel_id, messages, ttl, kind)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, channel_id) DO UPDATE SET messages = excluded.messages, ttl = excluded.ttl`
	}
	if _, err := s.db.ExecContext(ctx, stmt, userID, channelID, raw, ttl, string(kind)); err != nil {
		return fmt.Errorf("store chat session: %w", err)
	}
	return nil
}

// Delete removes the session if present. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, userID, channelID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chat WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	); err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	return nil
}

// StartSweeper deletes expired sessions in the background. Reads already hide
// expired rows; the sweeper keeps the table from accumulating them.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go s.sweepLoop(ctx, interval)
}

func (s *Store) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepExpired(ctx); err != nil {
				log.Printf("sweep expired chat sessions: %v", err)
			}
		}
	}
}

func (s *Store) sweepExpired(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat WHERE ttl <= ?`, time.Now().UTC())
	return err
}
