// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/allma-studio/allma-go/internal/model"
	"github.com/allma-studio/allma-go/internal/util"
)

// DefaultMaxConversations bounds the cache; the oldest conversations are
// pruned past this count.
const DefaultMaxConversations = 100

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	updated_at    INTEGER NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated
	ON conversations(updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	is_error        INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, created_at);
`

// History is the local conversation cache.
type History struct {
	db      *sql.DB
	maxConv int
}

// Options tunes a History.
type Options struct {
	// MaxConversations overrides DefaultMaxConversations; <=0 keeps the
	// default.
	MaxConversations int
}

// Open creates or opens the history database at path.
func Open(path string, opts Options) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	maxConv := opts.MaxConversations
	if maxConv <= 0 {
		maxConv = DefaultMaxConversations
	}
	return &History{db: db, maxConv: maxConv}, nil
}

// Close releases the database.
func (h *History) Close() error {
	return h.db.Close()
}

// SaveExchange records a completed user/assistant exchange, creating the
// conversation row on first use and pruning old conversations.
func (h *History) SaveExchange(conversationID string, user, assistant *model.Message) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	title := util.TruncateRunes(util.FirstLine(user.Content), 60)

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, updated_at, message_count)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		conversationID, title, now)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	for _, msg := range []*model.Message{user, assistant} {
		_, err = tx.Exec(`
			INSERT OR IGNORE INTO messages (id, conversation_id, role, content, is_error, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, conversationID, string(msg.Role), msg.Content, boolToInt(msg.IsError), msg.Timestamp.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	_, err = tx.Exec(`
		UPDATE conversations
		SET message_count = (SELECT COUNT(*) FROM messages WHERE conversation_id = ?)
		WHERE id = ?`,
		conversationID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to update message count: %w", err)
	}

	// Prune: keep only the most recently updated conversations.
	_, err = tx.Exec(`
		DELETE FROM conversations WHERE id NOT IN (
			SELECT id FROM conversations ORDER BY updated_at DESC LIMIT ?
		)`, h.maxConv)
	if err != nil {
		return fmt.Errorf("failed to prune conversations: %w", err)
	}

	return tx.Commit()
}

// Conversations lists cached conversations, most recently updated first.
func (h *History) Conversations() ([]model.ConversationMeta, error) {
	rows, err := h.db.Query(`
		SELECT c.id, c.title, c.updated_at, c.message_count,
		       COALESCE((SELECT content FROM messages m
		                 WHERE m.conversation_id = c.id
		                 ORDER BY m.created_at DESC LIMIT 1), '')
		FROM conversations c
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var out []model.ConversationMeta
	for rows.Next() {
		var meta model.ConversationMeta
		var updated int64
		var preview string
		if err := rows.Scan(&meta.ID, &meta.Title, &updated, &meta.MessageCount, &preview); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		meta.UpdatedAt = time.Unix(updated, 0)
		meta.Preview = util.TruncateRunes(util.FirstLine(preview), 80)
		out = append(out, meta)
	}
	return out, rows.Err()
}

// Messages returns a conversation's messages in chronological order.
func (h *History) Messages(conversationID string) ([]*model.Message, error) {
	rows, err := h.db.Query(`
		SELECT id, role, content, is_error, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at, id`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		var msg model.Message
		var role string
		var isError int
		var created int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &isError, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.IsError = isError != 0
		msg.Timestamp = time.Unix(created, 0)
		out = append(out, &msg)
	}
	return out, rows.Err()
}

// DeleteConversation removes a conversation and its messages.
func (h *History) DeleteConversation(conversationID string) error {
	_, err := h.db.Exec(`DELETE FROM conversations WHERE id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
