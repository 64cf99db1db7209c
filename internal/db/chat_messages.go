package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stanza/internal/models"
)

type ChatMessageRepository struct {
	db *DB
}

func NewChatMessageRepository(db *DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

func (r *ChatMessageRepository) Append(ctx context.Context, username, role, content string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, username, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.Username, msg.Role, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("appending chat message: %w", err)
	}
	return msg, nil
}

// History returns the most recent limit messages for a user in
// chronological order.
func (r *ChatMessageRepository) History(ctx context.Context, username string, limit int) ([]*models.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, role, content, created_at FROM (
            SELECT id, username, role, content, created_at
            FROM chat_messages WHERE username = ?
            ORDER BY created_at DESC, id DESC LIMIT ?
         ) ORDER BY created_at ASC, id ASC`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying chat history: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.Username, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		messages = append(messages, &m)
	}

	return messages, rows.Err()
}
