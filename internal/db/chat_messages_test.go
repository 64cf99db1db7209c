package db

import (
	"context"
	"fmt"
	"testing"

	"stanza/internal/models"
)

func TestChatHistoryReturnsMostRecentInOrder(t *testing.T) {
	repo := NewChatMessageRepository(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		role := models.ChatRoleUser
		if i%2 == 1 {
			role = models.ChatRoleModel
		}
		if _, err := repo.Append(ctx, "alice", role, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if _, err := repo.Append(ctx, "bob", models.ChatRoleUser, "unrelated"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	history, err := repo.History(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	// The newest three, in chronological order.
	for i, want := range []string{"message 2", "message 3", "message 4"} {
		if history[i].Content != want {
			t.Fatalf("history[%d] = %q, want %q", i, history[i].Content, want)
		}
	}
	for _, m := range history {
		if m.Username != "alice" {
			t.Fatalf("username = %q, want %q", m.Username, "alice")
		}
	}
}

func TestChatHistoryEmptyUser(t *testing.T) {
	repo := NewChatMessageRepository(openTestDB(t))

	history, err := repo.History(context.Background(), "ghost", 20)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("len(history) = %d, want 0", len(history))
	}
}
