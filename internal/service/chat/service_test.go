package chat_test

import (
	"context"
	"fmt"
	"testing"

	chatmodel "github.com/zhouzirui/kidwatch/backend/internal/model/chat"
	chat "github.com/zhouzirui/kidwatch/backend/internal/service/chat"
)

func TestServiceGetSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "child-1", "guardian-1", 8)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.GuardianID != "guardian-1" {
		t.Fatalf("unexpected guardian ID: got %s", got.GuardianID)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestServiceCreateSessionRequiresGuardian(t *testing.T) {
	svc := chat.NewService()

	if _, err := svc.CreateSession(context.Background(), "child-1", "", 8); err == nil {
		t.Fatal("expected error for missing guardian")
	}
}

func TestServiceRecentMessages(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "child-1", "guardian-1", 8)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	for i := 0; i < 8; i++ {
		_, err := svc.SaveMessage(ctx, chatmodel.Message{
			SessionID: session.ID,
			Sender:    chatmodel.SenderChild,
			Content:   fmt.Sprintf("message %d", i),
		})
		if err != nil {
			t.Fatalf("SaveMessage err: %v", err)
		}
	}

	recent, err := svc.RecentMessages(ctx, session.ID, 5)
	if err != nil {
		t.Fatalf("RecentMessages err: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("expected 5 recent messages, got %d", len(recent))
	}
	if recent[0].Content != "message 3" {
		t.Fatalf("expected oldest of window to be message 3, got %q", recent[0].Content)
	}
	if recent[4].Content != "message 7" {
		t.Fatalf("expected newest last, got %q", recent[4].Content)
	}
}

func TestServiceSaveMessageUnknownSession(t *testing.T) {
	svc := chat.NewService()

	_, err := svc.SaveMessage(context.Background(), chatmodel.Message{SessionID: "nope", Content: "hi"})
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
}
