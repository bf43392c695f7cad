package notify

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPublisher_FanOut(t *testing.T) {
	p := NewPublisher("test-bot")

	ch := p.Subscribe("sub-1", 4)
	defer p.Unsubscribe("sub-1")

	err := p.Emit(OutputSent, "conv-1", &OutputSentData{Dialog: "greeting", Text: "Hello!"})
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	select {
	case env := <-ch:
		if env.Type != OutputSent {
			t.Errorf("type = %q, want %q", env.Type, OutputSent)
		}
		if env.ConversationKey != "conv-1" {
			t.Errorf("conversation_key = %q, want %q", env.ConversationKey, "conv-1")
		}
		if env.Source != "test-bot" {
			t.Errorf("source = %q, want %q", env.Source, "test-bot")
		}
		if env.ID == "" {
			t.Error("envelope should carry an id")
		}

		var payload OutputSentData
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.Text != "Hello!" {
			t.Errorf("text = %q, want %q", payload.Text, "Hello!")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the notification")
	}
}

func TestPublisher_DropsWhenBufferFull(t *testing.T) {
	p := NewPublisher("test-bot")

	ch := p.Subscribe("slow", 1)
	defer p.Unsubscribe("slow")

	// First fills the buffer, second must be dropped without blocking.
	if err := p.Emit(TurnStarted, "conv-1", &TurnStartedData{TurnID: "t1"}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Emit(TurnStarted, "conv-1", &TurnStartedData{TurnID: "t2"})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber buffer")
	}

	env := <-ch
	var payload TurnStartedData
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.TurnID != "t1" {
		t.Errorf("expected the first notification to survive, got %q", payload.TurnID)
	}
}

func TestPublisher_UnsubscribeClosesChannel(t *testing.T) {
	p := NewPublisher("test-bot")

	ch := p.Subscribe("sub-1", 4)
	p.Unsubscribe("sub-1")

	if _, ok := <-ch; ok {
		t.Error("unsubscribed channel should be closed")
	}

	// Emitting after unsubscribe must not panic.
	if err := p.Emit(TurnCompleted, "conv-1", &TurnCompletedData{TurnID: "t1"}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
}

func TestNotificationTypeConstants(t *testing.T) {
	types := []Type{
		TurnStarted, TurnCompleted, TurnFaulted,
		OutputSent, DialogStarted, DialogEnded,
		RuleSelected, EventDropped, InputRequested,
	}

	seen := make(map[Type]bool)
	for _, nt := range types {
		if nt == "" {
			t.Error("empty notification type constant")
		}
		if seen[nt] {
			t.Errorf("duplicate notification type: %q", nt)
		}
		seen[nt] = true
	}
}
