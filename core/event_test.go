package core

import "testing"

func TestEvent_CopyIsDeep(t *testing.T) {
	ev := Event{
		Name:   "orderPlaced",
		Value:  map[string]any{"items": []any{"soup"}},
		Bubble: true,
	}

	cp := ev.Copy()

	cp.Value.(map[string]any)["items"] = []any{"salad"}

	items := ev.Value.(map[string]any)["items"].([]any)
	if items[0] != "soup" {
		t.Error("mutating the copy should not touch the original payload")
	}

	if cp.Name != ev.Name || cp.Bubble != ev.Bubble {
		t.Error("copy should carry name and bubble flag")
	}
}

func TestCopyValue_Scalars(t *testing.T) {
	for _, v := range []any{nil, true, "s", 42, int64(7), 2.5} {
		if got := CopyValue(v); got != v {
			t.Errorf("CopyValue(%v) = %v", v, got)
		}
	}
}

func TestNewID_Unique(t *testing.T) {
	if NewID() == NewID() {
		t.Error("ids should be unique")
	}
}

func TestStepLimiter(t *testing.T) {
	sl := NewStepLimiter(2)

	if err := sl.Increment(); err != nil {
		t.Fatalf("first increment should pass: %v", err)
	}

	if err := sl.Increment(); err != nil {
		t.Fatalf("second increment should pass: %v", err)
	}

	if err := sl.Increment(); err == nil {
		t.Error("third increment should exceed the budget")
	}

	if sl.Count() != 3 {
		t.Errorf("expected count 3, got %d", sl.Count())
	}

	if sl.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", sl.Remaining())
	}

	unlimited := NewStepLimiter(0)
	if unlimited.Remaining() != -1 {
		t.Error("unlimited limiter should report -1 remaining")
	}
}
