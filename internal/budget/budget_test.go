package budget

import "testing"

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		budget    float64
		spent     float64
		status    Status
		remaining float64
	}{
		{"no budget with spend", 0, 500, StatusNoBudget, -500},
		{"no budget no spend", 0, 0, StatusNoBudget, 0},
		{"negative budget is no budget", -10, 5, StatusNoBudget, -15},
		{"nothing spent", 100, 0, StatusOnTrack, 100},
		{"just under near", 100, 79.75, StatusOnTrack, 20.25},
		{"near at threshold", 100, 80, StatusNear, 20},
		{"near just under limit", 100, 99.5, StatusNear, 0.5},
		{"exactly at limit is over", 100, 100, StatusOver, 0},
		{"over", 100, 150, StatusOver, -50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.budget, tt.spent)
			if got.Status != tt.status {
				t.Errorf("Evaluate(%v, %v).Status = %q, want %q", tt.budget, tt.spent, got.Status, tt.status)
			}
			if got.Remaining != tt.remaining {
				t.Errorf("Evaluate(%v, %v).Remaining = %v, want %v", tt.budget, tt.spent, got.Remaining, tt.remaining)
			}
		})
	}
}

func TestEvaluateRatio(t *testing.T) {
	if got := Evaluate(100, 79.99).Status; got != StatusOnTrack {
		t.Fatalf("Evaluate(100, 79.99) = %q, want on track", got)
	}
	if got := Evaluate(0, 50).Ratio; got != 0 {
		t.Fatalf("ratio without budget = %v, want 0", got)
	}
	if got := Evaluate(200, 50).Ratio; got != 0.25 {
		t.Fatalf("ratio = %v, want 0.25", got)
	}
}

func TestProgressIsCapped(t *testing.T) {
	if got := Evaluate(100, 250).Progress(); got != 100 {
		t.Fatalf("Progress() = %v, want 100", got)
	}
	if got := Evaluate(100, 40).Progress(); got != 40 {
		t.Fatalf("Progress() = %v, want 40", got)
	}
}

func TestRemainingLabel(t *testing.T) {
	label, amount := Evaluate(100, 130).RemainingLabel()
	if label != "Over by" || amount != 30 {
		t.Fatalf("got %q %v", label, amount)
	}
	label, amount = Evaluate(100, 30).RemainingLabel()
	if label != "Remaining" || amount != 70 {
		t.Fatalf("got %q %v", label, amount)
	}
}

func TestStatusPresentation(t *testing.T) {
	tests := []struct {
		s     Status
		label string
		tone  string
		alert bool
	}{
		{StatusNoBudget, "No budget", "neutral", false},
		{StatusOnTrack, "On track", "ok", false},
		{StatusNear, "Near limit", "warn", true},
		{StatusOver, "Over budget", "danger", true},
	}
	for _, tt := range tests {
		if tt.s.Label() != tt.label || tt.s.Tone() != tt.tone || tt.s.Alerting() != tt.alert {
			t.Errorf("%q: got %q/%q/%v", tt.s, tt.s.Label(), tt.s.Tone(), tt.s.Alerting())
		}
	}
}
