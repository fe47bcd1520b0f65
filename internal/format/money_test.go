package format

import (
	"math"
	"strings"
	"testing"
)

func TestMoneyFormatterFormat(t *testing.T) {
	f, err := NewMoneyFormatter("en-US", "USD")
	if err != nil {
		t.Fatalf("NewMoneyFormatter() error = %v", err)
	}

	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"grouping and scale", 1234.5, "1,234.50"},
		{"rounds to cents", 12.345, "12.35"},
		{"zero", 0, "0.00"},
		{"NaN renders as zero", math.NaN(), "0.00"},
		{"infinity renders as zero", math.Inf(1), "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Format(tt.value)
			if !strings.HasSuffix(got, tt.want) || !strings.Contains(got, "$") {
				t.Errorf("Format(%v) = %q, want $...%s", tt.value, got, tt.want)
			}
			if f.Number(tt.value) != tt.want {
				t.Errorf("Number(%v) = %q, want %q", tt.value, f.Number(tt.value), tt.want)
			}
		})
	}

	if got := f.Format(-5); !strings.HasPrefix(got, "-") || !strings.HasSuffix(got, "5.00") {
		t.Errorf("Format(-5) = %q", got)
	}
}

func TestMoneyFormatterLocaleGrouping(t *testing.T) {
	f, err := NewMoneyFormatter("de-DE", "EUR")
	if err != nil {
		t.Fatalf("NewMoneyFormatter() error = %v", err)
	}
	if got := f.Number(1234.5); got != "1.234,50" {
		t.Errorf("Number() = %q, want 1.234,50", got)
	}
	if f.Currency() != "EUR" {
		t.Errorf("Currency() = %q", f.Currency())
	}
}

func TestNewMoneyFormatterRejectsBadInput(t *testing.T) {
	if _, err := NewMoneyFormatter("not a locale!", "USD"); err == nil {
		t.Error("expected locale error")
	}
	if _, err := NewMoneyFormatter("en-US", "XXXX"); err == nil {
		t.Error("expected currency error")
	}
}

func TestRegistryCaches(t *testing.T) {
	r := NewRegistry()
	a, err := r.Get("en-US", "php")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	b, _ := r.Get("EN-us", "PHP")
	if a != b {
		t.Error("expected the cached formatter for equivalent keys")
	}
	if _, err := r.Get("en-US", "nope"); err == nil {
		t.Error("expected error for unknown currency")
	}
}
