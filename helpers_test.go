package smartsheet

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStringValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "bearer", "bearer"},
		{"number", json.Number("3600"), "3600"},
		{"bool", true, "true"},
		{"float", 1.5, "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringValue(tt.in); got != tt.want {
				t.Errorf("stringValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"json integer", json.Number("604799"), 604799},
		{"json float", json.Number("60.9"), 60},
		{"float64", float64(42), 42},
		{"int", 7, 7},
		{"numeric string", "3600", 3600},
		{"padded string", " 3600 ", 3600},
		{"non-numeric string", "soon", 0},
		{"nil", nil, 0},
		{"bool", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := intValue(tt.in); got != tt.want {
				t.Errorf("intValue(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFloatValue(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOk bool
	}{
		{"json number", json.Number("12.5"), 12.5, true},
		{"float64", 3.25, 3.25, true},
		{"int", 4, 4, true},
		{"int64", int64(9), 9, true},
		{"numeric string", "2.5", 2.5, true},
		{"text", "n/a", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := floatValue(tt.in)
			if ok != tt.wantOk || got != tt.want {
				t.Errorf("floatValue(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestTruncatePreview(t *testing.T) {
	if got := truncatePreview([]byte("  short  ")); got != "short" {
		t.Errorf("truncatePreview() = %q, want %q", got, "short")
	}

	long := strings.Repeat("x", 300)
	got := truncatePreview([]byte(long))
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncatePreview() length = %d, want 203 with ellipsis", len(got))
	}
}
