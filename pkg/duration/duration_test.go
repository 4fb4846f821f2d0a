package duration

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "empty string defaults to 1 hour", input: "", expected: time.Hour},
		{name: "bare seconds", input: "3600", expected: 3600 * time.Second},
		{name: "minutes", input: "30m", expected: 30 * time.Minute},
		{name: "hours", input: "2h", expected: 2 * time.Hour},
		{name: "seconds suffix", input: "1800s", expected: 1800 * time.Second},
		{name: "compound", input: "1h30m", expected: time.Hour + 30*time.Minute},
		{name: "invalid", input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("Parse() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   time.Duration
		wantErr bool
	}{
		{name: "minimum", input: 15 * time.Minute},
		{name: "maximum", input: 12 * time.Hour},
		{name: "typical", input: time.Hour},
		{name: "below minimum", input: 899 * time.Second, wantErr: true},
		{name: "above maximum", input: 12*time.Hour + time.Second, wantErr: true},
		{name: "zero", input: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(time.Hour); got != 3600 {
		t.Errorf("Seconds(1h) = %d, want 3600", got)
	}
	if got := Seconds(900 * time.Second); got != 900 {
		t.Errorf("Seconds(900s) = %d, want 900", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{input: time.Hour, expected: "1h"},
		{input: 90 * time.Minute, expected: "1h 30m"},
		{input: 30 * time.Minute, expected: "30m"},
		{input: 90 * time.Second, expected: "1m 30s"},
		{input: 45 * time.Second, expected: "45s"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Format(tt.input); got != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
