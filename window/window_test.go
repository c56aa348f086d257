package window

import (
	"testing"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", SDL, false},
		{"sdl", SDL, false},
		{" GLFW ", GLFW, false},
		{"wayland", "", true},
	}
	for _, tc := range tests {
		got, err := ParseBackend(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseBackend(%q) error = %v, wantErr %t", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBackend(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewRejectsBadArguments(t *testing.T) {
	if _, err := New(SDL, "t", 0, 600); err == nil {
		t.Errorf("zero width should be rejected")
	}
	if _, err := New(Backend("x11"), "t", 800, 600); err == nil {
		t.Errorf("unknown backend should be rejected")
	}
}
