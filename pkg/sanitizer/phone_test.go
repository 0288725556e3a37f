package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "indian mobile with country code", input: "+91 98765 43210", want: "+919876543210"},
		{name: "indian mobile without country code", input: "98765 43210", want: "+919876543210"},
		{name: "uk mobile", input: "+44 7911 123456", want: "+447911123456"},
		{name: "us number", input: "+1 (212) 555-1234", want: "+12125551234"},
		{name: "surrounding whitespace", input: "  +919876543210  ", want: "+919876543210"},
		{name: "empty", input: "", want: ""},
		{name: "letters", input: "call me", want: ""},
		{name: "too short", input: "+91123", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	once := NormalizePhone("+91 98765 43210")
	if twice := NormalizePhone(once); twice != once {
		t.Errorf("second pass changed %q to %q", once, twice)
	}
}
