package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Green Villa  ", want: "Green Villa"},
		{name: "multiple spaces between words", input: "Green    Villa", want: "Green Villa"},
		{name: "tabs and newlines", input: "Green\t\nVilla", want: "Green Villa"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   \t\n  ", want: ""},
		{name: "preserve special characters", input: " Café & Co™ ", want: "Café & Co™"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Is the room still free?", want: "Is the room still free?"},
		{name: "tags removed", input: "<b>Nice</b> place", want: "Nice place"},
		{name: "script block removed", input: "hi<script>alert(1)</script> there", want: "hi there"},
		{name: "line breaks kept", input: "line one\nline two", want: "line one\nline two"},
		{name: "blank runs collapsed", input: "a\n\n\n\n\nb", want: "a\n\nb"},
		{name: "control chars dropped", input: "ok\x00\x07 then", want: "ok then"},
		{name: "crlf", input: "a\r\nb", want: "a\nb"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeLine(t *testing.T) {
	if got := SanitizeLine("  Sunny\n<i>Hostel</i> "); got != "Sunny Hostel" {
		t.Errorf("SanitizeLine() = %q", got)
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "http upgraded", input: "http://Example.com/a.jpg", want: "https://example.com/a.jpg"},
		{name: "scheme added", input: "cdn.example.com/x.png", want: "https://cdn.example.com/x.png"},
		{name: "utm dropped", input: "https://example.com/p?utm_source=x&id=3", want: "https://example.com/p?id=3"},
		{name: "empty", input: " ", want: ""},
		{name: "no host", input: "https://", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeURL(tt.input); got != tt.want {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeCity(t *testing.T) {
	tests := map[string]string{
		"LEEDS":                 "Leeds",
		"  newcastle upon tyne": "Newcastle Upon Tyne",
		"st. andrews":           "St. Andrews",
		"<b>york</b>":           "York",
	}
	for in, want := range tests {
		if got := NormalizeCity(in); got != want {
			t.Errorf("NormalizeCity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Asha@Example.COM "); got != "asha@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}
