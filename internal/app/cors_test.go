package app

import "testing"

func TestMatchOriginPattern(t *testing.T) {
	cases := []struct {
		pattern, host string
		want          bool
	}{
		{"example.com", "example.com", true},
		{"example.com", "evil.com", false},
		{"*.example.com", "blog.example.com", true},
		{"*.example.com", "example.com.evil.io", false},
		{"localhost:*", "localhost:5173", true},
		{"localhost:*", "localhost.evil:80", false},
		{"https://heliosensium.com", "heliosensium.com", true},
		{"*", "anything.dev", true},
	}
	for _, tc := range cases {
		if got := matchOriginPattern(tc.pattern, tc.host); got != tc.want {
			t.Errorf("matchOriginPattern(%q, %q) = %v, want %v", tc.pattern, tc.host, got, tc.want)
		}
	}
}

func TestExtractOriginHost(t *testing.T) {
	if got := extractOriginHost("https://a.example.com:8443"); got != "a.example.com:8443" {
		t.Errorf("got %q", got)
	}
	if got := extractOriginHost("not a url"); got != "not a url" {
		t.Errorf("got %q", got)
	}
}
