package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeURL(t *testing.T) {
	tests := []struct {
		name string
		text string
		bare bool
		want bool
	}{
		{"https url", "https://example.com/path?q=1", true, true},
		{"http url", "http://example.com", false, true},
		{"uppercase scheme", "HTTPS://EXAMPLE.COM", false, true},
		{"www prefix", "www.example.com", false, true},
		{"bare hostname enabled", "example.com", true, true},
		{"bare hostname with path", "shop.example.co.uk/item/42", true, true},
		{"bare hostname disabled", "example.com", false, false},
		{"plain text", "Hello World", true, false},
		{"numeric payload", "4006381333931", true, false},
		{"mailto scheme", "mailto:someone@example.com", true, false},
		{"ftp scheme", "ftp://files.example.com", true, false},
		{"wifi config", "WIFI:S:home;T:WPA;P:secret;;", true, false},
		{"surrounding whitespace", "  https://example.com  ", false, true},
		{"empty", "", true, false},
		{"blank", "   ", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeURL(tt.text, tt.bare))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"https://example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"HTTP://example.com", "HTTP://example.com"},
		{"www.example.com", "https://www.example.com"},
		{"example.com/a", "https://example.com/a"},
		{" example.com ", "https://example.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.text), tt.text)
	}
}
