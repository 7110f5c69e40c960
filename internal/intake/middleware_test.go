package intake

import "testing"

func TestIsDomainAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"exact match", "https://example.com", []string{"example.com"}, true},
		{"exact match with path", "https://example.com/contact", []string{"example.com"}, true},
		{"exact mismatch", "https://evil.com", []string{"example.com"}, false},
		{"wildcard subdomain", "https://www.example.com", []string{"*.example.com"}, true},
		{"wildcard deep subdomain", "https://a.b.example.com", []string{"*.example.com"}, true},
		{"wildcard matches apex", "https://example.com", []string{"*.example.com"}, true},
		{"wildcard rejects lookalike", "https://notexample.com", []string{"*.example.com"}, false},
		{"allow everything", "https://anything.test", []string{"*"}, true},
		{"bare domain origin", "example.com", []string{"example.com"}, true},
		{"case insensitive", "https://EXAMPLE.com", []string{"Example.COM"}, true},
		{"empty origin", "", []string{"example.com"}, false},
		{"empty allowlist", "https://example.com", nil, false},
		{"second entry matches", "https://example.org", []string{"example.com", "example.org"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDomainAllowed(tt.origin, tt.allowed); got != tt.want {
				t.Fatalf("isDomainAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
			}
		})
	}
}
