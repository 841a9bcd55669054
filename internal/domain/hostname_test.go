package domain

import "testing"

func TestNormalizeCandidate(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		domainName string
		want       string
		wantOK     bool
	}{
		{
			name:       "simple subdomain",
			raw:        "api.example.com",
			domainName: "example.com",
			want:       "api.example.com",
			wantOK:     true,
		},
		{
			name:       "wildcard and mixed case",
			raw:        "*.Foo.Example.com",
			domainName: "example.com",
			want:       "foo.example.com",
			wantOK:     true,
		},
		{
			name:       "surrounding whitespace",
			raw:        "  www.example.com\t",
			domainName: "example.com",
			want:       "www.example.com",
			wantOK:     true,
		},
		{
			name:       "bare domain rejected",
			raw:        "example.com",
			domainName: "example.com",
			wantOK:     false,
		},
		{
			name:       "wildcard of bare domain rejected",
			raw:        "*.example.com",
			domainName: "example.com",
			wantOK:     false,
		},
		{
			name:       "unrelated domain rejected",
			raw:        "api.other.com",
			domainName: "example.com",
			wantOK:     false,
		},
		{
			name:       "suffix without dot boundary rejected",
			raw:        "notexample.com",
			domainName: "example.com",
			wantOK:     false,
		},
		{
			name:       "deep subdomain",
			raw:        "a.b.c.example.com",
			domainName: "example.com",
			want:       "a.b.c.example.com",
			wantOK:     true,
		},
		{
			name:       "empty input rejected",
			raw:        "   ",
			domainName: "example.com",
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeCandidate(tt.raw, tt.domainName)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeCandidate(%q, %q) ok = %v, want %v", tt.raw, tt.domainName, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("NormalizeCandidate(%q, %q) = %q, want %q", tt.raw, tt.domainName, got, tt.want)
			}
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Example.COM", "example.com"},
		{" example.com ", "example.com"},
		{"example.com.", "example.com"},
		{"sub.example.com", "sub.example.com"},
	}

	for _, tt := range tests {
		if got := NormalizeDomain(tt.raw); got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
