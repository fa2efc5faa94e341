package safeurl

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/books/m.pdf", false},
		{"http://example.com/m.epub", false},
		{"ftp://evil.com/data", true},             // bad scheme
		{"javascript:alert(1)", true},             // bad scheme
		{"https:///no-host.pdf", true},            // missing host
		{"http://127.0.0.1/admin", true},          // loopback
		{"http://10.0.0.1/internal", true},        // private
		{"http://192.168.1.1/api", true},          // private
		{"http://172.16.0.1/secret", true},        // private
		{"http://[::1]/api", true},                // IPv6 loopback
		{"http://169.254.169.254/metadata", true}, // link-local metadata
		{"http://0.0.0.0/x", true},                // unspecified
	}
	for _, tt := range tests {
		err := Validate(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error=%v, wantErr=%v", tt.url, err, tt.wantErr)
		}
	}
}

func TestValidate_Sentinels(t *testing.T) {
	if err := Validate("ftp://evil.com/data"); !errors.Is(err, ErrUnsafeScheme) {
		t.Errorf("expected ErrUnsafeScheme, got %v", err)
	}
	if err := Validate("http://127.0.0.1/x"); !errors.Is(err, ErrPrivateAddress) {
		t.Errorf("expected ErrPrivateAddress, got %v", err)
	}
}
