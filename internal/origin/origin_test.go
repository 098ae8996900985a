package origin

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		header string

		wantNormalized string
		wantHost       string
		wantOK         bool
	}{
		{name: "simple", header: "https://app.example.com", wantNormalized: "https://app.example.com", wantHost: "app.example.com", wantOK: true},
		{name: "uppercase host", header: "https://APP.Example.COM", wantNormalized: "https://app.example.com", wantHost: "app.example.com", wantOK: true},
		{name: "explicit default https port", header: "https://app.example.com:443", wantNormalized: "https://app.example.com", wantHost: "app.example.com", wantOK: true},
		{name: "explicit default http port", header: "http://app.example.com:80", wantNormalized: "http://app.example.com", wantHost: "app.example.com", wantOK: true},
		{name: "non-default port kept", header: "http://localhost:3000", wantNormalized: "http://localhost:3000", wantHost: "localhost:3000", wantOK: true},
		{name: "ipv6", header: "http://[::1]:3000", wantNormalized: "http://[::1]:3000", wantHost: "[::1]:3000", wantOK: true},
		{name: "null origin", header: "null", wantNormalized: "null", wantHost: "", wantOK: true},
		{name: "trailing slash tolerated", header: "https://app.example.com/", wantNormalized: "https://app.example.com", wantHost: "app.example.com", wantOK: true},

		{name: "empty", header: ""},
		{name: "whitespace", header: "   "},
		{name: "missing scheme", header: "app.example.com"},
		{name: "non-http scheme", header: "ftp://app.example.com"},
		{name: "path", header: "https://app.example.com/login"},
		{name: "query", header: "https://app.example.com?x=1"},
		{name: "userinfo", header: "https://user@app.example.com"},
		{name: "port zero", header: "https://app.example.com:0"},
		{name: "port out of range", header: "https://app.example.com:70000"},
		{name: "empty port", header: "https://app.example.com:"},
		{name: "unbracketed ipv6", header: "http://::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, host, ok := Normalize(tt.header)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if normalized != tt.wantNormalized {
				t.Errorf("normalized = %q, want %q", normalized, tt.wantNormalized)
			}
			if host != tt.wantHost {
				t.Errorf("host = %q, want %q", host, tt.wantHost)
			}
		})
	}
}

func TestAllowed_Allowlist(t *testing.T) {
	allowlist := []string{"https://app.example.com", "http://localhost:3000"}

	if !Allowed("https://app.example.com", "app.example.com", "relay.example.com", allowlist) {
		t.Errorf("expected allowlisted origin to be allowed")
	}
	if !Allowed("http://localhost:3000", "localhost:3000", "relay.example.com", allowlist) {
		t.Errorf("expected allowlisted dev origin to be allowed")
	}
	if Allowed("https://evil.example.com", "evil.example.com", "relay.example.com", allowlist) {
		t.Errorf("expected non-allowlisted origin to be rejected")
	}
	if !Allowed("https://anything.example.com", "anything.example.com", "relay.example.com", []string{"*"}) {
		t.Errorf("expected wildcard allowlist to allow everything")
	}
}

func TestAllowed_SameHostDefault(t *testing.T) {
	if !Allowed("https://relay.example.com", "relay.example.com", "relay.example.com", nil) {
		t.Errorf("expected same host to be allowed")
	}
	if !Allowed("https://relay.example.com", "relay.example.com", "relay.example.com:443", nil) {
		t.Errorf("expected default request port to be treated as equivalent")
	}
	if Allowed("https://other.example.com", "other.example.com", "relay.example.com", nil) {
		t.Errorf("expected cross-host origin to be rejected")
	}
	if Allowed("null", "", "relay.example.com", nil) {
		t.Errorf("expected null origin to be rejected by same-host policy")
	}
}
