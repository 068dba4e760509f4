package util

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "WebServers", want: "WebServers"},
		{name: "quoted", in: `"Web Servers"`, want: "Web Servers"},
		{name: "dotted", in: "10.1.1.0_net", want: "10_1_1_0_net"},
		{name: "colons", in: "srv:443", want: "srv_443"},
		{name: "wildcard fqdn", in: `"*.example.com"`, want: "__example_com"},
		{name: "surrounding space", in: "  HostA  ", want: "HostA"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripQuotes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `"hello world"`, want: "hello world"},
		{in: "bare", want: "bare"},
		{in: `"unterminated`, want: `"unterminated`},
		{in: `""`, want: ""},
	}

	for _, tt := range tests {
		if got := StripQuotes(tt.in); got != tt.want {
			t.Errorf("StripQuotes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
