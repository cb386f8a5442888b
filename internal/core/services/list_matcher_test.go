package services

import "testing"

func TestListMatcher_Matches(t *testing.T) {
	var m ListMatcher

	tests := []struct {
		name  string
		kind  ListKind
		value string
		list  []string
		want  bool
	}{
		{"exact ip", ListIP, "10.0.0.1", []string{"10.0.0.1"}, true},
		{"ip in cidr", ListIP, "192.168.4.20", []string{"192.168.0.0/16"}, true},
		{"ip outside cidr", ListIP, "172.16.0.1", []string{"192.168.0.0/16"}, false},
		{"mapped ipv4", ListIP, "::ffff:10.0.0.1", []string{"10.0.0.1"}, true},
		{"invalid cidr entry", ListIP, "10.0.0.1", []string{"10.0.0.0/99"}, false},
		{"email case-insensitive", ListEmail, "User@Example.COM", []string{"user@example.com"}, true},
		{"email wildcard domain", ListEmail, "anyone@example.com", []string{"*@example.com"}, true},
		{"email other domain", ListEmail, "anyone@example.org", []string{"*@example.com"}, false},
		{"domain ignores local part", ListEmailDomain, "x.y+z@Example.com", []string{"*@example.com"}, true},
		{"bare domain entry", ListEmailDomain, "a@example.com", []string{"example.com"}, true},
		{"subdomain is not domain", ListEmailDomain, "a@mail.example.com", []string{"*@example.com"}, false},
		{"identifier punctuation", ListIdentifier, "123.456.789-01", []string{"12345678901"}, true},
		{"identifier reverse", ListIdentifier, "12345678901", []string{"123.456.789-01"}, true},
		{"empty value is not wildcard", ListIdentifier, "", []string{""}, false},
		{"punctuation-only value", ListIdentifier, "--", []string{"..."}, false},
		{"empty list", ListIP, "10.0.0.1", nil, false},
		{"unknown kind", ListKind("phone"), "10.0.0.1", []string{"10.0.0.1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(tt.kind, tt.value, tt.list); got != tt.want {
				t.Fatalf("Matches(%s, %q, %v) = %v, want %v", tt.kind, tt.value, tt.list, got, tt.want)
			}
		})
	}
}
