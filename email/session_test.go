package email

import (
	"crypto/tls"
	"testing"
)

func TestSessionFlags(t *testing.T) {
	testCases := []struct {
		description string
		session     Session
		auth        bool
		address     string
	}{
		{
			description: "no credentials",
			session:     NewSession("smtp.example.com", 25),
			auth:        false,
			address:     "smtp.example.com:25",
		},
		{
			description: "credentials",
			session:     NewAuthSession("smtp.example.com", 465, "u", "p"),
			auth:        true,
			address:     "smtp.example.com:465",
		},
		{
			description: "empty username disables auth",
			session:     NewAuthSession("smtp.example.com", 465, "", "p"),
			auth:        false,
			address:     "smtp.example.com:465",
		},
		{
			description: "IPv6 host",
			session:     NewSession("::1", 2525),
			auth:        false,
			address:     "[::1]:2525",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if tc.session.AuthEnabled() != tc.auth {
				t.Errorf("expected AuthEnabled() to be %v", tc.auth)
			}
			if tc.session.TLSEnabled() != tc.auth {
				t.Errorf("expected TLSEnabled() to be %v", tc.auth)
			}
			if tc.session.Address() != tc.address {
				t.Errorf("expected address %v but got %v", tc.address, tc.session.Address())
			}
		})
	}
}

func TestSessionDialer(t *testing.T) {
	tc := &tls.Config{ServerName: "relay"}
	d := NewAuthSession("smtp.example.com", 465, "u", "p", WithTLSConfig(tc), WithLocalName("me.example.com")).dialer()

	if d.Host != "smtp.example.com" || d.Port != 465 {
		t.Errorf("unexpected host/port %v:%v", d.Host, d.Port)
	}
	if !d.SSL {
		t.Error("expected implicit TLS for an authenticated session")
	}
	if d.Username != "u" || d.Password != "p" {
		t.Error("expected the credentials to reach the dialer")
	}
	if d.TLSConfig != tc {
		t.Error("expected the TLS config to reach the dialer")
	}
	if d.LocalName != "me.example.com" {
		t.Errorf("unexpected local name %v", d.LocalName)
	}

	d = NewAuthSession("smtp.example.com", 25, "", "ignored").dialer()
	if d.SSL || d.Username != "" || d.Password != "" {
		t.Error("expected a plain dialer without credentials")
	}
}
