package email

import (
	"crypto/tls"
	"net"
	"strconv"

	gomail "gopkg.in/gomail.v2"
)

// Session describes how to reach the SMTP relay. It is immutable once built.
// Build one with NewSession or NewAuthSession.
type Session struct {
	host      string
	port      int
	username  string
	password  string
	tlsConfig *tls.Config
	localName string
}

// SessionOption customizes a Session at construction time.
type SessionOption func(*Session)

// WithTLSConfig sets the TLS settings used for implicit TLS and STARTTLS.
// Without it, the server certificate is verified against the host name.
func WithTLSConfig(c *tls.Config) SessionOption {
	return func(s *Session) {
		s.tlsConfig = c
	}
}

// WithLocalName sets the host name sent in HELO/EHLO.
func WithLocalName(name string) SessionOption {
	return func(s *Session) {
		s.localName = name
	}
}

// NewSession returns a Session for a relay that takes plain connections
// without authentication. The connection starts in plaintext, but gomail
// upgrades it with STARTTLS when the relay offers that extension, so the
// message is encrypted in transit whenever the relay supports it.
func NewSession(host string, port int, opts ...SessionOption) Session {
	return NewAuthSession(host, port, "", "", opts...)
}

// NewAuthSession returns a Session that authenticates with username and
// password over implicit TLS on port. An empty username disables both, so
// the result is the same as NewSession.
func NewAuthSession(host string, port int, username, password string, opts ...SessionOption) Session {
	s := Session{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
	if username == "" {
		s.password = ""
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Host returns the relay host name.
func (s Session) Host() string { return s.host }

// Port returns the relay port.
func (s Session) Port() int { return s.port }

// Address returns host:port.
func (s Session) Address() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// AuthEnabled reports whether the session authenticates.
func (s Session) AuthEnabled() bool {
	return s.username != ""
}

// TLSEnabled reports whether the connection is wrapped in TLS from the first
// byte. Sessions with credentials always use implicit TLS. Plain sessions may
// still upgrade with STARTTLS if the relay offers it.
func (s Session) TLSEnabled() bool {
	return s.AuthEnabled()
}

// dialer translates the session into gomail's Dialer. gomail picks the
// AUTH mechanism from what the server advertises.
func (s Session) dialer() *gomail.Dialer {
	d := &gomail.Dialer{
		Host:      s.host,
		Port:      s.port,
		SSL:       s.TLSEnabled(),
		TLSConfig: s.tlsConfig,
		LocalName: s.localName,
	}
	if s.AuthEnabled() {
		d.Username = s.username
		d.Password = s.password
	}
	return d
}
