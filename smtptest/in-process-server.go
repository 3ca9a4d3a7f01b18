package smtptest

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/emersion/go-smtp"
)

// Delivery is one message the server accepted, with the envelope it arrived
// in.
type Delivery struct {
	Created time.Time
	// Username is empty for anonymous sessions.
	Username string
	From     string
	To       []string
	Body     string
}

// Backend implements smtp.Backend. It's a thin authentication wrapper
// for an InMemoryEmailStore.
type Backend struct {
	store          *InMemoryEmailStore
	allowAnonymous bool
}

// Login implements smtp.Backend. Any username/password is fine, since we
// don't want to couple this with specific test configurations.
func (be *Backend) Login(_ *smtp.ConnectionState, username string, password string) (smtp.Session, error) {
	if username != "" && password != "" {
		return &session{store: be.store, username: username}, nil
	}
	return nil, errors.New("no username or password provided")
}

// AnonymousLogin implements smtp.Backend. Only allowed for plain servers.
func (be *Backend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	if !be.allowAnonymous {
		return nil, smtp.ErrAuthUnsupported
	}
	return &session{store: be.store}, nil
}

// session implements smtp.Session for one connection and collects the
// envelope until DATA completes.
type session struct {
	store    *InMemoryEmailStore
	username string
	from     string
	to       []string
}

// Reset implements smtp.Session.
func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

// Logout implements smtp.Session. No-op here.
func (s *session) Logout() error { return nil }

// Mail implements smtp.Session.
func (s *session) Mail(from string, _ smtp.MailOptions) error {
	s.from = from
	return nil
}

// Rcpt implements smtp.Session.
func (s *session) Rcpt(to string) error {
	s.to = append(s.to, to)
	return nil
}

// Data implements smtp.Session. Stores the email data in memory for retrieval
// at the end of the test.
func (s *session) Data(r io.Reader) error {
	// doubtful we'll get an email this big, but we need a limit
	var maxEmailSize int64 = 25 * units.MiB
	buf, err := io.ReadAll(io.LimitReader(r, maxEmailSize))
	if err != nil {
		return err
	}

	s.store.save(Delivery{
		Created:  time.Now(),
		Username: s.username,
		From:     s.from,
		To:       append([]string(nil), s.to...),
		Body:     string(buf),
	})
	return nil
}

// InMemoryEmailStore retains deliveries in memory for comparison against
// a test's expected output. Designed to be goroutine safe since we don't
// know how many goroutines will be hitting the server at once.
type InMemoryEmailStore struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// save stores the delivery.
func (es *InMemoryEmailStore) save(d Delivery) {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.deliveries = append(es.deliveries, d)
}

// Deliveries returns every delivery received so far, oldest first.
func (es *InMemoryEmailStore) Deliveries() []Delivery {
	es.mu.Lock()
	defer es.mu.Unlock()

	return append([]Delivery(nil), es.deliveries...)
}

// RetrieveEmails returns the bodies of the messages received at or after
// since, oldest first.
func (es *InMemoryEmailStore) RetrieveEmails(since time.Time) []string {
	es.mu.Lock()
	defer es.mu.Unlock()

	r := make([]string, 0, len(es.deliveries))
	for _, d := range es.deliveries {
		if !d.Created.Before(since) {
			r = append(r, d.Body)
		}
	}
	return r
}

// InProcessServer is an SMTP server that runs in the same process as the
// test suite, letting us inspect sent emails. You must initialize this
// via NewInProcessServer or NewInProcessTLSServer.
type InProcessServer struct {
	*smtp.Server
	*InMemoryEmailStore
	listener net.Listener
}

// NewInProcessServer creates a plain-text server on a random local port
// that accepts mail without AUTH.
func NewInProcessServer() (*InProcessServer, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return newInProcessServer(l, true), nil
}

// NewInProcessTLSServer creates a server on a random local port that speaks
// TLS from the first byte and requires AUTH. Must provide the paths to the
// key and cert used for TLS.
func NewInProcessTLSServer(keypath string, certpath string) (*InProcessServer, error) {
	cert, err := tls.LoadX509KeyPair(certpath, keypath)
	if err != nil {
		return nil, err
	}
	tc := &tls.Config{
		Certificates: []tls.Certificate{cert},
	}
	l, err := tls.Listen("tcp", "127.0.0.1:0", tc)
	if err != nil {
		return nil, err
	}
	return newInProcessServer(l, false), nil
}

func newInProcessServer(l net.Listener, anonymous bool) *InProcessServer {
	is := &InMemoryEmailStore{}

	srv := smtp.NewServer(&Backend{
		store:          is,
		allowAnonymous: anonymous,
	})
	srv.Addr = l.Addr().String()
	srv.Domain = "localhost"
	srv.AuthDisabled = anonymous
	srv.AllowInsecureAuth = false
	// Strict enforces <address> syntax in MAIL and RCPT:
	// https://github.com/emersion/go-smtp/blob/f92bf7f1a25777bcdaa28a142b1cd1a54b74c8f4/conn.go#L321-L325
	srv.Strict = true
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	// TLSConfig stays unset: the TLS listener already does the handshake,
	// and a plain server must not advertise STARTTLS.

	return &InProcessServer{
		Server:             srv,
		InMemoryEmailStore: is,
		listener:           l,
	}
}

// Start serves connections until Close. Blocking.
func (is *InProcessServer) Start() error {
	return is.Server.Serve(is.listener)
}

// Close shuts down the server. You must initialize a new InProcessServer
// instead of restarting this one.
func (is *InProcessServer) Close() {
	is.Server.Close()
	is.listener.Close()
}

// Address returns the host:port of the server.
func (is *InProcessServer) Address() string {
	return is.listener.Addr().String()
}

// Host returns the host part of Address.
func (is *InProcessServer) Host() string {
	h, _, _ := net.SplitHostPort(is.Address())
	return h
}

// Port returns the port part of Address.
func (is *InProcessServer) Port() int {
	return is.listener.Addr().(*net.TCPAddr).Port
}
