package smtptest

import (
	"crypto/tls"
	"path/filepath"
	"testing"
	"time"

	"github.com/flashmob/go-guerrilla/tests/testcert"
)

// GenerateTLSFiles writes a TLS key and certificate to a temporary test
// directory that is removed after the test suite runs. It returns the file
// paths of the key and certificate. The certificate is a root cert for
// 127.0.0.1.
func GenerateTLSFiles(t testing.TB) (keyPath string, certPath string, err error) {
	host := "127.0.0.1"
	// GenerateCert concatenates the prefix and the file name, so the
	// separator is on us.
	d := t.TempDir() + string(filepath.Separator)
	err = testcert.GenerateCert(
		host,
		"",                         // defaults to now
		time.Duration(1)*time.Hour, // the test suite won't run for this long
		true,                       // is a CA cert
		2048,                       // usually seen in online tutorials
		"",                         // using the default ecdsa curve,
		d,
	)

	if err != nil {
		return
	}

	// These path names are hardcoded into testcert.GenerateCert
	keyPath = d + host + ".key.pem"
	certPath = d + host + ".cert.pem"

	return
}

// ClientTLSConfig returns the TLS settings a client needs to talk to a
// server using the self-signed cert from GenerateTLSFiles.
func ClientTLSConfig() *tls.Config {
	return &tls.Config{
		ServerName:         "127.0.0.1",
		InsecureSkipVerify: true,
	}
}

// StartTLSServer generates a cert, starts an InProcessServer with implicit
// TLS and AUTH, and closes it when the test ends.
func StartTLSServer(t testing.TB) *InProcessServer {
	t.Helper()
	k, c, err := GenerateTLSFiles(t)
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewInProcessTLSServer(k, c)
	if err != nil {
		t.Fatal(err)
	}
	go srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

// StartServer starts a plain InProcessServer without AUTH and closes it when
// the test ends.
func StartServer(t testing.TB) *InProcessServer {
	t.Helper()
	srv, err := NewInProcessServer()
	if err != nil {
		t.Fatal(err)
	}
	go srv.Start()
	t.Cleanup(srv.Close)
	return srv
}
