// Package smtptest runs an SMTP relay inside the test process so tests can
// send real messages and inspect what the relay received.
package smtptest
