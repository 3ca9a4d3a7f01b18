// Package email composes a single outgoing message and sends it to an SMTP
// relay. A Composer collects the sender, the recipients, a subject and an
// ordered list of MIME parts (HTML bodies and attachments), then performs one
// SMTP session in Send.
//
// The package does not speak SMTP or encode MIME itself. Sessions, TLS and
// authentication are handled by gomail's Dialer and the multipart body is
// written with go-message.
package email
