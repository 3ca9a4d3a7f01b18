package email

import "errors"

// Error kinds returned by a Composer. Callers should compare with errors.Is,
// since every returned error wraps one of these with more context.
var (
	// ErrAddress means an email address could not be parsed.
	ErrAddress = errors.New("malformed email address")
	// ErrIO means an attachment could not be read.
	ErrIO = errors.New("cannot read attachment")
	// ErrAttachment means an attachment's content type, Content-ID or
	// filename can't be written as a MIME header.
	ErrAttachment = errors.New("invalid attachment")
	// ErrMessaging covers every failure while sending: dialing, TLS, AUTH,
	// a rejected envelope or a message that cannot be sent at all.
	ErrMessaging = errors.New("cannot send message")
	// ErrSent is returned by every Composer method that changes the message
	// once it has been sent.
	ErrSent = errors.New("message has already been sent")
)
