package email

import (
	gomail "gopkg.in/gomail.v2"
)

// dialer opens one SMTP session. *gomail.Dialer satisfies it.
type dialer interface {
	Dial() (gomail.SendCloser, error)
}
